package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with your calendar provider",
	Long: `Authenticate with your calendar provider using OAuth.

For Google Calendar and Outlook / Office 365:
  1. Starts a local server to receive the OAuth callback
  2. Opens your browser to sign in
  3. Saves the token for future use

ICS feeds need no sign-in; this only checks that the feed is readable.

The provider is determined by your profile configuration (provider: google|outlook|ics).`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	a, err := newAdapter()
	if err != nil {
		return err
	}

	granted, err := a.RequestPermission(cmd.Context())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if !granted {
		return fmt.Errorf("access to %s was not granted", a.Name())
	}

	// Events cached for a previous account must not be shown for this one
	if store, err := openStorage(cmd.Context()); err == nil {
		if err := store.PurgeProvider(cmd.Context(), a.ID()); err != nil {
			log.Warn().Err(err).Msg("could not clear cached events")
		}
		store.Close()
	}

	fmt.Printf("✓ Authenticated with %s\n", a.Name())
	if viper.GetString("provider") != "ics" {
		fmt.Printf("Token saved to: %s\n", expandPath(viper.GetString("token_file")))
	}
	return nil
}
