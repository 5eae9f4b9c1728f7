package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/meetbar/internal/core"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Show the calendar access state",
	Long: `Show whether meetbar can read your calendar: granted, denied,
not_determined or restricted (provider not configured).`,
	RunE: runPermission,
}

var permissionRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request calendar access",
	Long: `Request calendar access when it has not been decided yet. When access
was denied, your provider's settings page is opened instead.`,
	RunE: runPermissionRequest,
}

func init() {
	rootCmd.AddCommand(permissionCmd)
	permissionCmd.AddCommand(permissionRequestCmd)
}

func runPermission(cmd *cobra.Command, args []string) error {
	a, err := newAdapter()
	if err != nil {
		return err
	}
	status, err := a.CheckPermission(cmd.Context())
	if err != nil {
		return fmt.Errorf("check calendar access: %w", err)
	}
	fmt.Println(status)
	return nil
}

func runPermissionRequest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newAdapter()
	if err != nil {
		return err
	}

	status, err := a.CheckPermission(ctx)
	if err != nil {
		return fmt.Errorf("check calendar access: %w", err)
	}

	switch status {
	case core.PermissionGranted:
		fmt.Println(status)
		return nil
	case core.PermissionDenied, core.PermissionRestricted:
		a.OpenPermissionSettings(ctx)
		fmt.Printf("%s\nOpened %s settings; run 'meetbar permission' again afterwards\n", status, a.Name())
		return nil
	}

	granted, err := a.RequestPermission(ctx)
	if err == nil && granted {
		fmt.Println(core.PermissionGranted)
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("permission request failed")
	}
	a.OpenPermissionSettings(ctx)
	fmt.Printf("%s\nOpened %s settings; run 'meetbar permission' again afterwards\n", status, a.Name())
	return nil
}
