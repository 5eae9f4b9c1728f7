package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/kv"
	"github.com/theakshaypant/meetbar/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show stored settings",
	Long: `Show the settings kept in the state file:

  minutesBefore          minutes before start a meeting link is opened (default 1)
  trayCountdownMinutes   the tray shows a countdown below this many minutes (default 30)`,
	RunE: runSettingsGet,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one or all settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <minutes>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	state := openState()
	s := settings.New(state, log)
	values := map[string]int{
		settings.KeyMinutesBefore:        s.MinutesBefore(),
		settings.KeyTrayCountdownMinutes: s.TrayCountdownMinutes(),
	}

	if len(args) == 1 {
		v, ok := values[args[0]]
		if !ok {
			return fmt.Errorf("unknown setting: %s (supported: %s, %s)", args[0], settings.KeyMinutesBefore, settings.KeyTrayCountdownMinutes)
		}
		fmt.Println(v)
		return nil
	}

	for _, key := range []string{settings.KeyMinutesBefore, settings.KeyTrayCountdownMinutes} {
		fmt.Printf("%s: %d%s\n", key, values[key], defaultMarker(state, key))
	}
	return nil
}

func defaultMarker(state core.KV, key string) string {
	if _, err := kv.MustGet(state, key); errors.Is(err, kv.ErrNotFound) {
		return " (default)"
	}
	return ""
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid value %q: expected a non-negative number of minutes", args[1])
	}

	s := settings.New(openState(), log)
	if err := s.Set(args[0], n); err != nil {
		return err
	}
	fmt.Printf("✓ %s set to %d\n", args[0], n)
	return nil
}
