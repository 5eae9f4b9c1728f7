package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/meetbar/internal/tray"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Stream the tray label for a status bar",
	Long: `Run in the foreground and print a new tray label whenever it changes.

With tray.format: waybar (the default) each line is a JSON object for a
waybar custom module with "return-type": "json". With tray.format: plain
each line is the bare label. Set tray.file to also keep the current label
in a file for xbar or SwiftBar plugins.

Due meetings are opened automatically unless launcher.enabled is false.`,
	RunE: runTray,
}

func init() {
	rootCmd.AddCommand(trayCmd)
}

func traySink() (tray.Sink, error) {
	var sinks tray.Multi
	switch format := viper.GetString("tray.format"); format {
	case "waybar":
		sinks = append(sinks, tray.NewWaybarSink(os.Stdout, log))
	case "plain":
		sinks = append(sinks, tray.NewPlainSink(os.Stdout, log))
	case "none":
	default:
		return nil, fmt.Errorf("unknown tray format: %s (supported: waybar, plain, none)", format)
	}
	if path := viper.GetString("tray.file"); path != "" {
		sinks = append(sinks, tray.NewFileSink(expandPath(path), log))
	}
	return sinks, nil
}

func runTray(cmd *cobra.Command, args []string) error {
	sink, err := traySink()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_, stop, err := startApp(ctx, sink)
	if err != nil {
		return err
	}
	defer stop()

	<-ctx.Done()
	return nil
}
