package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/meetbar/internal/logging"
	"github.com/theakshaypant/meetbar/internal/tui"
	"github.com/theakshaypant/meetbar/internal/util"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the interactive popover",
	Long: `Launch the interactive terminal popover: upcoming events grouped by day,
a countdown to the next one, calendar toggles and one-key meeting join.

Logs go to meetbar.log in the config directory while the popover is open.`,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	// Log lines would garble the alt screen
	logPath := filepath.Join(configDir(), "meetbar.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log = logging.New(logging.Config{
		Level:  viper.GetString("log.level"),
		Format: "json",
		Out:    logFile,
	})

	application, stop, err := startApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer stop()

	updates, unsubscribe := tui.Notifications(application)
	defer unsubscribe()

	m := tui.NewModel(application, util.Browser, updates, time.Local)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
