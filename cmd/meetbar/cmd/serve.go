package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/meetbar/internal/api"
	"github.com/theakshaypant/meetbar/internal/tray"
	"github.com/theakshaypant/meetbar/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local bridge for widgets",
	Long: `Serve the REST and WebSocket bridge on the listen address
(default 127.0.0.1:7788).

  GET  /api/events                 grouped events and tray label
  GET  /api/calendars              calendars with enabled flags
  POST /api/calendars/{id}/toggle  show or hide a calendar
  POST /api/sync                   sync now
  GET  /api/ws                     live updates

The tray label is also written to tray.file when set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Address to listen on")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var sink tray.Sink
	if path := viper.GetString("tray.file"); path != "" {
		sink = tray.NewFileSink(expandPath(path), log)
	}

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	application, stop, err := startApp(ctx, sink)
	if err != nil {
		return err
	}
	defer stop()
	defer application.Subscribe(api.Forward(hub))()

	srv := &http.Server{
		Addr:              viper.GetString("listen"),
		Handler:           api.NewRouter(application, hub, version, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("bridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("bridge server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
