package cmd

import (
	"context"
	"time"

	"github.com/spf13/viper"

	"github.com/theakshaypant/meetbar/internal/app"
	"github.com/theakshaypant/meetbar/internal/schedule"
	"github.com/theakshaypant/meetbar/internal/tray"
	"github.com/theakshaypant/meetbar/internal/util"
)

// startApp builds the long-running application and starts its timers.
// The returned stop function tears everything down.
func startApp(ctx context.Context, sink tray.Sink) (*app.App, func(), error) {
	a, err := newAdapter()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	cron := schedule.NewCron(log)
	application := app.New(app.Deps{
		Provider:   a,
		Authorizer: a,
		Store:      store,
		KV:         openState(),
		Scheduler:  cron,
		Opener:     util.Browser,
		TraySink:   sink,
		Log:        log,
	}, app.Options{
		Location:         time.Local,
		Days:             viper.GetInt("days"),
		LauncherEnabled:  viper.GetBool("launcher.enabled"),
		LauncherInterval: viper.GetDuration("launcher.interval"),
		SyncInterval:     viper.GetDuration("sync.interval"),
	})

	cron.Start()
	application.Start(ctx)

	stop := func() {
		application.Stop()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cron.Stop(stopCtx)
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close cache")
		}
	}
	return application, stop, nil
}
