package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/meetbar/internal/adapter/google"
	"github.com/theakshaypant/meetbar/internal/adapter/ics"
	"github.com/theakshaypant/meetbar/internal/adapter/outlook"
	"github.com/theakshaypant/meetbar/internal/auth"
	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/enablement"
	"github.com/theakshaypant/meetbar/internal/kv"
	"github.com/theakshaypant/meetbar/internal/logging"
	"github.com/theakshaypant/meetbar/internal/present"
	"github.com/theakshaypant/meetbar/internal/source"
	"github.com/theakshaypant/meetbar/internal/storage"
	"github.com/theakshaypant/meetbar/internal/util"
)

// CalendarAdapter is a provider that also manages its own access grant.
// The Google, Outlook and ICS adapters implement it.
type CalendarAdapter interface {
	core.Provider
	core.Authorizer
}

// version is set at build time with -ldflags "-X .../cmd.version=..."
var version = "dev"

var (
	cfgFile string
	profile string
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "meetbar",
	Short: "Your next meeting, always one glance away",
	Long: `meetbar keeps your upcoming calendar events in view and opens meeting
links a minute before they start.

Run it without arguments to print today's and tomorrow's events, or use
'meetbar ui' for the interactive popover, 'meetbar tray' to feed a status
bar, and 'meetbar serve' for the local bridge used by widgets.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	RunE:              listEvents,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/meetbar/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "config profile to use (e.g., work, personal)")
	rootCmd.PersistentFlags().String("provider", "", "Calendar provider (google, outlook, ics)")
	rootCmd.PersistentFlags().IntP("days", "d", 2, "Number of days to sync, starting today")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console, json)")

	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("days", rootCmd.PersistentFlags().Lookup("days"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	// A missing .env is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MEETBAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("provider", "google")
	viper.SetDefault("credentials_file", filepath.Join(configDir(), "credentials.json"))
	viper.SetDefault("token_file", filepath.Join(configDir(), "token.json"))
	viper.SetDefault("state_file", filepath.Join(configDir(), "state.yaml"))
	viper.SetDefault("cache_db", filepath.Join(configDir(), "cache.db"))
	viper.SetDefault("days", 2)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("listen", "127.0.0.1:7788")
	viper.SetDefault("tray.format", "waybar")
	viper.SetDefault("launcher.enabled", true)
	viper.SetDefault("launcher.interval", "10s")
	viper.SetDefault("sync.interval", "5m")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	applyProfile()
}

func configDir() string {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	return filepath.Join(home, ".config", "meetbar")
}

// profileKeys are the settings a profile may override.
var profileKeys = []string{
	"provider",
	"credentials_file",
	"token_file",
	"client_id",
	"tenant_id",
	"ics_url",
	"state_file",
	"cache_db",
	"days",
	"listen",
	"tray.format",
	"tray.file",
	"launcher.enabled",
	"launcher.interval",
	"sync.interval",
}

// applyProfile merges profile-specific settings over defaults
func applyProfile() {
	activeProfile := profile
	if activeProfile == "" {
		activeProfile = viper.GetString("default_profile")
	}
	if activeProfile == "" {
		return
	}

	profileKey := "profiles." + activeProfile
	if !viper.IsSet(profileKey) {
		fmt.Fprintf(os.Stderr, "Warning: profile '%s' not found in config\n", activeProfile)
		return
	}

	fmt.Fprintf(os.Stderr, "Using profile: %s\n", activeProfile)

	// Explicit CLI flags win over the profile
	for _, key := range profileKeys {
		profileSettingKey := profileKey + "." + key
		if viper.IsSet(profileSettingKey) && !isFlagExplicitlySet(key) {
			viper.Set(key, viper.Get(profileSettingKey))
		}
	}
}

func isFlagExplicitlySet(viperKey string) bool {
	flagName := strings.ReplaceAll(viperKey, "_", "-")
	f := rootCmd.PersistentFlags().Lookup(flagName)

	return f != nil && f.Changed
}

func initLogging(cmd *cobra.Command, args []string) error {
	log = logging.New(logging.Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
	})
	return nil
}

// newAdapter builds the configured provider.
func newAdapter() (CalendarAdapter, error) {
	provider := viper.GetString("provider")
	flow := auth.NewLocalServer(util.Browser, os.Stderr, log)

	switch provider {
	case "google":
		return google.New(
			"google",
			"Google Calendar",
			expandPath(viper.GetString("credentials_file")),
			expandPath(viper.GetString("token_file")),
			log,
			google.WithFlow(flow),
			google.WithOpener(util.Browser),
		), nil
	case "outlook":
		return outlook.New(
			"outlook",
			"Outlook Calendar",
			viper.GetString("client_id"),
			viper.GetString("tenant_id"),
			expandPath(viper.GetString("token_file")),
			log,
			outlook.WithFlow(flow),
			outlook.WithOpener(util.Browser),
		), nil
	case "ics":
		return ics.New("ics", "iCalendar", expandICSSource(viper.GetString("ics_url")), log), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: google, outlook, ics)", provider)
	}
}

// openStorage opens the event cache. ":memory:" keeps it in memory.
func openStorage(ctx context.Context) (core.Storage, error) {
	path := viper.GetString("cache_db")
	if path == ":memory:" {
		return storage.NewMemory(time.Local), nil
	}
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return storage.OpenSQLite(ctx, path, time.Local)
}

func openState() *kv.File {
	return kv.NewFile(expandPath(viper.GetString("state_file")), kv.WithLogger(log))
}

// requireGranted fails with a hint when the provider has no usable grant.
func requireGranted(ctx context.Context, a CalendarAdapter) error {
	status, err := a.CheckPermission(ctx)
	if err != nil {
		return fmt.Errorf("check calendar access: %w", err)
	}
	switch status {
	case core.PermissionGranted:
		return nil
	case core.PermissionRestricted:
		return fmt.Errorf("%s is not configured\n\nSet credentials_file, client_id or ics_url in %s", a.Name(), filepath.Join(configDir(), "config.yaml"))
	default:
		return fmt.Errorf("calendar access is %s\n\nRun 'meetbar auth' to grant access", status)
	}
}

// session is a configured adapter with its cache, for one-shot commands.
type session struct {
	adapter CalendarAdapter
	store   core.Storage
	src     *source.Source
}

// openSession builds the adapter and cache. Access must already be granted.
func openSession(ctx context.Context) (*session, error) {
	a, err := newAdapter()
	if err != nil {
		return nil, err
	}
	if err := requireGranted(ctx, a); err != nil {
		return nil, err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return nil, err
	}

	return &session{
		adapter: a,
		store:   store,
		src:     source.New(a, store, log, source.WithDays(viper.GetInt("days"))),
	}, nil
}

func (s *session) Close() error { return s.store.Close() }

// sync runs one forced sync and falls back to the cache on failure.
func (s *session) sync(ctx context.Context) ([]core.Event, error) {
	events, err := s.src.ForceSync(ctx)
	if err == nil {
		return events, nil
	}
	log.Warn().Err(err).Msg("sync failed, showing cached events")
	events, err = s.src.ReadCachedEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached events: %w", err)
	}
	return events, nil
}

// visibility loads the enabled-calendar set for the current calendar list.
func visibility(ctx context.Context, src *source.Source) present.Visibility {
	store := enablement.NewStore(openState(), log)
	cals, err := src.ListCalendars(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not list calendars")
		return store
	}
	store.Load(cals)
	return store
}

func listEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	events, err := sess.sync(ctx)
	if err != nil {
		return err
	}

	view := present.Build(events, visibility(ctx, sess.src), time.Now(), time.Local)
	if view.Empty() {
		fmt.Println("No upcoming events found.")
		return nil
	}

	total := 0
	for _, g := range view.Groups {
		fmt.Printf("📅 %s\n", g.Label)
		fmt.Println("─────────────────────────────────────────────────")
		for _, item := range g.Items {
			printItem(item)
			total++
		}
		fmt.Println()
	}
	fmt.Printf("Total: %d events\n", total)
	return nil
}

func printItem(item present.Item) {
	line := fmt.Sprintf("  %-12s %s", item.TimeRange, item.Title)
	if item.IsNext {
		line += "  ⏳ " + present.Countdown(item.MinutesUntil)
	}
	fmt.Println(line)
	if item.Meeting != nil {
		fmt.Printf("  %-12s 📹 %s: %s\n", "", item.Meeting.Service, util.MakeHyperlink(item.Meeting.URL, item.Meeting.URL))
	}
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandICSSource expands ~ for file sources and leaves URLs alone.
func expandICSSource(s string) string {
	if strings.Contains(s, "://") {
		return s
	}
	return expandPath(s)
}
