package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"jobmonitor/internal/config"
	"jobmonitor/internal/digest"
	"jobmonitor/internal/fetcher"
	"jobmonitor/internal/filter"
	"jobmonitor/internal/lockfile"
	"jobmonitor/internal/messaging"
	"jobmonitor/internal/models"
	"jobmonitor/internal/pipeline"
	"jobmonitor/internal/scheduler"
	"jobmonitor/internal/store"
	"jobmonitor/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for jobmonitor state data
	DefaultStateDir = "/var/lib/jobmonitor"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "jobmonitor.db"
)

func main() {
	initializeLogger()

	envCfg := loadEnvironmentConfig()
	flags := parseCommandLineFlags(envCfg)

	if err := run(flags); err != nil {
		slog.Error("jobmonitor failed", "error", err)
		os.Exit(1)
	}
	slog.Info("jobmonitor exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL   string
	StateDir      string
	ConfigDir     string
	TelegramToken string
	TelegramChat  int64
	Debug         bool
}

// Flags holds command line flag values
type Flags struct {
	scan      *bool
	report    *bool
	daemon    *bool
	stateDir  *string
	configDir *string
	dbDSN     *string
	token     *string
	chatID    *int64
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("JOBMONITOR_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("JOBMONITOR_STATE_DIR"),
		ConfigDir:     os.Getenv("JOBMONITOR_CONFIG_DIR"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChat:  util.ParseInt64Env("TELEGRAM_CHAT_ID", 0),
	}

	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
		slog.Debug("No JOBMONITOR_STATE_DIR set, using default", "default_state_dir", cfg.StateDir)
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = cfg.StateDir
		slog.Debug("No JOBMONITOR_CONFIG_DIR set, using state directory", "config_dir", cfg.ConfigDir)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", cfg.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"JOBMONITOR_STATE_DIR", cfg.StateDir,
		"JOBMONITOR_CONFIG_DIR", cfg.ConfigDir,
		"TELEGRAM_BOT_TOKEN_SET", cfg.TelegramToken != "",
		"TELEGRAM_CHAT_ID_SET", cfg.TelegramChat != 0)

	return cfg
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(cfg Config) Flags {
	flags := Flags{
		scan:      flag.Bool("scan", false, "run one scan cycle and exit"),
		report:    flag.Bool("report", false, "send the summary report and exit"),
		daemon:    flag.Bool("daemon", false, "run continuously with scheduled scans and reports"),
		stateDir:  flag.String("state-dir", cfg.StateDir, "directory for database and lock file"),
		configDir: flag.String("config-dir", cfg.ConfigDir, "directory with resources.json, keywords.json and config.json"),
		dbDSN:     flag.String("db-dsn", cfg.DatabaseURL, "database DSN (SQLite path or PostgreSQL URL)"),
		token:     flag.String("telegram-token", cfg.TelegramToken, "Telegram bot token"),
		chatID:    flag.Int64("telegram-chat-id", cfg.TelegramChat, "Telegram chat id for digests"),
	}
	flag.Parse()
	return flags
}

func run(flags Flags) error {
	if err := config.WriteExamples(*flags.configDir); err != nil {
		return err
	}
	cfg, err := config.Load(*flags.configDir)
	if err != nil {
		return err
	}
	if len(cfg.Sources) == 0 {
		slog.Warn("no sources configured, scans will find nothing",
			"resources_file", filepath.Join(*flags.configDir, config.ResourcesFile))
	}

	repo, err := openStore(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	messenger, err := messaging.NewTelegramService(
		messaging.WithToken(*flags.token),
		messaging.WithChatID(*flags.chatID),
	)
	if err != nil {
		return err
	}
	defer messenger.Stop()

	coordinator := pipeline.NewCoordinator(pipeline.Deps{
		Fetcher:   fetcher.New(cfg.Settings.FetchTimeout),
		Repo:      repo,
		Messenger: messenger,
		Assembler: digest.NewAssembler(cfg.Settings),
		Keywords:  filter.NewKeywords(cfg.Keywords, cfg.Settings.MatchAllIfNoKeywords),
		Locations: filter.NewLocations(cfg.Settings.AllowedLocations),
		Sources:   cfg.Sources,
		Settings:  cfg.Settings,
	})

	ctx := context.Background()
	switch {
	case *flags.daemon:
		return runDaemon(ctx, coordinator, cfg.Settings, *flags.stateDir)
	case *flags.scan && !*flags.report:
		_, err := coordinator.RunScan(ctx)
		return err
	case *flags.report && !*flags.scan:
		return coordinator.RunReport(ctx)
	default:
		// No mode flag runs a scan followed by a report.
		if _, err := coordinator.RunScan(ctx); err != nil {
			return err
		}
		return coordinator.RunReport(ctx)
	}
}

// openStore selects the storage backend from the DSN shape.
func openStore(dsn string) (store.PostingRepo, error) {
	switch store.DetectDSNType(dsn) {
	case "postgres":
		slog.Info("using PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	default:
		slog.Info("using SQLite store", "path", dsn)
		return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
	}
}

// runDaemon schedules periodic scans plus the daily report and blocks
// until SIGINT or SIGTERM. The flock lock rejects a second daemon on
// the same state directory.
func runDaemon(ctx context.Context, coordinator *pipeline.Coordinator, settings models.Settings, stateDir string) error {
	lock, err := lockfile.Acquire(stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	reportSpec, err := scheduler.ReportSpec(settings.ReportTime)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(loc)
	defer sched.Stop()

	if err := sched.AddJob(scheduler.ScanSpec(settings.ScanIntervalHours), func() {
		if _, err := coordinator.RunScan(ctx); err != nil && !errors.Is(err, models.ErrScanAlreadyRunning) {
			coordinator.NotifyError(ctx, err)
		}
	}); err != nil {
		return err
	}
	if err := sched.AddJob(reportSpec, func() {
		if err := coordinator.RunReport(ctx); err != nil {
			slog.Error("scheduled report failed", "error", err)
		}
	}); err != nil {
		return err
	}

	// First scan runs immediately so a fresh daemon is useful before the
	// first tick.
	if _, err := coordinator.RunScan(ctx); err != nil {
		slog.Error("initial scan failed", "error", err)
		coordinator.NotifyError(ctx, err)
	}

	slog.Info("daemon running",
		"scan_interval_hours", settings.ScanIntervalHours,
		"report_time", settings.ReportTime)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	slog.Info("shutting down", "signal", received.String())
	return nil
}
