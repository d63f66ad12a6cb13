package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BTreeMap/FunnelPipe/internal/api"
	"github.com/BTreeMap/FunnelPipe/internal/calendar"
	"github.com/BTreeMap/FunnelPipe/internal/funcs"
	"github.com/BTreeMap/FunnelPipe/internal/notify"
	"github.com/BTreeMap/FunnelPipe/internal/sheets"
	"github.com/BTreeMap/FunnelPipe/internal/store"
	"github.com/BTreeMap/FunnelPipe/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FunnelPipe state data
	DefaultStateDir = "/var/lib/funnelpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "funnelpipe.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	cal, sh, err := buildGoogleProviders(ctx, flags)
	if err != nil {
		slog.Error("Failed to initialize Google providers", "error", err)
		os.Exit(1)
	}

	notifier, closeNotifier, err := buildNotifier(ctx, flags)
	if err != nil {
		slog.Error("Failed to connect realtime notifier", "error", err)
		os.Exit(1)
	}
	defer closeNotifier()

	catalog := funcs.NewCatalog(st)
	dispatcher := funcs.NewDispatcher(st, cal, sh, notifier)
	server := api.NewServer(st, catalog, dispatcher, buildAPIOptions(flags)...)

	slog.Info("Bootstrapping FunnelPipe with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr, "redis_set", *flags.redisAddr != "",
		"google_credentials_set", *flags.googleCredentials != "")
	if err := server.Run(); err != nil {
		slog.Error("FunnelPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FunnelPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL       string
	StateDir          string
	APIAddr           string
	RedisAddr         string
	GoogleCredentials string
}

// Flags holds command line flag values
type Flags struct {
	stateDir          *string
	dbDSN             *string
	apiAddr           *string
	redisAddr         *string
	googleCredentials *string
}

// initializeLogger sets up structured logging. Debug level is on by default
// and can be disabled with FUNNELPIPE_DEBUG=false.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("FUNNELPIPE_DEBUG", true) {
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

	config := Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		StateDir:          os.Getenv("FUNNELPIPE_STATE_DIR"),
		APIAddr:           os.Getenv("API_ADDR"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		GoogleCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FUNNELPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FUNNELPIPE_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"GOOGLE_APPLICATION_CREDENTIALS_SET", config.GoogleCredentials != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:          flag.String("state-dir", config.StateDir, "state directory for FunnelPipe data (overrides $FUNNELPIPE_STATE_DIR)"),
		dbDSN:             flag.String("db-dsn", config.DatabaseURL, "database DSN, PostgreSQL URL or SQLite path (overrides $DATABASE_URL)"),
		apiAddr:           flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		redisAddr:         flag.String("redis-addr", config.RedisAddr, "redis address for realtime events (overrides $REDIS_ADDR)"),
		googleCredentials: flag.String("google-credentials", config.GoogleCredentials, "path to Google service account credentials (overrides $GOOGLE_APPLICATION_CREDENTIALS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"redisAddr_set", *flags.redisAddr != "",
		"googleCredentials_set", *flags.googleCredentials != "")

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" && *flags.dbDSN != ":memory:" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// openStore selects the storage backend from the DSN shape.
func openStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildGoogleProviders constructs the calendar and sheets adapters. Both stay
// nil when no credentials are configured; calendar and sheet functions then
// fail at execution time with a provider error instead of at startup.
func buildGoogleProviders(ctx context.Context, flags Flags) (calendar.Provider, sheets.Provider, error) {
	if *flags.googleCredentials == "" {
		slog.Warn("No Google credentials configured; calendar and sheet functions are disabled")
		return nil, nil, nil
	}
	cal, err := calendar.NewGoogleProvider(ctx, calendar.WithCredentialsFile(*flags.googleCredentials))
	if err != nil {
		return nil, nil, err
	}
	sh, err := sheets.NewGoogleProvider(ctx, sheets.WithCredentialsFile(*flags.googleCredentials))
	if err != nil {
		return nil, nil, err
	}
	return cal, sh, nil
}

// buildNotifier connects the redis-backed notifier, or falls back to a no-op
// when no redis address is configured.
func buildNotifier(ctx context.Context, flags Flags) (notify.Notifier, func(), error) {
	if *flags.redisAddr == "" {
		slog.Debug("No redis address configured, realtime events disabled")
		return notify.NopNotifier{}, func() {}, nil
	}
	n, err := notify.NewRedisNotifier(ctx, notify.RedisConfig{Addr: *flags.redisAddr})
	if err != nil {
		return nil, nil, err
	}
	return n, func() {
		if err := n.Close(); err != nil {
			slog.Warn("Failed to close redis notifier", "error", err)
		}
	}, nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
