package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"vaxsync/internal/inventory/ledger"

	"github.com/joho/godotenv"
)

const (
	defaultAppHost        = ":8080"
	defaultRequestTimeout = 15 * time.Second
	defaultMigrationsDir  = "./migrations"
	defaultSheetsRange    = "Inventory!A1"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

type SheetsConfig struct {
	CredentialsJSON string
	SpreadsheetID   string
	Range           string
}

// Enabled reports whether both credentials and a target spreadsheet are set.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsJSON != "" && s.SpreadsheetID != ""
}

type Config struct {
	DatabaseURL        string
	AppHost            string
	JWTSecret          string
	LogLevel           string
	RequestTimeout     time.Duration
	LedgerMaxAttempts  int
	LedgerRetryBackoff time.Duration
	MigrationsDir      string
	Sheets             SheetsConfig
}

// LoadDotEnv loads .env into the process environment. Variables already set
// are kept. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AppHost:            getEnv("APP_HOST", defaultAppHost),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LogLevel:           getEnv("LOG_LEVEL", "debug"),
		RequestTimeout:     defaultRequestTimeout,
		LedgerMaxAttempts:  ledger.DefaultMaxAttempts,
		LedgerRetryBackoff: ledger.DefaultRetryBackoff,
		MigrationsDir:      getEnv("MIGRATIONS_DIR", defaultMigrationsDir),
		Sheets: SheetsConfig{
			CredentialsJSON: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_JSON"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
			Range:           getEnv("GOOGLE_SHEETS_RANGE", defaultSheetsRange),
		},
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.LedgerRetryBackoff, err = durationEnv("LEDGER_RETRY_BACKOFF", cfg.LedgerRetryBackoff); err != nil {
		return nil, err
	}
	if cfg.LedgerMaxAttempts, err = intEnv("LEDGER_MAX_ATTEMPTS", cfg.LedgerMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.LedgerMaxAttempts < 1 {
		return nil, fmt.Errorf("LEDGER_MAX_ATTEMPTS must be at least 1, got %d", cfg.LedgerMaxAttempts)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}

	return cfg, nil
}

// ValidateServe checks the settings only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}
