// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
)

// Defaults for the run pacing and submission wait.
const (
	DefaultPacingInterval = 3 * time.Second
	DefaultSubmitTimeout  = 30 * time.Second
	DefaultMeroShareURL   = "https://webbackend.cdsc.com.np/api/meroShare"
)

// Config holds the application configuration.
type Config struct {
	// Accounts and shared parameters for a run
	Accounts []models.Account
	Shared   models.SharedParameters

	Run       RunConfig
	MeroShare MeroShareConfig
	Storage   StorageConfig
	Server    ServerConfig
	Mail      MailConfig

	// RunSchedule is a cron spec used by serve mode. Empty disables scheduling.
	RunSchedule string

	LogLevel         string
	EncryptionSecret string // Used for decrypting "enc:" account secrets
}

// RunConfig holds orchestration timings.
type RunConfig struct {
	PacingInterval time.Duration
	SubmitTimeout  time.Duration
}

// MeroShareConfig holds counterparty API settings.
type MeroShareConfig struct {
	BaseURL           string
	RequestsPerSecond float64
}

// StorageConfig holds report persistence settings.
type StorageConfig struct {
	ReportDir string
	DBPath    string
	// Retention is how long run history is kept. Zero keeps everything.
	Retention time.Duration
}

// ServerConfig holds reporting API settings.
type ServerConfig struct {
	Host           string
	Port           string
	APIKey         string
	AllowedOrigins []string
}

// Address returns the full address to bind the server to.
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// MailConfig holds Mailgun settings for run summaries.
type MailConfig struct {
	Domain    string
	APIKey    string
	Sender    string
	Recipient string
}

// Enabled reports whether run summaries should be emailed.
func (m MailConfig) Enabled() bool {
	return m.Domain != "" && m.APIKey != "" && m.Recipient != ""
}

// Load reads the .env file (if any) and the environment, including the
// account list. Any problem is returned as a configuration error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Getenv)
}

// LoadSettings reads everything except the account list.
func LoadSettings() (*Config, error) {
	_ = godotenv.Load()
	return loadSettings(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg, err := loadSettings(getenv)
	if err != nil {
		return nil, err
	}

	shared, err := parseShared(getenv)
	if err != nil {
		return nil, err
	}
	cfg.Shared = shared

	records, err := readMembers(getenv)
	if err != nil {
		return nil, err
	}
	accounts, err := buildAccounts(records, cfg.EncryptionSecret)
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	return cfg, nil
}

func loadSettings(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string { return getEnv(getenv, key, def) }

	pacing, err := parseDuration(env("PACING_INTERVAL", ""), DefaultPacingInterval)
	if err != nil {
		return nil, apperrors.ConfigurationField("PACING_INTERVAL", err.Error())
	}
	timeout, err := parseDuration(env("SUBMIT_TIMEOUT", ""), DefaultSubmitTimeout)
	if err != nil {
		return nil, apperrors.ConfigurationField("SUBMIT_TIMEOUT", err.Error())
	}
	if timeout <= 0 {
		return nil, apperrors.ConfigurationField("SUBMIT_TIMEOUT", "must be positive")
	}
	retention, err := parseDuration(env("HISTORY_RETENTION", ""), 0)
	if err != nil {
		return nil, apperrors.ConfigurationField("HISTORY_RETENTION", err.Error())
	}
	rps, err := strconv.ParseFloat(env("MEROSHARE_RPS", "2"), 64)
	if err != nil || rps <= 0 {
		return nil, apperrors.ConfigurationField("MEROSHARE_RPS", "must be a positive number")
	}

	return &Config{
		Run: RunConfig{
			PacingInterval: pacing,
			SubmitTimeout:  timeout,
		},
		MeroShare: MeroShareConfig{
			BaseURL:           strings.TrimRight(env("MEROSHARE_API_URL", DefaultMeroShareURL), "/"),
			RequestsPerSecond: rps,
		},
		Storage: StorageConfig{
			ReportDir: env("REPORT_DIR", "results"),
			DBPath:    env("DB_PATH", "data/applier.db"),
			Retention: retention,
		},
		Server: ServerConfig{
			Host:           env("HOST", "localhost"),
			Port:           env("PORT", "8080"),
			APIKey:         env("API_KEY", ""),
			AllowedOrigins: splitList(env("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Mail: MailConfig{
			Domain:    env("MAILGUN_DOMAIN", ""),
			APIKey:    env("MAILGUN_API_KEY", ""),
			Sender:    env("MAILGUN_SENDER", "IPO Applier <noreply@localhost>"),
			Recipient: env("NOTIFY_EMAIL", ""),
		},
		RunSchedule:      env("RUN_SCHEDULE", ""),
		LogLevel:         env("LOG_LEVEL", "info"),
		EncryptionSecret: env("ENCRYPTION_SECRET", ""),
	}, nil
}

// parseShared reads KITTA and MAX_IPO_PRICE.
func parseShared(getenv func(string) string) (models.SharedParameters, error) {
	kittaStr := strings.TrimSpace(getenv("KITTA"))
	if kittaStr == "" {
		return models.SharedParameters{}, apperrors.ConfigurationField("KITTA", "is required")
	}
	kitta, err := strconv.Atoi(kittaStr)
	if err != nil || kitta <= 0 {
		return models.SharedParameters{}, apperrors.ConfigurationField("KITTA", "must be a positive integer")
	}

	maxPrice := decimal.Zero
	if s := strings.TrimSpace(getenv("MAX_IPO_PRICE")); s != "" {
		maxPrice, err = decimal.NewFromString(s)
		if err != nil || maxPrice.IsNegative() {
			return models.SharedParameters{}, apperrors.ConfigurationField("MAX_IPO_PRICE", "must be a non-negative number")
		}
	}

	return models.SharedParameters{Kitta: kitta, MaxPrice: maxPrice}, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
