// Package config defines the top-level configuration for the calabi bot and
// provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// Config is the root configuration structure. Fields are populated from an
// optional TOML file and then overridden by environment variables.
type Config struct {
	Status   StatusConfig   `toml:"status"`
	Manifold ManifoldConfig `toml:"manifold"`
	Targets  TargetsConfig  `toml:"targets"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
	LogJSON  bool           `toml:"log_json"`
}

// StatusConfig points at the Statuspage feed and tunes its 429 backoff.
type StatusConfig struct {
	URL               string   `toml:"url"`
	Timeout           duration `toml:"timeout"`
	BackoffInitial    duration `toml:"backoff_initial"`
	BackoffMax        duration `toml:"backoff_max"`
	BackoffMultiplier float64  `toml:"backoff_multiplier"`
	BackoffJitter     float64  `toml:"backoff_jitter"`
}

// ManifoldConfig holds the venue endpoint and credentials. The API key is
// taken from APIKey, or decrypted from EncryptedKeyPath with KeyPassword.
type ManifoldConfig struct {
	BaseURL          string   `toml:"base_url"`
	APIKey           string   `toml:"api_key"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	Timeout          duration `toml:"timeout"`
	PageSize         int      `toml:"page_size"`
	MaxPages         int      `toml:"max_pages"`
}

// TargetsConfig controls target discovery.
type TargetsConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	TrustedCreators []string `toml:"trusted_creators"`
	AnyPhrases      []string `toml:"any_phrases"`
	RedPhrases      []string `toml:"red_phrases"`
}

// ScannerConfig controls the betting loop.
type ScannerConfig struct {
	PollInterval               duration          `toml:"poll_interval"`
	ExclusionCooldown          duration          `toml:"exclusion_cooldown"`
	BetAmount                  int               `toml:"bet_amount"`
	BetsPerTarget              int               `toml:"bets_per_target"`
	Outcome                    string            `toml:"outcome"`
	ExcludedDates              []domain.MonthDay `toml:"excluded_dates"`
	MaxConsecutivePollFailures int               `toml:"max_consecutive_poll_failures"`
}

// RedisConfig holds Redis connection parameters for the single-instance
// lock.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockKey    string   `toml:"lock_key"`
	LockTTL    duration `toml:"lock_ttl"`
}

// PostgresConfig holds connection parameters for the bet audit store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the bet
// journal.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration wraps time.Duration so it can be decoded from a TOML string.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "500ms" or "20m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds the read-only status server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with the stock values. These match
// config.example.toml.
func Defaults() Config {
	return Config{
		Status: StatusConfig{
			URL:               "https://www.githubstatus.com/api/v2/status.json",
			Timeout:           duration{10 * time.Second},
			BackoffInitial:    duration{500 * time.Millisecond},
			BackoffMax:        duration{time.Minute},
			BackoffMultiplier: 1.5,
			BackoffJitter:     0.5,
		},
		Manifold: ManifoldConfig{
			BaseURL:  "https://manifold.markets/api",
			Timeout:  duration{30 * time.Second},
			MaxPages: 1,
		},
		Targets: TargetsConfig{
			RefreshInterval: duration{6 * time.Second},
			TrustedCreators: []string{
				"HBlWMFF8XkcatdnIfNt0RPoCrXy1",
				"fwGK5b9peFQbclczNeQdgCtjlYT2",
			},
			AnyPhrases: []string{"Will GitHub have any incident"},
			RedPhrases: []string{"Will GitHub have a red incident"},
		},
		Scanner: ScannerConfig{
			PollInterval:      duration{500 * time.Millisecond},
			ExclusionCooldown: duration{20 * time.Minute},
			BetAmount:         500,
			BetsPerTarget:     2,
			Outcome:           "YES",
			ExcludedDates:     []domain.MonthDay{{Month: time.September, Day: 6}},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   4,
			MaxRetries: 3,
			LockKey:    "calabi:instance",
			LockTTL:    duration{30 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "calabi",
			Prefix:         "bets",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port: 8000,
		},
		Notify: NotifyConfig{
			Events: []string{"bets_placed", "task_failed"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Status
	if err := checkURL(c.Status.URL); err != nil {
		errs = append(errs, "status: url "+err.Error())
	}
	if c.Status.BackoffInitial.Duration <= 0 {
		errs = append(errs, "status: backoff_initial must be > 0")
	}
	if c.Status.BackoffMax.Duration < c.Status.BackoffInitial.Duration {
		errs = append(errs, "status: backoff_max must not be less than backoff_initial")
	}
	if c.Status.BackoffMultiplier < 1 {
		errs = append(errs, "status: backoff_multiplier must be >= 1")
	}
	if c.Status.BackoffJitter < 0 || c.Status.BackoffJitter >= 1 {
		errs = append(errs, "status: backoff_jitter must be in [0, 1)")
	}

	// Manifold
	if err := checkURL(c.Manifold.BaseURL); err != nil {
		errs = append(errs, "manifold: base_url "+err.Error())
	}
	if c.Manifold.APIKey == "" && c.Manifold.EncryptedKeyPath == "" {
		errs = append(errs, "manifold: MANIFOLD_API_KEY (or manifold.encrypted_key_path) must be set")
	}
	if c.Manifold.EncryptedKeyPath != "" && c.Manifold.KeyPassword == "" {
		errs = append(errs, "manifold: key_password is required when encrypted_key_path is set")
	}
	if c.Manifold.PageSize < 0 {
		errs = append(errs, "manifold: page_size must be >= 0")
	}
	if c.Manifold.MaxPages < 1 {
		errs = append(errs, "manifold: max_pages must be >= 1")
	}

	// Targets
	if c.Targets.RefreshInterval.Duration <= 0 {
		errs = append(errs, "targets: refresh_interval must be > 0")
	}
	if len(c.Targets.TrustedCreators) == 0 {
		errs = append(errs, "targets: trusted_creators must not be empty")
	}
	if len(c.Targets.AnyPhrases) == 0 && len(c.Targets.RedPhrases) == 0 {
		errs = append(errs, "targets: at least one of any_phrases or red_phrases must be set")
	}

	// Scanner
	if c.Scanner.PollInterval.Duration <= 0 {
		errs = append(errs, "scanner: poll_interval must be > 0")
	}
	if c.Scanner.ExclusionCooldown.Duration <= 0 {
		errs = append(errs, "scanner: exclusion_cooldown must be > 0")
	}
	if c.Scanner.BetAmount <= 0 {
		errs = append(errs, "scanner: bet_amount must be > 0")
	}
	if c.Scanner.BetsPerTarget < 1 {
		errs = append(errs, "scanner: bets_per_target must be >= 1")
	}
	if _, err := domain.ParseOutcome(c.Scanner.Outcome); err != nil {
		errs = append(errs, fmt.Sprintf("scanner: outcome %q must be YES or NO", c.Scanner.Outcome))
	}
	for _, d := range c.Scanner.ExcludedDates {
		if err := d.Validate(); err != nil {
			errs = append(errs, "scanner: excluded_dates: "+err.Error())
		}
	}
	if c.Scanner.MaxConsecutivePollFailures < 0 {
		errs = append(errs, "scanner: max_consecutive_poll_failures must be >= 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockKey == "" {
			errs = append(errs, "redis: lock_key must not be empty")
		}
		if c.Redis.LockTTL.Duration < time.Second {
			errs = append(errs, "redis: lock_ttl must be at least 1s")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if c.Postgres.DSN == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// BetOutcome returns the configured bet side. It assumes Validate passed.
func (c *Config) BetOutcome() domain.Outcome {
	o, err := domain.ParseOutcome(c.Scanner.Outcome)
	if err != nil {
		return domain.OutcomeYes
	}
	return o
}

func checkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is invalid: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be http or https, got %q", raw)
	}
	return nil
}
