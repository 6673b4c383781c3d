package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// Load reads the TOML configuration file at path (if path is non-empty),
// merges it on top of the built-in defaults, applies environment overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads MANIFOLD_API_KEY, LOG_JSON and the CALABI_*
// variables and overwrites the corresponding Config fields when a variable is
// set (i.e. not empty).
func applyEnvOverrides(cfg *Config) {
	// ── Bare names kept for deployments that predate the config file ──
	setStr(&cfg.Manifold.APIKey, "MANIFOLD_API_KEY")
	setBool(&cfg.LogJSON, "LOG_JSON")

	// ── Status ──
	setStr(&cfg.Status.URL, "CALABI_STATUS_URL")
	setDuration(&cfg.Status.Timeout, "CALABI_STATUS_TIMEOUT")
	setDuration(&cfg.Status.BackoffInitial, "CALABI_STATUS_BACKOFF_INITIAL")
	setDuration(&cfg.Status.BackoffMax, "CALABI_STATUS_BACKOFF_MAX")
	setFloat64(&cfg.Status.BackoffMultiplier, "CALABI_STATUS_BACKOFF_MULTIPLIER")
	setFloat64(&cfg.Status.BackoffJitter, "CALABI_STATUS_BACKOFF_JITTER")

	// ── Manifold ──
	setStr(&cfg.Manifold.BaseURL, "CALABI_MANIFOLD_BASE_URL")
	setStr(&cfg.Manifold.APIKey, "CALABI_MANIFOLD_API_KEY")
	setStr(&cfg.Manifold.EncryptedKeyPath, "CALABI_MANIFOLD_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Manifold.KeyPassword, "CALABI_MANIFOLD_KEY_PASSWORD")
	setDuration(&cfg.Manifold.Timeout, "CALABI_MANIFOLD_TIMEOUT")
	setInt(&cfg.Manifold.PageSize, "CALABI_MANIFOLD_PAGE_SIZE")
	setInt(&cfg.Manifold.MaxPages, "CALABI_MANIFOLD_MAX_PAGES")

	// ── Targets ──
	setDuration(&cfg.Targets.RefreshInterval, "CALABI_TARGETS_REFRESH_INTERVAL")
	setStringSlice(&cfg.Targets.TrustedCreators, "CALABI_TARGETS_TRUSTED_CREATORS")
	setStringSlice(&cfg.Targets.AnyPhrases, "CALABI_TARGETS_ANY_PHRASES")
	setStringSlice(&cfg.Targets.RedPhrases, "CALABI_TARGETS_RED_PHRASES")

	// ── Scanner ──
	setDuration(&cfg.Scanner.PollInterval, "CALABI_SCANNER_POLL_INTERVAL")
	setDuration(&cfg.Scanner.ExclusionCooldown, "CALABI_SCANNER_EXCLUSION_COOLDOWN")
	setInt(&cfg.Scanner.BetAmount, "CALABI_SCANNER_BET_AMOUNT")
	setInt(&cfg.Scanner.BetsPerTarget, "CALABI_SCANNER_BETS_PER_TARGET")
	setStr(&cfg.Scanner.Outcome, "CALABI_SCANNER_OUTCOME")
	setMonthDays(&cfg.Scanner.ExcludedDates, "CALABI_SCANNER_EXCLUDED_DATES")
	setInt(&cfg.Scanner.MaxConsecutivePollFailures, "CALABI_SCANNER_MAX_CONSECUTIVE_POLL_FAILURES")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CALABI_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CALABI_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CALABI_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CALABI_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CALABI_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CALABI_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CALABI_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.LockKey, "CALABI_REDIS_LOCK_KEY")
	setDuration(&cfg.Redis.LockTTL, "CALABI_REDIS_LOCK_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "CALABI_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CALABI_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CALABI_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CALABI_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CALABI_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CALABI_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CALABI_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CALABI_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CALABI_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CALABI_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CALABI_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CALABI_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CALABI_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CALABI_S3_REGION")
	setStr(&cfg.S3.Bucket, "CALABI_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "CALABI_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "CALABI_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CALABI_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CALABI_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CALABI_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CALABI_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CALABI_SERVER_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CALABI_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CALABI_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CALABI_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CALABI_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "CALABI_LOG_LEVEL")
	setBool(&cfg.LogJSON, "CALABI_LOG_JSON")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		if cleaned := splitList(v); len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

// setMonthDays parses a comma separated "MM-DD" list. A set but empty
// variable clears the list; the whole variable is ignored if any entry is
// malformed.
func setMonthDays(dst *[]domain.MonthDay, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	parts := splitList(v)
	days := make([]domain.MonthDay, 0, len(parts))
	for _, p := range parts {
		md, err := domain.ParseMonthDay(p)
		if err != nil {
			return
		}
		days = append(days, md)
	}
	*dst = days
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
