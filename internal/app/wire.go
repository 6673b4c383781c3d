package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/calabi/internal/blob/s3"
	"github.com/alanyoungcy/calabi/internal/cache/redis"
	"github.com/alanyoungcy/calabi/internal/config"
	"github.com/alanyoungcy/calabi/internal/crypto"
	"github.com/alanyoungcy/calabi/internal/domain"
	"github.com/alanyoungcy/calabi/internal/notify"
	"github.com/alanyoungcy/calabi/internal/platform/manifold"
	"github.com/alanyoungcy/calabi/internal/platform/statuspage"
	"github.com/alanyoungcy/calabi/internal/server/handler"
	"github.com/alanyoungcy/calabi/internal/store/postgres"
)

// AuditLogger appends process lifecycle events to a durable log.
type AuditLogger interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}

// Dependencies bundles every external client the bot talks to. Optional
// backends are nil when disabled in config.
type Dependencies struct {
	Status   *statuspage.Client
	Manifold *manifold.Client

	// Recorders receive every successfully placed BetBatch.
	Recorders []domain.BetRecorder
	Audit     AuditLogger
	Locks     *redis.LockManager
	Notifier  *notify.Notifier

	// HealthChecks probe each enabled backend for GET /api/health.
	HealthChecks map[string]handler.CheckFunc
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{HealthChecks: make(map[string]handler.CheckFunc)}

	// --- Venue credentials ---
	apiKey, err := crypto.LoadKey(crypto.KeyConfig{
		RawKey:           cfg.Manifold.APIKey,
		EncryptedKeyPath: cfg.Manifold.EncryptedKeyPath,
		KeyPassword:      cfg.Manifold.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: manifold api key: %w", err)
	}

	// --- HTTP clients ---
	deps.Status = statuspage.NewClient(cfg.Status.URL,
		statuspage.WithTimeout(cfg.Status.Timeout.Duration),
		statuspage.WithLogger(logger),
		statuspage.WithBackoff(statuspage.Backoff{
			Initial:    cfg.Status.BackoffInitial.Duration,
			Max:        cfg.Status.BackoffMax.Duration,
			Multiplier: cfg.Status.BackoffMultiplier,
			Jitter:     cfg.Status.BackoffJitter,
		}),
	)
	deps.Manifold = manifold.NewClient(cfg.Manifold.BaseURL, apiKey,
		manifold.WithTimeout(cfg.Manifold.Timeout.Duration),
		manifold.WithLogger(logger),
		manifold.WithPaging(cfg.Manifold.PageSize, cfg.Manifold.MaxPages),
	)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Recorders = append(deps.Recorders, postgres.NewBetStore(pool))
		deps.Audit = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Locks = redis.NewLockManager(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
	}

	// --- S3 bet journal ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Recorders = append(deps.Recorders, s3blob.NewJournal(s3blob.NewWriter(s3Client), cfg.S3.Prefix))
		deps.HealthChecks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			"",
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	if deps.Notifier.Enabled() && deps.Notifier.Allows(notify.EventBetsPlaced) {
		deps.Recorders = append(deps.Recorders, notify.NewBetAlerter(deps.Notifier))
	}

	return deps, cleanup, nil
}
