// Package app wires the calabi bot together and owns its lifecycle: the
// target updater and the scanner run side by side, optionally joined by the
// status server and the instance-lock keeper, and the first of them to stop
// stops the process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/calabi/internal/config"
	"github.com/alanyoungcy/calabi/internal/domain"
	"github.com/alanyoungcy/calabi/internal/notify"
	"github.com/alanyoungcy/calabi/internal/scanner"
	"github.com/alanyoungcy/calabi/internal/server"
	"github.com/alanyoungcy/calabi/internal/server/handler"
	"github.com/alanyoungcy/calabi/internal/target"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run wires all dependencies, starts every task and blocks until the first
// one returns. Its result is the process result: nil or context.Canceled for
// a clean shutdown, anything else is fatal.
func (a *App) Run(ctx context.Context) error {
	log := a.logger.With(slog.String("component", "app"))
	log.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.Bool("postgres", a.cfg.Postgres.Enabled),
		slog.Bool("s3", a.cfg.S3.Enabled),
		slog.Bool("server", a.cfg.Server.Enabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	tasks, err := a.buildTasks(ctx, deps)
	if err != nil {
		return err
	}

	a.audit(ctx, deps, "started", map[string]any{"tasks": taskNames(tasks)})
	runErr := race(ctx, log, tasks...)
	a.finish(deps, runErr)
	return runErr
}

// buildTasks assembles the updater, the scanner and the optional server and
// lock keeper around one shared registry.
func (a *App) buildTasks(ctx context.Context, deps *Dependencies) ([]task, error) {
	registry := target.NewRegistry()

	classifier := target.NewClassifier(target.Rules{
		TrustedCreators: a.cfg.Targets.TrustedCreators,
		AnyPhrases:      a.cfg.Targets.AnyPhrases,
		RedPhrases:      a.cfg.Targets.RedPhrases,
	})
	updater := target.NewUpdater(deps.Manifold, registry, classifier, a.logger,
		target.WithInterval(a.cfg.Targets.RefreshInterval.Duration),
	)

	scan := scanner.New(deps.Status, deps.Manifold, registry, scannerConfig(a.cfg), a.logger,
		scanner.WithRecorders(deps.Recorders...),
	)

	tasks := []task{
		{name: "target_updater", run: updater.Run},
		{name: "scanner", run: scan.Run},
	}

	if a.cfg.Server.Enabled {
		health := handler.NewHealthHandler(a.logger)
		for name, check := range deps.HealthChecks {
			health.WithCheck(name, check)
		}
		srv := server.NewServer(server.Config{Port: a.cfg.Server.Port}, server.Handlers{
			Health:  health,
			Status:  handler.NewStatusHandler(time.Now(), registry, scan.Exclusions(), scan.Calendar().Dates()),
			Targets: handler.NewTargetHandler(registry, scan.Exclusions(), a.logger),
		}, a.logger)
		tasks = append(tasks, task{name: "server", run: srv.Run})
	}

	if deps.Locks != nil {
		lease, err := deps.Locks.AcquireLease(ctx, a.cfg.Redis.LockKey, a.cfg.Redis.LockTTL.Duration)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return nil, fmt.Errorf("app: another instance is running (lock %q): %w", a.cfg.Redis.LockKey, err)
			}
			return nil, fmt.Errorf("app: acquire instance lock: %w", err)
		}
		a.closers = append(a.closers, lease.Release)
		keeperLog := a.logger.With(slog.String("component", "instance_lock"))
		tasks = append(tasks, task{
			name: "instance_lock",
			run: func(ctx context.Context) error {
				return lease.Hold(ctx, keeperLog)
			},
		})
	}

	return tasks, nil
}

// finish reports how the run ended to the audit log and, for failures, to
// the notifier. Both use a fresh context because ctx is usually cancelled by
// now.
func (a *App) finish(deps *Dependencies, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil || errors.Is(runErr, context.Canceled) {
		a.audit(ctx, deps, "stopped", nil)
		return
	}

	detail := map[string]any{"error": runErr.Error()}
	var te *taskError
	if errors.As(runErr, &te) {
		detail["task"] = te.Task
	}
	a.audit(ctx, deps, "task_failed", detail)

	if err := deps.Notifier.Notify(ctx, notify.EventTaskFailed, "calabi stopped", runErr.Error()); err != nil {
		a.logger.WarnContext(ctx, "failed to send task failure notification", slog.String("error", err.Error()))
	}
}

func (a *App) audit(ctx context.Context, deps *Dependencies, event string, detail map[string]any) {
	if deps.Audit == nil {
		return
	}
	if err := deps.Audit.Log(ctx, event, detail); err != nil {
		a.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func scannerConfig(cfg *config.Config) scanner.Config {
	return scanner.Config{
		PollInterval:               cfg.Scanner.PollInterval.Duration,
		ExclusionCooldown:          cfg.Scanner.ExclusionCooldown.Duration,
		BetAmount:                  cfg.Scanner.BetAmount,
		BetsPerTarget:              cfg.Scanner.BetsPerTarget,
		Outcome:                    cfg.BetOutcome(),
		ExcludedDates:              cfg.Scanner.ExcludedDates,
		MaxConsecutivePollFailures: cfg.Scanner.MaxConsecutivePollFailures,
	}
}

func taskNames(tasks []task) []string {
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		names = append(names, t.name)
	}
	return names
}
