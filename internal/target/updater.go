package target

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// DefaultRefreshInterval is how often the venue is re-listed.
const DefaultRefreshInterval = 6 * time.Second

// MarketLister retrieves the current venue listing.
type MarketLister interface {
	ListMarkets(ctx context.Context) ([]domain.Market, error)
}

// Updater keeps a Registry in sync with the venue listing.
type Updater struct {
	lister     MarketLister
	registry   *Registry
	classifier *Classifier
	interval   time.Duration
	logger     *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithInterval overrides DefaultRefreshInterval.
func WithInterval(d time.Duration) UpdaterOption {
	return func(u *Updater) {
		if d > 0 {
			u.interval = d
		}
	}
}

// WithClock sets the time source used to compute today's date.
func WithClock(now func() time.Time) UpdaterOption {
	return func(u *Updater) {
		u.now = now
	}
}

// WithSleeper replaces the context-aware sleep between cycles.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) UpdaterOption {
	return func(u *Updater) {
		u.sleep = sleep
	}
}

// NewUpdater creates a new Updater.
func NewUpdater(lister MarketLister, registry *Registry, classifier *Classifier, logger *slog.Logger, opts ...UpdaterOption) *Updater {
	u := &Updater{
		lister:     lister,
		registry:   registry,
		classifier: classifier,
		interval:   DefaultRefreshInterval,
		logger:     logger.With(slog.String("component", "target_updater")),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RunOnce performs a single refresh: list the venue, prune expired targets,
// then insert every new non-past target. It returns the number of targets
// added.
func (u *Updater) RunOnce(ctx context.Context) (int, error) {
	markets, err := u.lister.ListMarkets(ctx)
	if err != nil {
		return 0, fmt.Errorf("target: list markets: %w", err)
	}

	today := domain.MonthDayOf(u.now())

	if pruned := u.registry.Prune(today); pruned > 0 {
		u.logger.InfoContext(ctx, "pruned expired targets",
			slog.Int("count", pruned),
			slog.String("today", today.String()),
		)
	}

	added := 0
	for _, m := range markets {
		t, ok, err := u.classifier.Classify(m)
		if err != nil {
			return added, fmt.Errorf("target: classify: %w", err)
		}
		if !ok {
			continue
		}

		if t.IsPast(today) {
			u.logger.DebugContext(ctx, "found past target, skipping",
				slog.String("contract_id", t.ContractID),
				slog.String("date", t.Date().String()),
			)
			continue
		}

		if !u.registry.Add(t) {
			continue
		}
		added++
		u.logger.InfoContext(ctx, "found new target",
			slog.String("contract_id", t.ContractID),
			slog.String("date", t.Date().String()),
			slog.String("incident_type", t.IncidentType.String()),
		)
	}

	u.logger.DebugContext(ctx, "targets refreshed",
		slog.Int("markets", len(markets)),
		slog.Int("added", added),
		slog.Int("live", u.registry.Len()),
	)
	return added, nil
}

// Run refreshes the registry every interval until a refresh fails or ctx is
// cancelled. It never returns nil.
func (u *Updater) Run(ctx context.Context) error {
	u.logger.InfoContext(ctx, "target updater started", slog.Duration("interval", u.interval))

	for {
		if _, err := u.RunOnce(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		if err := u.sleep(ctx, u.interval); err != nil {
			u.logger.InfoContext(ctx, "target updater stopped")
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
