// Package scanner is the betting loop: it polls the incident status feed,
// matches live targets in the registry and fans out wagers on every match
// exactly once per process lifetime.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// StatusSource reports the current incident status.
type StatusSource interface {
	GetIncidentStatus(ctx context.Context) (domain.StatusEnvelope, error)
}

// Bettor places a single wager.
type Bettor interface {
	Bet(ctx context.Context, contractID string, outcome domain.Outcome, amount int) error
}

// TargetSource returns the live targets for a date and incident class.
type TargetSource interface {
	Matching(today domain.MonthDay, incidentType domain.IncidentType) []domain.TargetIncident
}

// Config holds the scanner's tunables.
type Config struct {
	PollInterval      time.Duration
	ExclusionCooldown time.Duration
	BetAmount         int
	BetsPerTarget     int
	Outcome           domain.Outcome
	ExcludedDates     []domain.MonthDay
	// MaxConsecutivePollFailures is how many failed polls in a row are
	// tolerated. Zero makes the first failure fatal.
	MaxConsecutivePollFailures int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		PollInterval:      500 * time.Millisecond,
		ExclusionCooldown: 20 * time.Minute,
		BetAmount:         500,
		BetsPerTarget:     2,
		Outcome:           domain.OutcomeYes,
		ExcludedDates:     []domain.MonthDay{{Month: time.September, Day: 6}},
	}
}

// Scanner runs the poll, match and bet cycle.
type Scanner struct {
	status    StatusSource
	bettor    Bettor
	targets   TargetSource
	recorders []domain.BetRecorder
	cfg       Config
	calendar  Calendar
	excluded  *ExclusionSet
	logger    *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	pollFailures int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRecorders registers sinks that receive every successful BetBatch.
func WithRecorders(recorders ...domain.BetRecorder) Option {
	return func(s *Scanner) {
		s.recorders = append(s.recorders, recorders...)
	}
}

// WithClock sets the time source used for today's date.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// WithSleeper replaces the context-aware sleep between cycles.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scanner) {
		s.sleep = sleep
	}
}

// WithExclusions shares an existing ExclusionSet, for example with the
// status server.
func WithExclusions(set *ExclusionSet) Option {
	return func(s *Scanner) {
		s.excluded = set
	}
}

// New creates a Scanner.
func New(status StatusSource, bettor Bettor, targets TargetSource, cfg Config, logger *slog.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		status:   status,
		bettor:   bettor,
		targets:  targets,
		cfg:      cfg,
		calendar: NewCalendar(cfg.ExcludedDates...),
		excluded: NewExclusionSet(),
		logger:   logger.With(slog.String("component", "scanner")),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exclusions returns the set of contracts already bet on.
func (s *Scanner) Exclusions() *ExclusionSet {
	return s.excluded
}

// Calendar returns the dates on which the scanner stands down.
func (s *Scanner) Calendar() Calendar {
	return s.calendar
}

// Run executes cycles until one fails or ctx is cancelled. It never returns
// nil.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scanner started",
		slog.Duration("poll_interval", s.cfg.PollInterval),
		slog.Int("bet_amount", s.cfg.BetAmount),
		slog.Int("bets_per_target", s.cfg.BetsPerTarget),
	)

	for {
		wait, err := s.Cycle(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if err := s.sleep(ctx, wait); err != nil {
			s.logger.InfoContext(ctx, "scanner stopped")
			return err
		}
	}
}

// Cycle performs one iteration and returns how long to sleep before the
// next one.
func (s *Scanner) Cycle(ctx context.Context) (time.Duration, error) {
	today := domain.MonthDayOf(s.now())

	if s.calendar.Contains(today) {
		s.logger.InfoContext(ctx, "date is on the exclusion list, standing down",
			slog.String("date", today.String()),
			slog.Duration("cooldown", s.cfg.ExclusionCooldown),
		)
		return s.cfg.ExclusionCooldown, nil
	}

	status, err := s.status.GetIncidentStatus(ctx)
	if err != nil {
		return s.pollFailed(ctx, err)
	}
	s.pollFailures = 0

	if status.IsOK() {
		s.logger.DebugContext(ctx, "no incident", slog.String("description", status.Description()))
		return s.cfg.PollInterval, nil
	}

	incidentType, err := domain.ParseIncidentType(status.Indicator())
	if err != nil {
		return 0, fmt.Errorf("scanner: classify indicator: %w", err)
	}

	s.logger.InfoContext(ctx, "incident detected",
		slog.String("indicator", status.Indicator()),
		slog.String("incident_type", incidentType.String()),
		slog.String("description", status.Description()),
	)
	if incidentType == domain.IncidentRed {
		s.logger.InfoContext(ctx, "red incident")
	}

	var pending []domain.TargetIncident
	for _, t := range s.targets.Matching(today, incidentType) {
		if s.excluded.Contains(t.ContractID) {
			continue
		}
		pending = append(pending, t)
	}

	if len(pending) == 0 {
		s.logger.DebugContext(ctx, "no unbet targets match incident")
		return s.cfg.PollInterval, nil
	}

	bets := s.planBets(pending)
	for _, t := range pending {
		s.logger.InfoContext(ctx, "target matches incident, queuing bet",
			slog.String("contract_id", t.ContractID),
			slog.String("date", t.Date().String()),
			slog.String("incident_type", t.IncidentType.String()),
		)
	}

	if err := s.dispatch(ctx, bets); err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(pending))
	for _, t := range pending {
		ids = append(ids, t.ContractID)
	}
	s.excluded.Add(ids...)

	s.logger.InfoContext(ctx, "bets placed",
		slog.Int("targets", len(pending)),
		slog.Int("bets", len(bets)),
		slog.Int("excluded_total", s.excluded.Len()),
	)

	s.record(ctx, domain.BetBatch{
		ID:           uuid.NewString(),
		Indicator:    status.Indicator(),
		Description:  status.Description(),
		IncidentType: incidentType,
		Date:         today,
		Bets:         bets,
		PlacedAt:     s.now().UTC(),
	})

	return s.cfg.PollInterval, nil
}

func (s *Scanner) pollFailed(ctx context.Context, err error) (time.Duration, error) {
	if ctx.Err() != nil {
		return 0, err
	}

	s.pollFailures++
	if s.pollFailures > s.cfg.MaxConsecutivePollFailures {
		return 0, fmt.Errorf("scanner: poll status (%d consecutive failures): %w", s.pollFailures, err)
	}

	s.logger.WarnContext(ctx, "status poll failed, retrying",
		slog.String("error", err.Error()),
		slog.Int("consecutive_failures", s.pollFailures),
		slog.Int("max_consecutive_failures", s.cfg.MaxConsecutivePollFailures),
	)
	return s.cfg.PollInterval, nil
}

func (s *Scanner) planBets(targets []domain.TargetIncident) []domain.BetRequest {
	bets := make([]domain.BetRequest, 0, len(targets)*s.cfg.BetsPerTarget)
	for _, t := range targets {
		for i := 0; i < s.cfg.BetsPerTarget; i++ {
			bets = append(bets, domain.BetRequest{
				ContractID: t.ContractID,
				Outcome:    s.cfg.Outcome,
				Amount:     s.cfg.BetAmount,
			})
		}
	}
	return bets
}

// dispatch places every bet concurrently and waits for all of them. A
// failure does not cancel the bets still in flight. The first failure is
// returned; bets already accepted by the venue stand.
func (s *Scanner) dispatch(ctx context.Context, bets []domain.BetRequest) error {
	var g errgroup.Group

	for _, bet := range bets {
		g.Go(func() error {
			if err := s.bettor.Bet(ctx, bet.ContractID, bet.Outcome, bet.Amount); err != nil {
				s.logger.ErrorContext(ctx, "bet failed",
					slog.String("contract_id", bet.ContractID),
					slog.Int("amount", bet.Amount),
					slog.String("error", err.Error()),
				)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("scanner: place bets: %w", err)
	}
	return nil
}

func (s *Scanner) record(ctx context.Context, batch domain.BetBatch) {
	for _, rec := range s.recorders {
		if err := rec.RecordBets(ctx, batch); err != nil {
			s.logger.WarnContext(ctx, "failed to record bet batch",
				slog.String("batch_id", batch.ID),
				slog.String("error", err.Error()),
			)
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
