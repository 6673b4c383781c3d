package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/calabi/internal/domain"
	"github.com/alanyoungcy/calabi/internal/target"
)

type statusResult struct {
	env domain.StatusEnvelope
	err error
}

// fakeStatus replays results in order and repeats the last one forever.
type fakeStatus struct {
	mu      sync.Mutex
	results []statusResult
	calls   int
}

func (f *fakeStatus) GetIncidentStatus(ctx context.Context) (domain.StatusEnvelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i].env, f.results[i].err
}

func indicator(ind string) statusResult {
	return statusResult{env: domain.StatusEnvelope{Status: domain.Status{Indicator: ind, Description: ind + " status"}}}
}

type fakeBettor struct {
	mu   sync.Mutex
	bets []domain.BetRequest
	fail map[string]error
}

func (f *fakeBettor) Bet(ctx context.Context, contractID string, outcome domain.Outcome, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bets = append(f.bets, domain.BetRequest{ContractID: contractID, Outcome: outcome, Amount: amount})
	if err, ok := f.fail[contractID]; ok {
		return err
	}
	return nil
}

func (f *fakeBettor) count(contractID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bets {
		if b.ContractID == contractID {
			n++
		}
	}
	return n
}

// barrierBettor holds every Bet call until want calls are in flight at once,
// so a scanner that dispatches sequentially times out.
type barrierBettor struct {
	want    int
	timeout time.Duration

	mu      sync.Mutex
	arrived int
	ready   chan struct{}
}

func newBarrierBettor(want int) *barrierBettor {
	return &barrierBettor{want: want, timeout: 2 * time.Second, ready: make(chan struct{})}
}

func (b *barrierBettor) Bet(ctx context.Context, contractID string, outcome domain.Outcome, amount int) error {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.want {
		close(b.ready)
	}
	b.mu.Unlock()

	select {
	case <-b.ready:
		return nil
	case <-time.After(b.timeout):
		b.mu.Lock()
		defer b.mu.Unlock()
		return fmt.Errorf("only %d of %d bets in flight together", b.arrived, b.want)
	}
}

func (b *barrierBettor) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.arrived
}

type fakeRecorder struct {
	batches []domain.BetBatch
	err     error
}

func (f *fakeRecorder) RecordBets(ctx context.Context, batch domain.BetBatch) error {
	f.batches = append(f.batches, batch)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(2023, month, day, 15, 4, 5, 0, time.UTC)
	}
}

func newRegistry(targets ...domain.TargetIncident) *target.Registry {
	r := target.NewRegistry()
	for _, t := range targets {
		r.Add(t)
	}
	return r
}

func anyTarget(id string, month time.Month, day int) domain.TargetIncident {
	return domain.TargetIncident{ContractID: id, Month: month, Day: day, IncidentType: domain.IncidentAny}
}

func TestCycle_NoIncident(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("none")}}
	bettor := &fakeBettor{}
	s := New(status, bettor, newRegistry(anyTarget("X", time.August, 30)), DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)))

	wait, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, wait)
	assert.Empty(t, bettor.bets)
}

func TestCycle_BetsOncePerTarget(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("minor")}}
	bettor := &fakeBettor{}
	rec := &fakeRecorder{}
	s := New(status, bettor, newRegistry(anyTarget("X", time.August, 30)), DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)),
		WithRecorders(rec),
	)

	_, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, bettor.count("X"))
	for _, b := range bettor.bets {
		assert.Equal(t, domain.OutcomeYes, b.Outcome)
		assert.Equal(t, 500, b.Amount)
	}
	assert.True(t, s.Exclusions().Contains("X"))

	for i := 0; i < 3; i++ {
		_, err = s.Cycle(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, bettor.count("X"))

	require.Len(t, rec.batches, 1)
	batch := rec.batches[0]
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, "minor", batch.Indicator)
	assert.Equal(t, domain.IncidentAny, batch.IncidentType)
	assert.Equal(t, domain.MonthDay{Month: time.August, Day: 30}, batch.Date)
	assert.Equal(t, []string{"X"}, batch.ContractIDs())
	assert.Equal(t, 1000, batch.TotalAmount())
}

func TestCycle_MultipleTargets(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("major")}}
	bettor := &fakeBettor{}
	cfg := DefaultConfig()
	cfg.BetsPerTarget = 3
	cfg.BetAmount = 25
	reg := newRegistry(
		anyTarget("A", time.August, 30),
		anyTarget("B", time.August, 30),
		anyTarget("later", time.August, 31),
	)
	s := New(status, bettor, reg, cfg, discardLogger(), WithClock(at(time.August, 30)))

	_, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, bettor.count("A"))
	assert.Equal(t, 3, bettor.count("B"))
	assert.Zero(t, bettor.count("later"))
	assert.Equal(t, []string{"A", "B"}, s.Exclusions().Snapshot())
}

func TestCycle_RedIncidentSkipsAnyTarget(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("critical")}}
	bettor := &fakeBettor{}
	s := New(status, bettor, newRegistry(anyTarget("X", time.August, 30)), DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)))

	_, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bettor.bets)
	assert.Zero(t, s.Exclusions().Len())
}

func TestCycle_RedIncidentBetsOnRedTarget(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("critical")}}
	bettor := &fakeBettor{}
	reg := newRegistry(domain.TargetIncident{ContractID: "R", Month: time.August, Day: 30, IncidentType: domain.IncidentRed})
	s := New(status, bettor, reg, DefaultConfig(), discardLogger(), WithClock(at(time.August, 30)))

	_, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, bettor.count("R"))
}

func TestCycle_ExcludedDateDoesNotPoll(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("critical")}}
	bettor := &fakeBettor{}
	reg := newRegistry(anyTarget("X", time.September, 6))
	s := New(status, bettor, reg, DefaultConfig(), discardLogger(), WithClock(at(time.September, 6)))

	wait, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, wait)
	assert.Zero(t, status.calls)
	assert.Empty(t, bettor.bets)
}

func TestCycle_FailedBetIsNotExcluded(t *testing.T) {
	boom := errors.New("venue down")
	status := &fakeStatus{results: []statusResult{indicator("minor")}}
	bettor := &fakeBettor{fail: map[string]error{"X": boom}}
	rec := &fakeRecorder{}
	reg := newRegistry(anyTarget("X", time.August, 30), anyTarget("Y", time.August, 30))
	s := New(status, bettor, reg, DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)),
		WithRecorders(rec),
	)

	_, err := s.Cycle(context.Background())
	require.ErrorIs(t, err, boom)

	// Every bet in the batch was still attempted.
	assert.Equal(t, 2, bettor.count("X"))
	assert.Equal(t, 2, bettor.count("Y"))
	assert.Zero(t, s.Exclusions().Len())
	assert.Empty(t, rec.batches)
}

func TestCycle_UnknownIndicatorIsFatal(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("maintenance")}}
	s := New(status, &fakeBettor{}, newRegistry(), DefaultConfig(), discardLogger(), WithClock(at(time.August, 30)))

	_, err := s.Cycle(context.Background())
	require.ErrorIs(t, err, domain.ErrUnknownIndicator)
}

func TestCycle_RecorderFailureIsNotFatal(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("minor")}}
	failing := &fakeRecorder{err: errors.New("db down")}
	ok := &fakeRecorder{}
	s := New(status, &fakeBettor{}, newRegistry(anyTarget("X", time.August, 30)), DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)),
		WithRecorders(failing, ok),
	)

	_, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, failing.batches, 1)
	assert.Len(t, ok.batches, 1)
	assert.True(t, s.Exclusions().Contains("X"))
}

func TestCycle_PollFailureFatalByDefault(t *testing.T) {
	boom := errors.New("status feed down")
	status := &fakeStatus{results: []statusResult{{err: boom}}}
	s := New(status, &fakeBettor{}, newRegistry(), DefaultConfig(), discardLogger(), WithClock(at(time.August, 30)))

	_, err := s.Cycle(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestCycle_PollFailureBudget(t *testing.T) {
	boom := errors.New("status feed down")
	status := &fakeStatus{results: []statusResult{
		{err: boom},
		{err: boom},
		indicator("none"),
		{err: boom},
		{err: boom},
		{err: boom},
	}}
	cfg := DefaultConfig()
	cfg.MaxConsecutivePollFailures = 2
	s := New(status, &fakeBettor{}, newRegistry(), cfg, discardLogger(), WithClock(at(time.August, 30)))

	for i := 0; i < 5; i++ {
		wait, err := s.Cycle(context.Background())
		require.NoError(t, err, "cycle %d", i)
		assert.Equal(t, cfg.PollInterval, wait)
	}

	_, err := s.Cycle(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "3 consecutive failures")
}

func TestRun_StopsOnCancel(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("none")}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeps := 0
	s := New(status, &fakeBettor{}, newRegistry(), DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			sleeps++
			if sleeps == 4 {
				cancel()
				return ctx.Err()
			}
			return nil
		}),
	)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, status.calls)
}

func TestRun_ReturnsCycleError(t *testing.T) {
	status := &fakeStatus{results: []statusResult{indicator("none"), indicator("none"), indicator("bogus")}}
	s := New(status, &fakeBettor{}, newRegistry(), DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)),
		WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }),
	)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrUnknownIndicator)
	assert.Equal(t, 3, status.calls)
}

func TestCycle_BetsDispatchedConcurrently(t *testing.T) {
	red := func(id string) domain.TargetIncident {
		return domain.TargetIncident{ContractID: id, Month: time.August, Day: 30, IncidentType: domain.IncidentRed}
	}
	status := &fakeStatus{results: []statusResult{indicator("critical"), indicator("minor")}}
	bettor := newBarrierBettor(4)
	s := New(status, bettor, newRegistry(red("X"), red("Y")), DefaultConfig(), discardLogger(),
		WithClock(at(time.August, 30)))

	_, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, bettor.calls())
	assert.True(t, s.Exclusions().Contains("X"))
	assert.True(t, s.Exclusions().Contains("Y"))

	// A minor incident never matches red-only targets.
	_, err = s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, bettor.calls())
}
