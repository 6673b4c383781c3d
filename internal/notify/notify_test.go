package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/calabi/internal/domain"
)

type fakeSender struct {
	name   string
	err    error
	titles []string
	bodies []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	f.titles = append(f.titles, title)
	f.bodies = append(f.bodies, message)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_Filter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventBetsPlaced, " "}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventTaskFailed, "t", "m"))
	assert.Empty(t, s.titles)

	require.NoError(t, n.Notify(context.Background(), EventBetsPlaced, "t", "m"))
	assert.Equal(t, []string{"t"}, s.titles)
}

func TestNotifier_EmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, s.titles, 1)
	assert.True(t, n.Allows("other"))
}

func TestNotifier_NoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), EventBetsPlaced, "t", "m"))

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
	assert.NoError(t, nilNotifier.Notify(context.Background(), EventBetsPlaced, "t", "m"))
}

func TestNotifier_SenderFailureDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	bad := &fakeSender{name: "bad", err: boom}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventTaskFailed, "t", "m")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Len(t, good.titles, 1)
}

func TestBetAlerter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	a := NewBetAlerter(NewNotifier([]Sender{s}, []string{EventBetsPlaced}, discardLogger()))

	batch := domain.BetBatch{
		ID:           "b-1",
		Indicator:    "critical",
		Description:  "Major outage",
		IncidentType: domain.IncidentRed,
		Date:         domain.MonthDay{Month: time.August, Day: 30},
		Bets: []domain.BetRequest{
			{ContractID: "R", Outcome: domain.OutcomeYes, Amount: 500},
			{ContractID: "R", Outcome: domain.OutcomeYes, Amount: 500},
			{ContractID: "S", Outcome: domain.OutcomeYes, Amount: 500},
		},
	}
	require.NoError(t, a.RecordBets(context.Background(), batch))

	require.Len(t, s.titles, 1)
	assert.Equal(t, "Bets placed on red incident", s.titles[0])
	assert.Equal(t, "GitHub status: Major outage (critical)\nDate: 08-30\n- R: 1000\n- S: 500\nTotal: 1500 over 3 bets", s.bodies[0])
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	s := NewTelegramSender(server.URL+"/", "TOKEN", "42")
	require.NoError(t, s.Send(context.Background(), "Title", "body"))

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*Title*\nbody", got["text"])
	assert.Equal(t, "telegram", s.Name())
}

func TestDiscordSender(t *testing.T) {
	var got discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	s := NewDiscordSender(server.URL)
	require.NoError(t, s.Send(context.Background(), "Title", strings.Repeat("x", 3000)))
	assert.Len(t, got.Content, discordMaxContent)
	assert.True(t, strings.HasPrefix(got.Content, "**Title**\n"))
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad webhook"))
	}))
	defer server.Close()

	err := NewDiscordSender(server.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400: bad webhook")
}
