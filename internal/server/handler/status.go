package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// TargetView is the read side of the target registry.
type TargetView interface {
	Len() int
	Snapshot() []domain.TargetIncident
}

// ExclusionView is the read side of the scanner's exclusion set.
type ExclusionView interface {
	Len() int
	Contains(contractID string) bool
	Snapshot() []string
}

// StatusHandler serves a summary of the running bot.
type StatusHandler struct {
	startedAt     time.Time
	targets       TargetView
	exclusions    ExclusionView
	excludedDates []domain.MonthDay
	now           func() time.Time
}

// NewStatusHandler creates a StatusHandler. excludedDates is the scanner's
// no-betting calendar and is reported verbatim.
func NewStatusHandler(startedAt time.Time, targets TargetView, exclusions ExclusionView, excludedDates []domain.MonthDay) *StatusHandler {
	return &StatusHandler{
		startedAt:     startedAt.UTC(),
		targets:       targets,
		exclusions:    exclusions,
		excludedDates: excludedDates,
		now:           time.Now,
	}
}

// GetStatus responds with uptime and registry sizes.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	dates := make([]string, 0, len(h.excludedDates))
	for _, d := range h.excludedDates {
		dates = append(dates, d.String())
	}

	now := h.now().UTC()
	writeJSON(w, http.StatusOK, map[string]any{
		"started_at":     h.startedAt.Format(time.RFC3339),
		"uptime_seconds": int64(now.Sub(h.startedAt).Seconds()),
		"today":          domain.MonthDayOf(now).String(),
		"targets":        h.targets.Len(),
		"exclusions":     h.exclusions.Len(),
		"excluded_dates": dates,
	})
}
