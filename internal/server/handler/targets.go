package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// TargetHandler exposes the registry and the exclusion set.
type TargetHandler struct {
	targets    TargetView
	exclusions ExclusionView
	logger     *slog.Logger
}

// NewTargetHandler creates a TargetHandler.
func NewTargetHandler(targets TargetView, exclusions ExclusionView, logger *slog.Logger) *TargetHandler {
	return &TargetHandler{
		targets:    targets,
		exclusions: exclusions,
		logger:     logger.With(slog.String("handler", "targets")),
	}
}

// ListTargets returns every registered target, sorted by contract id. An
// optional ?type=any|red narrows the list.
// GET /api/targets
func (h *TargetHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	all := h.targets.Snapshot()

	filter := r.URL.Query().Get("type")
	switch domain.IncidentType(filter) {
	case "":
	case domain.IncidentAny, domain.IncidentRed:
		kept := all[:0]
		for _, t := range all {
			if string(t.IncidentType) == filter {
				kept = append(kept, t)
			}
		}
		all = kept
	default:
		writeError(w, http.StatusBadRequest, "type must be \"any\" or \"red\"")
		return
	}

	out := make([]targetJSON, 0, len(all))
	for _, t := range all {
		out = append(out, targetJSON{
			ContractID:   t.ContractID,
			Date:         t.Date().String(),
			IncidentType: string(t.IncidentType),
			Excluded:     h.exclusions.Contains(t.ContractID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"targets": out,
	})
}

// ListExclusions returns the contracts already wagered on this run.
// GET /api/exclusions
func (h *TargetHandler) ListExclusions(w http.ResponseWriter, r *http.Request) {
	ids := h.exclusions.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(ids),
		"contracts": ids,
	})
}

type targetJSON struct {
	ContractID   string `json:"contract_id"`
	Date         string `json:"date"`
	IncidentType string `json:"incident_type"`
	Excluded     bool   `json:"excluded"`
}
