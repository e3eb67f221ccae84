package api

import (
	"net/http"

	"github.com/okian/rehabchat/internal/adapters/repository"
	"github.com/okian/rehabchat/internal/domain/errs"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

type statsResponse struct {
	Service map[string]interface{} `json:"service"`
	Table   repository.Stats       `json:"table"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	table, err := h.statsProvider.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", errs.WrapKind(op, ErrNotReady, err))
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Service: h.statsProvider.GetStats(), Table: table})
}
