package explain

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/modules/agent"
	"github.com/tarunbandi/repricer/internal/modules/market"
)

// Handler handles explanation HTTP requests
type Handler struct {
	agents *agent.Service
	market *market.Service
	log    zerolog.Logger
}

// NewHandler creates a new explanation handler
func NewHandler(agents *agent.Service, marketSvc *market.Service, log zerolog.Logger) *Handler {
	return &Handler{
		agents: agents,
		market: marketSvc,
		log:    log.With().Str("handler", "explain").Logger(),
	}
}

type explainRequest struct {
	State market.State `json:"state"`
}

// HandleExplain decomposes the policy's price at a state into
// per-feature Shapley contributions.
func (h *Handler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	a, err := h.agents.Agent()
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	env, err := h.market.Env()
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	exp, err := ComputeShapleyValues(req.State, a, env)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, exp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
