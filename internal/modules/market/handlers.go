package market

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles market HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

type simulateRequest struct {
	State     State      `json:"state"`
	Action    int        `json:"action"`
	Overrides *Overrides `json:"overrides,omitempty"`
}

// HandleSimulate runs a deterministic what-if: given a market state and
// an action, report the simulated price, quantity, revenue, margin and
// reward without touching the session.
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	env, err := h.service.Env()
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	res, err := env.SimulateAction(req.State, req.Action, req.Overrides)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// HandleStateSpace describes the active session's discretization.
func (h *Handler) HandleStateSpace(w http.ResponseWriter, r *http.Request) {
	env, err := h.service.Env()
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	enc := env.Encoder()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":     h.service.ProductID(),
		"total_states":   env.TotalStates(),
		"bin_counts":     enc.BinCounts(),
		"extended_state": enc.HasExtendedState(),
		"multipliers":    env.Multipliers(),
		"base_price":     env.BasePrice(),
		"base_cost":      env.BaseCost(),
		"base_qty":       env.BaseQty(),
	})
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
