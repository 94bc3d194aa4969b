package agent

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/modules/market"
)

// Handler handles agent HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new agent handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "agent").Logger(),
	}
}

type trainRequest struct {
	ProductID string `json:"product_id"`
}

// HandleTrain runs a full training session for a product.
func (h *Handler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	res, err := h.service.Train(req.ProductID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Episode rewards can run to thousands of floats; the API returns
	// the summary only.
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":      req.ProductID,
		"episodes_run":    res.EpisodesRun,
		"best_avg_reward": res.BestAvgReward,
		"final_epsilon":   res.FinalEpsilon,
		"stop_reason":     res.StopReason,
		"duration_ms":     res.DurationMS,
	})
}

// HandleGetPolicy exports the greedy action per state index.
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.service.Policy()
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"states": len(policy),
		"policy": policy,
	})
}

type recommendRequest struct {
	State market.State `json:"state"`
}

// HandleRecommend returns the greedy price recommendation for a state.
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := h.service.Recommend(req.State)
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, rec)
}

type evaluateRequest struct {
	Episodes int `json:"episodes"`
}

// HandleEvaluate runs greedy evaluation episodes.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	req := evaluateRequest{Episodes: 20}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	res, err := h.service.Evaluate(req.Episodes)
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// HandleGetRuns returns recent training runs for a product.
func (h *Handler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "product_id query parameter is required")
		return
	}

	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.service.Runs(productID, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, runs)
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
