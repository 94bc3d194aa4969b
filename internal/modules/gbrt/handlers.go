package gbrt

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles demand model HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new demand model handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "gbrt").Logger(),
	}
}

type fitRequest struct {
	ProductID string `json:"product_id"`
}

// HandleFit trains the demand model on a product's records.
func (h *Handler) HandleFit(w http.ResponseWriter, r *http.Request) {
	var req fitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	res, err := h.service.Fit(req.ProductID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// HandleBind injects the fitted model into the active environment.
func (h *Handler) HandleBind(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Bind(); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "bound"})
}

// HandleUnbind restores the default elasticity backend.
func (h *Handler) HandleUnbind(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unbind(); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "unbound"})
}

// HandleGetModel returns the most recent fit summary.
func (h *Handler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.LastFit()
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type curveRequest struct {
	Prices []float64 `json:"prices"`
}

// HandleCurve computes the demand curve at the requested prices.
func (h *Handler) HandleCurve(w http.ResponseWriter, r *http.Request) {
	var req curveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Prices) == 0 {
		h.writeError(w, http.StatusBadRequest, "prices are required")
		return
	}

	curve, err := h.service.Curve(req.Prices)
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, curve)
}

type dependenceRequest struct {
	Feature     int       `json:"feature"`
	Points      []float64 `json:"points"`
	CondFeature int       `json:"cond_feature"`
	CondBins    int       `json:"cond_bins"` // 0 disables conditioning
}

// HandleDependence computes partial dependence for a feature.
func (h *Handler) HandleDependence(w http.ResponseWriter, r *http.Request) {
	var req dependenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Points) == 0 {
		h.writeError(w, http.StatusBadRequest, "points are required")
		return
	}

	dep, err := h.service.Dependence(req.Feature, req.Points, req.CondFeature, req.CondBins)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"feature":    req.Feature,
		"points":     req.Points,
		"dependence": dep,
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
