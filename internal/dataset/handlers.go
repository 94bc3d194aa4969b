package dataset

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tarunbandi/repricer/internal/database/repositories"
	"github.com/tarunbandi/repricer/internal/events"
)

// Handler handles dataset HTTP requests
type Handler struct {
	records   *repositories.RecordRepository
	historyDB *HistoryDB // nil when no history directory is configured
	ev        *events.Manager
	log       zerolog.Logger
}

// NewHandler creates a new dataset handler
func NewHandler(records *repositories.RecordRepository, historyDB *HistoryDB, ev *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		records:   records,
		historyDB: historyDB,
		ev:        ev,
		log:       log.With().Str("handler", "dataset").Logger(),
	}
}

// HandleListProducts returns product IDs and their record counts.
func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.records.Products()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

type seedRequest struct {
	ProductID string `json:"product_id"`
	Months    int    `json:"months"`
	Seed      int64  `json:"seed"`
	Extended  bool   `json:"extended"`
}

// HandleSeed generates and stores a synthetic history for a product.
func (h *Handler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	req := seedRequest{Months: 36, Seed: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if req.Months <= 0 {
		h.writeError(w, http.StatusBadRequest, "months must be positive")
		return
	}

	records := Generate(GeneratorConfig{
		ProductID: req.ProductID,
		Months:    req.Months,
		Seed:      req.Seed,
		Extended:  req.Extended,
	})
	if err := h.records.InsertBatch(records); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	productID := records[0].ProductID
	if h.ev != nil {
		h.ev.Emit(events.DatasetSeeded, "dataset", map[string]interface{}{
			"product_id": productID,
			"months":     req.Months,
			"synthetic":  true,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"inserted":   len(records),
	})
}

type importRequest struct {
	ProductID string `json:"product_id"`
	Limit     int    `json:"limit"`
}

// HandleImportHistory pulls a product's monthly history from its
// per-product history database into the main store.
func (h *Handler) HandleImportHistory(w http.ResponseWriter, r *http.Request) {
	if h.historyDB == nil {
		h.writeError(w, http.StatusConflict, "no history directory configured")
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 240
	}

	records, err := h.historyDB.GetMonthlyHistory(req.ProductID, req.Limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		h.writeError(w, http.StatusNotFound, "no history rows for product "+req.ProductID)
		return
	}

	if err := h.records.InsertBatch(records); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.ev != nil {
		h.ev.Emit(events.DatasetSeeded, "dataset", map[string]interface{}{
			"product_id": req.ProductID,
			"months":     len(records),
			"synthetic":  false,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": req.ProductID,
		"inserted":   len(records),
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
