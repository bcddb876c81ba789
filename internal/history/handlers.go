package history

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// ReceiptRenderer renders a recorded sale as a plain-text ticket.
type ReceiptRenderer interface {
	RenderSale(sale Sale, taxRateBps int) string
}

// Handler exposes the sales history over HTTP.
type Handler struct {
	Store      *Store
	Events     *events.Bus
	Renderer   ReceiptRenderer
	TaxRateBps int
	Now        func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// List handles GET /sales?limit=n: the most recent sales, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "history store not configured", nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	sales, err := h.Store.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sales)
}

// Get handles GET /sales/{saleID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "history store not configured", nil)
		return
	}
	sale, err := h.Store.Get(r.Context(), chi.URLParam(r, "saleID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sale)
}

// Receipt handles GET /sales/{saleID}/receipt.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil || h.Renderer == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "history store not configured", nil)
		return
	}
	sale, err := h.Store.Get(r.Context(), chi.URLParam(r, "saleID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.Renderer.RenderSale(sale, h.TaxRateBps)))
}

// Daily handles GET /sales/daily?date=YYYY-MM-DD. The date is interpreted in
// the server's local timezone; absent date means today.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "history store not configured", nil)
		return
	}
	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "date must be YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}
	summary, err := h.Store.DailyAggregate(r.Context(), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, summary)
}

// Clear handles DELETE /sales. The operator's confirmation is gathered by the
// caller; the query parameter confirm=true is required as a guard.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "history store not configured", nil)
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		common.JSONError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", "pass confirm=true to clear the sales history", nil)
		return
	}
	if err := h.Store.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	if obs.HistoryClearsTotal != nil {
		obs.HistoryClearsTotal.Inc()
	}
	if h.Events != nil {
		_, _ = h.Events.Emit(r.Context(), events.TopicHistoryCleared, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrPersistence):
		common.JSONError(w, http.StatusInternalServerError, "PERSISTENCE", "durable store failure", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
