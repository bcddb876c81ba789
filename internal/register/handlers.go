package register

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/discount"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/payment"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/session"
)

// Handler wires the register session to HTTP. It is the collaborator layer:
// it translates requests into core calls and core state into JSON; all
// arithmetic lives behind the session.
type Handler struct {
	Session   *session.Session
	Catalog   *catalog.Service
	Renderer  receipt.Renderer
	Formatter *money.Formatter
	Validate  *validator.Validate
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

// GetCart returns the cart snapshot with formatted totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	common.JSONData(w, http.StatusOK, h.cartJSON(h.Session.CartSnapshot()))
}

// addItemRequest carries the unit price either in minor units or as the
// decimal string a register keypad produces ("2.50", comma accepted).
type addItemRequest struct {
	Name             string `json:"name" validate:"required"`
	UnitPrice        int64  `json:"unitPrice" validate:"omitempty,gt=0"`
	UnitPriceDecimal string `json:"unitPriceDecimal" validate:"omitempty"`
	Qty              int    `json:"qty" validate:"omitempty,gt=0"`
}

func (p addItemRequest) unitPrice() (money.Money, error) {
	if p.UnitPriceDecimal != "" {
		return money.ParseDecimal(p.UnitPriceDecimal)
	}
	if p.UnitPrice > 0 {
		return p.UnitPrice, nil
	}
	return 0, money.ErrInvalidAmount
}

// AddItem handles POST /cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	var payload addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	unitPrice, err := payload.unitPrice()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "a positive unitPrice or unitPriceDecimal is required", nil)
		return
	}
	qty := payload.Qty
	if qty == 0 {
		qty = 1
	}
	item, err := h.Session.AddItem(payload.Name, unitPrice, qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	countCartMutation("add_item")
	common.JSONData(w, http.StatusCreated, h.itemJSON(item))
}

type quickAddRequest struct {
	Name string `json:"name" validate:"required"`
	Qty  int    `json:"qty" validate:"omitempty,gt=0"`
}

// QuickAdd handles POST /cart/items/by-product: adds a saved catalog product
// to the cart by name.
func (h *Handler) QuickAdd(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil || h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	var payload quickAddRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	product, err := h.Catalog.Get(r.Context(), payload.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	qty := payload.Qty
	if qty == 0 {
		qty = 1
	}
	item, err := h.Session.AddItem(product.Name, product.Price, qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	countCartMutation("quick_add")
	common.JSONData(w, http.StatusCreated, h.itemJSON(item))
}

// RemoveLastItem handles DELETE /cart/items/last.
func (h *Handler) RemoveLastItem(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	h.Session.RemoveLastItem()
	countCartMutation("remove_last")
	common.JSONData(w, http.StatusOK, h.cartJSON(h.Session.CartSnapshot()))
}

// RemoveItem handles DELETE /cart/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	if err := h.Session.RemoveItem(chi.URLParam(r, "itemID")); err != nil {
		h.writeError(w, err)
		return
	}
	countCartMutation("remove_item")
	common.JSONData(w, http.StatusOK, h.cartJSON(h.Session.CartSnapshot()))
}

// ClearCart handles DELETE /cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	h.Session.ClearCart()
	countCartMutation("clear")
	common.JSONData(w, http.StatusOK, h.cartJSON(h.Session.CartSnapshot()))
}

type percentDiscountRequest struct {
	Percent float64 `json:"percent" validate:"required,gt=0,lte=100"`
}

// ApplyPercentDiscount handles POST /cart/discount/percent.
func (h *Handler) ApplyPercentDiscount(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	var payload percentDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	bps := int(math.Round(payload.Percent * 100))
	if err := h.Session.ApplyPercentDiscount(bps); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.cartJSON(h.Session.CartSnapshot()))
}

type fixedDiscountRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// ApplyFixedDiscount handles POST /cart/discount/fixed.
func (h *Handler) ApplyFixedDiscount(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	var payload fixedDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if err := h.Session.ApplyFixedDiscount(payload.Amount); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.cartJSON(h.Session.CartSnapshot()))
}

// ClearDiscount handles DELETE /cart/discount.
func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	h.Session.ClearDiscount()
	common.JSONData(w, http.StatusOK, h.cartJSON(h.Session.CartSnapshot()))
}

type processPaymentRequest struct {
	Method   string `json:"method" validate:"required,oneof=cash card check"`
	Tendered int64  `json:"tendered" validate:"omitempty,gte=0"`
}

// ProcessPayment handles POST /payments.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	var payload processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	summary, err := h.Session.ProcessPayment(history.Method(payload.Method), payload.Tendered)
	if err != nil {
		countPaymentFailure(err)
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.summaryJSON(summary))
}

// ConfirmPayment handles POST /payments/confirm.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	sale, err := h.Session.ConfirmPayment(r.Context())
	if err != nil {
		countPaymentFailure(err)
		h.writeError(w, err)
		return
	}
	if obs.SalesRecordedTotal != nil {
		obs.SalesRecordedTotal.WithLabelValues(string(sale.PaymentMethod)).Inc()
	}
	if obs.SaleAmountCents != nil {
		obs.SaleAmountCents.Observe(float64(sale.Total))
	}
	common.JSONData(w, http.StatusCreated, h.saleJSON(sale))
}

// CancelPayment handles POST /payments/cancel.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	h.Session.CancelPayment()
	w.WriteHeader(http.StatusNoContent)
}

// PendingPayment handles GET /payments/pending.
func (h *Handler) PendingPayment(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	summary, ok := h.Session.PendingPayment()
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no payment awaiting confirmation", nil)
		return
	}
	common.JSONData(w, http.StatusOK, h.summaryJSON(summary))
}

// Receipt handles GET /receipt: the plain-text ticket for the cart in progress.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "register session not configured", nil)
		return
	}
	snap := h.Session.CartSnapshot()
	if len(snap.Items) == 0 {
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "no items to print", nil)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.Renderer.RenderCart(snap, h.now())))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidInput),
		errors.Is(err, discount.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, payment.ErrInvalidMethod):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, history.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, payment.ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, payment.ErrInvalidTotal):
		common.JSONError(w, http.StatusConflict, "INVALID_TOTAL", err.Error(), nil)
	case errors.Is(err, payment.ErrInsufficientFunds):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_FUNDS", err.Error(), nil)
	case errors.Is(err, payment.ErrInvalidState):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, history.ErrPersistence), errors.Is(err, catalog.ErrPersistence):
		common.JSONError(w, http.StatusInternalServerError, "PERSISTENCE", "durable store failure", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}

func countCartMutation(op string) {
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues(op).Inc()
	}
}

func countPaymentFailure(err error) {
	if obs.PaymentFailuresTotal == nil {
		return
	}
	reason := "internal"
	switch {
	case errors.Is(err, payment.ErrEmptyCart):
		reason = "empty_cart"
	case errors.Is(err, payment.ErrInvalidTotal):
		reason = "invalid_total"
	case errors.Is(err, payment.ErrInsufficientFunds):
		reason = "insufficient_funds"
	case errors.Is(err, payment.ErrInvalidState):
		reason = "invalid_state"
	case errors.Is(err, payment.ErrInvalidMethod):
		reason = "invalid_method"
	}
	obs.PaymentFailuresTotal.WithLabelValues(reason).Inc()
}
