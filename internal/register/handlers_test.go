package register_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/register"
	"github.com/noah-isme/backend-pos/internal/session"
)

type fixture struct {
	router  http.Handler
	store   *history.Store
	catalog *catalog.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := history.NewStore(db)
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(db)
	require.NoError(t, err)

	sess, err := session.New(session.Config{
		TaxRateBps: 2000,
		Store:      store,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	h := &register.Handler{
		Session:  sess,
		Catalog:  catalogSvc,
		Renderer: receipt.Renderer{Header: "TEST SHOP"},
		Validate: validator.New(),
		Now:      func() time.Time { return time.Date(2026, 3, 14, 15, 0, 0, 0, time.Local) },
	}

	r := chi.NewRouter()
	r.Get("/cart", h.GetCart)
	r.Post("/cart/items", h.AddItem)
	r.Post("/cart/items/by-product", h.QuickAdd)
	r.Delete("/cart/items/last", h.RemoveLastItem)
	r.Delete("/cart/items/{itemID}", h.RemoveItem)
	r.Delete("/cart", h.ClearCart)
	r.Post("/cart/discount/percent", h.ApplyPercentDiscount)
	r.Post("/cart/discount/fixed", h.ApplyFixedDiscount)
	r.Delete("/cart/discount", h.ClearDiscount)
	r.Post("/payments", h.ProcessPayment)
	r.Post("/payments/confirm", h.ConfirmPayment)
	r.Post("/payments/cancel", h.CancelPayment)
	r.Get("/payments/pending", h.PendingPayment)
	r.Get("/receipt", h.Receipt)
	return fixture{router: r, store: store, catalog: catalogSvc}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok, "missing data envelope: %s", rr.Body.String())
	return data
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	fx := setup(t)

	rr := doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{
		"name": "Coffee", "unitPrice": 250, "qty": 2,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{
		"name": "Muffin", "unitPrice": 300,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, fx.router, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	totals := decodeData(t, rr)["totals"].(map[string]any)
	assert.Equal(t, float64(800), totals["subtotal"])
	assert.Equal(t, float64(160), totals["tax"])
	assert.Equal(t, float64(960), totals["total"])

	rr = doJSON(t, fx.router, http.MethodPost, "/cart/discount/percent", map[string]any{"percent": 10})
	require.Equal(t, http.StatusOK, rr.Code)
	totals = decodeData(t, rr)["totals"].(map[string]any)
	assert.Equal(t, float64(80), totals["discount"])
	assert.Equal(t, float64(880), totals["total"])

	rr = doJSON(t, fx.router, http.MethodPost, "/payments", map[string]any{
		"method": "cash", "tendered": 1000,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	summary := decodeData(t, rr)
	assert.Equal(t, float64(120), summary["change"])

	rr = doJSON(t, fx.router, http.MethodPost, "/payments/confirm", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sale := decodeData(t, rr)
	assert.Equal(t, float64(880), sale["total"])
	assert.Equal(t, "cash", sale["paymentMethod"])

	// History gained exactly one sale and the cart is fresh.
	recent, err := fx.store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(880), recent[0].Total)

	rr = doJSON(t, fx.router, http.MethodGet, "/cart", nil)
	items := decodeData(t, rr)["items"].([]any)
	assert.Empty(t, items)
}

func TestAddItemValidationErrors(t *testing.T) {
	fx := setup(t)

	for _, body := range []map[string]any{
		{"unitPrice": 100},
		{"name": "Tea"},
		{"name": "Tea", "unitPrice": -5},
		{"name": "Tea", "unitPrice": 100, "qty": -1},
	} {
		rr := doJSON(t, fx.router, http.MethodPost, "/cart/items", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, fmt.Sprintf("%v", body))
	}
}

func TestAddItemAcceptsDecimalUnitPrice(t *testing.T) {
	fx := setup(t)

	rr := doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{
		"name": "Coffee", "unitPriceDecimal": "2.50", "qty": 2,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	item := decodeData(t, rr)
	assert.Equal(t, float64(250), item["unitPrice"])

	rr = doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{
		"name": "Muffin", "unitPriceDecimal": "3,00",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, fx.router, http.MethodGet, "/cart", nil)
	totals := decodeData(t, rr)["totals"].(map[string]any)
	assert.Equal(t, float64(800), totals["subtotal"])

	for _, bad := range []string{"1.-5", "abc", "-2.50"} {
		rr = doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{
			"name": "Tea", "unitPriceDecimal": bad,
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
}

func TestQuickAddFromCatalog(t *testing.T) {
	fx := setup(t)
	_, err := fx.catalog.Add(context.Background(), "Espresso", 180)
	require.NoError(t, err)

	rr := doJSON(t, fx.router, http.MethodPost, "/cart/items/by-product", map[string]any{"name": "espresso"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	item := decodeData(t, rr)
	assert.Equal(t, "Espresso", item["name"])
	assert.Equal(t, float64(180), item["unitPrice"])

	rr = doJSON(t, fx.router, http.MethodPost, "/cart/items/by-product", map[string]any{"name": "latte"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRemoveItemEndpoints(t *testing.T) {
	fx := setup(t)
	rr := doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{"name": "Coffee", "unitPrice": 250})
	require.Equal(t, http.StatusCreated, rr.Code)
	itemID := decodeData(t, rr)["id"].(string)

	rr = doJSON(t, fx.router, http.MethodDelete, "/cart/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, fx.router, http.MethodDelete, "/cart/items/"+itemID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDiscountEndpointsRejectOutOfBounds(t *testing.T) {
	fx := setup(t)
	rr := doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{"name": "Coffee", "unitPrice": 800})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, fx.router, http.MethodPost, "/cart/discount/percent", map[string]any{"percent": 101})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, fx.router, http.MethodPost, "/cart/discount/fixed", map[string]any{"amount": 801})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPaymentPreconditionsOverHTTP(t *testing.T) {
	fx := setup(t)

	rr := doJSON(t, fx.router, http.MethodPost, "/payments", map[string]any{"method": "card"})
	assert.Equal(t, http.StatusConflict, rr.Code) // empty cart

	rr = doJSON(t, fx.router, http.MethodPost, "/payments/confirm", nil)
	assert.Equal(t, http.StatusConflict, rr.Code) // nothing pending

	rr = doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{"name": "Coffee", "unitPrice": 250})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, fx.router, http.MethodPost, "/payments", map[string]any{"method": "cash", "tendered": 100})
	assert.Equal(t, http.StatusConflict, rr.Code) // insufficient funds

	rr = doJSON(t, fx.router, http.MethodPost, "/payments", map[string]any{"method": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelPaymentLeavesHistoryUntouched(t *testing.T) {
	fx := setup(t)
	rr := doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{"name": "Coffee", "unitPrice": 250})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = doJSON(t, fx.router, http.MethodPost, "/payments", map[string]any{"method": "check"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, fx.router, http.MethodPost, "/payments/cancel", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, fx.router, http.MethodGet, "/payments/pending", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	recent, err := fx.store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestReceiptEndpoint(t *testing.T) {
	fx := setup(t)

	rr := doJSON(t, fx.router, http.MethodGet, "/receipt", nil)
	assert.Equal(t, http.StatusConflict, rr.Code) // nothing to print

	r2 := doJSON(t, fx.router, http.MethodPost, "/cart/items", map[string]any{"name": "Coffee", "unitPrice": 250, "qty": 2})
	require.Equal(t, http.StatusCreated, r2.Code)

	rr = doJSON(t, fx.router, http.MethodGet, "/receipt", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rr.Body.String(), "TEST SHOP")
	assert.Contains(t, rr.Body.String(), "Coffee")
}
