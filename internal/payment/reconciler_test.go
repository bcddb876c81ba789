package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/discount"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/payment"
)

type memRecorder struct {
	sales []history.Sale
	err   error
}

func (m *memRecorder) Record(_ context.Context, sale history.Sale) error {
	if m.err != nil {
		return m.err
	}
	m.sales = append(m.sales, sale)
	return nil
}

func scenarioCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := cart.New(2000)
	_, err := c.AddItem("Coffee", 250, 2)
	require.NoError(t, err)
	_, err = c.AddItem("Muffin", 300, 1)
	require.NoError(t, err)
	return c
}

func newReconciler(c *cart.Cart, store payment.Recorder) *payment.Reconciler {
	return &payment.Reconciler{
		Cart:  c,
		Store: store,
		Now:   func() time.Time { return time.Date(2026, 3, 14, 15, 4, 5, 0, time.Local) },
		NewID: func() string { return "sale-1" },
	}
}

func TestProcessCashComputesChange(t *testing.T) {
	c := scenarioCart(t)
	var eng discount.Engine
	require.NoError(t, eng.ApplyPercent(c, 1000))

	r := newReconciler(c, &memRecorder{})
	summary, err := r.Process(history.MethodCash, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(880), summary.Total)
	assert.Equal(t, int64(1000), summary.Tendered)
	assert.Equal(t, int64(120), summary.Change)
	assert.Equal(t, payment.StateAwaitingConfirmation, r.State())
}

func TestProcessPreconditions(t *testing.T) {
	empty := cart.New(2000)
	r := newReconciler(empty, &memRecorder{})
	_, err := r.Process(history.MethodCard, 0)
	require.ErrorIs(t, err, payment.ErrEmptyCart)

	c := scenarioCart(t)
	r = newReconciler(c, &memRecorder{})
	_, err = r.Process(history.Method("bitcoin"), 0)
	require.ErrorIs(t, err, payment.ErrInvalidMethod)

	_, err = r.Process(history.MethodCash, 959)
	require.ErrorIs(t, err, payment.ErrInsufficientFunds)
	assert.Equal(t, payment.StateIdle, r.State())
}

func TestProcessRejectsNonPositiveTotal(t *testing.T) {
	c := cart.New(2000)
	_, err := c.AddItem("article", 100, 1)
	require.NoError(t, err)
	// A full discount plus tax below it drives the total to zero or less.
	c.SetDiscount(cart.Discount{Kind: cart.DiscountFixed, Amount: 120})
	require.LessOrEqual(t, c.Totals().Total, int64(0))

	r := newReconciler(c, &memRecorder{})
	_, err = r.Process(history.MethodCard, 0)
	require.ErrorIs(t, err, payment.ErrInvalidTotal)
}

func TestConfirmWithoutProcessFails(t *testing.T) {
	c := scenarioCart(t)
	store := &memRecorder{}
	r := newReconciler(c, store)

	_, err := r.Confirm(context.Background())
	require.ErrorIs(t, err, payment.ErrInvalidState)
	assert.Empty(t, store.sales)
	assert.Equal(t, 2, c.Len())
}

func TestConfirmRecordsSnapshotAndResetsCart(t *testing.T) {
	c := scenarioCart(t)
	var eng discount.Engine
	require.NoError(t, eng.ApplyPercent(c, 1000))
	store := &memRecorder{}
	r := newReconciler(c, store)

	_, err := r.Process(history.MethodCash, 1000)
	require.NoError(t, err)

	sale, err := r.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sale-1", sale.ID)
	assert.Equal(t, int64(800), sale.Subtotal)
	assert.Equal(t, int64(160), sale.Tax)
	assert.Equal(t, int64(80), sale.Discount)
	assert.Equal(t, int64(880), sale.Total)
	require.NotNil(t, sale.CashReceived)
	require.NotNil(t, sale.ChangeGiven)
	assert.Equal(t, int64(1000), *sale.CashReceived)
	assert.Equal(t, int64(120), *sale.ChangeGiven)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Coffee", sale.Items[0].Name)

	// Exactly one sale recorded; the cart and discount are reset.
	require.Len(t, store.sales, 1)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, cart.Discount{}, c.Discount())
	assert.Equal(t, payment.StateIdle, r.State())

	// A second confirm has nothing pending.
	_, err = r.Confirm(context.Background())
	require.ErrorIs(t, err, payment.ErrInvalidState)
	require.Len(t, store.sales, 1)
}

func TestConfirmCardSaleOmitsCashFields(t *testing.T) {
	c := scenarioCart(t)
	store := &memRecorder{}
	r := newReconciler(c, store)

	_, err := r.Process(history.MethodCard, 0)
	require.NoError(t, err)
	sale, err := r.Confirm(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sale.CashReceived)
	assert.Nil(t, sale.ChangeGiven)
}

func TestConfirmPersistenceFailureKeepsStateConfirmable(t *testing.T) {
	c := scenarioCart(t)
	boom := errors.New("disk full")
	store := &memRecorder{err: boom}
	r := newReconciler(c, store)

	_, err := r.Process(history.MethodCard, 0)
	require.NoError(t, err)
	_, err = r.Confirm(context.Background())
	require.ErrorIs(t, err, boom)

	// Cart untouched, payment still pending; a retry after the store heals succeeds.
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, payment.StateAwaitingConfirmation, r.State())
	store.err = nil
	_, err = r.Confirm(context.Background())
	require.NoError(t, err)
}

func TestCancelLeavesNoTrace(t *testing.T) {
	c := scenarioCart(t)
	store := &memRecorder{}
	r := newReconciler(c, store)

	_, err := r.Process(history.MethodCheck, 0)
	require.NoError(t, err)
	r.Cancel()

	assert.Equal(t, payment.StateIdle, r.State())
	_, pending := r.Pending()
	assert.False(t, pending)
	assert.Empty(t, store.sales)
	assert.Equal(t, 2, c.Len())
}

func TestConfirmRejectsCartChangedSinceTender(t *testing.T) {
	c := scenarioCart(t)
	store := &memRecorder{}
	r := newReconciler(c, store)

	_, err := r.Process(history.MethodCash, 1000)
	require.NoError(t, err)

	_, err = c.AddItem("Juice", 500, 1)
	require.NoError(t, err)

	_, err = r.Confirm(context.Background())
	require.ErrorIs(t, err, payment.ErrInvalidState)
	assert.Empty(t, store.sales)
	assert.Equal(t, payment.StateIdle, r.State())
	_, pending := r.Pending()
	assert.False(t, pending)
}

func TestConfirmRejectsCartEmptiedSinceTender(t *testing.T) {
	c := scenarioCart(t)
	store := &memRecorder{}
	r := newReconciler(c, store)

	_, err := r.Process(history.MethodCard, 0)
	require.NoError(t, err)

	c.RemoveLastItem()
	c.RemoveLastItem()

	_, err = r.Confirm(context.Background())
	require.ErrorIs(t, err, payment.ErrInvalidState)
	assert.Empty(t, store.sales)
}
