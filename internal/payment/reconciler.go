package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/money"
)

// ErrEmptyCart is returned when payment is requested for a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInvalidTotal is returned when the cart total is not positive.
var ErrInvalidTotal = errors.New("total must be positive")

// ErrInsufficientFunds is returned when a cash tender is below the total.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidState is returned when Confirm is called without a pending payment.
var ErrInvalidState = errors.New("no payment awaiting confirmation")

// ErrInvalidMethod is returned for an unknown payment method.
var ErrInvalidMethod = errors.New("invalid payment method")

// State enumerates the reconciler's positions.
type State int

const (
	// StateIdle means no payment is in flight.
	StateIdle State = iota
	// StateAwaitingConfirmation means Process succeeded and the sale is
	// pending the operator's confirmation.
	StateAwaitingConfirmation
)

// Summary is the payment proposal returned by Process. Tendered and Change are
// meaningful only for cash.
type Summary struct {
	Method   history.Method
	Subtotal money.Money
	Tax      money.Money
	Discount money.Money
	Total    money.Money
	Tendered money.Money
	Change   money.Money
}

// Recorder is the slice of the history store the reconciler needs.
type Recorder interface {
	Record(ctx context.Context, sale history.Sale) error
}

// Reconciler validates tender against the cart total and, on confirmation,
// turns the cart into an immutable Sale. Not safe for concurrent use; the
// owning session serializes access.
type Reconciler struct {
	Cart   *cart.Cart
	Store  Recorder
	Events *events.Bus
	Now    func() time.Time
	NewID  func() string

	state   State
	pending Summary
}

func (r *Reconciler) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) newID() string {
	if r != nil && r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

// State reports the current position of the state machine.
func (r *Reconciler) State() State {
	if r == nil {
		return StateIdle
	}
	return r.state
}

// Pending returns the payment summary awaiting confirmation, if any.
func (r *Reconciler) Pending() (Summary, bool) {
	if r == nil || r.state != StateAwaitingConfirmation {
		return Summary{}, false
	}
	return r.pending, true
}

// Process validates the payment preconditions and transitions to
// AwaitingConfirmation. Nothing is written to history yet. For cash the
// tendered amount must cover the total; change is computed here. A repeated
// Process replaces the pending summary.
func (r *Reconciler) Process(method history.Method, tendered money.Money) (Summary, error) {
	if r == nil || r.Cart == nil {
		return Summary{}, errors.New("payment reconciler not configured")
	}
	if !method.Valid() {
		return Summary{}, fmt.Errorf("method %q: %w", method, ErrInvalidMethod)
	}
	if r.Cart.Len() == 0 {
		return Summary{}, ErrEmptyCart
	}
	totals := r.Cart.Totals()
	if totals.Total <= 0 {
		return Summary{}, fmt.Errorf("total %d: %w", totals.Total, ErrInvalidTotal)
	}
	summary := Summary{
		Method:   method,
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Discount: totals.Discount,
		Total:    totals.Total,
	}
	if method == history.MethodCash {
		if tendered < totals.Total {
			return Summary{}, fmt.Errorf("tendered %d below total %d: %w", tendered, totals.Total, ErrInsufficientFunds)
		}
		summary.Tendered = tendered
		summary.Change = tendered - totals.Total
	}
	r.pending = summary
	r.state = StateAwaitingConfirmation
	return summary, nil
}

// Confirm snapshots the cart into a Sale, appends it to history, empties the
// cart and returns to Idle. The cart totals must still match the pending
// summary; a cart that mutated since Process voids the tender instead of
// recording a Sale whose items disagree with its totals. A persistence
// failure propagates and leaves the pending payment confirmable; the
// in-memory cart stays untouched.
func (r *Reconciler) Confirm(ctx context.Context) (history.Sale, error) {
	if r == nil || r.Cart == nil {
		return history.Sale{}, errors.New("payment reconciler not configured")
	}
	if r.state != StateAwaitingConfirmation {
		return history.Sale{}, ErrInvalidState
	}
	if totals := r.Cart.Totals(); totals.Subtotal != r.pending.Subtotal ||
		totals.Tax != r.pending.Tax ||
		totals.Discount != r.pending.Discount ||
		totals.Total != r.pending.Total {
		r.Cancel()
		return history.Sale{}, fmt.Errorf("cart changed since tender: %w", ErrInvalidState)
	}
	if r.Store == nil {
		return history.Sale{}, errors.New("history store not configured")
	}
	sale := r.buildSale()
	if err := r.Store.Record(ctx, sale); err != nil {
		return history.Sale{}, fmt.Errorf("record sale: %w", err)
	}
	r.Cart.Clear()
	r.state = StateIdle
	r.pending = Summary{}
	if r.Events != nil {
		_, _ = r.Events.Emit(ctx, events.TopicSaleRecorded, map[string]any{
			"saleId": sale.ID,
			"method": string(sale.PaymentMethod),
			"total":  sale.Total,
		})
	}
	return sale, nil
}

// Cancel abandons the pending payment without a history side effect.
func (r *Reconciler) Cancel() {
	if r == nil {
		return
	}
	r.state = StateIdle
	r.pending = Summary{}
}

func (r *Reconciler) buildSale() history.Sale {
	items := r.Cart.Items()
	saleItems := make([]history.SaleItem, 0, len(items))
	for _, it := range items {
		saleItems = append(saleItems, history.SaleItem{
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Qty:       it.Qty,
			LineTotal: it.LineTotal,
		})
	}
	sale := history.Sale{
		ID:            r.newID(),
		Timestamp:     r.now(),
		Items:         saleItems,
		Subtotal:      r.pending.Subtotal,
		Tax:           r.pending.Tax,
		Discount:      r.pending.Discount,
		Total:         r.pending.Total,
		PaymentMethod: r.pending.Method,
	}
	if r.pending.Method == history.MethodCash {
		tendered := r.pending.Tendered
		change := r.pending.Change
		sale.CashReceived = &tendered
		sale.ChangeGiven = &change
	}
	return sale
}
