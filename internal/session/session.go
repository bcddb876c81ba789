package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/discount"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/payment"
)

// Config wires a register session.
type Config struct {
	TaxRateBps int
	Store      payment.Recorder
	Events     *events.Bus
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Session owns the single cart, discount engine and payment reconciler of a
// running register. The core is single-threaded; the mutex only serializes
// entry from the HTTP collaborator layer, which calls in from multiple
// goroutines.
type Session struct {
	mu         sync.Mutex
	cart       *cart.Cart
	discounts  discount.Engine
	reconciler *payment.Reconciler
	logger     zerolog.Logger
}

// New builds a session with a fresh cart.
func New(cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: history store is required")
	}
	c := cart.New(cfg.TaxRateBps)
	return &Session{
		cart: c,
		reconciler: &payment.Reconciler{
			Cart:   c,
			Store:  cfg.Store,
			Events: cfg.Events,
			Now:    cfg.Now,
		},
		logger: cfg.Logger,
	}, nil
}

// AddItem appends a line item to the cart. Any cart mutation voids a payment
// awaiting confirmation; the tender was quoted against totals that no longer
// hold, so the operator must process it again.
func (s *Session) AddItem(name string, unitPrice money.Money, qty int) (cart.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.cart.AddItem(name, unitPrice, qty)
	if err != nil {
		return cart.LineItem{}, err
	}
	s.reconciler.Cancel()
	s.logger.Debug().Str("item_id", item.ID).Str("name", item.Name).
		Int("qty", item.Qty).Int64("line_total", item.LineTotal).Msg("item added")
	return item, nil
}

// RemoveLastItem drops the most recently added item and voids any pending
// payment.
func (s *Session) RemoveLastItem() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveLastItem()
	s.reconciler.Cancel()
}

// RemoveItem deletes a line item by id and voids any pending payment.
func (s *Session) RemoveItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.RemoveItem(id); err != nil {
		return err
	}
	s.reconciler.Cancel()
	return nil
}

// ClearCart empties the cart and resets the discount.
func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.reconciler.Cancel()
}

// ApplyPercentDiscount applies a percent discount expressed in basis points
// and voids any pending payment.
func (s *Session) ApplyPercentDiscount(pctBps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.discounts.ApplyPercent(s.cart, pctBps); err != nil {
		return err
	}
	s.reconciler.Cancel()
	return nil
}

// ApplyFixedDiscount applies an absolute discount and voids any pending
// payment.
func (s *Session) ApplyFixedDiscount(amount money.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.discounts.ApplyFixed(s.cart, amount); err != nil {
		return err
	}
	s.reconciler.Cancel()
	return nil
}

// ClearDiscount removes the active discount and voids any pending payment.
func (s *Session) ClearDiscount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discounts.Clear(s.cart)
	s.reconciler.Cancel()
}

// ProcessPayment validates tender and moves the reconciler to
// AwaitingConfirmation.
func (s *Session) ProcessPayment(method history.Method, tendered money.Money) (payment.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Process(method, tendered)
}

// ConfirmPayment finalizes the pending payment into a recorded Sale and
// starts a new cart.
func (s *Session) ConfirmPayment(ctx context.Context) (history.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, err := s.reconciler.Confirm(ctx)
	if err != nil {
		return history.Sale{}, err
	}
	s.logger.Info().Str("sale_id", sale.ID).Str("method", string(sale.PaymentMethod)).
		Int64("total", sale.Total).Msg("sale recorded")
	return sale, nil
}

// CancelPayment abandons the pending payment.
func (s *Session) CancelPayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciler.Cancel()
}

// CartSnapshot returns a read-only copy of the cart for rendering.
func (s *Session) CartSnapshot() cart.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// PendingPayment returns the payment summary awaiting confirmation, if any.
func (s *Session) PendingPayment() (payment.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Pending()
}
