package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrNotFound indicates the referenced line item is not in the cart.
var ErrNotFound = errors.New("line item not found")

// ErrInvalidInput is returned when the provided item fields are invalid.
var ErrInvalidInput = errors.New("invalid input")

// DefaultTaxRateBps is the register's tax rate when none is configured (20% VAT).
const DefaultTaxRateBps = 2000

// DiscountKind tags the flavour of an applied discount.
type DiscountKind string

const (
	// DiscountNone means no discount is active.
	DiscountNone DiscountKind = ""
	// DiscountPercent is a percentage of the subtotal at application time.
	DiscountPercent DiscountKind = "percent"
	// DiscountFixed is an absolute amount.
	DiscountFixed DiscountKind = "fixed"
)

// Discount records the active discount. Amount is frozen against the subtotal
// at application time and does not rescale when items change afterwards.
type Discount struct {
	Kind       DiscountKind
	PercentBps int
	Amount     money.Money
}

// LineItem is one product entry in the transaction in progress. The cart owns
// its line items; Snapshot returns copies.
type LineItem struct {
	ID        string
	Name      string
	UnitPrice money.Money
	Qty       int
	LineTotal money.Money
}

// Totals holds the derived amounts recomputed after every mutation.
type Totals struct {
	Subtotal money.Money
	Tax      money.Money
	Discount money.Money
	Total    money.Money
}

// Cart is the ordered collection of line items for the transaction in
// progress. Insertion order is display and receipt order. Not safe for
// concurrent use; the owning session serializes access.
type Cart struct {
	TaxRateBps int
	NewID      func() string

	items    []LineItem
	discount Discount
	totals   Totals
}

// New constructs an empty cart with the given tax rate in basis points.
// Non-positive rates fall back to the default.
func New(taxRateBps int) *Cart {
	if taxRateBps <= 0 || taxRateBps > 10000 {
		taxRateBps = DefaultTaxRateBps
	}
	return &Cart{TaxRateBps: taxRateBps}
}

func (c *Cart) newID() string {
	if c != nil && c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

// AddItem validates and appends a line item, then recomputes totals.
func (c *Cart) AddItem(name string, unitPrice money.Money, qty int) (LineItem, error) {
	if c == nil {
		return LineItem{}, errors.New("cart not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return LineItem{}, fmt.Errorf("item name required: %w", ErrInvalidInput)
	}
	if unitPrice <= 0 {
		return LineItem{}, fmt.Errorf("unit price must be positive: %w", ErrInvalidInput)
	}
	if qty <= 0 {
		return LineItem{}, fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}
	item := LineItem{
		ID:        c.newID(),
		Name:      name,
		UnitPrice: unitPrice,
		Qty:       qty,
		LineTotal: unitPrice * money.Money(qty),
	}
	c.items = append(c.items, item)
	c.recompute()
	return item, nil
}

// RemoveLastItem drops the most recently added item. No-op on an empty cart.
func (c *Cart) RemoveLastItem() {
	if c == nil || len(c.items) == 0 {
		return
	}
	c.items = c.items[:len(c.items)-1]
	c.recompute()
}

// RemoveItem deletes the line item with the given id.
func (c *Cart) RemoveItem(id string) error {
	if c == nil {
		return errors.New("cart not configured")
	}
	for i, item := range c.items {
		if item.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.recompute()
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", id, ErrNotFound)
}

// Clear empties the cart and resets the discount. All totals become zero.
func (c *Cart) Clear() {
	if c == nil {
		return
	}
	c.items = nil
	c.discount = Discount{}
	c.recompute()
}

// SetDiscount installs the active discount and recomputes totals. Used by the
// discount engine after bounds validation.
func (c *Cart) SetDiscount(d Discount) {
	if c == nil {
		return
	}
	c.discount = d
	c.recompute()
}

// Len reports the number of line items.
func (c *Cart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	if c == nil {
		return nil
	}
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Discount returns the active discount.
func (c *Cart) Discount() Discount {
	if c == nil {
		return Discount{}
	}
	return c.discount
}

// Totals returns the derived amounts as of the last mutation.
func (c *Cart) Totals() Totals {
	if c == nil {
		return Totals{}
	}
	return c.totals
}

// Snapshot is a read-only copy of the cart for rendering.
type Snapshot struct {
	Items      []LineItem
	Discount   Discount
	Totals     Totals
	TaxRateBps int
}

// Snapshot copies the current cart state for the rendering boundary.
func (c *Cart) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		Items:      c.Items(),
		Discount:   c.discount,
		Totals:     c.totals,
		TaxRateBps: c.TaxRateBps,
	}
}

// recompute rewrites the derived totals from the current items and discount.
// Idempotent; called after every structural mutation.
func (c *Cart) recompute() {
	items := make([]pricing.Item, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, pricing.Item{Qty: it.Qty, UnitPrice: it.UnitPrice})
	}
	sum := pricing.Compute(items, c.discount.Amount, c.TaxRateBps)
	c.totals = Totals{
		Subtotal: sum.Subtotal,
		Tax:      sum.Tax,
		Discount: sum.Discount,
		Total:    sum.Total,
	}
}
