package discount

import (
	"errors"
	"fmt"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/money"
)

// ErrInvalidInput is returned when a discount value is out of bounds.
var ErrInvalidInput = errors.New("invalid input")

// Engine applies and clears discounts on a cart. The computed amount is frozen
// against the subtotal at application time: adding items afterwards does not
// rescale a percent discount. That matches the register this ledger replaces.
type Engine struct{}

// ApplyPercent sets a percentage discount expressed in basis points
// (10% = 1000 bps). Valid range is (0, 10000].
func (Engine) ApplyPercent(c *cart.Cart, pctBps int) error {
	if c == nil {
		return errors.New("cart not configured")
	}
	if pctBps <= 0 {
		return fmt.Errorf("discount percent must be positive: %w", ErrInvalidInput)
	}
	if pctBps > 10000 {
		return fmt.Errorf("discount percent cannot exceed 100: %w", ErrInvalidInput)
	}
	subtotal := c.Totals().Subtotal
	amount := (subtotal * money.Money(pctBps)) / 10000
	c.SetDiscount(cart.Discount{Kind: cart.DiscountPercent, PercentBps: pctBps, Amount: amount})
	return nil
}

// ApplyFixed sets an absolute discount. The amount must be positive and no
// larger than the current subtotal. The check is against the subtotal only;
// the resulting total is exact arithmetic and may differ from display clamping.
func (Engine) ApplyFixed(c *cart.Cart, amount money.Money) error {
	if c == nil {
		return errors.New("cart not configured")
	}
	if amount <= 0 {
		return fmt.Errorf("discount amount must be positive: %w", ErrInvalidInput)
	}
	if amount > c.Totals().Subtotal {
		return fmt.Errorf("discount cannot exceed subtotal: %w", ErrInvalidInput)
	}
	c.SetDiscount(cart.Discount{Kind: cart.DiscountFixed, Amount: amount})
	return nil
}

// Clear removes the active discount and recomputes totals.
func (Engine) Clear(c *cart.Cart) {
	if c == nil {
		return
	}
	c.SetDiscount(cart.Discount{})
}
