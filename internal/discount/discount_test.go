package discount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/discount"
)

func cartWithSubtotal(t *testing.T, cents int64) *cart.Cart {
	t.Helper()
	c := cart.New(2000)
	_, err := c.AddItem("article", cents, 1)
	require.NoError(t, err)
	return c
}

func TestApplyPercent(t *testing.T) {
	c := cartWithSubtotal(t, 800)
	var eng discount.Engine

	require.NoError(t, eng.ApplyPercent(c, 1000)) // 10%
	totals := c.Totals()
	assert.Equal(t, int64(80), totals.Discount)
	assert.Equal(t, int64(880), totals.Total)
	assert.Equal(t, cart.DiscountPercent, c.Discount().Kind)
	assert.Equal(t, 1000, c.Discount().PercentBps)
}

func TestApplyPercentBounds(t *testing.T) {
	c := cartWithSubtotal(t, 800)
	var eng discount.Engine

	require.ErrorIs(t, eng.ApplyPercent(c, 0), discount.ErrInvalidInput)
	require.ErrorIs(t, eng.ApplyPercent(c, -500), discount.ErrInvalidInput)
	require.ErrorIs(t, eng.ApplyPercent(c, 10001), discount.ErrInvalidInput)
	assert.Equal(t, int64(0), c.Totals().Discount)

	require.NoError(t, eng.ApplyPercent(c, 10000)) // full 100% is allowed
	assert.Equal(t, int64(800), c.Totals().Discount)
}

func TestApplyFixed(t *testing.T) {
	c := cartWithSubtotal(t, 800)
	var eng discount.Engine

	require.NoError(t, eng.ApplyFixed(c, 150))
	totals := c.Totals()
	assert.Equal(t, int64(150), totals.Discount)
	assert.Equal(t, int64(810), totals.Total)
	assert.Equal(t, cart.DiscountFixed, c.Discount().Kind)
}

func TestApplyFixedAboveSubtotalLeavesStateUnchanged(t *testing.T) {
	c := cartWithSubtotal(t, 800)
	var eng discount.Engine
	before := c.Totals()

	err := eng.ApplyFixed(c, 801)
	require.ErrorIs(t, err, discount.ErrInvalidInput)
	assert.Equal(t, before, c.Totals())
	assert.Equal(t, cart.DiscountNone, c.Discount().Kind)
}

func TestApplyFixedRejectsNonPositive(t *testing.T) {
	c := cartWithSubtotal(t, 800)
	var eng discount.Engine
	require.ErrorIs(t, eng.ApplyFixed(c, 0), discount.ErrInvalidInput)
	require.ErrorIs(t, eng.ApplyFixed(c, -10), discount.ErrInvalidInput)
}

func TestDiscountFrozenWhenCartGrows(t *testing.T) {
	c := cartWithSubtotal(t, 800)
	var eng discount.Engine
	require.NoError(t, eng.ApplyPercent(c, 1000))
	require.Equal(t, int64(80), c.Totals().Discount)

	// The percent discount does not rescale against the new subtotal.
	_, err := c.AddItem("extra", 1200, 1)
	require.NoError(t, err)
	totals := c.Totals()
	assert.Equal(t, int64(80), totals.Discount)
	assert.Equal(t, int64(2000), totals.Subtotal)
	assert.Equal(t, int64(2000+400-80), totals.Total)
}

func TestClear(t *testing.T) {
	c := cartWithSubtotal(t, 800)
	var eng discount.Engine
	require.NoError(t, eng.ApplyFixed(c, 100))

	eng.Clear(c)
	assert.Equal(t, cart.Discount{}, c.Discount())
	assert.Equal(t, int64(960), c.Totals().Total)
}
