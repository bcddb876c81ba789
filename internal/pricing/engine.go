package pricing

import "github.com/noah-isme/backend-pos/internal/money"

// Item describes a line item used for totals calculation.
type Item struct {
	Qty       int
	UnitPrice money.Money
}

// Summary aggregates the computed totals of a transaction.
type Summary struct {
	Subtotal money.Money
	Tax      money.Money
	Discount money.Money
	Total    money.Money
}

// Compute calculates register totals given the provided inputs. Tax applies to
// the full subtotal and the discount is subtracted afterwards, so a discount
// larger than subtotal plus tax yields a negative total. Clamping, if any, is
// a display concern.
func Compute(items []Item, discount money.Money, taxBps int) Summary {
	var subtotal money.Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += money.Money(it.Qty) * it.UnitPrice
	}
	if taxBps < 0 {
		taxBps = 0
	}
	tax := (subtotal * money.Money(taxBps)) / 10000
	total := subtotal + tax - discount
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    total,
	}
}
