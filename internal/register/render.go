package register

import (
	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/money"
	"github.com/noah-isme/backend-pos/internal/payment"
)

func (h *Handler) display(m money.Money) string {
	if h.Formatter != nil {
		return h.Formatter.Format(m)
	}
	return money.Decimal(m)
}

func (h *Handler) itemJSON(item cart.LineItem) map[string]any {
	return map[string]any{
		"id":               item.ID,
		"name":             item.Name,
		"unitPrice":        item.UnitPrice,
		"qty":              item.Qty,
		"lineTotal":        item.LineTotal,
		"lineTotalDisplay": h.display(item.LineTotal),
	}
}

func (h *Handler) cartJSON(snap cart.Snapshot) map[string]any {
	items := make([]map[string]any, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, h.itemJSON(it))
	}
	out := map[string]any{
		"items":      items,
		"taxRateBps": snap.TaxRateBps,
		"totals": map[string]any{
			"subtotal": snap.Totals.Subtotal,
			"tax":      snap.Totals.Tax,
			"discount": snap.Totals.Discount,
			"total":    snap.Totals.Total,
			"display": map[string]string{
				"subtotal": h.display(snap.Totals.Subtotal),
				"tax":      h.display(snap.Totals.Tax),
				"discount": h.display(snap.Totals.Discount),
				"total":    h.display(snap.Totals.Total),
			},
		},
	}
	if snap.Discount.Kind != cart.DiscountNone {
		d := map[string]any{
			"kind":   string(snap.Discount.Kind),
			"amount": snap.Discount.Amount,
		}
		if snap.Discount.Kind == cart.DiscountPercent {
			d["percentBps"] = snap.Discount.PercentBps
		}
		out["discount"] = d
	}
	return out
}

func (h *Handler) summaryJSON(s payment.Summary) map[string]any {
	out := map[string]any{
		"method":       string(s.Method),
		"subtotal":     s.Subtotal,
		"tax":          s.Tax,
		"discount":     s.Discount,
		"total":        s.Total,
		"totalDisplay": h.display(s.Total),
	}
	if s.Method == history.MethodCash {
		out["tendered"] = s.Tendered
		out["change"] = s.Change
		out["changeDisplay"] = h.display(s.Change)
	}
	return out
}

func (h *Handler) saleJSON(sale history.Sale) map[string]any {
	items := make([]map[string]any, 0, len(sale.Items))
	for _, it := range sale.Items {
		items = append(items, map[string]any{
			"name":      it.Name,
			"unitPrice": it.UnitPrice,
			"qty":       it.Qty,
			"lineTotal": it.LineTotal,
		})
	}
	out := map[string]any{
		"id":            sale.ID,
		"timestamp":     sale.Timestamp,
		"items":         items,
		"subtotal":      sale.Subtotal,
		"tax":           sale.Tax,
		"discount":      sale.Discount,
		"total":         sale.Total,
		"totalDisplay":  h.display(sale.Total),
		"paymentMethod": string(sale.PaymentMethod),
	}
	if sale.CashReceived != nil {
		out["cashReceived"] = *sale.CashReceived
	}
	if sale.ChangeGiven != nil {
		out["changeGiven"] = *sale.ChangeGiven
	}
	return out
}
