package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/history"
	"github.com/noah-isme/backend-pos/internal/money"
)

const width = 32

// Renderer produces plain-text tickets from cart snapshots and recorded
// sales. It does no printing I/O; the collaborator layer owns the printer.
type Renderer struct {
	Header    string
	Footer    string
	Formatter *money.Formatter
}

func (r Renderer) format(m money.Money) string {
	if r.Formatter != nil {
		return r.Formatter.Format(m)
	}
	return money.Decimal(m)
}

// RenderCart renders the transaction in progress.
func (r Renderer) RenderCart(snap cart.Snapshot, at time.Time) string {
	var b strings.Builder
	r.writeHeader(&b)
	for _, it := range snap.Items {
		writeItem(&b, it.Name, it.Qty, r.format(it.UnitPrice), r.format(it.LineTotal))
	}
	r.writeTotals(&b, snap.Totals.Subtotal, snap.Totals.Tax, snap.TaxRateBps, snap.Totals.Discount, snap.Totals.Total)
	r.writeFooter(&b, at)
	return b.String()
}

// RenderSale renders a recorded sale, including the tender lines for cash.
func (r Renderer) RenderSale(sale history.Sale, taxRateBps int) string {
	var b strings.Builder
	r.writeHeader(&b)
	for _, it := range sale.Items {
		writeItem(&b, it.Name, it.Qty, r.format(it.UnitPrice), r.format(it.LineTotal))
	}
	r.writeTotals(&b, sale.Subtotal, sale.Tax, taxRateBps, sale.Discount, sale.Total)
	writeRule(&b)
	writeLine(&b, "Payment", paymentLabel(sale.PaymentMethod))
	if sale.CashReceived != nil {
		writeLine(&b, "Received", r.format(*sale.CashReceived))
	}
	if sale.ChangeGiven != nil {
		writeLine(&b, "Change", r.format(*sale.ChangeGiven))
	}
	r.writeFooter(&b, sale.Timestamp)
	return b.String()
}

func (r Renderer) writeHeader(b *strings.Builder) {
	header := r.Header
	if header == "" {
		header = "RECEIPT"
	}
	writeCentered(b, header)
	writeRule(b)
}

func (r Renderer) writeTotals(b *strings.Builder, subtotal, tax money.Money, taxRateBps int, discount, total money.Money) {
	writeRule(b)
	writeLine(b, "Subtotal", r.format(subtotal))
	writeLine(b, fmt.Sprintf("Tax (%s%%)", trimPercent(taxRateBps)), r.format(tax))
	if discount > 0 {
		writeLine(b, "Discount", "-"+r.format(discount))
	}
	writeLine(b, "TOTAL", r.format(total))
}

func (r Renderer) writeFooter(b *strings.Builder, at time.Time) {
	writeRule(b)
	writeCentered(b, at.Format("02/01/2006 15:04:05"))
	footer := r.Footer
	if footer == "" {
		footer = "Thank you for your visit!"
	}
	writeCentered(b, footer)
}

func writeItem(b *strings.Builder, name string, qty int, unit, total string) {
	b.WriteString(name)
	b.WriteByte('\n')
	writeLine(b, fmt.Sprintf("  %d x %s", qty, unit), total)
}

func writeLine(b *strings.Builder, left, right string) {
	pad := width - len([]rune(left)) - len([]rune(right))
	if pad < 1 {
		pad = 1
	}
	b.WriteString(left)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(right)
	b.WriteByte('\n')
}

func writeCentered(b *strings.Builder, text string) {
	pad := (width - len([]rune(text))) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(text)
	b.WriteByte('\n')
}

func writeRule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", width))
	b.WriteByte('\n')
}

// trimPercent renders basis points as a percent string without trailing zeros,
// e.g. 2000 -> "20", 550 -> "5.5".
func trimPercent(bps int) string {
	whole := bps / 100
	frac := bps % 100
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := fmt.Sprintf("%d.%02d", whole, frac)
	return strings.TrimRight(s, "0")
}

func paymentLabel(m history.Method) string {
	switch m {
	case history.MethodCash:
		return "Cash"
	case history.MethodCard:
		return "Card"
	case history.MethodCheck:
		return "Check"
	}
	return string(m)
}
