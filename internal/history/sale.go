package history

import (
	"time"

	"github.com/noah-isme/backend-pos/internal/money"
)

// Method enumerates the accepted payment methods.
type Method string

const (
	MethodCash  Method = "cash"
	MethodCard  Method = "card"
	MethodCheck Method = "check"
)

// Valid reports whether the method is one of the accepted values.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodCheck:
		return true
	}
	return false
}

// SaleItem is the immutable snapshot of one cart line at confirmation time.
type SaleItem struct {
	Name      string      `json:"name"`
	UnitPrice money.Money `json:"unitPrice"`
	Qty       int         `json:"qty"`
	LineTotal money.Money `json:"lineTotal"`
}

// Sale is a finalized transaction. Created exactly once per confirmed payment
// and never mutated afterwards. CashReceived and ChangeGiven are set only for
// cash payments.
type Sale struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Items         []SaleItem  `json:"items"`
	Subtotal      money.Money `json:"subtotal"`
	Tax           money.Money `json:"tax"`
	Discount      money.Money `json:"discount"`
	Total         money.Money `json:"total"`
	PaymentMethod Method      `json:"paymentMethod"`
	CashReceived  *money.Money `json:"cashReceived,omitempty"`
	ChangeGiven   *money.Money `json:"changeGiven,omitempty"`
}

// DailySummary aggregates the sales of one local calendar date.
type DailySummary struct {
	Date  string      `json:"date"`
	Count int         `json:"count"`
	Total money.Money `json:"total"`
}
