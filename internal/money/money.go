package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a monetary amount in minor units (cents). All ledger arithmetic
// stays integral; conversion to a decimal string happens only at the
// formatting boundary.
type Money = int64

// ErrInvalidAmount is returned when a decimal string cannot be parsed into minor units.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseDecimal converts a 2-decimal string such as "2.50" into minor units.
// A comma decimal separator is accepted alongside the dot.
func ParseDecimal(s string) (Money, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if trimmed == "" {
		return 0, fmt.Errorf("empty value: %w", ErrInvalidAmount)
	}
	negative := false
	if strings.HasPrefix(trimmed, "-") {
		negative = true
		trimmed = trimmed[1:]
	}
	whole := trimmed
	frac := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		whole = trimmed[:idx]
		frac = trimmed[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("more than two decimal places in %q: %w", s, ErrInvalidAmount)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	// Both parts must be bare digits; ParseInt alone would let a sign
	// through ("1.-5").
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidAmount)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidAmount)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, ErrInvalidAmount)
	}
	value := units*100 + cents
	if negative {
		value = -value
	}
	return value, nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Decimal renders the amount as a plain 2-decimal string, e.g. -120 -> "-1.20".
func Decimal(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

// Formatter renders amounts in a single locale's currency format.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter builds a Formatter for the given ISO currency code and BCP 47
// locale tag. Unknown values fall back to EUR and French, the register's
// shipping defaults.
func NewFormatter(code, locale string) *Formatter {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.EUR
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	return &Formatter{unit: unit, printer: message.NewPrinter(tag)}
}

// Format renders the amount with the locale's currency symbol placement.
func (f *Formatter) Format(m Money) string {
	if f == nil || f.printer == nil {
		return Decimal(m)
	}
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	amount := f.unit.Amount(float64(m) / 100)
	return sign + f.printer.Sprint(currency.Symbol(amount))
}
