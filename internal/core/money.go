// Package core implements the obligation and income ledger engine: money and
// conversion snapshots, business-day scheduling, income installments, the due
// item state machine and the period aggregator. Everything here is pure; all
// persistence happens through the Transaction intents the engine returns.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency identifies one side of the dual-currency ledger.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

// Valid reports whether c is one of the two supported currencies.
func (c Currency) Valid() bool { return c == ARS || c == USD }

// MoneyAmount is a dual-currency amount. At least one side must be a positive
// value; the other may be absent. Both sides are only ever present together
// with a recorded ConversionSnapshot.
type MoneyAmount struct {
	ARS *decimal.Decimal `json:"amount_ars,omitempty"`
	USD *decimal.Decimal `json:"amount_usd,omitempty"`
}

// ARSAmount builds a MoneyAmount with only the ARS side set.
func ARSAmount(v decimal.Decimal) MoneyAmount { return MoneyAmount{ARS: &v} }

// USDAmount builds a MoneyAmount with only the USD side set.
func USDAmount(v decimal.Decimal) MoneyAmount { return MoneyAmount{USD: &v} }

// PairAmount builds a MoneyAmount carrying both sides of a conversion.
func PairAmount(ars, usd decimal.Decimal) MoneyAmount {
	return MoneyAmount{ARS: &ars, USD: &usd}
}

// Validate checks the at-least-one-positive-side invariant. A side that is
// present but not positive is rejected outright.
func (m MoneyAmount) Validate() error {
	if m.ARS == nil && m.USD == nil {
		return ErrInvalidAmount
	}
	if m.ARS != nil && !m.ARS.IsPositive() {
		return ErrInvalidAmount
	}
	if m.USD != nil && !m.USD.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Value returns the single number a record "carries": the ARS side when set,
// otherwise the USD side. The aggregator sums records this way, matching how
// the dashboard displays them.
func (m MoneyAmount) Value() decimal.Decimal {
	switch {
	case m.ARS != nil:
		return *m.ARS
	case m.USD != nil:
		return *m.USD
	default:
		return decimal.Zero
	}
}

// Round2 applies the engine's single rounding policy: half away from zero to
// two decimal places. It is applied once, at snapshot creation, never again
// on display.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// ParseDecimal parses a positive decimal amount from user input. It accepts
// both dot and comma decimal separators and rejects signs, zero and garbage.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Display formats an amount in the given currency for logs and export rows.
func Display(v decimal.Decimal, c Currency) string {
	return money.New(Round2(v).Shift(2).IntPart(), string(c)).Display()
}

// String renders the amount with whichever sides are present.
func (m MoneyAmount) String() string {
	switch {
	case m.ARS != nil && m.USD != nil:
		return Display(*m.ARS, ARS) + " / " + Display(*m.USD, USD)
	case m.ARS != nil:
		return Display(*m.ARS, ARS)
	case m.USD != nil:
		return Display(*m.USD, USD)
	default:
		return "-"
	}
}
