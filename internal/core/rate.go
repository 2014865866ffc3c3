package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// ConversionSnapshot is a frozen ARS/USD conversion recorded at transaction
// time. It is immutable once created and is never recomputed retroactively,
// even when the operator later updates the global rate.
type ConversionSnapshot struct {
	SourceCurrency  Currency        `json:"source_currency"`
	SourceAmount    decimal.Decimal `json:"source_amount"`
	RateAtMoment    decimal.Decimal `json:"rate_at_moment"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
}

// SnapshotFromUSD freezes a USD amount into its ARS equivalent at the given
// rate: converted = round2(usd * rate). The conversion is computed from the
// rounded stored fields, never the raw inputs, so a persisted snapshot is
// always internally consistent.
func SnapshotFromUSD(usdAmount, rate decimal.Decimal) (ConversionSnapshot, error) {
	source := Round2(usdAmount)
	if !source.IsPositive() {
		return ConversionSnapshot{}, ErrInvalidAmount
	}
	atMoment := Round2(rate)
	if !atMoment.IsPositive() {
		return ConversionSnapshot{}, ErrInvalidRate
	}
	return ConversionSnapshot{
		SourceCurrency:  USD,
		SourceAmount:    source,
		RateAtMoment:    atMoment,
		ConvertedAmount: Round2(source.Mul(atMoment)),
	}, nil
}

// SnapshotFromARS freezes an ARS amount into its USD equivalent at the given
// rate: converted = round2(ars / rate), computed from the rounded stored
// fields like SnapshotFromUSD.
func SnapshotFromARS(arsAmount, rate decimal.Decimal) (ConversionSnapshot, error) {
	source := Round2(arsAmount)
	if !source.IsPositive() {
		return ConversionSnapshot{}, ErrInvalidAmount
	}
	atMoment := Round2(rate)
	if !atMoment.IsPositive() {
		return ConversionSnapshot{}, ErrInvalidRate
	}
	return ConversionSnapshot{
		SourceCurrency:  ARS,
		SourceAmount:    source,
		RateAtMoment:    atMoment,
		ConvertedAmount: Round2(source.Div(atMoment)),
	}, nil
}

// Amount returns the snapshot as a dual-sided MoneyAmount.
func (s ConversionSnapshot) Amount() MoneyAmount {
	if s.SourceCurrency == USD {
		return PairAmount(s.ConvertedAmount, s.SourceAmount)
	}
	return PairAmount(s.SourceAmount, s.ConvertedAmount)
}

// RateProvider supplies the operator-entered ARS-per-USD rate. It is an
// explicit capability passed to whoever needs a snapshot; the engine keeps no
// global rate state. The rate is persisted, not fetched from a market feed.
type RateProvider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}
