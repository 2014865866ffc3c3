package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSnapshotFromUSD(t *testing.T) {
	snap, err := SnapshotFromUSD(decimal.NewFromInt(100), decimal.RequireFromString("1050.50"))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if snap.SourceCurrency != USD {
		t.Fatalf("expected USD source, got %s", snap.SourceCurrency)
	}
	if want := decimal.RequireFromString("105050"); !snap.ConvertedAmount.Equal(want) {
		t.Fatalf("expected converted %s, got %s", want, snap.ConvertedAmount)
	}

	if _, err := SnapshotFromUSD(decimal.Zero, decimal.NewFromInt(1000)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount expected ErrInvalidAmount, got %v", err)
	}
	if _, err := SnapshotFromUSD(decimal.NewFromInt(10), decimal.Zero); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("zero rate expected ErrInvalidRate, got %v", err)
	}
	if _, err := SnapshotFromUSD(decimal.NewFromInt(10), decimal.NewFromInt(-3)); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("negative rate expected ErrInvalidRate, got %v", err)
	}
}

func TestSnapshotFromARS(t *testing.T) {
	snap, err := SnapshotFromARS(decimal.NewFromInt(105000), decimal.NewFromInt(1050))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := decimal.NewFromInt(100); !snap.ConvertedAmount.Equal(want) {
		t.Fatalf("expected converted %s, got %s", want, snap.ConvertedAmount)
	}
	if _, err := SnapshotFromARS(decimal.NewFromInt(-1), decimal.NewFromInt(1000)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative amount expected ErrInvalidAmount, got %v", err)
	}
}

// A snapshot built from sub-cent inputs must still satisfy
// converted == round2(source * rate) over its own stored fields.
func TestSnapshotConsistentAfterRounding(t *testing.T) {
	snap, err := SnapshotFromUSD(decimal.RequireFromString("10.005"), decimal.NewFromInt(3))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := decimal.RequireFromString("10.01"); !snap.SourceAmount.Equal(want) {
		t.Fatalf("expected source %s, got %s", want, snap.SourceAmount)
	}
	if want := decimal.RequireFromString("30.03"); !snap.ConvertedAmount.Equal(want) {
		t.Fatalf("expected converted %s, got %s", want, snap.ConvertedAmount)
	}
	if want := Round2(snap.SourceAmount.Mul(snap.RateAtMoment)); !snap.ConvertedAmount.Equal(want) {
		t.Fatalf("stored fields disagree: converted %s, source*rate rounds to %s", snap.ConvertedAmount, want)
	}

	snap, err = SnapshotFromARS(decimal.RequireFromString("10.005"), decimal.RequireFromString("3.004"))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if want := decimal.RequireFromString("3"); !snap.RateAtMoment.Equal(want) {
		t.Fatalf("expected rate %s, got %s", want, snap.RateAtMoment)
	}
	if want := Round2(snap.SourceAmount.Div(snap.RateAtMoment)); !snap.ConvertedAmount.Equal(want) {
		t.Fatalf("stored fields disagree: converted %s, source/rate rounds to %s", snap.ConvertedAmount, want)
	}
}

// A rate that rounds to zero cents cannot produce a usable snapshot.
func TestSnapshotRejectsVanishingRate(t *testing.T) {
	if _, err := SnapshotFromARS(decimal.NewFromInt(100), decimal.RequireFromString("0.004")); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	if _, err := SnapshotFromUSD(decimal.RequireFromString("0.004"), decimal.NewFromInt(1000)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

// Converting USD to ARS and back must land within one cent of the original.
func TestSnapshotRoundTrip(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	amounts := []string{"1", "3.33", "99.99", "100.01", "1234.56", "7"}
	rates := []string{"350", "1050.50", "999.99", "1", "1234.25"}

	for _, a := range amounts {
		for _, r := range rates {
			amount := decimal.RequireFromString(a)
			rate := decimal.RequireFromString(r)

			toARS, err := SnapshotFromUSD(amount, rate)
			if err != nil {
				t.Fatalf("usd %s rate %s: %v", a, r, err)
			}
			back, err := SnapshotFromARS(toARS.ConvertedAmount, rate)
			if err != nil {
				t.Fatalf("ars %s rate %s: %v", toARS.ConvertedAmount, r, err)
			}
			diff := back.ConvertedAmount.Sub(amount).Abs()
			if diff.GreaterThan(tolerance) {
				t.Fatalf("round trip usd %s rate %s drifted by %s", a, r, diff)
			}
		}
	}
}

func TestSnapshotAmountSides(t *testing.T) {
	snap, err := SnapshotFromUSD(decimal.NewFromInt(10), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	pair := snap.Amount()
	if pair.ARS == nil || pair.USD == nil {
		t.Fatalf("expected both sides present")
	}
	if !pair.USD.Equal(decimal.NewFromInt(10)) || !pair.ARS.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected pair %s", pair)
	}
}
