package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"1250000.75", "1250000.75", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDecimal(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct{ in, out string }{
		{"50.005", "50.01"},
		{"50.004", "50"},
		{"12.345", "12.35"},
		{"12.344", "12.34"},
		{"1000", "1000"},
	}
	for _, tc := range cases {
		got := Round2(decimal.RequireFromString(tc.in))
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("Round2(%s) expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestMoneyAmountValidate(t *testing.T) {
	pos := decimal.NewFromInt(100)
	neg := decimal.NewFromInt(-5)
	zero := decimal.Zero

	if err := ARSAmount(pos).Validate(); err != nil {
		t.Fatalf("ARS only expected ok, got %v", err)
	}
	if err := USDAmount(pos).Validate(); err != nil {
		t.Fatalf("USD only expected ok, got %v", err)
	}
	if err := PairAmount(pos, pos).Validate(); err != nil {
		t.Fatalf("pair expected ok, got %v", err)
	}
	if err := (MoneyAmount{}).Validate(); err == nil {
		t.Fatalf("both absent expected error")
	}
	if err := ARSAmount(zero).Validate(); err == nil {
		t.Fatalf("zero ARS expected error")
	}
	if err := USDAmount(neg).Validate(); err == nil {
		t.Fatalf("negative USD expected error")
	}
}

func TestMoneyAmountValue(t *testing.T) {
	ars := decimal.NewFromInt(1000)
	usd := decimal.NewFromInt(3)
	if got := PairAmount(ars, usd).Value(); !got.Equal(ars) {
		t.Fatalf("pair should prefer ARS side, got %s", got)
	}
	if got := USDAmount(usd).Value(); !got.Equal(usd) {
		t.Fatalf("USD only should return USD side, got %s", got)
	}
	if got := (MoneyAmount{}).Value(); !got.IsZero() {
		t.Fatalf("empty amount should be zero, got %s", got)
	}
}
