package email

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPeso(t *testing.T) {
	cases := []struct {
		in       interface{}
		expected string
	}{
		{float64(1234.5), "₱1,234.50"},
		{decimal.NewFromInt(1000000), "₱1,000,000.00"},
		{float64(0), "₱0.00"},
		{float64(-250.75), "₱-250.75"},
		{"999.9", "₱999.90"},
		{nil, "—"},
		{"not a number", "—"},
	}
	for _, tc := range cases {
		if got := peso(tc.in); got != tc.expected {
			t.Fatalf("peso(%v) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := percent(float64(300), float64(900)); got != "33.33%" {
		t.Fatalf("expected 33.33%%, got %q", got)
	}
	// Division by zero and missing operands degrade to the placeholder.
	if got := percent(float64(300), float64(0)); got != "—" {
		t.Fatalf("zero base must degrade, got %q", got)
	}
	if got := percent(nil, float64(900)); got != "—" {
		t.Fatalf("nil value must degrade, got %q", got)
	}
}
