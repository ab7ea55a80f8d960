package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseDollarsToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"$1", 100, true},
		{"$12.50", 1250, true},
		{"12.5", 1250, true},
		{"$1,234.56", 123456, true},
		{"1,000,000", 100000000, true},
		{"$0.00", 0, true},
		{" $9.99 ", 999, true},
		{"12.345", 0, false},
		{"-1", 0, false},
		{"$", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1.", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDollarsToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:         "$0.00",
		5:         "$0.05",
		999:       "$9.99",
		11988:     "$119.88",
		123456:    "$1,234.56",
		100000000: "$1,000,000.00",
		-250:      "-$2.50",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	m := Money{Cents: 999}
	if got := m.Times(12); got.Cents != 11988 {
		t.Fatalf("Times(12) = %d", got.Cents)
	}
	if got := m.Add(Money{Cents: 1}); got.Cents != 1000 {
		t.Fatalf("Add = %d", got.Cents)
	}
	if m.Dollars() != 9.99 {
		t.Fatalf("Dollars = %v", m.Dollars())
	}
}

func TestMoneyArithmeticSaturates(t *testing.T) {
	big := Money{Cents: 1234567890123456700}

	tests := []struct {
		name string
		got  Money
		want int64
	}{
		{"times overflows up", big.Times(12), math.MaxInt64},
		{"times overflows down", big.Times(-12), math.MinInt64},
		{"times exact", Money{Cents: 999}.Times(12), 11988},
		{"times zero", big.Times(0), 0},
		{"add overflows up", Money{Cents: math.MaxInt64 - 1}.Add(Money{Cents: 2}), math.MaxInt64},
		{"add overflows down", Money{Cents: math.MinInt64 + 1}.Add(Money{Cents: -2}), math.MinInt64},
		{"add saturated stays saturated", big.Times(12).Add(Money{Cents: 999}), math.MaxInt64},
		{"add exact", Money{Cents: 999}.Add(Money{Cents: 1}), 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Cents != tt.want {
				t.Errorf("got %d, want %d", tt.got.Cents, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money  `json:"a"`
		B *Money `json:"b"`
	}{A: Money{Cents: 123456}, B: &Money{Cents: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":1234.56,"b":0.05}` {
		t.Fatalf("unexpected json: %s", b)
	}

	var m Money
	if err := json.Unmarshal([]byte(`12.5`), &m); err != nil {
		t.Fatal(err)
	}
	if m.Cents != 1250 {
		t.Fatalf("expected 1250 cents, got %d", m.Cents)
	}
}
