package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"aromabot/internal/domain"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.50", "12.5"},
		{"12,50", "12.5"},
		{"3", "3"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"R$ 10,00", "10"},
		{" 2,5 ", "2.5"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if err != nil {
			t.Errorf("ParseAmount(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1,2,3", "dez"} {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q) expected error", in)
		}
	}
}

func TestParseCost_UnknownIsNil(t *testing.T) {
	for _, in := range []string{"", "n/a", "0", "-4,00"} {
		if c := ParseCost(in); c != nil {
			t.Errorf("ParseCost(%q) = %s, want nil", in, c)
		}
	}
	if c := ParseCost("12,50"); c == nil || c.StringFixed(2) != "12.50" {
		t.Errorf("ParseCost(12,50) = %v", c)
	}
}

func TestParseMarkup_FailsClosed(t *testing.T) {
	for _, in := range []string{"tres", "", "0", "-1", "2x"} {
		_, err := ParseMarkup(in)
		if !errors.Is(err, domain.ErrInvalidMarkup) {
			t.Errorf("ParseMarkup(%q) err = %v, want ErrInvalidMarkup", in, err)
		}
	}
	m, err := ParseMarkup("2,5")
	if err != nil || !m.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("ParseMarkup(2,5) = %s, %v", m, err)
	}
}

func TestSellingPrice(t *testing.T) {
	divisor := decimal.RequireFromString(DefaultDivisor)

	tests := []struct {
		cost, markup, want string
	}{
		{"10.00", "3", "40.31"},
		{"12.50", "2", "33.59"},
		{"7.30", "2.5", "24.52"},
	}
	for _, tt := range tests {
		got, err := SellingPrice(decimal.RequireFromString(tt.cost), decimal.RequireFromString(tt.markup), divisor)
		if err != nil {
			t.Fatalf("SellingPrice(%s, %s): %v", tt.cost, tt.markup, err)
		}
		if got.StringFixed(2) != tt.want {
			t.Errorf("SellingPrice(%s, %s) = %s, want %s", tt.cost, tt.markup, got.StringFixed(2), tt.want)
		}
	}
}

func TestSellingPrice_RoundsOnce(t *testing.T) {
	// 1.004999999 must round to 1.00; an intermediate 8-place step would give 1.01.
	got, err := SellingPrice(decimal.RequireFromString("1.004999999"), decimal.NewFromInt(1), decimal.NewFromInt(1))
	if err != nil {
		t.Fatal(err)
	}
	if got.StringFixed(2) != "1.00" {
		t.Fatalf("expected 1.00, got %s", got.StringFixed(2))
	}
}

func TestSellingPrice_RejectsMissingCost(t *testing.T) {
	_, err := SellingPrice(decimal.Zero, decimal.NewFromInt(3), decimal.RequireFromString(DefaultDivisor))
	if !errors.Is(err, domain.ErrInvalidCost) {
		t.Fatalf("expected ErrInvalidCost, got %v", err)
	}
}

func TestFormatBRL(t *testing.T) {
	tests := map[string]string{
		"12.5":      "12,50",
		"40.3144":   "40,31",
		"1234.56":   "1.234,56",
		"1234567.8": "1.234.567,80",
		"0.5":       "0,50",
	}
	for in, want := range tests {
		if got := FormatBRL(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatBRL(%s) = %q, want %q", in, got, want)
		}
	}
}
