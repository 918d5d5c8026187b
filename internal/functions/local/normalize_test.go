package local

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"$1,234.56", ptr(1234.56)},
		{"1234.56 USD", ptr(1234.56)},
		{"1234.56", ptr(1234.56)},
		{"AED 2,500", ptr(2500)},
		{"₹ 10,000.5", ptr(10000.5)},
		{"Rs. 99", ptr(99)},
		{"-15", ptr(-15)},
		{"N/A", nil},
		{"", nil},
		{"TBD", nil},
	}
	for _, c := range cases {
		got := NormalizeAmount(c.in)
		switch {
		case c.want == nil && got != nil:
			t.Errorf("NormalizeAmount(%q) = %v, want nil", c.in, *got)
		case c.want != nil && (got == nil || *got != *c.want):
			t.Errorf("NormalizeAmount(%q) = %v, want %v", c.in, got, *c.want)
		}
	}
}

func TestProperty_AmountIgnoresCurrencyAndSeparators(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("symbol_code_and_grouping_are_stripped", prop.ForAll(
		func(cents int64, code string) bool {
			plain := fmt.Sprintf("%d.%02d", cents/100, cents%100)
			want, _ := strconv.ParseFloat(plain, 64)
			for _, in := range []string{"$" + group(cents/100) + fmt.Sprintf(".%02d", cents%100), plain + " " + code, code + " " + plain} {
				got := NormalizeAmount(in)
				if got == nil || *got != want {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1_000_000_000),
		gen.OneConstOf("USD", "EUR", "AED", "INR", "GBP", "SAR"),
	))

	properties.TestingRun(t)
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2025-03-01":    "2025-03-01",
		"03/15/2025":    "2025-03-15",
		"15/03/2025":    "2025-03-15",
		"March 5, 2025": "2025-03-05",
	}
	for in, want := range cases {
		got := NormalizeDate(in)
		if got == nil || *got != want {
			t.Errorf("NormalizeDate(%q) = %v, want %s", in, got, want)
		}
	}
	for _, in := range []string{"", "soon", "within two weeks", "20250101", "2025-13-45", "2025-02-30"} {
		if got := NormalizeDate(in); got != nil {
			t.Errorf("NormalizeDate(%q) = %s, want nil", in, *got)
		}
	}
}

func TestNormalizeAmountValue(t *testing.T) {
	if got := NormalizeAmountValue(float64(12.5)); got == nil || *got != 12.5 {
		t.Errorf("number passthrough failed: %v", got)
	}
	if got := NormalizeAmountValue("USD 7"); got == nil || *got != 7 {
		t.Errorf("string amount failed: %v", got)
	}
	if got := NormalizeAmountValue(true); got != nil {
		t.Errorf("bool should be nil, got %v", *got)
	}
}

func group(n int64) string {
	s := strconv.FormatInt(n, 10)
	out := ""
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += ","
		}
		out += string(r)
	}
	return out
}

func ptr(f float64) *float64 { return &f }
