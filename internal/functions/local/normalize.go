package local

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	currencyTokens = regexp.MustCompile(`(?i)(rupees|rupee|dirham|aed|inr|usd|eur|gbp|dhs|sar|rs|\$|€|£|₹)\.?`)
	nonNumeric     = regexp.MustCompile(`[^\d.\-]`)
	embeddedNumber = regexp.MustCompile(`-?\d+(\.\d+)?`)
	isoDate        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	onlyDigits     = regexp.MustCompile(`^\d+$`)
)

// NormalizeAmount turns a money string into a number.
// Currency codes and symbols are stripped, not converted. Returns nil when no number is present.
func NormalizeAmount(value string) *float64 {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	s = currencyTokens.ReplaceAllString(s, "")
	s = strings.NewReplacer(",", "", " ", "", "\t", "", "\u00a0", "").Replace(s)
	s = nonNumeric.ReplaceAllString(s, "")
	if !strings.ContainsAny(s, "0123456789") {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &f
	}
	m := embeddedNumber.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}

// NormalizeAmountValue accepts the loosely typed values a model may return
func NormalizeAmountValue(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		return NormalizeAmount(t)
	default:
		return nil
	}
}

// NormalizeDate returns an ISO YYYY-MM-DD date or nil.
// ISO input passes through; otherwise month-first is tried before day-first.
func NormalizeDate(value string) *string {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	if isoDate.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return nil
		}
		return &s
	}
	// bare digit runs would parse as unix timestamps
	if onlyDigits.MatchString(s) {
		return nil
	}
	t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(true))
	if err != nil {
		t, err = dateparse.ParseAny(s, dateparse.PreferMonthFirst(false))
		if err != nil {
			return nil
		}
	}
	iso := t.Format("2006-01-02")
	return &iso
}
