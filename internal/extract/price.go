package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numberPattern = regexp.MustCompile(`[0-9][0-9.,]*`)

var currencySymbols = []struct {
	token string
	code  string
}{
	{"USD", "USD"},
	{"EUR", "EUR"},
	{"GBP", "GBP"},
	{"CAD", "CAD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
}

// ParsePrice normalizes display text like "$1,299.99" or "EUR 29,99" into a
// plain decimal plus a detected ISO currency code. A text with no parseable
// non-negative amount yields a nil price; an undetectable currency yields "".
func ParsePrice(text string) (*decimal.Decimal, string) {
	currency := detectCurrency(text)

	match := numberPattern.FindString(text)
	if match == "" {
		return nil, currency
	}

	normalized := normalizeSeparators(match)
	value, err := decimal.NewFromString(normalized)
	if err != nil || value.IsNegative() {
		return nil, currency
	}
	return &value, currency
}

func detectCurrency(text string) string {
	for _, c := range currencySymbols {
		if strings.Contains(text, c.token) {
			return c.code
		}
	}
	return ""
}

// normalizeSeparators resolves thousands vs decimal separators: when both
// appear the later one is the decimal point; a lone comma is decimal only
// when followed by exactly two digits.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if len(s)-lastComma-1 == 2 {
			s = strings.ReplaceAll(s[:lastComma], ",", "") + "." + s[lastComma+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}
