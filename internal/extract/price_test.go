package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		in       string
		want     string
		currency string
	}{
		{"plain dollars", "$29.99", "29.99", "USD"},
		{"thousands separator", "$1,299.99", "1299.99", "USD"},
		{"euro comma decimal", "€29,99", "29.99", "EUR"},
		{"euro dot thousands", "€1.299,00", "1299", "EUR"},
		{"iso code prefix", "USD 49.50", "49.5", "USD"},
		{"pound", "£15", "15", "GBP"},
		{"comma thousands only", "$1,299", "1299", "USD"},
		{"surrounding text", "Now: $24.95 (was $40)", "24.95", "USD"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			price, currency := ParsePrice(tc.in)
			require.NotNil(t, price, "expected a price from %q", tc.in)
			assert.Equal(t, tc.want, price.String())
			assert.Equal(t, tc.currency, currency)
		})
	}
}

func TestParsePriceNoAmount(t *testing.T) {
	t.Parallel()

	price, currency := ParsePrice("Call for pricing")
	assert.Nil(t, price)
	assert.Empty(t, currency)

	// Currency can still be detected without a parseable amount.
	price, currency = ParsePrice("$ --")
	assert.Nil(t, price)
	assert.Equal(t, "USD", currency)
}

func TestNormalizeSeparators(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"29.99":    "29.99",
		"29,99":    "29.99",
		"1,299.99": "1299.99",
		"1.299,99": "1299.99",
		"1,299":    "1299",
		"300":      "300",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSeparators(in), "input %q", in)
	}
}
