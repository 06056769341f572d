package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	testTable := []struct {
		name     string
		amount   float64
		currency string
		expect   string
	}{
		{
			name:     "US dollars",
			amount:   1000000,
			currency: "USD",
			expect:   "$1,000,000.00",
		},
		{
			name:     "Negative amount keeps the sign",
			amount:   -100,
			currency: "USD",
			expect:   "-$100.00",
		},
		{
			name:     "Yen has no minor unit",
			amount:   1500,
			currency: "JPY",
			expect:   "¥1,500",
		},
		{
			name:     "Unknown code falls back",
			amount:   12.5,
			currency: "ZZZ",
			expect:   "ZZZ 12.50",
		},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Format(testCase.amount, testCase.currency))
		})
	}
}
