package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"Pound decimal", "£29.99", 29.99, true},
		{"Dollar with thousands", "$1,299.99", 1299.99, true},
		{"Euro locale comma", "12,99 €", 12.99, true},
		{"Euro single decimal", "1,5 €", 1.5, true},
		{"Euro single decimal with code", "EUR 24,9", 24.9, true},
		{"Euro locale thousands", "1.299,00 €", 1299.00, true},
		{"Space grouped", "1 299,50 €", 1299.50, true},
		{"Pence suffix", "99p", 0.99, true},
		{"Pence word", "45 pence", 0.45, true},
		{"Cent sign", "75¢", 0.75, true},
		{"Bare integer", "$45", 45, true},
		{"Integer with thousands", "₹12,499", 12499, true},
		{"Yen", "¥3,980", 3980, true},
		{"Currency code", "CHF 1,234.50", 1234.50, true},
		{"Range takes low end", "£12.99 - £15.99", 12.99, true},
		{"Dot thousands", "1.299 €", 1299, true},
		{"No digits", "Currently unavailable", 0, false},
		{"Empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, got, 0.0001)
		})
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "£1,299.99", FormatPrice(1299.99, "£"))
	assert.Equal(t, "$45.00", FormatPrice(45, "$"))
	assert.Equal(t, "€0.50", FormatPrice(0.5, "€"))
	assert.Equal(t, "1,234,567.89", FormatPrice(1234567.89, ""))
}

func TestPriceRoundTrip(t *testing.T) {
	values := []float64{0.5, 0.99, 9.99, 45, 100, 999.99, 1299.99, 10000, 1234567.89}
	symbols := []string{"", "£", "$", "€", "¥", "₹", "CHF ", "R$"}

	for _, v := range values {
		for _, sym := range symbols {
			text := FormatPrice(v, sym)
			got, ok := ParsePrice(text)
			if assert.True(t, ok, "parse %q", text) {
				assert.InDelta(t, v, got, 0.005, "round trip of %q", text)
			}
		}
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"English", "4.5 out of 5 stars", 4.5, true},
		{"German", "4,3 von 5 Sternen", 4.3, true},
		{"Integer", "5 out of 5", 5, true},
		{"Out of range clamps", "9.8 out of 5", 5, true},
		{"Bare", "3.9", 3.9, true},
		{"No number", "No reviews", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRating(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, got, 0.0001)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 5.0)
		})
	}
}
