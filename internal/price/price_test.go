package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"CFA with thousands space", "12 500 CFA", 12500, true},
		{"FCFA suffix", "10 000 FCFA", 10000, true},
		{"Plain number", "7000", 7000, true},
		{"Comma decimal", "1500,50", 1500.5, true},
		{"Period thousands with comma decimal", "1.500,50 FCFA", 1500.5, true},
		{"Period stripped as thousands", "25.000 CFA", 25000, true},
		{"Non-breaking space", "3 500 CFA", 3500, true},
		{"Zero is converted", "0 CFA", 0, true},
		{"Sentinel", "Prix sur demande", 0, false},
		{"Sentinel lowercase", "prix sur demande", 0, false},
		{"Sentinel english", "Price on request", 0, false},
		{"Empty", "", 0, false},
		{"Whitespace only", "   ", 0, false},
		{"No digits", "CFA", 0, false},
		{"Several commas", "1,234,567", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Normalize(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		ok       bool
	}{
		{"Integer", "10000", 10000, true},
		{"Decimal kept", "1500.5", 1500.5, true},
		{"Negative", "-20", -20, true},
		{"Raw text falls back", "10 000 CFA", 10000, true},
		{"Comma decimal falls back", "99,9", 99.9, true},
		{"Sentinel", "Prix sur demande", 0, false},
		{"Empty", "", 0, false},
		{"Leading dot is not canonical", ".5", 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseCanonical(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel("  Prix sur Demande "))
	assert.True(t, IsSentinel("À débattre"))
	assert.False(t, IsSentinel("5 000 CFA"))
}
