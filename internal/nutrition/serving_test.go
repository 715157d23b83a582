package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServing_Weights(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		grams float64
	}{
		{"plain grams", "25g", 25},
		{"spaced grams", "30 g", 30},
		{"millilitres", "330ml", 330},
		{"decimal", "12.5g", 12.5},
		{"comma decimal", "12,5g", 12.5},
		{"kilograms", "1.5kg", 1500},
		{"litres", "0.5 l", 500},
		{"trailing text", "25g (1 pot)", 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := ParseServing(tt.in)
			require.True(t, ok)
			assert.InDelta(t, tt.grams, s.Grams, 0.001)
		})
	}
}

func TestParseServing_Countable(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		grams float64
	}{
		{"single slice", "1 slice", 30},
		{"two slices", "2 slices", 60},
		{"biscuit", "3 biscuits", 36},
		{"bar", "1 bar", 45},
		{"finger", "4 fingers", 84},
		{"embedded weight wins", "2 slices (= 44g)", 44},
		{"embedded weight no equals", "1 bar (45 g)", 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := ParseServing(tt.in)
			require.True(t, ok)
			assert.InDelta(t, tt.grams, s.Grams, 0.001)
		})
	}
}

func TestParseServing_Unparseable(t *testing.T) {
	for _, in := range []string{
		"", "a handful", "serving", "N/A", "about right", "g25", "0g", "-5g",
	} {
		t.Run(in, func(t *testing.T) {
			_, ok := ParseServing(in)
			assert.False(t, ok, "expected %q to be unparseable", in)
		})
	}
}
