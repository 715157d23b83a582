// Package nutrition parses serving-size strings and derives per-serving
// nutrient values from a per-100g basis.
package nutrition

import (
	"regexp"
	"strconv"
	"strings"
)

// unitWeights maps countable serving units to typical gram weights, used
// when a serving-size string carries no explicit weight.
var unitWeights = map[string]float64{
	"slice":   30,
	"piece":   25,
	"biscuit": 12,
	"finger":  21,
	"bar":     45,
	"cookie":  15,
	"portion": 150,
}

var (
	// "25g", "25 g", "330ml", "0.5 l", "1.5kg"
	weightRe = regexp.MustCompile(`(?i)^\s*(\d+(?:[.,]\d+)?)\s*(g|kg|ml|l)\b`)
	// "2 slices (= 44g)", "1 bar (45 g)" — embedded explicit weight
	embeddedRe = regexp.MustCompile(`(?i)\(=?\s*(\d+(?:[.,]\d+)?)\s*(g|ml)\s*\)`)
	// "2 slices", "1 biscuit"
	countableRe = regexp.MustCompile(`(?i)^\s*(\d+(?:[.,]\d+)?)\s*(slices?|pieces?|biscuits?|fingers?|bars?|cookies?|portions?)\b`)
)

// Serving is a parsed serving size expressed in grams (millilitres are
// treated as equivalent to grams for the 100 g nutrient basis).
type Serving struct {
	Grams float64
	Raw   string
}

// ParseServing parses a serving-size string. It returns false when the
// string matches no known form; callers must not substitute a default.
func ParseServing(s string) (Serving, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Serving{}, false
	}

	if m := weightRe.FindStringSubmatch(s); m != nil {
		mag, err := parseMagnitude(m[1])
		if err != nil || mag <= 0 {
			return Serving{}, false
		}
		switch strings.ToLower(m[2]) {
		case "kg", "l":
			mag *= 1000
		}
		return Serving{Grams: mag, Raw: s}, true
	}

	if m := countableRe.FindStringSubmatch(s); m != nil {
		count, err := parseMagnitude(m[1])
		if err != nil || count <= 0 {
			return Serving{}, false
		}

		// An embedded "(=Ng)" weight is the pack's own figure for the whole
		// serving and overrides the typical-weight table.
		if em := embeddedRe.FindStringSubmatch(s); em != nil {
			grams, err := parseMagnitude(em[1])
			if err != nil || grams <= 0 {
				return Serving{}, false
			}
			return Serving{Grams: grams, Raw: s}, true
		}

		unit := strings.ToLower(strings.TrimSuffix(m[2], "s"))
		w, ok := unitWeights[unit]
		if !ok {
			return Serving{}, false
		}
		return Serving{Grams: count * w, Raw: s}, true
	}

	return Serving{}, false
}

func parseMagnitude(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
