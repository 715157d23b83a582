// Package extract pulls product fields out of free-text search snippets
// using a small library of compiled patterns. Extraction is best effort:
// a pattern that does not match simply leaves the field unset.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

var (
	ingredientsRe = regexp.MustCompile(`(?i)ingredients?\s*[:\-]\s*([^.]{20,500})`)
	servingRe     = regexp.MustCompile(`(?i)(?:serving size|per serving|portion)\s*[:\-]?\s*(\d+(?:[.,]\d+)?\s*(?:g|ml|kg|l|slices?|pieces?|biscuits?|bars?)\b[^,.;]*)`)
	allergensRe   = regexp.MustCompile(`(?i)(?:allergens?|contains)\s*[:\-]\s*([^.]{3,200})`)
)

// nutrientPatterns matches "energy: 450 kcal", "fat 12.5g" style snippets,
// always against a per-100g basis claim nearby. Keys are model field keys.
var nutrientPatterns = map[string]*regexp.Regexp{
	model.FieldEnergyKcal: regexp.MustCompile(`(?i)(?:energy|calories)\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*kcal`),
	model.FieldEnergyKJ:   regexp.MustCompile(`(?i)energy\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*kj`),
	model.FieldFat:        regexp.MustCompile(`(?i)\bfat\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*g\b`),
	model.FieldSaturates:  regexp.MustCompile(`(?i)saturat(?:es|ed fat)\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*g\b`),
	model.FieldCarbs:      regexp.MustCompile(`(?i)carbohydrates?\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*g\b`),
	model.FieldSugar:      regexp.MustCompile(`(?i)(?:of which )?sugars?\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*g\b`),
	model.FieldFiber:      regexp.MustCompile(`(?i)fibre?\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*g\b`),
	model.FieldProtein:    regexp.MustCompile(`(?i)protein\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*g\b`),
	model.FieldSalt:       regexp.MustCompile(`(?i)salt\s*[:\-]?\s*(\d+(?:[.,]\d+)?)\s*g\b`),
}

// Result holds whatever fields were extracted from one text.
type Result struct {
	Ingredients string
	ServingSize string
	Allergens   string
	Per100g     model.Nutrition
}

// Matched reports whether at least one extractor found validly formed content.
func (r Result) Matched() bool {
	return r.Ingredients != "" || r.ServingSize != "" || r.Allergens != "" || !r.Per100g.Empty()
}

// FieldGroups counts the distinct field groups (ingredients, serving,
// allergens, nutrition) that matched, used for confidence scoring.
func (r Result) FieldGroups() int {
	n := 0
	if r.Ingredients != "" {
		n++
	}
	if r.ServingSize != "" {
		n++
	}
	if r.Allergens != "" {
		n++
	}
	if !r.Per100g.Empty() {
		n++
	}
	return n
}

// FromText runs every extractor against the given text.
func FromText(text string) Result {
	var r Result

	if m := ingredientsRe.FindStringSubmatch(text); m != nil {
		r.Ingredients = cleanFragment(m[1])
	}
	if m := servingRe.FindStringSubmatch(text); m != nil {
		r.ServingSize = cleanFragment(m[1])
	}
	if m := allergensRe.FindStringSubmatch(text); m != nil {
		r.Allergens = cleanFragment(m[1])
	}

	set := func(dst **float64, raw string) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return
		}
		*dst = &v
	}
	// "saturated fat 5g" would otherwise satisfy the plain fat pattern.
	fatText := nutrientPatterns[model.FieldSaturates].ReplaceAllString(text, "")

	for key, re := range nutrientPatterns {
		target := text
		if key == model.FieldFat {
			target = fatText
		}
		m := re.FindStringSubmatch(target)
		if m == nil {
			continue
		}
		switch key {
		case model.FieldEnergyKcal:
			set(&r.Per100g.EnergyKcal, m[1])
		case model.FieldEnergyKJ:
			set(&r.Per100g.EnergyKJ, m[1])
		case model.FieldFat:
			set(&r.Per100g.Fat, m[1])
		case model.FieldSaturates:
			set(&r.Per100g.Saturates, m[1])
		case model.FieldCarbs:
			set(&r.Per100g.Carbs, m[1])
		case model.FieldSugar:
			set(&r.Per100g.Sugar, m[1])
		case model.FieldFiber:
			set(&r.Per100g.Fiber, m[1])
		case model.FieldProtein:
			set(&r.Per100g.Protein, m[1])
		case model.FieldSalt:
			set(&r.Per100g.Salt, m[1])
		}
	}

	return r
}

func cleanFragment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "-–|•")
	return strings.TrimSpace(s)
}
