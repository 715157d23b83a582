// Package validate is the single gate between untrusted candidates and the
// system of record. Rules are named so rejections are auditable and each
// rule is testable on its own.
package validate

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pantry-labs/enrich-cli/internal/model"
	"github.com/pantry-labs/enrich-cli/internal/nutrition"
)

// Rule names, recorded as rejection reasons.
const (
	RuleConfidence  = "confidence_below_threshold"
	RuleIngredients = "ingredients_malformed"
	RuleServing     = "serving_size_unparseable"
	RuleEnergy      = "energy_implausible"
	RuleGoodData    = "existing_value_good"
	RuleEmpty       = "no_fields_offered"
)

// boilerplateTokens mark scraped marketing or page chrome that must never
// be stored as ingredient data.
var boilerplateTokens = []string{
	"£", "$", "€", "click", "terms", "copyright", "cookie", "sign in", "add to",
}

// kcal bounds per 100 g of food.
const (
	minKcalPer100g = 0
	maxKcalPer100g = 900
)

var servingShapeRe = regexp.MustCompile(`(?i)^\s*\d+(?:[.,]\d+)?\s*(?:g|kg|ml|l|slices?|pieces?|biscuits?|fingers?|bars?|cookies?|portions?)\b`)

// Outcome is the field-level result of validating one candidate.
type Outcome struct {
	Accepted bool              // false only when the whole candidate is rejected
	Fields   map[string]any    // column key -> value, ready for the store
	Rejected map[string]string // field/rule -> reason
	Serving  *nutrition.Serving
}

// Validator applies the rule list against a candidate and the product's
// current values.
type Validator struct {
	minConfidence int
}

// New creates a validator with the given confidence threshold.
func New(minConfidence int) *Validator {
	return &Validator{minConfidence: minConfidence}
}

// Check validates a candidate against the current product. The confidence
// gate rejects the whole candidate; every other rule drops only the field it
// covers. Fields whose current value already meets the quality floor are
// never accepted, regardless of the candidate.
func (v *Validator) Check(p model.Product, c model.Candidate) Outcome {
	out := Outcome{
		Fields:   make(map[string]any),
		Rejected: make(map[string]string),
	}

	if c.Confidence < v.minConfidence {
		out.Rejected["candidate"] = RuleConfidence
		zap.L().Debug("candidate rejected",
			zap.Int64("product_id", p.ID),
			zap.String("source", c.Source),
			zap.String("rule", RuleConfidence),
			zap.Int("confidence", c.Confidence),
		)
		return out
	}
	if !c.HasAnyField() {
		out.Rejected["candidate"] = RuleEmpty
		return out
	}
	out.Accepted = true

	if c.Ingredients != "" {
		switch {
		case p.HasGoodIngredients():
			out.Rejected[model.FieldIngredients] = RuleGoodData
		case !IngredientsWellFormed(c.Ingredients):
			out.Rejected[model.FieldIngredients] = RuleIngredients
		default:
			out.Fields[model.FieldIngredients] = strings.TrimSpace(c.Ingredients)
		}
	}

	if c.ServingSize != "" {
		serving, ok := nutrition.ParseServing(c.ServingSize)
		switch {
		case p.HasGoodServingSize():
			out.Rejected[model.FieldServingSize] = RuleGoodData
		case !ok || !servingShapeRe.MatchString(c.ServingSize):
			out.Rejected[model.FieldServingSize] = RuleServing
		default:
			out.Fields[model.FieldServingSize] = strings.TrimSpace(c.ServingSize)
			out.Serving = &serving
		}
	}

	if c.Allergens != "" && p.Allergens == "" {
		out.Fields[model.FieldAllergens] = strings.TrimSpace(c.Allergens)
	}

	for _, nf := range c.NutrientFields() {
		if existingNutrientSet(p.Per100g, nf.Key) {
			out.Rejected[nf.Key] = RuleGoodData
			continue
		}
		if nf.Key == model.FieldEnergyKcal && (nf.Value < minKcalPer100g || nf.Value > maxKcalPer100g) {
			out.Rejected[nf.Key] = RuleEnergy
			continue
		}
		if nf.Value < 0 {
			out.Rejected[nf.Key] = RuleEnergy
			continue
		}
		out.Fields[nf.Key] = nf.Value
	}

	if len(out.Fields) == 0 {
		out.Accepted = false
	}

	for field, rule := range out.Rejected {
		zap.L().Debug("field rejected",
			zap.Int64("product_id", p.ID),
			zap.String("source", c.Source),
			zap.String("field", field),
			zap.String("rule", rule),
		)
	}

	return out
}

// IngredientsWellFormed checks the structural shape of an ingredients
// string: long enough to be a real list, comma separated, and free of page
// boilerplate.
func IngredientsWellFormed(s string) bool {
	if len(s) < 20 {
		return false
	}
	if !strings.Contains(s, ",") {
		return false
	}
	lower := strings.ToLower(s)
	for _, tok := range boilerplateTokens {
		if strings.Contains(lower, tok) {
			return false
		}
	}
	return true
}

func existingNutrientSet(n model.Nutrition, key string) bool {
	switch key {
	case model.FieldEnergyKcal:
		return n.EnergyKcal != nil
	case model.FieldEnergyKJ:
		return n.EnergyKJ != nil
	case model.FieldFat:
		return n.Fat != nil
	case model.FieldSaturates:
		return n.Saturates != nil
	case model.FieldCarbs:
		return n.Carbs != nil
	case model.FieldSugar:
		return n.Sugar != nil
	case model.FieldFiber:
		return n.Fiber != nil
	case model.FieldProtein:
		return n.Protein != nil
	case model.FieldSalt:
		return n.Salt != nil
	}
	return false
}
