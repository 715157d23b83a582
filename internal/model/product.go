package model

import "strings"

// Product is a catalog entry being enriched. Only the fields the pipeline
// reads or writes are modeled; the app-facing schema carries more.
type Product struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand"`
	Ingredients     string    `json:"ingredients,omitempty"`
	ServingSize     string    `json:"serving_size,omitempty"`
	ServingsPerPack *int      `json:"servings_per_pack,omitempty"`
	Allergens       string    `json:"allergens,omitempty"`
	Per100g         Nutrition `json:"per_100g"`
	PerServing      Nutrition `json:"per_serving"`
}

// Nutrition holds one nutrient basis (per 100 g or per serving).
// Nil means unknown, zero means a genuine zero.
type Nutrition struct {
	EnergyKcal *float64 `json:"energy_kcal,omitempty"`
	EnergyKJ   *float64 `json:"energy_kj,omitempty"`
	Fat        *float64 `json:"fat,omitempty"`
	Saturates  *float64 `json:"saturates,omitempty"`
	Carbs      *float64 `json:"carbs,omitempty"`
	Sugar      *float64 `json:"sugar,omitempty"`
	Fiber      *float64 `json:"fiber,omitempty"`
	Protein    *float64 `json:"protein,omitempty"`
	Salt       *float64 `json:"salt,omitempty"`
}

// Empty reports whether no nutrient is set.
func (n Nutrition) Empty() bool {
	return n.EnergyKcal == nil && n.EnergyKJ == nil && n.Fat == nil &&
		n.Saturates == nil && n.Carbs == nil && n.Sugar == nil &&
		n.Fiber == nil && n.Protein == nil && n.Salt == nil
}

// servingPlaceholders are values seeded by earlier imports that carry no
// real information; a serving size equal to one of them counts as missing.
var servingPlaceholders = map[string]bool{
	"n/a":       true,
	"unknown":   true,
	"1 serving": true,
	"100g":      true,
	"-":         true,
}

// minIngredientsLen is the quality floor below which an ingredients string
// is considered missing and eligible for enrichment.
const minIngredientsLen = 20

// HasGoodIngredients reports whether the current ingredients value meets the
// quality floor. Good fields are immutable to the pipeline.
func (p Product) HasGoodIngredients() bool {
	return len(p.Ingredients) >= minIngredientsLen
}

// HasGoodServingSize reports whether the current serving size is real data
// rather than empty or a known placeholder.
func (p Product) HasGoodServingSize() bool {
	if p.ServingSize == "" {
		return false
	}
	return !servingPlaceholders[strings.ToLower(strings.TrimSpace(p.ServingSize))]
}

// NeedsEnrichment reports whether any enrichable field is missing or below
// the quality floor.
func (p Product) NeedsEnrichment() bool {
	return !p.HasGoodIngredients() || !p.HasGoodServingSize() || p.Per100g.Empty()
}
