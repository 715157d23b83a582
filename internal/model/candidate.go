package model

// Field keys used across the validator, store, and ledger. They double as
// the column allow-list for partial updates.
const (
	FieldIngredients = "ingredients"
	FieldServingSize = "serving_size"
	FieldAllergens   = "allergens"
	FieldEnergyKcal  = "energy_kcal_100g"
	FieldEnergyKJ    = "energy_kj_100g"
	FieldFat         = "fat_100g"
	FieldSaturates   = "saturates_100g"
	FieldCarbs       = "carbs_100g"
	FieldSugar       = "sugar_100g"
	FieldFiber       = "fiber_100g"
	FieldProtein     = "protein_100g"
	FieldSalt        = "salt_100g"
)

// Candidate is an untrusted, source-tagged proposal for one or more product
// fields. It never reaches the store without passing the validator.
type Candidate struct {
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Confidence  int       `json:"confidence"`
	Ingredients string    `json:"ingredients,omitempty"`
	ServingSize string    `json:"serving_size,omitempty"`
	Allergens   string    `json:"allergens,omitempty"`
	Per100g     Nutrition `json:"per_100g"`
}

// HasAnyField reports whether the candidate proposes at least one value.
func (c Candidate) HasAnyField() bool {
	return c.Ingredients != "" || c.ServingSize != "" || c.Allergens != "" || !c.Per100g.Empty()
}

// NutrientField pairs a per-100g column key with its proposed value.
type NutrientField struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// NutrientFields returns the per-100g field keys the candidate proposes,
// paired with their values, in a stable order.
func (c Candidate) NutrientFields() []NutrientField {
	var out []NutrientField
	add := func(key string, v *float64) {
		if v != nil {
			out = append(out, NutrientField{Key: key, Value: *v})
		}
	}
	add(FieldEnergyKcal, c.Per100g.EnergyKcal)
	add(FieldEnergyKJ, c.Per100g.EnergyKJ)
	add(FieldFat, c.Per100g.Fat)
	add(FieldSaturates, c.Per100g.Saturates)
	add(FieldCarbs, c.Per100g.Carbs)
	add(FieldSugar, c.Per100g.Sugar)
	add(FieldFiber, c.Per100g.Fiber)
	add(FieldProtein, c.Per100g.Protein)
	add(FieldSalt, c.Per100g.Salt)
	return out
}
