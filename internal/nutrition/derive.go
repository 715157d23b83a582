package nutrition

import (
	"math"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

// kJPerKcal converts kilocalories to kilojoules.
const kJPerKcal = 4.184

// PerServing computes per-serving nutrients from a per-100g basis and a
// parsed serving. Nil per-100g nutrients are omitted rather than guessed.
// Every value is rounded to one decimal place.
func PerServing(per100g model.Nutrition, serving Serving) model.Nutrition {
	mult := serving.Grams / 100

	scale := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		out := round1(*v * mult)
		return &out
	}

	return model.Nutrition{
		EnergyKcal: scale(per100g.EnergyKcal),
		EnergyKJ:   scale(per100g.EnergyKJ),
		Fat:        scale(per100g.Fat),
		Saturates:  scale(per100g.Saturates),
		Carbs:      scale(per100g.Carbs),
		Sugar:      scale(per100g.Sugar),
		Fiber:      scale(per100g.Fiber),
		Protein:    scale(per100g.Protein),
		Salt:       scale(per100g.Salt),
	}
}

// FillEnergyKJ derives the kJ figure from kcal when only kcal is present.
func FillEnergyKJ(n model.Nutrition) model.Nutrition {
	if n.EnergyKJ == nil && n.EnergyKcal != nil {
		kj := round1(*n.EnergyKcal * kJPerKcal)
		n.EnergyKJ = &kj
	}
	return n
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
