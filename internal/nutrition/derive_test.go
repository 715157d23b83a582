package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

func f(v float64) *float64 { return &v }

func TestPerServing_Proportional(t *testing.T) {
	serving, ok := ParseServing("25g")
	require.True(t, ok)

	out := PerServing(model.Nutrition{
		EnergyKcal: f(500),
		Fat:        f(20),
		Protein:    f(8.4),
	}, serving)

	require.NotNil(t, out.EnergyKcal)
	assert.Equal(t, 125.0, *out.EnergyKcal)
	assert.Equal(t, 5.0, *out.Fat)
	assert.Equal(t, 2.1, *out.Protein)
}

func TestPerServing_OmitsMissingNutrients(t *testing.T) {
	serving, ok := ParseServing("50g")
	require.True(t, ok)

	out := PerServing(model.Nutrition{Sugar: f(10)}, serving)

	assert.Nil(t, out.EnergyKcal)
	assert.Nil(t, out.Fat)
	require.NotNil(t, out.Sugar)
	assert.Equal(t, 5.0, *out.Sugar)
}

func TestPerServing_RoundsToOneDecimal(t *testing.T) {
	serving, ok := ParseServing("33g")
	require.True(t, ok)

	out := PerServing(model.Nutrition{EnergyKcal: f(447)}, serving)

	require.NotNil(t, out.EnergyKcal)
	// 447 * 0.33 = 147.51
	assert.Equal(t, 147.5, *out.EnergyKcal)
}

func TestFillEnergyKJ(t *testing.T) {
	out := FillEnergyKJ(model.Nutrition{EnergyKcal: f(100)})
	require.NotNil(t, out.EnergyKJ)
	assert.Equal(t, 418.4, *out.EnergyKJ)

	// existing kJ untouched
	out = FillEnergyKJ(model.Nutrition{EnergyKcal: f(100), EnergyKJ: f(420)})
	assert.Equal(t, 420.0, *out.EnergyKJ)

	// no kcal, nothing to derive
	out = FillEnergyKJ(model.Nutrition{})
	assert.Nil(t, out.EnergyKJ)
}
