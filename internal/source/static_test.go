package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func testEntries() []StaticEntry {
	return []StaticEntry{
		{
			Name:        "Chocolate Digestives",
			Brand:       "McVitie's",
			Ingredients: "Wheat Flour, Milk Chocolate (28%), Vegetable Oil, Sugar, Salt",
			ServingSize: "1 biscuit (= 17g)",
			Allergens:   "Wheat, Milk",
			Per100g:     Per100g{EnergyKcal: f(495), Fat: f(23.5)},
		},
		{
			Name:  "Crème Brûlée",
			Brand: "Bonne Maman",
		},
	}
}

func TestStatic_Match(t *testing.T) {
	s := NewStatic(testEntries())

	c, err := s.Lookup(context.Background(), "Chocolate Digestives", "McVitie's")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, NameStatic, c.Source)
	assert.Equal(t, staticConfidence, c.Confidence)
	assert.Equal(t, "1 biscuit (= 17g)", c.ServingSize)
	require.NotNil(t, c.Per100g.EnergyKcal)
	assert.Equal(t, 495.0, *c.Per100g.EnergyKcal)
}

func TestStatic_MatchIsNormalized(t *testing.T) {
	s := NewStatic(testEntries())

	// Case, spacing, and diacritics are cosmetic.
	c, err := s.Lookup(context.Background(), "  chocolate   DIGESTIVES ", "mcvitie's")
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = s.Lookup(context.Background(), "creme brulee", "bonne maman")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestStatic_MissReturnsNothing(t *testing.T) {
	s := NewStatic(testEntries())

	c, err := s.Lookup(context.Background(), "Chocolate Digestives", "Tesco")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestLoadStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	data := `products:
  - name: Baked Beans
    brand: Heinz
    ingredients: "Beans (51%), Tomatoes (34%), Water, Sugar, Spirit Vinegar, Salt"
    serving_size: 207g
    per_100g:
      energy_kcal: 79
      protein: 4.7
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := LoadStatic(path)
	require.NoError(t, err)

	c, err := s.Lookup(context.Background(), "Baked Beans", "Heinz")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "207g", c.ServingSize)
	require.NotNil(t, c.Per100g.Protein)
	assert.Equal(t, 4.7, *c.Per100g.Protein)
}

func TestLoadStatic_MissingFile(t *testing.T) {
	_, err := LoadStatic(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
