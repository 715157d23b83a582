package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seed(t *testing.T, s *SQLiteStore, query string, args ...any) {
	t.Helper()
	_, err := s.db.Exec(query, args...)
	require.NoError(t, err)
}

func TestBacklog_SelectsIncompleteProducts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// complete: long ingredients, real serving size, energy present
	seed(t, s, `INSERT INTO products (id, name, ingredients, serving_size, energy_kcal_100g)
		VALUES (1, 'Complete', 'Wheat Flour, Sugar, Palm Oil, Cocoa Mass, Salt', '25g', 450)`)
	// missing ingredients
	seed(t, s, `INSERT INTO products (id, name, serving_size, energy_kcal_100g)
		VALUES (2, 'No ingredients', '25g', 450)`)
	// placeholder serving size
	seed(t, s, `INSERT INTO products (id, name, ingredients, serving_size, energy_kcal_100g)
		VALUES (3, 'Placeholder serving', 'Wheat Flour, Sugar, Palm Oil, Cocoa Mass, Salt', '1 Serving', 450)`)
	// missing energy
	seed(t, s, `INSERT INTO products (id, name, ingredients, serving_size)
		VALUES (4, 'No energy', 'Wheat Flour, Sugar, Palm Oil, Cocoa Mass, Salt', '25g')`)
	// short ingredients
	seed(t, s, `INSERT INTO products (id, name, ingredients, serving_size, energy_kcal_100g)
		VALUES (5, 'Short ingredients', 'Sugar', '25g', 450)`)

	products, err := s.Backlog(ctx, 100, false, nil)
	require.NoError(t, err)

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{2, 3, 4, 5}, ids, "ascending ID order, complete product excluded")
}

func TestBacklog_ExcludesLedgeredBeforeLimit(t *testing.T) {
	s := newTestStore(t)

	// Three incomplete products; the first two are already ledgered but
	// still match the backlog predicate (an exhausted product gets no field
	// updates). A limit of 1 must still reach product 3.
	for i := 1; i <= 3; i++ {
		seed(t, s, `INSERT INTO products (id, name) VALUES (?, 'Product')`, i)
	}

	products, err := s.Backlog(context.Background(), 1, false, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(3), products[0].ID)
}

func TestBacklog_Limit(t *testing.T) {
	s := newTestStore(t)

	for i := 1; i <= 5; i++ {
		seed(t, s, `INSERT INTO products (id, name) VALUES (?, 'Product')`, i)
	}

	products, err := s.Backlog(context.Background(), 3, false, nil)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}

func TestGet(t *testing.T) {
	s := newTestStore(t)

	seed(t, s, `INSERT INTO products (id, name, brand, serving_size, servings_per_pack, energy_kcal_100g, protein_100g)
		VALUES (10, 'Choc Biscuits', 'Acme', '25g', 12, 450, 6.5)`)

	p, err := s.Get(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, "Choc Biscuits", p.Name)
	assert.Equal(t, "Acme", p.Brand)
	assert.Equal(t, "25g", p.ServingSize)
	require.NotNil(t, p.ServingsPerPack)
	assert.Equal(t, 12, *p.ServingsPerPack)
	require.NotNil(t, p.Per100g.Protein)
	assert.Equal(t, 6.5, *p.Per100g.Protein)
	assert.Nil(t, p.Per100g.Fat)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), 404)
	assert.Error(t, err)
}

func TestApplyFields_PartialUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed(t, s, `INSERT INTO products (id, name, ingredients) VALUES (20, 'Choc Biscuits', 'Existing list, unchanged by this test')`)

	err := s.ApplyFields(ctx, 20, map[string]any{
		model.FieldServingSize: "25g",
		model.FieldEnergyKcal:  450.0,
		"energy_kcal_serving":  112.5,
	})
	require.NoError(t, err)

	p, err := s.Get(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, "25g", p.ServingSize)
	require.NotNil(t, p.Per100g.EnergyKcal)
	assert.Equal(t, 450.0, *p.Per100g.EnergyKcal)
	assert.Equal(t, "Existing list, unchanged by this test", p.Ingredients)
}

func TestApplyFields_UnknownColumnRejected(t *testing.T) {
	s := newTestStore(t)

	seed(t, s, `INSERT INTO products (id, name) VALUES (30, 'Choc Biscuits')`)

	err := s.ApplyFields(context.Background(), 30, map[string]any{"name": "Renamed"})
	require.Error(t, err)

	// Nothing may be written on a rejected update.
	p, getErr := s.Get(context.Background(), 30)
	require.NoError(t, getErr)
	assert.Equal(t, "Choc Biscuits", p.Name)
}

func TestApplyFields_MissingProduct(t *testing.T) {
	s := newTestStore(t)

	err := s.ApplyFields(context.Background(), 404, map[string]any{model.FieldServingSize: "25g"})
	assert.Error(t, err)
}

func TestApplyFields_EmptyIsNoop(t *testing.T) {
	s := newTestStore(t)

	assert.NoError(t, s.ApplyFields(context.Background(), 404, nil))
}

func TestBuildSetClause_StableOrder(t *testing.T) {
	clause, args, err := buildSetClause(map[string]any{
		model.FieldServingSize: "25g",
		model.FieldEnergyKcal:  450.0,
		model.FieldIngredients: "Wheat Flour, Sugar",
	}, func(i int) string { return "?" })
	require.NoError(t, err)

	assert.Equal(t, "energy_kcal_100g = ?, ingredients = ?, serving_size = ?", clause)
	assert.Equal(t, []any{450.0, "Wheat Flour, Sugar", "25g"}, args)
}
