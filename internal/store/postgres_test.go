package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

var pgProductRows = []string{
	"id", "name", "brand", "ingredients", "serving_size", "servings_per_pack", "allergens",
	"energy_kcal_100g", "energy_kj_100g", "fat_100g", "saturates_100g", "carbs_100g",
	"sugar_100g", "fiber_100g", "protein_100g", "salt_100g",
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return NewPostgresWithPool(mock), mock
}

func kcal(v float64) *float64 { return &v }

func TestPostgresGet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(pgProductRows).AddRow(
			int64(10), "Choc Biscuits", "Acme", "Wheat Flour, Sugar, Palm Oil", "25g", nil, "Wheat",
			kcal(450), nil, nil, nil, nil, nil, nil, nil, nil,
		))

	p, err := s.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Choc Biscuits", p.Name)
	assert.Equal(t, "Wheat", p.Allergens)
	assert.Nil(t, p.ServingsPerPack)
	require.NotNil(t, p.Per100g.EnergyKcal)
	assert.Equal(t, 450.0, *p.Per100g.EnergyKcal)
}

func TestPostgresGet_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), 404)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresBacklog(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE .+ ORDER BY id ASC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(pgProductRows).
			AddRow(int64(2), "No ingredients", "", "", "25g", nil, "",
				kcal(450), nil, nil, nil, nil, nil, nil, nil, nil).
			AddRow(int64(4), "No energy", "", "Wheat Flour, Sugar, Palm Oil, Salt", "25g", nil, "",
				nil, nil, nil, nil, nil, nil, nil, nil, nil))

	products, err := s.Backlog(context.Background(), 50, false, nil)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(2), products[0].ID)
	assert.Equal(t, int64(4), products[1].ID)
}

func TestPostgresBacklog_ExcludesLedgered(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE .+ AND id NOT IN \(\$1, \$2\) ORDER BY id ASC LIMIT \$3`).
		WithArgs(int64(2), int64(4), 1).
		WillReturnRows(pgxmock.NewRows(pgProductRows).
			AddRow(int64(5), "Unprocessed", "", "", "", nil, "",
				nil, nil, nil, nil, nil, nil, nil, nil, nil))

	products, err := s.Backlog(context.Background(), 1, false, []int64{2, 4})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(5), products[0].ID)
}

func TestPostgresApplyFields(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE products SET energy_kcal_100g = \$1, serving_size = \$2 WHERE id = \$3`).
		WithArgs(450.0, "25g", int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.ApplyFields(context.Background(), 42, map[string]any{
		model.FieldEnergyKcal:  450.0,
		model.FieldServingSize: "25g",
	})
	assert.NoError(t, err)
}

func TestPostgresApplyFields_MissingProduct(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE products SET serving_size = \$1 WHERE id = \$2`).
		WithArgs("25g", int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.ApplyFields(context.Background(), 404, map[string]any{model.FieldServingSize: "25g"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresApplyFields_UnknownColumn(t *testing.T) {
	s, _ := newMockStore(t)

	err := s.ApplyFields(context.Background(), 42, map[string]any{"id": int64(1)})
	assert.Error(t, err)
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS products`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, s.Migrate(context.Background()))
}
