package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to Postgres using the given URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id                  BIGSERIAL PRIMARY KEY,
	name                TEXT NOT NULL,
	brand               TEXT NOT NULL DEFAULT '',
	ingredients         TEXT,
	serving_size        TEXT,
	servings_per_pack   INTEGER,
	allergens           TEXT,
	energy_kcal_100g    DOUBLE PRECISION,
	energy_kj_100g      DOUBLE PRECISION,
	fat_100g            DOUBLE PRECISION,
	saturates_100g      DOUBLE PRECISION,
	carbs_100g          DOUBLE PRECISION,
	sugar_100g          DOUBLE PRECISION,
	fiber_100g          DOUBLE PRECISION,
	protein_100g        DOUBLE PRECISION,
	salt_100g           DOUBLE PRECISION,
	energy_kcal_serving DOUBLE PRECISION,
	energy_kj_serving   DOUBLE PRECISION,
	fat_serving         DOUBLE PRECISION,
	saturates_serving   DOUBLE PRECISION,
	carbs_serving       DOUBLE PRECISION,
	sugar_serving       DOUBLE PRECISION,
	fiber_serving       DOUBLE PRECISION,
	protein_serving     DOUBLE PRECISION,
	salt_serving        DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgProductColumns = `id, name, brand,
	COALESCE(ingredients, ''), COALESCE(serving_size, ''), servings_per_pack, COALESCE(allergens, ''),
	energy_kcal_100g, energy_kj_100g, fat_100g, saturates_100g, carbs_100g,
	sugar_100g, fiber_100g, protein_100g, salt_100g`

const pgBacklogWhere = `
	ingredients IS NULL OR length(ingredients) < 20
	OR serving_size IS NULL OR serving_size = ''
	OR lower(trim(serving_size)) IN ('n/a', 'unknown', '1 serving', '100g', '-')
	OR energy_kcal_100g IS NULL`

func (s *PostgresStore) Backlog(ctx context.Context, limit int, shuffle bool, exclude []int64) ([]model.Product, error) {
	order := "id ASC"
	if shuffle {
		order = "random()"
	}
	if limit <= 0 {
		limit = 100
	}

	where := "(" + pgBacklogWhere + ")"
	args := make([]any, 0, len(exclude)+1)
	if len(exclude) > 0 {
		ph := make([]string, len(exclude))
		for i, id := range exclude {
			ph[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, id)
		}
		where += " AND id NOT IN (" + strings.Join(ph, ", ") + ")"
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s LIMIT $%d`,
		pgProductColumns, where, order, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: backlog query")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: backlog iterate")
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*model.Product, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, pgProductColumns), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("product not found: %d", id)
	}
	return p, err
}

func (s *PostgresStore) ApplyFields(ctx context.Context, id int64, fields map[string]any) error {
	setClause, args, err := buildSetClause(fields, func(n int) string {
		return fmt.Sprintf("$%d", n)
	})
	if err != nil {
		return err
	}
	if setClause == "" {
		return nil
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d`, setClause, len(args)), args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %d", id)
	}
	return nil
}
