package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id                  INTEGER PRIMARY KEY,
	name                TEXT NOT NULL,
	brand               TEXT NOT NULL DEFAULT '',
	ingredients         TEXT,
	serving_size        TEXT,
	servings_per_pack   INTEGER,
	allergens           TEXT,
	energy_kcal_100g    REAL,
	energy_kj_100g      REAL,
	fat_100g            REAL,
	saturates_100g      REAL,
	carbs_100g          REAL,
	sugar_100g          REAL,
	fiber_100g          REAL,
	protein_100g        REAL,
	salt_100g           REAL,
	energy_kcal_serving REAL,
	energy_kj_serving   REAL,
	fat_serving         REAL,
	saturates_serving   REAL,
	carbs_serving       REAL,
	sugar_serving       REAL,
	fiber_serving       REAL,
	protein_serving     REAL,
	salt_serving        REAL
);

CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const productColumns = `id, name, brand,
	COALESCE(ingredients, ''), COALESCE(serving_size, ''), servings_per_pack, COALESCE(allergens, ''),
	energy_kcal_100g, energy_kj_100g, fat_100g, saturates_100g, carbs_100g,
	sugar_100g, fiber_100g, protein_100g, salt_100g`

// backlogWhere matches products with a missing or short ingredients string,
// a missing or placeholder serving size, or no per-100g energy at all.
const backlogWhere = `
	ingredients IS NULL OR length(ingredients) < 20
	OR serving_size IS NULL OR serving_size = ''
	OR lower(trim(serving_size)) IN ('n/a', 'unknown', '1 serving', '100g', '-')
	OR energy_kcal_100g IS NULL`

func (s *SQLiteStore) Backlog(ctx context.Context, limit int, shuffle bool, exclude []int64) ([]model.Product, error) {
	order := "id ASC"
	if shuffle {
		order = "RANDOM()"
	}
	if limit <= 0 {
		limit = 100
	}

	where := "(" + backlogWhere + ")"
	args := make([]any, 0, len(exclude)+1)
	if len(exclude) > 0 {
		where += " AND id NOT IN (?" + strings.Repeat(", ?", len(exclude)-1) + ")"
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s LIMIT ?`,
		productColumns, where, order)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: backlog query")
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
	return products, eris.Wrap(rows.Err(), "sqlite: backlog iterate")
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM products WHERE id = ?`, productColumns), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("product not found: %d", id)
	}
	return p, err
}

func (s *SQLiteStore) ApplyFields(ctx context.Context, id int64, fields map[string]any) error {
	setClause, args, err := buildSetClause(fields, func(int) string { return "?" })
	if err != nil {
		return err
	}
	if setClause == "" {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE products SET %s WHERE id = ?`, setClause), args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update product %d", id)
	}
	return checkRowsAffected(res, "product", id)
}

// buildSetClause renders "col = $n, ..." over the column allow-list in a
// stable order. placeholder maps a 1-based position to the driver's syntax.
func buildSetClause(fields map[string]any, placeholder func(int) string) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return "", nil, eris.Errorf("store: column not updatable: %s", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sb strings.Builder
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col)
		sb.WriteString(" = ")
		sb.WriteString(placeholder(i + 1))
		args = append(args, fields[col])
	}
	return sb.String(), args, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable) (*model.Product, error) {
	var p model.Product
	var servingsPerPack sql.NullInt64

	err := row.Scan(
		&p.ID, &p.Name, &p.Brand,
		&p.Ingredients, &p.ServingSize, &servingsPerPack, &p.Allergens,
		&p.Per100g.EnergyKcal, &p.Per100g.EnergyKJ, &p.Per100g.Fat,
		&p.Per100g.Saturates, &p.Per100g.Carbs, &p.Per100g.Sugar,
		&p.Per100g.Fiber, &p.Per100g.Protein, &p.Per100g.Salt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan product")
	}

	if servingsPerPack.Valid {
		n := int(servingsPerPack.Int64)
		p.ServingsPerPack = &n
	}
	return &p, nil
}
