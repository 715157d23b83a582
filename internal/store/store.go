// Package store persists products. Writes are always field level: the
// pipeline never replaces a full row.
package store

import (
	"context"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

// updatableColumns is the allow-list for partial updates. Keys a caller
// passes outside this set are an error, never silently written.
var updatableColumns = map[string]bool{
	model.FieldIngredients: true,
	model.FieldServingSize: true,
	model.FieldAllergens:   true,
	model.FieldEnergyKcal:  true,
	model.FieldEnergyKJ:    true,
	model.FieldFat:         true,
	model.FieldSaturates:   true,
	model.FieldCarbs:       true,
	model.FieldSugar:       true,
	model.FieldFiber:       true,
	model.FieldProtein:     true,
	model.FieldSalt:        true,
	// per-serving columns are derived and written alongside their basis
	"energy_kcal_serving": true,
	"energy_kj_serving":   true,
	"fat_serving":         true,
	"saturates_serving":   true,
	"carbs_serving":       true,
	"sugar_serving":       true,
	"fiber_serving":       true,
	"protein_serving":     true,
	"salt_serving":        true,
}

// Store defines the persistence interface for the enrichment pipeline.
type Store interface {
	// Backlog returns products with missing or low-quality fields, in
	// ascending ID order, or shuffled for sampling runs. IDs in exclude
	// (already ledgered) are filtered out before the limit applies, so a
	// limited run always reaches unprocessed products.
	Backlog(ctx context.Context, limit int, shuffle bool, exclude []int64) ([]model.Product, error)

	// Get fetches a single product by ID.
	Get(ctx context.Context, id int64) (*model.Product, error)

	// ApplyFields issues a partial UPDATE touching only the given columns.
	ApplyFields(ctx context.Context, id int64, fields map[string]any) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
