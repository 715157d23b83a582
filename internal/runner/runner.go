// Package runner iterates the backlog sequentially, applies pacing between
// products, and records every terminal outcome in the ledger. Processing is
// strictly single-threaded: external rate limits dominate throughput, not
// CPU, and one writer keeps the ledger-read-then-write invariant trivial.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pantry-labs/enrich-cli/internal/cascade"
	"github.com/pantry-labs/enrich-cli/internal/ledger"
	"github.com/pantry-labs/enrich-cli/internal/model"
	"github.com/pantry-labs/enrich-cli/internal/nutrition"
	"github.com/pantry-labs/enrich-cli/internal/store"
)

// Options tunes a batch run.
type Options struct {
	Limit             int
	Shuffle           bool
	ProductsPerMinute int
	CheckpointEvery   int
	CheckpointPause   time.Duration
}

// BatchResult aggregates a run's outcomes. Counters live here rather than
// on the runner so a run is a pure input-to-result function.
type BatchResult struct {
	RunID            string         `json:"run_id"`
	Processed        int            `json:"processed"`
	Skipped          int            `json:"skipped"`
	Updated          int            `json:"updated"`
	Partial          int            `json:"partial"`
	Exhausted        int            `json:"exhausted"`
	Errors           int            `json:"errors"`
	AcceptedBySource map[string]int `json:"accepted_by_source"`
	Elapsed          time.Duration  `json:"elapsed"`
}

// Runner wires the cascade, store, and ledger into the batch loop.
type Runner struct {
	store      store.Store
	ledger     *ledger.Ledger
	controller *cascade.Controller
}

// New creates a batch runner.
func New(st store.Store, lg *ledger.Ledger, controller *cascade.Controller) *Runner {
	return &Runner{
		store:      st,
		ledger:     lg,
		controller: controller,
	}
}

// Run processes up to opts.Limit backlog products not yet in the ledger.
// A product failing persistence does not halt the run; it is ledgered as
// failed and the loop continues.
func (r *Runner) Run(ctx context.Context, opts Options) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{
		RunID:            uuid.New().String(),
		AcceptedBySource: make(map[string]int),
	}

	// Ledgered products are excluded in the query itself so they never
	// consume the limit window; the in-loop check below only guards rows
	// ledgered after the backlog was fetched.
	backlog, err := r.store.Backlog(ctx, opts.Limit, opts.Shuffle, r.ledger.ProcessedIDs())
	if err != nil {
		return nil, eris.Wrap(err, "runner: load backlog")
	}

	zap.L().Info("batch started",
		zap.String("run_id", result.RunID),
		zap.Int("backlog", len(backlog)),
		zap.Int("already_ledgered", r.ledger.ProcessedCount()),
	)

	perMinute := opts.ProductsPerMinute
	if perMinute <= 0 {
		perMinute = 12
	}
	pacer := rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)

	for _, p := range backlog {
		if ctx.Err() != nil {
			break
		}
		if r.ledger.Processed(p.ID) {
			result.Skipped++
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			break
		}

		r.processOne(ctx, p, result)
		result.Processed++

		if opts.CheckpointEvery > 0 && result.Processed%opts.CheckpointEvery == 0 {
			zap.L().Info("checkpoint pause",
				zap.Int("processed", result.Processed),
				zap.Duration("pause", opts.CheckpointPause),
			)
			select {
			case <-ctx.Done():
			case <-time.After(opts.CheckpointPause):
			}
		}
	}

	result.Elapsed = time.Since(start)
	zap.L().Info("batch finished",
		zap.String("run_id", result.RunID),
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("partial", result.Partial),
		zap.Int("exhausted", result.Exhausted),
		zap.Int("errors", result.Errors),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// RunOne processes a single product outside a batch: it stamps a fresh run
// ID and ledgers the outcome, so one-off rows carry the same audit columns
// as batch rows.
func (r *Runner) RunOne(ctx context.Context, p model.Product) (model.LedgerEntry, error) {
	entry, err := r.ProcessProduct(ctx, p)
	entry.RunID = uuid.New().String()
	if lerr := r.ledger.Append(entry); lerr != nil {
		zap.L().Error("ledger append failed",
			zap.Int64("product_id", p.ID),
			zap.Error(lerr),
		)
	}
	return entry, err
}

// ProcessProduct runs the cascade and persistence for a single product and
// returns its ledger entry. Used by both the batch loop and the one-off
// product command.
func (r *Runner) ProcessProduct(ctx context.Context, p model.Product) (model.LedgerEntry, error) {
	casResult := r.controller.Run(ctx, p)

	entry := model.LedgerEntry{
		ProductID:   p.ID,
		ProcessedAt: time.Now().UTC(),
		Method:      casResult.Method,
	}

	if casResult.Exhausted() {
		// Normal terminal state: ledgered so the product is not retried
		// indefinitely. Follow-up belongs to a human curator.
		entry.Status = model.LedgerFailed
		entry.Notes = "all sources exhausted"
		return entry, nil
	}

	cand := casResult.Candidate
	outcome := casResult.Outcome
	entry.Confidence = cand.Confidence

	fields := make(map[string]any, len(outcome.Fields))
	for k, v := range outcome.Fields {
		fields[k] = v
	}

	basis := candidateBasis(p, *cand, outcome.Fields)

	// kJ derived from kcal when neither the product nor the candidate has it.
	if _, ok := fields[model.FieldEnergyKcal]; ok && basis.EnergyKJ == nil {
		basis = nutrition.FillEnergyKJ(basis)
		fields[model.FieldEnergyKJ] = *basis.EnergyKJ
	}

	// Derive per-serving values whenever the serving or the nutrient basis
	// changed. A product with a good existing serving size still gets fresh
	// per-serving figures for newly accepted nutrients. Unparseable servings
	// were already dropped by the validator; fail soft, never guess.
	serving := outcome.Serving
	if serving == nil && hasNutrientField(fields) && p.HasGoodServingSize() {
		if s, ok := nutrition.ParseServing(p.ServingSize); ok {
			serving = &s
		}
	}
	if serving != nil && (outcome.Serving != nil || hasNutrientField(fields)) {
		addServingFields(fields, nutrition.PerServing(basis, *serving))
	}

	for k := range fields {
		entry.AcceptedFields = append(entry.AcceptedFields, k)
	}
	if s, ok := outcome.Fields[model.FieldIngredients].(string); ok {
		entry.Ingredients = s
	}
	if s, ok := outcome.Fields[model.FieldServingSize].(string); ok {
		entry.ServingSize = s
	}

	if err := r.store.ApplyFields(ctx, p.ID, fields); err != nil {
		entry.Status = model.LedgerFailed
		entry.Notes = "persistence failed"
		return entry, eris.Wrapf(err, "runner: apply fields for product %d", p.ID)
	}

	if len(outcome.Rejected) > 0 {
		entry.Status = model.LedgerPartial
	} else {
		entry.Status = model.LedgerSuccess
	}
	return entry, nil
}

func (r *Runner) processOne(ctx context.Context, p model.Product, result *BatchResult) {
	entry, err := r.ProcessProduct(ctx, p)

	switch {
	case err != nil:
		// PersistenceFailure: fatal for this product only. The ledger row
		// still lands so the attempt is never silently lost.
		result.Errors++
		zap.L().Error("product failed",
			zap.Int64("product_id", p.ID),
			zap.Error(err),
		)
	case entry.Status == model.LedgerFailed:
		result.Exhausted++
	case entry.Status == model.LedgerPartial:
		result.Partial++
		result.Updated++
		result.AcceptedBySource[entry.Method]++
	default:
		result.Updated++
		result.AcceptedBySource[entry.Method]++
	}

	entry.RunID = result.RunID
	if lerr := r.ledger.Append(entry); lerr != nil {
		result.Errors++
		zap.L().Error("ledger append failed",
			zap.Int64("product_id", p.ID),
			zap.Error(lerr),
		)
	}
}

// candidateBasis merges the accepted per-100g fields over the product's
// existing basis so derivation always uses the post-update values.
func candidateBasis(p model.Product, c model.Candidate, accepted map[string]any) model.Nutrition {
	basis := p.Per100g

	pick := func(key string, existing, proposed *float64) *float64 {
		if _, ok := accepted[key]; ok {
			return proposed
		}
		return existing
	}
	basis.EnergyKcal = pick(model.FieldEnergyKcal, basis.EnergyKcal, c.Per100g.EnergyKcal)
	basis.EnergyKJ = pick(model.FieldEnergyKJ, basis.EnergyKJ, c.Per100g.EnergyKJ)
	basis.Fat = pick(model.FieldFat, basis.Fat, c.Per100g.Fat)
	basis.Saturates = pick(model.FieldSaturates, basis.Saturates, c.Per100g.Saturates)
	basis.Carbs = pick(model.FieldCarbs, basis.Carbs, c.Per100g.Carbs)
	basis.Sugar = pick(model.FieldSugar, basis.Sugar, c.Per100g.Sugar)
	basis.Fiber = pick(model.FieldFiber, basis.Fiber, c.Per100g.Fiber)
	basis.Protein = pick(model.FieldProtein, basis.Protein, c.Per100g.Protein)
	basis.Salt = pick(model.FieldSalt, basis.Salt, c.Per100g.Salt)
	return basis
}

var nutrientColumns = []string{
	model.FieldEnergyKcal, model.FieldEnergyKJ, model.FieldFat,
	model.FieldSaturates, model.FieldCarbs, model.FieldSugar,
	model.FieldFiber, model.FieldProtein, model.FieldSalt,
}

func hasNutrientField(fields map[string]any) bool {
	for _, col := range nutrientColumns {
		if _, ok := fields[col]; ok {
			return true
		}
	}
	return false
}

func addServingFields(fields map[string]any, n model.Nutrition) {
	add := func(col string, v *float64) {
		if v != nil {
			fields[col] = *v
		}
	}
	add("energy_kcal_serving", n.EnergyKcal)
	add("energy_kj_serving", n.EnergyKJ)
	add("fat_serving", n.Fat)
	add("saturates_serving", n.Saturates)
	add("carbs_serving", n.Carbs)
	add("sugar_serving", n.Sugar)
	add("fiber_serving", n.Fiber)
	add("protein_serving", n.Protein)
	add("salt_serving", n.Salt)
}
