// Package cascade runs the knowledge sources in trust order until one
// yields a candidate that passes the validator, or every source is
// exhausted. Exhaustion is a normal terminal state, not an error.
package cascade

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pantry-labs/enrich-cli/internal/model"
	"github.com/pantry-labs/enrich-cli/internal/source"
	"github.com/pantry-labs/enrich-cli/internal/validate"
)

// MethodExhausted is recorded when no source produced an accepted candidate.
const MethodExhausted = "exhausted"

// Attempt records one source invocation for auditing and pacing decisions.
type Attempt struct {
	Source   string        `json:"source"`
	Elapsed  time.Duration `json:"elapsed"`
	Matched  bool          `json:"matched"`
	Accepted bool          `json:"accepted"`
	Err      string        `json:"err,omitempty"`
}

// Result is the outcome of one cascade invocation for one product.
type Result struct {
	Method    string            `json:"method"` // winning source, or MethodExhausted
	Candidate *model.Candidate  `json:"candidate,omitempty"`
	Outcome   *validate.Outcome `json:"-"`
	Attempts  []Attempt         `json:"attempts"`
}

// Exhausted reports whether every source was consulted without an accept.
func (r Result) Exhausted() bool { return r.Method == MethodExhausted }

// Controller holds the ordered source list and the validator gate. Order is
// a design decision: decreasing reliability, increasing cost. A source is
// consulted at most once per invocation and lower-trust sources are never
// consulted after an accept.
type Controller struct {
	sources       []source.Source
	validator     *validate.Validator
	lookupTimeout time.Duration
}

// New creates a cascade controller over the given sources, in trust order.
func New(sources []source.Source, validator *validate.Validator, lookupTimeout time.Duration) *Controller {
	return &Controller{
		sources:       sources,
		validator:     validator,
		lookupTimeout: lookupTimeout,
	}
}

// Run tries each source in order for the given product. The first candidate
// the validator accepts wins. Source errors and timeouts are treated as a
// non-match and the cascade advances.
func (c *Controller) Run(ctx context.Context, p model.Product) Result {
	result := Result{Method: MethodExhausted}

	for _, src := range c.sources {
		attempt := Attempt{Source: src.Name()}
		start := time.Now()

		lookupCtx := ctx
		var cancel context.CancelFunc
		if c.lookupTimeout > 0 {
			lookupCtx, cancel = context.WithTimeout(ctx, c.lookupTimeout)
		}
		cand, err := src.Lookup(lookupCtx, p.Name, p.Brand)
		if cancel != nil {
			cancel()
		}
		attempt.Elapsed = time.Since(start)

		if err != nil {
			// SourceUnavailable: recover locally, advance the cascade.
			attempt.Err = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			zap.L().Warn("source lookup failed",
				zap.Int64("product_id", p.ID),
				zap.String("source", src.Name()),
				zap.Duration("elapsed", attempt.Elapsed),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return result
			}
			continue
		}
		if cand == nil {
			result.Attempts = append(result.Attempts, attempt)
			zap.L().Debug("source no match",
				zap.Int64("product_id", p.ID),
				zap.String("source", src.Name()),
			)
			continue
		}

		attempt.Matched = true
		outcome := c.validator.Check(p, *cand)
		if !outcome.Accepted {
			result.Attempts = append(result.Attempts, attempt)
			zap.L().Debug("candidate not accepted",
				zap.Int64("product_id", p.ID),
				zap.String("source", src.Name()),
				zap.Any("rejected", outcome.Rejected),
			)
			continue
		}

		attempt.Accepted = true
		result.Attempts = append(result.Attempts, attempt)
		result.Method = src.Name()
		result.Candidate = cand
		result.Outcome = &outcome
		return result
	}

	return result
}
