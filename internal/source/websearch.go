package source

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/pantry-labs/enrich-cli/internal/extract"
	"github.com/pantry-labs/enrich-cli/internal/model"
	"github.com/pantry-labs/enrich-cli/pkg/webindex"
)

// WebSearch is the last-resort source: an unrestricted query with the same
// extraction machinery as Retailer, but a confidence ceiling that by default
// sits below the validator's acceptance threshold.
type WebSearch struct {
	search  webindex.Client
	maxConf int
	limiter *rate.Limiter
}

// NewWebSearch creates the generic search source.
func NewWebSearch(search webindex.Client, maxConfidence int, perMinute int) *WebSearch {
	return &WebSearch{
		search:  search,
		maxConf: maxConfidence,
		limiter: newLimiter(perMinute),
	}
}

func (w *WebSearch) Name() string { return NameWebSearch }

func (w *WebSearch) Lookup(ctx context.Context, name, brand string) (*model.Candidate, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	results, err := w.search.Search(ctx, searchQuery(name, brand))
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		ex := extract.FromText(res.Snippet)
		if !ex.Matched() {
			continue
		}

		conf := retailerConfidence(ex)
		if conf > w.maxConf {
			conf = w.maxConf
		}
		return candidateFromExtraction(NameWebSearch, res.URL, ex, conf), nil
	}

	return nil, nil
}
