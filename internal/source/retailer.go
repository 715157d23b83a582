package source

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/pantry-labs/enrich-cli/internal/extract"
	"github.com/pantry-labs/enrich-cli/internal/model"
	"github.com/pantry-labs/enrich-cli/pkg/webindex"
)

// Retailer confidence: base for one matched field group, small bonus per
// additional group, capped below the static and knowledge sources.
const (
	retailerBaseConfidence = 60
	retailerGroupBonus     = 5
	retailerMaxConfidence  = 75
)

// Retailer searches an allow-list of trusted retailer domains and extracts
// fields from result snippets. Domains are tried in order until one yields
// a snippet with at least one validly formed field.
type Retailer struct {
	search  webindex.Client
	domains []string
	limiter *rate.Limiter
}

// NewRetailer creates the domain-restricted search source.
func NewRetailer(search webindex.Client, domains []string, perMinute int) *Retailer {
	return &Retailer{
		search:  search,
		domains: domains,
		limiter: newLimiter(perMinute),
	}
}

func (r *Retailer) Name() string { return NameRetailer }

func (r *Retailer) Lookup(ctx context.Context, name, brand string) (*model.Candidate, error) {
	query := searchQuery(name, brand)

	for _, domain := range r.domains {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		results, err := r.search.Search(ctx, query, webindex.WithSiteFilter(domain))
		if err != nil {
			// A failing domain is skipped, not fatal: the next trusted
			// domain may still answer.
			continue
		}

		for _, res := range results {
			ex := extract.FromText(res.Snippet)
			if !ex.Matched() {
				continue
			}
			return candidateFromExtraction(NameRetailer, res.URL, ex, retailerConfidence(ex)), nil
		}
	}

	return nil, nil
}

func retailerConfidence(ex extract.Result) int {
	conf := retailerBaseConfidence + retailerGroupBonus*(ex.FieldGroups()-1)
	if conf > retailerMaxConfidence {
		conf = retailerMaxConfidence
	}
	return conf
}

func candidateFromExtraction(source, url string, ex extract.Result, confidence int) *model.Candidate {
	return &model.Candidate{
		Source:      source,
		URL:         url,
		Confidence:  confidence,
		Ingredients: ex.Ingredients,
		ServingSize: ex.ServingSize,
		Allergens:   ex.Allergens,
		Per100g:     ex.Per100g,
	}
}
