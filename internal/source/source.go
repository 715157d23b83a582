// Package source implements the knowledge sources consulted by the cascade.
// All sources share one capability: look a product up by name and brand and
// return an untrusted candidate, or nothing. Sources never write anywhere.
package source

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

// Source names, recorded in candidates and ledger rows.
const (
	NameStatic    = "static_knowledge"
	NameKnowledge = "structured_query"
	NameRetailer  = "retailer_search"
	NameWebSearch = "web_search"
)

// Source is the common capability of every knowledge source. Lookup returns
// (nil, nil) on no match; errors are treated by the cascade as a non-match.
type Source interface {
	Name() string
	Lookup(ctx context.Context, name, brand string) (*model.Candidate, error)
}

// newLimiter builds a per-source limiter from a requests-per-minute figure.
// Each source paces itself so a throttled source does not stall the others.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases, strips diacritics, and collapses whitespace so
// curated-table matching tolerates cosmetic differences only.
func normalizeName(s string) string {
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// searchQuery builds the product query string shared by the search sources.
func searchQuery(name, brand string) string {
	if brand != "" {
		return brand + " " + name + " ingredients nutrition"
	}
	return name + " ingredients nutrition"
}
