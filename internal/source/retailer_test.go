package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantry-labs/enrich-cli/internal/extract"
	"github.com/pantry-labs/enrich-cli/internal/model"
	"github.com/pantry-labs/enrich-cli/pkg/webindex"
)

const richSnippet = "Ingredients: Wheat Flour, Sugar, Palm Oil, Cocoa Butter, Salt. Serving size: 25g. Energy: 450 kcal per 100g."

// fakeSearch returns one canned answer per call, in order.
type fakeSearch struct {
	answers []searchAnswer
	queries []string
}

type searchAnswer struct {
	results []webindex.Result
	err     error
}

func (f *fakeSearch) Search(_ context.Context, query string, _ ...webindex.SearchOption) ([]webindex.Result, error) {
	f.queries = append(f.queries, query)
	if len(f.answers) == 0 {
		return nil, nil
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a.results, a.err
}

func TestRetailer_FirstDomainWins(t *testing.T) {
	fs := &fakeSearch{answers: []searchAnswer{
		{results: []webindex.Result{{URL: "https://tesco.com/p/1", Snippet: richSnippet}}},
	}}
	r := NewRetailer(fs, []string{"tesco.com", "ocado.com"}, 6000)

	c, err := r.Lookup(context.Background(), "Choc Biscuits", "Acme")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, NameRetailer, c.Source)
	assert.Equal(t, "https://tesco.com/p/1", c.URL)
	// ingredients + serving + nutrition groups.
	assert.Equal(t, 70, c.Confidence)
	assert.Len(t, fs.queries, 1)
	assert.Contains(t, fs.queries[0], "Acme Choc Biscuits")
}

func TestRetailer_FailingDomainSkipped(t *testing.T) {
	fs := &fakeSearch{answers: []searchAnswer{
		{err: errors.New("upstream 500")},
		{results: []webindex.Result{{URL: "https://ocado.com/p/2", Snippet: richSnippet}}},
	}}
	r := NewRetailer(fs, []string{"tesco.com", "ocado.com"}, 6000)

	c, err := r.Lookup(context.Background(), "Choc Biscuits", "Acme")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "https://ocado.com/p/2", c.URL)
	assert.Len(t, fs.queries, 2)
}

func TestRetailer_UnmatchedSnippetsSkipped(t *testing.T) {
	fs := &fakeSearch{answers: []searchAnswer{
		{results: []webindex.Result{
			{URL: "https://tesco.com/offers", Snippet: "Great value multipacks, shop now."},
		}},
		{results: []webindex.Result{
			{URL: "https://ocado.com/p/2", Snippet: richSnippet},
		}},
	}}
	r := NewRetailer(fs, []string{"tesco.com", "ocado.com"}, 6000)

	c, err := r.Lookup(context.Background(), "Choc Biscuits", "Acme")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "https://ocado.com/p/2", c.URL)
}

func TestRetailer_AllDomainsMissReturnsNothing(t *testing.T) {
	fs := &fakeSearch{}
	r := NewRetailer(fs, []string{"tesco.com", "ocado.com"}, 6000)

	c, err := r.Lookup(context.Background(), "Choc Biscuits", "Acme")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Len(t, fs.queries, 2)
}

func TestRetailerConfidence_ScalesWithFieldGroups(t *testing.T) {
	tests := []struct {
		name string
		ex   extract.Result
		want int
	}{
		{"one group", extract.Result{ServingSize: "25g"}, 60},
		{"two groups", extract.Result{ServingSize: "25g", Allergens: "Wheat, Milk"}, 65},
		{
			"all groups",
			extract.Result{
				Ingredients: "Wheat Flour, Sugar, Palm Oil, Cocoa Butter, Salt",
				ServingSize: "25g",
				Allergens:   "Wheat, Milk",
				Per100g:     model.Nutrition{EnergyKcal: f(450)},
			},
			75,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retailerConfidence(tt.ex))
		})
	}
}
