package catalog

import (
	"context"
	"encoding/json"

	"shopcat/internal/bestbuy"
)

// fakeCatalog stands in for the upstream client and counts every call it receives.
type fakeCatalog struct {
	candidates []bestbuy.Category
	searchErr  error
	products   func(q bestbuy.PageQuery) (*bestbuy.Page[bestbuy.Product], error)
	categories func(q bestbuy.PageQuery) (*bestbuy.Page[json.RawMessage], error)

	calls    int
	prefixes []string
	queries  []bestbuy.PageQuery
}

func (f *fakeCatalog) SearchCategories(_ context.Context, prefix string) ([]bestbuy.Category, error) {
	f.calls++
	f.prefixes = append(f.prefixes, prefix)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.candidates, nil
}

func (f *fakeCatalog) Products(_ context.Context, _ string, q bestbuy.PageQuery) (*bestbuy.Page[bestbuy.Product], error) {
	f.calls++
	f.queries = append(f.queries, q)
	return f.products(q)
}

func (f *fakeCatalog) Categories(_ context.Context, q bestbuy.PageQuery) (*bestbuy.Page[json.RawMessage], error) {
	f.calls++
	f.queries = append(f.queries, q)
	return f.categories(q)
}

func intPtr(n int) *int {
	return &n
}
