package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"shopcat/internal/bestbuy"
)

// ErrCategoryNotFound means upstream returned no candidate for the requested name.
var ErrCategoryNotFound = errors.New("category not found")

// MatchTier records how a category was picked.
type MatchTier string

const (
	TierExact    MatchTier = "exact"
	TierPrefix   MatchTier = "prefix"
	TierFallback MatchTier = "fallback"
)

type categorySearcher interface {
	SearchCategories(ctx context.Context, prefix string) ([]bestbuy.Category, error)
}

// Resolution is the category a free-text name resolved to.
type Resolution struct {
	Category   bestbuy.Category
	Tier       MatchTier
	Candidates int
}

// Resolver turns a free-text category name into a single upstream category.
type Resolver struct {
	searcher categorySearcher
}

func NewResolver(searcher categorySearcher) *Resolver {
	return &Resolver{searcher: searcher}
}

// Resolve returns ErrCategoryNotFound only when upstream has no candidates at all;
// an imperfect match still resolves.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (*Resolution, error) {
	prefix := strings.Join(strings.Fields(rawName), " ")
	if prefix == "" {
		return nil, &ValidationError{Field: "category", Message: "category name is required"}
	}

	candidates, err := r.searcher.SearchCategories(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("search categories for %q: %w", prefix, err)
	}

	category, tier, ok := Match(rawName, candidates)
	if !ok {
		return nil, ErrCategoryNotFound
	}
	slog.DebugContext(ctx, "matched category", "query", rawName, "categoryID", category.ID, "tier", tier, "candidates", len(candidates))
	return &Resolution{
		Category:   category,
		Tier:       tier,
		Candidates: len(candidates),
	}, nil
}

// Match picks a candidate for query: an exact canonical match, then a canonical
// prefix match, then the first candidate in upstream order.
func Match(query string, candidates []bestbuy.Category) (bestbuy.Category, MatchTier, bool) {
	if len(candidates) == 0 {
		return bestbuy.Category{}, "", false
	}

	want := Canonicalize(query)
	canonical := lo.Map(candidates, func(c bestbuy.Category, _ int) string {
		return Canonicalize(c.Name)
	})

	if _, idx, ok := lo.FindIndexOf(canonical, func(name string) bool { return name == want }); ok {
		return candidates[idx], TierExact, true
	}
	if _, idx, ok := lo.FindIndexOf(canonical, func(name string) bool { return strings.HasPrefix(name, want) }); ok {
		return candidates[idx], TierPrefix, true
	}
	return candidates[0], TierFallback, true
}
