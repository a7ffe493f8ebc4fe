package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"shopcat/internal/bestbuy"
)

const (
	// MaxIterations caps the number of fetches one aggregate-all traversal may make.
	MaxIterations = 10000
	// MaxPageSize is the largest page upstream serves; it is also the default.
	MaxPageSize = 100
	// DefaultTopN is the page size of the top products shortcut.
	DefaultTopN = 5
)

// Mode selects how a listing is retrieved.
type Mode string

const (
	ModePage   Mode = "page"
	ModeCursor Mode = "cursor"
	ModeAll    Mode = "all"
)

// StopReason records why an aggregate-all traversal ended.
type StopReason string

const (
	StopNoCursor  StopReason = "no_next_cursor"
	StopEmptyPage StopReason = "empty_page"
	StopCycle     StopReason = "cursor_cycle"
	StopCeiling   StopReason = "iteration_limit"
)

// PageFunc fetches one page of a listing.
type PageFunc[T any] func(ctx context.Context, q bestbuy.PageQuery) (*bestbuy.Page[T], error)

// Params describes one retrieval. Only the fields relevant to Mode are used.
type Params struct {
	Mode       Mode
	Page       int
	PageSize   int
	CursorMark string
	Show       []string
}

// Result is a retrieved listing plus the pagination metadata of its mode.
type Result[T any] struct {
	Mode           Mode       `json:"mode"`
	Items          []T        `json:"items"`
	CurrentPage    int        `json:"currentPage,omitempty"`
	From           int        `json:"from,omitempty"`
	To             int        `json:"to,omitempty"`
	Total          *int       `json:"total"`
	TotalPages     *int       `json:"totalPages"`
	NextCursorMark string     `json:"nextCursorMark,omitempty"`
	Fetches        int        `json:"fetches,omitempty"`
	StopReason     StopReason `json:"stopReason,omitempty"`
}

// ClampPageSize keeps n within [1, MaxPageSize]; non-positive sizes mean MaxPageSize.
func ClampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Fetch runs p against fetch. maxIterations only applies to ModeAll.
func Fetch[T any](ctx context.Context, fetch PageFunc[T], p Params, maxIterations int) (*Result[T], error) {
	switch p.Mode {
	case ModeAll:
		return FetchAll(ctx, fetch, p.PageSize, p.Show, maxIterations)
	case ModeCursor:
		return FetchCursor(ctx, fetch, p.CursorMark, p.PageSize, p.Show)
	case ModePage, "":
		return FetchPage(ctx, fetch, p.Page, p.PageSize, p.Show)
	default:
		return nil, &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", p.Mode)}
	}
}

// FetchPage fetches a single page by offset.
func FetchPage[T any](ctx context.Context, fetch PageFunc[T], page, pageSize int, show []string) (*Result[T], error) {
	if page < 1 {
		page = 1
	}
	got, err := fetch(ctx, bestbuy.PageQuery{Show: show, Page: page, PageSize: ClampPageSize(pageSize)})
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	return &Result[T]{
		Mode:        ModePage,
		Items:       orEmpty(got.Items),
		CurrentPage: got.CurrentPage,
		From:        got.From,
		To:          got.To,
		Total:       got.Total,
		TotalPages:  got.TotalPages,
		Fetches:     1,
	}, nil
}

// FetchCursor fetches the single page at cursorMark and returns the mark that continues it.
func FetchCursor[T any](ctx context.Context, fetch PageFunc[T], cursorMark string, pageSize int, show []string) (*Result[T], error) {
	cursorMark = strings.TrimSpace(cursorMark)
	if cursorMark == "" {
		cursorMark = bestbuy.CursorStart
	}
	got, err := fetch(ctx, bestbuy.PageQuery{Show: show, CursorMark: cursorMark, PageSize: ClampPageSize(pageSize)})
	if err != nil {
		return nil, fmt.Errorf("fetch cursor page: %w", err)
	}
	return &Result[T]{
		Mode:           ModeCursor,
		Items:          orEmpty(got.Items),
		Total:          got.Total,
		TotalPages:     got.TotalPages,
		NextCursorMark: got.NextCursorMark,
		Fetches:        1,
	}, nil
}

// FetchAll walks every cursor page starting from "*". It stops when upstream stops
// issuing marks, returns an empty page, repeats a mark already used in this walk, or
// after maxIterations fetches. Pages are fetched one at a time since each needs the
// previous page's mark.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], pageSize int, show []string, maxIterations int) (*Result[T], error) {
	if maxIterations <= 0 || maxIterations > MaxIterations {
		maxIterations = MaxIterations
	}

	res := &Result[T]{Mode: ModeAll, Items: []T{}}
	seen := map[string]struct{}{}
	cursor := bestbuy.CursorStart
	for {
		if res.Fetches >= maxIterations {
			res.StopReason = StopCeiling
			break
		}
		if _, ok := seen[cursor]; ok {
			res.StopReason = StopCycle
			break
		}
		seen[cursor] = struct{}{}

		page, err := fetch(ctx, bestbuy.PageQuery{Show: show, CursorMark: cursor, PageSize: ClampPageSize(pageSize)})
		res.Fetches++
		if err != nil {
			return nil, fmt.Errorf("fetch cursor page %d: %w", res.Fetches, err)
		}
		res.Total = page.Total
		res.TotalPages = page.TotalPages

		if len(page.Items) == 0 {
			res.StopReason = StopEmptyPage
			break
		}
		res.Items = append(res.Items, page.Items...)

		if page.NextCursorMark == "" {
			res.StopReason = StopNoCursor
			break
		}
		cursor = page.NextCursorMark
	}

	if res.StopReason == StopCycle || res.StopReason == StopCeiling {
		slog.WarnContext(ctx, "cursor traversal cut short", "reason", res.StopReason, "fetches", res.Fetches, "items", len(res.Items))
	}
	return res, nil
}

type catalogSource interface {
	Products(ctx context.Context, categoryID string, q bestbuy.PageQuery) (*bestbuy.Page[bestbuy.Product], error)
	Categories(ctx context.Context, q bestbuy.PageQuery) (*bestbuy.Page[json.RawMessage], error)
}

// Aggregator retrieves product and category listings from the catalog.
type Aggregator struct {
	source        catalogSource
	maxIterations int
}

type AggregatorOption func(*Aggregator)

// WithMaxIterations lowers the aggregate-all fetch ceiling.
func WithMaxIterations(n int) AggregatorOption {
	return func(a *Aggregator) {
		a.maxIterations = n
	}
}

func NewAggregator(source catalogSource, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{source: source, maxIterations: MaxIterations}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Products retrieves products of a category in any mode, dropping records that have
// no usable link and normalizing the rest.
func (a *Aggregator) Products(ctx context.Context, categoryID string, p Params) (*Result[Product], error) {
	raw, err := Fetch(ctx, a.productPages(categoryID), p, a.maxIterations)
	if err != nil {
		return nil, err
	}
	return &Result[Product]{
		Mode:           raw.Mode,
		Items:          normalizeAll(raw.Items),
		CurrentPage:    raw.CurrentPage,
		From:           raw.From,
		To:             raw.To,
		Total:          raw.Total,
		TotalPages:     raw.TotalPages,
		NextCursorMark: raw.NextCursorMark,
		Fetches:        raw.Fetches,
		StopReason:     raw.StopReason,
	}, nil
}

// Top returns up to n linkable products from the first page of a category.
// n outside [1, MaxPageSize] means DefaultTopN.
func (a *Aggregator) Top(ctx context.Context, categoryID string, n int) ([]Product, error) {
	if n <= 0 || n > MaxPageSize {
		n = DefaultTopN
	}
	res, err := FetchPage(ctx, a.productPages(categoryID), 1, n, nil)
	if err != nil {
		return nil, err
	}
	products := normalizeAll(res.Items)
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	return products, nil
}

// Categories retrieves the category listing in any mode. Items are passed through
// with the fields selected by p.Show.
func (a *Aggregator) Categories(ctx context.Context, p Params) (*Result[json.RawMessage], error) {
	return Fetch[json.RawMessage](ctx, a.source.Categories, p, a.maxIterations)
}

func (a *Aggregator) productPages(categoryID string) PageFunc[bestbuy.Product] {
	return func(ctx context.Context, q bestbuy.PageQuery) (*bestbuy.Page[bestbuy.Product], error) {
		return a.source.Products(ctx, categoryID, q)
	}
}

func normalizeAll(raw []bestbuy.Product) []Product {
	return lo.Map(lo.Filter(raw, func(p bestbuy.Product, _ int) bool {
		return linkable(p)
	}), func(p bestbuy.Product, _ int) Product {
		return Normalize(p)
	})
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
