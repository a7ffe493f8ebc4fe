package bestbuy

import (
	"context"
	"encoding/json"
	"errors"
)

// Category is a node of the upstream category taxonomy.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// maxPageSize is the largest page Best Buy serves.
const maxPageSize = 100

// SearchCategories lists categories whose name starts with prefix, in upstream order.
// Upstream matching is not guaranteed to be case or whitespace insensitive.
// docs: https://bestbuyapis.github.io/api-documentation/#categories-api
func (c *Client) SearchCategories(ctx context.Context, prefix string) ([]Category, error) {
	if prefix == "" {
		return nil, errors.New("category prefix is required")
	}

	q := PageQuery{Show: []string{"id", "name"}, PageSize: maxPageSize}
	body, err := c.Get(ctx, "category search", "/categories(name="+escapeFilterValue(prefix)+"*)", q.values())
	if err != nil {
		return nil, err
	}
	page, err := ParsePage[Category](body, "categories")
	if err != nil {
		return nil, &UpstreamError{Operation: "category search", Kind: KindDecode, Err: err}
	}
	return page.Items, nil
}

// Categories returns one page of the unfiltered category listing. Items are kept raw
// because the caller picks the fields with PageQuery.Show.
func (c *Client) Categories(ctx context.Context, q PageQuery) (*Page[json.RawMessage], error) {
	if len(q.Show) == 0 {
		q.Show = []string{"id", "name"}
	}
	body, err := c.Get(ctx, "category listing", "/categories", q.values())
	if err != nil {
		return nil, err
	}
	page, err := ParsePage[json.RawMessage](body, "categories")
	if err != nil {
		return nil, &UpstreamError{Operation: "category listing", Kind: KindDecode, Err: err}
	}
	return page, nil
}
