package bestbuy

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CursorStart is the cursor mark that opens a cursor traversal.
const CursorStart = "*"

// Page is one page of a Best Buy listing (products or categories).
type Page[T any] struct {
	From           int    `json:"from"`
	To             int    `json:"to"`
	CurrentPage    int    `json:"currentPage"`
	Total          *int   `json:"total"`
	TotalPages     *int   `json:"totalPages"`
	NextCursorMark string `json:"nextCursorMark"`
	Items          []T    `json:"-"`
}

// PageQuery selects which page of a listing to fetch. A non-empty CursorMark wins over Page.
type PageQuery struct {
	Show       []string
	Page       int
	PageSize   int
	CursorMark string
}

func (q PageQuery) values() url.Values {
	params := url.Values{}
	if len(q.Show) > 0 {
		params.Set("show", strings.Join(q.Show, ","))
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	switch {
	case q.CursorMark != "":
		params.Set("cursorMark", q.CursorMark)
	case q.Page > 0:
		params.Set("page", strconv.Itoa(q.Page))
	}
	return params
}

// ParsePage decodes a listing payload whose items live under itemsKey
// ("products" or "categories"). A missing or null items field yields an empty page.
func ParsePage[T any](data []byte, itemsKey string) (*Page[T], error) {
	var page Page[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("unmarshal listing: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal listing fields: %w", err)
	}
	raw, ok := fields[itemsKey]
	if !ok || string(raw) == "null" {
		page.Items = []T{}
		return &page, nil
	}
	if err := json.Unmarshal(raw, &page.Items); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", itemsKey, err)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return &page, nil
}

// filterEscaper covers the characters url.PathEscape leaves alone that Best Buy
// treats as filter syntax.
var filterEscaper = strings.NewReplacer("&", "%26", "=", "%3D", "+", "%2B", "|", "%7C")

func escapeFilterValue(v string) string {
	return filterEscaper.Replace(url.PathEscape(v))
}
