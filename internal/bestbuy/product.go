package bestbuy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ProductFields are the product attributes requested by default.
var ProductFields = []string{"sku", "name", "salePrice", "image", "thumbnailImage", "largeImage", "url"}

// Product is a raw Best Buy product record. Any field may be absent or null.
type Product struct {
	SKU            SKU     `json:"sku"`
	Name           string  `json:"name"`
	SalePrice      float64 `json:"salePrice"`
	Image          string  `json:"image"`
	ThumbnailImage string  `json:"thumbnailImage"`
	LargeImage     string  `json:"largeImage"`
	URL            string  `json:"url"`
}

// SKU accepts both the numeric form Best Buy returns and a quoted string.
type SKU string

func (s *SKU) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshal sku: %w", err)
		}
		*s = SKU(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshal sku: %w", err)
	}
	*s = SKU(n.String())
	return nil
}

// Products returns one page of products in a category.
// docs: https://bestbuyapis.github.io/api-documentation/#products-api
func (c *Client) Products(ctx context.Context, categoryID string, q PageQuery) (*Page[Product], error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return nil, errors.New("category ID is required")
	}
	if len(q.Show) == 0 {
		q.Show = ProductFields
	}

	path := "/products(categoryPath.id=" + escapeFilterValue(categoryID) + ")"
	body, err := c.Get(ctx, "product listing", path, q.values())
	if err != nil {
		return nil, err
	}
	page, err := ParsePage[Product](body, "products")
	if err != nil {
		return nil, &UpstreamError{Operation: "product listing", Kind: KindDecode, Err: err}
	}
	return page, nil
}
