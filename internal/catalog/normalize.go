package catalog

import (
	"net/url"
	"strings"

	"shopcat/internal/bestbuy"
)

const (
	// UnnamedProduct stands in for a missing product name.
	UnnamedProduct = "Unnamed product"

	searchPageURL = "https://www.bestbuy.com/site/searchpage.jsp?st="
)

// Product is the client-facing product shape.
type Product struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	SalePrice float64 `json:"salePrice"`
	Image     *string `json:"image"`
	URL       string  `json:"url"`
}

// Normalize maps a raw upstream record to a Product. Image priority is
// largeImage, image, thumbnailImage. A missing url is replaced by a search link for the sku.
func Normalize(raw bestbuy.Product) Product {
	sku := strings.TrimSpace(string(raw.SKU))

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = UnnamedProduct
	}

	var image *string
	for _, candidate := range []string{raw.LargeImage, raw.Image, raw.ThumbnailImage} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			image = &candidate
			break
		}
	}

	link := strings.TrimSpace(raw.URL)
	if link == "" && sku != "" {
		link = searchPageURL + url.QueryEscape(sku)
	}

	return Product{
		SKU:       sku,
		Name:      name,
		SalePrice: raw.SalePrice,
		Image:     image,
		URL:       link,
	}
}

// linkable reports whether Normalize can produce a navigable url for raw.
func linkable(raw bestbuy.Product) bool {
	return strings.TrimSpace(raw.URL) != "" || strings.TrimSpace(string(raw.SKU)) != ""
}
