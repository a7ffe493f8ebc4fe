package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"shopcat/internal/bestbuy"
	"shopcat/internal/catalog"
	"shopcat/internal/config"
)

func main() {
	var (
		categoryName = flag.String("category", "", "category name to resolve (required)")
		all          = flag.Bool("all", false, "walk every product page with a cursor instead of fetching the top products")
		limit        = flag.Int("limit", catalog.DefaultTopN, "number of top products to fetch when -all is not set")
		pageSize     = flag.Int("page-size", catalog.MaxPageSize, "page size for -all")
		baseURL      = flag.String("base-url", "", "catalog API base URL (defaults to CATALOG_BASE_URL)")
		timeout      = flag.Duration("timeout", 5*time.Minute, "overall timeout for catalog calls")
	)
	flag.Parse()

	if strings.TrimSpace(*categoryName) == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		exitErr(fmt.Errorf("load .env: %w", err))
	}

	cfg, err := config.Load()
	if err != nil {
		exitErr(err)
	}
	if *baseURL != "" {
		cfg.Catalog.BaseURL = *baseURL
	}

	client, err := bestbuy.NewClient(cfg.Catalog)
	if err != nil {
		exitErr(fmt.Errorf("create catalog client: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resolution, err := catalog.NewResolver(client).Resolve(ctx, *categoryName)
	if err != nil {
		exitErr(err)
	}
	fmt.Printf("Category: %s: %s (%s match, %d candidates)\n",
		resolution.Category.Name, resolution.Category.ID, resolution.Tier, resolution.Candidates)

	aggregator := catalog.NewAggregator(client)
	var products []catalog.Product
	if *all {
		slog.Info("walking category", "categoryID", resolution.Category.ID, "pageSize", *pageSize)
		result, err := aggregator.Products(ctx, resolution.Category.ID, catalog.Params{Mode: catalog.ModeAll, PageSize: *pageSize})
		if err != nil {
			exitErr(err)
		}
		products = result.Items
		fmt.Printf("Fetches: %d, stopped: %s\n", result.Fetches, result.StopReason)
		if result.Total != nil {
			fmt.Printf("Upstream total: %d\n", *result.Total)
		}
	} else {
		products, err = aggregator.Top(ctx, resolution.Category.ID, *limit)
		if err != nil && !errors.Is(err, catalog.ErrNoProducts) {
			exitErr(err)
		}
	}

	for _, p := range products {
		fmt.Printf("Item: %s: %s, $%.2f\n", p.Name, p.SKU, p.SalePrice)
	}

	fmt.Printf("Linkable products: %d\n", len(products))
	fmt.Printf("Without image: %d\n", lo.CountBy(products, func(p catalog.Product) bool { return p.Image == nil }))
	fmt.Printf("Unnamed: %d\n", lo.CountBy(products, func(p catalog.Product) bool { return p.Name == catalog.UnnamedProduct }))
	fmt.Printf("Search-page links: %d\n", lo.CountBy(products, func(p catalog.Product) bool {
		return strings.Contains(p.URL, "searchpage.jsp")
	}))
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
