package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"shopcat/internal/bestbuy"
)

type server struct {
	resolver   *Resolver
	aggregator *Aggregator
}

func NewHandler(resolver *Resolver, aggregator *Aggregator) *server {
	return &server{
		resolver:   resolver,
		aggregator: aggregator,
	}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", s.handleProducts)
	mux.HandleFunc("GET /categories", s.handleCategories)
}

type productsResponse struct {
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	Items        []Product `json:"items"`
}

type pagedProductsResponse struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	*Result[Product]
}

type errorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	name := strings.TrimSpace(query.Get("category"))
	if name == "" {
		writeError(ctx, w, &ValidationError{Field: "category", Message: "category query parameter is required"})
		return
	}

	slog.InfoContext(ctx, "product query", "category", name)
	resolution, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		slog.WarnContext(ctx, "category resolution failed", "category", name, "error", err)
		writeError(ctx, w, err)
		return
	}
	category := resolution.Category
	slog.InfoContext(ctx, "resolved category",
		"category", name,
		"categoryID", category.ID,
		"categoryName", category.Name,
		"tier", resolution.Tier,
		"candidates", resolution.Candidates,
	)

	params, explicit := parseListingParams(query)
	if !explicit {
		products, err := s.aggregator.Top(ctx, category.ID, atoiOr(query.Get("limit"), DefaultTopN))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, productsResponse{
			CategoryID:   category.ID,
			CategoryName: category.Name,
			Items:        products,
		})
		return
	}

	// product fields are fixed by the normalized shape
	params.Show = nil
	result, err := s.aggregator.Products(ctx, category.ID, params)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "retrieved products", "categoryID", category.ID, "mode", result.Mode, "items", len(result.Items), "fetches", result.Fetches)
	writeJSON(ctx, w, http.StatusOK, pagedProductsResponse{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Result:       result,
	})
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, _ := parseListingParams(r.URL.Query())
	result, err := s.aggregator.Categories(ctx, params)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "listed categories", "mode", result.Mode, "items", len(result.Items), "fetches", result.Fetches, "stopReason", result.StopReason)
	writeJSON(ctx, w, http.StatusOK, result)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// writeError is the only place internal failures become a response envelope.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	resp := errorResponse{
		Error:  "Internal error",
		Status: http.StatusInternalServerError,
	}

	var validationErr *ValidationError
	var upstreamErr *bestbuy.UpstreamError
	switch {
	case errors.As(err, &validationErr):
		resp.Error = "Invalid request"
		resp.Status = http.StatusBadRequest
		resp.Details = validationErr.Error()
	case errors.Is(err, ErrCategoryNotFound):
		resp.Error = "Category not found"
		resp.Status = http.StatusNotFound
	case errors.Is(err, ErrNoProducts):
		resp.Error = "No products found"
		resp.Status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads this
		resp.Error = "Request canceled"
		resp.Status = 499
	case errors.As(err, &upstreamErr):
		resp.Error = upstreamErr.Reason()
		resp.Status = upstreamErr.Status()
		resp.Details = upstreamErr.Details()
	}

	if resp.Status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", "status", resp.Status, "error", err)
	}
	writeJSON(ctx, w, resp.Status, resp)
}
