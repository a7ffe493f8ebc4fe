package bestbuy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopcat/internal/config"
)

const testAPIKey = "test-key-123"

func newTestClient(t *testing.T, server *httptest.Server, timeout time.Duration) *Client {
	t.Helper()

	client, err := NewClient(config.CatalogConfig{
		APIKey:  testAPIKey,
		BaseURL: server.URL,
		Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.CatalogConfig{APIKey: "  "})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	client, err := NewClient(config.CatalogConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("unexpected base url: %q", client.baseURL)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Fatalf("unexpected timeout: %v", client.httpClient.Timeout)
	}
}

func TestGet_InjectsAPIKeyAndFormat(t *testing.T) {
	t.Parallel()

	var capturedReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, time.Second)
	if _, err := client.Get(context.Background(), "test", "/categories", nil); err != nil {
		t.Fatalf("get: %v", err)
	}

	if capturedReq == nil {
		t.Fatal("expected request to be captured")
	}
	if got := capturedReq.URL.Query().Get("apiKey"); got != testAPIKey {
		t.Fatalf("unexpected apiKey: %q", got)
	}
	if got := capturedReq.URL.Query().Get("format"); got != "json" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := capturedReq.Header.Get("Accept"); got != "application/json" {
		t.Fatalf("unexpected Accept header: %q", got)
	}
}

func TestGet_StatusErrorCarriesUpstreamStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errorMessage":"key ` + testAPIKey + ` is over quota"}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, time.Second)
	_, err := client.Get(context.Background(), "test", "/categories", nil)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Kind != KindStatus {
		t.Fatalf("unexpected kind: %s", upstreamErr.Kind)
	}
	if upstreamErr.Status() != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", upstreamErr.Status())
	}
	if upstreamErr.Reason() != "Upstream error" {
		t.Fatalf("unexpected reason: %q", upstreamErr.Reason())
	}
	if strings.Contains(err.Error(), testAPIKey) {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestGet_TimeoutIsClassified(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, 50*time.Millisecond)
	_, err := client.Get(context.Background(), "test", "/categories", nil)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Kind != KindTimeout {
		t.Fatalf("unexpected kind: %s (%v)", upstreamErr.Kind, err)
	}
	if upstreamErr.Reason() != "Upstream timeout" {
		t.Fatalf("unexpected reason: %q", upstreamErr.Reason())
	}
	if upstreamErr.Status() != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", upstreamErr.Status())
	}
	if strings.Contains(err.Error(), testAPIKey) {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestGet_TransportErrorHidesURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, server, time.Second)
	server.Close()

	_, err := client.Get(context.Background(), "test", "/categories", nil)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Kind != KindTransport {
		t.Fatalf("unexpected kind: %s", upstreamErr.Kind)
	}
	if strings.Contains(err.Error(), testAPIKey) {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestSearchCategories_BuildsPrefixFilter(t *testing.T) {
	t.Parallel()

	var capturedReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		_, _ = w.Write([]byte(`{
			"from": 1, "to": 2, "currentPage": 1, "total": 2, "totalPages": 1,
			"categories": [
				{"id": "abcat0800000", "name": "Cell Phones"},
				{"id": "pcmcat209400050001", "name": "Cell Phone Accessories"}
			]
		}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, time.Second)
	categories, err := client.SearchCategories(context.Background(), "Cell Phone & More")
	if err != nil {
		t.Fatalf("search categories: %v", err)
	}

	if capturedReq.URL.Path != "/categories(name=Cell Phone & More*)" {
		t.Fatalf("unexpected path: %q", capturedReq.URL.Path)
	}
	if !strings.Contains(capturedReq.URL.RawPath, "%26") {
		t.Fatalf("expected & to be escaped in raw path: %q", capturedReq.URL.RawPath)
	}
	if got := capturedReq.URL.Query().Get("show"); got != "id,name" {
		t.Fatalf("unexpected show: %q", got)
	}
	if got := capturedReq.URL.Query().Get("pageSize"); got != "100" {
		t.Fatalf("unexpected pageSize: %q", got)
	}
	if len(categories) != 2 || categories[0].ID != "abcat0800000" || categories[1].Name != "Cell Phone Accessories" {
		t.Fatalf("unexpected categories: %+v", categories)
	}
}

func TestProducts_ParsesPageAndSKU(t *testing.T) {
	t.Parallel()

	var capturedReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		_, _ = w.Write([]byte(`{
			"from": 11, "to": 12, "currentPage": 2, "total": 40, "totalPages": 4,
			"nextCursorMark": "AoNeDQ",
			"products": [
				{"sku": 6525421, "name": "Phone", "salePrice": 799.99, "url": "https://example.com/p/6525421"},
				{"sku": "777", "name": null, "salePrice": null, "image": null}
			]
		}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, time.Second)
	page, err := client.Products(context.Background(), "abcat0800000", PageQuery{Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("products: %v", err)
	}

	if capturedReq.URL.Path != "/products(categoryPath.id=abcat0800000)" {
		t.Fatalf("unexpected path: %q", capturedReq.URL.Path)
	}
	query := capturedReq.URL.Query()
	if query.Get("page") != "2" || query.Get("pageSize") != "10" {
		t.Fatalf("unexpected paging query: %v", query)
	}
	if query.Get("cursorMark") != "" {
		t.Fatalf("cursorMark should not be set in page mode: %v", query)
	}
	if query.Get("show") != strings.Join(ProductFields, ",") {
		t.Fatalf("unexpected show: %q", query.Get("show"))
	}

	if page.CurrentPage != 2 || page.From != 11 || page.To != 12 {
		t.Fatalf("unexpected page metadata: %+v", page)
	}
	if page.Total == nil || *page.Total != 40 || page.TotalPages == nil || *page.TotalPages != 4 {
		t.Fatalf("unexpected totals: %+v", page)
	}
	if page.NextCursorMark != "AoNeDQ" {
		t.Fatalf("unexpected cursor: %q", page.NextCursorMark)
	}
	if len(page.Items) != 2 {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	if page.Items[0].SKU != "6525421" || page.Items[1].SKU != "777" {
		t.Fatalf("unexpected skus: %q %q", page.Items[0].SKU, page.Items[1].SKU)
	}
	if page.Items[1].Name != "" || page.Items[1].SalePrice != 0 {
		t.Fatalf("null fields should decode to zero values: %+v", page.Items[1])
	}
}

func TestProducts_CursorQuery(t *testing.T) {
	t.Parallel()

	var capturedReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedReq = r
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, time.Second)
	page, err := client.Products(context.Background(), "abc", PageQuery{Page: 3, CursorMark: CursorStart})
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if got := capturedReq.URL.Query().Get("cursorMark"); got != "*" {
		t.Fatalf("unexpected cursorMark: %q", got)
	}
	if got := capturedReq.URL.Query().Get("page"); got != "" {
		t.Fatalf("page should not be sent with a cursor: %q", got)
	}
	if page.Total != nil || len(page.Items) != 0 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestProducts_DecodeErrorIsClassified(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, time.Second)
	_, err := client.Products(context.Background(), "abc", PageQuery{})

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) || upstreamErr.Kind != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("pageSize") != "1" {
			t.Errorf("unexpected pageSize: %q", r.URL.Query().Get("pageSize"))
		}
		_, _ = w.Write([]byte(`{"categories": []}`))
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server, time.Second)
	if err := client.Ready(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
}
