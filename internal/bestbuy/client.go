package bestbuy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shopcat/internal/config"
)

const (
	// DefaultBaseURL is the Best Buy products API base URL.
	DefaultBaseURL = "https://api.bestbuy.com/v1"
	// DefaultTimeout bounds how long a single upstream call may wait for a response.
	DefaultTimeout = 8 * time.Second

	maxBodyBytes = 4 << 20
)

var tracer = otel.Tracer("shopcat/internal/bestbuy")

// ErrMissingAPIKey is returned when a client is built without credentials.
var ErrMissingAPIKey = errors.New("catalog API key is required")

// Client calls the Best Buy catalog API. Every call carries the API key and format=json.
// It is safe for concurrent use and never retries.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default bounded-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a catalog client. A missing API key is a configuration error.
func NewClient(cfg config.CatalogConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues one GET against path (relative to the base URL) and returns the raw body.
// Failures are always *UpstreamError.
func (c *Client) Get(ctx context.Context, operation, path string, params url.Values) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "catalog "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.path", path)),
	)
	defer span.End()

	body, err := c.get(ctx, operation, path, params)
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			span.SetAttributes(attribute.String("catalog.error.kind", string(upstreamErr.Kind)))
			if upstreamErr.StatusCode != 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", upstreamErr.StatusCode))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return body, err
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values) ([]byte, error) {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Kind: KindTransport, Err: fmt.Errorf("parse %s URL: %w", operation, err)}
	}

	query := url.Values{}
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}
	slog.DebugContext(ctx, "catalog request", "operation", operation, "path", reqURL.Path, "query", query.Encode())

	query.Set("apiKey", c.apiKey)
	query.Set("format", "json")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Kind: KindTransport, Err: fmt.Errorf("build %s request: %w", operation, stripURL(err))}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(operation, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return nil, classifyTransport(operation, fmt.Errorf("read %s response: %w", operation, err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body := c.redact(strings.TrimSpace(buf.String()))
		if len(body) > 512 {
			body = body[:512]
		}
		slog.ErrorContext(ctx, "received catalog error response",
			"operation", operation,
			"status", resp.StatusCode,
			"body", body,
		)
		return nil, &UpstreamError{
			Operation:  operation,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return buf.Bytes(), nil
}

// Ready probes the upstream with the cheapest listing call available.
func (c *Client) Ready(ctx context.Context) error {
	params := url.Values{}
	params.Set("pageSize", "1")
	params.Set("show", "id")
	if _, err := c.Get(ctx, "readiness", "/categories", params); err != nil {
		return fmt.Errorf("catalog upstream not ready: %w", err)
	}
	return nil
}

func (c *Client) redact(s string) string {
	return strings.ReplaceAll(s, c.apiKey, "[redacted]")
}

func classifyTransport(operation string, err error) *UpstreamError {
	kind := KindTransport
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &UpstreamError{Operation: operation, Kind: kind, Err: stripURL(err)}
}

// stripURL drops the request URL, which carries the API key, from transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
