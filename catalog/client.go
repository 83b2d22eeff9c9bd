// Package catalog talks to the upstream commerce API and resolves product
// page identifiers to upstream product IDs.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"globesuggest/api/schema"
)

// SiteOrigin is the Origin header the upstream API expects from us.
const SiteOrigin = "https://globesuggest.com"

const (
	searchPath  = "/globesuggest/api/products/search/"
	productPath = "/globesuggest/api/products/%s/"
	maxBody     = 10 << 20
)

var (
	// ErrNotFound means the identifier does not map to an upstream product.
	ErrNotFound = errors.New("product not found")
	// ErrUnavailable means the upstream API could not answer.
	ErrUnavailable = errors.New("product service temporarily unavailable")
	// ErrNoBaseURL means GLOBESUGGEST_API_BASE is not set.
	ErrNoBaseURL = errors.New("GLOBESUGGEST_API_BASE is not configured")
)

// StatusError is a non-2xx response from the upstream API.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// HTTPClient matches net/http.Client Do signature for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

func NewClient(httpClient HTTPClient, cfg Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// Search runs an upstream product search. Items that are not objects come
// back as zero Products so positions are preserved.
func (c *Client) Search(ctx context.Context, q string) ([]schema.Product, error) {
	body, err := c.get(ctx, searchPath, url.Values{"q": {q}})
	if err != nil {
		return nil, err
	}

	var raw []any
	switch v := body.(type) {
	case map[string]any:
		raw = firstList(v, "data", "results")
	case []any:
		raw = v
	}

	items := make([]schema.Product, len(raw))
	for i, item := range raw {
		if m, ok := item.(map[string]any); ok {
			items[i] = schema.NewProduct(m)
		}
	}
	return items, nil
}

// Product fetches one product by upstream ID, unwrapping a {"data": {...}}
// envelope when present.
func (c *Client) Product(ctx context.Context, id string) (schema.Product, error) {
	body, err := c.get(ctx, fmt.Sprintf(productPath, url.PathEscape(id)), nil)
	if err != nil {
		return schema.Product{}, err
	}
	m, ok := body.(map[string]any)
	if !ok {
		return schema.Product{}, fmt.Errorf("upstream product %s: unexpected response shape", id)
	}
	if data, ok := m["data"].(map[string]any); ok && len(data) > 0 {
		return schema.NewProduct(data), nil
	}
	return schema.NewProduct(m), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (any, error) {
	if c.baseURL == "" {
		return nil, ErrNoBaseURL
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", SiteOrigin)
	if c.apiKey != "" {
		req.Header.Set("X-GLOBESUGGEST-API-KEY", c.apiKey)
		req.Header.Set("X-GLOBE", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &StatusError{Code: resp.StatusCode, URL: path}
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid JSON from %s: %w", path, err)
	}
	return out, nil
}

func firstList(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if l, ok := m[k].([]any); ok && len(l) > 0 {
			return l
		}
	}
	return nil
}
