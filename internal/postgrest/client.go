// Package postgrest is a small client for PostgREST-compatible REST data
// stores (such as Supabase). It covers the verbs the catalog needs: select
// with filters, ordering and relationship embedding, insert, patch and
// delete, all authenticated with a static API key.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-billboard/internal/metrics"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// MaxRequestSize is the maximum request body size (1MB)
	MaxRequestSize = 1 * 1024 * 1024
)

// Config holds the store endpoint, credentials and transport settings.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// DefaultConfig returns transport defaults for the given endpoint and key.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:         baseURL,
		APIKey:          apiKey,
		Timeout:         DefaultTimeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Client sends requests to one store endpoint.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
	logger  *zap.Logger
}

// NewClient validates cfg and builds a client. BaseURL is the REST root,
// e.g. https://project.supabase.co/rest/v1.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid store url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("store api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL: base,
		apiKey:  cfg.APIKey,
		logger:  logger.Named("postgrest"),
	}, nil
}

// Select reads rows of table matching q and decodes the JSON array into out.
func (c *Client) Select(ctx context.Context, table string, q *Query, out any) error {
	return c.do(ctx, http.MethodGet, table, q, nil, out)
}

// Insert creates one row (body is an object) or several (body is a slice)
// and decodes the created rows into out when out is non-nil.
func (c *Client) Insert(ctx context.Context, table string, body any, out any) error {
	return c.do(ctx, http.MethodPost, table, nil, body, out)
}

// Update patches the rows matching q with body and decodes the updated rows
// into out when out is non-nil. q must carry at least one filter.
func (c *Client) Update(ctx context.Context, table string, q *Query, body any, out any) error {
	if !q.Filtered() {
		return ErrUnfiltered
	}
	return c.do(ctx, http.MethodPatch, table, q, body, out)
}

// Delete removes the rows matching q. q must carry at least one filter.
func (c *Client) Delete(ctx context.Context, table string, q *Query) error {
	if !q.Filtered() {
		return ErrUnfiltered
	}
	return c.do(ctx, http.MethodDelete, table, q, nil, nil)
}

func (c *Client) endpoint(table string, q *Query) string {
	u := *c.baseURL
	u.Path = u.Path + "/" + url.PathEscape(table)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, table string, q *Query, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("postgrest: encode %s body: %w", table, err)
		}
		if len(b) > MaxRequestSize {
			return fmt.Errorf("postgrest: request body too large: %d bytes (max %d)", len(b), MaxRequestSize)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(table, q), bodyReader)
	if err != nil {
		return fmt.Errorf("postgrest: build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	metrics.StoreRequestDuration.WithLabelValues(table, method).Observe(duration.Seconds())
	if err != nil {
		metrics.StoreRequestsTotal.WithLabelValues(table, method, "error").Inc()
		c.logger.Error("store request failed",
			zap.String("method", method), zap.String("table", table), zap.Error(err))
		return fmt.Errorf("postgrest: %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()
	metrics.StoreRequestsTotal.WithLabelValues(table, method, strconv.Itoa(resp.StatusCode)).Inc()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("postgrest: read %s response: %w", table, err)
	}
	if len(payload) > MaxResponseSize {
		return fmt.Errorf("postgrest: response body too large (max %d)", MaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		storeErr := decodeError(resp.StatusCode, payload)
		c.logger.Warn("store rejected request",
			zap.String("method", method), zap.String("table", table),
			zap.Int("status", resp.StatusCode), zap.String("code", storeErr.Code),
			zap.String("message", storeErr.Message))
		return storeErr
	}

	c.logger.Debug("store request",
		zap.String("method", method), zap.String("table", table),
		zap.Int("status", resp.StatusCode), zap.Duration("duration", duration))

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("postgrest: decode %s response: %w", table, err)
	}
	return nil
}
