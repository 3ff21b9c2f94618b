// Package ecoleta provides a client for the Ecoleta backend API, which lists
// collectible item categories and stores collection points.
package ecoleta

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
	"github.com/giovannicarmo/ecoleta-ui/internal/resilience"
)

// Client defines the backend operations used by the create-point page.
type Client interface {
	// ListItems returns the selectable item categories.
	ListItems(ctx context.Context) ([]model.Category, error)
	// CreatePoint stores a new collection point.
	CreatePoint(ctx context.Context, p model.PointPayload) error
}

// Option configures the backend client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client. A nil client is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// configured HTTP client, so a client passed to WithHTTPClient is never
// modified.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a backend client rooted at baseURL (e.g. "http://localhost:3333").
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *httpClient) ListItems(ctx context.Context) ([]model.Category, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/items", nil)
	if err != nil {
		return nil, eris.Wrap(err, "ecoleta: create items request")
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ecoleta: list items")
	}

	var items []model.Category
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, eris.Wrap(err, "ecoleta: unmarshal items")
	}
	return items, nil
}

func (c *httpClient) CreatePoint(ctx context.Context, p model.PointPayload) error {
	if p.Items == nil {
		p.Items = []int{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "ecoleta: marshal point")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/points", bytes.NewReader(data))
	if err != nil {
		return eris.Wrap(err, "ecoleta: create point request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if _, err := c.do(req); err != nil {
		return eris.Wrap(err, "ecoleta: create point")
	}
	return nil
}

// do sends req and returns the body of a 2xx response.
func (c *httpClient) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}

	zap.L().Debug("ecoleta: request complete",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := resilience.CheckStatus("ecoleta", resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}
