// Package ibge provides a client for the IBGE localidades API (Brazilian
// states and municipalities).
package ibge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/giovannicarmo/ecoleta-ui/internal/resilience"
)

// DefaultBaseURL is the public IBGE localidades endpoint.
const DefaultBaseURL = "https://servicodados.ibge.gov.br/api/v1/localidades"

// Client looks up Brazilian administrative divisions.
type Client interface {
	// States lists every federative unit.
	States(ctx context.Context) ([]State, error)
	// Cities lists the municipalities of the state with the given code (e.g. "MG").
	Cities(ctx context.Context, uf string) ([]City, error)
}

// State is a federative unit as returned by /estados.
type State struct {
	ID   int    `json:"id"`
	Code string `json:"sigla"`
	Name string `json:"nome"`
}

// City is a municipality as returned by /estados/{uf}/municipios.
type City struct {
	ID   int    `json:"id"`
	Name string `json:"nome"`
}

// Option configures the IBGE client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

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

// WithRateLimit sets the requests-per-second limit for outbound calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClient creates a new IBGE client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
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

func (c *httpClient) States(ctx context.Context) ([]State, error) {
	var states []State
	if err := c.get(ctx, "/estados", &states); err != nil {
		return nil, eris.Wrap(err, "ibge: list states")
	}
	return states, nil
}

func (c *httpClient) Cities(ctx context.Context, uf string) ([]City, error) {
	if uf == "" {
		return nil, eris.New("ibge: state code is required")
	}
	var cities []City
	path := fmt.Sprintf("/estados/%s/municipios", url.PathEscape(uf))
	if err := c.get(ctx, path, &cities); err != nil {
		return nil, eris.Wrapf(err, "ibge: list cities of %s", uf)
	}
	return cities, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	zap.L().Debug("ibge: request complete",
		zap.String("url", reqURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := resilience.CheckStatus("ibge", resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
