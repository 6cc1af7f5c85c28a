// Package upstream loads the product catalog from a paginated HTTP upstream.
//
// The upstream serves GET <endpoint>?page=N with a JSON array of items and
// reports the total page count in the X-Pages header. Transient failures
// (5xx, 429, network) are retried with exponential backoff; 4xx responses
// fail immediately.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/catalog-api/pkg/logging"
)

// PagesHeader carries the total page count on every upstream page.
const PagesHeader = "X-Pages"

// maxPageBytes bounds a single page body.
const maxPageBytes = 32 << 20

// Prometheus metrics for upstream client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the upstream, e.g. "https://catalog.internal".
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// Retry controls backoff for transient failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "catalog-api/1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client fetches single pages from the upstream.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  logging.NewLogger("upstream-client"),
	}, nil
}

// FetchPage fetches one page of endpoint and returns its body together with
// the total page count announced by the upstream.
func (c *Client) FetchPage(ctx context.Context, endpoint string, pageNum int) ([]byte, int, error) {
	target := fmt.Sprintf("%s%s?page=%d", c.baseURL, endpoint, pageNum)

	var body []byte
	var totalPages int

	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		var err error
		body, totalPages, err = c.fetchOnce(ctx, endpoint, target)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return body, totalPages, nil
}

// fetchOnce performs a single attempt. Every failure is an *UpstreamError
// so the retry loop can classify it.
func (c *Client) fetchOnce(ctx context.Context, endpoint, target string) ([]byte, int, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The caller gave up; retrying would only burn the backoff.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("url", target).Msg("Upstream request failed")
		return nil, 0, &UpstreamError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		c.logger.Warn().
			Str("url", target).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Upstream request error")
		return nil, 0, &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
		}
	}

	totalPages := 1
	if h := resp.Header.Get(PagesHeader); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil || n < 1 {
			return nil, 0, fmt.Errorf("invalid %s header %q", PagesHeader, h)
		}
		totalPages = n
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, 0, &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}
	if len(body) > maxPageBytes {
		return nil, 0, errors.New("upstream page exceeds size limit")
	}

	return body, totalPages, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
