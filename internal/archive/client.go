package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"exohunt/internal/config"
	"exohunt/internal/logging"
)

const (
	invokePath   = "/api/v0/invoke"
	downloadPath = "/api/v0.1/Download/file"

	defaultRequestTimeout  = 60 * time.Second
	defaultDownloadTimeout = 5 * time.Minute
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 2 * time.Second
	defaultRetryMaxDelay   = 20 * time.Second
	maxErrorBody           = 512
	maxProductBytes        = 512 << 20
	pageSize               = 50000
)

// Options captures the runtime settings of a Client.
type Options struct {
	BaseURL          string
	Token            string
	// Mission filters free-form name lookups; empty or "all" searches every
	// collection. Catalog ids always carry their own mission.
	Mission          string
	RequestTimeout   time.Duration
	DownloadTimeout  time.Duration
	CacheTTL         time.Duration
	ConeRadiusArcsec float64
	QualityBitmask   string
}

// OptionsFromConfig extracts client settings from the archive section.
func OptionsFromConfig(cfg *config.Config) Options {
	a := cfg.Archive
	return Options{
		BaseURL:          a.BaseURL,
		Token:            a.APIToken,
		Mission:          a.NameMission,
		RequestTimeout:   time.Duration(a.RequestTimeout) * time.Second,
		DownloadTimeout:  time.Duration(a.DownloadTimeout) * time.Second,
		CacheTTL:         time.Duration(a.SearchCacheMinutes) * time.Minute,
		ConeRadiusArcsec: a.ConeRadiusArcsec,
		QualityBitmask:   a.QualityBitmask,
	}
}

// Client wraps the MAST portal API.
type Client struct {
	opts       Options
	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleep          func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetry overrides the retry count and backoff for transient failures.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New constructs a MAST client. The HTTP client uses the default transport;
// timeouts are applied per request through the context.
func New(opts Options, options ...Option) *Client {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://mast.stsci.edu"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = defaultDownloadTimeout
	}
	if opts.ConeRadiusArcsec <= 0 {
		opts.ConeRadiusArcsec = 10
	}
	opts.Mission = CanonicalMission(opts.Mission)
	if opts.Mission == "" {
		opts.Mission = MissionAll
	}
	c := &Client{
		opts:           opts,
		httpClient:     &http.Client{},
		logger:         logging.NewNop(),
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
		sleep:          sleepContext,
	}
	if opts.CacheTTL > 0 {
		c.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mast: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type invokeRequest struct {
	Service  string `json:"service"`
	Format   string `json:"format"`
	Params   any    `json:"params"`
	PageSize int    `json:"pagesize,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// invoke posts one portal service request and decodes the JSON reply into out.
func (c *Client) invoke(ctx context.Context, service string, params any, out any) error {
	encoded, err := json.Marshal(invokeRequest{Service: service, Format: "json", Params: params, PageSize: pageSize, Page: 1})
	if err != nil {
		return fmt.Errorf("mast %s: encode request: %w", service, err)
	}
	form := url.Values{"request": {string(encoded)}}
	body, err := c.doWithRetry(ctx, c.opts.RequestTimeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+invokePath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("mast %s: %w", service, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("mast %s: decode response: %w", service, err)
	}
	return nil
}

// doWithRetry executes the request built by build, retrying transient
// failures with exponential backoff. Each attempt gets its own timeout.
func (c *Client) doWithRetry(ctx context.Context, timeout time.Duration, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	attempts := c.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.doOnce(ctx, timeout, build)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !c.retryable(ctx, err) || attempt == attempts {
			break
		}
		delay := c.backoff(attempt)
		c.logger.Debug("retrying archive request",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, timeout time.Duration, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := build(reqCtx)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "token "+c.opts.Token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProductBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxProductBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxProductBytes)
	}
	return body, nil
}

func (c *Client) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay << (attempt - 1)
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
