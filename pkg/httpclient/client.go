package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"wallgrab/pkg/config"
	errs "wallgrab/pkg/errors"
	"wallgrab/pkg/logger"
	"wallgrab/pkg/models"
	"wallgrab/pkg/ratelimit"
	"wallgrab/pkg/retry"
)

const defaultUserAgent = "wallgrab/1.0"

// Client fetches pages and image payloads from content servers
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	maxBytes   int64
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLimiter paces every request through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy for transient failures
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithMaxBytes caps the size of a fetched payload; zero means no limit
func WithMaxBytes(n int64) Option {
	return func(c *Client) { c.maxBytes = n }
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client. A zero timeout leaves requests unbounded.
func NewClient(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      defaultUserAgent,
			"Accept-Language": "en-US,en;q=0.9",
		},
		limiter: ratelimit.Unlimited(),
		retry:   retry.NoRetry(),
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from download, retry and rate limit settings
func NewFromConfig(cfg *config.Config, log logger.Logger) *Client {
	retryCfg := retry.NoRetry()
	if cfg.Retry.Enabled && cfg.Retry.MaxAttempts > 1 {
		retryCfg = &retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    cfg.Retry.BaseDelay,
				MaxDelay:     cfg.Retry.MaxDelay,
				Multiplier:   cfg.Retry.Multiplier,
				JitterFactor: 0.1,
			},
			RetryIf: retry.DefaultRetryIf,
			Logger:  log,
		}
	}

	c := NewClient(cfg.Download.Timeout, log,
		WithLimiter(ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)),
		WithRetry(retryCfg),
		WithMaxBytes(cfg.Download.MaxFileSize),
	)
	if cfg.Download.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.Download.UserAgent)
	}
	return c
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// do performs one rate-limited GET and maps failures to typed errors.
// The caller owns the response body on success.
func (c *Client) do(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(err, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeUnknown, URL: rawURL, Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.Wrap(err, rawURL)
	}
	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, time.Since(start))

	if err := errs.FromStatus(resp.StatusCode, rawURL); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Fetch downloads rawURL and returns its bytes and declared content type
func (c *Client) Fetch(ctx context.Context, rawURL string) (*models.Payload, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (*models.Payload, error) {
		return c.fetchOnce(ctx, rawURL)
	}, c.retry)
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (*models.Payload, error) {
	resp, err := c.do(ctx, rawURL, "image/*,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := c.readBody(resp.Body, rawURL)
	if err != nil {
		return nil, err
	}

	return &models.Payload{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (c *Client) readBody(body io.Reader, rawURL string) ([]byte, error) {
	if c.maxBytes > 0 {
		body = io.LimitReader(body, c.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.Wrap(err, rawURL)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, errs.New(errs.ErrorTypeTooLarge, 0, rawURL, fmt.Sprintf("payload exceeds %d bytes", c.maxBytes))
	}
	return data, nil
}

// GetDocument fetches an HTML page and parses it
func (c *Client) GetDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (*goquery.Document, error) {
		resp, err := c.do(ctx, rawURL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := c.readBody(resp.Body, rawURL)
		if err != nil {
			return nil, err
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			return nil, &errs.Error{Type: errs.ErrorTypeParsing, URL: rawURL, Message: err.Error(), Err: err}
		}
		doc.Url = resp.Request.URL
		return doc, nil
	}, c.retry)
}

// GetJSON performs a GET request and decodes the JSON response into target
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.do(ctx, rawURL, "application/json")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := c.readBody(resp.Body, rawURL)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, target); err != nil {
			preview := string(body)
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
				"url":          rawURL,
				"error":        err.Error(),
				"body_preview": preview,
			})
			return &errs.Error{Type: errs.ErrorTypeParsing, URL: rawURL, Message: err.Error(), Err: err}
		}
		return nil
	}, c.retry)
}
