// Package client talks to the Query Service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/backtest-vault/internal/models"
	"golang.org/x/time/rate"
)

// Config holds configuration for the API client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RateLimit    float64 // requests per second, 0 disables
	Logger       *logrus.Logger
}

// DefaultConfig returns defaults matching the server's defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:5000/api/",
		Timeout:      60 * time.Second,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		RateLimit:    10,
	}
}

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is a rate-limited, optionally retrying Query Service client
type Client struct {
	base    *url.URL
	http    *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

type ctxKey int

const noRetryKey ctxKey = iota

// New creates a client for the API rooted at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
		cfg.Logger.SetOutput(io.Discard)
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{cfg.Logger.WithField("component", "client")}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		base:    base,
		http:    rc,
		limiter: rate.NewLimiter(limit, 1),
		logger:  cfg.Logger,
	}, nil
}

// retryPolicy retries network errors and 429/5xx, never for requests marked
// non-idempotent.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if noRetry, _ := ctx.Value(noRetryKey).(bool); noRetry {
		return false, nil
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

func (c *Client) endpoint(parts ...string) string {
	return c.base.JoinPath(parts...).String()
}

// do sends body as JSON and decodes a 2xx response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}
	if method == http.MethodPost {
		ctx = context.WithValue(ctx, noRetryKey, true)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := http.StatusText(resp.StatusCode)
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Error != "":
			msg = body.Error
		case body.Message != "":
			msg = body.Message
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

type messageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// ListBacktests fetches every backtest record, newest first.
func (c *Client) ListBacktests(ctx context.Context) ([]*models.BacktestRecord, error) {
	var out []*models.BacktestRecord
	if err := c.do(ctx, http.MethodGet, c.endpoint("backtest"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBacktest stores rec and returns its id.
func (c *Client) CreateBacktest(ctx context.Context, rec *models.BacktestRecord) (int64, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("backtest"), rec, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateBacktest replaces every field of record id.
func (c *Client) UpdateBacktest(ctx context.Context, id int64, rec *models.BacktestRecord) error {
	return c.do(ctx, http.MethodPut, c.endpoint("backtest", strconv.FormatInt(id, 10)), rec, nil)
}

// DeleteBacktest removes record id.
func (c *Client) DeleteBacktest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.endpoint("backtest", strconv.FormatInt(id, 10)), nil, nil)
}

// ListStrategies fetches every strategy bundle.
func (c *Client) ListStrategies(ctx context.Context) ([]*models.StrategyFileBundle, error) {
	var out []*models.StrategyFileBundle
	if err := c.do(ctx, http.MethodGet, c.endpoint("strategies"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type uploadRequest struct {
	StrategyName   string `json:"strategy_name"`
	StrategyExFile string `json:"strategy_ex_file"`
	StrategyMqFile string `json:"strategy_mq_file"`
}

// UploadStrategy stores a compiled/source pair and returns its id.
func (c *Client) UploadStrategy(ctx context.Context, b *models.StrategyFileBundle) (int64, error) {
	var out messageResponse
	req := uploadRequest{
		StrategyName:   b.StrategyName,
		StrategyExFile: b.StrategyExFile,
		StrategyMqFile: b.StrategyMqFile,
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint("upload", "strategies"), req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// DeleteStrategy removes bundle id.
func (c *Client) DeleteStrategy(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.endpoint("strategies", strconv.FormatInt(id, 10)), nil, nil)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}

// leveledLogger keeps retryablehttp's per-request chatter at debug.
type leveledLogger struct {
	entry *logrus.Entry
}

func (l leveledLogger) fields(kv []interface{}) *logrus.Entry {
	e := l.entry
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			e = e.WithField(k, kv[i+1])
		}
	}
	return e
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.fields(kv).Error(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.fields(kv).Debug(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.fields(kv).Debug(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.fields(kv).Warn(msg) }
