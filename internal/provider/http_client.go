package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"wallet-sync/internal/observability"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// backoff doubles the wait after every failed attempt, capped at max.
type backoff struct {
	initial time.Duration
	max     time.Duration
}

// wait returns the pause before retry n (n >= 1).
func (b backoff) wait(n int) time.Duration {
	d := b.initial
	for i := 1; i < n && d < b.max; i++ {
		d *= 2
	}
	return min(d, b.max)
}

// HTTPClient talks to the provider REST API. Safe for concurrent use.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	retries int
	backoff backoff
	logger  *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

// ClientOption customizes an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) { c.apiKey = key }
}

// WithTimeout bounds a single HTTP attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.retries = max(n, 0) }
}

// WithRetryDelay sets the pause before the first retry.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.backoff.initial = d }
}

// WithMaxDelay caps the pause between retries.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.backoff.max = d }
}

// WithRateLimit caps outgoing requests to rps with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithLogger sets the logger used to report records dropped while decoding.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// NewHTTPClient returns a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
		retries: DefaultMaxRetries,
		backoff: backoff{initial: DefaultRetryDelay, max: DefaultMaxDelay},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the provider's response wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

// apiError is the provider's error body.
type apiError struct {
	Errors []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"errors"`
}

// statusError is a non-2xx response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	var parsed apiError
	if json.Unmarshal([]byte(e.Body), &parsed) == nil && len(parsed.Errors) > 0 {
		return fmt.Sprintf("status %d: %s", e.Code, parsed.Errors[0].Message)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// retryable reports whether another attempt may succeed.
func (e *statusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// get performs a GET with rate limiting, retries and exponential backoff,
// decoding the data envelope into result.
func (c *HTTPClient) get(ctx context.Context, method, path string, query url.Values, result any) error {
	start := time.Now()
	err := c.doGet(ctx, path, query, result)
	observability.RecordProviderCall(method, time.Since(start).Seconds(), err)
	return err
}

func (c *HTTPClient) doGet(ctx context.Context, path string, query url.Values, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.backoff.wait(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		body, err := c.attempt(ctx, endpoint)
		if err == nil {
			if result == nil {
				return nil
			}
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
			}
			return nil
		}

		var serr *statusError
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.As(err, &serr) && serr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		case errors.As(err, &serr) && !serr.retryable():
			return fmt.Errorf("%w: %v", ErrUnavailable, serr)
		case errors.Is(err, errLimiter):
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		lastErr = err
	}

	return fmt.Errorf("%w: giving up after %d attempts: %v", ErrUnavailable, c.retries+1, lastErr)
}

var errLimiter = errors.New("rate limiter")

// attempt performs one rate-limited GET and returns the body of a 2xx response.
func (c *HTTPClient) attempt(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", errLimiter, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetWalletBalances retrieves current balances for an address.
func (c *HTTPClient) GetWalletBalances(ctx context.Context, chain, address string) ([]Balance, error) {
	path := fmt.Sprintf("/v1/networks/%s/addresses/%s/balances", url.PathEscape(chain), url.PathEscape(address))

	var resp envelope[[]json.RawMessage]
	if err := c.get(ctx, "balances", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get wallet balances: %w", err)
	}
	return decodeRecords[Balance](c.logger.With(zap.String("wallet", address)), "balance", resp.Data), nil
}

// GetWalletTransactions retrieves the most recent transactions for an address.
func (c *HTTPClient) GetWalletTransactions(ctx context.Context, chain, address string, limit int) ([]Transaction, error) {
	path := fmt.Sprintf("/v1/networks/%s/addresses/%s/transactions", url.PathEscape(chain), url.PathEscape(address))

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp envelope[[]json.RawMessage]
	if err := c.get(ctx, "transactions", path, query, &resp); err != nil {
		return nil, fmt.Errorf("get wallet transactions: %w", err)
	}

	txs := decodeRecords[Transaction](c.logger.With(zap.String("wallet", address)), "transaction", resp.Data)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// GetTokenPrice retrieves the USD price for a currency code.
func (c *HTTPClient) GetTokenPrice(ctx context.Context, code string) (*Money, error) {
	path := "/v1/prices/" + url.PathEscape(code)

	var resp envelope[*Money]
	if err := c.get(ctx, "price", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get token price %s: %w", code, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("get token price %s: %w", code, ErrNotFound)
	}
	return resp.Data, nil
}

// decodeRecords decodes each element independently so one malformed record
// is dropped without losing the rest of the response.
func decodeRecords[T any](logger *zap.Logger, kind string, raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			logger.Warn("dropping malformed provider record",
				zap.String("kind", kind),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, v)
	}
	return out
}
