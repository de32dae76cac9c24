// Package gateway is the single HTTP access point to the campus events API.
//
// Every request carries the current bearer credential when one exists. A 401
// on an authenticated request invalidates that credential through the bound
// Credentials (normally the session store), which signs the user out once no
// matter how many requests fail concurrently. Failed requests are never
// replayed under the cleared credential.
package gateway

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
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the events API served by a local development backend.
	DefaultBaseURL = "http://localhost:5000/api"
	// DefaultUserAgent identifies this client
	DefaultUserAgent = "campus-cli/1.0"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 15 * time.Second
	// RetryBaseDelay is the initial backoff delay for retried GETs
	RetryBaseDelay = 500 * time.Millisecond

	maxResponseBytes = 10 << 20
)

// Credentials supplies and revokes the bearer credential. The gateway only
// ever reads or clears it; writing a credential is the session's job.
type Credentials interface {
	// Token returns the credential to attach, or "" when signed out.
	Token() string
	// Invalidate drops token if it is still the current credential and
	// reports whether it did.
	Invalidate(ctx context.Context, token string) bool
}

// Client talks to the events API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	observer   Observer
	retries    int

	mu    sync.RWMutex
	creds Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithObserver installs request/response hooks.
func WithObserver(obs Observer) Option {
	return func(c *Client) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// WithRetries retries idempotent GET requests on transport errors, 429 and
// 5xx responses. Other methods and 401 responses are never retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// NewClient creates a client for the API rooted at baseURL (e.g.
// "http://localhost:5000/api").
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		observer:  NopObserver{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetCredentials binds the credential provider. Until one is bound every
// request is sent anonymously.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// call describes one API operation.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	// anonymous calls (login, register) never carry a credential and report
	// rejections as authentication failures.
	anonymous bool
	fallback  string
}

// do executes a call and returns the raw response body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	requestURL := c.baseURL + cl.path
	if len(cl.query) > 0 {
		requestURL += "?" + cl.query.Encode()
	}

	var payload []byte
	if cl.body != nil {
		var err error
		payload, err = json.Marshal(cl.body)
		if err != nil {
			return nil, validationError(cl.op, fmt.Errorf("encode request: %w", err))
		}
	}

	token := ""
	creds := c.credentials()
	if !cl.anonymous && creds != nil {
		token = creds.Token()
	}

	maxAttempts := 1
	if cl.method == http.MethodGet {
		maxAttempts += c.retries
	}

	var lastErr *Error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			// Exponential backoff: base, 2*base, 4*base, ...
			delay := RetryBaseDelay * time.Duration(1<<uint(attempt-2))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, transportError(cl.op, ctx.Err())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(cl.op, fmt.Errorf("rate limiter: %w", err))
		}

		body, status, contentType, err := c.roundTrip(ctx, cl, requestURL, payload, token, attempt)
		if err != nil {
			lastErr = transportError(cl.op, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		if status >= 200 && status < 300 {
			return body, nil
		}

		if status == http.StatusUnauthorized && !cl.anonymous {
			if token != "" && creds != nil {
				creds.Invalidate(ctx, token)
			}
			return nil, statusError(cl.op, status, body, contentType, false, "your session has expired, please log in again")
		}

		lastErr = statusError(cl.op, status, body, contentType, cl.anonymous, cl.fallback)
		if status == http.StatusTooManyRequests || status >= 500 {
			continue
		}
		return nil, lastErr
	}

	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, cl call, requestURL string, payload []byte, token string, attempt int) ([]byte, int, string, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, requestURL, reader)
	if err != nil {
		return nil, 0, "", fmt.Errorf("create request: %w", err)
	}

	info := RequestInfo{
		Op:            cl.op,
		Method:        cl.method,
		Path:          cl.path,
		RequestID:     uuid.NewString(),
		TokenAttached: token != "",
		Attempt:       attempt,
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", info.RequestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.observer.RequestSent(ctx, info)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.ResponseReceived(ctx, info, ResponseInfo{Duration: time.Since(start), Err: err})
		return nil, 0, "", fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	res := ResponseInfo{Status: resp.StatusCode, Bytes: len(body), Duration: time.Since(start)}
	if err != nil {
		res.Err = err
		c.observer.ResponseReceived(ctx, info, res)
		return nil, 0, "", fmt.Errorf("read response: %w", err)
	}
	c.observer.ResponseReceived(ctx, info, res)

	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

// decode unmarshals a response body into out. When envelope is set and the
// body is an object carrying that key, the wrapped value is decoded instead,
// so both {"events": [...]} and a bare array are accepted.
func decode(op string, body []byte, envelope string, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return decodeError(op, errors.New("empty response body"))
	}
	if envelope != "" && trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err == nil {
			if inner, ok := wrapper[envelope]; ok && !bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
				trimmed = inner
			}
		}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return decodeError(op, err)
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
