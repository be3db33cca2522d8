// Package client fetches remote documents over HTTP with retries and a
// per-host circuit breaker.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pitabwire/util"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultHTTPTimeout         = 30 * time.Second
	defaultMaxRetryAttempts    = 3
	defaultMaxResponseBodyLen  = 10 << 20
	defaultBreakerMaxRequests  = 3
	defaultBreakerInterval     = 30 * time.Second
	defaultBreakerTimeout      = 45 * time.Second
	defaultBreakerThreshold    = 20
	defaultBreakerFailureRatio = 0.5
	maxRetryAfter              = 30 * time.Second
)

var ErrResponseTooLarge = errors.New("client: response body exceeds configured limit")

// serverError marks a 5xx response as a breaker failure while the caller
// still gets to see the response.
type serverError struct {
	statusCode int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: HTTP %d", e.statusCode)
}

// RetryPolicy controls how transient failures are retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

func defaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: defaultMaxRetryAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 100 * time.Millisecond
		},
	}
}

// HTTPOption configures an Invoker.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	timeout       time.Duration
	transport     http.RoundTripper
	traceRequests bool
	traceHeaders  bool
	retryPolicy   *RetryPolicy
	maxBodyLen    int64
}

func (c *httpConfig) process(opts ...HTTPOption) {
	for _, opt := range opts {
		opt(c)
	}
	if c.retryPolicy == nil || c.retryPolicy.MaxAttempts < 1 {
		c.retryPolicy = defaultRetryPolicy()
	}
	if c.maxBodyLen <= 0 {
		c.maxBodyLen = defaultMaxResponseBodyLen
	}
}

// WithHTTPTimeout sets the per request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.timeout = timeout
	}
}

// WithHTTPTransport sets the base transport. The default is the standard
// transport instrumented with otelhttp.
func WithHTTPTransport(transport http.RoundTripper) HTTPOption {
	return func(c *httpConfig) {
		c.transport = transport
	}
}

// WithHTTPTraceRequests logs every request at debug level.
func WithHTTPTraceRequests() HTTPOption {
	return func(c *httpConfig) {
		c.traceRequests = true
	}
}

// WithHTTPTraceRequestHeaders adds headers to traced requests.
func WithHTTPTraceRequestHeaders() HTTPOption {
	return func(c *httpConfig) {
		c.traceHeaders = true
	}
}

func WithHTTPRetryPolicy(policy *RetryPolicy) HTTPOption {
	return func(c *httpConfig) {
		c.retryPolicy = policy
	}
}

// WithHTTPMaxBodyLen caps how much of a response body is read.
func WithHTTPMaxBodyLen(n int64) HTTPOption {
	return func(c *httpConfig) {
		c.maxBodyLen = n
	}
}

// NewHTTPClient creates an HTTP client with the provided options.
func NewHTTPClient(opts ...HTTPOption) *http.Client {
	cfg := &httpConfig{timeout: defaultHTTPTimeout}
	cfg.process(opts...)
	return newHTTPClient(cfg)
}

func newHTTPClient(cfg *httpConfig) *http.Client {
	transport := cfg.transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	if cfg.traceRequests {
		transport = NewLoggingTransport(transport, WithTransportLogHeaders(cfg.traceHeaders))
	}
	return &http.Client{Transport: transport, Timeout: cfg.timeout}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Invoker issues requests through a circuit breaker per method and host.
type Invoker struct {
	breakers    sync.Map // map[string]*gobreaker.CircuitBreaker[*http.Response]
	client      *http.Client
	retryPolicy *RetryPolicy
	maxBodyLen  int64
}

func NewInvoker(opts ...HTTPOption) *Invoker {
	cfg := &httpConfig{timeout: defaultHTTPTimeout}
	cfg.process(opts...)

	return &Invoker{
		client:      newHTTPClient(cfg),
		retryPolicy: cfg.retryPolicy,
		maxBodyLen:  cfg.maxBodyLen,
	}
}

func (i *Invoker) Client() *http.Client {
	return i.client
}

// Get fetches url and reads the whole body. Non 2xx statuses are returned
// as responses, not errors, once retries on 429 and 5xx are exhausted.
// Transport failures and an open breaker are errors.
func (i *Invoker) Get(ctx context.Context, url string, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if headers != nil {
		req.Header = headers
	}

	resp, err := i.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	defer util.CloseAndLogOnError(ctx, resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBodyLen+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > i.maxBodyLen {
		return nil, ErrResponseTooLarge
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

func (i *Invoker) breakerFor(key string) *gobreaker.CircuitBreaker[*http.Response] {
	if cb, ok := i.breakers.Load(key); ok {
		return cb.(*gobreaker.CircuitBreaker[*http.Response])
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "http:" + key,
		MaxRequests: defaultBreakerMaxRequests,
		Interval:    defaultBreakerInterval,
		Timeout:     defaultBreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < defaultBreakerThreshold {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= defaultBreakerFailureRatio
		},
	})

	actual, _ := i.breakers.LoadOrStore(key, cb)
	return actual.(*gobreaker.CircuitBreaker[*http.Response])
}

func breakerKey(req *http.Request) string {
	return req.Method + " " + req.URL.Host
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP
// date. The wait is capped at maxRetryAfter.
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0, false
	}

	var wait time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		wait = time.Duration(secs) * time.Second
	} else if at, dateErr := http.ParseTime(value); dateErr == nil {
		wait = max(at.Sub(now), 0)
	} else {
		return 0, false
	}

	return min(wait, maxRetryAfter), true
}

func (i *Invoker) execute(ctx context.Context, req *http.Request) (*http.Response, error) {
	cb := i.breakerFor(breakerKey(req))

	resp, err := cb.Execute(func() (*http.Response, error) {
		var lastErr error

		for attempt := 1; attempt <= i.retryPolicy.MaxAttempts; attempt++ {
			wait := i.retryPolicy.Backoff(attempt)

			resp, doErr := i.client.Do(req)
			switch {
			case doErr != nil:
				lastErr = doErr
			case isRetryableStatus(resp.StatusCode) && attempt < i.retryPolicy.MaxAttempts:
				if d, ok := retryAfter(resp, time.Now()); ok && resp.StatusCode == http.StatusTooManyRequests {
					wait = d
				}
				_ = resp.Body.Close()
				lastErr = &serverError{statusCode: resp.StatusCode}
			case resp.StatusCode >= http.StatusInternalServerError:
				return resp, &serverError{statusCode: resp.StatusCode}
			default:
				return resp, nil
			}

			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		return nil, lastErr
	})

	// A 5xx response is still handed to the caller.
	var sErr *serverError
	if resp != nil && errors.As(err, &sErr) {
		return resp, nil
	}
	return resp, err
}
