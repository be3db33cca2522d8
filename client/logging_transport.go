package client

import (
	"net/http"
	"strings"
	"time"

	"github.com/pitabwire/util"
)

// LoggingTransportOption configures the logging HTTP transport.
type LoggingTransportOption func(*loggingTransport)

// loggingTransport logs each request and its outcome at debug level.
type loggingTransport struct {
	transport  http.RoundTripper
	logHeaders bool
}

// NewLoggingTransport wraps transport with request logging. Headers are
// left out unless WithTransportLogHeaders is given.
func NewLoggingTransport(transport http.RoundTripper, opts ...LoggingTransportOption) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}

	t := &loggingTransport{transport: transport}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithTransportLogHeaders enables header logging.
// Headers may carry credentials, enable with care.
func WithTransportLogHeaders(enabled bool) LoggingTransportOption {
	return func(t *loggingTransport) {
		t.logHeaders = enabled
	}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger := util.Log(req.Context()).WithFields(map[string]any{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	if t.logHeaders {
		logger = logger.WithField("headers", flatten(req.Header))
	}

	resp, err := t.transport.RoundTrip(req)

	logger = logger.WithField("duration", time.Since(start).String())
	if err != nil {
		logger.WithError(err).Debug("HTTP request failed")
		return resp, err
	}

	logger.WithField("status", resp.StatusCode).Debug("HTTP response received")
	return resp, nil
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = strings.Join(values, " , ")
		}
	}
	return out
}
