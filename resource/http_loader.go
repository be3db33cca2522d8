package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pitabwire/fluent/client"
)

// HTTPLoader fetches resources from a web server laid out as
// <base>/<locale>/<resourceID>.
type HTTPLoader struct {
	base    *url.URL
	invoker *client.Invoker
}

// NewHTTPLoader builds a loader rooted at baseURL. A nil invoker gets the
// client defaults.
func NewHTTPLoader(baseURL string, invoker *client.Invoker) (*HTTPLoader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("resource: parse base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("resource: unsupported scheme %q", base.Scheme)
	}
	if invoker == nil {
		invoker = client.NewInvoker()
	}
	return &HTTPLoader{base: base, invoker: invoker}, nil
}

func (l *HTTPLoader) Load(ctx context.Context, locale, resourceID string) ([]byte, error) {
	target := l.base.JoinPath(locale, resourceID).String()

	resp, err := l.invoker.Get(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("resource: fetch %s: %w", target, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, objectKey(locale, resourceID))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("resource: fetch %s: HTTP %d", target, resp.StatusCode)
	}
	return resp.Body, nil
}
