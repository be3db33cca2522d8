package resource_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/pitabwire/fluent/client"
	"github.com/pitabwire/fluent/resource"
)

func (s *StoreSuite) TestHTTPLoader() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/l10n/sw/main.ftl":
			_, _ = io.WriteString(w, "hello = Habari")
		case "/l10n/en/main.ftl":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	invoker := client.NewInvoker(client.WithHTTPRetryPolicy(&client.RetryPolicy{
		MaxAttempts: 1,
		Backoff:     func(int) time.Duration { return 0 },
	}))
	loader, err := resource.NewHTTPLoader(server.URL+"/l10n", invoker)
	s.Require().NoError(err)

	ctx := context.Background()
	data, err := loader.Load(ctx, "sw", "main.ftl")
	s.Require().NoError(err)
	s.Equal("hello = Habari", string(data))

	_, err = loader.Load(ctx, "fr", "main.ftl")
	s.Require().ErrorIs(err, resource.ErrResourceNotFound)

	_, err = loader.Load(ctx, "en", "main.ftl")
	s.Require().ErrorContains(err, "HTTP 403")
	s.NotErrorIs(err, resource.ErrResourceNotFound)
}

func (s *StoreSuite) TestHTTPLoaderRejectsOtherSchemes() {
	_, err := resource.NewHTTPLoader("ftp://example.com/l10n", nil)
	s.Require().Error(err)
}
