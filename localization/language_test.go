package localization_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/pitabwire/fluent/localization"
	lgrpc "github.com/pitabwire/fluent/localization/interceptors/grpc"
	lhttp "github.com/pitabwire/fluent/localization/interceptors/http"
)

type LanguageSuite struct {
	suite.Suite
}

func TestLanguageSuite(t *testing.T) {
	suite.Run(t, new(LanguageSuite))
}

func (s *LanguageSuite) TestContextRoundTrip() {
	ctx := context.Background()
	s.Nil(localization.FromContext(ctx))

	ctx = localization.ToContext(ctx, []string{"sw", "en"})
	s.Equal([]string{"sw", "en"}, localization.FromContext(ctx))
}

func (s *LanguageSuite) TestMapRoundTrip() {
	m := localization.ToMap(map[string]string{}, []string{"sw", "en"})
	s.Equal("sw,en", m["lang"])
	s.Equal([]string{"sw", "en"}, localization.FromMap(m))
	s.Nil(localization.FromMap(map[string]string{}))
	s.Nil(localization.FromMap(map[string]string{"lang": ""}))
}

func (s *LanguageSuite) TestExtractLanguageFromHTTPRequest() {
	testCases := []struct {
		name       string
		target     string
		acceptLang string
		expected   []string
	}{
		{name: "none", target: "/", expected: nil},
		{name: "header only", target: "/", acceptLang: "sw", expected: []string{"sw"}},
		{
			name:       "header ordered by quality",
			target:     "/",
			acceptLang: "sw;q=0.5, en-US, fr;q=0.8",
			expected:   []string{"en-US", "fr", "sw"},
		},
		{name: "query first", target: "/?lang=fr", acceptLang: "en", expected: []string{"fr", "en"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.acceptLang != "" {
				req.Header.Set("Accept-Language", tc.acceptLang)
			}
			s.Equal(tc.expected, localization.ExtractLanguageFromHTTPRequest(req))
		})
	}
}

func (s *LanguageSuite) TestLanguageHTTPMiddleware() {
	middleware := lhttp.LanguageHTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Join(localization.FromContext(r.Context()), ",")))
	}))

	req := httptest.NewRequest(http.MethodGet, "/?lang=sw", nil)
	req.Header.Set("Accept-Language", "en")
	w := httptest.NewRecorder()
	middleware.ServeHTTP(w, req)

	s.Equal("sw,en", w.Body.String())
}

func (s *LanguageSuite) TestLanguageGrpcInterceptors() {
	md := metadata.New(map[string]string{"accept-language": "sw, en;q=0.5"})
	ctx := metadata.NewIncomingContext(context.Background(), md)

	s.Equal([]string{"sw", "en"}, localization.ExtractLanguageFromGrpcRequest(ctx))
	s.Nil(localization.ExtractLanguageFromGrpcRequest(context.Background()))

	unary := lgrpc.LanguageUnaryInterceptor()
	result, err := unary(ctx, nil, nil, func(ctx context.Context, _ any) (any, error) {
		return localization.FromContext(ctx), nil
	})
	s.Require().NoError(err)
	s.Equal([]string{"sw", "en"}, result)

	stream := lgrpc.LanguageStreamInterceptor()
	err = stream(nil, &mockServerStream{ctx: ctx}, nil, func(_ any, ss grpc.ServerStream) error {
		s.Equal([]string{"sw", "en"}, localization.FromContext(ss.Context()))
		return nil
	})
	s.Require().NoError(err)
}

type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context {
	return m.ctx
}

func (s *LanguageSuite) TestNegotiate() {
	testCases := []struct {
		name      string
		requested []string
		available []string
		fallback  string
		expected  []string
	}{
		{
			name:      "requested order wins",
			requested: []string{"fr", "en"},
			available: []string{"en", "fr", "sw"},
			fallback:  "en",
			expected:  []string{"fr", "en"},
		},
		{
			name:      "unsupported requests fall back",
			requested: []string{"de"},
			available: []string{"en", "sw"},
			fallback:  "en",
			expected:  []string{"en"},
		},
		{
			name:      "invalid tags ignored",
			requested: []string{"!!", "sw"},
			available: []string{"en", "sw", "not a tag"},
			fallback:  "en",
			expected:  []string{"sw", "en"},
		},
		{
			name:      "nothing requested",
			available: []string{"en", "sw"},
			fallback:  "sw",
			expected:  []string{"sw"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, localization.Negotiate(tc.requested, tc.available, tc.fallback))
		})
	}
}
