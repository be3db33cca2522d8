package connect

import (
	"context"

	"connectrpc.com/connect"

	"github.com/pitabwire/fluent/localization"
)

// LanguageInterceptor stores the Accept-Language preferences of connect
// calls in the handler context.
type LanguageInterceptor struct{}

func NewLanguageInterceptor() *LanguageInterceptor {
	return &LanguageInterceptor{}
}

func (l *LanguageInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return next(withLanguage(ctx, req.Header()), req)
	}
}

// WrapStreamingClient is a pass-through; only handlers are affected.
func (l *LanguageInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (l *LanguageInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		return next(withLanguage(ctx, conn.RequestHeader()), conn)
	}
}

func withLanguage(ctx context.Context, header map[string][]string) context.Context {
	l := localization.ExtractLanguageFromHTTPHeader(header)
	if len(l) == 0 {
		return ctx
	}
	return localization.ToContext(ctx, l)
}
