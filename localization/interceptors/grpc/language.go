package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/pitabwire/fluent/localization"
)

// LanguageUnaryInterceptor stores the accept-language metadata of a unary call
// in its context.
func LanguageUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any,
		_ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if l := localization.ExtractLanguageFromGrpcRequest(ctx); len(l) > 0 {
			ctx = localization.ToContext(ctx, l)
		}

		return handler(ctx, req)
	}
}

// LanguageStreamInterceptor is the streaming counterpart of
// LanguageUnaryInterceptor.
func LanguageStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		l := localization.ExtractLanguageFromGrpcRequest(ctx)
		if len(l) == 0 {
			return handler(srv, ss)
		}

		return handler(srv, &serverStreamWrapper{ctx: localization.ToContext(ctx, l), ServerStream: ss})
	}
}

type serverStreamWrapper struct {
	ctx context.Context
	grpc.ServerStream
}

func (s *serverStreamWrapper) Context() context.Context {
	return s.ctx
}
