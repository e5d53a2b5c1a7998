package grpc

import (
	"context"
	"strings"

	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/grpc/services"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// skipAuth returns true for services that should not require authentication.
func skipAuth(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.reflection.") ||
		strings.HasPrefix(fullMethod, "/grpc.health.")
}

type authenticator struct {
	conf     *config.Auth
	resolver auth.CallerResolver
}

func (a *authenticator) caller(ctx context.Context) (*core.Caller, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization header")
	}
	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || auth.AuthType(parts[0]) != auth.AuthTypeBearer {
		return nil, status.Error(codes.Unauthenticated, "invalid authorization format")
	}

	user, err := auth.ParseToken(a.conf.JWTSecret, a.conf.JWTIssuer, parts[1])
	if err != nil {
		logger.Warnf(ctx, "gRPC auth: bearer token validation failed: %v", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	caller, err := a.resolver.ResolveCaller(ctx, user)
	if err != nil {
		if code.From(err) == code.ClinicInactiveErr {
			return nil, status.Error(codes.PermissionDenied, code.Msg(err))
		}
		return nil, status.Error(codes.Unauthenticated, code.Msg(err))
	}
	return caller, nil
}

func UnaryAuthInterceptor(conf *config.Auth, resolver auth.CallerResolver) grpc.UnaryServerInterceptor {
	a := &authenticator{conf: conf, resolver: resolver}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if skipAuth(info.FullMethod) {
			return handler(ctx, req)
		}
		caller, err := a.caller(ctx)
		if err != nil {
			return nil, err
		}
		return handler(services.WithCaller(ctx, caller), req)
	}
}

func StreamAuthInterceptor(conf *config.Auth, resolver auth.CallerResolver) grpc.StreamServerInterceptor {
	a := &authenticator{conf: conf, resolver: resolver}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if skipAuth(info.FullMethod) {
			return handler(srv, ss)
		}
		caller, err := a.caller(ss.Context())
		if err != nil {
			return err
		}
		wrapped := &wrappedStream{ServerStream: ss, ctx: services.WithCaller(ss.Context(), caller)}
		return handler(srv, wrapped)
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
