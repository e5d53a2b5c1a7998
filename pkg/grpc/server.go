package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/core/reactor"
	"github.com/isoflow/clinicorder/pkg/grpc/services"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// New builds the gRPC server without listening.
func New(conf *config.Auth, resolver auth.CallerResolver, rService reactor.Service) *ggrpc.Server {
	s := ggrpc.NewServer(
		ggrpc.UnaryInterceptor(UnaryAuthInterceptor(conf, resolver)),
		ggrpc.StreamInterceptor(StreamAuthInterceptor(conf, resolver)),
	)
	reflection.Register(s)

	hs := health.NewServer()
	hs.SetServingStatus(services.AvailabilityServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	services.RegisterAvailabilityServer(s, services.NewAvailabilityService(rService))
	return s
}

func NewServer(ctx context.Context, port int, resolver auth.CallerResolver, rService reactor.Service) (*ggrpc.Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := New(&config.Global().Auth, resolver, rService)
	go func() {
		logger.Infof(ctx, "gRPC server starting on port %d", port)
		if err := s.Serve(lis); err != nil {
			logger.Errorf(ctx, "gRPC server error: %v", err)
		}
	}()

	return s, nil
}
