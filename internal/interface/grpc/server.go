package grpcadapter

import (
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewAdminServer は health と reflection だけを載せた管理用 gRPC サーバを作る。
// 返した health.Server は HealthReporter に渡して状態を更新する。
func NewAdminServer(logger *zap.Logger, requestTimeout time.Duration) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}

	unaryInterceptors := []grpc.UnaryServerInterceptor{
		NewRecoveryUnaryInterceptor(logger),
		NewTimeoutUnaryInterceptor(logger, requestTimeout),
		NewLoggingUnaryInterceptor(logger),
	}
	streamInterceptors := []grpc.StreamServerInterceptor{
		NewRecoveryStreamInterceptor(logger),
		NewLoggingStreamInterceptor(logger),
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	hs := health.NewServer()
	// 最初の ping までは NOT_SERVING
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(TaskServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv, hs
}
