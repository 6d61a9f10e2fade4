package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// health チェックは頻繁に来るので、成功時は Debug に落とす
func logRPC(ctx context.Context, logger *zap.Logger, kind string, method string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		fields = append(fields, zap.String("peer", p.Addr.String()))
	}

	if err != nil {
		fields = append(fields, zap.String("code", status.Code(err).String()), zap.Error(err))
		logger.Error("gRPC "+kind+" request", fields...)
		return
	}
	logger.Debug("gRPC "+kind+" request", fields...)
}

// NewLoggingUnaryInterceptor logs unary RPCs with method, duration, peer and error.
func NewLoggingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logRPC(ctx, logger, "unary", info.FullMethod, start, err)
		return resp, err
	}
}

// NewLoggingStreamInterceptor logs stream RPCs with method, duration, peer and error.
func NewLoggingStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logRPC(ss.Context(), logger, "stream", info.FullMethod, start, err)
		return err
	}
}
