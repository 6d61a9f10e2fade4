package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// TaskServiceName は health で報告するサービス名
const TaskServiceName = "task.v1.TaskService"

// Pinger は生存確認できるストア
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter はストアを定期的に ping して health の状態を切り替える。
type HealthReporter struct {
	health   *health.Server
	store    Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHealthReporter(hs *health.Server, store Pinger, interval time.Duration, logger *zap.Logger) *HealthReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := interval / 2
	if timeout > 3*time.Second {
		timeout = 3 * time.Second
	}
	return &HealthReporter{
		health:   hs,
		store:    store,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check は 1 回だけ ping して状態を反映し、SERVING なら true を返す。
func (r *HealthReporter) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := r.store.Ping(ctx); err != nil {
		r.logger.Warn("store ping failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	r.health.SetServingStatus("", st)
	r.health.SetServingStatus(TaskServiceName, st)
	return st == healthpb.HealthCheckResponse_SERVING
}

// Run は ctx が終わるまで interval ごとに Check する。
// 終了時は Shutdown で全サービスを NOT_SERVING にする。
func (r *HealthReporter) Run(ctx context.Context) {
	r.Check(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.health.Shutdown()
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}
