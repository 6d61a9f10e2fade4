package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hijjiri/task-api/internal/config"
	domain_task "github.com/hijjiri/task-api/internal/domain/task"
	"github.com/hijjiri/task-api/internal/infrastructure/memory"
	mysqlrepo "github.com/hijjiri/task-api/internal/infrastructure/mysql"
	grpcadapter "github.com/hijjiri/task-api/internal/interface/grpc"
	httpadapter "github.com/hijjiri/task-api/internal/interface/http"
	"github.com/hijjiri/task-api/internal/logging"
	"github.com/hijjiri/task-api/internal/telemetry"
	task_usecase "github.com/hijjiri/task-api/internal/usecase/task"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

//----------------------
// DB 接続 & ヘルスチェック
//----------------------

func buildMySQLDSN(cfg config.DBConfig) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=Asia%%2FTokyo&charset=utf8mb4&timeout=5s&clientFoundRows=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

func pingMySQLWithRetry(ctx context.Context, db *sql.DB, logger *zap.Logger, maxAttempts int, interval time.Duration) error {
	for i := 1; i <= maxAttempts; i++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("failed to ping db",
			zap.Int("attempt", i),
			zap.Int("maxAttempts", maxAttempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("failed to ping db after %d attempts", maxAttempts)
}

// openRepository は cfg.Store に応じて Repository を用意する。
// 戻り値の cleanup は main の終了時に呼ぶ。
func openRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain_task.Repository, func(), error) {
	if cfg.Store != "mysql" {
		logger.Info("using in-memory task store")
		return memory.NewTaskRepository(domain_task.SeedTasks()), func() {}, nil
	}

	db, err := sql.Open("mysql", buildMySQLDSN(cfg.DB))
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	cleanup := func() { _ = db.Close() }

	if err := pingMySQLWithRetry(ctx, db, logger, 20, 3*time.Second); err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("connected to MySQL",
		zap.String("host", cfg.DB.Host),
		zap.String("port", cfg.DB.Port),
		zap.String("db", cfg.DB.Name),
	)

	repo := mysqlrepo.NewTaskRepository(db, logger)
	if err := repo.EnsureSchema(ctx, domain_task.SeedTasks()); err != nil {
		cleanup()
		return nil, nil, err
	}
	return repo, cleanup, nil
}

//----------------------
// main
//----------------------

func main() {
	// ---- Config / Logger ----
	// logger の設定自体が config に依存するので、読み込み中の warn は一時 logger に出す
	bootLogger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	cfg, err := config.Load(bootLogger)
	if err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}
	_ = bootLogger.Sync()

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("loaded config",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("compat", cfg.Compat),
		zap.String("store", cfg.Store),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Tracing ----
	shutdownTracing, err := telemetry.Setup("task-api", cfg.TracingEnabled, os.Stdout)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	// ---- Repository ----
	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open task store", zap.Error(err))
	}
	defer closeRepo()

	// ---- Task Service ----
	compat, _ := task_usecase.ParseCompat(cfg.Compat)
	uc := task_usecase.New(repo, logger, task_usecase.WithCompat(compat))

	validator, err := httpadapter.NewValidator()
	if err != nil {
		logger.Fatal("failed to compile schemas", zap.Error(err))
	}
	metrics := httpadapter.NewMetrics()
	handler := httpadapter.NewTaskHandler(uc, validator, metrics, logger)

	apiServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpadapter.NewRouter(handler, logger, cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// ---- metrics HTTP サーバ (/metrics) ----
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ---- 管理用 gRPC サーバ (health / reflection) ----
	grpcServer, healthSrv := grpcadapter.NewAdminServer(logger, cfg.RequestTimeout)
	reporter := grpcadapter.NewHealthReporter(healthSrv, repo, cfg.HealthInterval, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	errCh := make(chan error, 3)

	go reporter.Run(ctx)

	go func() {
		logger.Info("gRPC admin server is starting", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, net.ErrClosed) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP API server is starting", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server exited with error", zap.Error(err))
		stop()
	}

	// ---- graceful shutdown ----
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	healthSrv.Shutdown()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
