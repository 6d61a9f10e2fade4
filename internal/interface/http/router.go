package httpadapter

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// NewRouter は API 全体の http.Handler を組み立てる。
//
// 外側から: otelhttp -> request id -> logging -> recovery -> timeout -> mux
func NewRouter(tasks *TaskHandler, logger *zap.Logger, requestTimeout time.Duration) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	tasks.Register(mux)

	h := Chain(mux,
		NewRequestIDMiddleware(),
		NewLoggingMiddleware(logger),
		NewRecoveryMiddleware(logger),
		NewTimeoutMiddleware(requestTimeout),
	)
	return otelhttp.NewHandler(h, "task-api")
}
