package httpadapter

import "context"

type ctxKey string

const ctxKeyRequestID ctxKey = "request-id"

// WithRequestID は request id を context に埋め込む
func WithRequestID(ctx context.Context, rid string) context.Context {
	if rid == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// RequestIDFromContext は context から request id を取り出す
func RequestIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyRequestID).(string)
	return s, ok
}
