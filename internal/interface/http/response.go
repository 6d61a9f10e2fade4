package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	task_usecase "github.com/hijjiri/task-api/internal/usecase/task"
)

type errorBody struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// --- error mapper ---
func toHTTPError(err error) (int, errorBody) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, errorBody{Detail: ve.Details}

	case errors.Is(err, task_usecase.ErrNotFound):
		return http.StatusNotFound, errorBody{Detail: task_usecase.ErrNotFound.Error()}

	case errors.Is(err, task_usecase.ErrInvalidID):
		return http.StatusUnprocessableEntity, errorBody{Detail: []FieldError{{Loc: "path/id", Msg: err.Error()}}}

	case errors.Is(err, task_usecase.ErrInvalidTitle), errors.Is(err, task_usecase.ErrInvalidState):
		return http.StatusUnprocessableEntity, errorBody{Detail: []FieldError{{Loc: "body", Msg: err.Error()}}}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Detail: "request timeout"}

	default:
		// Internal詳細はログ側にだけ残す
		return http.StatusInternalServerError, errorBody{Detail: "internal error"}
	}
}

// operationResult はメトリクスの result ラベル
func operationResult(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, task_usecase.ErrNotFound):
		return "not_found"
	case errors.As(err, &ve),
		errors.Is(err, task_usecase.ErrInvalidID),
		errors.Is(err, task_usecase.ErrInvalidTitle),
		errors.Is(err, task_usecase.ErrInvalidState):
		return "invalid"
	default:
		return "error"
	}
}
