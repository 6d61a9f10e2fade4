package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	domain_task "github.com/hijjiri/task-api/internal/domain/task"
	task_usecase "github.com/hijjiri/task-api/internal/usecase/task"
	"go.uber.org/zap"
)

// リクエストボディの上限
const maxBodyBytes = 1 << 20

type createTaskRequest struct {
	Title  string             `json:"title"`
	Status domain_task.Status `json:"status"`
}

type updateTaskRequest struct {
	Title  *string             `json:"title"`
	Status *domain_task.Status `json:"status"`
}

// TaskHandler は /tasks 配下の HTTP ハンドラ。
// 入力はすべて Validator を通してから usecase に渡す。
type TaskHandler struct {
	uc        task_usecase.Usecase
	validator *Validator
	metrics   *Metrics
	logger    *zap.Logger
}

func NewTaskHandler(uc task_usecase.Usecase, v *Validator, m *Metrics, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{
		uc:        uc,
		validator: v,
		metrics:   m,
		logger:    logger,
	}
}

// Register はルーティングを mux に登録する。
func (h *TaskHandler) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		fn      http.HandlerFunc
	}{
		{"GET /tasks", h.list},
		{"GET /tasks/{$}", h.list},
		{"GET /tasks/{id}", h.get},
		{"POST /tasks", h.create},
		{"PUT /tasks/{id}", h.update},
		{"DELETE /tasks/{id}", h.delete},
	}
	for _, rt := range routes {
		mux.Handle(rt.pattern, h.metrics.Instrument(rt.pattern, rt.fn))
	}
}

// --- List ---
func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseListQuery(r)
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}

	tasks, err := h.uc.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	if tasks == nil {
		tasks = []*domain_task.Task{}
	}

	h.metrics.ObserveOperation("list", operationResult(nil))
	writeJSON(w, http.StatusOK, tasks)
}

// --- Get ---
func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}

	t, err := h.uc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}

	h.metrics.ObserveOperation("get", operationResult(nil))
	// 1 件でも配列で返す
	writeJSON(w, http.StatusOK, []*domain_task.Task{t})
}

// --- Create ---
func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := h.decodeBody(w, r, SchemaTaskCreate, &req); err != nil {
		h.fail(w, r, "create", err)
		return
	}

	t, err := h.uc.Create(r.Context(), req.Title, req.Status)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}

	h.metrics.ObserveOperation("create", operationResult(nil))
	writeJSON(w, http.StatusCreated, t)
}

// --- Update ---
func (h *TaskHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}

	var req updateTaskRequest
	if err := h.decodeBody(w, r, SchemaTaskUpdate, &req); err != nil {
		h.fail(w, r, "update", err)
		return
	}

	t, err := h.uc.Update(r.Context(), id, task_usecase.UpdateInput{
		Title:  req.Title,
		Status: req.Status,
	})
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}

	h.metrics.ObserveOperation("update", operationResult(nil))
	writeJSON(w, http.StatusOK, t)
}

// --- Delete ---
func (h *TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}

	removed, err := h.uc.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}

	h.metrics.ObserveOperation("delete", operationResult(nil))
	h.logger.Debug("task removed",
		zap.Int64("id", removed.ID),
		zap.String("title", removed.Title),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.metrics.ObserveOperation(op, operationResult(err))

	code, body := toHTTPError(err)
	if code >= http.StatusInternalServerError {
		rid, _ := RequestIDFromContext(r.Context())
		h.logger.Error("task operation failed",
			zap.String("op", op),
			zap.String("request_id", rid),
			zap.Error(err),
		)
	}
	writeJSON(w, code, body)
}

// decodeBody はボディを読み、スキーマ検証してから dst にデコードする。
func (h *TaskHandler) decodeBody(w http.ResponseWriter, r *http.Request, schema string, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return newFieldError("body", "request body too large")
		}
		return newFieldError("body", "failed to read body")
	}

	if err := h.validator.ValidateJSON(schema, "body", raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return newFieldError("body", err.Error())
	}
	return nil
}

// parseListQuery は limit / offset / status / search を取り出して検証する。
func (h *TaskHandler) parseListQuery(r *http.Request) (task_usecase.ListFilter, error) {
	q := r.URL.Query()
	f := task_usecase.ListFilter{
		Limit:  task_usecase.DefaultLimit,
		Offset: task_usecase.DefaultOffset,
	}
	doc := map[string]interface{}{}

	for _, key := range []string{"limit", "offset"} {
		if !q.Has(key) {
			continue
		}
		n, err := parseQueryInt(q.Get(key))
		if err != nil {
			return f, newFieldError("query/"+key, "value is not a valid integer")
		}
		doc[key] = json.Number(strconv.Itoa(n))
		if key == "limit" {
			f.Limit = n
		} else {
			f.Offset = n
		}
	}
	if q.Has("status") {
		doc["status"] = q.Get("status")
		f.Status = domain_task.Status(q.Get("status"))
	}
	if q.Has("search") {
		doc["search"] = q.Get("search")
		f.Search = q.Get("search")
	}

	if err := h.validator.Validate(SchemaTaskList, "query", doc); err != nil {
		return f, err
	}
	return f, nil
}

// parseQueryInt は int に収まらない整数を int の範囲に丸める。
// 整数として読めない文字列だけをエラーにする。
func parseQueryInt(v string) (int, error) {
	n, err := strconv.ParseInt(v, 10, strconv.IntSize)
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		if strings.HasPrefix(v, "-") {
			return math.MinInt, nil
		}
		return math.MaxInt, nil
	}
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, newFieldError("path/id", "value is not a valid integer")
	}
	if err := domain_task.ValidateID(id); err != nil {
		return 0, newFieldError("path/id", "value must be greater than 0")
	}
	return id, nil
}
