package task_usecase

import (
	"context"
	"errors"
	"strings"

	domain_task "github.com/hijjiri/task-api/internal/domain/task"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ===== エラー定数（Handler側からも使う） =====

var (
	ErrNotFound     = errors.New("task does not exist")
	ErrInvalidID    = domain_task.ErrInvalidID
	ErrInvalidTitle = domain_task.ErrTitleTooShort
	ErrInvalidState = domain_task.ErrInvalidStatus
)

const (
	DefaultLimit  = 5
	DefaultOffset = 0
)

// Compat は一覧・更新の互換モード。
type Compat string

const (
	// CompatStandard は [offset, offset+limit) で切り出し、更新は指定フィールドだけ反映する。
	CompatStandard Compat = "standard"
	// CompatReference は旧実装のスライス計算と「status 省略時は pending に戻す」挙動を再現する。
	CompatReference Compat = "reference"
)

func ParseCompat(s string) (Compat, bool) {
	switch Compat(s) {
	case CompatStandard, CompatReference:
		return Compat(s), true
	}
	return "", false
}

// ListFilter は一覧 API のクエリ。Status が空、Search が空なら未指定扱い。
type ListFilter struct {
	Limit  int
	Offset int
	Status domain_task.Status
	Search string
}

// UpdateInput は更新ペイロード。nil のフィールドは未指定。
type UpdateInput struct {
	Title  *string
	Status *domain_task.Status
}

// ===== 外部に公開する Usecase インターフェース =====

type Usecase interface {
	List(ctx context.Context, f ListFilter) ([]*domain_task.Task, error)
	Get(ctx context.Context, id int64) (*domain_task.Task, error)
	Create(ctx context.Context, title string, status domain_task.Status) (*domain_task.Task, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*domain_task.Task, error)
	Delete(ctx context.Context, id int64) (*domain_task.Task, error)
}

// ===== 実装 =====

type usecase struct {
	repo   domain_task.Repository
	compat Compat
	logger *zap.Logger
	tracer trace.Tracer
}

type Option func(*usecase)

func WithCompat(c Compat) Option {
	return func(u *usecase) {
		u.compat = c
	}
}

func New(repo domain_task.Repository, logger *zap.Logger, opts ...Option) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &usecase{
		repo:   repo,
		compat: CompatStandard,
		logger: logger,
		tracer: otel.Tracer("github.com/hijjiri/task-api/internal/usecase/task"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// List ユースケース
func (u *usecase) List(ctx context.Context, f ListFilter) ([]*domain_task.Task, error) {
	ctx, span := u.tracer.Start(ctx, "task.List", trace.WithAttributes(
		attribute.Int("limit", f.Limit),
		attribute.Int("offset", f.Offset),
		attribute.String("status", string(f.Status)),
		attribute.Bool("search", f.Search != ""),
	))
	defer span.End()

	all, err := u.repo.List(ctx)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	var out []*domain_task.Task
	if u.compat == CompatReference {
		out = referencePage(all, f)
	} else {
		out = standardPage(all, f)
	}

	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// Get ユースケース
func (u *usecase) Get(ctx context.Context, id int64) (*domain_task.Task, error) {
	ctx, span := u.tracer.Start(ctx, "task.Get", trace.WithAttributes(attribute.Int64("task_id", id)))
	defer span.End()

	if err := domain_task.ValidateID(id); err != nil {
		return nil, ErrInvalidID
	}

	t, err := u.repo.Get(ctx, id)
	if err != nil {
		recordErr(span, err)
		return nil, translate(err)
	}
	return t, nil
}

// Create ユースケース
func (u *usecase) Create(ctx context.Context, title string, status domain_task.Status) (*domain_task.Task, error) {
	ctx, span := u.tracer.Start(ctx, "task.Create")
	defer span.End()

	t, err := domain_task.NewTask(title, status)
	if err != nil {
		return nil, err
	}

	created, err := u.repo.Create(ctx, t)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("task_id", created.ID))
	u.logger.Info("task created",
		zap.Int64("id", created.ID),
		zap.String("status", string(created.Status)),
	)
	return created, nil
}

// Update ユースケース。マージ結果はストアに保存される。
func (u *usecase) Update(ctx context.Context, id int64, in UpdateInput) (*domain_task.Task, error) {
	ctx, span := u.tracer.Start(ctx, "task.Update", trace.WithAttributes(attribute.Int64("task_id", id)))
	defer span.End()

	if err := domain_task.ValidateID(id); err != nil {
		return nil, ErrInvalidID
	}

	updated, err := u.repo.Update(ctx, id, func(t *domain_task.Task) error {
		return u.merge(t, in)
	})
	if err != nil {
		recordErr(span, err)
		return nil, translate(err)
	}

	u.logger.Info("task updated",
		zap.Int64("id", updated.ID),
		zap.String("status", string(updated.Status)),
		zap.String("compat", string(u.compat)),
	)
	return updated, nil
}

// Delete ユースケース
func (u *usecase) Delete(ctx context.Context, id int64) (*domain_task.Task, error) {
	ctx, span := u.tracer.Start(ctx, "task.Delete", trace.WithAttributes(attribute.Int64("task_id", id)))
	defer span.End()

	if err := domain_task.ValidateID(id); err != nil {
		return nil, ErrInvalidID
	}

	removed, err := u.repo.Delete(ctx, id)
	if err != nil {
		recordErr(span, err)
		return nil, translate(err)
	}

	u.logger.Info("task deleted", zap.Int64("id", removed.ID))
	return removed, nil
}

func (u *usecase) merge(t *domain_task.Task, in UpdateInput) error {
	if in.Title != nil {
		if err := t.ChangeTitle(*in.Title); err != nil {
			return err
		}
	}

	switch {
	case in.Status != nil:
		return t.ChangeStatus(*in.Status)
	case u.compat == CompatReference:
		// 旧実装ではペイロードの status が既定値 pending を持つ
		t.Status = domain_task.StatusPending
	}
	return nil
}

// ---- 一覧の切り出し ----

func standardPage(all []*domain_task.Task, f ListFilter) []*domain_task.Task {
	out := all
	if f.Status != "" {
		out = filterByStatus(out, f.Status)
	}
	if f.Search != "" {
		out = filterBySearch(out, f.Search)
	}
	return span(out, f.Offset, f.Limit)
}

// referencePage は旧実装の分岐をそのまま再現する（二重スライスを含む）。
func referencePage(all []*domain_task.Task, f ListFilter) []*domain_task.Task {
	switch {
	case f.Status != "":
		out := filterByStatus(all, f.Status)
		if f.Search != "" {
			out = filterBySearch(out, f.Search)
		}
		return window(out, f.Offset, f.Limit)

	case f.Search != "":
		page := window(all, f.Offset, f.Limit)
		return window(filterBySearch(page, f.Search), f.Offset, f.Limit)

	default:
		page := window(all, f.Offset, f.Limit)
		return span(page, f.Offset, f.Limit)
	}
}

// window は s[start:end] を長さでクランプして返す。start >= end なら空。
func window(s []*domain_task.Task, start, end int) []*domain_task.Task {
	n := len(s)
	start = clamp(start, 0, n)
	end = clamp(end, 0, n)
	if start >= end {
		return []*domain_task.Task{}
	}
	return s[start:end]
}

// span は s の start から最大 count 件を返す。
// count は残り件数で抑えるので start+count は溢れない。
func span(s []*domain_task.Task, start, count int) []*domain_task.Task {
	n := len(s)
	start = clamp(start, 0, n)
	count = clamp(count, 0, n-start)
	return window(s, start, start+count)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func filterByStatus(s []*domain_task.Task, st domain_task.Status) []*domain_task.Task {
	out := make([]*domain_task.Task, 0, len(s))
	for _, t := range s {
		if t.Status == st {
			out = append(out, t)
		}
	}
	return out
}

func filterBySearch(s []*domain_task.Task, q string) []*domain_task.Task {
	q = strings.ToLower(q)
	out := make([]*domain_task.Task, 0, len(s))
	for _, t := range s {
		if strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

func translate(err error) error {
	if errors.Is(err, domain_task.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
