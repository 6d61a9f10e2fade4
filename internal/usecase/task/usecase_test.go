// internal/usecase/task/usecase_test.go
package task_usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	domain_task "github.com/hijjiri/task-api/internal/domain/task"
	"github.com/hijjiri/task-api/internal/infrastructure/memory"
	"go.uber.org/zap"
)

// テスト用のモック Repository
type mockRepo struct {
	listFn   func(ctx context.Context) ([]*domain_task.Task, error)
	getFn    func(ctx context.Context, id int64) (*domain_task.Task, error)
	createFn func(ctx context.Context, t *domain_task.Task) (*domain_task.Task, error)
	updateFn func(ctx context.Context, id int64, fn domain_task.UpdateFunc) (*domain_task.Task, error)
	deleteFn func(ctx context.Context, id int64) (*domain_task.Task, error)
}

func (m *mockRepo) List(ctx context.Context) ([]*domain_task.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*domain_task.Task{}, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (*domain_task.Task, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain_task.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, t *domain_task.Task) (*domain_task.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	return t, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, fn domain_task.UpdateFunc) (*domain_task.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, fn)
	}
	return nil, domain_task.ErrNotFound
}

func (m *mockRepo) Delete(ctx context.Context, id int64) (*domain_task.Task, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, domain_task.ErrNotFound
}

func (m *mockRepo) Ping(ctx context.Context) error { return nil }

func newSeeded(opts ...Option) Usecase {
	return New(memory.NewTaskRepository(domain_task.SeedTasks()), zap.NewNop(), opts...)
}

func ids(ts []*domain_task.Task) []int64 {
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUsecase_List_Standard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter ListFilter
		want   []int64
	}{
		{"defaults", ListFilter{Limit: 5}, []int64{1, 2, 3, 4, 5}},
		{"offset window", ListFilter{Limit: 5, Offset: 3}, []int64{4, 5, 6, 7, 8}},
		{"completed only", ListFilter{Limit: 5, Status: domain_task.StatusCompleted}, []int64{2, 4, 7}},
		{"pending paged", ListFilter{Limit: 2, Offset: 2, Status: domain_task.StatusPending}, []int64{5, 6}},
		{"search lava", ListFilter{Limit: 10, Search: "lava"}, []int64{2, 10}},
		{"search filters before paging", ListFilter{Limit: 5, Search: "lava"}, []int64{2, 10}},
		{"search case-insensitive with status", ListFilter{Limit: 5, Status: domain_task.StatusPending, Search: "LAVA"}, []int64{10}},
		{"offset past end", ListFilter{Limit: 5, Offset: 20}, []int64{}},
		{"limit past end", ListFilter{Limit: 50, Offset: 8}, []int64{9, 10}},
		{"max int limit", ListFilter{Limit: math.MaxInt, Offset: 1}, []int64{2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"max int limit with status", ListFilter{Limit: math.MaxInt, Offset: 1, Status: domain_task.StatusCompleted}, []int64{4, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newSeeded().List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List returned error: %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("expected ids %v, got %v", tt.want, ids(got))
			}
		})
	}
}

func TestUsecase_List_Reference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter ListFilter
		want   []int64
	}{
		{"defaults", ListFilter{Limit: 5}, []int64{1, 2, 3, 4, 5}},
		// [1:5] -> [2,3,4,5] -> [1:6] -> [3,4,5]
		{"double slice", ListFilter{Limit: 5, Offset: 1}, []int64{3, 4, 5}},
		// [2:3] -> [3] -> [2:5] -> []
		{"double slice empties", ListFilter{Limit: 3, Offset: 2}, []int64{}},
		// pending = [1,3,5,6,8,9,10] -> [2:5]
		{"status slices offset:limit", ListFilter{Limit: 5, Offset: 2, Status: domain_task.StatusPending}, []int64{5, 6, 8}},
		{"status and search", ListFilter{Limit: 5, Status: domain_task.StatusCompleted, Search: "lava"}, []int64{2}},
		// 先に [0:5] で切るので 10 は落ちる
		{"search pages first", ListFilter{Limit: 5, Search: "lava"}, []int64{2}},
		{"search wide limit", ListFilter{Limit: 10, Search: "lava"}, []int64{2, 10}},
		// [1:4] -> [2,3,4] -> "a" で [2,4] -> [1:4] -> [4]
		{"search double slice", ListFilter{Limit: 4, Offset: 1, Search: "a"}, []int64{4}},
		// [1:max] -> [2..10] -> [1:1+max] -> [3..10]
		{"max int limit double slice", ListFilter{Limit: math.MaxInt, Offset: 1}, []int64{3, 4, 5, 6, 7, 8, 9, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newSeeded(WithCompat(CompatReference)).List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List returned error: %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("expected ids %v, got %v", tt.want, ids(got))
			}
		})
	}
}

func TestUsecase_List_RepoError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	uc := New(&mockRepo{
		listFn: func(ctx context.Context) ([]*domain_task.Task, error) { return nil, boom },
	}, zap.NewNop())

	if _, err := uc.List(context.Background(), ListFilter{Limit: 5}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestUsecase_CreateGetDelete(t *testing.T) {
	t.Parallel()

	uc := newSeeded()
	ctx := context.Background()

	created, err := uc.Create(ctx, "Nueva tarea", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 11 || created.Title != "Nueva tarea" || created.Status != domain_task.StatusPending {
		t.Fatalf("unexpected created task: %#v", created)
	}

	got, err := uc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if *got != *created {
		t.Errorf("Get returned %#v, want %#v", got, created)
	}

	removed, err := uc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if removed.ID != created.ID {
		t.Errorf("removed id %d, want %d", removed.ID, created.ID)
	}

	if _, err := uc.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	again, err := uc.Create(ctx, "Otra tarea", domain_task.StatusCompleted)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if again.ID <= created.ID {
		t.Errorf("id reused: got %d after %d", again.ID, created.ID)
	}
}

func TestUsecase_Create_InvalidTitle(t *testing.T) {
	t.Parallel()

	called := false
	uc := New(&mockRepo{
		createFn: func(ctx context.Context, td *domain_task.Task) (*domain_task.Task, error) {
			called = true
			return td, nil
		},
	}, zap.NewNop())

	_, err := uc.Create(context.Background(), "ab", "")
	if !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if called {
		t.Error("repository should not be called for invalid input")
	}
}

func TestUsecase_InvalidID(t *testing.T) {
	t.Parallel()

	uc := newSeeded()
	ctx := context.Background()

	if _, err := uc.Get(ctx, 0); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Get: expected ErrInvalidID, got %v", err)
	}
	if _, err := uc.Update(ctx, -1, UpdateInput{}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Update: expected ErrInvalidID, got %v", err)
	}
	if _, err := uc.Delete(ctx, 0); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Delete: expected ErrInvalidID, got %v", err)
	}
}

func TestUsecase_NotFound(t *testing.T) {
	t.Parallel()

	uc := newSeeded()
	ctx := context.Background()

	if _, err := uc.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	title := "Actualizada"
	if _, err := uc.Update(ctx, 99, UpdateInput{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if _, err := uc.Delete(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestUsecase_Update_StandardKeepsStatus(t *testing.T) {
	t.Parallel()

	uc := newSeeded()
	ctx := context.Background()
	title := "Actualizada"

	got, err := uc.Update(ctx, 2, UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Title != "Actualizada" || got.Status != domain_task.StatusCompleted {
		t.Errorf("unexpected updated task: %#v", got)
	}

	stored, _ := uc.Get(ctx, 2)
	if stored.Title != "Actualizada" {
		t.Errorf("update not persisted: %#v", stored)
	}
}

func TestUsecase_Update_ReferenceResetsStatus(t *testing.T) {
	t.Parallel()

	uc := newSeeded(WithCompat(CompatReference))
	ctx := context.Background()
	title := "Actualizada"

	got, err := uc.Update(ctx, 2, UpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Status != domain_task.StatusPending {
		t.Errorf("expected status reset to pending, got %q", got.Status)
	}

	completed := domain_task.StatusCompleted
	got, err = uc.Update(ctx, 2, UpdateInput{Status: &completed})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Title != "Actualizada" || got.Status != domain_task.StatusCompleted {
		t.Errorf("unexpected updated task: %#v", got)
	}
}

func TestUsecase_Update_InvalidTitleNotPersisted(t *testing.T) {
	t.Parallel()

	uc := newSeeded()
	ctx := context.Background()
	short := "x"

	if _, err := uc.Update(ctx, 1, UpdateInput{Title: &short}); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	stored, _ := uc.Get(ctx, 1)
	if stored.Title != "Estudiar Python" {
		t.Errorf("invalid update leaked: %#v", stored)
	}
}

func TestParseCompat(t *testing.T) {
	t.Parallel()

	if c, ok := ParseCompat("reference"); !ok || c != CompatReference {
		t.Errorf("ParseCompat(reference) = %q, %v", c, ok)
	}
	if _, ok := ParseCompat("legacy"); ok {
		t.Error("ParseCompat(legacy) should fail")
	}
}
