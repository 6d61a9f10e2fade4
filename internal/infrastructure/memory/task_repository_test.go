package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain_task "github.com/hijjiri/task-api/internal/domain/task"
)

func newSeeded() *TaskRepository {
	return NewTaskRepository(domain_task.SeedTasks())
}

func TestCreate_AssignsNextIDAfterSeed(t *testing.T) {
	t.Parallel()

	repo := newSeeded()
	ctx := context.Background()

	got, err := repo.Create(ctx, &domain_task.Task{ID: 999, Title: "Nueva tarea", Status: domain_task.StatusPending})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got.ID != 11 {
		t.Errorf("expected ID=11, got %d", got.ID)
	}

	list, _ := repo.List(ctx)
	if len(list) != 11 || list[10].ID != 11 {
		t.Errorf("created task not appended at the end: %#v", list[len(list)-1])
	}
}

func TestCreate_NeverReusesIDs(t *testing.T) {
	t.Parallel()

	repo := newSeeded()
	ctx := context.Background()

	first, _ := repo.Create(ctx, &domain_task.Task{Title: "uno", Status: domain_task.StatusPending})
	if _, err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	// 最大 ID の seed も消しておく
	if _, err := repo.Delete(ctx, 10); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	second, _ := repo.Create(ctx, &domain_task.Task{Title: "dos", Status: domain_task.StatusPending})
	if second.ID <= first.ID {
		t.Errorf("expected id > %d, got %d", first.ID, second.ID)
	}
}

func TestNewTaskRepository_EmptySeedStartsAtOne(t *testing.T) {
	t.Parallel()

	repo := NewTaskRepository(nil)
	got, err := repo.Create(context.Background(), &domain_task.Task{Title: "abc", Status: domain_task.StatusPending})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("expected ID=1, got %d", got.ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	_, err := newSeeded().Get(context.Background(), 42)
	if !errors.Is(err, domain_task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	t.Parallel()

	repo := newSeeded()
	ctx := context.Background()

	got, _ := repo.Get(ctx, 1)
	got.Title = "mutated"

	again, _ := repo.Get(ctx, 1)
	if again.Title != "Estudiar Python" {
		t.Errorf("store was mutated through returned pointer: %q", again.Title)
	}
}

func TestUpdate_PersistsMerge(t *testing.T) {
	t.Parallel()

	repo := newSeeded()
	ctx := context.Background()

	updated, err := repo.Update(ctx, 2, func(t *domain_task.Task) error {
		t.ID = 500 // 無視されること
		return t.ChangeTitle("Actualizada")
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.ID != 2 || updated.Title != "Actualizada" || updated.Status != domain_task.StatusCompleted {
		t.Errorf("unexpected updated task: %#v", updated)
	}

	stored, _ := repo.Get(ctx, 2)
	if stored.Title != "Actualizada" {
		t.Errorf("update not persisted: %#v", stored)
	}
}

func TestUpdate_ErrorLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	repo := newSeeded()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := repo.Update(ctx, 3, func(t *domain_task.Task) error {
		t.Title = "half applied"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	stored, _ := repo.Get(ctx, 3)
	if stored.Title != "Leer un libro" {
		t.Errorf("failed update leaked into store: %#v", stored)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	t.Parallel()

	_, err := newSeeded().Update(context.Background(), 77, func(*domain_task.Task) error { return nil })
	if !errors.Is(err, domain_task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_RemovesAndKeepsOrder(t *testing.T) {
	t.Parallel()

	repo := newSeeded()
	ctx := context.Background()

	removed, err := repo.Delete(ctx, 5)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if removed.ID != 5 || removed.Title != "Comprar comida" {
		t.Errorf("unexpected removed task: %#v", removed)
	}

	list, _ := repo.List(ctx)
	want := []int64{1, 2, 3, 4, 6, 7, 8, 9, 10}
	if len(list) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d].ID = %d, want %d", i, list[i].ID, id)
		}
	}

	if _, err := repo.Delete(ctx, 5); !errors.Is(err, domain_task.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestCreate_ConcurrentIDsAreUnique(t *testing.T) {
	t.Parallel()

	repo := newSeeded()
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.Create(ctx, &domain_task.Task{Title: "paralela", Status: domain_task.StatusPending})
			if err != nil {
				t.Errorf("Create returned error: %v", err)
				return
			}
			ids <- got.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d unique ids, got %d", n, len(seen))
	}
}
