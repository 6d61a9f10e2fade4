// internal/infrastructure/memory/task_repository.go
package memory

import (
	"context"
	"sync"

	domain_task "github.com/hijjiri/task-api/internal/domain/task"
)

// TaskRepository はプロセス内メモリに Task を保持する Repository。
// 挿入順を保つためにスライスで持ち、シーケンスと採番カウンタは mu で守る。
type TaskRepository struct {
	mu    sync.Mutex
	next  int64
	items []*domain_task.Task
}

// NewTaskRepository は seed を投入したリポジトリを作る。
// 採番カウンタは seed の最大 ID + 1 から始まる（seed が空なら 1）。
func NewTaskRepository(seed []domain_task.Task) *TaskRepository {
	r := &TaskRepository{
		next:  1,
		items: make([]*domain_task.Task, 0, len(seed)),
	}
	for i := range seed {
		t := seed[i]
		r.items = append(r.items, &t)
		if t.ID >= r.next {
			r.next = t.ID + 1
		}
	}
	return r
}

func (r *TaskRepository) List(ctx context.Context) ([]*domain_task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks := make([]*domain_task.Task, 0, len(r.items))
	for _, t := range r.items {
		tasks = append(tasks, clone(t))
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*domain_task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, domain_task.ErrNotFound
	}
	return clone(r.items[i]), nil
}

// Create は ID を採番して末尾に追加する。t.ID は無視される。
func (r *TaskRepository) Create(ctx context.Context, t *domain_task.Task) (*domain_task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.next
	r.next++

	stored := &domain_task.Task{
		ID:     id,
		Title:  t.Title,
		Status: t.Status,
	}
	r.items = append(r.items, stored)
	return clone(stored), nil
}

// Update はロックを保持したまま fn にコピーを渡し、成功したときだけ書き戻す。
func (r *TaskRepository) Update(ctx context.Context, id int64, fn domain_task.UpdateFunc) (*domain_task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, domain_task.ErrNotFound
	}

	working := clone(r.items[i])
	if err := fn(working); err != nil {
		return nil, err
	}
	// ID は不変
	working.ID = id
	r.items[i] = working
	return clone(working), nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) (*domain_task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, domain_task.ErrNotFound
	}

	removed := r.items[i]
	r.items = append(r.items[:i], r.items[i+1:]...)
	return removed, nil
}

// Ping はメモリストアなので常に成功する。
func (r *TaskRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *TaskRepository) indexOf(id int64) int {
	for i, t := range r.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func clone(t *domain_task.Task) *domain_task.Task {
	c := *t
	return &c
}
