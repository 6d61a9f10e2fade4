package task

import "context"

// UpdateFunc は保存済みの Task を受け取り、その場で書き換える。
// エラーを返した場合は何も永続化されない。
type UpdateFunc func(t *Task) error

// Repository は Task の永続化を抽象化するインターフェース。
// List は挿入順（= ID 昇順）で全件を返す。
// Get / Update / Delete は該当なしのとき ErrNotFound を返す。
type Repository interface {
	List(ctx context.Context) ([]*Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, t *Task) (*Task, error)
	Update(ctx context.Context, id int64, fn UpdateFunc) (*Task, error)
	Delete(ctx context.Context, id int64) (*Task, error)
	Ping(ctx context.Context) error
}
