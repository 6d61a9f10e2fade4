package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain_task "github.com/hijjiri/task-api/internal/domain/task"
	"go.uber.org/zap"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS tasks (
	id     BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	title  VARCHAR(255) NOT NULL,
	status ENUM('pending', 'completed') NOT NULL DEFAULT 'pending'
) DEFAULT CHARSET = utf8mb4`

// queryer は *sql.DB と *sql.Tx の共通部分
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TaskRepository は tasks テーブルを使う Repository 実装。
// ID は AUTO_INCREMENT に任せるので削除後も再利用されない。
type TaskRepository struct {
	db     *sql.DB
	tx     *TxManager
	retry  RetryPolicy
	logger *zap.Logger
}

func NewTaskRepository(db *sql.DB, logger *zap.Logger) *TaskRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskRepository{
		db:     db,
		tx:     NewTxManager(db, logger),
		retry:  DefaultReadRetry,
		logger: logger,
	}
}

// ctx に Tx があればそちらを使う
func (r *TaskRepository) conn(ctx context.Context) queryer {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// EnsureSchema はテーブルを作成し、空なら seed を ID 付きで投入する。
func (r *TaskRepository) EnsureSchema(ctx context.Context, seed []domain_task.Task) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		var n int
		if err := r.conn(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&n); err != nil {
			return fmt.Errorf("count tasks: %w", err)
		}
		if n > 0 {
			return nil
		}

		for _, t := range seed {
			if _, err := r.conn(ctx).ExecContext(
				ctx,
				"INSERT INTO tasks (id, title, status) VALUES (?, ?, ?)",
				t.ID,
				t.Title,
				string(t.Status),
			); err != nil {
				return fmt.Errorf("insert seed %d: %w", t.ID, err)
			}
		}
		r.logger.Info("seeded tasks table", zap.Int("count", len(seed)))
		return nil
	})
}

// List は全件を ID 順で返す。一時的なエラーはリトライする。
func (r *TaskRepository) List(ctx context.Context) ([]*domain_task.Task, error) {
	var tasks []*domain_task.Task

	err := doWithRetry(ctx, r.retry, func() error {
		tasks = tasks[:0]

		rows, err := r.conn(ctx).QueryContext(ctx, "SELECT id, title, status FROM tasks ORDER BY id")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*domain_task.Task, error) {
	var t *domain_task.Task

	err := doWithRetry(ctx, r.retry, func() error {
		row := r.conn(ctx).QueryRowContext(ctx, "SELECT id, title, status FROM tasks WHERE id = ?", id)
		got, err := scanTask(row)
		if err != nil {
			return err
		}
		t = got
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain_task.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create は domain の Task を受け取り、INSERT して ID を付けて返す
func (r *TaskRepository) Create(ctx context.Context, t *domain_task.Task) (*domain_task.Task, error) {
	res, err := r.conn(ctx).ExecContext(
		ctx,
		"INSERT INTO tasks (title, status) VALUES (?, ?)",
		t.Title,
		string(t.Status),
	)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &domain_task.Task{
		ID:     id,
		Title:  t.Title,
		Status: t.Status,
	}, nil
}

// Update は行ロックを取ってから fn を適用し、同じトランザクションで書き戻す。
func (r *TaskRepository) Update(ctx context.Context, id int64, fn domain_task.UpdateFunc) (*domain_task.Task, error) {
	var updated *domain_task.Task

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := r.lockRow(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id

		if _, err := r.conn(ctx).ExecContext(
			ctx,
			"UPDATE tasks SET title = ?, status = ? WHERE id = ?",
			t.Title,
			string(t.Status),
			id,
		); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は削除した行を返す
func (r *TaskRepository) Delete(ctx context.Context, id int64) (*domain_task.Task, error) {
	var removed *domain_task.Task

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := r.lockRow(ctx, id)
		if err != nil {
			return err
		}
		if _, err := r.conn(ctx).ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return err
		}
		removed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *TaskRepository) lockRow(ctx context.Context, id int64) (*domain_task.Task, error) {
	row := r.conn(ctx).QueryRowContext(ctx, "SELECT id, title, status FROM tasks WHERE id = ? FOR UPDATE", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain_task.ErrNotFound
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*domain_task.Task, error) {
	var (
		t      domain_task.Task
		status string
	)
	if err := s.Scan(&t.ID, &t.Title, &status); err != nil {
		return nil, err
	}
	t.Status = domain_task.Status(status)
	return &t, nil
}
