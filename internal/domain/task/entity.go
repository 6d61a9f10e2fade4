package task

import (
	"errors"
	"unicode/utf8"
)

// Status は Task のライフサイクルを表す 2 値の列挙。
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// MinTitleLength はタイトルの最小文字数（コードポイント単位）。
const MinTitleLength = 3

// Task は Task 集約のルートエンティティ。
type Task struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

// ---- ドメインエラー（sentinel error） ----

var (
	ErrTitleTooShort = errors.New("task title must be at least 3 characters")
	ErrInvalidStatus = errors.New("task status must be pending or completed")
	ErrInvalidID     = errors.New("task id must be positive")

	// Repository が「該当 ID なし」を返すときの共通エラー。
	ErrNotFound = errors.New("task not found")
)

// ParseStatus は文字列を Status に変換する。
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// NewTask は「新規作成用」のコンストラクタ。ID は Repository が採番する。
// status が空なら pending になる。
func NewTask(title string, status Status) (*Task, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	return &Task{
		Title:  title,
		Status: status,
	}, nil
}

// ChangeTitle はタイトル変更用メソッド。
func (t *Task) ChangeTitle(title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	t.Title = title
	return nil
}

// ChangeStatus はステータス変更用メソッド。
func (t *Task) ChangeStatus(status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	t.Status = status
	return nil
}

// ValidateID は ID まわりの共通バリデーション。
func ValidateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) < MinTitleLength {
		return ErrTitleTooShort
	}
	return nil
}
