// Package models は Task (ストレージ表現) と Todo (API 表現) を定義します。
package models

import (
	"time"
)

// DefaultPriority は priority 未指定時の値です。
const DefaultPriority = "medium"

// Task は tasks テーブルの1行を表します。
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	CategoryID  *string    `json:"category_id" db:"category_id"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	Priority    string     `json:"priority" db:"priority"`
	Status      bool       `json:"status" db:"status"`
	UserID      *string    `json:"user_id" db:"user_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at" db:"updated_at"`
}

// CreateTask は挿入時に書き込むカラムです。id とタイムスタンプはストアが採番します。
type CreateTask struct {
	Title       string
	Description string
	CategoryID  *string
	DueDate     *time.Time
	Priority    string
	Status      bool
	UserID      *string
}

// UpdateTask は部分更新 (merge-patch) の入力です。nil のフィールドは変更しません。
type UpdateTask struct {
	Title       *string
	Description *string
	CategoryID  *string
	DueDate     *time.Time
	Priority    *string
	Status      *bool
	UpdatedAt   *time.Time
}

// IsEmpty は変更対象のフィールドが1つも無いかを返します。
func (u UpdateTask) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.CategoryID == nil &&
		u.DueDate == nil && u.Priority == nil && u.Status == nil && u.UpdatedAt == nil
}

// Todo はクライアントに返す形です。status は completed、タイムスタンプは camelCase。
type Todo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CategoryID  *string    `json:"category_id"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority"`
	Completed   bool       `json:"completed"`
	UserID      *string    `json:"user_id"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// CreateTodoRequest は POST /api/todos のリクエストボディです。
// user_id は受け付けません (認証済みユーザーから設定する)。
type CreateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"`
	DueDate     *Date   `json:"due_date"`
	Priority    *string `json:"priority"`
	Status      *bool   `json:"status"`
}

// UpdateTodoRequest は PUT /api/todos/:id のリクエストボディです。
type UpdateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}
