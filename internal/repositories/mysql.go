package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-supa-todo/backend/internal/models"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MySQLBackend は MySQL 上の tasks テーブルです。
// MySQL には RLS が無いため、スコープ付きハンドルは user_id で絞り込みます。
type MySQLBackend struct {
	DB    *sql.DB
	table string
	log   *slog.Logger
}

// NewMySQLBackend は新しい MySQLBackend を作成します。
func NewMySQLBackend(db *sql.DB, table string, log *slog.Logger) (*MySQLBackend, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &MySQLBackend{DB: db, table: "`" + table + "`", log: log}, nil
}

// Scoped は資格情報付きのハンドルを返します。
func (b *MySQLBackend) Scoped(cred Credential) Storer {
	return &mysqlStore{b: b, cred: cred}
}

// Ping はデータベースへの疎通を確認します。
func (b *MySQLBackend) Ping(ctx context.Context) error {
	return b.DB.PingContext(ctx)
}

// Close は接続を閉じます。
func (b *MySQLBackend) Close() {
	if err := b.DB.Close(); err != nil {
		b.log.Error("Failed to close mysql connection", "error", err)
	}
}

const mysqlColumns = `id, title, COALESCE(description, '') AS description, category_id, due_date,
	COALESCE(priority, 'medium') AS priority, status, user_id, created_at, updated_at`

type mysqlStore struct {
	b    *MySQLBackend
	cred Credential
}

// scope は WHERE 句に追加する所有者条件です。
func (s *mysqlStore) scope(where string, args []any) (string, []any) {
	if s.cred.IsZero() {
		return where, args
	}
	if where == "" {
		return " WHERE user_id = ?", append(args, s.cred.UserID)
	}
	return where + " AND user_id = ?", append(args, s.cred.UserID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t          models.Task
		categoryID sql.NullString
		dueDate    sql.NullTime
		userID     sql.NullString
		updatedAt  sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &categoryID, &dueDate,
		&t.Priority, &t.Status, &userID, &t.CreatedAt, &updatedAt)
	if err != nil {
		return models.Task{}, err
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if userID.Valid {
		t.UserID = &userID.String
	}
	if updatedAt.Valid {
		t.UpdatedAt = &updatedAt.Time
	}
	return t, nil
}

func (s *mysqlStore) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// GetAll は作成日時の降順ですべてのタスクを返します。
func (s *mysqlStore) GetAll(ctx context.Context) ([]models.Task, error) {
	where, args := s.scope("", nil)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC", mysqlColumns, s.b.table, where)

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, Translate("tasks.getAll", err)
	}
	return tasks, nil
}

func (s *mysqlStore) findByID(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string, forUpdate bool) (models.Task, error) {
	where, args := s.scope(" WHERE id = ?", []any{id})
	query := fmt.Sprintf("SELECT %s FROM %s%s", mysqlColumns, s.b.table, where)
	if forUpdate {
		query += " FOR UPDATE"
	}
	return scanTask(q.QueryRowContext(ctx, query, args...))
}

// GetByID は指定IDのタスクを返します。該当なしは KindNotFound。
func (s *mysqlStore) GetByID(ctx context.Context, id string) (models.Task, error) {
	t, err := s.findByID(ctx, s.b.DB, id, false)
	if err != nil {
		return models.Task{}, Translate("tasks.getById", err)
	}
	return t, nil
}

// Create はタスクを挿入します。id は uuid をアプリ側で採番します。
func (s *mysqlStore) Create(ctx context.Context, in models.CreateTask) (models.Task, error) {
	if !s.cred.IsZero() && (in.UserID == nil || *in.UserID != s.cred.UserID) {
		return models.Task{}, NewError(KindBackend, "tasks.create", errors.New("row owner does not match the authenticated user"))
	}

	id := uuid.NewString()
	query := fmt.Sprintf(`INSERT INTO %s (id, title, description, category_id, due_date, priority, status, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.b.table)

	_, err := s.b.DB.ExecContext(ctx, query, id, in.Title, in.Description, in.CategoryID,
		in.DueDate, in.Priority, in.Status, in.UserID, time.Now().UTC())
	if err != nil {
		s.b.log.ErrorContext(ctx, "Failed to insert task", "error", err)
		return models.Task{}, Translate("tasks.create", err)
	}

	t, err := s.findByID(ctx, s.b.DB, id, false)
	if err != nil {
		return models.Task{}, Translate("tasks.create", err)
	}
	return t, nil
}

// Update は指定されたフィールドだけを更新し、更新後の行を返します。
func (s *mysqlStore) Update(ctx context.Context, id string, u models.UpdateTask) (models.Task, error) {
	var updated models.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.findByID(ctx, tx, id, true); err != nil {
			return err
		}
		if !u.IsEmpty() {
			sets, args := mysqlAssignments(u)
			where, args := s.scope(" WHERE id = ?", append(args, id))
			query := fmt.Sprintf("UPDATE %s SET %s%s", s.b.table, strings.Join(sets, ", "), where)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		var err error
		updated, err = s.findByID(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return models.Task{}, Translate("tasks.update", err)
	}
	return updated, nil
}

func mysqlAssignments(u models.UpdateTask) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.CategoryID != nil {
		add("category_id", *u.CategoryID)
	}
	if u.DueDate != nil {
		add("due_date", *u.DueDate)
	}
	if u.Priority != nil {
		add("priority", *u.Priority)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.UpdatedAt != nil {
		add("updated_at", *u.UpdatedAt)
	}
	return sets, args
}

// Delete は行を削除し、削除した値を返します。
func (s *mysqlStore) Delete(ctx context.Context, id string) (models.Task, error) {
	var deleted models.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = s.findByID(ctx, tx, id, true)
		if err != nil {
			return err
		}
		where, args := s.scope(" WHERE id = ?", []any{id})
		_, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", s.b.table, where), args...)
		return err
	})
	if err != nil {
		return models.Task{}, Translate("tasks.delete", err)
	}
	return deleted, nil
}

func (s *mysqlStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.b.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.b.log.ErrorContext(ctx, "Failed to rollback", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// GetPaginated は1ページ分のタスクと総件数を返します。
func (s *mysqlStore) GetPaginated(ctx context.Context, page, limit int) ([]models.Task, int64, error) {
	p := PageRange(page, limit)
	where, args := s.scope("", nil)

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.b.table, where)
	if err := s.b.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, Translate("tasks.getPaginated", err)
	}

	pageQuery := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		mysqlColumns, s.b.table, where)
	tasks, err := s.queryTasks(ctx, pageQuery, append(args, p.To-p.From+1, p.From)...)
	if err != nil {
		return nil, 0, Translate("tasks.getPaginated", err)
	}
	return tasks, total, nil
}

// Search は指定カラムに対する大文字小文字を区別しない部分一致 (OR) で検索します。
func (s *mysqlStore) Search(ctx context.Context, term string, columns []string) ([]models.Task, error) {
	cols, err := SearchColumns(columns)
	if err != nil {
		return nil, err
	}
	pattern := strings.ToLower(escapeLike(term))
	conds := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		conds[i] = fmt.Sprintf("LOWER(`%s`) LIKE ?", c)
		args = append(args, pattern)
	}
	where, args := s.scope(" WHERE ("+strings.Join(conds, " OR ")+")", args)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC", mysqlColumns, s.b.table, where)

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, Translate("tasks.search", err)
	}
	return tasks, nil
}
