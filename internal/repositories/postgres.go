package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-supa-todo/backend/internal/models"
)

// RLS ポリシーが参照するロール
const authenticatedRole = "authenticated"

// scopeSQL はトランザクション内だけ有効なロールと JWT クレームを設定します。
const scopeSQL = `SELECT set_config('role', $1, true), set_config('request.jwt.claims', $2, true)`

// PostgresBackend はホスティングされた PostgreSQL (Supabase) 上の tasks テーブルです。
type PostgresBackend struct {
	pool  *pgxpool.Pool
	table string
	log   *slog.Logger
}

// NewPostgresBackend は接続済みのプールから Backend を作成します。
func NewPostgresBackend(pool *pgxpool.Pool, table string, log *slog.Logger) *PostgresBackend {
	return &PostgresBackend{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
		log:   log,
	}
}

// uuid 型のカラムは文字列として読む
const taskColumns = `id::text AS id, title, COALESCE(description, '') AS description,
	category_id::text AS category_id, due_date, COALESCE(priority, 'medium') AS priority,
	COALESCE(status, false) AS status, user_id::text AS user_id, created_at, updated_at`

// Scoped は資格情報付きのハンドルを返します。
func (b *PostgresBackend) Scoped(cred Credential) Storer {
	return &pgStore{b: b, cred: cred}
}

// Ping はデータベースへの疎通を確認します。
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Close はプールを閉じます。
func (b *PostgresBackend) Close() {
	b.pool.Close()
}

// querier は *pgxpool.Pool と pgx.Tx の共通部分です。
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgStore struct {
	b    *PostgresBackend
	cred Credential
}

// run はサービスレベルならプールで直接、スコープ付きならクレームを設定したトランザクションで fn を実行します。
func (s *pgStore) run(ctx context.Context, fn func(q querier) error) error {
	if s.cred.IsZero() {
		return fn(s.b.pool)
	}
	claims, err := s.claims()
	if err != nil {
		return err
	}
	s.b.log.DebugContext(ctx, "running scoped transaction", "user_id", s.cred.UserID)
	return pgx.BeginFunc(ctx, s.b.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, scopeSQL, authenticatedRole, claims); err != nil {
			return fmt.Errorf("could not scope transaction: %w", err)
		}
		return fn(tx)
	})
}

func (s *pgStore) claims() (string, error) {
	c := map[string]any{
		"sub":  s.cred.UserID,
		"role": authenticatedRole,
	}
	if s.cred.Email != "" {
		c["email"] = s.cred.Email
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("could not encode jwt claims: %w", err)
	}
	return string(b), nil
}

func (s *pgStore) collect(ctx context.Context, q querier, sql string, args ...any) ([]models.Task, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	tasks, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Task])
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *pgStore) collectOne(ctx context.Context, q querier, sql string, args ...any) (models.Task, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return models.Task{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Task])
}

// GetAll は作成日時の降順ですべてのタスクを返します。
func (s *pgStore) GetAll(ctx context.Context) ([]models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", taskColumns, s.b.table)

	var tasks []models.Task
	err := s.run(ctx, func(q querier) error {
		var err error
		tasks, err = s.collect(ctx, q, query)
		return err
	})
	if err != nil {
		return nil, Translate("tasks.getAll", err)
	}
	return tasks, nil
}

// GetByID は指定IDのタスクを返します。該当なしは KindNotFound。
func (s *pgStore) GetByID(ctx context.Context, id string) (models.Task, error) {
	if !validID(id) {
		return models.Task{}, NewError(KindNotFound, "tasks.getById", ErrNotFound)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = @id", taskColumns, s.b.table)

	var t models.Task
	err := s.run(ctx, func(q querier) error {
		var err error
		t, err = s.collectOne(ctx, q, query, pgx.NamedArgs{"id": id})
		return err
	})
	if err != nil {
		return models.Task{}, Translate("tasks.getById", err)
	}
	return t, nil
}

// Create はタスクを1行挿入し、採番された id とタイムスタンプを含む行を返します。
func (s *pgStore) Create(ctx context.Context, in models.CreateTask) (models.Task, error) {
	query := fmt.Sprintf(`INSERT INTO %s (title, description, category_id, due_date, priority, status, user_id)
		VALUES (@title, @description, @category_id, @due_date, @priority, @status, @user_id)
		RETURNING %s`, s.b.table, taskColumns)

	args := pgx.NamedArgs{
		"title":       in.Title,
		"description": in.Description,
		"category_id": in.CategoryID,
		"due_date":    in.DueDate,
		"priority":    in.Priority,
		"status":      in.Status,
		"user_id":     in.UserID,
	}

	var t models.Task
	err := s.run(ctx, func(q querier) error {
		var err error
		t, err = s.collectOne(ctx, q, query, args)
		return err
	})
	if err != nil {
		return models.Task{}, Translate("tasks.create", err)
	}
	return t, nil
}

// Update は指定されたフィールドだけを更新します。
func (s *pgStore) Update(ctx context.Context, id string, u models.UpdateTask) (models.Task, error) {
	if !validID(id) {
		return models.Task{}, NewError(KindNotFound, "tasks.update", ErrNotFound)
	}
	if u.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	sets, args := updateAssignments(u)
	args["id"] = id
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = @id RETURNING %s",
		s.b.table, strings.Join(sets, ", "), taskColumns)

	var t models.Task
	err := s.run(ctx, func(q querier) error {
		var err error
		t, err = s.collectOne(ctx, q, query, args)
		return err
	})
	if err != nil {
		return models.Task{}, Translate("tasks.update", err)
	}
	return t, nil
}

// updateAssignments は nil でないフィールドから SET 句を組み立てます。
func updateAssignments(u models.UpdateTask) ([]string, pgx.NamedArgs) {
	var sets []string
	args := pgx.NamedArgs{}
	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = @%s", col, col))
		args[col] = v
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
func (s *pgStore) Delete(ctx context.Context, id string) (models.Task, error) {
	if !validID(id) {
		return models.Task{}, NewError(KindNotFound, "tasks.delete", ErrNotFound)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = @id RETURNING %s", s.b.table, taskColumns)

	var t models.Task
	err := s.run(ctx, func(q querier) error {
		var err error
		t, err = s.collectOne(ctx, q, query, pgx.NamedArgs{"id": id})
		return err
	})
	if err != nil {
		return models.Task{}, Translate("tasks.delete", err)
	}
	return t, nil
}

// GetPaginated は1ページ分のタスクと総件数を返します。
func (s *pgStore) GetPaginated(ctx context.Context, page, limit int) ([]models.Task, int64, error) {
	p := PageRange(page, limit)
	countQuery := fmt.Sprintf("SELECT count(*) FROM %s", s.b.table)
	pageQuery := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC LIMIT @limit OFFSET @offset",
		taskColumns, s.b.table)

	var (
		tasks []models.Task
		total int64
	)
	err := s.run(ctx, func(q querier) error {
		rows, err := q.Query(ctx, countQuery)
		if err != nil {
			return err
		}
		total, err = pgx.CollectOneRow(rows, pgx.RowTo[int64])
		if err != nil {
			return err
		}
		tasks, err = s.collect(ctx, q, pageQuery, pgx.NamedArgs{
			"limit":  p.To - p.From + 1,
			"offset": p.From,
		})
		return err
	})
	if err != nil {
		return nil, 0, Translate("tasks.getPaginated", err)
	}
	return tasks, total, nil
}

// Search は指定カラムに対する大文字小文字を区別しない部分一致 (OR) で検索します。
func (s *pgStore) Search(ctx context.Context, term string, columns []string) ([]models.Task, error) {
	cols, err := SearchColumns(columns)
	if err != nil {
		return nil, err
	}
	conds := make([]string, len(cols))
	for i, c := range cols {
		conds[i] = fmt.Sprintf("%s ILIKE @term", pgx.Identifier{c}.Sanitize())
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC",
		taskColumns, s.b.table, strings.Join(conds, " OR "))

	var tasks []models.Task
	err = s.run(ctx, func(q querier) error {
		var err error
		tasks, err = s.collect(ctx, q, query, pgx.NamedArgs{"term": escapeLike(term)})
		return err
	})
	if err != nil {
		return nil, Translate("tasks.search", err)
	}
	return tasks, nil
}

// validID は uuid 形式でない id を問い合わせ前に弾きます (存在しない id と同じ扱い)。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
