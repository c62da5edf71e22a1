// Package services はタスクのデータアクセスとトークン検証を扱います。
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/internal/repositories"
)

// ErrTitleRequired は title が空の場合のエラーです。
var ErrTitleRequired = errors.New("title is required")

// TodoService は1テーブル分のタスク操作をリクエストごとのセッションとして払い出します。
type TodoService struct {
	backend repositories.Backend
	table   string
	log     *slog.Logger
	now     func() time.Time
}

// NewTodoService は新しいTodoServiceを作成します。
func NewTodoService(backend repositories.Backend, table string, log *slog.Logger) *TodoService {
	return &TodoService{
		backend: backend,
		table:   table,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Ping はバックエンドの疎通を確認します。
func (s *TodoService) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// ForUser はリクエスト単位のセッションを作成します。
// user が nil ならサービスレベル、そうでなければ呼び出し元の資格情報に束縛されたハンドルを使います。
func (s *TodoService) ForUser(user *models.AuthUser) *TodoSession {
	var cred repositories.Credential
	if user != nil {
		cred = repositories.Credential{UserID: user.ID, Email: user.Email, Token: user.Token}
	}
	return &TodoSession{
		svc:   s,
		store: s.backend.Scoped(cred),
		user:  user,
	}
}

// TodoSession は1リクエストの間だけ使うデータアクセスハンドルです。
type TodoSession struct {
	svc   *TodoService
	store repositories.Storer
	user  *models.AuthUser
}

// guard はストア呼び出しの panic とエラーを分類済みエラーに変換します。
func (s *TodoSession) guard(ctx context.Context, op string, fn func() error) (err error) {
	op = s.svc.table + "." + op
	defer func() {
		if r := recover(); r != nil {
			s.svc.log.ErrorContext(ctx, "Recovered from storage panic", "op", op, "panic", r)
			err = repositories.NewError(repositories.KindInternal, op, fmt.Errorf("panic: %v", r))
		}
	}()
	if err = fn(); err != nil {
		err = repositories.Translate(op, err)
		s.svc.log.DebugContext(ctx, "Storage operation failed", "op", op, "kind", repositories.KindOf(err).String(), "error", err)
		return err
	}
	s.svc.log.DebugContext(ctx, "Storage operation succeeded", "op", op)
	return nil
}

// GetAll は作成日時の降順ですべてのタスクを返します。行が無ければ空スライス。
func (s *TodoSession) GetAll(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := s.guard(ctx, "getAll", func() error {
		var err error
		tasks, err = s.store.GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// GetByID は指定IDのタスクを返します。
func (s *TodoSession) GetByID(ctx context.Context, id string) (models.Task, error) {
	var t models.Task
	err := s.guard(ctx, "getById", func() error {
		var err error
		t, err = s.store.GetByID(ctx, id)
		return err
	})
	return t, err
}

// Create はタスクを作成します。user_id は常に認証済みユーザーから設定します。
func (s *TodoSession) Create(ctx context.Context, in models.CreateTask) (models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Task{}, repositories.NewError(repositories.KindValidation, s.svc.table+".create", ErrTitleRequired)
	}
	if in.Priority == "" {
		in.Priority = models.DefaultPriority
	}
	in.UserID = nil
	if s.user != nil {
		id := s.user.ID
		in.UserID = &id
	}

	var t models.Task
	err := s.guard(ctx, "create", func() error {
		var err error
		t, err = s.store.Create(ctx, in)
		return err
	})
	return t, err
}

// Update は指定されたフィールドだけを更新します。updated_at は常に現在時刻になります。
func (s *TodoSession) Update(ctx context.Context, id string, u models.UpdateTask) (models.Task, error) {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return models.Task{}, repositories.NewError(repositories.KindValidation, s.svc.table+".update", ErrTitleRequired)
	}
	now := s.svc.now()
	u.UpdatedAt = &now

	var t models.Task
	err := s.guard(ctx, "update", func() error {
		var err error
		t, err = s.store.Update(ctx, id, u)
		return err
	})
	return t, err
}

// Delete はタスクを削除し、削除した値を返します。
func (s *TodoSession) Delete(ctx context.Context, id string) (models.Task, error) {
	var t models.Task
	err := s.guard(ctx, "delete", func() error {
		var err error
		t, err = s.store.Delete(ctx, id)
		return err
	})
	return t, err
}

// GetPaginated は1始まりのページ番号で1ページ分のタスクと総件数を返します。
func (s *TodoSession) GetPaginated(ctx context.Context, page, limit int) ([]models.Task, int64, error) {
	var (
		tasks []models.Task
		total int64
	)
	err := s.guard(ctx, "getPaginated", func() error {
		var err error
		tasks, total, err = s.store.GetPaginated(ctx, page, limit)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Search は columns (未指定なら title, description) を部分一致の OR で検索します。
func (s *TodoSession) Search(ctx context.Context, term string, columns []string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.guard(ctx, "search", func() error {
		var err error
		tasks, err = s.store.Search(ctx, term, columns)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
