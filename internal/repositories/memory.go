package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-supa-todo/backend/internal/models"
)

// errRowLevelSecurity は RLS のチェックに違反した挿入です。
var errRowLevelSecurity = errors.New("new row violates row-level security policy")

// MemoryBackend はプロセス内のマップに保存する Backend です。テストとローカル実行用。
// スコープ付きハンドルは auth.uid() = user_id のポリシーと同じく自分の行だけを扱います。
type MemoryBackend struct {
	mu   sync.RWMutex
	rows map[string]memRow
	seq  int64
	now  func() time.Time
}

type memRow struct {
	task models.Task
	seq  int64
}

// NewMemoryBackend は空の MemoryBackend を作成します。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rows: make(map[string]memRow),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock は時刻の取得元を差し替えます。テスト用。
func (b *MemoryBackend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Scoped は資格情報付きのハンドルを返します。
func (b *MemoryBackend) Scoped(cred Credential) Storer {
	return &memStore{b: b, cred: cred}
}

// Ping は常に成功します。
func (b *MemoryBackend) Ping(context.Context) error { return nil }

// Close は保持しているデータを破棄します。
func (b *MemoryBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = make(map[string]memRow)
}

// Len は保存されている行数を返します。
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows)
}

type memStore struct {
	b    *MemoryBackend
	cred Credential
}

func (s *memStore) visible(t models.Task) bool {
	if s.cred.IsZero() {
		return true
	}
	return t.UserID != nil && *t.UserID == s.cred.UserID
}

// sorted は見える行を作成日時の降順 (同時刻なら後から入れたものが先) で返します。呼び出し側でロックすること。
func (s *memStore) sorted(match func(models.Task) bool) []models.Task {
	rows := make([]memRow, 0, len(s.b.rows))
	for _, r := range s.b.rows {
		if s.visible(r.task) && (match == nil || match(r.task)) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].task.CreatedAt.Equal(rows[j].task.CreatedAt) {
			return rows[i].task.CreatedAt.After(rows[j].task.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	tasks := make([]models.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.task
	}
	return tasks
}

func (s *memStore) GetAll(ctx context.Context) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, Translate("tasks.getAll", err)
	}
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	return s.sorted(nil), nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, Translate("tasks.getById", err)
	}
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	r, ok := s.b.rows[id]
	if !ok || !s.visible(r.task) {
		return models.Task{}, NewError(KindNotFound, "tasks.getById", ErrNotFound)
	}
	return r.task, nil
}

func (s *memStore) Create(ctx context.Context, in models.CreateTask) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, Translate("tasks.create", err)
	}
	if in.Title == "" {
		return models.Task{}, NewError(KindValidation, "tasks.create", errors.New(`null value in column "title" violates not-null constraint`))
	}
	if !s.cred.IsZero() && (in.UserID == nil || *in.UserID != s.cred.UserID) {
		return models.Task{}, NewError(KindBackend, "tasks.create", errRowLevelSecurity)
	}

	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.seq++
	t := models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		DueDate:     in.DueDate,
		Priority:    in.Priority,
		Status:      in.Status,
		UserID:      in.UserID,
		CreatedAt:   s.b.now(),
	}
	if t.Priority == "" {
		t.Priority = models.DefaultPriority
	}
	s.b.rows[t.ID] = memRow{task: t, seq: s.b.seq}
	return t, nil
}

func (s *memStore) Update(ctx context.Context, id string, u models.UpdateTask) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, Translate("tasks.update", err)
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, ok := s.b.rows[id]
	if !ok || !s.visible(r.task) {
		return models.Task{}, NewError(KindNotFound, "tasks.update", ErrNotFound)
	}

	t := r.task
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.CategoryID != nil {
		t.CategoryID = u.CategoryID
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.UpdatedAt != nil {
		updated := *u.UpdatedAt
		t.UpdatedAt = &updated
	}
	if t.Title == "" {
		return models.Task{}, NewError(KindValidation, "tasks.update", errors.New(`null value in column "title" violates not-null constraint`))
	}
	s.b.rows[id] = memRow{task: t, seq: r.seq}
	return t, nil
}

func (s *memStore) Delete(ctx context.Context, id string) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, Translate("tasks.delete", err)
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	r, ok := s.b.rows[id]
	if !ok || !s.visible(r.task) {
		return models.Task{}, NewError(KindNotFound, "tasks.delete", ErrNotFound)
	}
	delete(s.b.rows, id)
	return r.task, nil
}

func (s *memStore) GetPaginated(ctx context.Context, page, limit int) ([]models.Task, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, Translate("tasks.getPaginated", err)
	}
	p := PageRange(page, limit)
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()

	all := s.sorted(nil)
	total := int64(len(all))
	if p.From >= len(all) {
		return []models.Task{}, total, nil
	}
	end := min(p.To+1, len(all))
	return all[p.From:end], total, nil
}

func (s *memStore) Search(ctx context.Context, term string, columns []string) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, Translate("tasks.search", err)
	}
	cols, err := SearchColumns(columns)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(term)
	match := func(t models.Task) bool {
		for _, c := range cols {
			var v string
			switch c {
			case "title":
				v = t.Title
			case "description":
				v = t.Description
			}
			if strings.Contains(strings.ToLower(v), needle) {
				return true
			}
		}
		return false
	}

	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	return s.sorted(match), nil
}
