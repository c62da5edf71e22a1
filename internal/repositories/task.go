// Package repositories はタスクの永続化を抽象化し、各データベース向けの実装を提供します。
package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-supa-todo/backend/internal/models"
)

// Credential はスコープ付きハンドルを作るための呼び出し元情報です。
// ゼロ値はサービスレベル (RLS を通さない) のハンドルを意味します。
type Credential struct {
	UserID string
	Email  string
	Token  string
}

// IsZero はサービスレベルの資格情報かどうかを返します。
func (c Credential) IsZero() bool {
	return c.UserID == "" && c.Token == ""
}

// Storer は1テーブル分のタスク操作です。
type Storer interface {
	GetAll(ctx context.Context) ([]models.Task, error)
	GetByID(ctx context.Context, id string) (models.Task, error)
	Create(ctx context.Context, t models.CreateTask) (models.Task, error)
	Update(ctx context.Context, id string, u models.UpdateTask) (models.Task, error)
	Delete(ctx context.Context, id string) (models.Task, error)
	GetPaginated(ctx context.Context, page, limit int) ([]models.Task, int64, error)
	Search(ctx context.Context, term string, columns []string) ([]models.Task, error)
}

// Backend はデータストア接続のライフサイクルを持ち、リクエストごとに Storer を払い出します。
type Backend interface {
	// Scoped は資格情報に束縛された新しいハンドルを返します。共有状態は変更しません。
	Scoped(cred Credential) Storer
	Ping(ctx context.Context) error
	Close()
}

// 検索対象にできるカラム
var searchableColumns = map[string]bool{
	"title":       true,
	"description": true,
}

// DefaultSearchColumns は columns 未指定時の検索対象です。
var DefaultSearchColumns = []string{"title", "description"}

// ErrInvalidColumn は検索対象外のカラムが指定された場合のエラーです。
var ErrInvalidColumn = errors.New("column is not searchable")

// SearchColumns は検索カラムを検証し、未指定ならデフォルトを返します。
func SearchColumns(columns []string) ([]string, error) {
	if len(columns) == 0 {
		return DefaultSearchColumns, nil
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		c = strings.ToLower(strings.TrimSpace(c))
		if !searchableColumns[c] {
			return nil, NewError(KindValidation, "tasks.search", fmt.Errorf("%w: %q", ErrInvalidColumn, c))
		}
		out = append(out, c)
	}
	return out, nil
}

// ページングの既定値
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page はオフセットページングの範囲です。From と To は両端を含みます。
type Page struct {
	Number int
	Limit  int
	From   int
	To     int
}

// PageRange は 1 始まりのページ番号から取得範囲を計算します。
// from = (page-1)*limit, to = from+limit-1
func PageRange(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	from := (page - 1) * limit
	return Page{Number: page, Limit: limit, From: from, To: from + limit - 1}
}

// escapeLike は LIKE / ILIKE のワイルドカードをエスケープします。
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
