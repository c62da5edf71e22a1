package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind はストレージ境界で分類したエラーの種類です。
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindBackend:
		return "backend"
	default:
		return "internal"
	}
}

// errors.Is で種類を判定するためのセンチネル
var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
	ErrBackend    = errors.New("storage backend error")
	ErrInternal   = errors.New("internal error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindBackend:
		return ErrBackend
	default:
		return ErrInternal
	}
}

// Error はストレージ操作の失敗を表します。Op は "tasks.getById" のような操作名。
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is は同じ種類のセンチネルと一致します。
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewError は種類を指定してエラーを作成します。
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf はエラーの種類を返します。分類されていないエラーは KindInternal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PostgreSQL / MySQL のエラーコード
const (
	pgInvalidText    = "22P02"
	pgStringTooLong  = "22001"
	pgNotNull        = "23502"
	pgForeignKey     = "23503"
	pgCheckViolation = "23514"

	mysqlColumnNull   = 1048
	mysqlDataTooLong  = 1406
	mysqlForeignKey   = 1452
	mysqlCheckViolate = 3819
)

// Translate はドライバ固有のエラーを Kind に変換します。
// プロバイダのエラーコードを調べるのはこのパッケージの中だけです。
func Translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return NewError(KindNotFound, op, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidText, pgStringTooLong, pgNotNull, pgForeignKey, pgCheckViolation:
			return NewError(KindValidation, op, err)
		}
		// 42501 (RLS による拒否) を含むそれ以外はバックエンドエラー
		return NewError(KindBackend, op, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlColumnNull, mysqlDataTooLong, mysqlForeignKey, mysqlCheckViolate:
			return NewError(KindValidation, op, err)
		}
		return NewError(KindBackend, op, err)
	}

	// 接続断やコンテキストのキャンセルもバックエンドエラー
	return NewError(KindBackend, op, err)
}
