package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "pgx no rows", err: pgx.ErrNoRows, want: KindNotFound},
		{name: "wrapped sql no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), want: KindNotFound},
		{name: "pg invalid uuid text", err: &pgconn.PgError{Code: "22P02"}, want: KindValidation},
		{name: "pg not null", err: &pgconn.PgError{Code: "23502"}, want: KindValidation},
		{name: "pg check violation", err: &pgconn.PgError{Code: "23514"}, want: KindValidation},
		{name: "pg rls denial", err: &pgconn.PgError{Code: "42501"}, want: KindBackend},
		{name: "pg undefined table", err: &pgconn.PgError{Code: "42P01"}, want: KindBackend},
		{name: "mysql column null", err: &mysql.MySQLError{Number: 1048}, want: KindValidation},
		{name: "mysql data too long", err: &mysql.MySQLError{Number: 1406}, want: KindValidation},
		{name: "mysql lock timeout", err: &mysql.MySQLError{Number: 1205}, want: KindBackend},
		{name: "context canceled", err: context.Canceled, want: KindBackend},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: KindBackend},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Translate("tasks.op", tc.err)
			assert.Equal(t, tc.want, KindOf(err))
			assert.ErrorIs(t, err, tc.want.sentinel())
		})
	}
}

func TestTranslate_NilAndClassified(t *testing.T) {
	assert.NoError(t, Translate("tasks.op", nil))

	classified := NewError(KindValidation, "tasks.create", errors.New("title missing"))
	assert.Same(t, classified, Translate("tasks.other", classified))
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := &pgconn.PgError{Code: "23502", Message: "null value"}
	err := Translate("tasks.create", cause)

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
	assert.Contains(t, err.Error(), "tasks.create")
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "not found", KindNotFound.String())
}
