package repositories_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-supa-todo/backend/internal/logger"
	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/internal/repositories"
	"go-supa-todo/backend/testutil"
)

func TestNewMySQLBackend_RejectsBadTable(t *testing.T) {
	_, err := repositories.NewMySQLBackend(nil, "tasks; DROP TABLE users", logger.Discard())
	assert.Error(t, err)
}

func TestMySQLBackend_ScopedCRUD(t *testing.T) {
	db := testutil.SetupTestMySQL(t)
	backend, err := repositories.NewMySQLBackend(db, testutil.TestTable, logger.Discard())
	require.NoError(t, err)
	ctx := context.Background()

	owner, other := "user-a", "user-b"
	store := backend.Scoped(repositories.Credential{UserID: owner})
	otherStore := backend.Scoped(repositories.Credential{UserID: other})

	created, err := store.Create(ctx, models.CreateTask{Title: "Buy milk", Priority: models.DefaultPriority, UserID: &owner})
	require.NoError(t, err)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, "", created.Description)

	_, err = store.Create(ctx, models.CreateTask{Title: "forged", Priority: models.DefaultPriority, UserID: &other})
	assert.ErrorIs(t, err, repositories.ErrBackend)

	_, err = otherStore.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	title := "Buy oat milk"
	updated, err := store.Update(ctx, created.ID, models.UpdateTask{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	found, err := store.Search(ctx, "OAT", nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	page, total, err := store.GetPaginated(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, page, 1)

	deleted, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, deleted.Title)

	_, err = store.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
