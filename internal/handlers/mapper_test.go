package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-supa-todo/backend/internal/models"
)

func TestToTodo(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	owner := "user-1"

	todo := ToTodo(models.Task{
		ID:        "t-1",
		Title:     "Write report",
		Priority:  "low",
		Status:    true,
		UserID:    &owner,
		CreatedAt: created,
		UpdatedAt: &updated,
	})

	assert.Equal(t, "t-1", todo.ID)
	assert.Equal(t, "Write report", todo.Title)
	assert.Equal(t, "", todo.Description)
	assert.True(t, todo.Completed)
	assert.Equal(t, "low", todo.Priority)
	assert.Equal(t, &owner, todo.UserID)
	assert.Equal(t, created, todo.CreatedAt)
	assert.Equal(t, &updated, todo.UpdatedAt)
}

func TestToTodos_NilIsEmpty(t *testing.T) {
	todos := ToTodos(nil)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestToCreateTask_Defaults(t *testing.T) {
	title := "Buy milk"
	in := ToCreateTask(models.CreateTodoRequest{Title: &title})

	assert.Equal(t, "Buy milk", in.Title)
	assert.Equal(t, "", in.Description)
	assert.Equal(t, models.DefaultPriority, in.Priority)
	assert.False(t, in.Status)
	assert.Nil(t, in.UserID)
}

func TestToUpdateTask_CompletedMapsToStatus(t *testing.T) {
	completed := false
	u := ToUpdateTask(models.UpdateTodoRequest{Completed: &completed})

	assert.Nil(t, u.Title)
	assert.Nil(t, u.Description)
	if assert.NotNil(t, u.Status) {
		assert.False(t, *u.Status)
	}
	assert.True(t, ToUpdateTask(models.UpdateTodoRequest{}).IsEmpty())
}
