package handlers

import (
	"github.com/gin-gonic/gin"

	"go-supa-todo/backend/internal/models"
)

// ToTodo はストレージのタスクを API 表現に変換します。
func ToTodo(t models.Task) models.Todo {
	return models.Todo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CategoryID:  t.CategoryID,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Completed:   t.Status,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ToTodos はスライスをまとめて変換します。nil は空スライスになります。
func ToTodos(tasks []models.Task) []models.Todo {
	out := make([]models.Todo, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToTodo(t))
	}
	return out
}

// ToUpdateTask は更新リクエストを部分更新に変換します。completed は status に対応します。
func ToUpdateTask(req models.UpdateTodoRequest) models.UpdateTask {
	return models.UpdateTask{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Completed,
	}
}

// ToCreateTask は作成リクエストを挿入用の値に変換します。user_id はここでは設定しません。
func ToCreateTask(req models.CreateTodoRequest) models.CreateTask {
	in := models.CreateTask{
		CategoryID: req.CategoryID,
		DueDate:    req.DueDate.Ptr(),
		Priority:   models.DefaultPriority,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Priority != nil && *req.Priority != "" {
		in.Priority = *req.Priority
	}
	if req.Status != nil {
		in.Status = *req.Status
	}
	return in
}

func success(data any) gin.H {
	return gin.H{"success": true, "data": data}
}

func successList(data []models.Todo) gin.H {
	return gin.H{"success": true, "count": len(data), "data": data}
}

func failure(msg string) gin.H {
	return gin.H{"success": false, "error": msg}
}

func failureWithDetails(msg string, err error) gin.H {
	return gin.H{"success": false, "error": msg, "details": err.Error()}
}
