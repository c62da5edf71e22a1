package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/internal/repositories"
	"go-supa-todo/backend/internal/services"
)

// TodoHandler はTodo関連のハンドラーを管理します。
type TodoHandler struct {
	todoService *services.TodoService
	log         *slog.Logger
}

// NewTodoHandler は新しいTodoHandlerを作成します。
func NewTodoHandler(todoService *services.TodoService, log *slog.Logger) *TodoHandler {
	return &TodoHandler{todoService: todoService, log: log}
}

// session はリクエストの呼び出し元に束縛されたセッションを返します。
func (h *TodoHandler) session(c *gin.Context) *services.TodoSession {
	return h.todoService.ForUser(CurrentUser(c))
}

// respondError はエラー種別を HTTP ステータスに変換して返します。
func (h *TodoHandler) respondError(c *gin.Context, err error, msg string) {
	switch repositories.KindOf(err) {
	case repositories.KindNotFound:
		c.JSON(http.StatusNotFound, failure("Todo not found"))
	case repositories.KindValidation:
		if errors.Is(err, services.ErrTitleRequired) {
			c.JSON(http.StatusBadRequest, failure("Please provide a title"))
			return
		}
		c.JSON(http.StatusBadRequest, failureWithDetails("Invalid todo data", err))
	default:
		h.log.ErrorContext(c.Request.Context(), msg, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, failureWithDetails(msg, err))
	}
}

// GetTodosHandler はTodoリストを取得します。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	tasks, err := h.session(c).GetAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to fetch todos")
		return
	}
	c.JSON(http.StatusOK, successList(ToTodos(tasks)))
}

// GetTodoByIDHandler は指定IDのTodoを取得します。
func (h *TodoHandler) GetTodoByIDHandler(c *gin.Context) {
	task, err := h.session(c).GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch todo")
		return
	}
	c.JSON(http.StatusOK, success(ToTodo(task)))
}

// CreateTodoHandler は新しいTodoを作成します。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	var req models.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failureWithDetails("Invalid request payload", err))
		return
	}
	if req.Title == nil || *req.Title == "" {
		c.JSON(http.StatusBadRequest, failure("Please provide a title"))
		return
	}

	task, err := h.session(c).Create(c.Request.Context(), ToCreateTask(req))
	if err != nil {
		h.respondError(c, err, "Failed to create todo")
		return
	}
	c.JSON(http.StatusCreated, success(ToTodo(task)))
}

// UpdateTodoHandler はTodoを更新します。
func (h *TodoHandler) UpdateTodoHandler(c *gin.Context) {
	var req models.UpdateTodoRequest
	// 空ボディ (chunked を含む) は「何も変更しない」更新として扱う
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, failureWithDetails("Invalid request payload", err))
			return
		}
	}

	task, err := h.session(c).Update(c.Request.Context(), c.Param("id"), ToUpdateTask(req))
	if err != nil {
		h.respondError(c, err, "Failed to update todo")
		return
	}
	c.JSON(http.StatusOK, success(ToTodo(task)))
}

// DeleteTodoHandler はTodoを削除し、削除したTodoを返します。
func (h *TodoHandler) DeleteTodoHandler(c *gin.Context) {
	task, err := h.session(c).Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to delete todo")
		return
	}
	c.JSON(http.StatusOK, success(ToTodo(task)))
}

// SearchTodosHandler は q に部分一致するTodoを返します。columns はカンマ区切りで指定できます。
func (h *TodoHandler) SearchTodosHandler(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, failure("Please provide a search term"))
		return
	}

	var columns []string
	for _, v := range c.QueryArray("columns") {
		for _, col := range strings.Split(v, ",") {
			if col = strings.TrimSpace(col); col != "" {
				columns = append(columns, col)
			}
		}
	}
	columns, err := repositories.SearchColumns(columns)
	if err != nil {
		c.JSON(http.StatusBadRequest, failureWithDetails("Invalid search column", err))
		return
	}

	tasks, err := h.session(c).Search(c.Request.Context(), term, columns)
	if err != nil {
		h.respondError(c, err, "Failed to search todos")
		return
	}
	c.JSON(http.StatusOK, successList(ToTodos(tasks)))
}

// GetTodosPageHandler は1ページ分のTodoと総件数を返します。
func (h *TodoHandler) GetTodosPageHandler(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, failureWithDetails("Invalid page parameter", err))
		return
	}
	limit, err := queryInt(c, "limit", repositories.DefaultPageLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, failureWithDetails("Invalid limit parameter", err))
		return
	}
	p := repositories.PageRange(page, limit)

	tasks, total, err := h.session(c).GetPaginated(c.Request.Context(), p.Number, p.Limit)
	if err != nil {
		h.respondError(c, err, "Failed to fetch todos")
		return
	}
	todos := ToTodos(tasks)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(todos),
		"total":   total,
		"page":    p.Number,
		"limit":   p.Limit,
		"data":    todos,
	})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
