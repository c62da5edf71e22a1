package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/internal/repositories"
	"go-supa-todo/backend/testutil"
)

// failingBackend はすべての操作で err を返すバックエンドです。
type failingBackend struct {
	err error
}

func (b failingBackend) Scoped(repositories.Credential) repositories.Storer { return failingStore(b) }
func (b failingBackend) Ping(context.Context) error                         { return b.err }
func (b failingBackend) Close()                                             {}

type failingStore struct {
	err error
}

func (s failingStore) GetAll(context.Context) ([]models.Task, error) { return nil, s.err }

func (s failingStore) GetByID(context.Context, string) (models.Task, error) {
	return models.Task{}, s.err
}

func (s failingStore) Create(context.Context, models.CreateTask) (models.Task, error) {
	return models.Task{}, s.err
}

func (s failingStore) Update(context.Context, string, models.UpdateTask) (models.Task, error) {
	return models.Task{}, s.err
}

func (s failingStore) Delete(context.Context, string) (models.Task, error) {
	return models.Task{}, s.err
}

func (s failingStore) GetPaginated(context.Context, int, int) ([]models.Task, int64, error) {
	return nil, 0, s.err
}

func (s failingStore) Search(context.Context, string, []string) ([]models.Task, error) {
	return nil, s.err
}

const anyID = "6d0f2b8e-3c4a-4e5f-9a1b-2c3d4e5f6a7b"

var todoRequests = []struct {
	name   string
	method string
	path   string
	body   any
}{
	{name: "list", method: http.MethodGet, path: "/api/todos"},
	{name: "get", method: http.MethodGet, path: "/api/todos/" + anyID},
	{name: "create", method: http.MethodPost, path: "/api/todos", body: map[string]any{"title": "Buy milk"}},
	{name: "update", method: http.MethodPut, path: "/api/todos/" + anyID, body: map[string]any{"completed": true}},
	{name: "delete", method: http.MethodDelete, path: "/api/todos/" + anyID},
	{name: "search", method: http.MethodGet, path: "/api/todos/search?q=milk"},
	{name: "page", method: http.MethodGet, path: "/api/todos/page"},
}

func TestTodoHandlers_StorageErrorIs500(t *testing.T) {
	env := testutil.SetupTestRouterWithBackend(t, failingBackend{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")})
	token := env.MintToken(t, alice)

	for _, tc := range todoRequests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.Do(t, tc.method, tc.path, token, tc.body)
			assert.Equal(t, http.StatusInternalServerError, resp.Code, resp.Body.String())
			body := testutil.Decode[any](t, resp)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
			assert.Contains(t, body.Details, "connection refused")
		})
	}
}

func TestTodoHandlers_ValidationErrorIs400(t *testing.T) {
	cause := repositories.NewError(repositories.KindValidation, "tasks.create", errors.New(`value too long for type character varying(255)`))
	env := testutil.SetupTestRouterWithBackend(t, failingBackend{err: cause})
	token := env.MintToken(t, alice)

	for _, tc := range todoRequests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.Do(t, tc.method, tc.path, token, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			body := testutil.Decode[any](t, resp)
			assert.False(t, body.Success)
			assert.Equal(t, "Invalid todo data", body.Error)
			assert.Contains(t, body.Details, "value too long")
		})
	}
}

func TestHealthHandler_BackendDown(t *testing.T) {
	env := testutil.SetupTestRouterWithBackend(t, failingBackend{err: errors.New("connection refused")})

	resp := env.Do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"error"`)
}
