package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-supa-todo/backend/internal/config"
	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/testutil"
)

func TestWelcomeHandler(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := env.Do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"message":"Welcome to Todo List API","version":"1.0.0","endpoints":{"todos":"/api/todos"}}`, resp.Body.String())
}

func TestHealthHandler(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := env.Do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestNoRoute(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := env.Do(t, http.MethodGet, "/api/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"success":false,"error":"Not Found - /api/unknown"}`, resp.Body.String())
}

func TestTodoRoutes_RequireToken(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := env.Do(t, http.MethodGet, "/api/todos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Access token is required", testutil.Decode[any](t, resp).Message)

	resp = env.Do(t, http.MethodGet, "/api/todos", "invalid.jwt.token", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestTodoRoutes_EmailConfirmationGate(t *testing.T) {
	env := testutil.SetupTestRouter(t, func(c *config.Config) { c.RequireEmailConfirmed = true })

	unconfirmed := env.MintToken(t, models.AuthUser{ID: "4b3f0e1c-1111-4c1e-9a11-000000000001"})
	resp := env.Do(t, http.MethodGet, "/api/todos", unconfirmed, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	confirmed := env.MintToken(t, models.AuthUser{ID: "4b3f0e1c-1111-4c1e-9a11-000000000002", EmailConfirmed: true})
	resp = env.Do(t, http.MethodGet, "/api/todos", confirmed, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
