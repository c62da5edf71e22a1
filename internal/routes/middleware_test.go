package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"go-supa-todo/backend/internal/handlers"
	"go-supa-todo/backend/internal/logger"
	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/internal/services"
)

type stubVerifier map[string]*models.AuthUser

func (s stubVerifier) Verify(_ context.Context, token string) (*models.AuthUser, error) {
	if token == "provider-down" {
		return nil, errors.New("dial tcp: i/o timeout")
	}
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, services.ErrInvalidToken
}

var verifier = stubVerifier{
	"confirmed":   {ID: "u1", EmailConfirmed: true},
	"unconfirmed": {ID: "u2"},
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", append(mw, func(c *gin.Context) {
		u := handlers.CurrentUser(c)
		if u == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, u.ID)
	})...)
	return r
}

func get(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newEngine(AuthMiddleware(verifier, logger.Discard()))

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{name: "valid", header: "Bearer confirmed", code: http.StatusOK, body: "u1"},
		{name: "lowercase scheme", header: "bearer confirmed", code: http.StatusOK, body: "u1"},
		{name: "missing header", header: "", code: http.StatusUnauthorized, body: "Access token is required"},
		{name: "no scheme", header: "confirmed", code: http.StatusUnauthorized, body: "Access token is required"},
		{name: "invalid token", header: "Bearer nope", code: http.StatusForbidden, body: "Invalid or expired token"},
		{name: "provider failure", header: "Bearer provider-down", code: http.StatusInternalServerError, body: "Internal server error during authentication"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.header)
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	r := newEngine(OptionalAuth(verifier, logger.Discard()))

	assert.Equal(t, "u1", get(r, "Bearer confirmed").Body.String())
	assert.Equal(t, "anonymous", get(r, "Bearer nope").Body.String())
	assert.Equal(t, "anonymous", get(r, "Bearer provider-down").Body.String())
	assert.Equal(t, "anonymous", get(r, "").Body.String())
}

func TestRequireEmailConfirmation(t *testing.T) {
	r := newEngine(OptionalAuth(verifier, logger.Discard()), RequireEmailConfirmation())

	assert.Equal(t, http.StatusOK, get(r, "Bearer confirmed").Code)

	w := get(r, "Bearer unconfirmed")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Email confirmation required")

	w = get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger.Discard()), Recovery(logger.Discard()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal Server Error"}`, w.Body.String())
}
