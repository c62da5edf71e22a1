// Package routesはroutingを行います。
package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go-supa-todo/backend/internal/config"
	"go-supa-todo/backend/internal/handlers"
	"go-supa-todo/backend/internal/services"
)

// Version は API のバージョンです。
const Version = "1.0.0"

// Deps はルーターが必要とする依存関係です。
type Deps struct {
	Config   *config.Config
	Todos    *services.TodoService
	Verifier services.TokenVerifier // AUTH_MODE=off のときは nil でよい
	Log      *slog.Logger
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(d.Log), Recovery(d.Log))

	// CORS対策
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = d.Config.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	todoHandler := handlers.NewTodoHandler(d.Todos, d.Log)

	// ルーティング
	r.GET("/", WelcomeHandler)
	r.GET("/api/health", HealthHandler(d.Todos))

	todos := r.Group("/api/todos")
	todos.Use(authChain(d)...)
	{
		todos.GET("", todoHandler.GetTodosHandler)
		todos.GET("/search", todoHandler.SearchTodosHandler)
		todos.GET("/page", todoHandler.GetTodosPageHandler)
		todos.GET("/:id", todoHandler.GetTodoByIDHandler)
		todos.POST("", todoHandler.CreateTodoHandler)
		todos.PUT("/:id", todoHandler.UpdateTodoHandler)
		todos.DELETE("/:id", todoHandler.DeleteTodoHandler)
	}

	if d.Verifier != nil {
		r.GET("/api/auth/me", AuthMiddleware(d.Verifier, d.Log), handlers.MeHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not Found - " + c.Request.URL.Path})
	})

	return r
}

// authChain は AUTH_MODE に応じて todo ルートに掛けるミドルウェアを返します。
func authChain(d Deps) []gin.HandlerFunc {
	if d.Verifier == nil {
		return nil
	}
	var chain []gin.HandlerFunc
	switch d.Config.AuthMode {
	case config.AuthRequired:
		chain = append(chain, AuthMiddleware(d.Verifier, d.Log))
	case config.AuthOptional:
		chain = append(chain, OptionalAuth(d.Verifier, d.Log))
	default:
		return nil
	}
	if d.Config.RequireEmailConfirmed {
		chain = append(chain, RequireEmailConfirmation())
	}
	return chain
}

// WelcomeHandler は API のメタデータを返します。
func WelcomeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Todo List API",
		"version": Version,
		"endpoints": gin.H{
			"todos": "/api/todos",
		},
	})
}

// HealthHandler はデータストアへの疎通を確認します。
func HealthHandler(svc *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
	}
}
