package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-supa-todo/backend/internal/handlers"
	"go-supa-todo/backend/internal/services"
)

// bearerToken は Authorization ヘッダーからトークンを取り出します。
func bearerToken(c *gin.Context) string {
	fields := strings.Fields(c.GetHeader("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}
	return fields[1]
}

// AuthMiddleware はアクセストークンを検証し、ユーザー情報をコンテキストに設定するミドルウェアです。
func AuthMiddleware(verifier services.TokenVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Access token is required"})
			return
		}

		user, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Invalid or expired token"})
				return
			}
			log.ErrorContext(c.Request.Context(), "Authentication error", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error during authentication"})
			return
		}

		handlers.SetCurrentUser(c, user)
		c.Next()
	}
}

// OptionalAuth はトークンがあれば検証し、失敗しても未認証のまま続行します。
func OptionalAuth(verifier services.TokenVerifier, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			user, err := verifier.Verify(c.Request.Context(), token)
			if err == nil {
				handlers.SetCurrentUser(c, user)
			} else {
				log.DebugContext(c.Request.Context(), "Optional authentication failed", "error", err)
			}
		}
		c.Next()
	}
}

// RequireEmailConfirmation はメールアドレス未確認のユーザーを拒否します。
func RequireEmailConfirmation() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handlers.CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}
		if !user.EmailConfirmed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Email confirmation required. Please check your email and confirm your account.",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger はリクエストごとにメソッド・パス・ステータス・処理時間を記録します。
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if user := handlers.CurrentUser(c); user != nil {
			attrs = append(attrs, "user_id", user.ID)
		}
		log.InfoContext(c.Request.Context(), "Request handled", attrs...)
	}
}

// Recovery は panic を 500 の汎用エラーに変換します。
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "Recovered from panic", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal Server Error"})
	})
}
