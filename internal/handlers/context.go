package handlers

import (
	"github.com/gin-gonic/gin"

	"go-supa-todo/backend/internal/models"
)

// UserContextKey は認証済みユーザーを gin.Context に格納するキーです。
const UserContextKey = "user"

// SetCurrentUser は認証済みユーザーをコンテキストに設定します。
func SetCurrentUser(c *gin.Context, u *models.AuthUser) {
	c.Set(UserContextKey, u)
}

// CurrentUser は認証済みユーザーを返します。未認証なら nil。
func CurrentUser(c *gin.Context) *models.AuthUser {
	v, exists := c.Get(UserContextKey)
	if !exists {
		return nil
	}
	u, _ := v.(*models.AuthUser)
	return u
}
