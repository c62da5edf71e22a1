package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MeHandler は認証済みユーザーのプロフィールを返します。
func MeHandler(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, success(user))
}
