package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler 暴露当前账号的画像与作品集生成状态。
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler 构造 UserHandler。
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// Me 返回当前用户的公开标识与作品集状态，前端据此决定入口指向
// 上传页还是作品集页。
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"display_id":              user.DisplayID,
		"email":                   user.Email,
		"name":                    user.Name,
		"avatar_url":              user.AvatarURL,
		"has_generated_portfolio": user.HasGeneratedPortfolio,
	})
}
