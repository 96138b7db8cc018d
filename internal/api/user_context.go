package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"foliogen/internal/api/middleware"
	"foliogen/internal/database"
)

var errUserNotFound = errors.New("user not found")

// currentUser 根据鉴权中间件写入的外部 ID 解析本地账号记录。
func currentUser(c *gin.Context, db *gorm.DB) (*database.User, bool) {
	clerkID, ok := middleware.ClerkIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}

	user, err := findUserByClerkID(c.Request.Context(), db, clerkID)
	if err != nil {
		if errors.Is(err, errUserNotFound) {
			NotFound(c, "user not found")
		} else {
			Internal(c, "failed to load user")
		}
		return nil, false
	}
	return user, true
}

func findUserByClerkID(ctx context.Context, db *gorm.DB, clerkID string) (*database.User, error) {
	var user database.User
	err := db.WithContext(ctx).Where("clerk_id = ?", clerkID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
