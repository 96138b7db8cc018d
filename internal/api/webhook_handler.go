package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foliogen/internal/database"
	"foliogen/internal/webhook"
)

// WebhookHandler 接收身份提供方的账号事件，负责把账号同步进本地用户表。
type WebhookHandler struct {
	db       *gorm.DB
	verifier *webhook.Verifier
	logger   *slog.Logger
}

// NewWebhookHandler 构造 WebhookHandler。
func NewWebhookHandler(db *gorm.DB, verifier *webhook.Verifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		db:       db,
		verifier: verifier,
		logger:   logger,
	}
}

// HandleClerkEvent 校验签名并分发 user.* 事件。
// 未识别的事件种类确认收到即可，避免提供方无意义地重发。
func (h *WebhookHandler) HandleClerkEvent(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		BadRequest(c, "failed to read request body")
		return
	}

	event, err := h.verifier.VerifyAndParse(payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, webhook.ErrVerifyFailed) {
			h.logger.Warn("webhook signature rejected", "error", err)
			BadRequest(c, "invalid webhook signature")
		} else {
			BadRequest(c, "malformed webhook payload")
		}
		return
	}

	ctx := c.Request.Context()
	switch event.Type {
	case webhook.EventUserCreated:
		err = h.upsertUser(ctx, event.Data)
	case webhook.EventUserUpdated:
		err = h.updateUser(ctx, event.Data)
	default:
		h.logger.Info("ignoring webhook event", "type", event.Type)
	}
	if err != nil {
		h.logger.Error("webhook event handling failed", "type", event.Type, "clerk_id", event.Data.ID, "error", err)
		Internal(c, "failed to process webhook event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// upsertUser 处理 user.created。提供方可能重发事件，按 clerk_id 幂等落库。
func (h *WebhookHandler) upsertUser(ctx context.Context, data webhook.UserData) error {
	if data.ID == "" {
		return errors.New("event data missing user id")
	}

	user := database.User{
		ClerkID:   data.ID,
		Email:     data.PrimaryEmail(),
		Name:      data.FullName(),
		AvatarURL: data.ImageURL,
		DisplayID: displayIDFor(data),
	}

	return h.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "clerk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "avatar_url"}),
		}).
		Create(&user).Error
}

// updateUser 处理 user.updated，只覆盖提供方管理的画像字段。
func (h *WebhookHandler) updateUser(ctx context.Context, data webhook.UserData) error {
	if data.ID == "" {
		return errors.New("event data missing user id")
	}

	updates := map[string]any{
		"email":      data.PrimaryEmail(),
		"name":       data.FullName(),
		"avatar_url": data.ImageURL,
	}
	if data.Username != "" {
		updates["display_id"] = data.Username
	}

	result := h.db.WithContext(ctx).
		Model(&database.User{}).
		Where("clerk_id = ?", data.ID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 更新先于创建到达时补一条记录。
		return h.upsertUser(ctx, data)
	}
	return nil
}

// displayIDFor 优先采用提供方用户名，缺失时退化为随机短标识。
func displayIDFor(data webhook.UserData) string {
	if data.Username != "" {
		return data.Username
	}
	return "u-" + strings.Split(uuid.NewString(), "-")[0]
}
