package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"foliogen/internal/database"
	"foliogen/internal/errcode"
	"foliogen/internal/extract"
	"foliogen/internal/tasks"
)

// ExtractTaskHandler 负责消费简历字段提取任务。
type ExtractTaskHandler struct {
	db          *gorm.DB
	pipeline    *extract.Pipeline
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewExtractTaskHandler 创建任务处理器。
func NewExtractTaskHandler(db *gorm.DB, pipeline *extract.Pipeline, redisClient *redis.Client, logger *slog.Logger) *ExtractTaskHandler {
	return &ExtractTaskHandler{
		db:          db,
		pipeline:    pipeline,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExtractTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.ResumeExtractPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
	)
	log.Info("Starting resume field extraction task...")

	err := h.pipeline.Run(ctx, payload.ResumeID)
	if errors.Is(err, extract.ErrResumeGone) {
		// 处理途中记录被删除：按无事发生处理，不重试。
		log.Warn("resume not found, skipping task")
		return nil
	}
	if err != nil {
		log.Error("resume extraction failed", slog.Any("error", err))
		if isFinalAttempt(ctx) {
			h.notifyStatus(ctx, payload, database.StatusError, errcode.ExtractFailed, err)
		}
		return err
	}

	h.notifyStatus(ctx, payload, database.StatusProcessed, errcode.OK, nil)
	log.Info("Resume extraction task completed successfully.")
	return nil
}

// notifyStatus 把状态变化推给该简历的属主；推送失败只记日志。
func (h *ExtractTaskHandler) notifyStatus(ctx context.Context, payload tasks.ResumeExtractPayload, status string, code int, cause error) {
	var resume database.Resume
	if err := h.db.WithContext(ctx).First(&resume, payload.ResumeID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Error("load resume for notification failed", slog.Any("error", err))
		}
		return
	}

	notify := ResumeStatusNotifyMessage{
		Status:        status,
		ResumeID:      resume.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     code,
	}
	if cause != nil {
		notify.ErrorMessage = strings.TrimSpace(cause.Error())
	}

	data, err := json.Marshal(notify)
	if err != nil {
		h.logger.Error("marshal notification payload failed", slog.Any("error", err))
		return
	}

	channel := fmt.Sprintf("user_notify:%d", resume.UserID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		h.logger.Error("publish redis notification failed",
			slog.String("channel", channel),
			slog.Any("error", err),
		)
	}
}

func isFinalAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
