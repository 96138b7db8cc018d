package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"foliogen/internal/api/middleware"
	"foliogen/internal/database"
	"foliogen/internal/pdftext"
	"foliogen/internal/tasks"
)

// ObjectStorage 是简历处理链路需要的对象存储能力。
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	GeneratePresignedPutURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// TaskEnqueuer 抽象任务入队，测试时可替换。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ResumeHandler 负责简历上传、查询与删除。
type ResumeHandler struct {
	db             *gorm.DB
	enqueuer       TaskEnqueuer
	storage        ObjectStorage
	logger         *slog.Logger
	clamdAddr      string
	maxUploadBytes int64
	maxRetry       int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(
	db *gorm.DB,
	enqueuer TaskEnqueuer,
	storage ObjectStorage,
	logger *slog.Logger,
	clamdAddr string,
	maxUploadBytes int64,
	maxRetry int,
) *ResumeHandler {
	return &ResumeHandler{
		db:             db,
		enqueuer:       enqueuer,
		storage:        storage,
		logger:         logger,
		clamdAddr:      clamdAddr,
		maxUploadBytes: maxUploadBytes,
		maxRetry:       maxRetry,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type resumeListItem struct {
	ID        uint      `json:"id"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResume 处理简历 PDF 上传：校验、杀毒、取文、存储、建档、派发提取任务。
// 所有校验都发生在任何数据库写入之前。
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if err := pdftext.ValidateUpload(contentType, file.Size, h.maxUploadBytes); err != nil {
		switch {
		case errors.Is(err, pdftext.ErrNotPDF):
			BadRequest(c, "only pdf files are accepted")
		case errors.Is(err, pdftext.ErrTooLarge):
			TooLarge(c, fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
		default:
			BadRequest(c, err.Error())
		}
		return
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(io.LimitReader(fileReader, h.maxUploadBytes+1))
	fileReader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		TooLarge(c, fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
		return
	}

	if err := h.scanForViruses(data); err != nil {
		BadRequest(c, "malicious file detected")
		return
	}

	resumeText, err := pdftext.Extract(data)
	if err != nil {
		if errors.Is(err, pdftext.ErrEmptyText) {
			BadRequest(c, "no extractable text in pdf")
			return
		}
		BadRequest(c, "failed to parse pdf")
		return
	}

	ctx := c.Request.Context()
	objectKey := fmt.Sprintf("resumes/%d/%s.pdf", user.ID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectKey, bytes.NewReader(data), int64(len(data)), pdftext.MIMEPDF); err != nil {
		h.logger.Error("upload resume to storage failed", slog.Any("error", err))
		Internal(c, "failed to store file")
		return
	}

	resume := database.Resume{
		UserID:     user.ID,
		FileName:   file.Filename,
		FileSize:   file.Size,
		FileType:   contentType,
		ObjectKey:  objectKey,
		Status:     database.StatusUploaded,
		ResumeText: resumeText,
		Fields:     datatypes.JSON([]byte("{}")),
	}
	if err := h.db.WithContext(ctx).Create(&resume).Error; err != nil {
		Internal(c, "failed to create resume")
		return
	}

	if err := h.setActiveResumeID(ctx, user.ID, &resume.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeExtractTask(resume.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	if _, err := h.enqueuer.Enqueue(task, asynq.MaxRetry(h.maxRetry)); err != nil {
		h.logger.Error("enqueue extraction failed", slog.Any("error", err))
		Internal(c, "failed to schedule extraction")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     resume.ID,
		"status": resume.Status,
	})
}

// scanForViruses 在配置了 clamd 时对上传内容做流式扫描。
func (h *ResumeHandler) scanForViruses(data []byte) error {
	if h.clamdAddr == "" {
		return nil
	}

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamdClient.ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return fmt.Errorf("malicious content: %s", result.Description)
		}
	}
	return nil
}

// ListResumes 列出用户全部简历的元数据（含处理状态，供前端轮询）。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var resumes []database.Resume
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:        r.ID,
			FileName:  r.FileName,
			FileSize:  r.FileSize,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetResume 返回指定简历的元数据与状态。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondResumeLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, resumeListItem{
		ID:        resume.ID,
		FileName:  resume.FileName,
		FileSize:  resume.FileSize,
		Status:    resume.Status,
		CreatedAt: resume.CreatedAt,
	})
}

// DeleteResume 删除指定简历：先删存储对象，再删记录，最后回落激活指针。
// 对象删除失败会中止整个操作，保证不会留下引用缺失文件的记录。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.storage.DeleteObject(ctx, resume.ObjectKey); err != nil {
		h.logger.Error("delete stored file failed", slog.Any("error", err))
		Internal(c, "failed to delete stored file")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&database.Resume{}, resume.ID).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}

	if err := h.assignLatestResumeAsActive(ctx, user.ID); err != nil {
		Internal(c, "failed to update active resume")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetDownloadLink 生成简历原件的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	resume, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondResumeLookupError(c, err)
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), resume.ObjectKey, 5*time.Minute)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// GenerateUploadURL 为客户端直传（图片等资产）签发限时 PUT 链接。
func (h *ResumeHandler) GenerateUploadURL(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	objectKey := fmt.Sprintf("user-assets/%d/%s", user.ID, uuid.NewString())
	uploadURL, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), objectKey, 10*time.Minute)
	if err != nil {
		Internal(c, "failed to generate upload url")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": uploadURL,
		"object_key": objectKey,
	})
}

func (h *ResumeHandler) setActiveResumeID(ctx context.Context, userID uint, resumeID *uint) error {
	var value any
	if resumeID != nil {
		value = *resumeID
	}
	return h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("active_resume_id", value).Error
}

func (h *ResumeHandler) assignLatestResumeAsActive(ctx context.Context, userID uint) error {
	var resume database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		First(&resume).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return h.setActiveResumeID(ctx, userID, nil)
	case err != nil:
		return err
	default:
		return h.setActiveResumeID(ctx, userID, &resume.ID)
	}
}

func (h *ResumeHandler) getResumeForUser(ctx context.Context, idParam string, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidResumeID
	}

	var resume database.Resume
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(&resume).Error; err != nil {
		return nil, err
	}

	return &resume, nil
}

func respondResumeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidResumeID):
		BadRequest(c, "invalid resume id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "resume not found")
	default:
		Internal(c, "failed to query resume")
	}
}
