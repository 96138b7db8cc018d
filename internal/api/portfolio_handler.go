package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"foliogen/internal/database"
	"foliogen/internal/patch"
	"foliogen/internal/portfolio"
)

// PortfolioHandler 负责作品集预览、公开发布与字段补丁。
type PortfolioHandler struct {
	db    *gorm.DB
	patch *patch.Service
}

// NewPortfolioHandler 构造 PortfolioHandler。
func NewPortfolioHandler(db *gorm.DB, patchService *patch.Service) *PortfolioHandler {
	return &PortfolioHandler{
		db:    db,
		patch: patchService,
	}
}

// Preview 返回当前用户激活简历的作品集视图（需要登录）。
func (h *PortfolioHandler) Preview(c *gin.Context) {
	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	resume, err := h.activeOrLatestResume(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
		} else {
			Internal(c, "failed to query resume")
		}
		return
	}

	h.respondView(c, resume)
}

// Publish 按公开标识返回作品集视图（无需登录）。
// 标识不存在时返回描述性错误，绝不返回半截数据。
func (h *PortfolioHandler) Publish(c *gin.Context) {
	displayID := c.Param("displayId")
	if displayID == "" {
		BadRequest(c, "missing display id")
		return
	}

	ctx := c.Request.Context()
	var user database.User
	if err := h.db.WithContext(ctx).
		Where("display_id = ?", displayID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "display id does not exist or is incorrect")
		} else {
			Internal(c, "failed to query user")
		}
		return
	}

	resume, err := h.activeOrLatestResume(ctx, &user)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
		} else {
			Internal(c, "failed to query resume")
		}
		return
	}

	h.respondView(c, resume)
}

func (h *PortfolioHandler) respondView(c *gin.Context, resume *database.Resume) {
	doc, err := portfolio.Decode(documentOrEmpty(resume))
	if err != nil {
		Internal(c, "failed to decode portfolio document")
		return
	}
	c.JSON(http.StatusOK, portfolio.BuildView(doc))
}

type updateFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value any    `json:"value"`
}

// UpdateField 设置结构化文档中的单个字段（支持 contact.email 这类点路径）。
func (h *PortfolioHandler) UpdateField(c *gin.Context) {
	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	updated, err := h.patch.SetField(c.Request.Context(), user.ID, req.Field, req.Value)
	if err != nil {
		respondPatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fields": updated})
}

type updateImageRequest struct {
	ObjectKey string `json:"object_key" binding:"required"`
	Index     int    `json:"index"`
}

// UpdateProfilePicture 将已上传图片写入顶层 profilePicture。
func (h *PortfolioHandler) UpdateProfilePicture(c *gin.Context) {
	h.updateImage(c, patch.TargetProfilePicture)
}

// UpdateSchoolLogo 将已上传图片写入 education[i].logo。
func (h *PortfolioHandler) UpdateSchoolLogo(c *gin.Context) {
	h.updateImage(c, patch.TargetSchoolLogo)
}

// UpdateCompanyLogo 将已上传图片写入 experience[i].companyLogo。
func (h *PortfolioHandler) UpdateCompanyLogo(c *gin.Context) {
	h.updateImage(c, patch.TargetCompanyLogo)
}

// UpdateProjectImage 将已上传图片写入 projects[i].projectPicture。
func (h *PortfolioHandler) UpdateProjectImage(c *gin.Context) {
	h.updateImage(c, patch.TargetProjectImage)
}

func (h *PortfolioHandler) updateImage(c *gin.Context, target patch.ImageTarget) {
	var req updateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	imageURL, err := h.patch.SetImage(c.Request.Context(), user.ID, target, req.Index, req.ObjectKey)
	if err != nil {
		respondPatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": imageURL})
}

type updateProjectLinksRequest struct {
	GithubLink *string `json:"github_link"`
	LiveLink   *string `json:"live_link"`
}

// UpdateProjectLinks 更新指定项目的 github/live 链接。
func (h *PortfolioHandler) UpdateProjectLinks(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		BadRequest(c, "invalid project index")
		return
	}

	var req updateProjectLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, ok := currentUser(c, h.db)
	if !ok {
		return
	}

	updated, err := h.patch.SetProjectLinks(c.Request.Context(), user.ID, index, patch.ProjectLinks{
		GithubLink: req.GithubLink,
		LiveLink:   req.LiveLink,
	})
	if err != nil {
		respondPatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fields": updated})
}

// activeOrLatestResume 复用补丁层的选取规则：外键优先，回退最近。
func (h *PortfolioHandler) activeOrLatestResume(ctx context.Context, user *database.User) (*database.Resume, error) {
	if user.ActiveResumeID != nil {
		var resume database.Resume
		err := h.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *user.ActiveResumeID, user.ID).
			First(&resume).Error
		if err == nil {
			return &resume, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var latest database.Resume
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at desc").
		First(&latest).Error; err != nil {
		return nil, err
	}
	return &latest, nil
}

func documentOrEmpty(resume *database.Resume) []byte {
	if len(resume.Fields) == 0 {
		return []byte("{}")
	}
	return []byte(resume.Fields)
}

func respondPatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, patch.ErrNoResume):
		NotFound(c, "resume not found")
	case errors.Is(err, patch.ErrInvalidPath):
		BadRequest(c, "invalid field path")
	case errors.Is(err, patch.ErrNotArray):
		BadRequest(c, "target collection is not an array")
	case errors.Is(err, patch.ErrIndexOutOfRange):
		BadRequest(c, "index out of range")
	case errors.Is(err, patch.ErrInvalidURL):
		BadRequest(c, "invalid url")
	case errors.Is(err, patch.ErrObjectMissing):
		NotFound(c, "storage object not found")
	case errors.Is(err, patch.ErrConflict):
		Conflict(c, "document was modified concurrently, retry")
	default:
		Internal(c, "failed to update portfolio")
	}
}
