package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"foliogen/internal/api/middleware"
	"foliogen/internal/auth"
	"foliogen/internal/config"
	"foliogen/internal/patch"
	"foliogen/internal/webhook"
)

// RouteDeps 汇总路由注册所需的外部依赖，避免参数列表无限增长。
type RouteDeps struct {
	DB              *gorm.DB
	Enqueuer        TaskEnqueuer
	Storage         ObjectStorage
	PatchStore      patch.ObjectStore
	AuthService     *auth.AuthService
	WebhookVerifier *webhook.Verifier
	WsHandler       *WsHandler
	Logger          *slog.Logger
	Config          *config.Config
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps RouteDeps) {
	resumeHandler := NewResumeHandler(
		deps.DB,
		deps.Enqueuer,
		deps.Storage,
		deps.Logger,
		deps.Config.Upload.ClamdAddr,
		deps.Config.Upload.MaxBytes,
		deps.Config.Extract.MaxRetry,
	)
	patchService := patch.NewService(deps.DB, deps.PatchStore)
	portfolioHandler := NewPortfolioHandler(deps.DB, patchService)
	webhookHandler := NewWebhookHandler(deps.DB, deps.WebhookVerifier, deps.Logger)
	authMiddleware := middleware.AuthMiddleware(deps.AuthService)

	// 公开端点：身份提供方回调与作品集分享页。
	router.POST("/clerk-webhook", webhookHandler.HandleClerkEvent)
	router.GET("/p/:displayId", portfolioHandler.Publish)

	userHandler := NewUserHandler(deps.DB)

	v1 := router.Group("/v1")
	{
		if deps.WsHandler != nil {
			v1.GET("/ws", deps.WsHandler.HandleConnection)
		}

		v1.GET("/me", authMiddleware, userHandler.Me)

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.POST("", resumeHandler.UploadResume)
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.GET("/:id/download-link", resumeHandler.GetDownloadLink)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload-url", resumeHandler.GenerateUploadURL)
		}

		portfolioGroup := v1.Group("/portfolio")
		portfolioGroup.Use(authMiddleware)
		{
			portfolioGroup.GET("", portfolioHandler.Preview)
			portfolioGroup.PATCH("/field", portfolioHandler.UpdateField)
			portfolioGroup.PATCH("/profile-picture", portfolioHandler.UpdateProfilePicture)
			portfolioGroup.PATCH("/school-logo", portfolioHandler.UpdateSchoolLogo)
			portfolioGroup.PATCH("/company-logo", portfolioHandler.UpdateCompanyLogo)
			portfolioGroup.PATCH("/project-image", portfolioHandler.UpdateProjectImage)
			portfolioGroup.PATCH("/projects/:index/links", portfolioHandler.UpdateProjectLinks)
		}
	}
}
