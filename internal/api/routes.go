package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phPortfolio/internal/api/middleware"
	"phPortfolio/internal/auth"
	"phPortfolio/internal/config"
	"phPortfolio/internal/profile"
	"phPortfolio/internal/storage"
)

// Dependencies 汇总路由层需要的全部协作方。
type Dependencies struct {
	DB          *gorm.DB
	Store       *profile.Store
	AsynqClient *asynq.Client
	AuthService *auth.AuthService
	RedisClient *redis.Client
	Logger      *slog.Logger
	Storage     *storage.Client
	Config      *config.Config
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	profileHandler := NewProfileHandler(deps.Store, deps.Logger, cfg.Clamd.Addr)
	searchHandler := NewSearchHandler(deps.Store, deps.Logger)
	exportHandler := NewExportHandler(deps.Store, deps.Storage, deps.AsynqClient, deps.Logger)
	userHandler := NewUserHandler(deps.DB, deps.Store, deps.Storage, deps.Logger)
	authHandler := NewAuthHandler(
		deps.DB,
		deps.AuthService,
		deps.RedisClient,
		deps.Logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		cfg.Auth.LoginLockTTL,
		cfg.API.CookieDomain,
	)
	wsHandler := NewWsHandler(deps.RedisClient, deps.AuthService, deps.Logger, cfg.API.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(deps.AuthService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		userGroup := v1.Group("/users")
		userGroup.Use(authMiddleware)
		{
			userGroup.GET("/me", userHandler.Me)
			userGroup.DELETE("/me", userHandler.DeleteAccount)
		}

		// 公开读取：作品集页面与打印视图按 URL 可见
		v1.GET("/profiles/search", searchHandler.Search)
		v1.GET("/profiles/:id", profileHandler.GetProfile)
		v1.GET("/profiles/:id/page", exportHandler.PortfolioPage)
		v1.GET("/profiles/:id/printable", exportHandler.PrintableView)

		profileGroup := v1.Group("/profiles")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.POST("", profileHandler.CreateProfile)
			profileGroup.GET("", profileHandler.ListProfiles)
			profileGroup.PATCH("/:id", profileHandler.UpdateProfile)
			profileGroup.DELETE("/:id", profileHandler.DeleteProfile)
			profileGroup.DELETE("/:id/fields", profileHandler.DeleteField)
			profileGroup.PUT("/:id/avatar", profileHandler.UploadAvatar)
			profileGroup.DELETE("/:id/avatar", profileHandler.RemoveAvatar)
			profileGroup.GET("/:id/download", exportHandler.DownloadResume)
			profileGroup.POST("/:id/export", exportHandler.EnqueueExport)
			profileGroup.GET("/:id/download-link", exportHandler.GetDownloadLink)
		}
	}
}
