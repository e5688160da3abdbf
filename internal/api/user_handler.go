package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phPortfolio/internal/api/middleware"
	"phPortfolio/internal/database"
	"phPortfolio/internal/profile"
	"phPortfolio/internal/storage"
)

// UserHandler 负责账号信息与账号删除。
type UserHandler struct {
	db      *gorm.DB
	store   *profile.Store
	storage *storage.Client
	logger  *slog.Logger
}

// NewUserHandler 构造 UserHandler。
func NewUserHandler(db *gorm.DB, store *profile.Store, storageClient *storage.Client, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		db:      db,
		store:   store,
		storage: storageClient,
		logger:  logger,
	}
}

type userResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Me 返回当前登录用户的基本信息。
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		NotFound(c, "user not found")
		return
	}

	c.JSON(http.StatusOK, userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// DeleteAccount 删除账号及其全部档案。
// 头像与导出产物逐档案尽力清理，之后整前缀兜底清一遍。
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	records, err := h.store.ListByOwner(ctx, userID)
	if err != nil {
		logger.Error("list profiles for account deletion failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}
	for _, record := range records {
		if _, err := h.store.Delete(ctx, record.ID, userID); err != nil {
			logger.Error("delete profile during account deletion failed",
				slog.Uint64("profile_id", uint64(record.ID)),
				slog.Any("error", err),
			)
			RespondError(c, err)
			return
		}
	}

	if h.storage != nil {
		prefix := fmt.Sprintf("generated-portfolios/%d/", userID)
		if err := h.storage.DeletePrefix(ctx, prefix); err != nil {
			logger.Warn("cleanup export artifacts failed", slog.Any("error", err))
		}
	}

	if err := h.db.WithContext(ctx).Delete(&database.User{}, userID).Error; err != nil {
		logger.Error("delete user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("account deleted")
	c.Status(http.StatusNoContent)
}
