package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"phPortfolio/internal/api/middleware"
	"phPortfolio/internal/profile"
)

// SearchHandler 负责档案检索。
type SearchHandler struct {
	store  *profile.Store
	logger *slog.Logger
}

// NewSearchHandler 构造 SearchHandler。
func NewSearchHandler(store *profile.Store, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{store: store, logger: logger}
}

// Search 按 name/location/skill/email 过滤档案，偏移式分页。
// 空的过滤条件整体省略，提供的条件之间是 AND 关系。
func (h *SearchHandler) Search(c *gin.Context) {
	query := profile.SearchQuery{
		Name:     c.Query("name"),
		Location: c.Query("location"),
		Skill:    c.Query("skill"),
		Email:    c.Query("email"),
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 0),
		SortBy:   c.Query("sortBy"),
		Order:    c.Query("order"),
	}

	result, err := h.store.Search(c.Request.Context(), query)
	if err != nil {
		middleware.LoggerFromContext(c).Error("search profiles failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
