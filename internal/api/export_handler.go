package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"phPortfolio/internal/api/middleware"
	"phPortfolio/internal/pdf"
	"phPortfolio/internal/profile"
	"phPortfolio/internal/render"
	"phPortfolio/internal/storage"
	"phPortfolio/internal/tasks"
)

// ExportHandler 负责作品集导出：同步 PDF 下载、异步导出入队与产物下载链接。
type ExportHandler struct {
	store       *profile.Store
	storage     *storage.Client
	asynqClient *asynq.Client
	logger      *slog.Logger
}

// NewExportHandler 构造 ExportHandler。
func NewExportHandler(store *profile.Store, storageClient *storage.Client, asynqClient *asynq.Client, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		store:       store,
		storage:     storageClient,
		asynqClient: asynqClient,
		logger:      logger,
	}
}

// DownloadResume 同步渲染 PDF 并以附件流式返回。
func (h *ExportHandler) DownloadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	record, err := h.store.Get(c.Request.Context(), profileID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if record.OwnerID != userID {
		Forbidden(c, "not the profile owner")
		return
	}

	logger := middleware.LoggerFromContext(c)

	htmlContent, err := render.Resume(record.Document)
	if err != nil {
		logger.Error("render resume failed", slog.Any("error", err))
		Internal(c, "failed to render resume")
		return
	}

	pdfBytes, err := pdf.GenerateFromHTML(c.Request.Context(), htmlContent)
	if err != nil {
		logger.Error("generate pdf failed", slog.Any("error", err))
		Internal(c, "failed to generate pdf")
		return
	}

	fileName := record.Document.Personal.Name
	if fileName == "" {
		fileName = fmt.Sprintf("profile-%d", record.ID)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// PortfolioPage 返回规范化后的作品集视图模型。公开路径，供前端页面消费。
func (h *ExportHandler) PortfolioPage(c *gin.Context) {
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	record, err := h.store.Get(c.Request.Context(), profileID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       record.ID,
		"document": render.ViewModel(record.Document),
	})
}

// PrintableView 返回可打印的作品集 HTML 页面。公开路径。
func (h *ExportHandler) PrintableView(c *gin.Context) {
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	record, err := h.store.Get(c.Request.Context(), profileID)
	if err != nil {
		RespondError(c, err)
		return
	}

	htmlContent, err := render.Printable(record.Document)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render printable page failed", slog.Any("error", err))
		Internal(c, "failed to render page")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(htmlContent))
}

// EnqueueExport 将导出任务入队并立即返回 202。
func (h *ExportHandler) EnqueueExport(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	record, err := h.store.Get(c.Request.Context(), profileID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if record.OwnerID != userID {
		Forbidden(c, "not the profile owner")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewPortfolioExportTask(record.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "export request accepted",
		"task_id": info.ID,
	})
}

// GetDownloadLink 生成最近一次异步导出产物的预签名下载链接。
func (h *ExportHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	record, err := h.store.Get(c.Request.Context(), profileID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if record.OwnerID != userID {
		Forbidden(c, "not the profile owner")
		return
	}

	if record.ExportKey == "" {
		Conflict(c, "export not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), record.ExportKey, 5*time.Minute)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
