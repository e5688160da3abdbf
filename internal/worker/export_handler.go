package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"phPortfolio/internal/apperror"
	"phPortfolio/internal/errcode"
	"phPortfolio/internal/pdf"
	"phPortfolio/internal/profile"
	"phPortfolio/internal/render"
	"phPortfolio/internal/storage"
	"phPortfolio/internal/tasks"
)

// 导出状态常量，与 Profile.ExportStatus 列取值一致。
const (
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// ExportTaskHandler 负责消费作品集导出任务：
// 渲染简历 HTML -> 无头浏览器导出 PDF -> 上传 MinIO -> Redis 通知。
type ExportTaskHandler struct {
	store       *profile.Store
	storage     *storage.Client
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(
	store *profile.Store,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ExportTaskHandler {
	return &ExportTaskHandler{
		store:       store,
		storage:     storageClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PortfolioExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("profile_id", int(payload.ProfileID)),
	)
	log.Info("Starting portfolio export task...")

	record, err := h.store.Get(ctx, payload.ProfileID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			log.Warn("profile not found, skipping task")
			return nil
		}
		log.Error("query profile failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(record.OwnerID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		if err := h.store.SetExportResult(ctx, record.ID, "", ExportStatusFailed); err != nil {
			log.Error("mark export failed", slog.Any("error", err))
		}
		notify := ExportNotifyMessage{
			Status:        "error",
			ProfileID:     record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishExportNotify(ctx, record.OwnerID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	htmlContent, err := render.Resume(record.Document)
	if err != nil {
		log.Error("render resume html failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := pdf.GenerateFromHTML(ctx, htmlContent)
	if err != nil {
		log.Error("generate pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("generated-portfolios/%d/%s.pdf", record.OwnerID, uuid.NewString())
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	// 覆盖旧产物引用后尽力删除旧对象，与头像替换同一套次序
	previousKey := record.ExportKey
	if err := h.store.SetExportResult(ctx, record.ID, objectName, ExportStatusCompleted); err != nil {
		log.Error("update profile export result failed", slog.Any("error", err))
		return err
	}
	if previousKey != "" && previousKey != objectName {
		if err := h.storage.DeleteObject(ctx, previousKey); err != nil {
			log.Warn("delete previous export artifact failed",
				slog.String("object_key", previousKey),
				slog.Any("error", err),
			)
		}
	}

	notify := ExportNotifyMessage{
		Status:        "completed",
		ProfileID:     record.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		DownloadKey:   objectName,
	}
	if err := h.publishExportNotify(ctx, record.OwnerID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Portfolio export task completed successfully.")
	return nil
}

func (h *ExportTaskHandler) publishExportNotify(ctx context.Context, userID uint, notify ExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
