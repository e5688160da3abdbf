package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePortfolioExport = "portfolio:export"
)

// PortfolioExportPayload 描述导出作品集 PDF 所需的最小信息。
type PortfolioExportPayload struct {
	ProfileID     uint   `json:"profile_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPortfolioExportTask 构造一个新的作品集导出任务。
func NewPortfolioExportTask(profileID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PortfolioExportPayload{
		ProfileID:     profileID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePortfolioExport, payload), nil
}
