package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeExtract = "resume:extract"
)

// ResumeExtractPayload 描述一次字段提取任务所需的最小信息。
type ResumeExtractPayload struct {
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeExtractTask 构造一个新的简历字段提取任务。
func NewResumeExtractTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeExtractPayload{
		ResumeID:      id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeExtract, payload), nil
}
