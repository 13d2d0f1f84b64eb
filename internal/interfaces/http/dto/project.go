package dto

import (
	"screenplay-wizard/internal/application/batch"
	"screenplay-wizard/internal/domain/entity"
)

// ProjectPathResponse 返回 projectPath
type ProjectPathResponse struct {
	ProjectPath string `json:"projectPath"`
}

// ProjectListResponse 项目列表
type ProjectListResponse struct {
	Projects []entity.ProjectSummary `json:"projects"`
}

// TargetsResponse 各幕剧情点目标
type TargetsResponse struct {
	Targets map[string]int `json:"targets"`
}

// BatchAcceptedResponse 已启动的批次
type BatchAcceptedResponse struct {
	BatchID    string                 `json:"batchId"`
	Level      entity.GenerationLevel `json:"level"`
	Label      string                 `json:"label"`
	TotalUnits int                    `json:"totalUnits"`
}

// ToBatchAccepted 由批次句柄构造响应
func ToBatchAccepted(h *batch.Handle) BatchAcceptedResponse {
	rec := h.Record()
	return BatchAcceptedResponse{
		BatchID:    rec.ID,
		Level:      rec.Level,
		Label:      rec.Label,
		TotalUnits: rec.TotalUnits,
	}
}

// BatchesResponse 当前与最近批次
type BatchesResponse struct {
	Current *entity.BatchRecord `json:"current,omitempty"`
	Last    *entity.BatchRecord `json:"last,omitempty"`
}

// CancelResponse 取消结果
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}
