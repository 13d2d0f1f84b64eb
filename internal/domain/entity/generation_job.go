package entity

import "time"

// GenerationLevel 生成层级
type GenerationLevel string

const (
	LevelStructure  GenerationLevel = "structure"
	LevelPlotPoints GenerationLevel = "plot_points"
	LevelScenes     GenerationLevel = "scenes"
	LevelDialogue   GenerationLevel = "dialogue"
)

// BatchStatus 批量生成状态
type BatchStatus string

const (
	BatchStatusIdle      BatchStatus = "idle"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusCancelled BatchStatus = "cancelled"
	BatchStatusAborted   BatchStatus = "aborted"
)

// IsTerminal 检查是否为终态
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusCancelled || s == BatchStatusAborted
}

// FailurePolicy 单元失败处理策略
type FailurePolicy string

const (
	// PolicyAbort 首个失败即终止整个批次
	PolicyAbort FailurePolicy = "abort"
	// PolicyCollect 记录失败并继续，结束时汇总
	PolicyCollect FailurePolicy = "collect"
)

// UnitFailure 单元失败记录
type UnitFailure struct {
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error"`
}

// BatchRecord 批次快照（对外展示用）
type BatchRecord struct {
	ID          string          `json:"id"`
	Level       GenerationLevel `json:"level"`
	Label       string          `json:"label"`
	Policy      FailurePolicy   `json:"policy"`
	Status      BatchStatus     `json:"status"`
	TotalUnits  int             `json:"totalUnits"`
	Processed   int             `json:"processed"`
	Succeeded   int             `json:"succeeded"`
	Failures    []UnitFailure   `json:"failures,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
