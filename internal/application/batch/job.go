// Package batch 顺序驱动同一层级多个生成单元：逐个调用生成 API、合并结果、上报进度，支持取消与两种失败策略
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
)

// Unit 生成单元描述（幕、幕+剧情点、或幕+场景）
type Unit struct {
	ActKey         string
	PlotPointIndex *int
	SceneIndex     *int
	// Path 层级路径，例如 "Act 1 / Plot Point 2 / Scene 1"
	Path  string
	Title string
}

// GenerateFunc 为单元调用生成 API，必须响应 ctx 取消
type GenerateFunc func(ctx context.Context, unit Unit) (any, error)

// MergeFunc 把生成结果合并进状态树，返回进度预览文本。
// 合并必须在单个临界区内完成，失败时不得留下部分修改。
type MergeFunc func(unit Unit, result any) (preview string, err error)

// FinishFunc 批次结束后的收尾（保存、刷新积分），在释放批次锁之前调用
type FinishFunc func(ctx context.Context, outcome *Outcome)

// Job 批量生成任务
type Job struct {
	Level    entity.GenerationLevel
	Label    string
	Units    []Unit
	Policy   entity.FailurePolicy
	Generate GenerateFunc
	Merge    MergeFunc
	Finish   FinishFunc
}

// Progress 单元完成进度
type Progress struct {
	BatchID       string                 `json:"batchId"`
	Level         entity.GenerationLevel `json:"level"`
	UnitOrdinal   int                    `json:"unitOrdinal"`
	TotalUnits    int                    `json:"totalUnits"`
	HierarchyPath string                 `json:"hierarchyPath"`
	Title         string                 `json:"title,omitempty"`
	Preview       string                 `json:"preview,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// Outcome 批次结果
type Outcome struct {
	BatchID   string                 `json:"batchId"`
	Level     entity.GenerationLevel `json:"level"`
	Label     string                 `json:"label"`
	Status    entity.BatchStatus     `json:"status"`
	Total     int                    `json:"total"`
	Succeeded int                    `json:"succeeded"`
	Failures  []entity.UnitFailure   `json:"failures,omitempty"`
	// Err 仅在 aborted 时非空，说明导致终止的单元
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Summary 面向用户的汇总信息
func (o *Outcome) Summary() string {
	switch o.Status {
	case entity.BatchStatusCancelled:
		return fmt.Sprintf("%s cancelled after %d/%d", o.Label, o.Succeeded, o.Total)
	case entity.BatchStatusAborted:
		if o.Err != nil {
			return apperrors.AsAppError(o.Err).Message
		}
		return fmt.Sprintf("%s aborted after %d/%d", o.Label, o.Succeeded, o.Total)
	}
	if len(o.Failures) == 0 {
		return fmt.Sprintf("%s: %d/%d generated", o.Label, o.Succeeded, o.Total)
	}
	titles := make([]string, len(o.Failures))
	for i, f := range o.Failures {
		titles[i] = fmt.Sprintf("%q", f.Title)
	}
	return fmt.Sprintf("%s: %d/%d generated, failed: %s", o.Label, o.Succeeded, o.Total, strings.Join(titles, ", "))
}

// levelNoun 错误消息中使用的层级名称
func levelNoun(level entity.GenerationLevel) string {
	switch level {
	case entity.LevelStructure:
		return "structure"
	case entity.LevelPlotPoints:
		return "plot points"
	case entity.LevelScenes:
		return "scenes"
	case entity.LevelDialogue:
		return "dialogue"
	}
	return "content"
}

const previewLimit = 160

func truncatePreview(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= previewLimit {
		return s
	}
	return string(r[:previewLimit]) + "…"
}
