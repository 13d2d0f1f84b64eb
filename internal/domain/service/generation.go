// Package service 定义领域服务端口（由基础设施层实现）
package service

import (
	"context"

	"screenplay-wizard/internal/domain/entity"
)

// StructureRequest 生成整体结构请求
type StructureRequest struct {
	ProjectPath       string              `json:"projectPath"`
	StoryInput        entity.StoryConcept `json:"storyInput"`
	Template          *entity.Template    `json:"template,omitempty"`
	Model             string              `json:"model"`
	CreativeDirection string              `json:"creativeDirection,omitempty"`
}

// GeneratedAct 结构生成返回的一幕
type GeneratedAct struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PlotPoints  int    `json:"plotPoints,omitempty"`
}

// StructureResult 结构生成结果（幕按返回顺序排列）
type StructureResult struct {
	Acts []GeneratedAct `json:"acts"`
}

// ActPlotPoints 已生成的前序幕剧情点（作为上下文）
type ActPlotPoints struct {
	ActKey     string   `json:"actKey"`
	PlotPoints []string `json:"plotPoints"`
}

// PlotPointsRequest 生成某一幕剧情点请求
type PlotPointsRequest struct {
	ProjectPath       string              `json:"projectPath"`
	ActKey            string              `json:"actKey"`
	Act               entity.Act          `json:"act"`
	StoryInput        entity.StoryConcept `json:"storyInput"`
	DesiredCount      int                 `json:"desiredCount"`
	PreviousActs      []ActPlotPoints     `json:"previousActs,omitempty"`
	Model             string              `json:"model"`
	CreativeDirection string              `json:"creativeDirection,omitempty"`
}

// ScenesForPlotPointRequest 为单个剧情点生成场景请求
type ScenesForPlotPointRequest struct {
	ProjectPath       string              `json:"projectPath"`
	ActKey            string              `json:"actKey"`
	PlotPointIndex    int                 `json:"plotPointIndex"`
	PlotPoint         string              `json:"plotPoint"`
	StoryInput        entity.StoryConcept `json:"storyInput"`
	Model             string              `json:"model"`
	CreativeDirection string              `json:"creativeDirection,omitempty"`
}

// ScenesForActRequest 为整幕生成场景请求
type ScenesForActRequest struct {
	ProjectPath        string              `json:"projectPath"`
	ActKey             string              `json:"actKey"`
	Act                entity.Act          `json:"act"`
	PlotPoints         []string            `json:"plotPoints"`
	StoryInput         entity.StoryConcept `json:"storyInput"`
	Model              string              `json:"model"`
	CreativeDirections map[int]string      `json:"creativeDirections,omitempty"`
}

// PlotPointScenes 某个剧情点下生成的场景
type PlotPointScenes struct {
	PlotPointIndex int            `json:"plotPointIndex"`
	Scenes         []entity.Scene `json:"scenes"`
}

// DialogueRequest 生成场景对白请求
type DialogueRequest struct {
	ProjectPath       string              `json:"projectPath"`
	SceneID           string              `json:"sceneId"`
	Scene             entity.Scene        `json:"scene"`
	StoryInput        entity.StoryConcept `json:"storyInput"`
	Model             string              `json:"model"`
	CreativeDirection string              `json:"creativeDirection,omitempty"`
}

// GenerationService 生成 API 端口，所有方法都必须响应 ctx 取消
type GenerationService interface {
	GenerateStructure(ctx context.Context, req StructureRequest) (*StructureResult, error)
	GeneratePlotPoints(ctx context.Context, req PlotPointsRequest) ([]string, error)
	GenerateScenesForPlotPoint(ctx context.Context, req ScenesForPlotPointRequest) ([]entity.Scene, error)
	GenerateScenesForAct(ctx context.Context, req ScenesForActRequest) ([]PlotPointScenes, error)
	GenerateDialogue(ctx context.Context, req DialogueRequest) (string, error)
}
