package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
)

// StoryRequest 故事概念
type StoryRequest struct {
	Title      string   `json:"title" binding:"required"`
	Logline    string   `json:"logline"`
	Characters string   `json:"characters"`
	Genre      string   `json:"genre"`
	Tone       string   `json:"tone"`
	Influences []string `json:"influences"`
}

// ToConcept 转换为领域对象
func (r *StoryRequest) ToConcept() entity.StoryConcept {
	return entity.StoryConcept{
		Title:      r.Title,
		Logline:    r.Logline,
		Characters: r.Characters,
		Genre:      r.Genre,
		Tone:       r.Tone,
		Influences: r.Influences,
	}
}

// SelectTemplateRequest 选择模板
type SelectTemplateRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
}

// SelectModelRequest 选择模型
type SelectModelRequest struct {
	Model string `json:"model" binding:"required"`
}

// GoToStepRequest 切换向导步骤
type GoToStepRequest struct {
	Step string `json:"step" binding:"required"`
}

// LoadProjectRequest 加载项目
type LoadProjectRequest struct {
	ProjectPath string `json:"projectPath" binding:"required"`
}

// DuplicateProjectRequest 复制项目
type DuplicateProjectRequest struct {
	NewTitle string `json:"newTitle"`
}

// BudgetRequest 剧情点总数
type BudgetRequest struct {
	Total int `json:"total" binding:"required"`
}

// ActTargetRequest 单幕剧情点目标，0 表示取消手动设置
type ActTargetRequest struct {
	Target int `json:"target"`
}

// EditActRequest 修改幕
type EditActRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ContentRequest 修改剧情点或对白文本
type ContentRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditSceneRequest 修改场景
type EditSceneRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	TimeOfDay      string `json:"time_of_day"`
	PlotPointIndex *int   `json:"plotPointIndex"`
}

// ToScene 转换为领域对象
func (r *EditSceneRequest) ToScene() entity.Scene {
	return entity.Scene{
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		TimeOfDay:      r.TimeOfDay,
		PlotPointIndex: r.PlotPointIndex,
	}
}

// CreativeDirectionRequest 创作方向，空文本表示清除
type CreativeDirectionRequest struct {
	Level string `json:"level" binding:"required"`
	Key   string `json:"key" binding:"required"`
	Text  string `json:"text"`
}

// GenerateStructureRequest 生成结构
type GenerateStructureRequest struct {
	CreativeDirection string `json:"creativeDirection"`
}

// BindIndex 从 URI 绑定非负下标
func BindIndex(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		return 0, apperrors.ErrInvalidParam.WithDetail(name + " must be a non-negative integer")
	}
	return v, nil
}

// BindActKey 从 URI 绑定幕 key
func BindActKey(c *gin.Context) string {
	return c.Param("act")
}

// BindProjectPath 从 URI 绑定 projectPath
func BindProjectPath(c *gin.Context) string {
	return c.Param("path")
}

// BindSince 解析 SSE 重放起点，缺省为 0
func BindSince(c *gin.Context) (uint64, error) {
	raw := c.Query("since")
	if raw == "" {
		raw = c.GetHeader("Last-Event-ID")
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.ErrInvalidParam.WithDetail("since must be an unsigned integer")
	}
	return v, nil
}
