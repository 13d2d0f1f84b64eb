package handler

import (
	"github.com/gin-gonic/gin"

	"screenplay-wizard/internal/application/wizard"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/interfaces/http/dto"
)

// ProjectHandler 活动项目与项目库处理器
type ProjectHandler struct {
	wizard *wizard.Coordinator
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(w *wizard.Coordinator) *ProjectHandler {
	return &ProjectHandler{wizard: w}
}

// ListProjects 列出已保存项目
// @Summary 列出项目
// @Tags Projects
// @Produce json
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	list, err := h.wizard.List(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list projects", err)
		return
	}
	if list == nil {
		list = []entity.ProjectSummary{}
	}
	dto.Success(c, dto.ProjectListResponse{Projects: list})
}

// CreateProject 以故事概念创建新项目并设为活动项目
// @Summary 新建项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.StoryRequest true "故事概念"
// @Success 201 {object} dto.Response[entity.ProjectState]
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.StoryRequest
	if !bindJSON(c, &req) {
		return
	}
	state, err := h.wizard.NewProject(c.Request.Context(), req.ToConcept())
	if err != nil {
		respondError(c, "failed to create project", err)
		return
	}
	dto.Created(c, state)
}

// LoadProject 加载已保存项目
// @Router /v1/projects/load [post]
func (h *ProjectHandler) LoadProject(c *gin.Context) {
	var req dto.LoadProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	state, err := h.wizard.Load(c.Request.Context(), req.ProjectPath)
	if err != nil {
		respondError(c, "failed to load project", err)
		return
	}
	dto.Success(c, state)
}

// DeleteProject 删除项目
// @Router /v1/projects/{path} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.wizard.Delete(c.Request.Context(), dto.BindProjectPath(c)); err != nil {
		respondError(c, "failed to delete project", err)
		return
	}
	dto.NoContent(c)
}

// DuplicateProject 复制项目
// @Router /v1/projects/{path}/duplicate [post]
func (h *ProjectHandler) DuplicateProject(c *gin.Context) {
	var req dto.DuplicateProjectRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	path, err := h.wizard.Duplicate(c.Request.Context(), dto.BindProjectPath(c), req.NewTitle)
	if err != nil {
		respondError(c, "failed to duplicate project", err)
		return
	}
	dto.Created(c, dto.ProjectPathResponse{ProjectPath: path})
}

// GetCurrent 返回活动项目状态
// @Router /v1/project [get]
func (h *ProjectHandler) GetCurrent(c *gin.Context) {
	dto.Success(c, h.wizard.Snapshot())
}

// ResetCurrent 丢弃活动项目
// @Router /v1/project [delete]
func (h *ProjectHandler) ResetCurrent(c *gin.Context) {
	if err := h.wizard.Reset(c.Request.Context()); err != nil {
		respondError(c, "failed to reset project", err)
		return
	}
	dto.NoContent(c)
}

// SaveCurrent 立即保存活动项目
// @Router /v1/project/save [post]
func (h *ProjectHandler) SaveCurrent(c *gin.Context) {
	if err := h.wizard.Save(c.Request.Context()); err != nil {
		respondError(c, "failed to save project", err)
		return
	}
	dto.NoContent(c)
}

// UpdateStory 修改故事概念
// @Router /v1/project/story [put]
func (h *ProjectHandler) UpdateStory(c *gin.Context) {
	var req dto.StoryRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wizard.UpdateStory(c.Request.Context(), req.ToConcept()); err != nil {
		respondError(c, "failed to update story", err)
		return
	}
	dto.NoContent(c)
}

// SelectTemplate 选择结构模板
// @Router /v1/project/template [put]
func (h *ProjectHandler) SelectTemplate(c *gin.Context) {
	var req dto.SelectTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wizard.SelectTemplate(c.Request.Context(), req.TemplateID); err != nil {
		respondError(c, "failed to select template", err)
		return
	}
	dto.NoContent(c)
}

// SelectModel 选择生成模型
// @Router /v1/project/model [put]
func (h *ProjectHandler) SelectModel(c *gin.Context) {
	var req dto.SelectModelRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wizard.SetModel(c.Request.Context(), req.Model); err != nil {
		respondError(c, "failed to select model", err)
		return
	}
	dto.NoContent(c)
}

// GoToStep 切换向导步骤
// @Router /v1/project/step [put]
func (h *ProjectHandler) GoToStep(c *gin.Context) {
	var req dto.GoToStepRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wizard.GoToStep(c.Request.Context(), entity.WizardStep(req.Step)); err != nil {
		respondError(c, "failed to change step", err)
		return
	}
	dto.NoContent(c)
}

// SetBudget 设置剧情点总数
// @Router /v1/project/budget [put]
func (h *ProjectHandler) SetBudget(c *gin.Context) {
	var req dto.BudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	targets, err := h.wizard.SetPlotPointBudget(c.Request.Context(), req.Total)
	if err != nil {
		respondError(c, "failed to set plot point budget", err)
		return
	}
	dto.Success(c, dto.TargetsResponse{Targets: targets})
}

// SetActTarget 设置单幕剧情点目标
// @Router /v1/project/acts/{act}/target [put]
func (h *ProjectHandler) SetActTarget(c *gin.Context) {
	var req dto.ActTargetRequest
	if !bindJSON(c, &req) {
		return
	}
	targets, err := h.wizard.SetActPlotPointTarget(c.Request.Context(), dto.BindActKey(c), req.Target)
	if err != nil {
		respondError(c, "failed to set act target", err)
		return
	}
	dto.Success(c, dto.TargetsResponse{Targets: targets})
}

// GetView 返回派生视图（编号、按钮状态、步骤可达性）
// @Router /v1/project/view [get]
func (h *ProjectHandler) GetView(c *gin.Context) {
	dto.Success(c, h.wizard.View())
}

// GetDiagnostics 返回悬空引用与保存状态
// @Router /v1/project/diagnostics [get]
func (h *ProjectHandler) GetDiagnostics(c *gin.Context) {
	dto.Success(c, h.wizard.Diagnostics())
}

// ExportScript 导出剧本；format=text 时返回纯文本
// @Router /v1/project/script [get]
func (h *ProjectHandler) ExportScript(c *gin.Context) {
	script, err := h.wizard.ExportScript(c.Request.Context())
	if err != nil {
		respondError(c, "failed to export script", err)
		return
	}
	if c.Query("format") == "text" {
		c.Header("Content-Disposition", `attachment; filename="`+entity.Slugify(script.Title)+`.txt"`)
		c.String(200, script.Text)
		return
	}
	dto.Success(c, script)
}

// ListTemplates 列出结构模板
// @Router /v1/templates [get]
func (h *ProjectHandler) ListTemplates(c *gin.Context) {
	list := h.wizard.Templates()
	if list == nil {
		list = []*entity.Template{}
	}
	dto.Success(c, list)
}
