package wizard

import (
	"context"
	"strings"

	"screenplay-wizard/internal/application/consistency"
	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
)

// NewProject 以故事概念创建新项目并设为活动项目
func (c *Coordinator) NewProject(ctx context.Context, concept entity.StoryConcept) (*entity.ProjectState, error) {
	concept.Title = strings.TrimSpace(concept.Title)
	if concept.Title == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("title is required")
	}
	if err := c.requireIdle(); err != nil {
		return nil, err
	}
	if err := c.saver.Flush(ctx); err != nil {
		return nil, err
	}

	state := entity.NewProjectState(c.cfg.Username)
	state.ProjectPath = entity.NewProjectPath(concept.Title)
	state.StoryInput = concept
	state.SelectedModel = c.cfg.DefaultModel
	state.TotalPlotPoints = c.cfg.DefaultPlotPointBudget

	c.replace(ctx, state, "project_created")
	c.saver.Schedule()
	logger.Info(ctx, "project created", "project_path", state.ProjectPath, "title", concept.Title)
	return c.tree.Snapshot(), nil
}

// UpdateStory 修改故事概念
func (c *Coordinator) UpdateStory(ctx context.Context, concept entity.StoryConcept) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	concept.Title = strings.TrimSpace(concept.Title)
	if concept.Title == "" {
		return apperrors.ErrInvalidParam.WithDetail("title is required")
	}
	if err := c.tree.Update(func(state *entity.ProjectState) error {
		state.StoryInput = concept
		return nil
	}); err != nil {
		return err
	}
	c.changed(ctx, "story_updated")
	return nil
}

// SelectTemplate 选择结构模板；已有结构保留，时间线顺序随模板变化
func (c *Coordinator) SelectTemplate(ctx context.Context, templateID string) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	if c.deps.Templates == nil {
		return apperrors.ErrTemplateMissing.WithDetail(templateID)
	}
	tpl, err := c.deps.Templates.Get(templateID)
	if err != nil {
		return err
	}
	if err := c.tree.Update(func(state *entity.ProjectState) error {
		state.SelectedTemplate = tpl.ID
		state.Template = tpl
		return nil
	}); err != nil {
		return err
	}
	c.changed(ctx, "template_selected")
	return nil
}

// SetModel 选择生成模型
func (c *Coordinator) SetModel(ctx context.Context, model string) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return apperrors.ErrInvalidParam.WithDetail("model is required")
	}
	if err := c.tree.Update(func(state *entity.ProjectState) error {
		state.SelectedModel = model
		return nil
	}); err != nil {
		return err
	}
	c.changed(ctx, "model_selected")
	return nil
}

// GoToStep 切换向导步骤；向前只能进入前置数据已具备的步骤
func (c *Coordinator) GoToStep(ctx context.Context, step entity.WizardStep) error {
	if !step.Valid() {
		return apperrors.ErrInvalidParam.WithDetail("unknown step: " + string(step))
	}
	if err := c.requireProject(); err != nil {
		return err
	}
	if !c.sync.CanNavigate(step) {
		return apperrors.ErrStepLocked.WithDetail(string(step))
	}
	if err := c.tree.Update(func(state *entity.ProjectState) error {
		state.CurrentStep = step
		return nil
	}); err != nil {
		return err
	}
	c.changed(ctx, "step_changed")
	return nil
}

// Save 立即保存活动项目
func (c *Coordinator) Save(ctx context.Context) error {
	if err := c.requireProject(); err != nil {
		return err
	}
	c.saver.Schedule()
	return c.saver.Flush(ctx)
}

// Load 从存储加载项目并设为活动项目
func (c *Coordinator) Load(ctx context.Context, projectPath string) (*entity.ProjectState, error) {
	if projectPath == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("projectPath is required")
	}
	if err := c.requireIdle(); err != nil {
		return nil, err
	}
	if err := c.saver.Flush(ctx); err != nil {
		return nil, err
	}
	state, err := c.deps.Store.Load(ctx, c.cfg.Username, projectPath)
	if err != nil {
		return nil, err
	}
	c.replace(ctx, state, "project_loaded")
	logger.Info(ctx, "project loaded", "project_path", projectPath)
	return c.tree.Snapshot(), nil
}

// List 列出用户项目
func (c *Coordinator) List(ctx context.Context) ([]entity.ProjectSummary, error) {
	return c.deps.Store.List(ctx, c.cfg.Username)
}

// Delete 删除项目；删除的是活动项目时重置为空项目
func (c *Coordinator) Delete(ctx context.Context, projectPath string) error {
	if projectPath == "" {
		return apperrors.ErrInvalidParam.WithDetail("projectPath is required")
	}
	active := c.projectPath() == projectPath
	if active {
		if err := c.requireIdle(); err != nil {
			return err
		}
	}
	if err := c.deps.Store.Delete(ctx, c.cfg.Username, projectPath); err != nil {
		return err
	}
	if active {
		c.reset(ctx)
	}
	logger.Info(ctx, "project deleted", "project_path", projectPath)
	return nil
}

// Duplicate 复制项目，返回新 projectPath；活动项目先保存再复制
func (c *Coordinator) Duplicate(ctx context.Context, sourcePath, newTitle string) (string, error) {
	if sourcePath == "" {
		return "", apperrors.ErrInvalidParam.WithDetail("sourcePath is required")
	}
	if c.projectPath() == sourcePath {
		if err := c.saver.Flush(ctx); err != nil {
			return "", err
		}
	}
	return c.deps.Store.Duplicate(ctx, c.cfg.Username, sourcePath, strings.TrimSpace(newTitle))
}

// Reset 丢弃活动项目，回到空状态
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.requireIdle(); err != nil {
		return err
	}
	if err := c.saver.Flush(ctx); err != nil {
		logger.Warn(ctx, "failed to save project before reset", "error", err.Error())
	}
	c.reset(ctx)
	return nil
}

func (c *Coordinator) reset(ctx context.Context) {
	c.replace(ctx, entity.NewProjectState(c.cfg.Username), "project_reset")
	if c.deps.Mirror != nil {
		if err := c.deps.Mirror.Clear(ctx, c.cfg.Username); err != nil {
			logger.Warn(ctx, "failed to clear mirror", "error", err.Error())
		}
	}
}

// Restore 启动时从镜像恢复：镜像指向已保存项目时以存储为准重新加载；
// 重新加载失败则清除镜像并以空项目启动。返回恢复的 projectPath。
func (c *Coordinator) Restore(ctx context.Context) (string, error) {
	if c.deps.Mirror == nil {
		return "", nil
	}
	snapshot, err := c.deps.Mirror.Get(ctx, c.cfg.Username)
	if err != nil {
		return "", err
	}
	if snapshot == nil || snapshot.ProjectPath == "" {
		return "", nil
	}

	state, err := c.deps.Store.Load(ctx, c.cfg.Username, snapshot.ProjectPath)
	if err != nil {
		logger.Warn(ctx, "failed to reload mirrored project, clearing mirror",
			"project_path", snapshot.ProjectPath,
			"error", err.Error(),
		)
		c.reset(ctx)
		return "", err
	}
	c.replace(ctx, state, "project_restored")
	logger.Info(ctx, "project restored", "project_path", state.ProjectPath)
	return state.ProjectPath, nil
}

// SetPlotPointBudget 设置剧情点总数并重新分配非手动幕的目标
func (c *Coordinator) SetPlotPointBudget(ctx context.Context, total int) (map[string]int, error) {
	if total < 1 {
		return nil, apperrors.ErrInvalidParam.WithDetail("plot point budget must be at least 1")
	}
	if err := c.requireProject(); err != nil {
		return nil, err
	}
	var targets map[string]int
	if err := c.tree.Update(func(state *entity.ProjectState) error {
		state.TotalPlotPoints = total
		targets = rebalance(state, c.cfg.DefaultPlotPointBudget)
		return nil
	}); err != nil {
		return nil, err
	}
	c.changed(ctx, "budget_changed")
	return targets, nil
}

// SetActPlotPointTarget 手动设置单幕剧情点目标；target <= 0 取消手动设置
func (c *Coordinator) SetActPlotPointTarget(ctx context.Context, actKey string, target int) (map[string]int, error) {
	if err := c.requireProject(); err != nil {
		return nil, err
	}
	var targets map[string]int
	if err := c.tree.Update(func(state *entity.ProjectState) error {
		if !state.HasAct(actKey) {
			return apperrors.ErrActNotFound.WithDetail(actKey)
		}
		if target > 0 {
			act := state.Structure[actKey]
			act.PlotPointsTarget = target
			state.Structure[actKey] = act
			state.ManualPlotPointTargets[actKey] = true
		} else {
			delete(state.ManualPlotPointTargets, actKey)
		}
		targets = rebalance(state, c.cfg.DefaultPlotPointBudget)
		return nil
	}); err != nil {
		return nil, err
	}
	c.changed(ctx, "act_target_changed")
	return targets, nil
}

// rebalance 按当前总数重新分配，写回各幕目标
func rebalance(state *entity.ProjectState, fallbackTotal int) map[string]int {
	total := state.TotalPlotPoints
	if total <= 0 {
		total = fallbackTotal
	}
	targets := consistency.DistributePlotPoints(consistency.BudgetActs(state), total)
	for key, n := range targets {
		act := state.Structure[key]
		act.PlotPointsTarget = n
		state.Structure[key] = act
	}
	return targets
}
