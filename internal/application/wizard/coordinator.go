// Package wizard 是向导控制器：持有唯一的活动项目状态，串联状态树、批量驱动器、一致性计算、持久化与事件推送
package wizard

import (
	"context"
	"time"

	"screenplay-wizard/internal/application/batch"
	"screenplay-wizard/internal/application/consistency"
	"screenplay-wizard/internal/application/events"
	"screenplay-wizard/internal/application/storytree"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/repository"
	"screenplay-wizard/internal/domain/service"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
)

const defaultPlotPointBudget = 40

// TemplateSource 模板目录
type TemplateSource interface {
	Get(id string) (*entity.Template, error)
	List() []*entity.Template
}

// Config 控制器配置
type Config struct {
	Username               string
	DefaultModel           string
	UnitCosts              map[entity.GenerationLevel]int64
	AutosaveDebounce       time.Duration
	DefaultPlotPointBudget int
}

// Deps 控制器依赖；Auth 与 Credits 为 nil 时跳过对应检查
type Deps struct {
	Store     repository.ProjectStore
	Mirror    repository.Mirror
	Generator service.GenerationService
	Credits   service.CreditService
	Auth      service.AuthService
	Templates TemplateSource
	Hub       *events.Hub
}

// Coordinator 向导控制器
type Coordinator struct {
	cfg  Config
	deps Deps

	tree   *storytree.Tree
	sync   *consistency.Synchronizer
	driver *batch.Driver
	saver  *autosaver
}

// New 创建控制器，初始为空项目
func New(cfg Config, deps Deps) *Coordinator {
	if cfg.DefaultPlotPointBudget <= 0 {
		cfg.DefaultPlotPointBudget = defaultPlotPointBudget
	}
	if deps.Hub == nil {
		deps.Hub = events.NewHub(events.HubConfig{})
	}
	c := &Coordinator{
		cfg:  cfg,
		deps: deps,
		tree: storytree.New(entity.NewProjectState(cfg.Username)),
	}
	c.sync = consistency.NewSynchronizer(c.tree)
	c.driver = batch.NewDriver(&batchEvents{hub: deps.Hub})
	c.saver = newAutosaver(cfg.AutosaveDebounce, c.persist)
	return c
}

// Tree 返回状态树
func (c *Coordinator) Tree() *storytree.Tree { return c.tree }

// Synchronizer 返回一致性计算器
func (c *Coordinator) Synchronizer() *consistency.Synchronizer { return c.sync }

// Hub 返回事件中心
func (c *Coordinator) Hub() *events.Hub { return c.deps.Hub }

// Templates 返回模板列表
func (c *Coordinator) Templates() []*entity.Template {
	if c.deps.Templates == nil {
		return nil
	}
	return c.deps.Templates.List()
}

// Close 停止自动保存并立即写入未保存的修改
func (c *Coordinator) Close(ctx context.Context) error {
	if h := c.driver.Current(); h != nil {
		h.Cancel()
		h.Wait()
	}
	return c.saver.Flush(ctx)
}

func (c *Coordinator) projectPath() string {
	var path string
	c.tree.Read(func(state *entity.ProjectState) { path = state.ProjectPath })
	return path
}

func (c *Coordinator) requireProject() error {
	if c.projectPath() == "" {
		return apperrors.ErrNoActiveProject
	}
	return nil
}

// requireIdle 替换整个项目状态前不得有批次在运行
func (c *Coordinator) requireIdle() error {
	if h := c.driver.Current(); h != nil {
		return apperrors.ErrBatchRunning.WithDetail(h.ID())
	}
	return nil
}

// changed 每次修改后：立即刷新镜像、调度防抖保存、推送变更事件
func (c *Coordinator) changed(ctx context.Context, reason string) {
	snapshot := c.tree.Snapshot()
	if c.deps.Mirror != nil {
		if err := c.deps.Mirror.Put(ctx, c.cfg.Username, snapshot); err != nil {
			logger.Warn(ctx, "failed to refresh mirror", "error", err.Error())
		}
	}
	if snapshot.ProjectPath != "" {
		c.saver.Schedule()
	}
	c.deps.Hub.Publish(events.Event{
		Type:        events.TypeStateChanged,
		ProjectPath: snapshot.ProjectPath,
		Data:        map[string]string{"reason": reason},
	})
}

// persist 保存当前项目（autosaver 回调）
func (c *Coordinator) persist(ctx context.Context) error {
	snapshot := c.tree.Snapshot()
	if snapshot.ProjectPath == "" {
		return nil
	}
	ctx = logger.WithContext(ctx, logger.ProjectPathKey, snapshot.ProjectPath)
	return c.deps.Store.Save(ctx, c.cfg.Username, snapshot)
}

// replace 整体替换项目状态（新建、加载、恢复、重置）
func (c *Coordinator) replace(ctx context.Context, state *entity.ProjectState, reason string) {
	c.saver.Cancel()
	c.tree.Replace(state)
	snapshot := c.tree.Snapshot()
	if c.deps.Mirror != nil {
		if err := c.deps.Mirror.Put(ctx, c.cfg.Username, snapshot); err != nil {
			logger.Warn(ctx, "failed to refresh mirror", "error", err.Error())
		}
	}
	c.deps.Hub.Publish(events.Event{
		Type:        events.TypeStateChanged,
		ProjectPath: snapshot.ProjectPath,
		Data:        map[string]string{"reason": reason},
	})
}

// View 返回派生视图
func (c *Coordinator) View() *consistency.View {
	return c.sync.View()
}

// Snapshot 返回项目状态副本
func (c *Coordinator) Snapshot() *entity.ProjectState {
	return c.tree.Snapshot()
}

// Diagnostics 诊断信息
type Diagnostics struct {
	ProjectPath        string              `json:"projectPath"`
	OrphanedScenes     []entity.SceneRef   `json:"orphanedScenes"`
	OrphanedDialogue   []string            `json:"orphanedDialogue"`
	PendingSave        bool                `json:"pendingSave"`
	LastSaveError      string              `json:"lastSaveError,omitempty"`
	CurrentBatch       *entity.BatchRecord `json:"currentBatch,omitempty"`
	LastBatch          *entity.BatchRecord `json:"lastBatch,omitempty"`
	ChronologicalOrder []string            `json:"chronologicalOrder"`
}

// Diagnostics 返回悬空引用、保存状态与批次信息
func (c *Coordinator) Diagnostics() *Diagnostics {
	d := &Diagnostics{
		ProjectPath:        c.projectPath(),
		OrphanedScenes:     c.tree.OrphanedScenes(),
		OrphanedDialogue:   c.tree.OrphanedDialogueIDs(),
		ChronologicalOrder: c.sync.ChronologicalActKeys(),
	}
	d.PendingSave, d.LastSaveError = c.saver.Status()
	d.CurrentBatch = c.CurrentBatch()
	d.LastBatch = c.LastBatch()
	return d
}

// CurrentBatch 返回运行中的批次记录
func (c *Coordinator) CurrentBatch() *entity.BatchRecord {
	if h := c.driver.Current(); h != nil {
		rec := h.Record()
		return &rec
	}
	return nil
}

// LastBatch 返回最近结束的批次记录
func (c *Coordinator) LastBatch() *entity.BatchRecord {
	if h := c.driver.Last(); h != nil {
		rec := h.Record()
		return &rec
	}
	return nil
}

// CancelBatch 取消运行中的批次
func (c *Coordinator) CancelBatch(ctx context.Context) bool {
	h := c.driver.Current()
	if h == nil {
		return false
	}
	logger.Info(ctx, "batch cancellation requested", "batch_id", h.ID())
	h.Cancel()
	return true
}

// WaitBatch 等待运行中的批次结束（测试与优雅退出使用）
func (c *Coordinator) WaitBatch() *batch.Outcome {
	if h := c.driver.Current(); h != nil {
		return h.Wait()
	}
	return nil
}
