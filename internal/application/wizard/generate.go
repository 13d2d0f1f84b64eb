package wizard

import (
	"context"
	"fmt"
	"strings"

	"screenplay-wizard/internal/application/batch"
	"screenplay-wizard/internal/application/consistency"
	"screenplay-wizard/internal/application/storytree"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/service"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
)

// gate 生成前的本地检查：登录、积分。失败时不发起任何生成请求。
func (c *Coordinator) gate(ctx context.Context, level entity.GenerationLevel, units int) error {
	if c.deps.Auth != nil {
		ok, err := c.deps.Auth.IsAuthenticated(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrRegistrationRequired
		}
	}
	if c.deps.Credits != nil {
		cost := c.cfg.UnitCosts[level] * int64(units)
		if cost > 0 {
			ok, err := c.deps.Credits.CanAfford(ctx, cost)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.ErrInsufficientCredits.WithDetail(fmt.Sprintf("%d credits required", cost))
			}
		}
	}
	return nil
}

// start 检查并启动批次。批次与发起请求解耦，请求结束不会取消批次。
func (c *Coordinator) start(ctx context.Context, job batch.Job) (*batch.Handle, error) {
	if err := c.requireProject(); err != nil {
		return nil, err
	}
	if len(job.Units) == 0 {
		return nil, apperrors.ErrNothingToGenerate.WithDetail(job.Label)
	}
	if err := c.requireIdle(); err != nil {
		return nil, err
	}
	if err := c.gate(ctx, job.Level, len(job.Units)); err != nil {
		return nil, err
	}

	batchCtx := logger.WithContext(context.WithoutCancel(ctx), logger.ProjectPathKey, c.projectPath())
	merge := job.Merge
	job.Merge = func(unit batch.Unit, result any) (string, error) {
		preview, err := merge(unit, result)
		if err == nil {
			c.changed(batchCtx, "unit_merged")
		}
		return preview, err
	}
	job.Finish = c.finish
	return c.driver.Start(batchCtx, job)
}

// finish 批次收尾：有合并结果时立即保存；完成时刷新积分
func (c *Coordinator) finish(ctx context.Context, outcome *batch.Outcome) {
	if outcome.Succeeded > 0 {
		if err := c.saver.Flush(ctx); err != nil {
			logger.Error(ctx, "failed to save after batch", err)
		}
	}
	if outcome.Status == entity.BatchStatusCompleted && c.deps.Credits != nil {
		if err := c.deps.Credits.RefreshAfterOperation(ctx); err != nil {
			logger.Warn(ctx, "failed to refresh credits", "error", err.Error())
		}
	}
}

// generationContext 生成请求共享的项目上下文
type generationContext struct {
	projectPath string
	story       entity.StoryConcept
	model       string
}

func (c *Coordinator) readContext(state *entity.ProjectState) generationContext {
	story := state.StoryInput
	story.Influences = append([]string(nil), story.Influences...)
	model := state.SelectedModel
	if model == "" {
		model = c.cfg.DefaultModel
	}
	return generationContext{projectPath: state.ProjectPath, story: story, model: model}
}

// GenerateStructure 生成整体幕结构，替换已有结构
func (c *Coordinator) GenerateStructure(ctx context.Context, direction string) (*batch.Handle, error) {
	var title string
	var hasStory bool
	c.tree.Read(func(state *entity.ProjectState) {
		title = state.Title()
		hasStory = strings.TrimSpace(state.StoryInput.Title) != ""
	})
	if err := c.requireProject(); err != nil {
		return nil, err
	}
	if !hasStory {
		return nil, apperrors.ErrPrerequisiteMissing.WithDetail("story concept is required")
	}

	job := batch.Job{
		Level:  entity.LevelStructure,
		Label:  "Structure",
		Policy: entity.PolicyAbort,
		Units:  []batch.Unit{{Path: "Structure", Title: title}},
		Generate: func(ctx context.Context, _ batch.Unit) (any, error) {
			var req service.StructureRequest
			c.tree.Read(func(state *entity.ProjectState) {
				gc := c.readContext(state)
				req = service.StructureRequest{
					ProjectPath:       gc.projectPath,
					StoryInput:        gc.story,
					Template:          state.Template.Clone(),
					Model:             gc.model,
					CreativeDirection: direction,
				}
			})
			return c.deps.Generator.GenerateStructure(ctx, req)
		},
		Merge: func(_ batch.Unit, result any) (string, error) {
			res := result.(*service.StructureResult)
			if res == nil || len(res.Acts) == 0 {
				return "", apperrors.New(apperrors.CodeGenerationFailed, "no acts were generated")
			}
			entries := make([]storytree.ActEntry, len(res.Acts))
			names := make([]string, len(res.Acts))
			for i, a := range res.Acts {
				entries[i] = storytree.ActEntry{Key: a.Key, Act: entity.Act{
					Name:             a.Name,
					Description:      a.Description,
					PlotPointsTarget: a.PlotPoints,
				}}
				names[i] = a.Name
			}
			if err := c.tree.SetStructureThen(entries, c.fillTargets); err != nil {
				return "", err
			}
			return strings.Join(names, " / "), nil
		},
	}
	return c.start(ctx, job)
}

// fillTargets 结构生成后为未给出剧情点数量的幕补齐预算
func (c *Coordinator) fillTargets(state *entity.ProjectState) {
	total := state.TotalPlotPoints
	if total <= 0 {
		total = c.cfg.DefaultPlotPointBudget
	}
	targets := consistency.DistributePlotPoints(consistency.BudgetActs(state), total)
	for key, act := range state.Structure {
		if act.PlotPointsTarget <= 0 {
			act.PlotPointsTarget = targets[key]
			state.Structure[key] = act
		}
	}
}

func actPath(ordinal int, name string) string {
	if name == "" {
		return fmt.Sprintf("Act %d", ordinal)
	}
	return fmt.Sprintf("Act %d: %s", ordinal, name)
}

func actTitle(key string, act entity.Act) string {
	if act.Name != "" {
		return act.Name
	}
	return key
}

// plotPointsUnit 构造单幕剧情点单元
func plotPointsUnit(order []string, key string, act entity.Act) batch.Unit {
	ordinal := 0
	for i, k := range order {
		if k == key {
			ordinal = i + 1
		}
	}
	return batch.Unit{ActKey: key, Path: actPath(ordinal, act.Name), Title: actTitle(key, act)}
}

func (c *Coordinator) plotPointsJob(label string, units []batch.Unit) batch.Job {
	return batch.Job{
		Level:  entity.LevelPlotPoints,
		Label:  label,
		Policy: entity.PolicyAbort,
		Units:  units,
		Generate: func(ctx context.Context, unit batch.Unit) (any, error) {
			var (
				req     service.PlotPointsRequest
				allowed bool
			)
			c.tree.Read(func(state *entity.ProjectState) {
				order := consistency.ChronologicalActKeys(state)
				allowed = state.HasAct(unit.ActKey) && consistency.CanGenerate(state, unit.ActKey)
				if !allowed {
					return
				}
				gc := c.readContext(state)
				act := state.Structure[unit.ActKey]
				req = service.PlotPointsRequest{
					ProjectPath:       gc.projectPath,
					ActKey:            unit.ActKey,
					Act:               act,
					StoryInput:        gc.story,
					DesiredCount:      act.PlotPointsTarget,
					Model:             gc.model,
					CreativeDirection: state.CreativeDirections.Get(entity.DirectionActs, unit.ActKey),
				}
				for _, k := range order {
					if k == unit.ActKey {
						break
					}
					req.PreviousActs = append(req.PreviousActs, service.ActPlotPoints{
						ActKey:     k,
						PlotPoints: append([]string(nil), state.PlotPoints[k]...),
					})
				}
			})
			if !allowed {
				return nil, apperrors.ErrPrerequisiteMissing.WithDetail("earlier acts need plot points first")
			}
			return c.deps.Generator.GeneratePlotPoints(ctx, req)
		},
		Merge: func(unit batch.Unit, result any) (string, error) {
			points := result.([]string)
			if len(points) == 0 {
				return "", apperrors.New(apperrors.CodeGenerationFailed, "no plot points were generated")
			}
			if _, err := c.tree.SetPlotPoints(unit.ActKey, points); err != nil {
				return "", err
			}
			return fmt.Sprintf("%d plot points: %s", len(points), points[0]), nil
		},
	}
}

// GeneratePlotPointsForAct 生成单幕剧情点；时间线上更早的幕必须已有剧情点
func (c *Coordinator) GeneratePlotPointsForAct(ctx context.Context, actKey string) (*batch.Handle, error) {
	var (
		unit   batch.Unit
		exists bool
	)
	c.tree.Read(func(state *entity.ProjectState) {
		act, ok := state.Structure[actKey]
		exists = ok
		unit = plotPointsUnit(consistency.ChronologicalActKeys(state), actKey, act)
	})
	if !exists {
		return nil, apperrors.ErrActNotFound.WithDetail(actKey)
	}
	if !c.sync.CanGeneratePlotPoints(actKey) {
		return nil, apperrors.ErrPrerequisiteMissing.WithDetail("earlier acts need plot points first")
	}
	return c.start(ctx, c.plotPointsJob("Plot points for "+unit.Title, []batch.Unit{unit}))
}

// GenerateAllPlotPoints 按时间线顺序为所有幕生成剧情点
func (c *Coordinator) GenerateAllPlotPoints(ctx context.Context) (*batch.Handle, error) {
	var units []batch.Unit
	c.tree.Read(func(state *entity.ProjectState) {
		order := consistency.ChronologicalActKeys(state)
		for _, key := range order {
			units = append(units, plotPointsUnit(order, key, state.Structure[key]))
		}
	})
	return c.start(ctx, c.plotPointsJob("All plot points", units))
}

// GenerateScenesForPlotPoint 为单个剧情点生成场景，替换该剧情点原有场景
func (c *Coordinator) GenerateScenesForPlotPoint(ctx context.Context, actKey string, plotPointIndex int) (*batch.Handle, error) {
	var (
		unit batch.Unit
		err  error
	)
	c.tree.Read(func(state *entity.ProjectState) {
		if !state.HasAct(actKey) {
			err = apperrors.ErrActNotFound.WithDetail(actKey)
			return
		}
		points := state.PlotPoints[actKey]
		if len(points) == 0 {
			err = apperrors.ErrPrerequisiteMissing.WithDetail("act has no plot points")
			return
		}
		if plotPointIndex < 0 || plotPointIndex >= len(points) {
			err = apperrors.Newf(apperrors.CodeNotFound, "plot point %d not found in act %s", plotPointIndex, actKey)
			return
		}
		order := consistency.ChronologicalActKeys(state)
		ordinal := indexOf(order, actKey) + 1
		unit = batch.Unit{
			ActKey:         actKey,
			PlotPointIndex: entity.IntPtr(plotPointIndex),
			Path:           fmt.Sprintf("%s / Plot Point %d", actPath(ordinal, state.Structure[actKey].Name), plotPointIndex+1),
			Title:          points[plotPointIndex],
		}
	})
	if err != nil {
		return nil, err
	}

	job := batch.Job{
		Level:  entity.LevelScenes,
		Label:  fmt.Sprintf("Scenes for plot point %d", plotPointIndex+1),
		Policy: entity.PolicyAbort,
		Units:  []batch.Unit{unit},
		Generate: func(ctx context.Context, unit batch.Unit) (any, error) {
			idx := *unit.PlotPointIndex
			var req service.ScenesForPlotPointRequest
			var ok bool
			c.tree.Read(func(state *entity.ProjectState) {
				points := state.PlotPoints[unit.ActKey]
				if ok = idx < len(points); !ok {
					return
				}
				gc := c.readContext(state)
				req = service.ScenesForPlotPointRequest{
					ProjectPath:       gc.projectPath,
					ActKey:            unit.ActKey,
					PlotPointIndex:    idx,
					PlotPoint:         points[idx],
					StoryInput:        gc.story,
					Model:             gc.model,
					CreativeDirection: state.CreativeDirections.Get(entity.DirectionPlotPoints, entity.PlotPointKey(unit.ActKey, idx)),
				}
			})
			if !ok {
				return nil, apperrors.Newf(apperrors.CodeNotFound, "plot point %d no longer exists", idx)
			}
			return c.deps.Generator.GenerateScenesForPlotPoint(ctx, req)
		},
		Merge: func(unit batch.Unit, result any) (string, error) {
			scenes := result.([]entity.Scene)
			if len(scenes) == 0 {
				return "", apperrors.New(apperrors.CodeGenerationFailed, "no scenes were generated")
			}
			if err := c.tree.SetScenesForPlotPoint(unit.ActKey, *unit.PlotPointIndex, scenes); err != nil {
				return "", err
			}
			return sceneTitles(scenes), nil
		},
	}
	return c.start(ctx, job)
}

func sceneTitles(scenes []entity.Scene) string {
	titles := make([]string, len(scenes))
	for i, s := range scenes {
		titles[i] = s.Title
	}
	return fmt.Sprintf("%d scenes: %s", len(scenes), strings.Join(titles, ", "))
}

func indexOf(list []string, key string) int {
	for i, k := range list {
		if k == key {
			return i
		}
	}
	return -1
}

func (c *Coordinator) actScenesJob(label string, units []batch.Unit) batch.Job {
	return batch.Job{
		Level:  entity.LevelScenes,
		Label:  label,
		Policy: entity.PolicyAbort,
		Units:  units,
		Generate: func(ctx context.Context, unit batch.Unit) (any, error) {
			var req service.ScenesForActRequest
			var ok bool
			c.tree.Read(func(state *entity.ProjectState) {
				points := state.PlotPoints[unit.ActKey]
				if ok = len(points) > 0; !ok {
					return
				}
				gc := c.readContext(state)
				req = service.ScenesForActRequest{
					ProjectPath: gc.projectPath,
					ActKey:      unit.ActKey,
					Act:         state.Structure[unit.ActKey],
					PlotPoints:  append([]string(nil), points...),
					StoryInput:  gc.story,
					Model:       gc.model,
				}
				for i := range points {
					if d := state.CreativeDirections.Get(entity.DirectionPlotPoints, entity.PlotPointKey(unit.ActKey, i)); d != "" {
						if req.CreativeDirections == nil {
							req.CreativeDirections = make(map[int]string)
						}
						req.CreativeDirections[i] = d
					}
				}
			})
			if !ok {
				return nil, apperrors.ErrPrerequisiteMissing.WithDetail("act has no plot points")
			}
			return c.deps.Generator.GenerateScenesForAct(ctx, req)
		},
		Merge: func(unit batch.Unit, result any) (string, error) {
			groups := result.([]service.PlotPointScenes)
			byIndex := make(map[int][]entity.Scene, len(groups))
			for _, g := range groups {
				byIndex[g.PlotPointIndex] = append(byIndex[g.PlotPointIndex], g.Scenes...)
			}
			var plotPoints []string
			c.tree.Read(func(state *entity.ProjectState) {
				plotPoints = append([]string(nil), state.PlotPoints[unit.ActKey]...)
			})
			scenes := storytree.FlattenScenes(byIndex, plotPoints)
			if len(scenes) == 0 {
				return "", apperrors.New(apperrors.CodeGenerationFailed, "no scenes were generated")
			}
			if err := c.tree.SetScenesForAct(unit.ActKey, scenes); err != nil {
				return "", err
			}
			return sceneTitles(scenes), nil
		},
	}
}

// GenerateScenesForAct 为整幕生成场景，替换该幕所有场景
func (c *Coordinator) GenerateScenesForAct(ctx context.Context, actKey string) (*batch.Handle, error) {
	var (
		unit batch.Unit
		err  error
	)
	c.tree.Read(func(state *entity.ProjectState) {
		act, ok := state.Structure[actKey]
		if !ok {
			err = apperrors.ErrActNotFound.WithDetail(actKey)
			return
		}
		if len(state.PlotPoints[actKey]) == 0 {
			err = apperrors.ErrPrerequisiteMissing.WithDetail("act has no plot points")
			return
		}
		unit = plotPointsUnit(consistency.ChronologicalActKeys(state), actKey, act)
	})
	if err != nil {
		return nil, err
	}
	return c.start(ctx, c.actScenesJob("Scenes for "+unit.Title, []batch.Unit{unit}))
}

// GenerateAllScenes 按时间线顺序为所有已有剧情点的幕生成场景
func (c *Coordinator) GenerateAllScenes(ctx context.Context) (*batch.Handle, error) {
	var units []batch.Unit
	c.tree.Read(func(state *entity.ProjectState) {
		order := consistency.ChronologicalActKeys(state)
		for _, key := range order {
			if len(state.PlotPoints[key]) > 0 {
				units = append(units, plotPointsUnit(order, key, state.Structure[key]))
			}
		}
	})
	return c.start(ctx, c.actScenesJob("All scenes", units))
}

// sceneUnit 构造对白单元，Path 使用层级编号
func sceneUnit(state *entity.ProjectState, actKey string, index int) batch.Unit {
	scene := state.Scenes[actKey][index]
	number, _ := consistency.HierarchicalNumber(state, actKey, index)
	title := scene.Title
	if title == "" {
		title = "Scene " + number
	}
	return batch.Unit{
		ActKey:         actKey,
		SceneIndex:     entity.IntPtr(index),
		PlotPointIndex: scene.Clone().PlotPointIndex,
		Path:           "Scene " + number,
		Title:          title,
	}
}

func (c *Coordinator) dialogueJob(label string, policy entity.FailurePolicy, units []batch.Unit) batch.Job {
	return batch.Job{
		Level:  entity.LevelDialogue,
		Label:  label,
		Policy: policy,
		Units:  units,
		Generate: func(ctx context.Context, unit batch.Unit) (any, error) {
			id := entity.SceneID(unit.ActKey, *unit.SceneIndex)
			var req service.DialogueRequest
			var ok bool
			c.tree.Read(func(state *entity.ProjectState) {
				scenes := state.Scenes[unit.ActKey]
				if ok = *unit.SceneIndex < len(scenes); !ok {
					return
				}
				gc := c.readContext(state)
				req = service.DialogueRequest{
					ProjectPath:       gc.projectPath,
					SceneID:           id,
					Scene:             scenes[*unit.SceneIndex].Clone(),
					StoryInput:        gc.story,
					Model:             gc.model,
					CreativeDirection: state.CreativeDirections.Get(entity.DirectionScenes, id),
				}
			})
			if !ok {
				return nil, apperrors.ErrSceneNotFound.WithDetail(id)
			}
			return c.deps.Generator.GenerateDialogue(ctx, req)
		},
		Merge: func(unit batch.Unit, result any) (string, error) {
			text := result.(string)
			if strings.TrimSpace(text) == "" {
				return "", apperrors.New(apperrors.CodeGenerationFailed, "empty dialogue was generated")
			}
			if err := c.tree.SetDialogue(entity.SceneID(unit.ActKey, *unit.SceneIndex), text); err != nil {
				return "", err
			}
			return text, nil
		},
	}
}

// GenerateDialogueForScene 生成单个场景对白
func (c *Coordinator) GenerateDialogueForScene(ctx context.Context, sceneID string) (*batch.Handle, error) {
	actKey, index, ok := entity.ParseSceneID(sceneID)
	if !ok {
		return nil, apperrors.ErrInvalidParam.WithDetail("malformed scene id: " + sceneID)
	}
	var (
		unit batch.Unit
		err  error
	)
	c.tree.Read(func(state *entity.ProjectState) {
		if !state.HasAct(actKey) {
			err = apperrors.ErrActNotFound.WithDetail(actKey)
			return
		}
		if index >= len(state.Scenes[actKey]) {
			err = apperrors.ErrSceneNotFound.WithDetail(sceneID)
			return
		}
		unit = sceneUnit(state, actKey, index)
	})
	if err != nil {
		return nil, err
	}
	return c.start(ctx, c.dialogueJob("Dialogue for "+unit.Title, entity.PolicyAbort, []batch.Unit{unit}))
}

// GenerateDialogueForPlotPoint 为剧情点下所有场景生成对白；失败的场景被记录，批次继续
func (c *Coordinator) GenerateDialogueForPlotPoint(ctx context.Context, actKey string, plotPointIndex int) (*batch.Handle, error) {
	var (
		units []batch.Unit
		err   error
	)
	c.tree.Read(func(state *entity.ProjectState) {
		if !state.HasAct(actKey) {
			err = apperrors.ErrActNotFound.WithDetail(actKey)
			return
		}
		for i, scene := range state.Scenes[actKey] {
			if scene.BelongsTo(plotPointIndex) {
				units = append(units, sceneUnit(state, actKey, i))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("Dialogue for plot point %d", plotPointIndex+1)
	return c.start(ctx, c.dialogueJob(label, entity.PolicyCollect, units))
}

// GenerateAllDialogue 按时间线与层级编号顺序为所有场景生成对白
func (c *Coordinator) GenerateAllDialogue(ctx context.Context) (*batch.Handle, error) {
	var units []batch.Unit
	c.tree.Read(func(state *entity.ProjectState) {
		for _, ref := range consistency.NumberedScenes(state) {
			units = append(units, sceneUnit(state, ref.ActKey, ref.Index))
		}
	})
	return c.start(ctx, c.dialogueJob("All dialogue", entity.PolicyAbort, units))
}
