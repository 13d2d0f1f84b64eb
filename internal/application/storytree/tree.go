// Package storytree 维护 幕 → 剧情点 → 场景 → 对白 的内存树，所有写操作在单个临界区内完成
package storytree

import (
	"sort"
	"sync"

	"screenplay-wizard/internal/application/consistency"
	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
	"screenplay-wizard/pkg/logger"
)

// ActEntry 带 key 的幕（结构生成结果按顺序给出）
type ActEntry struct {
	Key string
	Act entity.Act
}

// Tree 剧本状态树
type Tree struct {
	mu    sync.RWMutex
	state *entity.ProjectState
}

// New 创建状态树，state 为 nil 时使用空项目
func New(state *entity.ProjectState) *Tree {
	if state == nil {
		state = entity.NewProjectState("")
	}
	state.Normalize()
	return &Tree{state: state}
}

// Replace 整体替换项目状态（加载、新建、重置）
func (t *Tree) Replace(state *entity.ProjectState) {
	if state == nil {
		state = entity.NewProjectState("")
	}
	state.Normalize()
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// Read 在读锁内访问状态，fn 不得保留 state 引用
func (t *Tree) Read(fn func(state *entity.ProjectState)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn(t.state)
}

// Update 在写锁内修改状态，fn 返回错误时调用方负责保证未做部分修改
func (t *Tree) Update(fn func(state *entity.ProjectState) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := fn(t.state); err != nil {
		return err
	}
	t.state.Touch()
	return nil
}

// Snapshot 返回状态深拷贝
func (t *Tree) Snapshot() *entity.ProjectState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Clone()
}

func requireAct(state *entity.ProjectState, actKey string) error {
	if !state.HasAct(actKey) {
		return apperrors.ErrActNotFound.WithDetail(actKey)
	}
	return nil
}

// SetStructure 用新结构替换所有幕；不再存在的幕的下游内容一并移除
func (t *Tree) SetStructure(acts []ActEntry) error {
	return t.SetStructureThen(acts, nil)
}

// SetStructureThen 替换结构后在同一写锁内执行 then（可为 nil），用于补齐依赖新结构的派生字段
func (t *Tree) SetStructureThen(acts []ActEntry, then func(state *entity.ProjectState)) error {
	if len(acts) == 0 {
		return apperrors.ErrInvalidParam.WithDetail("structure has no acts")
	}
	return t.Update(func(state *entity.ProjectState) error {
		structure := make(map[string]entity.Act, len(acts))
		order := make([]string, 0, len(acts))
		for _, a := range acts {
			if a.Key == "" {
				return apperrors.ErrInvalidParam.WithDetail("act key is empty")
			}
			if _, dup := structure[a.Key]; !dup {
				order = append(order, a.Key)
			}
			structure[a.Key] = a.Act
		}

		for key := range state.Structure {
			if _, keep := structure[key]; keep {
				continue
			}
			delete(state.PlotPoints, key)
			delete(state.Scenes, key)
			delete(state.CreativeDirections.Acts, key)
			delete(state.ManualPlotPointTargets, key)
		}
		state.Structure = structure
		state.StructureOrder = order
		if then != nil {
			then(state)
		}
		return nil
	})
}

// SetAct 修改单幕名称与描述，保留剧情点目标
func (t *Tree) SetAct(actKey, name, description string) error {
	return t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		act := state.Structure[actKey]
		act.Name = name
		act.Description = description
		state.Structure[actKey] = act
		return nil
	})
}

// SetPlotPointsTarget 修改单幕剧情点目标数
func (t *Tree) SetPlotPointsTarget(actKey string, target int) error {
	return t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		act := state.Structure[actKey]
		act.PlotPointsTarget = target
		state.Structure[actKey] = act
		return nil
	})
}

// SetPlotPoints 替换整幕剧情点。
// 下标超出新列表的场景保留悬空引用，作为返回值告知调用方并记录告警。
func (t *Tree) SetPlotPoints(actKey string, plotPoints []string) ([]entity.SceneRef, error) {
	var dangling []entity.SceneRef
	err := t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		state.PlotPoints[actKey] = append([]string(nil), plotPoints...)
		dangling = danglingScenes(state, actKey)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(dangling) > 0 {
		logger.Default().Warn("plot points replaced, scenes left with dangling plot point references",
			"act_key", actKey,
			"plot_points", len(plotPoints),
			"dangling_scenes", len(dangling),
		)
	}
	return dangling, nil
}

// EditPlotPoint 修改单个剧情点文本，并同步引用它的场景上的冗余文本
func (t *Tree) EditPlotPoint(actKey string, index int, text string) error {
	return t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		points := state.PlotPoints[actKey]
		if index < 0 || index >= len(points) {
			return apperrors.Newf(apperrors.CodeNotFound, "plot point %d not found in act %s", index, actKey)
		}
		points[index] = text
		for i, scene := range state.Scenes[actKey] {
			if scene.BelongsTo(index) {
				state.Scenes[actKey][i].PlotPoint = text
			}
		}
		return nil
	})
}

// SetScenesForAct 替换整幕场景。剧情点下标不做校验（允许悬空引用）。
func (t *Tree) SetScenesForAct(actKey string, scenes []entity.Scene) error {
	return t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		list := make([]entity.Scene, len(scenes))
		for i, s := range scenes {
			list[i] = s.Clone()
		}
		state.Scenes[actKey] = list
		return nil
	})
}

// FlattenScenes 将按剧情点分组的场景展开为整幕场景列表，并标记归属剧情点
func FlattenScenes(groups map[int][]entity.Scene, plotPoints []string) []entity.Scene {
	indices := make([]int, 0, len(groups))
	for idx := range groups {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var scenes []entity.Scene
	for _, idx := range indices {
		for _, s := range groups[idx] {
			scenes = append(scenes, stamp(s, idx, plotPoints))
		}
	}
	return scenes
}

func stamp(scene entity.Scene, plotPointIndex int, plotPoints []string) entity.Scene {
	scene.PlotPointIndex = entity.IntPtr(plotPointIndex)
	if plotPointIndex >= 0 && plotPointIndex < len(plotPoints) {
		scene.PlotPoint = plotPoints[plotPointIndex]
	}
	return scene
}

// SetScenesForPlotPoint 移除该剧情点下已有场景，再把新场景追加到整幕列表末尾。
// 相同输入重复调用结果不变。
func (t *Tree) SetScenesForPlotPoint(actKey string, plotPointIndex int, scenes []entity.Scene) error {
	return t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		plotPoints := state.PlotPoints[actKey]
		existing := state.Scenes[actKey]
		list := make([]entity.Scene, 0, len(existing)+len(scenes))
		for _, s := range existing {
			if !s.BelongsTo(plotPointIndex) {
				list = append(list, s)
			}
		}
		for _, s := range scenes {
			list = append(list, stamp(s.Clone(), plotPointIndex, plotPoints))
		}
		state.Scenes[actKey] = list
		return nil
	})
}

// EditScene 修改单个场景；未指定剧情点下标时沿用原归属，返回写入后的场景
func (t *Tree) EditScene(actKey string, index int, scene entity.Scene) (entity.Scene, error) {
	var stored entity.Scene
	err := t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		scenes := state.Scenes[actKey]
		if index < 0 || index >= len(scenes) {
			return apperrors.ErrSceneNotFound.WithDetail(entity.SceneID(actKey, index))
		}
		if scene.PlotPointIndex == nil {
			scene.PlotPointIndex = scenes[index].PlotPointIndex
			if scene.PlotPoint == "" {
				scene.PlotPoint = scenes[index].PlotPoint
			}
		}
		scenes[index] = scene.Clone()
		stored = scenes[index].Clone()
		return nil
	})
	return stored, err
}

// SetDialogue 写入场景对白（upsert）；场景标识中的幕必须存在
func (t *Tree) SetDialogue(sceneID, text string) error {
	actKey, _, ok := entity.ParseSceneID(sceneID)
	if !ok {
		return apperrors.ErrInvalidParam.WithDetail("malformed scene id: " + sceneID)
	}
	return t.Update(func(state *entity.ProjectState) error {
		if err := requireAct(state, actKey); err != nil {
			return err
		}
		state.Dialogue[sceneID] = text
		return nil
	})
}

// SetCreativeDirection 写入创作方向，空文本表示清除
func (t *Tree) SetCreativeDirection(level entity.DirectionLevel, key, text string) error {
	if !level.Valid() {
		return apperrors.ErrInvalidParam.WithDetail("unknown creative direction level: " + string(level))
	}
	return t.Update(func(state *entity.ProjectState) error {
		state.CreativeDirections.Set(level, key, text)
		return nil
	})
}

// CreativeDirection 读取创作方向，缺省为空字符串
func (t *Tree) CreativeDirection(level entity.DirectionLevel, key string) string {
	var text string
	t.Read(func(state *entity.ProjectState) {
		text = state.CreativeDirections.Get(level, key)
	})
	return text
}

// HierarchicalNumber 返回场景层级编号 "{act}.{plot}.{scene}"
func (t *Tree) HierarchicalNumber(actKey string, sceneIndex int) (string, error) {
	var (
		number string
		err    error
	)
	t.Read(func(state *entity.ProjectState) {
		number, err = consistency.HierarchicalNumber(state, actKey, sceneIndex)
	})
	return number, err
}

// OrphanedScenes 返回剧情点下标悬空的场景
func (t *Tree) OrphanedScenes() []entity.SceneRef {
	var refs []entity.SceneRef
	t.Read(func(state *entity.ProjectState) {
		for _, actKey := range state.StructureOrder {
			refs = append(refs, danglingScenes(state, actKey)...)
		}
	})
	return refs
}

// OrphanedDialogueIDs 返回没有对应场景的对白 key（已排序）
func (t *Tree) OrphanedDialogueIDs() []string {
	var ids []string
	t.Read(func(state *entity.ProjectState) {
		for id := range state.Dialogue {
			actKey, index, ok := entity.ParseSceneID(id)
			if !ok || index >= len(state.Scenes[actKey]) {
				ids = append(ids, id)
			}
		}
	})
	sort.Strings(ids)
	return ids
}

func danglingScenes(state *entity.ProjectState, actKey string) []entity.SceneRef {
	plotCount := len(state.PlotPoints[actKey])
	var refs []entity.SceneRef
	for i, s := range state.Scenes[actKey] {
		if s.PlotPointIndex == nil {
			continue
		}
		if idx := *s.PlotPointIndex; idx < 0 || idx >= plotCount {
			refs = append(refs, entity.SceneRef{
				ActKey:         actKey,
				Index:          i,
				SceneID:        entity.SceneID(actKey, i),
				Title:          s.Title,
				PlotPointIndex: entity.IntPtr(idx),
			})
		}
	}
	return refs
}
