// Package consistency 计算由剧本树形状派生的数据：幕的时间线顺序、层级编号、生成前置条件与向导导航
package consistency

import (
	"fmt"
	"sort"

	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
)

// ChronologicalActKeys 返回当前存在的幕 key，按模板时间线排序；
// 模板未覆盖的幕按结构插入顺序排在后面。
func ChronologicalActKeys(state *entity.ProjectState) []string {
	if state == nil {
		return nil
	}
	keys := make([]string, 0, len(state.Structure))
	seen := make(map[string]bool, len(state.Structure))
	add := func(key string) {
		if _, ok := state.Structure[key]; ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	for _, key := range state.Template.ChronologicalKeys() {
		add(key)
	}
	for _, key := range state.StructureOrder {
		add(key)
	}
	if len(keys) < len(state.Structure) {
		var rest []string
		for key := range state.Structure {
			if !seen[key] {
				rest = append(rest, key)
			}
		}
		sort.Strings(rest)
		keys = append(keys, rest...)
	}
	return keys
}

// actOrdinal 返回幕在时间线中的 1 基序号，不存在返回 0
func actOrdinal(order []string, actKey string) int {
	for i, key := range order {
		if key == actKey {
			return i + 1
		}
	}
	return 0
}

// resolvable 场景的剧情点下标能否落在当前剧情点列表内
func resolvable(scene entity.Scene, plotCount int) bool {
	return scene.PlotPointIndex != nil && *scene.PlotPointIndex >= 0 && *scene.PlotPointIndex < plotCount
}

// HierarchicalNumber 计算场景的层级编号 "{act}.{plot}.{scene}"（均为 1 基）
func HierarchicalNumber(state *entity.ProjectState, actKey string, sceneIndex int) (string, error) {
	return hierarchicalNumber(state, ChronologicalActKeys(state), actKey, sceneIndex)
}

func hierarchicalNumber(state *entity.ProjectState, order []string, actKey string, sceneIndex int) (string, error) {
	act, plot, ordinal, err := sceneOrdinals(state, order, actKey, sceneIndex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.%d", act, plot, ordinal), nil
}

// sceneOrdinals 返回场景的幕、剧情点、场景序号（均为 1 基）
func sceneOrdinals(state *entity.ProjectState, order []string, actKey string, sceneIndex int) (act, plot, ordinal int, err error) {
	act = actOrdinal(order, actKey)
	if act == 0 {
		return 0, 0, 0, apperrors.ErrActNotFound.WithDetail(actKey)
	}
	scenes := state.Scenes[actKey]
	if sceneIndex < 0 || sceneIndex >= len(scenes) {
		return 0, 0, 0, apperrors.ErrSceneNotFound.WithDetail(entity.SceneID(actKey, sceneIndex))
	}

	plotCount := len(state.PlotPoints[actKey])
	scene := scenes[sceneIndex]
	if resolvable(scene, plotCount) {
		plotIndex := *scene.PlotPointIndex
		rank := 0
		for i := 0; i <= sceneIndex; i++ {
			if scenes[i].BelongsTo(plotIndex) {
				rank++
			}
		}
		return act, plotIndex + 1, rank, nil
	}

	plot, ordinal = LegacyNumber(len(scenes), plotCount, sceneIndex)
	return act, plot, ordinal, nil
}

// NumberedScene 带层级编号的场景位置
type NumberedScene struct {
	ActKey  string
	Index   int
	Number  string
	Act     int
	Plot    int
	Ordinal int
}

// NumberedScenes 返回全部场景，按时间线幕顺序、剧情点、场景序号排列
func NumberedScenes(state *entity.ProjectState) []NumberedScene {
	order := ChronologicalActKeys(state)
	var list []NumberedScene
	for _, key := range order {
		start := len(list)
		for idx := range state.Scenes[key] {
			act, plot, ordinal, err := sceneOrdinals(state, order, key, idx)
			if err != nil {
				continue
			}
			list = append(list, NumberedScene{
				ActKey:  key,
				Index:   idx,
				Number:  fmt.Sprintf("%d.%d.%d", act, plot, ordinal),
				Act:     act,
				Plot:    plot,
				Ordinal: ordinal,
			})
		}
		group := list[start:]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Plot != group[j].Plot {
				return group[i].Plot < group[j].Plot
			}
			return group[i].Ordinal < group[j].Ordinal
		})
	}
	return list
}

// LegacyNumber 旧数据（场景未记录剧情点）的编号估算：
// 将场景数按剧情点数向下取整平均分桶，最后一个剧情点吸收余数。
// 没有剧情点时所有场景归入第 1 个剧情点。
func LegacyNumber(sceneCount, plotCount, sceneIndex int) (plotOrdinal, sceneOrdinal int) {
	if plotCount <= 0 {
		return 1, sceneIndex + 1
	}
	perPlot := sceneCount / plotCount
	if perPlot < 1 {
		perPlot = 1
	}
	plotOrdinal = sceneIndex/perPlot + 1
	if plotOrdinal > plotCount {
		plotOrdinal = plotCount
	}
	sceneOrdinal = sceneIndex - (plotOrdinal-1)*perPlot + 1
	return plotOrdinal, sceneOrdinal
}
