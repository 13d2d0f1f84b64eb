package consistency

import (
	"screenplay-wizard/internal/domain/entity"
)

// StateReader 在读锁内提供项目状态（storytree.Tree 实现）
type StateReader interface {
	Read(fn func(state *entity.ProjectState))
}

// Synchronizer 派生视图计算器；所有生成按钮的可用性只从 HasPlotPoints / CanGeneratePlotPoints 推导
type Synchronizer struct {
	reader StateReader
}

// NewSynchronizer 创建同步器
func NewSynchronizer(reader StateReader) *Synchronizer {
	return &Synchronizer{reader: reader}
}

// ChronologicalActKeys 返回按时间线排序的幕 key
func (s *Synchronizer) ChronologicalActKeys() []string {
	var keys []string
	s.reader.Read(func(state *entity.ProjectState) {
		keys = ChronologicalActKeys(state)
	})
	return keys
}

// HasPlotPoints 幕是否已有剧情点
func (s *Synchronizer) HasPlotPoints(actKey string) bool {
	var ok bool
	s.reader.Read(func(state *entity.ProjectState) {
		ok = hasPlotPoints(state, actKey)
	})
	return ok
}

// CanGeneratePlotPoints 时间线上所有更早的幕都已有剧情点时才允许生成；未知幕返回 false
func (s *Synchronizer) CanGeneratePlotPoints(actKey string) bool {
	var ok bool
	s.reader.Read(func(state *entity.ProjectState) {
		ok = canGeneratePlotPoints(state, ChronologicalActKeys(state), actKey)
	})
	return ok
}

// HasScenes 幕是否已有场景
func (s *Synchronizer) HasScenes(actKey string) bool {
	var ok bool
	s.reader.Read(func(state *entity.ProjectState) {
		ok = len(state.Scenes[actKey]) > 0
	})
	return ok
}

// HasDialogue 场景是否已有对白
func (s *Synchronizer) HasDialogue(sceneID string) bool {
	var ok bool
	s.reader.Read(func(state *entity.ProjectState) {
		ok = state.Dialogue[sceneID] != ""
	})
	return ok
}

// HierarchicalNumber 返回场景层级编号
func (s *Synchronizer) HierarchicalNumber(actKey string, sceneIndex int) (string, error) {
	var (
		number string
		err    error
	)
	s.reader.Read(func(state *entity.ProjectState) {
		number, err = HierarchicalNumber(state, actKey, sceneIndex)
	})
	return number, err
}

// CanNavigate 是否可以跳转到指定步骤
func (s *Synchronizer) CanNavigate(step entity.WizardStep) bool {
	var ok bool
	s.reader.Read(func(state *entity.ProjectState) {
		ok = canNavigate(state, step)
	})
	return ok
}

func hasPlotPoints(state *entity.ProjectState, actKey string) bool {
	return len(state.PlotPoints[actKey]) > 0
}

// CanGenerate 在调用方已持有状态时判断幕是否可生成剧情点
func CanGenerate(state *entity.ProjectState, actKey string) bool {
	return canGeneratePlotPoints(state, ChronologicalActKeys(state), actKey)
}

func canGeneratePlotPoints(state *entity.ProjectState, order []string, actKey string) bool {
	for _, key := range order {
		if key == actKey {
			return true
		}
		if !hasPlotPoints(state, key) {
			return false
		}
	}
	return false
}

// stepPrerequisite 进入某一步骤所需的数据是否存在
func stepPrerequisite(state *entity.ProjectState, step entity.WizardStep) bool {
	switch step {
	case entity.StepStory:
		return true
	case entity.StepTemplate:
		return state.StoryInput.Title != ""
	case entity.StepStructure:
		return state.SelectedTemplate != ""
	case entity.StepPlotPoints:
		return len(state.Structure) > 0
	case entity.StepScenes:
		for _, points := range state.PlotPoints {
			if len(points) > 0 {
				return true
			}
		}
	case entity.StepDialogue:
		for _, scenes := range state.Scenes {
			if len(scenes) > 0 {
				return true
			}
		}
	case entity.StepScript:
		for _, text := range state.Dialogue {
			if text != "" {
				return true
			}
		}
	}
	return false
}

// canNavigate 后退总是允许；前进要求目标之前每一步的前置数据都存在
func canNavigate(state *entity.ProjectState, step entity.WizardStep) bool {
	target := step.Index()
	if target < 0 {
		return false
	}
	if target <= state.CurrentStep.Index() {
		return true
	}
	for _, s := range entity.WizardSteps[:target+1] {
		if !stepPrerequisite(state, s) {
			return false
		}
	}
	return true
}
