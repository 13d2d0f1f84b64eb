package consistency

import (
	"fmt"

	"screenplay-wizard/internal/domain/entity"
)

const (
	ActionGenerate   = "Generate"
	ActionRegenerate = "Regenerate"
)

func actionLabel(has bool) string {
	if has {
		return ActionRegenerate
	}
	return ActionGenerate
}

// View 渲染层使用的派生快照
type View struct {
	ProjectPath  string            `json:"projectPath"`
	Title        string            `json:"title"`
	CurrentStep  entity.WizardStep `json:"currentStep"`
	TemplateID   string            `json:"templateId,omitempty"`
	Model        string            `json:"model,omitempty"`
	Acts         []ActView         `json:"acts"`
	Steps        []StepView        `json:"steps"`
	TotalScenes  int               `json:"totalScenes"`
	DialogueDone int               `json:"dialogueDone"`
}

// ActView 单幕派生数据
type ActView struct {
	Key                   string          `json:"key"`
	Ordinal               int             `json:"ordinal"`
	Name                  string          `json:"name"`
	Description           string          `json:"description,omitempty"`
	PlotPointsTarget      int             `json:"plotPointsTarget"`
	HasPlotPoints         bool            `json:"hasPlotPoints"`
	CanGeneratePlotPoints bool            `json:"canGeneratePlotPoints"`
	PlotPointsAction      string          `json:"plotPointsAction"`
	HasScenes             bool            `json:"hasScenes"`
	ScenesAction          string          `json:"scenesAction"`
	PlotPoints            []PlotPointView `json:"plotPoints"`
	Scenes                []SceneView     `json:"scenes"`
}

// PlotPointView 单个剧情点派生数据
type PlotPointView struct {
	Index        int    `json:"index"`
	Number       string `json:"number"`
	Text         string `json:"text"`
	SceneCount   int    `json:"sceneCount"`
	ScenesAction string `json:"scenesAction"`
}

// SceneView 单个场景派生数据
type SceneView struct {
	ID             string `json:"id"`
	Index          int    `json:"index"`
	Number         string `json:"number"`
	Title          string `json:"title"`
	Location       string `json:"location,omitempty"`
	TimeOfDay      string `json:"timeOfDay,omitempty"`
	PlotPointIndex *int   `json:"plotPointIndex,omitempty"`
	Orphaned       bool   `json:"orphaned"`
	HasDialogue    bool   `json:"hasDialogue"`
	DialogueAction string `json:"dialogueAction"`
}

// StepView 向导步骤导航状态
type StepView struct {
	Step      entity.WizardStep `json:"step"`
	Index     int               `json:"index"`
	Current   bool              `json:"current"`
	Reachable bool              `json:"reachable"`
}

// View 计算完整派生快照
func (s *Synchronizer) View() *View {
	var v *View
	s.reader.Read(func(state *entity.ProjectState) {
		v = BuildView(state)
	})
	return v
}

// BuildView 基于状态计算派生快照（纯函数）
func BuildView(state *entity.ProjectState) *View {
	order := ChronologicalActKeys(state)
	v := &View{
		ProjectPath: state.ProjectPath,
		Title:       state.Title(),
		CurrentStep: state.CurrentStep,
		TemplateID:  state.SelectedTemplate,
		Model:       state.SelectedModel,
		Acts:        make([]ActView, 0, len(order)),
	}

	for i, key := range order {
		act := state.Structure[key]
		plotPoints := state.PlotPoints[key]
		scenes := state.Scenes[key]

		av := ActView{
			Key:                   key,
			Ordinal:               i + 1,
			Name:                  act.Name,
			Description:           act.Description,
			PlotPointsTarget:      act.PlotPointsTarget,
			HasPlotPoints:         hasPlotPoints(state, key),
			CanGeneratePlotPoints: canGeneratePlotPoints(state, order, key),
			HasScenes:             len(scenes) > 0,
			PlotPoints:            make([]PlotPointView, len(plotPoints)),
			Scenes:                make([]SceneView, len(scenes)),
		}
		av.PlotPointsAction = actionLabel(av.HasPlotPoints)
		av.ScenesAction = actionLabel(av.HasScenes)

		counts := make(map[int]int, len(plotPoints))
		for idx, scene := range scenes {
			id := entity.SceneID(key, idx)
			number, _ := hierarchicalNumber(state, order, key, idx)
			dialogue := state.Dialogue[id] != ""
			orphaned := scene.PlotPointIndex != nil && !resolvable(scene, len(plotPoints))
			if resolvable(scene, len(plotPoints)) {
				counts[*scene.PlotPointIndex]++
			}
			av.Scenes[idx] = SceneView{
				ID:             id,
				Index:          idx,
				Number:         number,
				Title:          scene.Title,
				Location:       scene.Location,
				TimeOfDay:      scene.TimeOfDay,
				PlotPointIndex: scene.Clone().PlotPointIndex,
				Orphaned:       orphaned,
				HasDialogue:    dialogue,
				DialogueAction: actionLabel(dialogue),
			}
			v.TotalScenes++
			if dialogue {
				v.DialogueDone++
			}
		}
		for idx, text := range plotPoints {
			av.PlotPoints[idx] = PlotPointView{
				Index:        idx,
				Number:       formatPlotNumber(i+1, idx+1),
				Text:         text,
				SceneCount:   counts[idx],
				ScenesAction: actionLabel(counts[idx] > 0),
			}
		}
		v.Acts = append(v.Acts, av)
	}

	current := state.CurrentStep.Index()
	v.Steps = make([]StepView, len(entity.WizardSteps))
	for i, step := range entity.WizardSteps {
		v.Steps[i] = StepView{
			Step:      step,
			Index:     i,
			Current:   i == current,
			Reachable: canNavigate(state, step),
		}
	}
	return v
}

func formatPlotNumber(act, plot int) string {
	return fmt.Sprintf("%d.%d", act, plot)
}
