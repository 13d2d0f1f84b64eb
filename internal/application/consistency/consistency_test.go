package consistency

import (
	"fmt"
	"reflect"
	"testing"

	"screenplay-wizard/internal/domain/entity"
)

type stateReader struct {
	state *entity.ProjectState
}

func (r stateReader) Read(fn func(state *entity.ProjectState)) { fn(r.state) }

func newState(keys ...string) *entity.ProjectState {
	state := entity.NewProjectState("tester")
	for _, k := range keys {
		state.Structure[k] = entity.Act{Name: k}
	}
	state.StructureOrder = append([]string(nil), keys...)
	return state
}

// flashbackTemplate 声明顺序与时间线顺序不同
func flashbackTemplate() *entity.Template {
	return &entity.Template{
		ID:   "flashback",
		Name: "Flashback",
		Acts: []entity.TemplateAct{
			{Key: "present", ChronologicalOrder: 3, Weight: 1},
			{Key: "past", ChronologicalOrder: 1, Weight: 2},
			{Key: "bridge", ChronologicalOrder: 2, Weight: 1},
		},
	}
}

func TestChronologicalActKeysUsesTemplateOrder(t *testing.T) {
	state := newState("present", "past", "bridge", "epilogue")
	state.Template = flashbackTemplate()

	got := ChronologicalActKeys(state)
	want := []string{"past", "bridge", "present", "epilogue"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestChronologicalActKeysFallsBackToInsertionOrder(t *testing.T) {
	state := newState("act_3", "act_1", "act_2")
	got := ChronologicalActKeys(state)
	want := []string{"act_3", "act_1", "act_2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCanGeneratePlotPointsFollowsChronology(t *testing.T) {
	state := newState("present", "past", "bridge")
	state.Template = flashbackTemplate()
	sync := NewSynchronizer(stateReader{state})

	if !sync.CanGeneratePlotPoints("past") {
		t.Fatalf("expected first chronological act to be generatable")
	}
	if sync.CanGeneratePlotPoints("present") {
		t.Fatalf("expected present to be blocked while past and bridge are empty")
	}
	if sync.CanGeneratePlotPoints("missing") {
		t.Fatalf("expected unknown act to be blocked")
	}

	state.PlotPoints["past"] = []string{"childhood"}
	if !sync.CanGeneratePlotPoints("bridge") {
		t.Fatalf("expected bridge to unlock once past has plot points")
	}
	if sync.CanGeneratePlotPoints("present") {
		t.Fatalf("expected present to stay blocked until bridge has plot points")
	}

	state.PlotPoints["bridge"] = []string{"years pass"}
	if !sync.CanGeneratePlotPoints("present") {
		t.Fatalf("expected present to unlock")
	}
}

func TestPrerequisiteInvariantHoldsForAllSubsets(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}
	for mask := 0; mask < 1<<len(keys); mask++ {
		state := newState(keys...)
		for i, k := range keys {
			if mask&(1<<i) != 0 {
				state.PlotPoints[k] = []string{"beat"}
			}
		}
		sync := NewSynchronizer(stateReader{state})
		order := sync.ChronologicalActKeys()
		for k, key := range order {
			want := true
			for _, earlier := range order[:k] {
				if !sync.HasPlotPoints(earlier) {
					want = false
				}
			}
			if got := sync.CanGeneratePlotPoints(key); got != want {
				t.Fatalf("mask %04b act %s: expected %v, got %v", mask, key, want, got)
			}
		}
	}
}

func TestHierarchicalNumberRanksWithinPlotPoint(t *testing.T) {
	state := newState("act_1", "act_2")
	state.PlotPoints["act_2"] = []string{"p0", "p1", "p2"}
	indices := []int{0, 2, 0, 1, 2, 2}
	for i, idx := range indices {
		state.Scenes["act_2"] = append(state.Scenes["act_2"], entity.Scene{
			Title:          fmt.Sprintf("s%d", i),
			PlotPointIndex: entity.IntPtr(idx),
		})
	}

	want := []string{"2.1.1", "2.3.1", "2.1.2", "2.2.1", "2.3.2", "2.3.3"}
	for i := range indices {
		got, err := HierarchicalNumber(state, "act_2", i)
		if err != nil {
			t.Fatalf("scene %d: %v", i, err)
		}
		if got != want[i] {
			t.Fatalf("scene %d: expected %s, got %s", i, want[i], got)
		}
	}

	if _, err := HierarchicalNumber(state, "act_2", 6); err == nil {
		t.Fatalf("expected error for out of range scene")
	}
	if _, err := HierarchicalNumber(state, "nope", 0); err == nil {
		t.Fatalf("expected error for unknown act")
	}
}

func TestHierarchicalNumberUsesTemplateActOrdinal(t *testing.T) {
	state := newState("present", "past", "bridge")
	state.Template = flashbackTemplate()
	state.PlotPoints["present"] = []string{"p0"}
	state.Scenes["present"] = []entity.Scene{{Title: "now", PlotPointIndex: entity.IntPtr(0)}}

	got, err := HierarchicalNumber(state, "present", 0)
	if err != nil {
		t.Fatalf("HierarchicalNumber: %v", err)
	}
	if got != "3.1.1" {
		t.Fatalf("expected 3.1.1, got %s", got)
	}
}

func TestLegacyNumber(t *testing.T) {
	cases := []struct {
		scenes, plots, index int
		plot, scene          int
	}{
		{scenes: 6, plots: 3, index: 0, plot: 1, scene: 1},
		{scenes: 6, plots: 3, index: 3, plot: 2, scene: 2},
		{scenes: 6, plots: 3, index: 5, plot: 3, scene: 2},
		// 7/3 向下取整为 2，余下的场景都落入最后一个剧情点
		{scenes: 7, plots: 3, index: 6, plot: 3, scene: 3},
		// 场景少于剧情点时每桶 1 个
		{scenes: 2, plots: 5, index: 1, plot: 2, scene: 1},
		{scenes: 4, plots: 0, index: 3, plot: 1, scene: 4},
	}
	for _, c := range cases {
		plot, scene := LegacyNumber(c.scenes, c.plots, c.index)
		if plot != c.plot || scene != c.scene {
			t.Fatalf("LegacyNumber(%d,%d,%d): expected %d.%d, got %d.%d",
				c.scenes, c.plots, c.index, c.plot, c.scene, plot, scene)
		}
	}
}

func TestHierarchicalNumberLegacyScenes(t *testing.T) {
	state := newState("act_1")
	state.Scenes["act_1"] = []entity.Scene{{Title: "a"}, {Title: "b"}, {Title: "c"}}

	got, _ := HierarchicalNumber(state, "act_1", 2)
	if got != "1.1.3" {
		t.Fatalf("expected 1.1.3 without plot points, got %s", got)
	}

	state.PlotPoints["act_1"] = []string{"x", "y", "z"}
	got, _ = HierarchicalNumber(state, "act_1", 2)
	if got != "1.3.1" {
		t.Fatalf("expected 1.3.1 with bucketing, got %s", got)
	}
}

func TestHierarchicalNumberDanglingIndexUsesLegacyBuckets(t *testing.T) {
	state := newState("act_1")
	state.PlotPoints["act_1"] = []string{"a"}
	state.Scenes["act_1"] = []entity.Scene{
		{Title: "kept", PlotPointIndex: entity.IntPtr(0)},
		{Title: "dangling", PlotPointIndex: entity.IntPtr(1)},
	}

	first, _ := HierarchicalNumber(state, "act_1", 0)
	if first != "1.1.1" {
		t.Fatalf("expected 1.1.1, got %s", first)
	}
	// 下标 1 超出剧情点列表，按 LegacyNumber(2, 1, 1) 分桶而不是 "1.2.1"
	second, _ := HierarchicalNumber(state, "act_1", 1)
	if second != "1.1.2" {
		t.Fatalf("expected 1.1.2 for dangling index, got %s", second)
	}

	state.Scenes["act_1"][1].PlotPointIndex = entity.IntPtr(-1)
	negative, _ := HierarchicalNumber(state, "act_1", 1)
	if negative != "1.1.2" {
		t.Fatalf("expected 1.1.2 for negative index, got %s", negative)
	}
}

func TestViewLabelsAndNavigation(t *testing.T) {
	state := newState("act_1", "act_2")
	state.StoryInput.Title = "Night Shift"
	state.SelectedTemplate = "three-act"
	state.CurrentStep = entity.StepPlotPoints
	state.PlotPoints["act_1"] = []string{"p0", "p1"}
	state.Scenes["act_1"] = []entity.Scene{
		{Title: "s0", PlotPointIndex: entity.IntPtr(1)},
		{Title: "s1", PlotPointIndex: entity.IntPtr(9)},
	}
	state.Dialogue["act_1-0"] = "FADE IN:"

	v := NewSynchronizer(stateReader{state}).View()
	if len(v.Acts) != 2 {
		t.Fatalf("expected 2 acts, got %d", len(v.Acts))
	}
	a1, a2 := v.Acts[0], v.Acts[1]
	if a1.PlotPointsAction != ActionRegenerate || a2.PlotPointsAction != ActionGenerate {
		t.Fatalf("unexpected plot point labels: %q %q", a1.PlotPointsAction, a2.PlotPointsAction)
	}
	if !a2.CanGeneratePlotPoints {
		t.Fatalf("expected act_2 to be generatable")
	}
	if a1.PlotPoints[0].ScenesAction != ActionGenerate || a1.PlotPoints[1].ScenesAction != ActionRegenerate {
		t.Fatalf("unexpected per plot point scene labels: %+v", a1.PlotPoints)
	}
	if a1.Scenes[0].Number != "1.2.1" || !a1.Scenes[0].HasDialogue {
		t.Fatalf("unexpected scene view: %+v", a1.Scenes[0])
	}
	if !a1.Scenes[1].Orphaned || a1.Scenes[1].DialogueAction != ActionGenerate {
		t.Fatalf("expected second scene orphaned without dialogue: %+v", a1.Scenes[1])
	}
	if v.TotalScenes != 2 || v.DialogueDone != 1 {
		t.Fatalf("unexpected totals %d/%d", v.DialogueDone, v.TotalScenes)
	}

	reachable := map[entity.WizardStep]bool{}
	for _, s := range v.Steps {
		reachable[s.Step] = s.Reachable
	}
	for _, step := range []entity.WizardStep{entity.StepStory, entity.StepStructure, entity.StepScenes, entity.StepDialogue, entity.StepScript} {
		if !reachable[step] {
			t.Fatalf("expected %s to be reachable", step)
		}
	}

	delete(state.Dialogue, "act_1-0")
	if NewSynchronizer(stateReader{state}).CanNavigate(entity.StepScript) {
		t.Fatalf("expected script step to be locked without dialogue")
	}
}

func TestDistributePlotPoints(t *testing.T) {
	acts := []BudgetAct{
		{Key: "a", Weight: 1},
		{Key: "b", Weight: 2},
		{Key: "c", Weight: 1},
	}
	got := DistributePlotPoints(acts, 40)
	want := map[string]int{"a": 10, "b": 20, "c": 10}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	acts[1].Manual = true
	acts[1].Target = 5
	got = DistributePlotPoints(acts, 40)
	want = map[string]int{"a": 18, "b": 5, "c": 17}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected manual target kept and remainder split, got %v", got)
	}

	got = DistributePlotPoints([]BudgetAct{{Key: "a"}, {Key: "b"}, {Key: "c"}}, 2)
	for k, v := range got {
		if v < 1 {
			t.Fatalf("expected minimum of 1 for %s, got %d", k, v)
		}
	}
}

func TestPlotPointBudgetReadsTemplateWeights(t *testing.T) {
	state := newState("present", "past", "bridge")
	state.Template = flashbackTemplate()

	got := NewSynchronizer(stateReader{state}).PlotPointBudget(8)
	want := map[string]int{"past": 4, "bridge": 2, "present": 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
