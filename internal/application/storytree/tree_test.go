package storytree

import (
	"errors"
	"reflect"
	"testing"

	"screenplay-wizard/internal/domain/entity"
	apperrors "screenplay-wizard/pkg/errors"
)

func newTreeWithActs(t *testing.T, keys ...string) *Tree {
	t.Helper()
	tree := New(entity.NewProjectState("tester"))
	acts := make([]ActEntry, len(keys))
	for i, k := range keys {
		acts[i] = ActEntry{Key: k, Act: entity.Act{Name: "Act " + k}}
	}
	if err := tree.SetStructure(acts); err != nil {
		t.Fatalf("SetStructure: %v", err)
	}
	return tree
}

func scenesOf(tree *Tree, actKey string) []entity.Scene {
	var out []entity.Scene
	tree.Read(func(state *entity.ProjectState) {
		out = append(out, state.Scenes[actKey]...)
	})
	return out
}

func TestScenesForPlotPointScenarioA(t *testing.T) {
	tree := newTreeWithActs(t, "act_1", "act_2")
	if _, err := tree.SetPlotPoints("act_1", []string{"A meets B", "A loses job"}); err != nil {
		t.Fatalf("SetPlotPoints: %v", err)
	}

	if err := tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "Meeting"}}); err != nil {
		t.Fatalf("SetScenesForPlotPoint(0): %v", err)
	}
	if err := tree.SetScenesForPlotPoint("act_1", 1, []entity.Scene{{Title: "Firing"}}); err != nil {
		t.Fatalf("SetScenesForPlotPoint(1): %v", err)
	}

	scenes := scenesOf(tree, "act_1")
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	if scenes[0].Title != "Meeting" || !scenes[0].BelongsTo(0) {
		t.Fatalf("expected Meeting at plot point 0, got %+v", scenes[0])
	}
	if scenes[1].Title != "Firing" || !scenes[1].BelongsTo(1) {
		t.Fatalf("expected Firing at plot point 1, got %+v", scenes[1])
	}
	if scenes[1].PlotPoint != "A loses job" {
		t.Fatalf("expected plot point text stamped, got %q", scenes[1].PlotPoint)
	}

	number, err := tree.HierarchicalNumber("act_1", 1)
	if err != nil {
		t.Fatalf("HierarchicalNumber: %v", err)
	}
	if number != "1.2.1" {
		t.Fatalf("expected 1.2.1, got %s", number)
	}
}

func TestSetScenesForPlotPointIsIdempotent(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	if _, err := tree.SetPlotPoints("act_1", []string{"one", "two"}); err != nil {
		t.Fatalf("SetPlotPoints: %v", err)
	}
	if err := tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "Opening"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	input := []entity.Scene{{Title: "Clash"}, {Title: "Aftermath"}}
	if err := tree.SetScenesForPlotPoint("act_1", 1, input); err != nil {
		t.Fatalf("first call: %v", err)
	}
	once := scenesOf(tree, "act_1")
	if err := tree.SetScenesForPlotPoint("act_1", 1, input); err != nil {
		t.Fatalf("second call: %v", err)
	}
	twice := scenesOf(tree, "act_1")

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected identical scene lists, got %+v then %+v", once, twice)
	}
	if len(twice) != 3 {
		t.Fatalf("expected 3 scenes without duplicates, got %d", len(twice))
	}
	if input[0].PlotPointIndex != nil {
		t.Fatalf("expected caller input to stay untouched")
	}
}

func TestSetScenesForPlotPointReplacesOnlyThatGroup(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	_, _ = tree.SetPlotPoints("act_1", []string{"one", "two"})
	_ = tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "a"}, {Title: "b"}})
	_ = tree.SetScenesForPlotPoint("act_1", 1, []entity.Scene{{Title: "c"}})

	if err := tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "a2"}}); err != nil {
		t.Fatalf("SetScenesForPlotPoint: %v", err)
	}

	var titles []string
	for _, s := range scenesOf(tree, "act_1") {
		titles = append(titles, s.Title)
	}
	want := []string{"c", "a2"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("expected %v, got %v", want, titles)
	}
	number, _ := tree.HierarchicalNumber("act_1", 1)
	if number != "1.1.1" {
		t.Fatalf("expected appended scene to be numbered 1.1.1, got %s", number)
	}
}

func TestSetPlotPointsKeepsDanglingScenes(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	_, _ = tree.SetPlotPoints("act_1", []string{"one", "two", "three"})
	_ = tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "first"}})
	_ = tree.SetScenesForPlotPoint("act_1", 2, []entity.Scene{{Title: "third"}})

	dangling, err := tree.SetPlotPoints("act_1", []string{"only"})
	if err != nil {
		t.Fatalf("SetPlotPoints: %v", err)
	}
	if len(dangling) != 1 {
		t.Fatalf("expected 1 dangling scene, got %d", len(dangling))
	}
	if dangling[0].Title != "third" || dangling[0].SceneID != "act_1-1" {
		t.Fatalf("unexpected dangling ref: %+v", dangling[0])
	}
	if got := len(scenesOf(tree, "act_1")); got != 2 {
		t.Fatalf("expected dangling scenes to be kept, got %d scenes", got)
	}

	orphans := tree.OrphanedScenes()
	if len(orphans) != 1 || orphans[0].Title != "third" {
		t.Fatalf("expected orphan diagnostic for third, got %+v", orphans)
	}

	// 悬空场景走旧编号算法：2 个场景 / 1 个剧情点 → 每桶 2 个
	number, err := tree.HierarchicalNumber("act_1", 1)
	if err != nil {
		t.Fatalf("HierarchicalNumber: %v", err)
	}
	if number != "1.1.2" {
		t.Fatalf("expected legacy number 1.1.2, got %s", number)
	}
}

func TestMutatorsRejectUnknownAct(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")

	checks := map[string]error{
		"SetScenesForAct":       tree.SetScenesForAct("nope", nil),
		"SetScenesForPlotPoint": tree.SetScenesForPlotPoint("nope", 0, nil),
		"SetDialogue":           tree.SetDialogue("nope-0", "text"),
		"SetAct":                tree.SetAct("nope", "n", "d"),
		"EditPlotPoint":         tree.EditPlotPoint("nope", 0, "x"),
	}
	_, err := tree.SetPlotPoints("nope", []string{"x"})
	checks["SetPlotPoints"] = err

	for name, err := range checks {
		if !errors.Is(err, apperrors.ErrActNotFound) {
			t.Fatalf("%s: expected act not found, got %v", name, err)
		}
	}
}

func TestSetScenesForActDoesNotValidateIndices(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	_, _ = tree.SetPlotPoints("act_1", []string{"one"})

	err := tree.SetScenesForAct("act_1", []entity.Scene{
		{Title: "ok", PlotPointIndex: entity.IntPtr(0)},
		{Title: "dangling", PlotPointIndex: entity.IntPtr(7)},
	})
	if err != nil {
		t.Fatalf("expected weak invariant to be tolerated, got %v", err)
	}
	if got := len(tree.OrphanedScenes()); got != 1 {
		t.Fatalf("expected 1 orphan, got %d", got)
	}
}

func TestOrphanedDialogueIDs(t *testing.T) {
	tree := newTreeWithActs(t, "act_1", "act-two")
	_, _ = tree.SetPlotPoints("act_1", []string{"one"})
	_ = tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "s0"}})
	_, _ = tree.SetPlotPoints("act-two", []string{"one"})
	_ = tree.SetScenesForPlotPoint("act-two", 0, []entity.Scene{{Title: "s0"}})

	for _, id := range []string{"act_1-0", "act_1-3", "act-two-0"} {
		if err := tree.SetDialogue(id, "INT. ROOM - DAY"); err != nil {
			t.Fatalf("SetDialogue(%s): %v", id, err)
		}
	}
	_ = tree.SetStructure([]ActEntry{{Key: "act_1"}, {Key: "act-two"}})
	_ = tree.SetScenesForAct("act-two", nil)

	got := tree.OrphanedDialogueIDs()
	want := []string{"act-two-0", "act_1-3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSetDialogueRejectsMalformedID(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	err := tree.SetDialogue("act_1", "text")
	if !errors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("expected invalid param, got %v", err)
	}
}

func TestSetDialogueRejectsNonCanonicalIndex(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	_, _ = tree.SetPlotPoints("act_1", []string{"one"})
	_ = tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "s0"}})

	for _, id := range []string{"act_1-00", "act_1-+0"} {
		if err := tree.SetDialogue(id, "lost"); !errors.Is(err, apperrors.ErrInvalidParam) {
			t.Fatalf("SetDialogue(%s): expected invalid param, got %v", id, err)
		}
	}
	snap := tree.Snapshot()
	if len(snap.Dialogue) != 0 {
		t.Fatalf("expected no dialogue stored, got %v", snap.Dialogue)
	}
	if got := tree.OrphanedDialogueIDs(); len(got) != 0 {
		t.Fatalf("expected no orphans, got %v", got)
	}
}

func TestOrphanedDialogueIDsReportsNonCanonicalKeys(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	_, _ = tree.SetPlotPoints("act_1", []string{"one"})
	_ = tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "s0"}})
	// 旧数据里可能已经存在非规范 key
	_ = tree.Update(func(state *entity.ProjectState) error {
		state.Dialogue["act_1-00"] = "legacy"
		return nil
	})

	got := tree.OrphanedDialogueIDs()
	if !reflect.DeepEqual(got, []string{"act_1-00"}) {
		t.Fatalf("expected [act_1-00], got %v", got)
	}
}

func TestEditPlotPointUpdatesSceneCopies(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	_, _ = tree.SetPlotPoints("act_1", []string{"old"})
	_ = tree.SetScenesForPlotPoint("act_1", 0, []entity.Scene{{Title: "s"}})

	if err := tree.EditPlotPoint("act_1", 0, "new"); err != nil {
		t.Fatalf("EditPlotPoint: %v", err)
	}
	if got := scenesOf(tree, "act_1")[0].PlotPoint; got != "new" {
		t.Fatalf("expected scene plot point text to follow edit, got %q", got)
	}
	if err := tree.EditPlotPoint("act_1", 5, "x"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found for index 5, got %v", err)
	}
}

func TestEditSceneKeepsPlotPointAssignment(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	_, _ = tree.SetPlotPoints("act_1", []string{"one", "two"})
	_ = tree.SetScenesForPlotPoint("act_1", 1, []entity.Scene{{Title: "before"}})

	stored, err := tree.EditScene("act_1", 0, entity.Scene{Title: "after", Location: "Diner"})
	if err != nil {
		t.Fatalf("EditScene: %v", err)
	}
	scene := scenesOf(tree, "act_1")[0]
	if scene.Title != "after" || !scene.BelongsTo(1) || scene.PlotPoint != "two" {
		t.Fatalf("unexpected scene after edit: %+v", scene)
	}
	if !reflect.DeepEqual(stored, scene) {
		t.Fatalf("expected returned scene %+v, got %+v", scene, stored)
	}
	// 返回值是副本，修改它不影响树
	*stored.PlotPointIndex = 0
	if !scenesOf(tree, "act_1")[0].BelongsTo(1) {
		t.Fatal("expected returned scene to be detached from the tree")
	}
	if _, err := tree.EditScene("act_1", 3, entity.Scene{}); !errors.Is(err, apperrors.ErrSceneNotFound) {
		t.Fatalf("expected scene not found, got %v", err)
	}
}

func TestSetStructureDropsRemovedActContent(t *testing.T) {
	tree := newTreeWithActs(t, "act_1", "act_2")
	_, _ = tree.SetPlotPoints("act_2", []string{"x"})
	_ = tree.SetCreativeDirection(entity.DirectionActs, "act_2", "darker")

	if err := tree.SetStructure([]ActEntry{{Key: "act_1"}, {Key: "act_3"}}); err != nil {
		t.Fatalf("SetStructure: %v", err)
	}
	tree.Read(func(state *entity.ProjectState) {
		if _, ok := state.PlotPoints["act_2"]; ok {
			t.Fatalf("expected act_2 plot points to be removed")
		}
		if !reflect.DeepEqual(state.StructureOrder, []string{"act_1", "act_3"}) {
			t.Fatalf("unexpected structure order %v", state.StructureOrder)
		}
	})
	if got := tree.CreativeDirection(entity.DirectionActs, "act_2"); got != "" {
		t.Fatalf("expected act direction cleared, got %q", got)
	}
}

func TestSetStructureThenRunsInSameUpdate(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	calls := 0
	err := tree.SetStructureThen([]ActEntry{{Key: "act_1"}, {Key: "act_2"}}, func(state *entity.ProjectState) {
		calls++
		if len(state.StructureOrder) != 2 {
			t.Fatalf("expected new structure inside then, got %v", state.StructureOrder)
		}
		act := state.Structure["act_2"]
		act.PlotPointsTarget = 4
		state.Structure["act_2"] = act
	})
	if err != nil {
		t.Fatalf("SetStructureThen: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected then called once, got %d", calls)
	}
	if got := tree.Snapshot().Structure["act_2"].PlotPointsTarget; got != 4 {
		t.Fatalf("expected target 4, got %d", got)
	}

	err = tree.SetStructureThen(nil, func(*entity.ProjectState) { calls++ })
	if !errors.Is(err, apperrors.ErrInvalidParam) || calls != 1 {
		t.Fatalf("expected invalid param without calling then, got %v (calls=%d)", err, calls)
	}
}

func TestFlattenScenesOrdersByPlotPoint(t *testing.T) {
	groups := map[int][]entity.Scene{
		1: {{Title: "b1"}},
		0: {{Title: "a1"}, {Title: "a2"}},
	}
	scenes := FlattenScenes(groups, []string{"first", "second"})
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(scenes))
	}
	if scenes[0].Title != "a1" || scenes[2].Title != "b1" || !scenes[2].BelongsTo(1) {
		t.Fatalf("unexpected flattening: %+v", scenes)
	}
	if scenes[2].PlotPoint != "second" {
		t.Fatalf("expected stamped plot point text, got %q", scenes[2].PlotPoint)
	}
}

func TestCreativeDirectionDefaultsToEmpty(t *testing.T) {
	tree := newTreeWithActs(t, "act_1")
	if got := tree.CreativeDirection(entity.DirectionPlotPoints, entity.PlotPointKey("act_1", 0)); got != "" {
		t.Fatalf("expected empty default, got %q", got)
	}
	if err := tree.SetCreativeDirection("bogus", "k", "v"); !errors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("expected invalid level error, got %v", err)
	}
}
