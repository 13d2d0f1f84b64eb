package entity

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"The Long Heist":     "the-long-heist",
		"  Noir: Part II!  ": "noir-part-ii",
		"!!!":                "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestNewProjectPath(t *testing.T) {
	a := NewProjectPath("The Long Heist")
	b := NewProjectPath("The Long Heist")
	if !strings.HasPrefix(a, "the-long-heist-") || len(a) != len("the-long-heist-")+8 {
		t.Fatalf("unexpected project path %q", a)
	}
	if a == b {
		t.Fatalf("expected unique project paths")
	}
	if !strings.HasPrefix(NewProjectPath(""), "untitled-") {
		t.Fatalf("expected untitled fallback")
	}
}

func TestNormalizeRepairsStructureOrder(t *testing.T) {
	p := &ProjectState{
		Structure:      map[string]Act{"b": {}, "a": {}, "c": {}},
		StructureOrder: []string{"c", "gone", "c"},
	}
	p.Normalize()
	want := []string{"c", "a", "b"}
	if strings.Join(p.StructureOrder, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, p.StructureOrder)
	}
	if p.Dialogue == nil || p.CurrentStep != StepStory {
		t.Fatalf("expected normalized defaults")
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := NewProjectState("guest")
	p.Structure["act_1"] = Act{Name: "Setup"}
	p.PlotPoints["act_1"] = []string{"one"}
	p.Scenes["act_1"] = []Scene{{Title: "s", PlotPointIndex: IntPtr(0)}}

	cp := p.Clone()
	cp.PlotPoints["act_1"][0] = "changed"
	*cp.Scenes["act_1"][0].PlotPointIndex = 5

	if p.PlotPoints["act_1"][0] != "one" || *p.Scenes["act_1"][0].PlotPointIndex != 0 {
		t.Fatalf("expected clone to be independent of the original")
	}
}

func TestParseSceneIDRequiresCanonicalIndex(t *testing.T) {
	act, index, ok := ParseSceneID("act-two-12")
	if !ok || act != "act-two" || index != 12 {
		t.Fatalf("expected act-two/12, got %q/%d ok=%v", act, index, ok)
	}
	for _, id := range []string{"act_1-00", "act_1-+0", "act_1-007", "act_1-", "act_1--", "-0", "act_1"} {
		if _, _, ok := ParseSceneID(id); ok {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
	if got := SceneID("act_1", 0); got != "act_1-0" {
		t.Fatalf("expected act_1-0, got %q", got)
	}
}
