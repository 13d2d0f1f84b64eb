package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "screenplay-wizard/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const flashback = `
id: flashback
name: Flashback Opening
acts:
  - key: present
    name: Present Day
    chronological_order: 3
  - key: past
    name: The Past
    chronological_order: 1
    weight: 2
  - key: bridge
    name: Bridge
    chronological_order: 2
`

func TestLoadParsesTemplates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "flashback.yaml", flashback)
	writeFile(t, dir, "three-act.yml", "name: Classic Three Act\nacts:\n  - key: act_1\n  - key: act_2\n  - key: act_3\n")
	writeFile(t, dir, "README.md", "not a template")

	c, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(list))
	}
	if list[0].ID != "three-act" || list[1].ID != "flashback" {
		t.Fatalf("expected templates sorted by name with id from filename, got %q, %q", list[0].ID, list[1].ID)
	}

	tpl, err := c.Get("flashback")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	keys := tpl.ChronologicalKeys()
	if len(keys) != 3 || keys[0] != "past" || keys[1] != "bridge" || keys[2] != "present" {
		t.Fatalf("unexpected chronological keys %v", keys)
	}
	if act, _ := tpl.Act("past"); act.Weight != 2 {
		t.Fatalf("expected weight 2, got %v", act.Weight)
	}

	tpl.Acts[0].Name = "mutated"
	again, _ := c.Get("flashback")
	if again.Acts[0].Name != "Present Day" {
		t.Fatalf("expected catalog entries to be isolated from callers")
	}
}

func TestGetUnknownTemplate(t *testing.T) {
	c, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("expected missing dir to yield empty catalog, got %v", err)
	}
	if _, err := c.Get("nope"); !errors.Is(err, apperrors.ErrTemplateMissing) {
		t.Fatalf("expected template missing, got %v", err)
	}
}

func TestLoadRejectsInvalidTemplates(t *testing.T) {
	tests := map[string]string{
		"no acts":       "id: empty\nname: Empty\n",
		"duplicate key": "id: dup\nacts:\n  - key: a\n  - key: a\n",
		"missing key":   "id: nokey\nacts:\n  - name: Nameless\n",
	}
	for name, content := range tests {
		dir := t.TempDir()
		writeFile(t, dir, "bad.yaml", content)
		if _, err := Load(context.Background(), dir); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
