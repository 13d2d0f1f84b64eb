package wizard

import (
	"context"
	"fmt"
	"strings"

	"screenplay-wizard/internal/application/consistency"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/pkg/logger"
)

const missingDialogue = "[DIALOGUE NOT GENERATED]"

// Script 导出的最终剧本
type Script struct {
	Title           string   `json:"title"`
	Text            string   `json:"text"`
	Scenes          int      `json:"scenes"`
	MissingDialogue []string `json:"missingDialogue,omitempty"`
}

// sceneHeading 场景标题行 "INT./EXT. LOCATION - TIME"；地点已带内外景前缀时沿用
func sceneHeading(scene entity.Scene) string {
	location := strings.ToUpper(strings.TrimSpace(scene.Location))
	if location == "" {
		location = strings.ToUpper(strings.TrimSpace(scene.Title))
	}
	prefix := "INT./EXT. "
	for _, p := range []string{"INT./EXT.", "INT.", "EXT.", "I/E."} {
		if strings.HasPrefix(location, p) {
			prefix = ""
			break
		}
	}
	heading := prefix + location
	if t := strings.ToUpper(strings.TrimSpace(scene.TimeOfDay)); t != "" {
		heading += " - " + t
	}
	return heading
}

// ExportScript 按时间线与层级编号导出剧本，缺少对白的场景会被标注
func (c *Coordinator) ExportScript(ctx context.Context) (*Script, error) {
	if err := c.requireProject(); err != nil {
		return nil, err
	}

	script := &Script{}
	var sb strings.Builder
	c.tree.Read(func(state *entity.ProjectState) {
		script.Title = state.Title()
		sb.WriteString(strings.ToUpper(script.Title))
		sb.WriteString("\n\n")
		if state.StoryInput.Logline != "" {
			sb.WriteString(state.StoryInput.Logline)
			sb.WriteString("\n\n")
		}

		act := 0
		for _, ref := range consistency.NumberedScenes(state) {
			if ref.Act != act {
				act = ref.Act
				sb.WriteString(fmt.Sprintf("ACT %d: %s\n\n", act, strings.ToUpper(actTitle(ref.ActKey, state.Structure[ref.ActKey]))))
			}
			scene := state.Scenes[ref.ActKey][ref.Index]
			id := entity.SceneID(ref.ActKey, ref.Index)

			sb.WriteString(fmt.Sprintf("%s %s\n", ref.Number, sceneHeading(scene)))
			if scene.Description != "" {
				sb.WriteString(scene.Description)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")

			if text := strings.TrimSpace(state.Dialogue[id]); text != "" {
				sb.WriteString(text)
			} else {
				sb.WriteString(missingDialogue)
				script.MissingDialogue = append(script.MissingDialogue, id)
			}
			sb.WriteString("\n\n")
			script.Scenes++
		}
	})
	script.Text = sb.String()

	logger.Info(ctx, "script exported",
		"scenes", script.Scenes,
		"missing_dialogue", len(script.MissingDialogue),
	)
	return script, nil
}
