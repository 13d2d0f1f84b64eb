// Package entity 定义领域实体
package entity

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WizardStep 向导步骤
type WizardStep string

const (
	StepStory      WizardStep = "story"
	StepTemplate   WizardStep = "template"
	StepStructure  WizardStep = "structure"
	StepPlotPoints WizardStep = "plot_points"
	StepScenes     WizardStep = "scenes"
	StepDialogue   WizardStep = "dialogue"
	StepScript     WizardStep = "script"
)

// WizardSteps 按向导顺序排列的步骤
var WizardSteps = []WizardStep{
	StepStory, StepTemplate, StepStructure, StepPlotPoints, StepScenes, StepDialogue, StepScript,
}

// Index 返回步骤序号，未知步骤返回 -1
func (s WizardStep) Index() int {
	for i, step := range WizardSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// Valid 检查是否为已知步骤
func (s WizardStep) Valid() bool {
	return s.Index() >= 0
}

// StoryConcept 故事概念（向导第一步的输入）
type StoryConcept struct {
	Title      string   `json:"title"`
	Logline    string   `json:"logline,omitempty"`
	Characters string   `json:"characters,omitempty"`
	Genre      string   `json:"genre,omitempty"`
	Tone       string   `json:"tone,omitempty"`
	Influences []string `json:"influences,omitempty"`
}

// ProjectState 剧本项目状态（单个控制台进程内唯一的活动项目）
type ProjectState struct {
	ProjectPath      string       `json:"projectPath"`
	Username         string       `json:"username,omitempty"`
	CurrentStep      WizardStep   `json:"currentStep"`
	SelectedTemplate string       `json:"selectedTemplate,omitempty"`
	Template         *Template    `json:"templateData,omitempty"`
	StoryInput       StoryConcept `json:"storyInput"`

	Structure      map[string]Act `json:"generatedStructure"`
	StructureOrder []string       `json:"structureOrder,omitempty"`

	PlotPoints map[string][]string `json:"plotPoints"`
	Scenes     map[string][]Scene  `json:"generatedScenes"`
	Dialogue   map[string]string   `json:"generatedDialogues"`

	CreativeDirections CreativeDirections `json:"creativeDirections"`

	SelectedModel          string          `json:"selectedModel,omitempty"`
	TotalPlotPoints        int             `json:"totalPlotPoints,omitempty"`
	ManualPlotPointTargets map[string]bool `json:"manualPlotPointTargets,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProjectState 创建空项目状态
func NewProjectState(username string) *ProjectState {
	now := time.Now()
	p := &ProjectState{
		Username:    username,
		CurrentStep: StepStory,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.Normalize()
	return p
}

// Normalize 补齐空集合并修正 StructureOrder（反序列化后调用）
func (p *ProjectState) Normalize() {
	if p.Structure == nil {
		p.Structure = map[string]Act{}
	}
	if p.PlotPoints == nil {
		p.PlotPoints = map[string][]string{}
	}
	if p.Scenes == nil {
		p.Scenes = map[string][]Scene{}
	}
	if p.Dialogue == nil {
		p.Dialogue = map[string]string{}
	}
	if p.ManualPlotPointTargets == nil {
		p.ManualPlotPointTargets = map[string]bool{}
	}
	p.CreativeDirections.ensure()
	if p.CurrentStep == "" {
		p.CurrentStep = StepStory
	}

	// 去掉不存在的 key，并把缺失的 key 以字典序追加到末尾
	seen := make(map[string]bool, len(p.StructureOrder))
	order := p.StructureOrder[:0:0]
	for _, key := range p.StructureOrder {
		if _, ok := p.Structure[key]; ok && !seen[key] {
			seen[key] = true
			order = append(order, key)
		}
	}
	var missing []string
	for key := range p.Structure {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	p.StructureOrder = append(order, missing...)
}

// HasAct 检查幕是否存在
func (p *ProjectState) HasAct(actKey string) bool {
	_, ok := p.Structure[actKey]
	return ok
}

// Title 返回项目标题
func (p *ProjectState) Title() string {
	return p.StoryInput.Title
}

// Touch 更新修改时间
func (p *ProjectState) Touch() {
	p.UpdatedAt = time.Now()
}

// Clone 深拷贝项目状态
func (p *ProjectState) Clone() *ProjectState {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Template != nil {
		cp.Template = p.Template.Clone()
	}
	cp.StoryInput.Influences = append([]string(nil), p.StoryInput.Influences...)

	cp.Structure = make(map[string]Act, len(p.Structure))
	for k, v := range p.Structure {
		cp.Structure[k] = v
	}
	cp.StructureOrder = append([]string(nil), p.StructureOrder...)

	cp.PlotPoints = make(map[string][]string, len(p.PlotPoints))
	for k, v := range p.PlotPoints {
		cp.PlotPoints[k] = append([]string(nil), v...)
	}
	cp.Scenes = make(map[string][]Scene, len(p.Scenes))
	for k, v := range p.Scenes {
		scenes := make([]Scene, len(v))
		for i, s := range v {
			scenes[i] = s.Clone()
		}
		cp.Scenes[k] = scenes
	}
	cp.Dialogue = make(map[string]string, len(p.Dialogue))
	for k, v := range p.Dialogue {
		cp.Dialogue[k] = v
	}
	cp.ManualPlotPointTargets = make(map[string]bool, len(p.ManualPlotPointTargets))
	for k, v := range p.ManualPlotPointTargets {
		cp.ManualPlotPointTargets[k] = v
	}
	cp.CreativeDirections = p.CreativeDirections.Clone()
	return &cp
}

// ProjectSummary 项目列表项
type ProjectSummary struct {
	ProjectPath string     `json:"projectPath"`
	Title       string     `json:"title"`
	CurrentStep WizardStep `json:"currentStep"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Summary 生成列表摘要
func (p *ProjectState) Summary() ProjectSummary {
	return ProjectSummary{
		ProjectPath: p.ProjectPath,
		Title:       p.Title(),
		CurrentStep: p.CurrentStep,
		UpdatedAt:   p.UpdatedAt,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify 把标题转换为小写连字符形式
func Slugify(title string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// NewProjectPath 由标题生成唯一的 projectPath
func NewProjectPath(title string) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "untitled"
	}
	return slug + "-" + uuid.NewString()[:8]
}
