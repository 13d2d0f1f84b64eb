package entity

import "sort"

// TemplateAct 模板中的一幕
type TemplateAct struct {
	Key         string `yaml:"key" json:"key"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	// ChronologicalOrder 故事时间线上的先后顺序，可与声明顺序不同（如倒叙开场）
	ChronologicalOrder int `yaml:"chronological_order" json:"chronologicalOrder"`
	// Weight 剧情点预算分配权重
	Weight float64 `yaml:"weight" json:"weight,omitempty"`
}

// Template 剧本结构模板
type Template struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description,omitempty"`
	Category    string        `yaml:"category" json:"category,omitempty"`
	Acts        []TemplateAct `yaml:"acts" json:"acts"`
}

// Act 按 key 查找模板幕
func (t *Template) Act(key string) (TemplateAct, bool) {
	if t == nil {
		return TemplateAct{}, false
	}
	for _, a := range t.Acts {
		if a.Key == key {
			return a, true
		}
	}
	return TemplateAct{}, false
}

// ChronologicalKeys 按时间线顺序返回幕 key；未声明顺序的幕按声明位置排序
func (t *Template) ChronologicalKeys() []string {
	if t == nil {
		return nil
	}
	type ranked struct {
		key   string
		order int
	}
	acts := make([]ranked, len(t.Acts))
	for i, a := range t.Acts {
		order := a.ChronologicalOrder
		if order <= 0 {
			order = i + 1
		}
		acts[i] = ranked{key: a.Key, order: order}
	}
	sort.SliceStable(acts, func(i, j int) bool { return acts[i].order < acts[j].order })

	keys := make([]string, len(acts))
	for i, a := range acts {
		keys[i] = a.key
	}
	return keys
}

// Clone 深拷贝模板
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Acts = append([]TemplateAct(nil), t.Acts...)
	return &cp
}
