package entity

// DirectionLevel 创作方向所属层级
type DirectionLevel string

const (
	DirectionActs       DirectionLevel = "acts"
	DirectionPlotPoints DirectionLevel = "plotPoints"
	DirectionScenes     DirectionLevel = "scenes"
)

// Valid 检查层级是否合法
func (l DirectionLevel) Valid() bool {
	switch l {
	case DirectionActs, DirectionPlotPoints, DirectionScenes:
		return true
	}
	return false
}

// CreativeDirections 用户附加在各层级上的创作指引
// acts 以幕 key 为键，plotPoints 以 "{actKey}_{index}" 为键，scenes 以场景标识为键
type CreativeDirections struct {
	Acts       map[string]string `json:"acts"`
	PlotPoints map[string]string `json:"plotPoints"`
	Scenes     map[string]string `json:"scenes"`
}

func (d *CreativeDirections) ensure() {
	if d.Acts == nil {
		d.Acts = map[string]string{}
	}
	if d.PlotPoints == nil {
		d.PlotPoints = map[string]string{}
	}
	if d.Scenes == nil {
		d.Scenes = map[string]string{}
	}
}

func (d *CreativeDirections) bucket(level DirectionLevel) map[string]string {
	d.ensure()
	switch level {
	case DirectionActs:
		return d.Acts
	case DirectionPlotPoints:
		return d.PlotPoints
	case DirectionScenes:
		return d.Scenes
	}
	return nil
}

// Get 读取创作方向，缺省为空字符串
func (d *CreativeDirections) Get(level DirectionLevel, key string) string {
	if b := d.bucket(level); b != nil {
		return b[key]
	}
	return ""
}

// Set 写入创作方向，空文本视为删除
func (d *CreativeDirections) Set(level DirectionLevel, key, text string) bool {
	b := d.bucket(level)
	if b == nil {
		return false
	}
	if text == "" {
		delete(b, key)
	} else {
		b[key] = text
	}
	return true
}

// Clone 深拷贝
func (d CreativeDirections) Clone() CreativeDirections {
	cp := CreativeDirections{
		Acts:       make(map[string]string, len(d.Acts)),
		PlotPoints: make(map[string]string, len(d.PlotPoints)),
		Scenes:     make(map[string]string, len(d.Scenes)),
	}
	for k, v := range d.Acts {
		cp.Acts[k] = v
	}
	for k, v := range d.PlotPoints {
		cp.PlotPoints[k] = v
	}
	for k, v := range d.Scenes {
		cp.Scenes[k] = v
	}
	return cp
}
