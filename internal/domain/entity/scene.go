package entity

import (
	"strconv"
	"strings"
)

// Act 幕
type Act struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	PlotPointsTarget int    `json:"plotPointsTarget,omitempty"`
}

// Scene 场景
type Scene struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	TimeOfDay   string `json:"time_of_day,omitempty"`
	// PlotPointIndex 所属剧情点下标，nil 表示旧数据没有记录归属
	PlotPointIndex *int   `json:"plotPointIndex,omitempty"`
	PlotPoint      string `json:"plotPoint,omitempty"`
}

// Clone 拷贝场景（PlotPointIndex 不共享）
func (s Scene) Clone() Scene {
	if s.PlotPointIndex != nil {
		idx := *s.PlotPointIndex
		s.PlotPointIndex = &idx
	}
	return s
}

// BelongsTo 检查场景是否属于指定剧情点
func (s Scene) BelongsTo(plotPointIndex int) bool {
	return s.PlotPointIndex != nil && *s.PlotPointIndex == plotPointIndex
}

// SceneID 构造场景标识 "{structureKey}-{globalIndex}"
func SceneID(actKey string, index int) string {
	return actKey + "-" + strconv.Itoa(index)
}

// ParseSceneID 解析场景标识，以最后一个连字符分隔（幕 key 本身可含连字符）；
// 非规范的下标写法视为无效
func ParseSceneID(id string) (actKey string, index int, ok bool) {
	pos := strings.LastIndex(id, "-")
	if pos <= 0 || pos == len(id)-1 {
		return "", 0, false
	}
	suffix := id[pos+1:]
	index, err := strconv.Atoi(suffix)
	if err != nil || index < 0 || strconv.Itoa(index) != suffix {
		return "", 0, false
	}
	return id[:pos], index, true
}

// PlotPointKey 剧情点创作方向的 key "{actKey}_{plotPointIndex}"
func PlotPointKey(actKey string, plotPointIndex int) string {
	return actKey + "_" + strconv.Itoa(plotPointIndex)
}

// SceneRef 指向某个场景的引用（诊断与告警使用）
type SceneRef struct {
	ActKey         string `json:"actKey"`
	Index          int    `json:"index"`
	SceneID        string `json:"sceneId"`
	Title          string `json:"title"`
	PlotPointIndex *int   `json:"plotPointIndex,omitempty"`
}

// IntPtr 返回 int 指针
func IntPtr(v int) *int {
	return &v
}
