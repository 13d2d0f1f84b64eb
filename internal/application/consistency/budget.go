package consistency

import (
	"math"

	"screenplay-wizard/internal/domain/entity"
)

// BudgetAct 参与剧情点预算分配的幕
type BudgetAct struct {
	Key    string
	Weight float64
	// Manual 用户手动设定过目标，分配时保持 Target 不变
	Manual bool
	Target int
}

// DistributePlotPoints 将剧情点总数分配到各幕。
// 手动幕保持原值；其余幕按权重比例四舍五入，每幕至少 1 个，
// 舍入误差由最后一个自动幕吸收。这是可替换的启发式，总和在最小值约束下可能超过 total。
func DistributePlotPoints(acts []BudgetAct, total int) map[string]int {
	targets := make(map[string]int, len(acts))
	remaining := total
	var auto []BudgetAct
	for _, a := range acts {
		if a.Manual {
			t := a.Target
			if t < 1 {
				t = 1
			}
			targets[a.Key] = t
			remaining -= t
			continue
		}
		auto = append(auto, a)
	}
	if len(auto) == 0 {
		return targets
	}

	weight := func(a BudgetAct) float64 {
		if a.Weight <= 0 {
			return 1
		}
		return a.Weight
	}
	var sum float64
	for _, a := range auto {
		sum += weight(a)
	}

	assigned := 0
	for _, a := range auto[:len(auto)-1] {
		share := int(math.Round(float64(remaining) * weight(a) / sum))
		if share < 1 {
			share = 1
		}
		targets[a.Key] = share
		assigned += share
	}
	last := remaining - assigned
	if last < 1 {
		last = 1
	}
	targets[auto[len(auto)-1].Key] = last
	return targets
}

// BudgetActs 按时间线顺序构造预算输入
func BudgetActs(state *entity.ProjectState) []BudgetAct {
	order := ChronologicalActKeys(state)
	acts := make([]BudgetAct, 0, len(order))
	for _, key := range order {
		var w float64
		if ta, ok := state.Template.Act(key); ok {
			w = ta.Weight
		}
		acts = append(acts, BudgetAct{
			Key:    key,
			Weight: w,
			Manual: state.ManualPlotPointTargets[key],
			Target: state.Structure[key].PlotPointsTarget,
		})
	}
	return acts
}

// PlotPointBudget 计算当前项目在给定总数下的分配结果
func (s *Synchronizer) PlotPointBudget(total int) map[string]int {
	var targets map[string]int
	s.reader.Read(func(state *entity.ProjectState) {
		targets = DistributePlotPoints(BudgetActs(state), total)
	})
	return targets
}
