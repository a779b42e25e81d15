// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package market

import (
	"github.com/zintix-labs/marketlab/spec"
)

// applyRubberband 套用防失控機制。未明確開啟的情境一律不介入。
//
// 以「跨全部區隔的平均份額」衡量強弱：低於全體平均的 LaggingBand 倍吃加成、
// 高於 LeadingBand 倍吃拖曳，帶內不動。調整直接乘在每個區隔的份額上，
// 刻意不重新正規化——份額總和偏離 1 表示市場留了一塊給追趕者。
//
// 回傳 teamID -> "boost"/"drag"，空 map 表示本回合沒有介入。
func applyRubberband(rb spec.RubberbandSetting, round int, segments []string, byTeam map[string][]*TeamPosition) map[string]string {
	if !rb.Enabled || round < rb.MinRound || len(byTeam) < 2 {
		return nil
	}

	segCount := float64(len(segments))
	if segCount == 0 {
		return nil
	}

	avg := make(map[string]float64, len(byTeam))
	total := 0.0
	for id, positions := range byTeam {
		sum := 0.0
		for _, p := range positions {
			sum += p.Share
		}
		avg[id] = sum / segCount
		total += avg[id]
	}
	mean := total / float64(len(byTeam))
	if mean <= 0 {
		return nil
	}

	adjusted := map[string]string{}
	for id, a := range avg {
		var factor float64
		switch {
		case a < mean*rb.LaggingBand:
			factor = rb.BoostFactor
			adjusted[id] = "boost"
		case a > mean*rb.LeadingBand:
			factor = rb.DragFactor
			adjusted[id] = "drag"
		default:
			continue
		}
		for _, p := range byTeam[id] {
			p.Share *= factor
		}
	}
	return adjusted
}
