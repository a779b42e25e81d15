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
	"gonum.org/v1/gonum/stat"

	"github.com/zintix-labs/marketlab/spec"
)

// nextExpectations 以指數平滑更新每個區隔的動態價格期望，供下一回合的
// 價格評分使用。
//
// 每區隔取本回合上市產品的平均定價作為觀測值；無人進場時以價格帶中點
// 代替，並把 Underserved 拉滿。期望受通膨天花板封頂，避免平滑值被
// 極端定價拖著跑。
func nextExpectations(set *spec.MarketSetting, prev map[string]PriceExpectation, teams []TeamInput) map[string]PriceExpectation {
	out := make(map[string]PriceExpectation, len(set.Segments))
	alpha := set.Tuning.Pricing.Alpha

	for i := range set.Segments {
		seg := &set.Segments[i]

		var prices []float64
		for j := range teams {
			if p := teams[j].launchedIn(seg.Name); p != nil && p.Price > 0 {
				prices = append(prices, p.Price)
			}
		}

		mid := (seg.PriceMin + seg.PriceMax) / 2
		var observed, underserved float64
		if len(prices) == 0 {
			observed = mid
			underserved = 1
		} else {
			observed = stat.Mean(prices, nil)
			// 分母是可能的最大競爭者數：情境的 max_teams；
			// 未設上限的情境退回本回合實際隊伍數
			maxc := set.MaxTeams
			if maxc <= 0 {
				maxc = len(teams)
			}
			underserved = 1 - float64(len(prices))/float64(maxc)
			if underserved < 0 {
				underserved = 0
			}
		}

		expected := observed
		if p, ok := prev[seg.Name]; ok && p.Expected > 0 {
			expected = p.Expected*(1-alpha) + observed*alpha
		}

		ceiling := seg.PriceMax * (1 + set.Economy.Inflation) * set.Tuning.Pricing.CeilingMultiplier
		if expected > ceiling {
			expected = ceiling
		}

		out[seg.Name] = PriceExpectation{Expected: expected, Underserved: underserved}
	}
	return out
}
