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
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/zintix-labs/marketlab/spec"
)

// softmaxShares 以溫度 softmax 把分數轉為份額。
//
// 分數先乘 scale 折算到溫度尺度，再減去最大值後進指數（溢位安全：
// 指數引數必 <= 0）。零分者份額為 0；全零時均分。回傳總和恰為 1。
func softmaxShares(scores []float64, temperature, scale float64) []float64 {
	n := len(scores)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	maxS := math.Inf(-1)
	anyPos := false
	for _, s := range scores {
		if s > 0 {
			anyPos = true
			if s > maxS {
				maxS = s
			}
		}
	}
	if !anyPos {
		// 無人得分：均分
		for i := range out {
			out[i] = 1 / float64(n)
		}
		return out
	}

	for i, s := range scores {
		if s <= 0 {
			continue
		}
		out[i] = math.Exp((s - maxS) * scale / temperature)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// segmentDemand 計算單一區隔的本回合需求（件數，浮點）。
//
// 基礎需求 × 總經乘數 × 區隔成長複利 × (1 + 噪音)。
// 噪音由呼叫端從市場亂數流取出，每區隔恰一次。
func segmentDemand(seg *spec.SegmentSetting, econ *spec.EconomySetting, round int, noise float64) float64 {
	d := seg.BaseDemand * econ.DemandMultiplier()
	d *= math.Pow(1+seg.GrowthRate, float64(round-1))
	d *= 1 + noise
	if d < 0 {
		return 0
	}
	return d
}

// settleSegment 把份額結算成件數、營收與保固成本（就地寫入 positions）。
// 件數無條件捨去：賣不出去的尾數不存在。
func settleSegment(positions []*TeamPosition, teams map[string]*TeamInput, demand float64, warrantyRate float64) {
	for _, p := range positions {
		if p.Share <= 0 {
			continue
		}
		t := teams[p.TeamID]
		prod := t.launchedIn(p.Segment)
		if prod == nil {
			continue
		}
		p.Units = int(math.Floor(demand * p.Share))
		p.Revenue = float64(p.Units) * prod.Price
		p.WarrantyCost = p.Revenue * t.avgDefectRate() * warrantyRate
	}
}
