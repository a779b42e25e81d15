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

// Package demo_strategies 提供示範用的隊伍策略（TeamProvider）。
//
// 這些策略刻意寫得簡單：每支隊伍有固定性格（殺價、堆品質、打品牌、賭 ESG），
// 回合間只做小幅調整。用途是讓 demo server / CLI 一開箱就有東西可跑，
// 以及讓平衡模擬有「不同性格互咬」的基準盤。
package demo_strategies

import (
	"github.com/zintix-labs/marketlab"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
)

// archetype 是一支示範隊伍的固定性格。
type archetype struct {
	id       string
	brand    float64
	esg      float64
	rnd      float64
	pricePos float64 // 0 = 貼著價格帶下緣, 1 = 貼著上緣
	quality  float64 // 相對於區隔 QualityExpectation 的倍率
}

var archetypes = []archetype{
	{id: "undercut", brand: 0.30, esg: 320, rnd: 200, pricePos: 0.15, quality: 0.85},
	{id: "balanced", brand: 0.45, esg: 480, rnd: 600, pricePos: 0.45, quality: 1.00},
	{id: "premium", brand: 0.70, esg: 560, rnd: 900, pricePos: 0.80, quality: 1.15},
	{id: "evergreen", brand: 0.50, esg: 820, rnd: 700, pricePos: 0.55, quality: 1.05},
}

// Rivals 回傳固定四性格對戰的 TeamProvider。
//
// 調整邏輯（刻意保守）：
//   - 上一回合被 drag 的隊伍降價 3%，被 boost 的隊伍漲價 2%。
//   - 其餘輸入固定，讓長期統計反映性格差異而不是策略雜訊。
func Rivals(ms *spec.MarketSetting) marketlab.TeamProvider {
	base := make([][]market.ProductSnapshot, len(archetypes))
	for i, a := range archetypes {
		products := make([]market.ProductSnapshot, 0, len(ms.Segments))
		for _, seg := range ms.Segments {
			products = append(products, market.ProductSnapshot{
				Segment: seg.Name,
				Price:   seg.PriceMin + a.pricePos*(seg.PriceMax-seg.PriceMin),
				Quality: seg.QualityExpectation * a.quality,
				Status:  market.StatusLaunched,
			})
		}
		base[i] = products
	}

	return func(round int, prev *market.RoundResult) []market.TeamInput {
		teams := make([]market.TeamInput, 0, len(archetypes))
		for i, a := range archetypes {
			products := make([]market.ProductSnapshot, len(base[i]))
			copy(products, base[i])
			if prev != nil {
				if tr := prev.Team(a.id); tr != nil {
					adj := 1.0
					switch tr.Rubberband {
					case "drag":
						adj = 0.97
					case "boost":
						adj = 1.02
					}
					if adj != 1.0 {
						for p := range products {
							seg := ms.Segment(products[p].Segment)
							price := products[p].Price * adj
							if seg != nil {
								price = min(max(price, seg.PriceMin), seg.PriceMax)
							}
							products[p].Price = price
						}
					}
				}
			}
			teams = append(teams, market.TeamInput{
				TeamID:       a.id,
				Brand:        a.brand,
				ESGScore:     a.esg,
				RnDBudget:    a.rnd,
				QualityLines: 2,
				Products:     products,
			})
		}
		return teams
	}
}

// Static 回傳每回合完全固定的 TeamProvider（純函數，天然併發安全）。
// 適合拿來做最乾淨的再現性驗證。
func Static(ms *spec.MarketSetting) marketlab.TeamProvider {
	provider := Rivals(ms)
	fixed := provider(1, nil)
	return func(round int, prev *market.RoundResult) []market.TeamInput {
		return fixed
	}
}
