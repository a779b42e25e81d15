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

	"github.com/zintix-labs/marketlab/spec"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// priceScore 計算價格軸原始分（0~1）。
//
// 有動態期望（上一回合市場行為的平滑結果）時走期望分支：
// 偏離期望越遠分越低，供給越稀疏容忍帶越寬。否則走情境價格帶分支：
// 帶內越便宜越高分，品質超標可放寬可接受的上緣（溢價有上限）。
// 兩個分支共用傾銷懲罰：定價低於成本地板時按比例平滑壓分。
func priceScore(seg *spec.SegmentSetting, tn *spec.TuningSetting, price, quality float64, exp *PriceExpectation) float64 {
	if price <= 0 {
		return 0
	}

	var s float64
	if exp != nil && exp.Expected > 0 {
		width := exp.Expected * (0.25 + 0.25*clamp01(exp.Underserved))
		dev := math.Abs(price - exp.Expected)
		s = 1 - dev/width
	} else {
		ratio := quality / seg.QualityExpectation
		premium := math.Min(tn.MaxPricePremium, math.Max(0, ratio-1)*tn.PremiumPerQuality)
		upper := seg.PriceMax * (1 + premium)
		switch {
		case price < seg.PriceMin:
			// 帶下緣以下：平滑遞減，不做斷崖
			s = 1 - (seg.PriceMin-price)/seg.PriceMin*tn.FloorPenaltyRate
		case price <= upper:
			s = 1 - 0.6*(price-seg.PriceMin)/(upper-seg.PriceMin)
		default:
			s = 0.4 - (price-upper)/upper
		}
	}

	// 傾銷懲罰：低於成本地板的定價不可信
	if floor := seg.Costs.Floor(); floor > 0 && price < floor {
		s *= price / floor
	}
	return clamp01(s)
}

// qualityScore 計算品質軸原始分：未達期望按比例，超標部分開根號遞減並封頂。
func qualityScore(seg *spec.SegmentSetting, tn *spec.TuningSetting, quality float64) float64 {
	ratio := quality / seg.QualityExpectation
	if ratio <= 0 {
		return 0
	}
	if ratio <= 1 {
		return ratio
	}
	return math.Min(tn.QualityCap, 1+math.Sqrt(ratio-1))
}

// brandScore 計算品牌軸原始分：開根號壓縮，極端值小幅修正。
func brandScore(brand float64) float64 {
	if brand <= 0 {
		return 0
	}
	if brand > 1 {
		brand = 1
	}
	s := math.Sqrt(brand)
	switch {
	case brand >= 0.8:
		s *= 1.1 // 臨界口碑效應
	case brand < 0.2:
		s *= 0.9
	}
	return s
}

// esgScore 計算 ESG 軸原始分：線性正規化後乘上永續溢價。
func esgScore(tn *spec.TuningSetting, esg, premium float64) float64 {
	if esg <= 0 {
		return 0
	}
	norm := esg / tn.ESG.MaxScore
	if norm > 1 {
		norm = 1
	}
	if premium < 1 {
		premium = 1
	}
	return norm * premium
}

// featureScore 計算規格軸原始分。
//
// 區隔有偏好向量且產品有規格向量時做加權內積（各取前 min 長度）；
// 否則退回傳統單一刻度（FeatureLevel 0~10）。超標部分與品質軸同樣處理。
func featureScore(seg *spec.SegmentSetting, tn *spec.TuningSetting, p *ProductSnapshot) float64 {
	var raw float64
	if len(seg.FeaturePrefs) > 0 && len(p.Features) > 0 {
		total, dot := 0.0, 0.0
		for i, w := range seg.FeaturePrefs {
			total += w
			if i < len(p.Features) {
				dot += w * clamp01(p.Features[i])
			}
		}
		if total > 0 {
			raw = dot / total
		}
	} else {
		raw = clamp01(p.FeatureLevel / 10)
	}
	if raw <= 1 {
		return raw
	}
	return math.Min(tn.QualityCap, 1+math.Sqrt(raw-1))
}

// flexCriteriaMet 回傳彈性判準的達標數（0~4）：
// 研發投入、品牌強度、製造效率、品質產品線數。
func flexCriteriaMet(t *TeamInput, tn *spec.TuningSetting) int {
	met := 0
	if t.RnDBudget >= tn.FlexMinRnDBudget {
		met++
	}
	if t.Brand >= tn.FlexMinBrand {
		met++
	}
	if t.maxEfficiency() >= tn.FlexMinEfficiency {
		met++
	}
	if t.QualityLines >= tn.FlexMinQualityLines {
		met++
	}
	return met
}

// scorePosition 計算一支隊伍在單一區隔的基礎分（競爭動態修正前）。
func scorePosition(seg *spec.SegmentSetting, tn *spec.TuningSetting, t *TeamInput, p *ProductSnapshot, premium float64, exp *PriceExpectation) TeamPosition {
	pos := TeamPosition{
		TeamID:     t.TeamID,
		Segment:    seg.Name,
		HasProduct: true,
	}

	w := seg.Weights
	pos.PriceScore = w.Price * priceScore(seg, tn, p.Price, p.Quality, exp)
	pos.QualityScore = w.Quality * qualityScore(seg, tn, p.Quality)
	pos.BrandScore = w.Brand * brandScore(t.Brand)
	pos.ESGScore = w.ESG * esgScore(tn, t.ESGScore, premium)
	pos.FeatureScore = w.Feature * featureScore(seg, tn, p)

	base := pos.PriceScore + pos.QualityScore + pos.BrandScore + pos.ESGScore + pos.FeatureScore

	// 品質差額紅利：與原始品質成正比的小額加分
	base += p.Quality * tn.QualityBonusRate

	// 彈性紅利：全達標與差一項達標各一檔
	switch flexCriteriaMet(t, tn) {
	case 4:
		base *= 1 + tn.FlexBonusFull
	case 3:
		base *= 1 + tn.FlexBonusPartial
	}

	pos.BaseScore = base
	pos.Score = base
	return pos
}
