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

package spec

import (
	"fmt"

	"github.com/zintix-labs/marketlab/errs"
)

// TuningSetting 集中全部競爭動態與配額的調校常數。
//
// 欄位留 0 表示採用預設值（init 會補上）；預設值與固定樣本測試綁定，
// 調整任何一項都等於改變引擎行為版本。
type TuningSetting struct {
	// SoftmaxTemperature 控制份額分配的銳利度：越小贏者拿越多。
	// 分數以 ScoreScale 折算到溫度尺度後才進入指數。
	SoftmaxTemperature float64 `yaml:"softmax_temperature" json:"softmax_temperature"`
	ScoreScale         float64 `yaml:"score_scale"         json:"score_scale"`

	// 擁擠懲罰：區隔內已上市產品數超過門檻後，每多一件打一折扣。
	CrowdingThreshold int     `yaml:"crowding_threshold" json:"crowding_threshold"`
	CrowdingPenalty   float64 `yaml:"crowding_penalty"   json:"crowding_penalty"`

	// 先行者紅利：初始幅度與線性衰減回合數。
	FirstMoverBonus  float64 `yaml:"first_mover_bonus"  json:"first_mover_bonus"`
	FirstMoverRounds int     `yaml:"first_mover_rounds" json:"first_mover_rounds"`

	// 軍備競賽：率先完成一項技術的一次性分數紅利。
	ArmsRaceBonus float64 `yaml:"arms_race_bonus" json:"arms_race_bonus"`

	// 品牌侵蝕：領先者分數領先超過門檻（相對值）即觸發，侵蝕幅度由敏感度縮放。
	ErosionThreshold   float64 `yaml:"erosion_threshold"   json:"erosion_threshold"`
	ErosionSensitivity float64 `yaml:"erosion_sensitivity" json:"erosion_sensitivity"`

	// DemandNoise 是每區隔需求的均勻噪音半幅（0.05 = ±5%）。
	DemandNoise float64 `yaml:"demand_noise" json:"demand_noise"`

	// 品質軸：超過期望的部分開根號遞減，乘數上限 QualityCap；
	// QualityBonusRate 為與原始品質成正比的小額加分。
	QualityCap       float64 `yaml:"quality_cap"        json:"quality_cap"`
	QualityBonusRate float64 `yaml:"quality_bonus_rate" json:"quality_bonus_rate"`

	// 價格軸：品質超過期望時放寬可接受價格上限，溢價有上限。
	MaxPricePremium   float64 `yaml:"max_price_premium"   json:"max_price_premium"`
	PremiumPerQuality float64 `yaml:"premium_per_quality" json:"premium_per_quality"`
	// FloorPenaltyRate 控制低於成本地板定價的平滑懲罰斜率。
	FloorPenaltyRate float64 `yaml:"floor_penalty_rate" json:"floor_penalty_rate"`

	// 彈性紅利：全數達標與差一項達標的分數乘幅，以及四項判準的門檻。
	FlexBonusFull        float64 `yaml:"flex_bonus_full"         json:"flex_bonus_full"`
	FlexBonusPartial     float64 `yaml:"flex_bonus_partial"      json:"flex_bonus_partial"`
	FlexMinRnDBudget     float64 `yaml:"flex_min_rnd_budget"     json:"flex_min_rnd_budget"`
	FlexMinBrand         float64 `yaml:"flex_min_brand"          json:"flex_min_brand"`
	FlexMinEfficiency    float64 `yaml:"flex_min_efficiency"     json:"flex_min_efficiency"`
	FlexMinQualityLines  int     `yaml:"flex_min_quality_lines"  json:"flex_min_quality_lines"`

	// WarrantyCostRate 將 (營收 × 平均不良率) 折算成保固成本。
	WarrantyCostRate float64 `yaml:"warranty_cost_rate" json:"warranty_cost_rate"`

	Rubberband RubberbandSetting `yaml:"rubberband" json:"rubberband"`
	ESG        ESGSetting        `yaml:"esg"        json:"esg"`
	Pricing    PricingSetting    `yaml:"pricing"    json:"pricing"`
}

// RubberbandSetting 控制防失控機制：落後者加成、領先者拖曳。
// 明確開啟才會介入（Enabled 預設 false），避免情境作者在不知情下吃到修正。
type RubberbandSetting struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// MinRound 之前不介入，讓前期策略差異自然展開。
	MinRound int `yaml:"min_round" json:"min_round"`
	// 平均份額低於 mean×LaggingBand 的隊伍吃 BoostFactor；
	// 高於 mean×LeadingBand 的吃 DragFactor；帶內不動。
	LaggingBand float64 `yaml:"lagging_band" json:"lagging_band"`
	LeadingBand float64 `yaml:"leading_band" json:"leading_band"`
	BoostFactor float64 `yaml:"boost_factor" json:"boost_factor"`
	DragFactor  float64 `yaml:"drag_factor"  json:"drag_factor"`
}

// ESGSetting 控制低 ESG 分數的下行風險。
type ESGSetting struct {
	// Threshold 以下才有風險；罰率由 0 分的 MaxPenaltyRate 線性降到門檻處的 MinPenaltyRate。
	Threshold      float64 `yaml:"threshold"        json:"threshold"`
	MaxScore       float64 `yaml:"max_score"        json:"max_score"`
	MaxPenaltyRate float64 `yaml:"max_penalty_rate" json:"max_penalty_rate"`
	MinPenaltyRate float64 `yaml:"min_penalty_rate" json:"min_penalty_rate"`
}

// PricingSetting 控制動態價格期望的指數平滑與通膨天花板。
type PricingSetting struct {
	Alpha             float64 `yaml:"alpha"              json:"alpha"`
	CeilingMultiplier float64 `yaml:"ceiling_multiplier" json:"ceiling_multiplier"`
}

// init 為零值欄位補上預設，並檢查範圍。
func (ts *TuningSetting) init() error {
	if ts.SoftmaxTemperature == 0 {
		ts.SoftmaxTemperature = 4
	}
	if ts.ScoreScale == 0 {
		ts.ScoreScale = 0.4
	}
	if ts.CrowdingThreshold == 0 {
		ts.CrowdingThreshold = 3
	}
	if ts.CrowdingPenalty == 0 {
		ts.CrowdingPenalty = 0.05
	}
	if ts.FirstMoverBonus == 0 {
		ts.FirstMoverBonus = 0.2
	}
	if ts.FirstMoverRounds == 0 {
		ts.FirstMoverRounds = 3
	}
	if ts.ArmsRaceBonus == 0 {
		ts.ArmsRaceBonus = 0.05
	}
	if ts.ErosionThreshold == 0 {
		ts.ErosionThreshold = 0.20
	}
	if ts.ErosionSensitivity == 0 {
		ts.ErosionSensitivity = 0.5
	}
	if ts.DemandNoise == 0 {
		ts.DemandNoise = 0.05
	}
	if ts.QualityCap == 0 {
		ts.QualityCap = 1.2
	}
	if ts.QualityBonusRate == 0 {
		ts.QualityBonusRate = 0.05
	}
	if ts.MaxPricePremium == 0 {
		ts.MaxPricePremium = 0.3
	}
	if ts.PremiumPerQuality == 0 {
		ts.PremiumPerQuality = 0.5
	}
	if ts.FloorPenaltyRate == 0 {
		ts.FloorPenaltyRate = 2.0
	}
	if ts.FlexBonusFull == 0 {
		ts.FlexBonusFull = 0.10
	}
	if ts.FlexBonusPartial == 0 {
		ts.FlexBonusPartial = 0.05
	}
	if ts.FlexMinRnDBudget == 0 {
		ts.FlexMinRnDBudget = 500
	}
	if ts.FlexMinBrand == 0 {
		ts.FlexMinBrand = 0.3
	}
	if ts.FlexMinEfficiency == 0 {
		ts.FlexMinEfficiency = 0.6
	}
	if ts.FlexMinQualityLines == 0 {
		ts.FlexMinQualityLines = 2
	}
	if ts.WarrantyCostRate == 0 {
		ts.WarrantyCostRate = 0.5
	}

	rb := &ts.Rubberband
	if rb.MinRound == 0 {
		rb.MinRound = 3
	}
	if rb.LaggingBand == 0 {
		rb.LaggingBand = 0.5
	}
	if rb.LeadingBand == 0 {
		rb.LeadingBand = 2.0
	}
	if rb.BoostFactor == 0 {
		rb.BoostFactor = 1.15
	}
	if rb.DragFactor == 0 {
		rb.DragFactor = 0.92
	}

	esg := &ts.ESG
	if esg.Threshold == 0 {
		esg.Threshold = 300
	}
	if esg.MaxScore == 0 {
		esg.MaxScore = 1000
	}
	if esg.MaxPenaltyRate == 0 {
		esg.MaxPenaltyRate = 0.15
	}
	if esg.MinPenaltyRate == 0 {
		esg.MinPenaltyRate = 0.02
	}

	pr := &ts.Pricing
	if pr.Alpha == 0 {
		pr.Alpha = 0.3
	}
	if pr.CeilingMultiplier == 0 {
		pr.CeilingMultiplier = 1.1
	}

	return ts.valid()
}

func (ts *TuningSetting) valid() error {
	if ts.SoftmaxTemperature < 0 || ts.ScoreScale <= 0 {
		return errs.NewFatal(fmt.Sprintf("tuning err:invalid softmax params T=%v scale=%v", ts.SoftmaxTemperature, ts.ScoreScale))
	}
	if ts.CrowdingThreshold < 1 || ts.CrowdingPenalty < 0 || ts.CrowdingPenalty > 1 {
		return errs.NewFatal("tuning err:invalid crowding params")
	}
	if ts.FirstMoverRounds < 1 || ts.FirstMoverBonus < 0 {
		return errs.NewFatal("tuning err:invalid first mover params")
	}
	if ts.ErosionThreshold <= 0 || ts.ErosionSensitivity < 0 {
		return errs.NewFatal("tuning err:invalid erosion params")
	}
	if ts.DemandNoise < 0 || ts.DemandNoise >= 1 {
		return errs.NewFatal(fmt.Sprintf("tuning err:demand_noise out of [0,1): %v", ts.DemandNoise))
	}
	if ts.QualityCap < 1 {
		return errs.NewFatal("tuning err:quality_cap must be >= 1")
	}

	rb := ts.Rubberband
	if rb.LaggingBand >= rb.LeadingBand {
		return errs.NewFatal("tuning err:rubberband bands out of order")
	}
	if rb.BoostFactor < 1 || rb.DragFactor > 1 || rb.DragFactor <= 0 {
		return errs.NewFatal("tuning err:invalid rubberband factors")
	}

	esg := ts.ESG
	if esg.Threshold <= 0 || esg.Threshold > esg.MaxScore {
		return errs.NewFatal("tuning err:invalid esg threshold")
	}
	if esg.MinPenaltyRate < 0 || esg.MaxPenaltyRate < esg.MinPenaltyRate {
		return errs.NewFatal("tuning err:invalid esg penalty rates")
	}

	pr := ts.Pricing
	if pr.Alpha <= 0 || pr.Alpha > 1 {
		return errs.NewFatal(fmt.Sprintf("tuning err:pricing alpha out of (0,1]: %v", pr.Alpha))
	}
	if pr.CeilingMultiplier < 1 {
		return errs.NewFatal("tuning err:pricing ceiling_multiplier must be >= 1")
	}

	return nil
}
