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
	"math"

	"github.com/zintix-labs/marketlab/errs"
)

// WeightSetting 定義五軸評分權重，總和必須恰為 100。
type WeightSetting struct {
	Price   float64 `yaml:"price"    json:"price"`
	Quality float64 `yaml:"quality"  json:"quality"`
	Brand   float64 `yaml:"brand"    json:"brand"`
	ESG     float64 `yaml:"esg"      json:"esg"`
	Feature float64 `yaml:"feature"  json:"feature"`
}

// Sum 回傳五軸權重總和。
func (ws WeightSetting) Sum() float64 {
	return ws.Price + ws.Quality + ws.Brand + ws.ESG + ws.Feature
}

// CostSetting 定義該市場區隔單件產品的成本結構，三項合計即價格地板。
type CostSetting struct {
	RawMaterial float64 `yaml:"raw_material"  json:"raw_material"`
	Labor       float64 `yaml:"labor"         json:"labor"`
	Overhead    float64 `yaml:"overhead"      json:"overhead"`
}

// Floor 回傳成本地板：低於它的定價視為傾銷，評分會被平滑壓低。
func (cs CostSetting) Floor() float64 {
	return cs.RawMaterial + cs.Labor + cs.Overhead
}

// SegmentSetting 描述一個市場區隔：需求規模、價格帶、品質期望與偏好權重。
type SegmentSetting struct {
	Name               string        `yaml:"name"                json:"name"`
	BaseDemand         float64       `yaml:"base_demand"         json:"base_demand"`
	PriceMin           float64       `yaml:"price_min"           json:"price_min"`
	PriceMax           float64       `yaml:"price_max"           json:"price_max"`
	GrowthRate         float64       `yaml:"growth_rate"         json:"growth_rate"`
	QualityExpectation float64       `yaml:"quality_expectation" json:"quality_expectation"`
	Weights            WeightSetting `yaml:"weights"             json:"weights"`
	FeaturePrefs       []float64     `yaml:"feature_prefs"       json:"feature_prefs"`
	Costs              CostSetting   `yaml:"costs"               json:"costs"`
	initFlag           bool
}

// init 執行區隔設定的基本檢查，通過後標記初始化完成。
func (ss *SegmentSetting) init() error {
	if ss.initFlag {
		return nil
	}

	if ss.Name == "" {
		return errs.NewFatal("segment name is required")
	}
	if ss.BaseDemand <= 0 {
		return errs.NewFatal(fmt.Sprintf("segment: %s err:base_demand must be > 0", ss.Name))
	}
	if ss.PriceMin <= 0 || ss.PriceMax <= ss.PriceMin {
		return errs.NewFatal(fmt.Sprintf("segment: %s err:invalid price band [%v,%v]", ss.Name, ss.PriceMin, ss.PriceMax))
	}
	if ss.QualityExpectation <= 0 {
		return errs.NewFatal(fmt.Sprintf("segment: %s err:quality_expectation must be > 0", ss.Name))
	}

	// 權重總和必須恰為 100（容許浮點誤差）
	if math.Abs(ss.Weights.Sum()-100) > 1e-9 {
		return errs.NewFatal(fmt.Sprintf("segment: %s err:weights sum to %v, want 100", ss.Name, ss.Weights.Sum()))
	}
	if ss.Weights.Price < 0 || ss.Weights.Quality < 0 || ss.Weights.Brand < 0 ||
		ss.Weights.ESG < 0 || ss.Weights.Feature < 0 {
		return errs.NewFatal(fmt.Sprintf("segment: %s err:negative weight", ss.Name))
	}

	for i, p := range ss.FeaturePrefs {
		if p < 0 {
			return errs.NewFatal(fmt.Sprintf("segment: %s err:negative feature pref at %d", ss.Name, i))
		}
	}
	if ss.Costs.RawMaterial < 0 || ss.Costs.Labor < 0 || ss.Costs.Overhead < 0 {
		return errs.NewFatal(fmt.Sprintf("segment: %s err:negative cost", ss.Name))
	}

	ss.initFlag = true
	return nil
}
