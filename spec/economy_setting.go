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

// EconomySetting 描述總體經濟參數，逐回合縮放每個區隔的基礎需求。
type EconomySetting struct {
	// GDPGrowth 為年化成長率（0.03 = 3%），直接作為需求乘數的一部分。
	GDPGrowth float64 `yaml:"gdp_growth"          json:"gdp_growth"`
	// ConsumerConfidence 以 ConfidenceBaseline 為中性點：高於基準放大需求，低於縮小。
	ConsumerConfidence float64 `yaml:"consumer_confidence" json:"consumer_confidence"`
	ConfidenceBaseline float64 `yaml:"confidence_baseline" json:"confidence_baseline"`
	// Inflation 抑制需求並推高動態定價的天花板。
	Inflation float64 `yaml:"inflation"           json:"inflation"`
}

func (es *EconomySetting) init() error {
	if es.ConfidenceBaseline == 0 {
		es.ConfidenceBaseline = 100
	}
	if es.ConfidenceBaseline < 0 {
		return errs.NewFatal(fmt.Sprintf("economy err:negative confidence_baseline %v", es.ConfidenceBaseline))
	}
	if es.ConsumerConfidence == 0 {
		es.ConsumerConfidence = es.ConfidenceBaseline
	}
	if es.ConsumerConfidence < 0 {
		return errs.NewFatal(fmt.Sprintf("economy err:negative consumer_confidence %v", es.ConsumerConfidence))
	}
	return nil
}

// DemandMultiplier 回傳由總經參數推得的需求乘數（不含區隔成長率與隨機噪音）。
func (es *EconomySetting) DemandMultiplier() float64 {
	m := (1 + es.GDPGrowth) * (es.ConsumerConfidence / es.ConfidenceBaseline)
	// 通膨吃掉一半幅度的實質購買力
	m *= 1 - es.Inflation*0.5
	if m < 0 {
		return 0
	}
	return m
}

// PressureSetting 描述跨回合的市場壓力：目前只有永續溢價。
type PressureSetting struct {
	// SustainabilityPremium 是 ESG 軸的起始乘數（1.0 = 無溢價）。
	SustainabilityPremium float64 `yaml:"sustainability_premium" json:"sustainability_premium"`
	// SustainabilityGrowth 為溢價的逐回合複合成長率。
	SustainabilityGrowth float64 `yaml:"sustainability_growth"  json:"sustainability_growth"`
}

func (ps *PressureSetting) init() {
	if ps.SustainabilityPremium == 0 {
		ps.SustainabilityPremium = 1.0
	}
	if ps.SustainabilityGrowth == 0 {
		ps.SustainabilityGrowth = 0.02
	}
}
