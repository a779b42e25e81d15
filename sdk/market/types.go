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

// Package market 實作回合制市場模擬：五軸評分、競爭動態、softmax 份額分配、
// 防失控機制與動態定價。整個 package 是純函式風格——輸入同一組
// (EngineContext, 設定, 狀態, 隊伍快照)，輸出必然相同的 RoundResult。
package market

// ProductStatus 標示產品所處階段，只有已上市產品參與市場競爭。
type ProductStatus string

const (
	StatusDevelopment ProductStatus = "development"
	StatusLaunched    ProductStatus = "launched"
)

// ProductSnapshot 是一件產品在回合開始時的唯讀快照。
type ProductSnapshot struct {
	Segment string  `json:"segment"`
	Price   float64 `json:"price"`
	// Quality 與區隔的 QualityExpectation 同尺度。
	Quality float64 `json:"quality"`
	// Features 為多軸規格向量（各軸 0~1），與區隔的 FeaturePrefs 做加權內積。
	// 留空時退回 FeatureLevel 單一刻度（0~10，正規化到 0~1）。
	Features     []float64     `json:"features,omitempty"`
	FeatureLevel float64       `json:"feature_level,omitempty"`
	AppliedTechs []string      `json:"applied_techs,omitempty"`
	Status       ProductStatus `json:"status"`
}

// Launched 回傳產品是否已上市。
func (p *ProductSnapshot) Launched() bool { return p.Status == StatusLaunched }

// FactorySnapshot 是一座工廠在回合開始時的唯讀快照。
type FactorySnapshot struct {
	Region     string  `json:"region"`
	Efficiency float64 `json:"efficiency"`  // 0~1
	DefectRate float64 `json:"defect_rate"` // 0~1
}

// TeamInput 是一支隊伍進入本回合市場的完整快照。
// 模擬期間視為唯讀；跨回合的演進（品牌、ESG、產品線）由上層子系統負責。
type TeamInput struct {
	TeamID string  `json:"team_id"`
	Brand  float64 `json:"brand"` // 0~1
	// ESGScore 尺度 0~1000，低於門檻會觸發下行風險事件。
	ESGScore  float64 `json:"esg_score"`
	RnDBudget float64 `json:"rnd_budget"`
	// QualityLines 是品質達標的產品線數量（多角化彈性判準之一）。
	QualityLines int               `json:"quality_lines"`
	Products     []ProductSnapshot `json:"products"`
	Factories    []FactorySnapshot `json:"factories"`
}

// launchedIn 回傳隊伍在指定區隔的參賽產品（輸入順序中第一件已上市者）。
func (t *TeamInput) launchedIn(segment string) *ProductSnapshot {
	for i := range t.Products {
		p := &t.Products[i]
		if p.Segment == segment && p.Launched() {
			return p
		}
	}
	return nil
}

// maxEfficiency 回傳旗下工廠的最高效率（無工廠回傳 0）。
func (t *TeamInput) maxEfficiency() float64 {
	best := 0.0
	for _, f := range t.Factories {
		if f.Efficiency > best {
			best = f.Efficiency
		}
	}
	return best
}

// avgDefectRate 回傳旗下工廠的平均不良率（無工廠回傳 0）。
func (t *TeamInput) avgDefectRate() float64 {
	if len(t.Factories) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range t.Factories {
		sum += f.DefectRate
	}
	return sum / float64(len(t.Factories))
}

// primaryRegion 回傳營收歸屬地區：第一座工廠的地區，無工廠用情境預設。
func (t *TeamInput) primaryRegion(fallback string) string {
	if len(t.Factories) > 0 && t.Factories[0].Region != "" {
		return t.Factories[0].Region
	}
	return fallback
}

// PriceExpectation 是單一區隔的動態價格期望（上一回合市場行為的平滑結果）。
type PriceExpectation struct {
	Expected float64 `json:"expected"`
	// Underserved 表示供給稀疏度（0 = 供給充足，1 = 無人進場），
	// 越稀疏，價格評分的容忍帶越寬。
	Underserved float64 `json:"underserved"`
}

// State 是市場子系統的跨回合狀態。零值代表第一回合（無期望、無溢價累積）。
type State struct {
	// SustainabilityPremium 是 ESG 軸的目前乘數；<= 0 時採用情境的起始值。
	SustainabilityPremium float64                     `json:"sustainability_premium"`
	PriceExpectations     map[string]PriceExpectation `json:"price_expectations,omitempty"`
}
