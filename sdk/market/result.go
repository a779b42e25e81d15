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

// TeamPosition 是一支隊伍在單一區隔的完整競爭結果。
type TeamPosition struct {
	TeamID  string `json:"team_id"`
	Segment string `json:"segment"`
	// HasProduct 為 false 表示該隊在此區隔沒有上市產品：分數與份額必為 0。
	HasProduct bool `json:"has_product"`

	// 五軸加權後分量（權重總和 100，因此 BaseScore 大致落在 0~100 出頭）。
	PriceScore   float64 `json:"price_score"`
	QualityScore float64 `json:"quality_score"`
	BrandScore   float64 `json:"brand_score"`
	ESGScore     float64 `json:"esg_score"`
	FeatureScore float64 `json:"feature_score"`

	// BaseScore 是五軸合計加上品質紅利與彈性紅利後的基礎分；
	// Score 是再經過競爭動態（擁擠/先行者/軍備）修正後的最終分。
	// 侵蝕不在其中：它只產生通知，由品牌衰減模組另行套用。
	BaseScore float64 `json:"base_score"`
	Score     float64 `json:"score"`

	Share        float64 `json:"share"`
	Units        int     `json:"units"`
	Revenue      float64 `json:"revenue"`
	WarrantyCost float64 `json:"warranty_cost"`
}

// TeamResult 是一支隊伍的回合彙總。
type TeamResult struct {
	TeamID          string             `json:"team_id"`
	Shares          map[string]float64 `json:"shares"`
	Units           map[string]int     `json:"units"`
	Revenue         float64            `json:"revenue"`
	RevenueByRegion map[string]float64 `json:"revenue_by_region"`
	WarrantyCost    float64            `json:"warranty_cost"`
	ESGPenalty      float64            `json:"esg_penalty"`
	// AvgShare 是防失控機制的判斷依據：跨全部區隔的平均份額。
	AvgShare   float64 `json:"avg_share"`
	Rubberband string  `json:"rubberband,omitempty"` // "", "boost", "drag"
}

// CrowdingNotice 記錄一個區隔因過度擁擠被打折。
type CrowdingNotice struct {
	ID       string  `json:"id"`
	Segment  string  `json:"segment"`
	Products int     `json:"products"`
	Factor   float64 `json:"factor"`
}

// FirstMoverGrant 記錄一筆新發出的先行者紅利。
type FirstMoverGrant struct {
	ID          string  `json:"id"`
	TeamID      string  `json:"team_id"`
	Segment     string  `json:"segment"`
	Bonus       float64 `json:"bonus"`
	DecayRounds int     `json:"decay_rounds"`
}

// ArmsRaceTrigger 記錄一筆被消耗的軍備競賽紅利。
type ArmsRaceTrigger struct {
	ID     string  `json:"id"`
	TeamID string  `json:"team_id"`
	Tech   string  `json:"tech"`
	Bonus  float64 `json:"bonus"`
}

// ErosionNotice 記錄一次品牌侵蝕：領先者因差距過大被壓分。
type ErosionNotice struct {
	ID       string  `json:"id"`
	Segment  string  `json:"segment"`
	LeaderID string  `json:"leader_id"`
	TrailID  string  `json:"trail_id"`
	// Advantage 是相對差距 (leader-trail)/trail，上限 1。
	Advantage  float64 `json:"advantage"`
	Multiplier float64 `json:"multiplier"`
}

// ESGEvent 記錄一次低 ESG 下行風險：罰金為營收乘上罰率。
type ESGEvent struct {
	TeamID  string  `json:"team_id"`
	Score   float64 `json:"score"`
	Rate    float64 `json:"rate"`
	Penalty float64 `json:"penalty"`
}

// RoundResult 是一回合市場模擬的完整輸出。產出後即不可變；
// 下一回合的輸入狀態從 NextState / NextDynamics 取得。
type RoundResult struct {
	Round     int    `json:"round"`
	MatchSeed string `json:"match_seed"`
	Version   string `json:"version"`

	// Positions 依（區隔設定順序 × TeamID 升冪）排列。
	Positions []TeamPosition `json:"positions"`
	Teams     []TeamResult   `json:"teams"`

	SegmentDemand map[string]int `json:"segment_demand"`

	Crowding   []CrowdingNotice  `json:"crowding,omitempty"`
	FirstMover []FirstMoverGrant `json:"first_mover,omitempty"`
	ArmsRace   []ArmsRaceTrigger `json:"arms_race,omitempty"`
	Erosions   []ErosionNotice   `json:"erosions,omitempty"`
	ESGEvents  []ESGEvent        `json:"esg_events,omitempty"`

	RubberbandApplied bool `json:"rubberband_applied"`

	NextState    State         `json:"next_state"`
	NextDynamics DynamicsState `json:"next_dynamics"`
}

// Position 依 (team, segment) 取出單筆結果；找不到回傳 nil。
func (r *RoundResult) Position(teamID, segment string) *TeamPosition {
	for i := range r.Positions {
		p := &r.Positions[i]
		if p.TeamID == teamID && p.Segment == segment {
			return p
		}
	}
	return nil
}

// Team 依 TeamID 取出隊伍彙總；找不到回傳 nil。
func (r *RoundResult) Team(teamID string) *TeamResult {
	for i := range r.Teams {
		if r.Teams[i].TeamID == teamID {
			return &r.Teams[i]
		}
	}
	return nil
}
