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

// FirstMoverBonus 是一筆先行者紅利：線性衰減，效力 = Bonus × Remaining/Total。
type FirstMoverBonus struct {
	TeamID    string  `json:"team_id"`
	Segment   string  `json:"segment"`
	Bonus     float64 `json:"bonus"`
	Remaining int     `json:"remaining"`
	Total     int     `json:"total"`
}

// ArmsRaceBonus 是一筆軍備競賽紅利：率先完成技術的一次性加分，用過即消耗。
type ArmsRaceBonus struct {
	TeamID   string  `json:"team_id"`
	Tech     string  `json:"tech"`
	Bonus    float64 `json:"bonus"`
	Consumed bool    `json:"consumed"`
}

// DynamicsState 是競爭動態的跨回合狀態。
// 只有市場模擬會改寫它；其他子系統一律唯讀。零值代表比賽開局。
type DynamicsState struct {
	FirstMover []FirstMoverBonus `json:"first_mover,omitempty"`
	ArmsRace   []ArmsRaceBonus   `json:"arms_race,omitempty"`
	// FirstCompletions 記錄每項技術的首位完成者（tech -> team）。
	FirstCompletions map[string]string `json:"first_completions,omitempty"`
}

// Clone 做深拷貝：模擬流程在複本上操作，輸入狀態維持不變。
func (d DynamicsState) Clone() DynamicsState {
	out := DynamicsState{}
	if len(d.FirstMover) > 0 {
		out.FirstMover = append([]FirstMoverBonus(nil), d.FirstMover...)
	}
	if len(d.ArmsRace) > 0 {
		out.ArmsRace = append([]ArmsRaceBonus(nil), d.ArmsRace...)
	}
	if len(d.FirstCompletions) > 0 {
		out.FirstCompletions = make(map[string]string, len(d.FirstCompletions))
		for k, v := range d.FirstCompletions {
			out.FirstCompletions[k] = v
		}
	}
	return out
}

// firstMoverMultiplier 回傳隊伍在指定區隔的先行者乘數（無紅利回傳 1）。
func (d *DynamicsState) firstMoverMultiplier(teamID, segment string) float64 {
	for _, b := range d.FirstMover {
		if b.TeamID == teamID && b.Segment == segment && b.Remaining > 0 && b.Total > 0 {
			return 1 + b.Bonus*float64(b.Remaining)/float64(b.Total)
		}
	}
	return 1
}

// hasFirstMover 回傳指定區隔是否已有任何有效的先行者紅利。
func (d *DynamicsState) hasFirstMover(segment string) bool {
	for _, b := range d.FirstMover {
		if b.Segment == segment && b.Remaining > 0 {
			return true
		}
	}
	return false
}

// decayFirstMover 把全部先行者紅利衰減一回合，歸零者移除。
func (d *DynamicsState) decayFirstMover() {
	kept := d.FirstMover[:0]
	for _, b := range d.FirstMover {
		b.Remaining--
		if b.Remaining > 0 {
			kept = append(kept, b)
		}
	}
	d.FirstMover = kept
}

// registerCompletions 登記新出現的技術首位完成者並掛上未消耗的軍備紅利。
// teams 必須已依 TeamID 排序，技術依產品內宣告順序走訪，確保登記順序決定性。
func (d *DynamicsState) registerCompletions(teams []TeamInput, bonus float64) {
	if d.FirstCompletions == nil {
		d.FirstCompletions = map[string]string{}
	}
	for i := range teams {
		t := &teams[i]
		for j := range t.Products {
			p := &t.Products[j]
			if !p.Launched() {
				continue
			}
			for _, tech := range p.AppliedTechs {
				if _, taken := d.FirstCompletions[tech]; taken {
					continue
				}
				d.FirstCompletions[tech] = t.TeamID
				d.ArmsRace = append(d.ArmsRace, ArmsRaceBonus{
					TeamID: t.TeamID,
					Tech:   tech,
					Bonus:  bonus,
				})
			}
		}
	}
}
