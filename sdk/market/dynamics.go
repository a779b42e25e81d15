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
	"sort"

	"github.com/zintix-labs/marketlab/sdk/engine"
	"github.com/zintix-labs/marketlab/spec"
)

// crowdingFactor 回傳擁擠折扣：上市產品數在門檻內不打折，
// 超出門檻每多一件扣一段，最低 0。
func crowdingFactor(products, threshold int, penalty float64) float64 {
	if products <= threshold {
		return 1
	}
	f := 1 - float64(products-threshold)*penalty
	if f < 0 {
		return 0
	}
	return f
}

// applyArmsRace 把隊伍尚未消耗且本回合實際用上技術的軍備紅利乘進分數，
// 並標記消耗、記錄觸發事件。乘數逐筆複合。
func applyArmsRace(ctx *engine.Context, dyn *DynamicsState, t *TeamInput, p *ProductSnapshot, score float64, triggers *[]ArmsRaceTrigger) float64 {
	for i := range dyn.ArmsRace {
		b := &dyn.ArmsRace[i]
		if b.Consumed || b.TeamID != t.TeamID {
			continue
		}
		if !productUsesTech(p, b.Tech) {
			continue
		}
		score *= 1 + b.Bonus
		b.Consumed = true
		*triggers = append(*triggers, ArmsRaceTrigger{
			ID:     ctx.NextID("arms"),
			TeamID: b.TeamID,
			Tech:   b.Tech,
			Bonus:  b.Bonus,
		})
	}
	return score
}

func productUsesTech(p *ProductSnapshot, tech string) bool {
	for _, t := range p.AppliedTechs {
		if t == tech {
			return true
		}
	}
	return false
}

// detectErosion 在配額結束後偵測品牌侵蝕：同區隔內領先者對落後者的
// 相對差距超過門檻時，逐對發出通知，乘數 1 + 差距×敏感度。
//
// 乘數給品牌衰減模組套用；這裡只計算與回報，不改分數也不改份額。
func detectErosion(ctx *engine.Context, tn *spec.TuningSetting, positions []*TeamPosition, out *[]ErosionNotice) {
	// 取有分數的名次並依分數排序（同分以 TeamID 穩定排序）
	ranked := make([]*TeamPosition, 0, len(positions))
	for _, p := range positions {
		if p.Score > 0 {
			ranked = append(ranked, p)
		}
	}
	if len(ranked) < 2 {
		return
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].TeamID < ranked[j].TeamID
	})

	for i := 0; i < len(ranked); i++ {
		leader := ranked[i]
		for j := i + 1; j < len(ranked); j++ {
			trail := ranked[j]
			adv := (leader.Score - trail.Score) / trail.Score
			if adv <= tn.ErosionThreshold {
				continue
			}
			if adv > 1 {
				adv = 1 // 差距封頂，避免極小分母炸掉侵蝕幅度
			}
			*out = append(*out, ErosionNotice{
				ID:         ctx.NextID("erosion"),
				Segment:    leader.Segment,
				LeaderID:   leader.TeamID,
				TrailID:    trail.TeamID,
				Advantage:  adv,
				Multiplier: 1 + adv*tn.ErosionSensitivity,
			})
		}
	}
}

// grantFirstMovers 在配額結束後發放先行者紅利。
//
// 條件：區隔內上市產品 1~2 件，且該區隔沒有任何有效紅利。
// 發給分數最高的參賽者；已有一個競爭者時紅利減半。
func grantFirstMovers(ctx *engine.Context, tn *spec.TuningSetting, segment string, participants []*TeamPosition, dyn *DynamicsState, out *[]FirstMoverGrant) {
	n := len(participants)
	if n < 1 || n > 2 || dyn.hasFirstMover(segment) {
		return
	}

	best := participants[0]
	for _, p := range participants[1:] {
		if p.Score > best.Score || (p.Score == best.Score && p.TeamID < best.TeamID) {
			best = p
		}
	}

	bonus := tn.FirstMoverBonus
	if n == 2 {
		bonus /= 2
	}
	dyn.FirstMover = append(dyn.FirstMover, FirstMoverBonus{
		TeamID:    best.TeamID,
		Segment:   segment,
		Bonus:     bonus,
		Remaining: tn.FirstMoverRounds,
		Total:     tn.FirstMoverRounds,
	})
	*out = append(*out, FirstMoverGrant{
		ID:          ctx.NextID("fm"),
		TeamID:      best.TeamID,
		Segment:     segment,
		Bonus:       bonus,
		DecayRounds: tn.FirstMoverRounds,
	})
}
