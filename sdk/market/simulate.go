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
	"fmt"
	"sort"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/engine"
	"github.com/zintix-labs/marketlab/spec"
)

// Simulate 執行一回合完整的市場模擬。
//
// 流程固定：技術首完登記 → 需求 → 五軸評分 → 競爭動態（擁擠、先行者、
// 軍備）→ softmax 份額 → 防失控 → 結算 → ESG 風險 → 紅利發放與衰減、
// 侵蝕偵測 → 價格期望更新。走訪順序一律是「區隔設定順序 × TeamID 升冪」，
// 市場亂數流每區隔恰好消耗一次（需求噪音），因此同輸入必同輸出。
//
// 侵蝕只回報乘數，不改分數與份額；套用與否是品牌衰減模組的事。
//
// 輸入的 st / dyn 不會被改寫；下一回合的狀態由結果的
// NextState / NextDynamics 取得。
func Simulate(ctx *engine.Context, set *spec.MarketSetting, st State, dyn DynamicsState, teams []TeamInput) (*RoundResult, error) {
	if ctx == nil {
		return nil, errs.NewFatal("engine context required")
	}
	if set == nil {
		return nil, errs.NewFatal("market setting required")
	}
	if set.MaxTeams > 0 && len(teams) > set.MaxTeams {
		return nil, errs.Warnf("too many teams: %d > %d", len(teams), set.MaxTeams)
	}

	round := ctx.Round()
	tn := &set.Tuning

	res := &RoundResult{
		Round:         round,
		MatchSeed:     ctx.MatchSeed(),
		Version:       engine.Version,
		SegmentDemand: map[string]int{},
	}

	premium := st.SustainabilityPremium
	if premium <= 0 {
		premium = set.Pressures.SustainabilityPremium
	}
	nextPremium := premium * (1 + set.Pressures.SustainabilityGrowth)

	// 無隊伍：回空結果，不消耗任何亂數
	if len(teams) == 0 {
		res.NextState = State{
			SustainabilityPremium: nextPremium,
			PriceExpectations:     st.PriceExpectations,
		}
		res.NextDynamics = dyn.Clone()
		return res, nil
	}

	// 隊伍排序複本：走訪順序是再現性合約的一部分
	sorted := append([]TeamInput(nil), teams...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TeamID < sorted[j].TeamID })
	byID := make(map[string]*TeamInput, len(sorted))
	for i := range sorted {
		t := &sorted[i]
		if t.TeamID == "" {
			return nil, errs.NewFatal("team id required")
		}
		if _, dup := byID[t.TeamID]; dup {
			return nil, errs.Fatalf("duplicate team id: %s", t.TeamID)
		}
		byID[t.TeamID] = t
	}

	nextDyn := dyn.Clone()
	nextDyn.registerCompletions(sorted, tn.ArmsRaceBonus)

	// ── 需求：每區隔恰一次市場流取樣 ──
	demand := make(map[string]float64, len(set.Segments))
	for i := range set.Segments {
		seg := &set.Segments[i]
		noise := ctx.Market().RangeFloat(-tn.DemandNoise, tn.DemandNoise)
		d := segmentDemand(seg, &set.Economy, round, noise)
		demand[seg.Name] = d
		res.SegmentDemand[seg.Name] = int(d)
	}

	// ── 評分與競爭動態（逐區隔）──
	byTeam := make(map[string][]*TeamPosition, len(sorted))
	bySegment := make(map[string][]*TeamPosition, len(set.Segments))

	for i := range set.Segments {
		seg := &set.Segments[i]

		var exp *PriceExpectation
		if e, ok := st.PriceExpectations[seg.Name]; ok {
			exp = &e
		}

		// 上市產品數決定擁擠折扣
		launched := 0
		for j := range sorted {
			if sorted[j].launchedIn(seg.Name) != nil {
				launched++
			}
		}
		crowd := crowdingFactor(launched, tn.CrowdingThreshold, tn.CrowdingPenalty)
		if crowd < 1 {
			res.Crowding = append(res.Crowding, CrowdingNotice{
				ID:       ctx.NextID("crowd"),
				Segment:  seg.Name,
				Products: launched,
				Factor:   crowd,
			})
		}

		for j := range sorted {
			t := &sorted[j]
			p := t.launchedIn(seg.Name)
			var pos TeamPosition
			if p == nil {
				pos = TeamPosition{TeamID: t.TeamID, Segment: seg.Name}
			} else {
				pos = scorePosition(seg, tn, t, p, premium, exp)
				pos.Score *= crowd
				pos.Score *= dyn.firstMoverMultiplier(t.TeamID, seg.Name)
				pos.Score = applyArmsRace(ctx, &nextDyn, t, p, pos.Score, &res.ArmsRace)
			}
			res.Positions = append(res.Positions, pos)
		}
	}

	// res.Positions 自此不再擴張，指標索引才安全
	for i := range res.Positions {
		p := &res.Positions[i]
		byTeam[p.TeamID] = append(byTeam[p.TeamID], p)
		bySegment[p.Segment] = append(bySegment[p.Segment], p)
	}

	// ── softmax 份額 ──
	for i := range set.Segments {
		name := set.Segments[i].Name
		positions := bySegment[name]

		// 參賽者 = 有上市產品者；沒有產品的隊伍份額恆為 0
		participants := make([]*TeamPosition, 0, len(positions))
		scores := make([]float64, 0, len(positions))
		for _, p := range positions {
			if p.HasProduct {
				participants = append(participants, p)
				scores = append(scores, p.Score)
			}
		}
		if len(participants) == 0 {
			continue
		}
		shares := softmaxShares(scores, tn.SoftmaxTemperature, tn.ScoreScale)
		for k, p := range participants {
			p.Share = shares[k]
		}
	}

	// ── 防失控 ──
	adjusted := applyRubberband(tn.Rubberband, round, set.SegmentNames(), byTeam)
	res.RubberbandApplied = len(adjusted) > 0

	// ── 結算 ──
	for i := range set.Segments {
		name := set.Segments[i].Name
		settleSegment(bySegment[name], byID, demand[name], tn.WarrantyCostRate)
	}

	// ── 隊伍彙總與 ESG 風險 ──
	segCount := float64(len(set.Segments))
	for i := range sorted {
		t := &sorted[i]
		tr := TeamResult{
			TeamID:          t.TeamID,
			Shares:          map[string]float64{},
			Units:           map[string]int{},
			RevenueByRegion: map[string]float64{},
			Rubberband:      adjusted[t.TeamID],
		}
		region := t.primaryRegion(set.DefaultRegion)
		shareSum := 0.0
		for _, p := range byTeam[t.TeamID] {
			tr.Shares[p.Segment] = p.Share
			tr.Units[p.Segment] = p.Units
			tr.Revenue += p.Revenue
			tr.WarrantyCost += p.WarrantyCost
			shareSum += p.Share
		}
		if segCount > 0 {
			tr.AvgShare = shareSum / segCount
		}
		if tr.Revenue > 0 {
			tr.RevenueByRegion[region] = tr.Revenue
		}

		if rate, penalty, risky := esgPenalty(tn.ESG, t.ESGScore, tr.Revenue); risky {
			tr.ESGPenalty = penalty
			res.ESGEvents = append(res.ESGEvents, ESGEvent{
				TeamID:  t.TeamID,
				Score:   t.ESGScore,
				Rate:    rate,
				Penalty: penalty,
			})
		}
		res.Teams = append(res.Teams, tr)
	}

	// ── 紅利衰減與發放、侵蝕偵測（順序固定：先衰減既有，再發新的）──
	nextDyn.decayFirstMover()
	for i := range set.Segments {
		name := set.Segments[i].Name
		participants := make([]*TeamPosition, 0, 2)
		for _, p := range bySegment[name] {
			if p.HasProduct {
				participants = append(participants, p)
			}
		}
		grantFirstMovers(ctx, tn, name, participants, &nextDyn, &res.FirstMover)
		detectErosion(ctx, tn, bySegment[name], &res.Erosions)
	}

	// ── 下一回合狀態 ──
	res.NextState = State{
		SustainabilityPremium: nextPremium,
		PriceExpectations:     nextExpectations(set, st.PriceExpectations, sorted),
	}
	res.NextDynamics = nextDyn

	return res, nil
}

// String 摘要一回合結果（除錯/日誌用）。
func (r *RoundResult) String() string {
	return fmt.Sprintf("round=%d teams=%d positions=%d events(crowd=%d fm=%d arms=%d erosion=%d esg=%d)",
		r.Round, len(r.Teams), len(r.Positions),
		len(r.Crowding), len(r.FirstMover), len(r.ArmsRace), len(r.Erosions), len(r.ESGEvents))
}
