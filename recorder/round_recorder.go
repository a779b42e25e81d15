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

package recorder

import (
	"fmt"
	"sort"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
	"github.com/zintix-labs/marketlab/stats"
)

// RoundRecorder 市場模擬紀錄員
//
// RoundRecorder 負責紀錄回合結果，並透過Done輸出統計報表。
// 一場比賽由多個回合組成：逐回合 Record，場次結束呼叫 FinishMatch
// 結算該場冠軍。
type RoundRecorder struct {
	ScenarioName string
	ScenarioID   spec.SID
	Segments     []string
	Basic        *BasicRecord
	Teams        map[string]*TeamRecord
	Market       *MarketRecord

	// 場內累積（不序列化；Export 請在 FinishMatch 之後）
	matchRev map[string]float64
}

// BasicRecord 基本回合資料紀錄
type BasicRecord struct {
	Rounds        int
	Matches       int
	TotalRevenue  float64
	TotalUnits    int
	TotalWarranty float64
	TotalPenalty  float64
	Crowding      int
	FirstMover    int
	ArmsRace      int
	Erosion       int
	ESGEvents     int
	Rubberband    int
}

// TeamRecord 單一隊伍紀錄
//
// 紀錄時只累積總和與平方和
type TeamRecord struct {
	Rounds       int
	RevenueSum   float64
	RevenueSqSum float64 // 平方和
	ShareSum     float64
	ShareSqSum   float64 // 平方和
	Units        int
	WarrantyCost float64
	ESGPenalty   float64
	Wins         int
	Boosts       int
	Drags        int
	ShareCollect []int
}

// MarketRecord 市場面紀錄（集中度與需求）
type MarketRecord struct {
	SegmentShareSq map[string]float64 // 逐回合 Σshare² 的累積
	SegmentDemand  map[string]int
	SegmentUnits   map[string]int
}

func NewRoundRecorder(name string, id spec.SID, segments []string) (*RoundRecorder, error) {
	s := new(RoundRecorder)

	if name == "" {
		return s, errs.NewFatal("scenario name required")
	}
	if len(segments) == 0 {
		return s, errs.NewFatal(fmt.Sprintf("segments err %v", segments))
	}
	// 通過valid
	s.ScenarioName = name
	s.ScenarioID = id
	s.Segments = append([]string(nil), segments...)
	s.Basic = new(BasicRecord)
	s.Teams = make(map[string]*TeamRecord, 8)
	s.Market = newMarketRecord(segments)
	s.matchRev = make(map[string]float64, 8)

	return s, nil
}

func MergeRoundRecorder(r []*RoundRecorder) (*RoundRecorder, error) {
	r0 := r[0]
	s, err := NewRoundRecorder(r0.ScenarioName, r0.ScenarioID, r0.Segments)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.ScenarioName != r0.ScenarioName {
			return s, errs.NewFatal("merge round record err : different scenario name")
		}
		if v.ScenarioID != r0.ScenarioID {
			return s, errs.NewFatal("merge round record err : different scenario id")
		}
		if len(v.Segments) != len(r0.Segments) {
			return s, errs.NewFatal("merge round record err : different segments")
		}
		for i, seg := range v.Segments {
			if seg != r0.Segments[i] {
				return s, errs.NewFatal("merge round record err : different segments")
			}
		}
		s.Basic.Rounds += v.Basic.Rounds
		s.Basic.Matches += v.Basic.Matches
		s.Basic.TotalRevenue += v.Basic.TotalRevenue
		s.Basic.TotalUnits += v.Basic.TotalUnits
		s.Basic.TotalWarranty += v.Basic.TotalWarranty
		s.Basic.TotalPenalty += v.Basic.TotalPenalty
		s.Basic.Crowding += v.Basic.Crowding
		s.Basic.FirstMover += v.Basic.FirstMover
		s.Basic.ArmsRace += v.Basic.ArmsRace
		s.Basic.Erosion += v.Basic.Erosion
		s.Basic.ESGEvents += v.Basic.ESGEvents
		s.Basic.Rubberband += v.Basic.Rubberband

		// 整合隊伍
		for id, t := range v.Teams {
			dst := s.team(id)
			dst.Rounds += t.Rounds
			dst.RevenueSum += t.RevenueSum
			dst.RevenueSqSum += t.RevenueSqSum
			dst.ShareSum += t.ShareSum
			dst.ShareSqSum += t.ShareSqSum
			dst.Units += t.Units
			dst.WarrantyCost += t.WarrantyCost
			dst.ESGPenalty += t.ESGPenalty
			dst.Wins += t.Wins
			dst.Boosts += t.Boosts
			dst.Drags += t.Drags
			for i := range t.ShareCollect {
				dst.ShareCollect[i] += t.ShareCollect[i]
			}
		}

		// 整合市場面
		for seg, sq := range v.Market.SegmentShareSq {
			s.Market.SegmentShareSq[seg] += sq
		}
		for seg, d := range v.Market.SegmentDemand {
			s.Market.SegmentDemand[seg] += d
		}
		for seg, u := range v.Market.SegmentUnits {
			s.Market.SegmentUnits[seg] += u
		}
	}
	return s, nil
}

// Record 以單回合 RoundResult 更新統計
func (s *RoundRecorder) Record(rr *market.RoundResult) {
	s.recordBasic(rr)
	s.recordTeams(rr)
	s.recordMarket(rr)
}

// FinishMatch 結算當前場次：場次計數加一，場內總營收最高者記一勝。
//
// 同額以 TeamID 字典序靠前者為冠軍，確保結果可重現。
func (s *RoundRecorder) FinishMatch() {
	if len(s.matchRev) == 0 {
		return
	}
	s.Basic.Matches++

	winner := ""
	best := 0.0
	ids := make([]string, 0, len(s.matchRev))
	for id := range s.matchRev {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if winner == "" || s.matchRev[id] > best {
			winner = id
			best = s.matchRev[id]
		}
	}
	s.team(winner).Wins++
	s.matchRev = make(map[string]float64, len(ids))
}

func (s *RoundRecorder) Done() *stats.MatchReport {
	report := &stats.MatchReport{
		Summary: &stats.SummaryReport{
			ScenarioName:  s.ScenarioName,
			ScenarioID:    s.ScenarioID,
			Segments:      s.Segments,
			Rounds:        s.Basic.Rounds,
			Matches:       s.Basic.Matches,
			Teams:         len(s.Teams),
			TotalRevenue:  s.Basic.TotalRevenue,
			TotalUnits:    s.Basic.TotalUnits,
			TotalWarranty: s.Basic.TotalWarranty,
			TotalPenalty:  s.Basic.TotalPenalty,
			Crowding:      s.Basic.Crowding,
			FirstMover:    s.Basic.FirstMover,
			ArmsRace:      s.Basic.ArmsRace,
			Erosion:       s.Basic.Erosion,
			ESGEvents:     s.Basic.ESGEvents,
			Rubberband:    s.Basic.Rubberband,
		},
		Market: &stats.MarketReport{
			SegmentShareSq: s.Market.SegmentShareSq,
			SegmentDemand:  s.Market.SegmentDemand,
			SegmentUnits:   s.Market.SegmentUnits,
		},
	}

	ids := make([]string, 0, len(s.Teams))
	for id := range s.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := s.Teams[id]
		report.Teams = append(report.Teams, &stats.TeamReport{
			TeamID:       id,
			Rounds:       t.Rounds,
			Revenue:      t.RevenueSum,
			RevenueSqSum: t.RevenueSqSum,
			ShareSum:     t.ShareSum,
			ShareSqSum:   t.ShareSqSum,
			Units:        t.Units,
			WarrantyCost: t.WarrantyCost,
			ESGPenalty:   t.ESGPenalty,
			Wins:         t.Wins,
			Boosts:       t.Boosts,
			Drags:        t.Drags,
			ShareBucket:  stats.Buckets.ShareBucketStr(),
			ShareCollect: t.ShareCollect,
		})
	}

	return report
}

func (s *RoundRecorder) recordBasic(rr *market.RoundResult) {
	b := s.Basic
	b.Rounds++
	b.Crowding += len(rr.Crowding)
	b.FirstMover += len(rr.FirstMover)
	b.ArmsRace += len(rr.ArmsRace)
	b.Erosion += len(rr.Erosions)
	b.ESGEvents += len(rr.ESGEvents)
	if rr.RubberbandApplied {
		b.Rubberband++
	}
}

func (s *RoundRecorder) recordTeams(rr *market.RoundResult) {
	for i := range rr.Teams {
		tr := &rr.Teams[i]
		t := s.team(tr.TeamID)
		t.Rounds++
		t.RevenueSum += tr.Revenue
		t.RevenueSqSum += tr.Revenue * tr.Revenue
		t.ShareSum += tr.AvgShare
		t.ShareSqSum += tr.AvgShare * tr.AvgShare
		t.WarrantyCost += tr.WarrantyCost
		t.ESGPenalty += tr.ESGPenalty
		t.ShareCollect[stats.Buckets.Index(tr.AvgShare)]++
		switch tr.Rubberband {
		case "boost":
			t.Boosts++
		case "drag":
			t.Drags++
		}
		for _, u := range tr.Units {
			t.Units += u
			s.Basic.TotalUnits += u
		}
		s.Basic.TotalRevenue += tr.Revenue
		s.Basic.TotalWarranty += tr.WarrantyCost
		s.Basic.TotalPenalty += tr.ESGPenalty
		s.matchRev[tr.TeamID] += tr.Revenue
	}
}

func (s *RoundRecorder) recordMarket(rr *market.RoundResult) {
	for i := range rr.Positions {
		p := &rr.Positions[i]
		s.Market.SegmentShareSq[p.Segment] += p.Share * p.Share
		s.Market.SegmentUnits[p.Segment] += p.Units
	}
	for seg, d := range rr.SegmentDemand {
		s.Market.SegmentDemand[seg] += d
	}
}

func (s *RoundRecorder) team(id string) *TeamRecord {
	t, ok := s.Teams[id]
	if !ok {
		t = &TeamRecord{ShareCollect: make([]int, stats.Buckets.Len())}
		s.Teams[id] = t
	}
	return t
}

func newMarketRecord(segments []string) *MarketRecord {
	m := &MarketRecord{
		SegmentShareSq: make(map[string]float64, len(segments)),
		SegmentDemand:  make(map[string]int, len(segments)),
		SegmentUnits:   make(map[string]int, len(segments)),
	}
	return m
}
