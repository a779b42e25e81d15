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

package stats_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/marketlab/spec"
	"github.com/zintix-labs/marketlab/stats"
)

// buildMatchReport constructs a one-match report for a single team from its
// per-round revenues and avg shares.
func buildMatchReport(id string, revenues, shares []float64, wins int) *stats.MatchReport {
	L := stats.Buckets.Len()
	collect := make([]int, L)
	var revSum, revSq, shSum, shSq float64
	for i, r := range revenues {
		revSum += r
		revSq += r * r
		shSum += shares[i]
		shSq += shares[i] * shares[i]
		collect[stats.Buckets.Index(shares[i])]++
	}
	report := &stats.MatchReport{
		Summary: &stats.SummaryReport{
			ScenarioName: "TestScenario",
			ScenarioID:   spec.SID(0),
			Segments:     []string{"mainstream"},
			Rounds:       len(revenues),
			Matches:      1,
			Teams:        1,
			TotalRevenue: revSum,
		},
		Teams: []*stats.TeamReport{{
			TeamID:       id,
			Rounds:       len(revenues),
			Revenue:      revSum,
			RevenueSqSum: revSq,
			ShareSum:     shSum,
			ShareSqSum:   shSq,
			Wins:         wins,
			ShareBucket:  stats.Buckets.ShareBucketStr(),
			ShareCollect: collect,
		}},
		Market: &stats.MarketReport{
			SegmentShareSq: map[string]float64{"mainstream": shSq},
		},
	}
	report.Done()
	return report
}

func TestMatchReportCoreMetrics(t *testing.T) {
	rep := buildMatchReport("alpha", []float64{100, 300}, []float64{0.2, 0.4}, 1)
	team := rep.Team("alpha")
	if team == nil {
		t.Fatalf("team alpha missing")
	}

	if math.Abs(team.RevenueMean-200) > 1e-12 {
		t.Fatalf("RevenueMean got %.12f want 200", team.RevenueMean)
	}
	variance := ((100.0*100 + 300.0*300) - 400.0*400/2) / (2 - 1)
	wantStd := math.Sqrt(variance)
	if math.Abs(team.RevenueStd-wantStd) > 1e-12 {
		t.Fatalf("RevenueStd got %.12f want %.12f", team.RevenueStd, wantStd)
	}
	se := wantStd / math.Sqrt(2)
	if math.Abs(team.RevenueCI.Hi-(200+1.96*se)) > 1e-9 {
		t.Fatalf("RevenueCI.Hi got %.9f", team.RevenueCI.Hi)
	}
	if math.Abs(team.AvgShare-0.3) > 1e-12 {
		t.Fatalf("AvgShare got %.12f want 0.3", team.AvgShare)
	}
	if team.WinRate != 1 {
		t.Fatalf("WinRate got %.2f want 1.00", team.WinRate)
	}

	// share distribution sums back to rounds
	total := 0.0
	for _, d := range team.ShareDist {
		total += d
	}
	if math.Abs(total-1) > 1e-12 {
		t.Fatalf("share dist total %.12f != 1", total)
	}

	// per-round HHI = Σshare² / rounds
	wantHHI := (0.2*0.2 + 0.4*0.4) / 2
	if math.Abs(rep.Market.SegmentHHI["mainstream"]-wantHHI) > 1e-12 {
		t.Fatalf("HHI got %.12f want %.12f", rep.Market.SegmentHHI["mainstream"], wantHHI)
	}

	rep.Done() // idempotent
	if rep.Team("alpha").RevenueMean != 200 {
		t.Fatalf("RevenueMean changed after second Done")
	}
}

func TestLeaderboardOrder(t *testing.T) {
	rep := &stats.MatchReport{
		Summary: &stats.SummaryReport{ScenarioName: "TestScenario", Rounds: 1, Matches: 1},
		Teams: []*stats.TeamReport{
			{TeamID: "low", Rounds: 1, Revenue: 100},
			{TeamID: "high", Rounds: 1, Revenue: 900},
			{TeamID: "tie-b", Rounds: 1, Revenue: 500},
			{TeamID: "tie-a", Rounds: 1, Revenue: 500},
		},
		Market: &stats.MarketReport{},
	}
	rep.Done()
	order := []string{"high", "tie-a", "tie-b", "low"}
	for i, want := range order {
		if rep.Teams[i].TeamID != want {
			t.Fatalf("leaderboard[%d] got %s want %s", i, rep.Teams[i].TeamID, want)
		}
	}
	if rep.Winner().TeamID != "high" {
		t.Fatalf("winner got %s", rep.Winner().TeamID)
	}
}

func TestShareBucketIndex(t *testing.T) {
	cases := []struct {
		share float64
		want  int
	}{
		{0, 0},
		{0.009, 0},
		{0.01, 1},
		{0.049, 2},
		{0.05, 3},
		{0.30, 7},
		{0.999, 9},
		{1.0, 10},
		{1.2, 10},
		{-0.1, 0},
	}
	for _, c := range cases {
		if got := stats.Buckets.Index(c.share); got != c.want {
			t.Fatalf("Index(%.3f) got %d want %d", c.share, got, c.want)
		}
	}
	if stats.Buckets.Len() != len(stats.Buckets.ShareBucketStr()) {
		t.Fatalf("bucket label length mismatch")
	}
}

func TestEstimatorRevAndOutcome(t *testing.T) {
	// 100 single-round matches with revenue 0..99
	reports := make([]*stats.MatchReport, 0, 100)
	for i := 0; i < 100; i++ {
		reports = append(reports, buildMatchReport("alpha", []float64{float64(i)}, []float64{0.2}, 0))
	}
	est := stats.EstimatorTeamExp(reports)
	if len(est.Teams) != 1 || est.Teams[0].TeamID != "alpha" {
		t.Fatalf("estimator teams unexpected: %+v", est.Teams)
	}
	alpha := est.Teams[0]
	if math.Abs(alpha.RevStat.Median.Hat-50) > 5 {
		t.Fatalf("median revenue expected ~50, got %.1f", alpha.RevStat.Median.Hat)
	}
	if math.Abs(alpha.RevStat.RevPerc.RevP90.Hat-90) > 5 {
		t.Fatalf("P90 revenue expected ~90, got %.1f", alpha.RevStat.RevPerc.RevP90.Hat)
	}

	// outcome rates: 3 wins out of 10 matches
	outcome := make([]*stats.MatchReport, 10)
	for i := 0; i < 10; i++ {
		wins := 0
		if i < 3 {
			wins = 1
		}
		outcome[i] = buildMatchReport("alpha", []float64{100}, []float64{0.25}, wins)
	}
	est2 := stats.EstimatorTeamExp(outcome)
	win := est2.Teams[0].Outcome.Win
	if win.Hat != 0.3 {
		t.Fatalf("win rate got %.2f want 0.30", win.Hat)
	}
	if win.CI.Lo >= win.Hat || win.CI.Hi <= win.Hat {
		t.Fatalf("win CI [%.3f, %.3f] does not cover hat %.3f", win.CI.Lo, win.CI.Hi, win.Hat)
	}
	// all samples at share 0.25: every match clears 10%/20%, none clears 30%
	if est2.Teams[0].Shares.Over20.Hat != 1 {
		t.Fatalf("share ≥20%% rate got %.2f want 1.00", est2.Teams[0].Shares.Over20.Hat)
	}
	if est2.Teams[0].Shares.Over30.Hat != 0 {
		t.Fatalf("share ≥30%% rate got %.2f want 0.00", est2.Teams[0].Shares.Over30.Hat)
	}
}
