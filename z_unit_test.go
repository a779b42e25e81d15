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

package marketlab_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/marketlab"
	"github.com/zintix-labs/marketlab/sdk/core"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
)

const scenarioYAML = `
scenario_name: "lab-scenario"
scenario_id: 7001
max_teams: 8
segments:
  - name: mainstream
    base_demand: 10000
    price_min: 200
    price_max: 500
    growth_rate: 0.02
    quality_expectation: 50
    weights: {price: 35, quality: 30, brand: 15, esg: 10, feature: 10}
    costs: {raw_material: 60, labor: 40, overhead: 30}
economy:
  gdp_growth: 0.02
  consumer_confidence: 100
  inflation: 0.02
`

func newLab(t *testing.T) *marketlab.Marketlab {
	t.Helper()
	cfg := fstest.MapFS{
		"lab-scenario.yaml": &fstest.MapFile{Data: []byte(scenarioYAML)},
	}
	lab, err := marketlab.NewAuto(core.Default(), marketlab.Configs(cfg))
	if err != nil {
		t.Fatalf("NewAuto: %v", err)
	}
	return lab
}

func twoTeams(round int, prev *market.RoundResult) []market.TeamInput {
	return []market.TeamInput{
		{
			TeamID: "alpha", Brand: 0.6, ESGScore: 500,
			Products: []market.ProductSnapshot{{
				Segment: "mainstream", Price: 320, Quality: 55, Status: market.StatusLaunched,
			}},
		},
		{
			TeamID: "beta", Brand: 0.4, ESGScore: 200,
			Products: []market.ProductSnapshot{{
				Segment: "mainstream", Price: 280, Quality: 45, Status: market.StatusLaunched,
			}},
		},
	}
}

func TestAssemblerSummary(t *testing.T) {
	lab := newLab(t)
	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(sum) != 1 || sum[0].Name != "lab-scenario" || sum[0].SID != spec.SID(7001) {
		t.Fatalf("summary unexpected: %+v", sum)
	}
	if _, ok := lab.EntryByName("LAB-SCENARIO"); !ok {
		t.Fatalf("name lookup should be case-insensitive")
	}
}

func TestMatchDeterminism(t *testing.T) {
	lab := newLab(t)
	run := func() []*market.RoundResult {
		m, err := lab.NewMatch(spec.SID(7001), "determinism-seed")
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}
		out := make([]*market.RoundResult, 0, 4)
		var prev *market.RoundResult
		for r := 1; r <= 4; r++ {
			res, aerr := m.Advance(twoTeams(r, prev))
			if aerr != nil {
				t.Fatalf("Advance r%d: %v", r, aerr)
			}
			out = append(out, res)
			prev = res
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		ta, tb := a[i].Team("alpha"), b[i].Team("alpha")
		if ta.Revenue != tb.Revenue {
			t.Fatalf("round %d revenue diverged: %.6f vs %.6f", i+1, ta.Revenue, tb.Revenue)
		}
		if a[i].SegmentDemand["mainstream"] != b[i].SegmentDemand["mainstream"] {
			t.Fatalf("round %d demand diverged", i+1)
		}
	}
}

func TestSimulateRoundMatchesFirstAdvance(t *testing.T) {
	lab := newLab(t)
	m, err := lab.NewMatch(spec.SID(7001), "round-seed")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	fromMatch, err := m.Advance(twoTeams(1, nil))
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	oneShot, err := lab.SimulateRound(spec.SID(7001), "round-seed", 1, twoTeams(1, nil))
	if err != nil {
		t.Fatalf("SimulateRound: %v", err)
	}
	// 零狀態試算第一回合應與同 seed 比賽的第一次 Advance 完全一致
	if oneShot.Team("alpha").Revenue != fromMatch.Team("alpha").Revenue {
		t.Fatalf("one-shot round diverged from match round 1")
	}
	if oneShot.SegmentDemand["mainstream"] != fromMatch.SegmentDemand["mainstream"] {
		t.Fatalf("demand diverged between one-shot and match round 1")
	}
}

func TestMatchSnapshotRestore(t *testing.T) {
	lab := newLab(t)
	m, err := lab.NewMatch(spec.SID(7001), "snapshot-seed")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if _, err := m.Advance(twoTeams(1, nil)); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	snap, err := m.SnapshotState()
	if err != nil {
		t.Fatalf("SnapshotState: %v", err)
	}
	r2a, err := m.Advance(twoTeams(2, nil))
	if err != nil {
		t.Fatalf("Advance r2: %v", err)
	}
	if err := m.RestoreState(snap); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}
	if m.Round() != 1 {
		t.Fatalf("round after restore got %d want 1", m.Round())
	}
	r2b, err := m.Advance(twoTeams(2, nil))
	if err != nil {
		t.Fatalf("Advance replay: %v", err)
	}
	if r2a.Team("alpha").Revenue != r2b.Team("alpha").Revenue {
		t.Fatalf("replay after restore diverged")
	}

	// a snapshot from another match must be rejected
	other, err := lab.NewMatch(spec.SID(7001), "other-seed")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if err := other.RestoreState(snap); err == nil {
		t.Fatalf("restore with foreign seed should fail")
	}
}

func TestSimulatorSim(t *testing.T) {
	lab := newLab(t)
	sim, err := lab.NewSimulatorWithSeed(spec.SID(7001), "sim-seed")
	if err != nil {
		t.Fatalf("NewSimulatorWithSeed: %v", err)
	}
	rep, _, err := sim.Sim(twoTeams, 5, 3, false)
	if err != nil {
		t.Fatalf("Sim: %v", err)
	}
	if rep.Summary.Rounds != 15 || rep.Summary.Matches != 3 {
		t.Fatalf("rounds/matches got %d/%d", rep.Summary.Rounds, rep.Summary.Matches)
	}
	wins := 0
	for _, tr := range rep.Teams {
		wins += tr.Wins
	}
	if wins != 3 {
		t.Fatalf("total wins got %d want 3", wins)
	}
}

func TestSimulatorSimMP(t *testing.T) {
	lab := newLab(t)
	sim, err := lab.NewSimulatorWithSeed(spec.SID(7001), "simmp-seed")
	if err != nil {
		t.Fatalf("NewSimulatorWithSeed: %v", err)
	}
	rep, est, _, err := sim.SimMatches(twoTeams, 4, 8, 4, false)
	if err != nil {
		t.Fatalf("SimMatches: %v", err)
	}
	if rep.Summary.Rounds != 32 || rep.Summary.Matches != 8 {
		t.Fatalf("rounds/matches got %d/%d", rep.Summary.Rounds, rep.Summary.Matches)
	}
	if est.Matches != 8 || len(est.Teams) != 2 {
		t.Fatalf("estimator shape unexpected: matches=%d teams=%d", est.Matches, len(est.Teams))
	}
}

func TestMatchRuntimeLifecycle(t *testing.T) {
	lab := newLab(t)
	rt, err := lab.BuildRuntime(2)
	if err != nil {
		t.Fatalf("BuildRuntime: %v", err)
	}
	ctx := context.Background()

	mid, m, err := rt.CreateMatch(ctx, spec.SID(7001), "rt-seed")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if m.Seed() != "rt-seed" || m.Insecure() {
		t.Fatalf("seeded match misconfigured: %+v", m)
	}
	if _, err := rt.Advance(ctx, mid, twoTeams(1, nil)); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := rt.Advance(ctx, "m-missing", nil); err == nil {
		t.Fatalf("unknown match id should fail")
	}

	// empty seed opens an insecure match
	_, im, err := rt.CreateMatch(ctx, spec.SID(7001), "")
	if err != nil {
		t.Fatalf("CreateMatch insecure: %v", err)
	}
	if !im.Insecure() {
		t.Fatalf("empty seed should mark match insecure")
	}

	// live-match cap
	if _, _, err := rt.CreateMatch(ctx, spec.SID(7001), "overflow"); err == nil {
		t.Fatalf("live match cap should reject third match")
	}
	rt.DropMatch(mid)
	if rt.LiveMatches() != 1 {
		t.Fatalf("live matches got %d want 1", rt.LiveMatches())
	}

	rt.Close()
	if !rt.Closed() || rt.ClosedReason() != "closed" {
		t.Fatalf("runtime should be closed")
	}
	if _, err := rt.Advance(ctx, mid, nil); err == nil {
		t.Fatalf("advance after close should fail")
	}
}
