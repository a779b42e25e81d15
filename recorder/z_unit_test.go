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

package recorder_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/zintix-labs/marketlab/recorder"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
)

func newRecorder(t *testing.T) *recorder.RoundRecorder {
	t.Helper()
	r, err := recorder.NewRoundRecorder("test-scenario", spec.SID(9001), []string{"mainstream", "premium"})
	if err != nil {
		t.Fatalf("NewRoundRecorder: %v", err)
	}
	return r
}

// fakeRound builds a two-team round where alpha takes 60% of mainstream
// and beta takes 40%, with the given revenues.
func fakeRound(round int, alphaRev, betaRev float64) *market.RoundResult {
	return &market.RoundResult{
		Round:     round,
		MatchSeed: "seed-test",
		Positions: []market.TeamPosition{
			{TeamID: "alpha", Segment: "mainstream", HasProduct: true, Share: 0.6, Units: 600, Revenue: alphaRev},
			{TeamID: "beta", Segment: "mainstream", HasProduct: true, Share: 0.4, Units: 400, Revenue: betaRev},
		},
		Teams: []market.TeamResult{
			{
				TeamID:   "alpha",
				Shares:   map[string]float64{"mainstream": 0.6},
				Units:    map[string]int{"mainstream": 600},
				Revenue:  alphaRev,
				AvgShare: 0.3,
			},
			{
				TeamID:     "beta",
				Shares:     map[string]float64{"mainstream": 0.4},
				Units:      map[string]int{"mainstream": 400},
				Revenue:    betaRev,
				AvgShare:   0.2,
				Rubberband: "boost",
			},
		},
		SegmentDemand:     map[string]int{"mainstream": 1000, "premium": 500},
		ESGEvents:         []market.ESGEvent{{TeamID: "beta", Score: 100, Rate: 0.1, Penalty: betaRev * 0.1}},
		RubberbandApplied: true,
	}
}

func TestRecordAndDone(t *testing.T) {
	r := newRecorder(t)
	r.Record(fakeRound(1, 9000, 4000))
	r.Record(fakeRound(2, 11000, 4000))
	r.FinishMatch()

	rep := r.Done()
	rep.Done()

	if rep.Summary.Rounds != 2 || rep.Summary.Matches != 1 {
		t.Fatalf("summary rounds/matches got %d/%d", rep.Summary.Rounds, rep.Summary.Matches)
	}
	if rep.Summary.TotalRevenue != 28000 {
		t.Fatalf("total revenue got %.0f want 28000", rep.Summary.TotalRevenue)
	}
	if rep.Summary.TotalUnits != 2000 {
		t.Fatalf("total units got %d want 2000", rep.Summary.TotalUnits)
	}
	if rep.Summary.ESGEvents != 2 || rep.Summary.Rubberband != 2 {
		t.Fatalf("event counts got esg=%d rb=%d", rep.Summary.ESGEvents, rep.Summary.Rubberband)
	}

	alpha := rep.Team("alpha")
	if alpha == nil || alpha.Wins != 1 {
		t.Fatalf("alpha should have won the match: %+v", alpha)
	}
	if math.Abs(alpha.RevenueMean-10000) > 1e-9 {
		t.Fatalf("alpha revenue mean got %.3f want 10000", alpha.RevenueMean)
	}
	beta := rep.Team("beta")
	if beta.Wins != 0 || beta.Boosts != 2 {
		t.Fatalf("beta wins=%d boosts=%d", beta.Wins, beta.Boosts)
	}

	// HHI: every round 0.6²+0.4² = 0.52 in mainstream
	if math.Abs(rep.Market.SegmentHHI["mainstream"]-0.52) > 1e-12 {
		t.Fatalf("mainstream HHI got %.12f want 0.52", rep.Market.SegmentHHI["mainstream"])
	}
	if rep.Market.SegmentDemand["premium"] != 1000 {
		t.Fatalf("premium demand got %d want 1000", rep.Market.SegmentDemand["premium"])
	}
}

func TestFinishMatchTiebreak(t *testing.T) {
	r := newRecorder(t)
	r.Record(fakeRound(1, 5000, 5000))
	r.FinishMatch()
	rep := r.Done()
	if rep.Team("alpha").Wins != 1 || rep.Team("beta").Wins != 0 {
		t.Fatalf("tiebreak should pick lexicographically smaller team id")
	}

	// finishing with no recorded rounds is a no-op
	r.FinishMatch()
	if r.Basic.Matches != 1 {
		t.Fatalf("empty FinishMatch should not count a match")
	}
}

func TestMergeRoundRecorder(t *testing.T) {
	a := newRecorder(t)
	a.Record(fakeRound(1, 9000, 4000))
	a.FinishMatch()

	b := newRecorder(t)
	b.Record(fakeRound(1, 3000, 8000))
	b.FinishMatch()

	m, err := recorder.MergeRoundRecorder([]*recorder.RoundRecorder{a, b})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if m.Basic.Rounds != 2 || m.Basic.Matches != 2 {
		t.Fatalf("merged rounds/matches got %d/%d", m.Basic.Rounds, m.Basic.Matches)
	}
	if m.Teams["alpha"].Wins != 1 || m.Teams["beta"].Wins != 1 {
		t.Fatalf("merged wins got alpha=%d beta=%d", m.Teams["alpha"].Wins, m.Teams["beta"].Wins)
	}
	if m.Basic.TotalRevenue != 24000 {
		t.Fatalf("merged revenue got %.0f want 24000", m.Basic.TotalRevenue)
	}

	other, err := recorder.NewRoundRecorder("other", spec.SID(1), []string{"mainstream"})
	if err != nil {
		t.Fatalf("NewRoundRecorder: %v", err)
	}
	if _, err := recorder.MergeRoundRecorder([]*recorder.RoundRecorder{a, other}); err == nil {
		t.Fatalf("merge should reject different scenarios")
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	r := newRecorder(t)
	r.Record(fakeRound(1, 9000, 4000))

	// unfinished match must not be exported
	var buf bytes.Buffer
	if err := r.Export(&buf); err == nil {
		t.Fatalf("export with open match should fail")
	}

	r.FinishMatch()
	buf.Reset()
	if err := r.Export(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	back, err := recorder.Import(&buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if back.ScenarioName != r.ScenarioName || back.ScenarioID != r.ScenarioID {
		t.Fatalf("identity mismatch after roundtrip")
	}
	if back.Basic.Rounds != 1 || back.Basic.Matches != 1 {
		t.Fatalf("rounds/matches mismatch after roundtrip")
	}
	if back.Teams["alpha"].RevenueSum != 9000 {
		t.Fatalf("alpha revenue mismatch after roundtrip")
	}

	// an imported recorder keeps recording
	back.Record(fakeRound(1, 1000, 2000))
	back.FinishMatch()
	if back.Basic.Matches != 2 {
		t.Fatalf("imported recorder should keep counting matches")
	}
}

func TestNewRoundRecorderValidation(t *testing.T) {
	if _, err := recorder.NewRoundRecorder("", spec.SID(1), []string{"a"}); err == nil {
		t.Fatalf("empty scenario name should fail")
	}
	if _, err := recorder.NewRoundRecorder("x", spec.SID(1), nil); err == nil {
		t.Fatalf("empty segments should fail")
	}
}
