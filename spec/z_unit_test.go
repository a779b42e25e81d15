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
	"strings"
	"testing"
)

const validScenarioYAML = `
scenario_name: "smartphones-2026"
scenario_id: 1
max_teams: 8
segments:
  - name: budget
    base_demand: 10000
    price_min: 100
    price_max: 300
    growth_rate: 0.02
    quality_expectation: 40
    weights: {price: 40, quality: 25, brand: 10, esg: 10, feature: 15}
    costs: {raw_material: 40, labor: 30, overhead: 20}
  - name: premium
    base_demand: 3000
    price_min: 600
    price_max: 1200
    growth_rate: 0.05
    quality_expectation: 75
    weights: {price: 10, quality: 35, brand: 20, esg: 15, feature: 20}
    feature_prefs: [0.5, 0.3, 0.2]
    costs: {raw_material: 150, labor: 120, overhead: 80}
economy:
  gdp_growth: 0.03
  consumer_confidence: 105
  inflation: 0.02
`

func TestGetMarketSettingByYAML(t *testing.T) {
	ms, err := GetMarketSettingByYAML([]byte(validScenarioYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if ms.ScenarioName != "smartphones-2026" || ms.ScenarioID != 1 {
		t.Fatalf("unexpected scenario header: %+v", ms)
	}
	if len(ms.Segments) != 2 {
		t.Fatalf("want 2 segments, got %d", len(ms.Segments))
	}
	if ms.DefaultRegion != "global" {
		t.Fatalf("default_region default not applied: %q", ms.DefaultRegion)
	}
	if got := ms.Segments[1].Costs.Floor(); got != 350 {
		t.Fatalf("premium cost floor = %v, want 350", got)
	}
}

func TestTuningDefaults(t *testing.T) {
	ms, err := GetMarketSettingByYAML([]byte(validScenarioYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	ts := ms.Tuning
	if ts.SoftmaxTemperature != 4 || ts.ScoreScale != 0.4 {
		t.Fatalf("softmax defaults wrong: T=%v scale=%v", ts.SoftmaxTemperature, ts.ScoreScale)
	}
	if ts.CrowdingThreshold != 3 || ts.CrowdingPenalty != 0.05 {
		t.Fatalf("crowding defaults wrong: %+v", ts)
	}
	if ts.FirstMoverRounds != 3 || ts.ArmsRaceBonus != 0.05 {
		t.Fatalf("dynamics defaults wrong: %+v", ts)
	}
	if ts.ESG.Threshold != 300 || ts.ESG.MaxScore != 1000 {
		t.Fatalf("esg defaults wrong: %+v", ts.ESG)
	}
	if ts.Rubberband.MinRound != 3 || ts.Rubberband.BoostFactor != 1.15 || ts.Rubberband.DragFactor != 0.92 {
		t.Fatalf("rubberband defaults wrong: %+v", ts.Rubberband)
	}
	if ts.Rubberband.Enabled {
		t.Fatalf("rubberband must be opt-in, default config enabled it")
	}
	if ts.Pricing.Alpha != 0.3 {
		t.Fatalf("pricing alpha default wrong: %v", ts.Pricing.Alpha)
	}
	if ms.Pressures.SustainabilityPremium != 1.0 {
		t.Fatalf("pressure default wrong: %+v", ms.Pressures)
	}
}

func TestWeightsMustSumTo100(t *testing.T) {
	bad := strings.Replace(validScenarioYAML,
		"weights: {price: 40, quality: 25, brand: 10, esg: 10, feature: 15}",
		"weights: {price: 40, quality: 25, brand: 10, esg: 10, feature: 10}", 1)
	if _, err := GetMarketSettingByYAML([]byte(bad)); err == nil {
		t.Fatalf("expected weight-sum validation failure")
	}
}

func TestRejectsBrokenScenarios(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
	}{
		{"empty name", `scenario_name: "smartphones-2026"`, `scenario_name: ""`},
		{"bad price band", "price_max: 300", "price_max: 50"},
		{"zero demand", "base_demand: 10000", "base_demand: 0"},
		{"duplicate segment", "name: premium", "name: budget"},
	}
	for _, tc := range cases {
		bad := strings.Replace(validScenarioYAML, tc.from, tc.to, 1)
		if bad == validScenarioYAML {
			t.Fatalf("%s: replacement did not apply", tc.name)
		}
		if _, err := GetMarketSettingByYAML([]byte(bad)); err == nil {
			t.Fatalf("%s: expected validation failure", tc.name)
		}
	}
}

func TestSegmentLookup(t *testing.T) {
	ms, err := GetMarketSettingByYAML([]byte(validScenarioYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if got := ms.SegmentNames(); len(got) != 2 || got[0] != "budget" || got[1] != "premium" {
		t.Fatalf("segment order not preserved: %v", got)
	}
	if seg := ms.Segment("premium"); seg == nil || seg.QualityExpectation != 75 {
		t.Fatalf("segment lookup failed: %+v", seg)
	}
	if seg := ms.Segment("nope"); seg != nil {
		t.Fatalf("unknown segment should be nil")
	}
}

func TestDecodeFixed(t *testing.T) {
	yamlWithFixed := validScenarioYAML + `
fixed:
  launch_round: 2
  flagship_segment: premium
`
	ms, err := GetMarketSettingByYAML([]byte(yamlWithFixed))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	type fixedCfg struct {
		LaunchRound     int    `yaml:"launch_round"`
		FlagshipSegment string `yaml:"flagship_segment"`
	}
	var fc fixedCfg
	if err := DecodeFixed(ms, &fc); err != nil {
		t.Fatalf("decode fixed: %v", err)
	}
	if fc.LaunchRound != 2 || fc.FlagshipSegment != "premium" {
		t.Fatalf("unexpected fixed decode: %+v", fc)
	}
}

func TestDemandMultiplier(t *testing.T) {
	es := EconomySetting{GDPGrowth: 0.03, ConsumerConfidence: 105, ConfidenceBaseline: 100, Inflation: 0.02}
	got := es.DemandMultiplier()
	want := 1.03 * 1.05 * 0.99
	if diff := got - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("multiplier = %v, want %v", got, want)
	}
}
