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
	"math"
	"testing"

	"github.com/zintix-labs/marketlab/sdk/core"
	"github.com/zintix-labs/marketlab/sdk/engine"
	"github.com/zintix-labs/marketlab/spec"
)

const twoSegmentYAML = `
scenario_name: "test-market"
scenario_id: 9
max_teams: 8
segments:
  - name: mainstream
    base_demand: 10000
    price_min: 200
    price_max: 500
    quality_expectation: 50
    weights: {price: 30, quality: 30, brand: 15, esg: 10, feature: 15}
    costs: {raw_material: 60, labor: 40, overhead: 30}
  - name: premium
    base_demand: 3000
    price_min: 600
    price_max: 1200
    quality_expectation: 75
    weights: {price: 10, quality: 35, brand: 20, esg: 15, feature: 20}
    costs: {raw_material: 150, labor: 120, overhead: 80}
economy:
  gdp_growth: 0.02
  consumer_confidence: 100
  inflation: 0.01
`

func loadSetting(t *testing.T) *spec.MarketSetting {
	t.Helper()
	ms, err := spec.GetMarketSettingByYAML([]byte(twoSegmentYAML))
	if err != nil {
		t.Fatalf("load setting: %v", err)
	}
	return ms
}

func newCtx(t *testing.T, seed string, round int) *engine.Context {
	t.Helper()
	ctx, err := engine.NewContext(core.Default(), seed, round)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return ctx
}

func launchedProduct(segment string, price, quality float64) ProductSnapshot {
	return ProductSnapshot{
		Segment: segment,
		Price:   price,
		Quality: quality,
		Status:  StatusLaunched,
	}
}

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v (tol %v)", what, got, want, tol)
	}
}

//---------------------------------------
// 份額分配
//---------------------------------------

func TestSoftmaxFixtures(t *testing.T) {
	// 固定樣本：分數 (70,65,60,55) 於預設溫度/尺度下的份額
	got := softmaxShares([]float64{70, 65, 60, 55}, 4, 0.4)
	want := []float64{0.455, 0.276, 0.167, 0.102}
	for i := range want {
		approx(t, got[i], want[i], 0.005, "share")
	}

	got = softmaxShares([]float64{80, 60, 55, 50}, 4, 0.4)
	want = []float64{0.789, 0.107, 0.065, 0.039}
	for i := range want {
		approx(t, got[i], want[i], 0.005, "share")
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	got := softmaxShares([]float64{12, 0, 88, 41, 0, 63}, 4, 0.4)
	sum := 0.0
	for i, s := range got {
		if s < 0 {
			t.Fatalf("negative share at %d: %v", i, s)
		}
		sum += s
	}
	approx(t, sum, 1, 1e-12, "share sum")
	if got[1] != 0 || got[4] != 0 {
		t.Fatalf("zero-score teams must get zero share: %v", got)
	}
}

func TestSoftmaxAllZeroEqualSplit(t *testing.T) {
	got := softmaxShares([]float64{0, 0, 0}, 4, 0.4)
	for _, s := range got {
		approx(t, s, 1.0/3, 1e-12, "equal split")
	}
	if got := softmaxShares(nil, 4, 0.4); len(got) != 0 {
		t.Fatalf("empty input must yield empty shares")
	}
}

//---------------------------------------
// 競爭動態
//---------------------------------------

func TestCrowdingFactor(t *testing.T) {
	cases := []struct {
		products int
		want     float64
	}{
		{0, 1}, {3, 1}, {4, 0.95}, {5, 0.90}, {23, 0}, {50, 0},
	}
	for _, tc := range cases {
		if got := crowdingFactor(tc.products, 3, 0.05); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("crowdingFactor(%d) = %v, want %v", tc.products, got, tc.want)
		}
	}
}

func TestFirstMoverGrantAndDecay(t *testing.T) {
	set := loadSetting(t)
	team := TeamInput{
		TeamID:   "alpha",
		Brand:    0.5,
		ESGScore: 600,
		Products: []ProductSnapshot{launchedProduct("mainstream", 300, 50)},
	}

	// 第一回合：唯一參賽者 → 發放完整紅利
	res, err := Simulate(newCtx(t, "fm-test", 1), set, State{}, DynamicsState{}, []TeamInput{team})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.FirstMover) != 1 {
		t.Fatalf("want 1 first-mover grant, got %d", len(res.FirstMover))
	}
	g := res.FirstMover[0]
	if g.TeamID != "alpha" || g.Segment != "mainstream" || g.DecayRounds != 3 {
		t.Fatalf("unexpected grant: %+v", g)
	}
	approx(t, g.Bonus, 0.2, 1e-12, "full bonus")

	// 第二回合：紅利全額生效（乘數 1.2）
	dyn := res.NextDynamics
	res2, err := Simulate(newCtx(t, "fm-test", 2), set, res.NextState, dyn, []TeamInput{team})
	if err != nil {
		t.Fatalf("simulate round 2: %v", err)
	}
	pos := res2.Position("alpha", "mainstream")
	approx(t, pos.Score/pos.BaseScore, 1.2, 1e-9, "first-mover multiplier")
	// 已有有效紅利，不得重複發放
	if len(res2.FirstMover) != 0 {
		t.Fatalf("must not re-grant while a bonus is active")
	}

	// 衰減鏈：生效 3/3 → 2/3 → 1/3，之後過期
	if rem := res2.NextDynamics.FirstMover[0].Remaining; rem != 2 {
		t.Fatalf("remaining after one decay = %d, want 2", rem)
	}
	res3, _ := Simulate(newCtx(t, "fm-test", 3), set, res2.NextState, res2.NextDynamics, []TeamInput{team})
	pos3 := res3.Position("alpha", "mainstream")
	approx(t, pos3.Score/pos3.BaseScore, 1+0.2*2/3, 1e-9, "second decay step")

	res4, _ := Simulate(newCtx(t, "fm-test", 4), set, res3.NextState, res3.NextDynamics, []TeamInput{team})
	pos4 := res4.Position("alpha", "mainstream")
	approx(t, pos4.Score/pos4.BaseScore, 1+0.2/3, 1e-9, "final decay step")

	// 過期即剪除，區隔重新開放 → 同回合重新發放
	if len(res4.FirstMover) != 1 {
		t.Fatalf("expired bonus must reopen the segment for a new grant: %+v", res4.FirstMover)
	}
	if got := res4.NextDynamics.FirstMover; len(got) != 1 || got[0].Remaining != 3 {
		t.Fatalf("fresh grant expected after expiry, got %+v", got)
	}
}

func TestFirstMoverHalvedWithOneCompetitor(t *testing.T) {
	set := loadSetting(t)
	teams := []TeamInput{
		{TeamID: "alpha", Brand: 0.6, ESGScore: 500,
			Products: []ProductSnapshot{launchedProduct("mainstream", 300, 55)}},
		{TeamID: "beta", Brand: 0.4, ESGScore: 500,
			Products: []ProductSnapshot{launchedProduct("mainstream", 320, 45)}},
	}
	res, err := Simulate(newCtx(t, "fm-half", 1), set, State{}, DynamicsState{}, teams)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.FirstMover) != 1 {
		t.Fatalf("want 1 grant, got %d", len(res.FirstMover))
	}
	approx(t, res.FirstMover[0].Bonus, 0.1, 1e-12, "halved bonus")
	if res.FirstMover[0].TeamID != "alpha" {
		t.Fatalf("bonus must go to the top scorer, got %s", res.FirstMover[0].TeamID)
	}
}

func TestArmsRaceConsumedOnce(t *testing.T) {
	set := loadSetting(t)
	team := TeamInput{
		TeamID:   "alpha",
		Brand:    0.5,
		ESGScore: 600,
		Products: []ProductSnapshot{{
			Segment: "mainstream", Price: 300, Quality: 50,
			AppliedTechs: []string{"solid-state"},
			Status:       StatusLaunched,
		}},
	}
	res, err := Simulate(newCtx(t, "arms", 1), set, State{}, DynamicsState{}, []TeamInput{team})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.ArmsRace) != 1 || res.ArmsRace[0].Tech != "solid-state" {
		t.Fatalf("want 1 arms-race trigger, got %+v", res.ArmsRace)
	}
	pos := res.Position("alpha", "mainstream")
	approx(t, pos.Score/pos.BaseScore, 1.05, 1e-9, "arms-race multiplier")

	if res.NextDynamics.FirstCompletions["solid-state"] != "alpha" {
		t.Fatalf("first completion not recorded: %+v", res.NextDynamics.FirstCompletions)
	}

	// 次回合：紅利已消耗，不得再觸發
	res2, _ := Simulate(newCtx(t, "arms", 2), set, res.NextState, res.NextDynamics, []TeamInput{team})
	if len(res2.ArmsRace) != 0 {
		t.Fatalf("consumed bonus must not trigger again")
	}
}

func TestErosionOnlyBeyondThreshold(t *testing.T) {
	set := loadSetting(t)
	tn := &set.Tuning
	ctx := newCtx(t, "erosion", 1)

	a := &TeamPosition{TeamID: "a", Segment: "s", HasProduct: true, Score: 100}
	b := &TeamPosition{TeamID: "b", Segment: "s", HasProduct: true, Score: 90}
	var events []ErosionNotice
	detectErosion(ctx, tn, []*TeamPosition{a, b}, &events)
	if len(events) != 0 {
		t.Fatalf("11%% lead must not erode")
	}

	c := &TeamPosition{TeamID: "c", Segment: "s", HasProduct: true, Score: 130}
	d := &TeamPosition{TeamID: "d", Segment: "s", HasProduct: true, Score: 100}
	detectErosion(ctx, tn, []*TeamPosition{c, d}, &events)
	if len(events) != 1 {
		t.Fatalf("30%% lead must erode, got %d events", len(events))
	}
	ev := events[0]
	approx(t, ev.Advantage, 0.3, 1e-9, "advantage")
	approx(t, ev.Multiplier, 1.15, 1e-9, "multiplier")
	// 乘數只回報，分數不動
	approx(t, c.Score, 130, 1e-12, "leader score untouched")
	approx(t, d.Score, 100, 1e-12, "trailing score untouched")
}

func TestErosionIsReportOnly(t *testing.T) {
	set := loadSetting(t)
	teams := []TeamInput{
		{TeamID: "giant", Brand: 0.9, ESGScore: 800,
			Products: []ProductSnapshot{launchedProduct("mainstream", 300, 70)}},
		{TeamID: "minor", Brand: 0.1, ESGScore: 350,
			Products: []ProductSnapshot{launchedProduct("mainstream", 480, 30)}},
	}

	res, err := Simulate(newCtx(t, "erosion-pipeline", 1), set, State{}, DynamicsState{}, teams)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Erosions) == 0 {
		t.Fatalf("dominant leader must trigger erosion notice")
	}
	// 兩隊、無擁擠、無既有紅利：最終分必須等於基礎分，
	// 侵蝕乘數不得滲進配額
	for _, p := range res.Positions {
		if p.HasProduct {
			approx(t, p.Score, p.BaseScore, 1e-12, "score must equal base score for "+p.TeamID)
		}
	}

	// 敏感度不同只影響通知內容，不影響份額
	hot := *set
	hot.Tuning.ErosionSensitivity = 0.9
	res2, err := Simulate(newCtx(t, "erosion-pipeline", 1), &hot, State{}, DynamicsState{}, teams)
	if err != nil {
		t.Fatalf("Simulate hot: %v", err)
	}
	approx(t, res2.Team("giant").Shares["mainstream"], res.Team("giant").Shares["mainstream"], 1e-12, "share independent of sensitivity")
	if res2.Erosions[0].Multiplier <= res.Erosions[0].Multiplier {
		t.Fatalf("higher sensitivity must report a larger multiplier")
	}
}

//---------------------------------------
// ESG 下行風險
//---------------------------------------

func TestESGPenaltyBoundaries(t *testing.T) {
	cfg := spec.ESGSetting{Threshold: 300, MaxScore: 1000, MaxPenaltyRate: 0.15, MinPenaltyRate: 0.02}

	if _, _, risky := esgPenalty(cfg, 300, 1000); risky {
		t.Fatalf("score at threshold must be safe")
	}
	if _, _, risky := esgPenalty(cfg, 800, 1000); risky {
		t.Fatalf("high score must be safe")
	}

	rate, penalty, risky := esgPenalty(cfg, 0, 1000)
	if !risky {
		t.Fatalf("zero score must be risky")
	}
	approx(t, rate, 0.15, 1e-12, "max rate at zero")
	approx(t, penalty, 150, 1e-9, "penalty")

	rate, _, _ = esgPenalty(cfg, 299.999, 1000)
	approx(t, rate, 0.02, 1e-3, "rate near threshold")

	// 零營收照發事件，罰金為零
	rate, penalty, risky = esgPenalty(cfg, 200, 0)
	if !risky || penalty != 0 || rate <= 0 {
		t.Fatalf("zero revenue: want risky event with zero penalty, got rate=%v penalty=%v risky=%v", rate, penalty, risky)
	}
}

//---------------------------------------
// 防失控
//---------------------------------------

func TestRubberbandBands(t *testing.T) {
	rb := spec.RubberbandSetting{Enabled: true, MinRound: 3, LaggingBand: 0.5, LeadingBand: 2.0, BoostFactor: 1.15, DragFactor: 0.92}
	segments := []string{"s1", "s2"}

	mk := func(id string, share float64) []*TeamPosition {
		return []*TeamPosition{
			{TeamID: id, Segment: "s1", HasProduct: true, Share: share},
			{TeamID: id, Segment: "s2", HasProduct: true, Share: share},
		}
	}
	byTeam := map[string][]*TeamPosition{
		"strong": mk("strong", 0.80),
		"mid":    mk("mid", 0.25),
		"weak":   mk("weak", 0.05),
	}

	// 回合門檻之前不得介入
	if got := applyRubberband(rb, 2, segments, byTeam); got != nil {
		t.Fatalf("rubberband before min_round must be a no-op")
	}
	approx(t, byTeam["weak"][0].Share, 0.05, 1e-12, "share untouched")

	got := applyRubberband(rb, 3, segments, byTeam)
	if got["strong"] != "drag" || got["weak"] != "boost" {
		t.Fatalf("unexpected adjustments: %v", got)
	}
	if _, touched := got["mid"]; touched {
		t.Fatalf("in-band team must not be adjusted")
	}
	approx(t, byTeam["strong"][0].Share, 0.80*0.92, 1e-12, "dragged share")
	approx(t, byTeam["weak"][1].Share, 0.05*1.15, 1e-12, "boosted share")

	// 未明確開啟的情境一律不介入，帶外也一樣
	off := rb
	off.Enabled = false
	fresh := map[string][]*TeamPosition{
		"strong": mk("strong", 0.80),
		"weak":   mk("weak", 0.05),
	}
	if got := applyRubberband(off, 5, segments, fresh); got != nil {
		t.Fatalf("rubberband must stay off unless explicitly enabled, got %v", got)
	}
	approx(t, fresh["strong"][0].Share, 0.80, 1e-12, "share untouched when off")
}

//---------------------------------------
// 價格評分與動態定價
//---------------------------------------

func TestPriceScoreBranches(t *testing.T) {
	set := loadSetting(t)
	seg := set.Segment("mainstream") // 價帶 [200,500]，成本地板 130
	tn := &set.Tuning

	inBand := priceScore(seg, tn, 250, 50, nil)
	expensive := priceScore(seg, tn, 480, 50, nil)
	if inBand <= expensive {
		t.Fatalf("cheaper in-band price must score higher: %v vs %v", inBand, expensive)
	}

	// 傾銷：低於成本地板要被壓分
	dumping := priceScore(seg, tn, 100, 50, nil)
	nearMin := priceScore(seg, tn, 200, 50, nil)
	if dumping >= nearMin {
		t.Fatalf("dumping price must score lower: %v vs %v", dumping, nearMin)
	}

	// 品質超標放寬可接受上緣：同一價位，高品質分數較高
	highQ := priceScore(seg, tn, 560, 80, nil)
	lowQ := priceScore(seg, tn, 560, 50, nil)
	if highQ <= lowQ {
		t.Fatalf("quality premium must widen the band: %v vs %v", highQ, lowQ)
	}

	// 動態分支：貼近期望得高分，偏離遞減
	exp := &PriceExpectation{Expected: 300, Underserved: 0}
	atExp := priceScore(seg, tn, 300, 50, exp)
	offExp := priceScore(seg, tn, 360, 50, exp)
	approx(t, atExp, 1, 1e-12, "score at expectation")
	if offExp >= atExp {
		t.Fatalf("deviation from expectation must reduce score")
	}
}

func TestQualityDiminishingReturns(t *testing.T) {
	set := loadSetting(t)
	seg := set.Segment("mainstream") // 期望 50
	tn := &set.Tuning

	approx(t, qualityScore(seg, tn, 25), 0.5, 1e-12, "below expectation")
	approx(t, qualityScore(seg, tn, 50), 1.0, 1e-12, "at expectation")
	// 超標 4%：1 + sqrt(0.04) = 1.2 正好封頂
	approx(t, qualityScore(seg, tn, 52), 1.2, 1e-9, "slightly above")
	approx(t, qualityScore(seg, tn, 500), 1.2, 1e-12, "cap")
}

func TestNextExpectationsEMA(t *testing.T) {
	set := loadSetting(t)
	teams := []TeamInput{
		{TeamID: "a", Products: []ProductSnapshot{launchedProduct("mainstream", 100, 50)}},
		{TeamID: "b", Products: []ProductSnapshot{launchedProduct("mainstream", 140, 50)}},
	}

	prev := map[string]PriceExpectation{"mainstream": {Expected: 100}}
	got := nextExpectations(set, prev, teams)
	// EMA: 100*0.7 + 120*0.3 = 106
	approx(t, got["mainstream"].Expected, 106, 1e-9, "ema expected")
	// 供給稀疏度相對於場域上限：2 隊進場 / max_teams 8
	approx(t, got["mainstream"].Underserved, 0.75, 1e-12, "underserved vs field size")

	// 無人進場的區隔：期望回到帶中點，標記供給真空
	premium := got["premium"]
	approx(t, premium.Expected, 900, 1e-9, "midpoint fallback")
	approx(t, premium.Underserved, 1, 1e-12, "underserved")

	// 無歷史：直接採用觀測值
	fresh := nextExpectations(set, nil, teams)
	approx(t, fresh["mainstream"].Expected, 120, 1e-9, "bootstrap from observation")

	// 未設 max_teams 的情境：分母退回本回合隊伍數，全員進場即供給充足
	open := *set
	open.MaxTeams = 0
	uncapped := nextExpectations(&open, nil, teams)
	approx(t, uncapped["mainstream"].Underserved, 0, 1e-12, "all present teams competing")
}

//---------------------------------------
// 完整管線
//---------------------------------------

func testTeams() []TeamInput {
	return []TeamInput{
		{
			TeamID: "beta", Brand: 0.35, ESGScore: 450, RnDBudget: 800, QualityLines: 1,
			Products:  []ProductSnapshot{launchedProduct("mainstream", 340, 44)},
			Factories: []FactorySnapshot{{Region: "apac", Efficiency: 0.55, DefectRate: 0.04}},
		},
		{
			TeamID: "alpha", Brand: 0.7, ESGScore: 720, RnDBudget: 1500, QualityLines: 2,
			Products: []ProductSnapshot{
				launchedProduct("mainstream", 290, 55),
				launchedProduct("premium", 900, 78),
			},
			Factories: []FactorySnapshot{{Region: "emea", Efficiency: 0.8, DefectRate: 0.02}},
		},
		{
			TeamID: "gamma", Brand: 0.5, ESGScore: 150, RnDBudget: 300,
			Products:  []ProductSnapshot{launchedProduct("premium", 1100, 70)},
			Factories: []FactorySnapshot{{Region: "amer", Efficiency: 0.65, DefectRate: 0.06}},
		},
	}
}

func TestSimulateDeterminism(t *testing.T) {
	set := loadSetting(t)
	r1, err := Simulate(newCtx(t, "det", 1), set, State{}, DynamicsState{}, testTeams())
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	r2, err := Simulate(newCtx(t, "det", 1), set, State{}, DynamicsState{}, testTeams())
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if r1.String() != r2.String() {
		t.Fatalf("summary diverged: %s vs %s", r1, r2)
	}
	for i := range r1.Positions {
		if r1.Positions[i] != r2.Positions[i] {
			// TeamPosition 無 slice/map 欄位，可直接比較
			t.Fatalf("position %d diverged: %+v vs %+v", i, r1.Positions[i], r2.Positions[i])
		}
	}

	// 輸入順序不影響輸出：走訪一律 TeamID 升冪
	shuffled := testTeams()
	shuffled[0], shuffled[2] = shuffled[2], shuffled[0]
	r3, _ := Simulate(newCtx(t, "det", 1), set, State{}, DynamicsState{}, shuffled)
	for i := range r1.Positions {
		if r1.Positions[i] != r3.Positions[i] {
			t.Fatalf("input order changed output at %d", i)
		}
	}
}

func TestSimulateAccounting(t *testing.T) {
	set := loadSetting(t)
	res, err := Simulate(newCtx(t, "acct", 1), set, State{}, DynamicsState{}, testTeams())
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	// 每區隔：參賽者份額總和 1，無產品者份額 0
	for _, segName := range set.SegmentNames() {
		sum := 0.0
		for i := range res.Positions {
			p := &res.Positions[i]
			if p.Segment != segName {
				continue
			}
			if !p.HasProduct && p.Share != 0 {
				t.Fatalf("no-product team got share: %+v", p)
			}
			sum += p.Share
		}
		approx(t, sum, 1, 1e-9, "segment share sum")
	}

	// 件數與營收對帳
	for i := range res.Positions {
		p := &res.Positions[i]
		if !p.HasProduct {
			continue
		}
		demand := float64(res.SegmentDemand[p.Segment])
		if float64(p.Units) > demand*p.Share+1 {
			t.Fatalf("units exceed share of demand: %+v", p)
		}
		if p.Units > 0 && p.Revenue <= 0 {
			t.Fatalf("sold units without revenue: %+v", p)
		}
	}

	// 地區歸屬
	alpha := res.Team("alpha")
	if alpha == nil || alpha.RevenueByRegion["emea"] != alpha.Revenue {
		t.Fatalf("revenue region attribution wrong: %+v", alpha)
	}

	// gamma ESG 150 < 300：必有風險事件
	found := false
	for _, ev := range res.ESGEvents {
		if ev.TeamID == "gamma" && ev.Penalty > 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("low-esg team must trigger a risk event: %+v", res.ESGEvents)
	}
}

func TestSimulateEdgeCases(t *testing.T) {
	set := loadSetting(t)

	// 空隊伍列表：空結果，狀態照樣推進
	res, err := Simulate(newCtx(t, "edge", 1), set, State{}, DynamicsState{}, nil)
	if err != nil {
		t.Fatalf("simulate empty: %v", err)
	}
	if len(res.Positions) != 0 || len(res.Teams) != 0 {
		t.Fatalf("empty team list must yield empty result: %+v", res)
	}
	if res.NextState.SustainabilityPremium <= 1 {
		t.Fatalf("premium must still advance: %v", res.NextState.SustainabilityPremium)
	}

	// context 是強制參數
	if _, err := Simulate(nil, set, State{}, DynamicsState{}, nil); err == nil {
		t.Fatalf("nil context must fail")
	}
	if _, err := Simulate(newCtx(t, "edge", 1), nil, State{}, DynamicsState{}, nil); err == nil {
		t.Fatalf("nil setting must fail")
	}

	// 重複隊伍 ID 直接報錯
	dup := []TeamInput{{TeamID: "a"}, {TeamID: "a"}}
	if _, err := Simulate(newCtx(t, "edge", 1), set, State{}, DynamicsState{}, dup); err == nil {
		t.Fatalf("duplicate team id must fail")
	}

	// 開發中產品不參賽
	dev := []TeamInput{{
		TeamID: "a", Brand: 0.5, ESGScore: 500,
		Products: []ProductSnapshot{{Segment: "mainstream", Price: 300, Quality: 50, Status: StatusDevelopment}},
	}}
	res, err = Simulate(newCtx(t, "edge", 1), set, State{}, DynamicsState{}, dev)
	if err != nil {
		t.Fatalf("simulate dev-only: %v", err)
	}
	if p := res.Position("a", "mainstream"); p.HasProduct || p.Share != 0 {
		t.Fatalf("development product must not compete: %+v", p)
	}
}

func TestCrowdedSegmentPenalizedInPipeline(t *testing.T) {
	set := loadSetting(t)
	teams := make([]TeamInput, 5)
	for i := range teams {
		teams[i] = TeamInput{
			TeamID:   string(rune('a' + i)),
			Brand:    0.5,
			ESGScore: 500,
			Products: []ProductSnapshot{launchedProduct("mainstream", 300, 50)},
		}
	}
	res, err := Simulate(newCtx(t, "crowd", 1), set, State{}, DynamicsState{}, teams)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(res.Crowding) != 1 {
		t.Fatalf("want crowding notice, got %+v", res.Crowding)
	}
	n := res.Crowding[0]
	if n.Segment != "mainstream" || n.Products != 5 {
		t.Fatalf("unexpected notice: %+v", n)
	}
	approx(t, n.Factor, 0.90, 1e-12, "crowding factor")
	pos := res.Position("a", "mainstream")
	approx(t, pos.Score/pos.BaseScore, 0.90, 1e-9, "crowding applied to score")
}
