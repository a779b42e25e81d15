package optimizer

import (
	"testing"

	"github.com/zintix-labs/marketlab/stats"
)

func TestTargetsLoss(t *testing.T) {
	tg := &Targets{}
	if err := tg.init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	report := &stats.MatchReport{Market: &stats.MarketReport{AvgHHI: 0.35}}
	est := &stats.EstimatorTeams{Teams: []stats.TeamExperience{
		{TeamID: "a", Outcome: stats.MatchStat{Win: stats.PointStat{Hat: 0.30}}},
		{TeamID: "b", Outcome: stats.MatchStat{Win: stats.PointStat{Hat: 0.20}}},
	}}

	// 完全命中目標：HHI 在目標上、勝率差在容忍帶內
	loss, _ := tg.Loss(report, est)
	if loss != 0 {
		t.Fatalf("loss at target got %v want 0", loss)
	}

	// HHI 偏離 0.1 → 損失 0.1
	report.Market.AvgHHI = 0.45
	loss, _ = tg.Loss(report, est)
	if loss < 0.0999 || loss > 0.1001 {
		t.Fatalf("hhi loss got %v want 0.1", loss)
	}

	// 勝率差 0.5 超出容忍帶 0.25 → 追加 0.25
	est.Teams[0].Outcome.Win.Hat = 0.7
	est.Teams[1].Outcome.Win.Hat = 0.2
	loss, _ = tg.Loss(report, est)
	if loss < 0.3499 || loss > 0.3501 {
		t.Fatalf("combined loss got %v want 0.35", loss)
	}
}

func TestTargetsInitRejectsOutOfRange(t *testing.T) {
	tg := &Targets{AvgHHI: 1.5}
	if err := tg.init(); err == nil {
		t.Fatalf("avg_hhi out of range should fail")
	}
}

func TestNewTunerConfig(t *testing.T) {
	def := []byte(`
targets:
  avg_hhi: 0.4
candidates:
  boost_factors: [1.05, 1.10]
`)
	tn, err := New(def, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tn.cfg.Targets.AvgHHI != 0.4 {
		t.Fatalf("target not loaded: %+v", tn.cfg.Targets)
	}
	if tn.cfg.Search.Rounds != 20 || tn.cfg.Search.Matches != 200 {
		t.Fatalf("search defaults not applied: %+v", tn.cfg.Search)
	}
	if len(tn.axes()) != 1 || tn.axes()[0].name != "boost_factor" {
		t.Fatalf("axes unexpected: %d", len(tn.axes()))
	}

	full, err := New([]byte(`
candidates:
  boost_factors: [1.05]
  drag_factors: [0.92]
  crowding_penalties: [0.05]
  score_scales: [0.4]
`), "")
	if err != nil {
		t.Fatalf("New full: %v", err)
	}
	names := make([]string, 0, 4)
	for _, ax := range full.axes() {
		names = append(names, ax.name)
	}
	want := []string{"boost_factor", "drag_factor", "crowding_penalty", "score_scale"}
	for i := range want {
		if i >= len(names) || names[i] != want[i] {
			t.Fatalf("axes got %v want %v", names, want)
		}
	}

	if _, err := New([]byte("{bad yaml"), ""); err == nil {
		t.Fatalf("bad yaml should fail")
	}
}
