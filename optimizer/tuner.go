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

// Package optimizer 提供情境平衡調參器（Tuner）。
//
// 給定一個已註冊的情境與一組隊伍策略，Tuner 會在候選的 tuning 參數上做
// 座標下降（coordinate descent）：一次只動一個軸，其餘軸固定在目前最佳值，
// 每個候選點用 Simulator 批量模擬後以 Targets 計分，保留損失最小者。
//
// 這不是嚴格的最佳化（搜索空間是人工給定的離散候選點），
// 但對「把一個新情境調到大致平衡」這個工作流程來說足夠快、足夠穩定，
// 而且每一步都可重現（同 seed 同結果）。
package optimizer

import (
	"encoding/json"
	"os"

	"github.com/zintix-labs/marketlab"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// TunerConfig 是調參器的設定檔（YAML）。
type TunerConfig struct {
	Targets Targets `yaml:"targets"`
	// Search 控制每個候選點的模擬量。
	Search struct {
		Rounds  int    `yaml:"rounds"`
		Matches int    `yaml:"matches"`
		Workers int    `yaml:"workers"`
		Seed    string `yaml:"seed"`
	} `yaml:"search"`
	// Candidates 是各軸的離散候選點；留空的軸不搜索。
	Candidates struct {
		BoostFactors        []float64 `yaml:"boost_factors"`
		DragFactors         []float64 `yaml:"drag_factors"`
		CrowdingPenalties   []float64 `yaml:"crowding_penalties"`
		ScoreScales []float64 `yaml:"score_scales"`
	} `yaml:"candidates"`
	// Output 非空時，把最佳 tuning 以 YAML 寫到該路徑。
	Output string `yaml:"output"`
}

func (tc *TunerConfig) init() error {
	if tc.Search.Rounds < 1 {
		tc.Search.Rounds = 20
	}
	if tc.Search.Matches < 1 {
		tc.Search.Matches = 200
	}
	if tc.Search.Workers < 1 {
		tc.Search.Workers = 4
	}
	if tc.Search.Seed == "" {
		tc.Search.Seed = "tuner"
	}
	return tc.Targets.init()
}

// Tuner 依 TunerConfig 對單一情境做平衡搜索。
type Tuner struct {
	cfg TunerConfig
}

// New 讀取調參設定：path 存在時讀檔，否則使用內建預設（def）。
// 與其他設定層一樣 fail-fast：YAML 壞掉直接回錯，不猜。
func New(def []byte, path string) (*Tuner, error) {
	raw := def
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			raw = b
		}
	}
	t := new(Tuner)
	if err := yaml.Unmarshal(raw, &t.cfg); err != nil {
		return nil, errs.Wrap(err, "tuner config unmarshal failed")
	}
	if err := t.cfg.init(); err != nil {
		return nil, err
	}
	return t, nil
}

// axis 是一個可搜索的 tuning 維度。
type axis struct {
	name       string
	candidates []float64
	apply      func(ts *spec.TuningSetting, v float64)
	current    func(ts *spec.TuningSetting) float64
}

// Run 對指定情境執行搜索並輸出結果。
//
// budget 限制總評估次數（每次評估 = rounds×matches 回合的模擬）；
// 超出 budget 時提前停止並回傳目前最佳值。
func (t *Tuner) Run(id spec.SID, lab *marketlab.Marketlab, provider marketlab.TeamProvider, budget int) error {
	if lab == nil || provider == nil {
		return errs.NewFatal("lab/provider required")
	}
	base, err := lab.Setting(id)
	if err != nil {
		return err
	}
	if budget < 1 {
		budget = 1
	}

	axes := t.axes()
	if len(axes) == 0 {
		return errs.NewWarn("no candidates configured")
	}

	p := message.NewPrinter(language.English)
	working := *base // 淺拷貝即可：評估時會整份重新序列化

	bestLoss, bestEval, err := t.evaluate(lab, &working, provider)
	if err != nil {
		return err
	}
	evals := 1
	p.Printf("[tuner] scenario=%s baseline loss=%.4f %s\n", base.ScenarioName, bestLoss, bestEval)

	for _, ax := range axes {
		bestV := ax.current(&working.Tuning)
		for _, v := range ax.candidates {
			if evals >= budget {
				p.Printf("[tuner] budget exhausted after %d evals\n", evals)
				break
			}
			if v == bestV {
				continue
			}
			trial := working
			ax.apply(&trial.Tuning, v)
			loss, eval, eerr := t.evaluate(lab, &trial, provider)
			evals++
			if eerr != nil {
				return eerr
			}
			marker := " "
			if loss < bestLoss {
				bestLoss = loss
				bestV = v
				working = trial
				marker = "*"
			}
			p.Printf("[tuner]%s %s=%.3f loss=%.4f %s\n", marker, ax.name, v, loss, eval)
		}
		ax.apply(&working.Tuning, bestV)
	}

	p.Printf("[tuner] done: loss=%.4f evals=%d\n", bestLoss, evals)
	if t.cfg.Output != "" {
		out, merr := yaml.Marshal(map[string]spec.TuningSetting{"tuning": working.Tuning})
		if merr != nil {
			return errs.Wrap(merr, "marshal tuning failed")
		}
		if werr := os.WriteFile(t.cfg.Output, out, 0o644); werr != nil {
			return errs.Wrap(werr, "write tuning failed")
		}
		p.Printf("[tuner] tuning written to %s\n", t.cfg.Output)
	}
	return nil
}

// axes 把設定檔的候選清單展開成搜索維度（保持宣告順序）。
func (t *Tuner) axes() []axis {
	c := t.cfg.Candidates
	out := make([]axis, 0, 4)
	if len(c.BoostFactors) > 0 {
		out = append(out, axis{
			name:       "boost_factor",
			candidates: c.BoostFactors,
			apply:      func(ts *spec.TuningSetting, v float64) { ts.Rubberband.BoostFactor = v },
			current:    func(ts *spec.TuningSetting) float64 { return ts.Rubberband.BoostFactor },
		})
	}
	if len(c.DragFactors) > 0 {
		out = append(out, axis{
			name:       "drag_factor",
			candidates: c.DragFactors,
			apply:      func(ts *spec.TuningSetting, v float64) { ts.Rubberband.DragFactor = v },
			current:    func(ts *spec.TuningSetting) float64 { return ts.Rubberband.DragFactor },
		})
	}
	if len(c.CrowdingPenalties) > 0 {
		out = append(out, axis{
			name:       "crowding_penalty",
			candidates: c.CrowdingPenalties,
			apply:      func(ts *spec.TuningSetting, v float64) { ts.CrowdingPenalty = v },
			current:    func(ts *spec.TuningSetting) float64 { return ts.CrowdingPenalty },
		})
	}
	// score_scale 直接決定 softmax 的銳利度，是集中度最有效的槓桿；
	// 侵蝕敏感度只影響通知內容、動不了份額，所以不在搜索軸裡。
	if len(c.ScoreScales) > 0 {
		out = append(out, axis{
			name:       "score_scale",
			candidates: c.ScoreScales,
			apply:      func(ts *spec.TuningSetting, v float64) { ts.ScoreScale = v },
			current:    func(ts *spec.TuningSetting) float64 { return ts.ScoreScale },
		})
	}
	return out
}

// evaluate 以目前設定跑一輪批量模擬並回傳損失。
// 同一個 Tuner 的所有評估共用同一個 base seed：候選點之間只有參數不同。
func (t *Tuner) evaluate(lab *marketlab.Marketlab, ms *spec.MarketSetting, provider marketlab.TeamProvider) (float64, string, error) {
	raw, err := json.Marshal(ms)
	if err != nil {
		return 0, "", errs.Wrap(err, "marshal setting failed")
	}
	sim, err := lab.NewSimulatorByJSON(raw, t.cfg.Search.Seed)
	if err != nil {
		return 0, "", err
	}
	report, est, _, err := sim.SimMatches(provider, t.cfg.Search.Rounds, t.cfg.Search.Matches, t.cfg.Search.Workers, false)
	if err != nil {
		return 0, "", err
	}
	loss, eval := t.cfg.Targets.Loss(report, est)
	return loss, eval, nil
}
