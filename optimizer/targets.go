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

package optimizer

import (
	"fmt"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/stats"
)

// Targets 定義「平衡」的量化目標。
//
// 兩個指標：
//   - AvgHHI：跨區隔平均集中度。太高代表有人把市場吃死了，太低通常代表
//     參數把份額打成均勻糊（一樣不健康），所以用「距離目標值」而非單向懲罰。
//   - WinSpread：各隊勝率的最大差。只懲罰超標的部分：示範策略本來就
//     不對稱，勝率完全拉平反而是 rubberband 過強的徵兆。
type Targets struct {
	AvgHHI       float64 `yaml:"avg_hhi"`
	WinSpread    float64 `yaml:"win_spread"`
	HHIWeight    float64 `yaml:"hhi_weight"`
	SpreadWeight float64 `yaml:"spread_weight"`
}

func (t *Targets) init() error {
	if t.AvgHHI == 0 {
		t.AvgHHI = 0.35
	}
	if t.AvgHHI < 0 || t.AvgHHI > 1 {
		return errs.Warnf("avg_hhi target out of range: %v", t.AvgHHI)
	}
	if t.WinSpread == 0 {
		t.WinSpread = 0.25
	}
	if t.WinSpread < 0 || t.WinSpread > 1 {
		return errs.Warnf("win_spread target out of range: %v", t.WinSpread)
	}
	if t.HHIWeight == 0 {
		t.HHIWeight = 1
	}
	if t.SpreadWeight == 0 {
		t.SpreadWeight = 1
	}
	return nil
}

// Loss 把一次批量模擬的結果壓成單一損失值（越小越平衡），
// 並回傳一行可讀的指標摘要供搜索過程輸出。
func (t *Targets) Loss(report *stats.MatchReport, est *stats.EstimatorTeams) (float64, string) {
	hhi := report.Market.AvgHHI

	loWin, hiWin := 1.0, 0.0
	for _, te := range est.Teams {
		w := te.Outcome.Win.Hat
		loWin = min(loWin, w)
		hiWin = max(hiWin, w)
	}
	spread := 0.0
	if hiWin > loWin {
		spread = hiWin - loWin
	}

	loss := t.HHIWeight * abs(hhi-t.AvgHHI)
	if spread > t.WinSpread {
		loss += t.SpreadWeight * (spread - t.WinSpread)
	}
	eval := fmt.Sprintf("(hhi=%.3f spread=%.3f)", hhi, spread)
	return loss, eval
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
