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

package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// 隊伍跨場次體驗評估
type EstimatorTeams struct {
	Matches int              `json:"Matches"`
	Teams   []TeamExperience `json:"Teams"`
}

// 單一隊伍跨場次敘事
type TeamExperience struct {
	TeamID  string     `json:"TeamId"`
	RevStat RevStat    `json:"RevStat"`
	Outcome MatchStat  `json:"Outcome"`
	Shares  ShareBands `json:"Shares"`
}

// 營收敘事
type RevStat struct {
	Median  PointStat // 描述場次營收的中位數
	RevPerc RevPerc   // 描述場次營收的分位分布
}

// 用營收分位數視角看場次: 最差10％場次的營收 最差33%場次的營收 ...
type RevPerc struct {
	RevP10 PointStat
	RevP33 PointStat
	RevP67 PointStat
	RevP90 PointStat
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// 對應場次結局敘事
type MatchStat struct {
	Win     PointStat // 奪冠
	Boosted PointStat // 吃過防失控加成
	Dragged PointStat // 吃過防失控拖曳
}

// 用份額門檻視角看場次: 有多少比例的場次平均份額達到 10%/20%/30%
type ShareBands struct {
	Over10 PointStat
	Over20 PointStat
	Over30 PointStat
}

// ============================================================
// ** 對外 : 隊伍跨場次評估 **
// ============================================================

// EstimatorTeamExp 隊伍跨場次體驗評估
//
// 1. Revenue 敘事 : 描述隊伍場次營收的分位分布
//
// 2. Outcome 敘事 : 描述隊伍奪冠、吃到防失控介入的機率
//
// 3. Share 敘事 : 描述隊伍平均份額達到特定門檻的場次比例
//
// 輸入為多份「單場」MatchReport（每份需先 Done）。
func EstimatorTeamExp(sts []*MatchReport) *EstimatorTeams {
	// 0. 防禦：空輸入
	n := len(sts)
	out := &EstimatorTeams{Matches: n}
	if n == 0 {
		return out
	}

	// 收集跨場次出現過的隊伍（排序後輸出順序固定）
	ids := make([]string, 0, 8)
	seen := map[string]bool{}
	for _, s := range sts {
		for _, t := range s.Teams {
			if !seen[t.TeamID] {
				seen[t.TeamID] = true
				ids = append(ids, t.TeamID)
			}
		}
	}
	sort.Strings(ids)

	out.Teams = make([]TeamExperience, 0, len(ids))
	for _, id := range ids {
		rev := make([]float64, 0, n)
		var winK, boostK, dragK int
		var s10, s20, s30 int
		for _, s := range sts {
			t := s.Team(id)
			if t == nil {
				// 該場未參賽：營收視為 0，不計結局
				rev = append(rev, 0)
				continue
			}
			rev = append(rev, t.Revenue)
			if t.Wins > 0 {
				winK++
			}
			if t.Boosts > 0 {
				boostK++
			}
			if t.Drags > 0 {
				dragK++
			}
			if t.AvgShare >= 0.10 {
				s10++
			}
			if t.AvgShare >= 0.20 {
				s20++
			}
			if t.AvgShare >= 0.30 {
				s30++
			}
		}

		// 1) Revenue 敘事：中位數與分位（點估計 + 95% CI）
		medHat := quantilePoint(rev, 0.5)
		medLo, medHi := quantileCI(rev, 0.5, 0.95)

		p10Hat := quantilePoint(rev, 0.10)
		p10Lo, p10Hi := quantileCI(rev, 0.10, 0.95)

		p33Hat := quantilePoint(rev, 1.0/3.0)
		p33Lo, p33Hi := quantileCI(rev, 1.0/3.0, 0.95)

		p67Hat := quantilePoint(rev, 2.0/3.0)
		p67Lo, p67Hi := quantileCI(rev, 2.0/3.0, 0.95)

		p90Hat := quantilePoint(rev, 0.90)
		p90Lo, p90Hi := quantileCI(rev, 0.90, 0.95)

		// 2) Outcome 敘事：CP 95% CI
		winHat, winCI := proportionCICP(winK, n, 0.95)
		boostHat, boostCI := proportionCICP(boostK, n, 0.95)
		dragHat, dragCI := proportionCICP(dragK, n, 0.95)

		// 3) Share 敘事：份額門檻達成比例（CP 95% CI）
		s10Hat, s10CI := proportionCICP(s10, n, 0.95)
		s20Hat, s20CI := proportionCICP(s20, n, 0.95)
		s30Hat, s30CI := proportionCICP(s30, n, 0.95)

		out.Teams = append(out.Teams, TeamExperience{
			TeamID: id,
			RevStat: RevStat{
				Median: PointStat{Hat: medHat, CI: CI{Lo: medLo, Hi: medHi}},
				RevPerc: RevPerc{
					RevP10: PointStat{Hat: p10Hat, CI: CI{Lo: p10Lo, Hi: p10Hi}},
					RevP33: PointStat{Hat: p33Hat, CI: CI{Lo: p33Lo, Hi: p33Hi}},
					RevP67: PointStat{Hat: p67Hat, CI: CI{Lo: p67Lo, Hi: p67Hi}},
					RevP90: PointStat{Hat: p90Hat, CI: CI{Lo: p90Lo, Hi: p90Hi}},
				},
			},
			Outcome: MatchStat{
				Win:     PointStat{Hat: winHat, CI: winCI},
				Boosted: PointStat{Hat: boostHat, CI: boostCI},
				Dragged: PointStat{Hat: dragHat, CI: dragCI},
			},
			Shares: ShareBands{
				Over10: PointStat{Hat: s10Hat, CI: s10CI},
				Over20: PointStat{Hat: s20Hat, CI: s20CI},
				Over30: PointStat{Hat: s30Hat, CI: s30CI},
			},
		})
	}

	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *EstimatorTeams) Out() {
	fmt.Printf("=== Team Experience (%d matches) ===\n", est.Matches)
	for i := range est.Teams {
		t := &est.Teams[i]
		fmt.Printf("\n--- %s ---\n", t.TeamID)

		revKeys := []string{
			"Median Revenue",
			"P10 Revenue",
			"P33 Revenue",
			"P67 Revenue",
			"P90 Revenue",
		}
		revMsg := map[string]string{
			"Median Revenue": fmtHatCI(t.RevStat.Median.Hat, t.RevStat.Median.CI),
			"P10 Revenue":    fmtHatCI(t.RevStat.RevPerc.RevP10.Hat, t.RevStat.RevPerc.RevP10.CI),
			"P33 Revenue":    fmtHatCI(t.RevStat.RevPerc.RevP33.Hat, t.RevStat.RevPerc.RevP33.CI),
			"P67 Revenue":    fmtHatCI(t.RevStat.RevPerc.RevP67.Hat, t.RevStat.RevPerc.RevP67.CI),
			"P90 Revenue":    fmtHatCI(t.RevStat.RevPerc.RevP90.Hat, t.RevStat.RevPerc.RevP90.CI),
		}
		printTable("Revenue (per match)", revKeys, revMsg)

		outKeys := []string{"Win", "Boosted", "Dragged", "Share ≥10%", "Share ≥20%", "Share ≥30%"}
		outMsg := map[string]string{
			"Win":        fmtHatCIpct01(t.Outcome.Win.Hat, t.Outcome.Win.CI),
			"Boosted":    fmtHatCIpct01(t.Outcome.Boosted.Hat, t.Outcome.Boosted.CI),
			"Dragged":    fmtHatCIpct01(t.Outcome.Dragged.Hat, t.Outcome.Dragged.CI),
			"Share ≥10%": fmtHatCIpct01(t.Shares.Over10.Hat, t.Shares.Over10.CI),
			"Share ≥20%": fmtHatCIpct01(t.Shares.Over20.Hat, t.Shares.Over20.CI),
			"Share ≥30%": fmtHatCIpct01(t.Shares.Over30.Hat, t.Shares.Over30.CI),
		}
		printTable("Match Outcome", outKeys, outMsg)
	}
}

func printTable(title string, keys []string, msg map[string]string) {
	fmt.Println(title)
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func fmtHatCI(hat float64, ci CI) string {
	return fmt.Sprintf("%.0f [%.0f, %.0f]", hat, ci.Lo, ci.Hi)
}
