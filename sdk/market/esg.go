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

import "github.com/zintix-labs/marketlab/spec"

// esgPenalty 計算低 ESG 下行風險。
//
// 分數達門檻即無風險。門檻以下罰率線性內插：0 分吃 MaxPenaltyRate，
// 貼著門檻吃 MinPenaltyRate；罰金 = 回合營收 × 罰率。
// 營收為零時罰金為零，但事件照發——風險存在與否和有沒有賺到錢無關。
func esgPenalty(cfg spec.ESGSetting, score, revenue float64) (rate, penalty float64, risky bool) {
	if score >= cfg.Threshold {
		return 0, 0, false
	}
	if score < 0 {
		score = 0
	}
	t := score / cfg.Threshold
	rate = cfg.MaxPenaltyRate - t*(cfg.MaxPenaltyRate-cfg.MinPenaltyRate)
	return rate, revenue * rate, true
}
