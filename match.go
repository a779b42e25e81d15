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

package marketlab

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/core"
	"github.com/zintix-labs/marketlab/sdk/engine"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
)

// Match 封裝一場「可逐回合推進」的比賽。
//
// 你可以把 Match 視為市場引擎的「外殼（shell）」：
//   - 對外：提供 Advance 入口（HTTP/模擬器通常只操作 Match）。
//   - 對內：持有情境設定與跨回合狀態（價格期望、永續壓力、競爭動態）。
//
// 再現性語意：
//   - matchSeed 固定整場比賽的亂數行為；每回合以 (matchSeed, round) 重建
//     engine.Context，因此同情境 + 同 seed + 同輸入序列 ⇒ 同結果序列。
//   - 任意回合之間的存檔/恢復用 SnapshotState/RestoreState（以 []byte 交換狀態）。
//
// 並發語意：
//   - Match 內含跨回合可變狀態，Advance 以 mutex 序列化；
//     多場併發模擬請由更高層建立多個 Match 分散到不同 worker。
type Match struct {
	scenarioName string
	sid          spec.SID
	set          *spec.MarketSetting
	cf           core.PRNGFactory
	matchSeed    string
	insecure     bool

	mu    sync.Mutex
	round int // 已完成回合數
	st    market.State
	dyn   market.DynamicsState
}

func newMatch(set *spec.MarketSetting, cf core.PRNGFactory, matchSeed string) (*Match, error) {
	if cf == nil {
		return nil, errs.NewFatal("core factory required")
	}
	if matchSeed == "" {
		return nil, errs.NewFatal("match seed required")
	}
	m := &Match{
		scenarioName: set.ScenarioName,
		sid:          set.ScenarioID,
		set:          set,
		cf:           cf,
		matchSeed:    matchSeed,
	}
	return m, nil
}

// newMatchInsecure 以 crypto/rand 產生 seed 並帶上 insecure 前綴，
// 讓日誌與審計一眼可見這場比賽不在再現性合約之內。
func newMatchInsecure(set *spec.MarketSetting, cf core.PRNGFactory) (*Match, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	m, err := newMatch(set, cf, "insecure-"+base64.RawURLEncoding.EncodeToString(raw))
	if err != nil {
		return nil, err
	}
	m.insecure = true
	return m, nil
}

// Advance 推進一個回合：以本回合的隊伍輸入執行市場結算並更新跨回合狀態。
//
// 回傳的 RoundResult 產出後即不可變，呼叫端可安全保留。
// 結算失敗（Fatal/Warn）時比賽狀態不變，可修正輸入後重試同一回合。
func (m *Match) Advance(teams []market.TeamInput) (*market.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := engine.NewContext(m.cf, m.matchSeed, m.round+1)
	if err != nil {
		return nil, err
	}
	res, err := market.Simulate(ctx, m.set, m.st, m.dyn, teams)
	if err != nil {
		return nil, err
	}
	m.round++
	m.st = res.NextState
	m.dyn = res.NextDynamics
	return res, nil
}

func (m *Match) ScenarioName() string { return m.scenarioName }
func (m *Match) SID() spec.SID        { return m.sid }
func (m *Match) Seed() string         { return m.matchSeed }
func (m *Match) Insecure() bool       { return m.insecure }

// Round 回傳已完成回合數。
func (m *Match) Round() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.round
}

// Setting 回傳比賽使用的情境設定（視為唯讀）。
func (m *Match) Setting() *spec.MarketSetting { return m.set }

// matchState 是存檔格式。欄位順序與內容參與審計，不要隨意增減。
type matchState struct {
	Version   string               `json:"version"`
	MatchSeed string               `json:"match_seed"`
	SID       spec.SID             `json:"sid"`
	Round     int                  `json:"round"`
	State     market.State         `json:"state"`
	Dynamics  market.DynamicsState `json:"dynamics"`
}

// SnapshotState 取得比賽跨回合狀態的存檔。
//
// 搭配同一份情境設定與 RestoreState，可以在任意回合之間存檔/恢復整場比賽。
func (m *Match) SnapshotState() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.Marshal(matchState{
		Version:   engine.Version,
		MatchSeed: m.matchSeed,
		SID:       m.sid,
		Round:     m.round,
		State:     m.st,
		Dynamics:  m.dyn,
	})
}

// RestoreState 恢復比賽跨回合狀態。
//
// seed 與情境必須與存檔一致：恢復到別場比賽等於偽造審計軌跡，直接拒絕。
func (m *Match) RestoreState(src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ms matchState
	if err := json.Unmarshal(src, &ms); err != nil {
		return errs.Wrap(err, "unmarshal match state failed")
	}
	if ms.Version != engine.Version {
		return errs.Warnf("match state version mismatch: %s", ms.Version)
	}
	if ms.MatchSeed != m.matchSeed {
		return errs.NewWarn("match state seed mismatch")
	}
	if ms.SID != m.sid {
		return errs.NewWarn("match state scenario mismatch")
	}
	if ms.Round < 0 {
		return errs.NewWarn("match state round must be >= 0")
	}
	m.round = ms.Round
	m.st = ms.State
	m.dyn = ms.Dynamics
	return nil
}
