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

// Package engine 提供 EngineContext：一個回合內「唯一」的非決定性來源。
//
// 設計原則：
//   - Context 是強制參數。核心任何地方都不允許退回到全域亂數——
//     無法提供 seed 的呼叫端必須自己建立一個明確標示的 NewInsecureContext，
//     而不是讓引擎靜默選一個不可重現的預設值。
//   - 每個子系統一條獨立亂數流（seed 由 core.SeedBundle 派生），
//     子系統之間的取樣互不干擾。
//   - Context 建立後視為唯讀：回合進行中不得換流、不得重設。
//     （亂數流本身當然會推進——唯讀指的是組裝，不是 PRNG 狀態。）
package engine

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/core"
)

// Version 標示引擎行為版本。參與結果審計：同版本 + 同 seed + 同輸入 ⇒ 同輸出。
const Version = "marketlab/1"

// Context 打包一個回合所需的全部亂數流與決定性 ID 產生器。
type Context struct {
	matchSeed string
	round     int
	insecure  bool

	market    *core.Core
	factory   *core.Core
	hr        *core.Core
	marketing *core.Core
	rnd       *core.Core
	finance   *core.Core
	general   *core.Core

	ids *idMaker
}

// NewContext 由 (matchSeed, round) 建立一個可重現的回合 Context。
//
// 每條子系統流用 SeedBundle 派生的獨立 seed 建立，因此：
//   - 同 (matchSeed, round) 重建的 Context 行為逐 bit 一致。
//   - 市場模擬多取幾次樣不會影響工廠/人資等其他子系統的序列。
func NewContext(cf core.PRNGFactory, matchSeed string, round int) (*Context, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if matchSeed == "" {
		return nil, errs.NewFatal("match seed required")
	}
	if round < 1 {
		return nil, errs.NewWarn("round must be >= 1")
	}
	b := core.NewSeedBundle(matchSeed, round)
	return &Context{
		matchSeed: matchSeed,
		round:     round,
		market:    core.New(cf, b.Market),
		factory:   core.New(cf, b.Factory),
		hr:        core.New(cf, b.HR),
		marketing: core.New(cf, b.Marketing),
		rnd:       core.New(cf, b.RnD),
		finance:   core.New(cf, b.Finance),
		general:   core.New(cf, b.General),
		ids:       newIDMaker(round),
	}, nil
}

// NewInsecureContext 建立一個「明確標示不可重現」的 Context。
//
// match seed 由 crypto/rand 產生，並帶上 insecure 前綴，讓日誌與審計
// 一眼可見這一回合不在再現性合約之內。只給真的拿不到 seed 的呼叫端用。
func NewInsecureContext(cf core.PRNGFactory, round int) (*Context, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return nil, errs.Wrap(err, "crypto seed failed")
	}
	seed := "insecure-" + base64.RawURLEncoding.EncodeToString(raw)
	ctx, err := NewContext(cf, seed, round)
	if err != nil {
		return nil, err
	}
	ctx.insecure = true
	return ctx, nil
}

func (c *Context) MatchSeed() string { return c.matchSeed }
func (c *Context) Round() int        { return c.round }
func (c *Context) Insecure() bool    { return c.insecure }

// Market 回傳市場子系統的亂數流。需求噪音等市場取樣「只能」用這條流。
func (c *Context) Market() *core.Core { return c.market }

func (c *Context) Factory() *core.Core   { return c.factory }
func (c *Context) HR() *core.Core        { return c.hr }
func (c *Context) Marketing() *core.Core { return c.marketing }
func (c *Context) RnD() *core.Core       { return c.rnd }
func (c *Context) Finance() *core.Core   { return c.finance }
func (c *Context) General() *core.Core   { return c.general }

// NextID 產生決定性事件 ID："{prefix}-r{round}-{seq}"。
// seq 依 prefix 各自遞增；同一回合同一呼叫順序 ⇒ 同一串 ID。
func (c *Context) NextID(prefix string) string {
	return c.ids.next(prefix)
}

type idMaker struct {
	round int
	seq   map[string]int
}

func newIDMaker(round int) *idMaker {
	return &idMaker{round: round, seq: make(map[string]int, 8)}
}

func (m *idMaker) next(prefix string) string {
	m.seq[prefix]++
	return fmt.Sprintf("%s-r%d-%04d", prefix, m.round, m.seq[prefix])
}
