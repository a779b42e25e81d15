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

// Package marketlab 提供 Marketlab 引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// 你可以把 Marketlab 視為一個「可被後端/模擬器使用的 runtime」，它負責把下列兩個必需的地基組裝在一起，並提供建立 Match 的入口：
//  1. Catalog：情境目錄（Single Source of Truth / SSOT），定義有哪些市場情境、各自對應的設定檔名稱（ConfigName）。
//  2. CoreFactory：亂數核心工廠（PRNG factory），保證可重現（reproducible）與可審計（auditable）。
//
// 設計重點：
//   - Marketlab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入。
//   - Marketlab 會持有一份 Catalog（你要跑哪一批情境/設定檔）。
//   - Match 是對外提供 Advance 的最小單位；一場比賽由多個回合組成，
//     跨回合狀態（價格期望、競爭動態）由 Match 自己攜帶。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Marketlab 建立 Match，Match 對外提供逐回合 Advance。
//   - 模擬器（sim）：由 Marketlab 建立 Simulator 進行大量場次的平衡分析。
//
// 注意：此套引擎目前以市場結算領域為中心（TeamInput -> RoundResult），不是泛用模擬框架。
package marketlab

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/marketlab/catalog"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/core"
	"github.com/zintix-labs/marketlab/sdk/engine"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//   - 甚至可以用自製的 MultiFS 來合併多個來源。
//
// Marketlab 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Marketlab 是「組裝器（assembler）」與「運行入口（runtime entry）」：
//
// 它把兩個必需的地基組合起來：
//  1. Catalog：情境目錄（SSOT），定義有哪些市場情境、各自對應的設定檔名稱。
//  2. CoreFactory：亂數核心工廠（PRNG factory），保證可重現與可審計。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、檢查重複與缺漏。
//   - 執行階段（runtime）：依據情境 ID 產生 Match / Simulator。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Marketlab instance」內。
//   - 你要跑哪一批情境、哪一套設定檔，必須由 New() 的參數明確決定。
//   - runtime 一旦開始（例如已建立 Match 並對外服務），不建議再變更 Catalog。
type Marketlab struct {
	cat *catalog.Catalog
	cf  core.PRNGFactory
	sum []catalog.Summary
}

// New 建立一個 Marketlab instance。
//
// 這是「組裝階段（registration/build）」的入口：
//   - 會建立 Catalog（通常同時做檔名存在性/重複性檢查，避免 runtime 才爆）。
//   - 會保存 CoreFactory，確保由這個 Marketlab 建出來的 Match 在 RNG 行為上具有一致性。
//
// 參數要求（是合約的一部分）：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現/可審計的核心。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 MarketSetting。
func New(cf core.PRNGFactory, cfgs []fs.FS) (*Marketlab, error) {
	if cf == nil {
		return nil, errs.NewFatal("core factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Marketlab{
		cat: cata,
		cf:  cf,
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Marketlab instance。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS) (*Marketlab, error) {
	lab, err := New(cf, cfgs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (p *Marketlab) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）嘗試解析成
// *spec.MarketSetting，並用設定檔內宣告的 ScenarioID/ScenarioName 產生對應的 catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error（不會忽略、也不會繼續掃完）。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...) 一次性寫入。
//     因此不會出現只註冊了一半、導致 catalog 處於半完成狀態的情況。
//  3. 穩定性：fs.WalkDir 依檔名排序處理，確保行為 determinism（方便重現與除錯）。
func (p *Marketlab) RegisterAll() error {
	cfgs := p.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.SID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				ms   *spec.MarketSetting
				merr error
			)
			switch ext {
			case ".yaml", ".yml":
				ms, merr = spec.GetMarketSettingByYAML(raw)
			case ".json":
				ms, merr = spec.GetMarketSettingByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if merr != nil {
				return errs.NewFatal(fmt.Sprintf("parse marketsetting failed: %s", base))
			}

			name := strings.TrimSpace(ms.ScenarioName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("scenario name required: %s", base))
			}

			id := ms.ScenarioID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate scenario id: %d (config=%s and %s)", id, prev, base))
			}
			if _, ok := p.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("scenario id already registered: %d (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate scenario name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := p.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("scenario name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			entries = append(entries, catalog.Entry{
				SID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return p.cat.Register(entries...)
}

func (p *Marketlab) Freeze() {
	p.cat.Freeze()
}

func (p *Marketlab) EntryById(id spec.SID) (catalog.Entry, bool) {
	return p.cat.GetByID(id)
}

func (p *Marketlab) EntryByName(name string) (catalog.Entry, bool) {
	return p.cat.GetByName(name)
}

func (p *Marketlab) IDs() []spec.SID {
	return p.cat.IDs()
}

func (p *Marketlab) All() []catalog.Entry {
	return p.cat.All()
}

// Setting 取出已註冊情境的完整設定（視為唯讀）。
func (p *Marketlab) Setting(id spec.SID) (*spec.MarketSetting, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return p.cat.MarketSettingByID(id)
}

func (p *Marketlab) Summary() ([]catalog.Summary, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if p.sum != nil {
		return p.sum, nil
	}
	ids := p.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ms, err := p.cat.MarketSettingByID(id)
		if err != nil {
			return nil, errs.NewFatal("parse market setting failed")
		}
		s := catalog.Summary{
			SID:      id,
			Name:     ms.ScenarioName,
			Segments: ms.SegmentNames(),
			MaxTeams: ms.MaxTeams,
		}
		cs = append(cs, s)
	}
	p.sum = cs
	return p.sum, nil
}

// NewMatch 依據 Catalog 內的情境 ID 建立一場比賽。
//
// 行為：
//  1. 由 Catalog 取得對應的 MarketSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 以 matchSeed 作為整場比賽的再現性入口：同情境 + 同 seed + 同輸入 ⇒ 同結果。
//
// 注意：seed 會被記錄在 Match 內，用於追溯/重現；任意時間點的存檔/恢復
// 以 Match 的 SnapshotState/RestoreState 合約為準。
func (p *Marketlab) NewMatch(id spec.SID, matchSeed string) (*Match, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ms, err := p.cat.MarketSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newMatch(ms, p.cf, matchSeed)
}

// SimulateRound 無狀態試算單一回合。
//
// 跨回合狀態一律取零值，等同一場比賽在該 seed 下的起點；適合 API 試算
// 與工具驗證。要讓價格期望與競爭動態跨回合延續，請改用 Match。
func (p *Marketlab) SimulateRound(id spec.SID, matchSeed string, round int, teams []market.TeamInput) (*market.RoundResult, error) {
	ms, err := p.Setting(id)
	if err != nil {
		return nil, err
	}
	ctx, err := engine.NewContext(p.cf, matchSeed, round)
	if err != nil {
		return nil, err
	}
	var st market.State
	var dyn market.DynamicsState
	return market.Simulate(ctx, ms, st, dyn, teams)
}

// NewMatchInsecure 與 NewMatch 相同，但由 crypto/rand 產生「明確標示不可重現」的 seed。
// 只給真的拿不到 seed 的呼叫端用（例如臨時開的對外測試場）。
func (p *Marketlab) NewMatchInsecure(id spec.SID) (*Match, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ms, err := p.cat.MarketSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newMatchInsecure(ms, p.cf)
}

func (p *Marketlab) NewMatchByJSON(raw []byte, matchSeed string) (*Match, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetMarketSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newMatch(cfg, p.cf, matchSeed)
}

func (p *Marketlab) NewMatchByYAML(raw []byte, matchSeed string) (*Match, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetMarketSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newMatch(cfg, p.cf, matchSeed)
}

func (p *Marketlab) validCfg(cfg *spec.MarketSetting) error {
	ent, ok := p.cat.GetByID(cfg.ScenarioID)
	if !ok {
		return errs.NewWarn("sid not exist")
	}
	ent2, ok := p.cat.GetByName(cfg.ScenarioName)
	if !ok {
		return errs.NewWarn("scenario name not exist")
	}
	if ent.SID != ent2.SID {
		return errs.NewWarn("scenario id is not matched scenario name")
	}
	return nil
}

func (p *Marketlab) NewSimulator(id spec.SID) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ms, err := p.cat.MarketSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(ms, p.cf)
}

func (p *Marketlab) NewSimulatorWithSeed(id spec.SID, seed string) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ms, err := p.cat.MarketSettingByID(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ms, p.cf, seed)
}

func (p *Marketlab) NewSimulatorByJSON(raw []byte, seed string) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetMarketSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(cfg, p.cf, seed)
}

func (p *Marketlab) NewSimulatorByYAML(raw []byte, seed string) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetMarketSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(cfg, p.cf, seed)
}

// BuildRuntime 進入對外服務階段：凍結 catalog 並建立 MatchRuntime。
//
// maxMatches 限制同時存活的比賽數（防止無上限開場把記憶體吃光）。
func (p *Marketlab) BuildRuntime(maxMatches int) (*MatchRuntime, error) {
	// 進入 runtime 前，catalog 必須 Freeze
	p.Freeze()

	ids := p.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no scenarios registered")
	}

	rt := &MatchRuntime{
		lab:        p,
		matches:    make(map[string]*Match, 16),
		ids:        ids,
		done:       make(chan struct{}),
		maxMatches: max(1, maxMatches),
	}
	rt.reason.Store("")
	return rt, nil
}
