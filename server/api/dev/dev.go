// Package dev 提供 MarketLab 的「內部 Dev Panel」HTTP endpoints。
//
// 目的（ explain the why ）：
//   - 給策劃 / 後端在開發期快速驗證：指定情境、隊伍數、Seed / Snap，然後執行 Run 或 Sim。
//   - 支援可回放（replay）：把 Snapshot（Snap）以字串形式在前端顯示，並可貼回後端做 Restore。
//
// 注意（ contract ）：
//   - 這不是 production API；它偏向 debug / tooling，行為允許更寬鬆，但仍需維持 deterministic concludes。
//   - 這裡的錯誤處理走 `httperr.Errs`（以 errs.Warn/errs.Fatal 對應 HTTP response）。
//   - Seed/Snap 的互斥與優先級由前端 + 後端共同保證（Snap takes precedence）。
package dev

import (
	"embed"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/marketlab"
	"github.com/zintix-labs/marketlab/catalog"
	"github.com/zintix-labs/marketlab/corefmt"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/market"
	v1 "github.com/zintix-labs/marketlab/server/api/v1"
	"github.com/zintix-labs/marketlab/server/httperr"
	"github.com/zintix-labs/marketlab/server/netsvr"
	"github.com/zintix-labs/marketlab/server/svrcfg"
	"github.com/zintix-labs/marketlab/spec"
)

// devRequest 是 Dev Panel 的「輸入 payload」。
//
// 兼容性（backward compatibility）：
//   - 同時保留 `rounds` 與舊欄位 `round`。
//   - `sid` 與 `scenario` 兩者擇一即可；若兩者同時存在，後端會優先使用 sid 做解析。
//
// Seed / Snap：
//   - Seed（string）用於 deterministic 起始；若為空字串則自動生成。
//   - Snap（base64url string）代表 match snapshot；若提供 Snap，則後端以 Snap Restore 為準（Snap precedence）。
//
// 注意：
//   - 這個 struct 是 API 邊界用的 DTO；不要把它滲透到 market logic / math domain。
type devRequest struct {
	SID      int64  `json:"sid"`
	Scenario string `json:"scenario"`
	Teams    int    `json:"teams"`
	Rounds   int    `json:"rounds"`
	Round    int    `json:"round"`
	Matches  int    `json:"matches"`
	Seed     string `json:"seed"`
	Snap     string `json:"snap"`
}

// round() 將 rounds/round 做兼容合併：優先 rounds，其次 round；若都未提供則回 0。
func (r devRequest) round() int {
	if r.Rounds > 0 {
		return r.Rounds
	}
	if r.Round > 0 {
		return r.Round
	}
	return 0
}

// Register 註冊 Dev Panel 的 routes。
//
// Routes：
//   - GET  /dev       ：Dev Panel HTML（內嵌 JS）。
//   - GET  /dev/meta  ：回傳 Catalog summary（供前端下拉選單：情境 / 隊伍上限）。
//   - POST /dev/run   ：執行 N 個回合並回傳每回合結果（含 snap_before/snap_after）。
//   - POST /dev/sim   ：執行 N 場模擬並回傳統計報表（不回傳逐回合 results）。
//
// 依賴（dependency）：
//   - 需要 cfg.Marketlab 已被上層組裝完成並注入；否則會回 errs.Fatal。
func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) {
	svr.Get("/dev", devPage)
	svr.Get("/favicon.svg", favicon)
	svr.Get("/dev/meta", devMeta(cfg))
	svr.Post("/dev/run", devRun(cfg))
	svr.Post("/dev/sim", devSim(cfg))
}

// DevRoundResult 是 Dev Panel 單一回合的輸出：回合結果 + 回合後存檔。
type DevRoundResult struct {
	Result    *market.RoundResult `json:"result"`
	SnapAfter string              `json:"snap_after"`
}

// DevRunReport 是 /dev/run 的回應。
type DevRunReport struct {
	ScenarioName string            `json:"scenario_name"`
	SID          spec.SID          `json:"sid"`
	Seed         string            `json:"seed"`
	Insecure     bool              `json:"insecure"`
	StartRound   int               `json:"start_round"`
	SnapBefore   string            `json:"snap_before"`
	Results      []*DevRoundResult `json:"results"`
}

// devPage 回傳內嵌 HTML（single page）。這裡不做 templating，降低 dev tool 維護成本。
func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(devPageHTML))
}

// favicon 提供 Dev Panel 的 favicon.svg。
func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(faviconSVG))
}

// devMeta 回傳 Catalog summary（JSON）。
//
// 前端依賴欄位：
//   - sid
//   - name
//   - segments
//   - max_teams
func devMeta(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ml, ok := getMarketlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("marketlab is required"))
			return
		}
		sum, err := ml.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}

// devRun 執行「可回放」的比賽。
//
// 流程（high level）：
//  1. decode devRequest（JSON body）
//  2. resolve scenario（sid/name）→ catalog.Summary
//  3. resolve roster（teams 數量 → 基準隊伍）
//  4. resolve seed（empty = auto）或 snap（Restore）
//  5. 逐回合 Advance，每回合都附上 snap_after 供回放
//
// Snap precedence：若 snap 非空，會以存檔內的 seed 重建比賽並 Restore。
func devRun(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		ml, ok := getMarketlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("marketlab is required"))
			return
		}
		sum, err := resolveSummary(ml, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		round := req.round()
		if round < 1 {
			httperr.Errs(w, errs.NewWarn("rounds is required"))
			return
		}
		if round > 200 {
			round = 200 // dev run 回傳逐回合 payload，上限保守
		}
		roster, err := resolveRoster(ml, sum, req.Teams)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		m, err := resolveMatch(ml, sum.SID, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}

		report := &DevRunReport{
			ScenarioName: m.ScenarioName(),
			SID:          m.SID(),
			Seed:         m.Seed(),
			Insecure:     m.Insecure(),
			StartRound:   m.Round(),
		}
		if report.SnapBefore, err = encodeSnap(m); err != nil {
			httperr.Errs(w, err)
			return
		}
		for i := 0; i < round; i++ {
			res, aerr := m.Advance(roster)
			if aerr != nil {
				httperr.Errs(w, aerr)
				return
			}
			snap, serr := encodeSnap(m)
			if serr != nil {
				httperr.Errs(w, serr)
				return
			}
			report.Results = append(report.Results, &DevRoundResult{Result: res, SnapAfter: snap})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// devSim 執行統計模擬（simulation）。
//
// 和 devRun 的差異：
//   - devSim 不回逐回合 results（降低 response size），僅回統計報表。
//   - devSim 不支援 snap：批量模擬的再現性由 base seed 派生鏈保證。
func devSim(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		ml, ok := getMarketlab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("marketlab is required"))
			return
		}
		sum, err := resolveSummary(ml, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		round := req.round()
		if round < 1 {
			httperr.Errs(w, errs.NewWarn("rounds is required"))
			return
		}
		if round > 1000 {
			round = 1000
		}
		matches := req.Matches
		if matches < 1 {
			matches = 1
		}
		if matches > 100000 {
			matches = 100000
		}
		roster, err := resolveRoster(ml, sum, req.Teams)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		provider := func(round int, prev *market.RoundResult) []market.TeamInput {
			return roster
		}

		var sim *marketlab.Simulator
		if seed := strings.TrimSpace(req.Seed); seed != "" {
			sim, err = ml.NewSimulatorWithSeed(sum.SID, seed)
		} else {
			sim, err = ml.NewSimulator(sum.SID)
		}
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		report, _, err := sim.SimMP(provider, round, matches, 4, false)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// getMarketlab 從 server config 取得已組裝的 Marketlab instance。
// Dev routes 不負責組裝（assembler），只負責使用（runtime entry）。
func getMarketlab(cfg *svrcfg.SvrCfg) (*marketlab.Marketlab, bool) {
	if cfg == nil || cfg.Marketlab == nil {
		return nil, false
	}
	return cfg.Marketlab, true
}

// resolveSummary 解析使用者指定的情境：
//   - 若 sid > 0：以 sid 精準匹配（fast path）。
//   - 否則若 scenario(name) 非空：先做 case-insensitive name 匹配；也允許把 scenario 當作數字字串解析成 sid。
//
// 回傳 catalog.Summary 作為後續隊伍數 / 區隔的依據。
func resolveSummary(ml *marketlab.Marketlab, req *devRequest) (catalog.Summary, error) {
	sums, err := ml.Summary()
	if err != nil {
		return catalog.Summary{}, err
	}
	if req.SID > 0 {
		sid := spec.SID(req.SID)
		for _, s := range sums {
			if s.SID == sid {
				return s, nil
			}
		}
		return catalog.Summary{}, errs.NewWarn("sid not found")
	}
	name := strings.TrimSpace(req.Scenario)
	if name != "" {
		for _, s := range sums {
			if strings.EqualFold(s.Name, name) {
				return s, nil
			}
		}
		if sid, err := strconv.ParseUint(name, 10, 64); err == nil {
			ss := spec.SID(sid)
			for _, s := range sums {
				if s.SID == ss {
					return s, nil
				}
			}
		}
		return catalog.Summary{}, errs.NewWarn("scenario not found")
	}
	return catalog.Summary{}, errs.NewWarn("scenario is required")
}

// resolveRoster 生成 Dev Panel 用的基準隊伍（未提供時預設 4 隊）。
func resolveRoster(ml *marketlab.Marketlab, sum catalog.Summary, teams int) ([]market.TeamInput, error) {
	if teams < 1 {
		teams = 4
	}
	if sum.MaxTeams > 0 && teams > sum.MaxTeams {
		return nil, errs.Warnf("teams exceed scenario max_teams: %d", sum.MaxTeams)
	}
	ms, err := ml.Setting(sum.SID)
	if err != nil {
		return nil, err
	}
	return v1.DefaultRoster(ms, teams), nil
}

// resolveMatch 依 snap/seed 建立比賽：
//   - snap 非空：以存檔內的 seed 重建並 Restore（Snap takes precedence）。
//   - seed 非空：deterministic 開場。
//   - 都沒有：自動生成（insecure）。
func resolveMatch(ml *marketlab.Marketlab, sid spec.SID, req *devRequest) (*marketlab.Match, error) {
	if snap := strings.TrimSpace(req.Snap); snap != "" {
		raw, err := corefmt.DecodeBase64URL(snap)
		if err != nil {
			return nil, errs.NewWarn("snap must be base64url")
		}
		// 先偷看存檔內的 seed，再以同一 seed 開場並 Restore
		var peek struct {
			MatchSeed string `json:"match_seed"`
		}
		if err := json.Unmarshal(raw, &peek); err != nil || peek.MatchSeed == "" {
			return nil, errs.NewWarn("snap is not a match snapshot")
		}
		m, err := ml.NewMatch(sid, peek.MatchSeed)
		if err != nil {
			return nil, err
		}
		if err := m.RestoreState(raw); err != nil {
			return nil, err
		}
		return m, nil
	}
	if seed := strings.TrimSpace(req.Seed); seed != "" {
		return ml.NewMatch(sid, seed)
	}
	return ml.NewMatchInsecure(sid)
}

// encodeSnap 把比賽存檔編成 base64url 字串（方便前端顯示/貼回）。
func encodeSnap(m *marketlab.Match) (string, error) {
	raw, err := m.SnapshotState()
	if err != nil {
		return "", err
	}
	return corefmt.EncodeBase64URL(raw), nil
}

//go:embed favicon.svg
var faviconSVG string

// keep embed imported even if only used for directives
var _ embed.FS
