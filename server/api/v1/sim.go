package v1

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zintix-labs/marketlab"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/server/httperr"
	"github.com/zintix-labs/marketlab/spec"
	"github.com/zintix-labs/marketlab/stats"
)

type SimHandler struct {
	Marketlab *marketlab.Marketlab
}

func NewSimHandler(ml *marketlab.Marketlab) (*SimHandler, error) {
	return &SimHandler{Marketlab: ml}, nil
}

func (sh *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimRequestBody struct {
		SID     spec.SID           `json:"sid"`
		Rounds  int                `json:"rounds"`
		Matches int                `json:"matches"`
		Teams   []market.TeamInput `json:"teams,omitempty"`
		// TeamCount 在未提供 teams 時生成基準隊伍（GET 走這條路）
		TeamCount int    `json:"team_count,omitempty"`
		Seed      string `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimResponse struct {
		Stats    *stats.MatchReport `json:"stats"`
		UsedTime int64              `json:"used_ms"`
	}
	// ---
	req := new(SimRequestBody)
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q.Method == http.MethodGet {
		// sid
		if s := q.URL.Query().Get("sid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("sid must be non-negative integer"))
				return
			}
			req.SID = spec.SID(u)
		} else {
			// 直接空值
			httperr.Errs(w, errs.NewWarn("sid is required"))
			return
		}

		// rounds
		if m := q.URL.Query().Get("rounds"); m != "" {
			u, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("rounds must be integer"))
				return
			}
			req.Rounds = int(u)
		} else {
			httperr.Errs(w, errs.NewWarn("rounds is required"))
			return
		}

		// matches
		if r := q.URL.Query().Get("matches"); r != "" {
			u, err := strconv.ParseInt(r, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("matches must be integer"))
				return
			}
			req.Matches = int(u)
		} else {
			httperr.Errs(w, errs.NewWarn("matches is required"))
			return
		}

		// teams（數量；GET 只能用基準隊伍）
		if t := q.URL.Query().Get("teams"); t != "" {
			u, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("teams must be integer"))
				return
			}
			req.TeamCount = int(u)
		}

		// seed
		if s := q.URL.Query().Get("seed"); s != "" {
			req.Seed = s
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務檢驗
	ms, err := sh.Marketlab.Setting(req.SID)
	if err != nil {
		httperr.Errs(w, errs.NewWarn("sid not found"))
		return
	}
	if req.Rounds < 1 || req.Rounds > 1000 {
		httperr.Errs(w, errs.NewWarn("rounds must be between 1 to 1,000"))
		return
	}
	if req.Matches < 1 || req.Matches > 1000000 {
		httperr.Errs(w, errs.NewWarn("matches must be between 1 to 1,000,000"))
		return
	}
	provider, err := resolveProvider(ms, req.Teams, req.TeamCount)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Seed == "" {
		seed, serr := randomSeed()
		if serr != nil {
			httperr.Errs(w, serr)
			return
		}
		req.Seed = seed
	}
	sim, err := sh.Marketlab.NewSimulatorWithSeed(req.SID, req.Seed)
	if err != nil {
		// 這裡的錯誤是來自marketlab 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", req.SID)))
		return
	}
	st, used, err := sim.Sim(provider, req.Rounds, req.Matches, false)
	if err != nil {
		// 這裡的錯誤來自simulator 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, "simulate err"))
		return
	}
	resp := SimResponse{
		Stats:    st,
		UsedTime: used.Milliseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (sh *SimHandler) SimMatches(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type SimMatchesRequestBody struct {
		SID       spec.SID           `json:"sid"`
		Rounds    int                `json:"rounds"`
		Matches   int                `json:"matches"`
		Teams     []market.TeamInput `json:"teams,omitempty"`
		TeamCount int                `json:"team_count,omitempty"`
		Seed      string             `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type SimMatchesResponse struct {
		StatsReport *stats.MatchReport    `json:"stats"`
		Estimator   *stats.EstimatorTeams `json:"est"`
		UsedTime    int64                 `json:"used_ms"`
	}
	// ---
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(SimMatchesRequestBody)
	if r.Method == http.MethodGet {
		sidStr := r.URL.Query().Get("sid")
		roundsStr := r.URL.Query().Get("rounds")
		matchesStr := r.URL.Query().Get("matches")
		teamsStr := r.URL.Query().Get("teams")

		// sid
		if sidStr != "" {
			u, err := strconv.ParseUint(sidStr, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("sid must be non-negative integer"))
				return
			}
			req.SID = spec.SID(u)
		} else {
			httperr.Errs(w, errs.NewWarn("sid is required"))
			return
		}

		// rounds
		if roundsStr != "" {
			rounds, err := strconv.Atoi(roundsStr)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("rounds must be integer"))
				return
			}
			req.Rounds = rounds
		} else {
			httperr.Errs(w, errs.NewWarn("rounds is required"))
			return
		}

		// matches
		if matchesStr != "" {
			matches, err := strconv.Atoi(matchesStr)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("matches must be integer"))
				return
			}
			req.Matches = matches
		} else {
			httperr.Errs(w, errs.NewWarn("matches is required"))
			return
		}

		// teams
		if teamsStr != "" {
			teams, err := strconv.Atoi(teamsStr)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("teams must be integer"))
				return
			}
			req.TeamCount = teams
		}

		// seed
		if s := r.URL.Query().Get("seed"); s != "" {
			req.Seed = s
		}
	}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務邏輯判斷
	ms, err := sh.Marketlab.Setting(req.SID)
	if err != nil {
		httperr.Errs(w, errs.NewWarn("sid not found"))
		return
	}
	if req.Rounds < 1 || req.Rounds > 1000 {
		httperr.Errs(w, errs.NewWarn("rounds must be between 1 and 1,000"))
		return
	}
	if req.Matches < 1 || req.Matches > 100000 {
		httperr.Errs(w, errs.NewWarn("matches must be between 1 and 100,000"))
		return
	}
	provider, err := resolveProvider(ms, req.Teams, req.TeamCount)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if req.Seed == "" {
		seed, serr := randomSeed()
		if serr != nil {
			httperr.Errs(w, serr)
			return
		}
		req.Seed = seed
	}
	// 取得sim
	sim, err := sh.Marketlab.NewSimulatorWithSeed(req.SID, req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build simulator err: %d", req.SID)))
		return
	}
	st, est, used, err := sim.SimMatches(provider, req.Rounds, req.Matches, 4, false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("simulator err: %d", req.SID)))
		return
	}
	resp := &SimMatchesResponse{
		StatsReport: st,
		Estimator:   est,
		UsedTime:    used.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// resolveProvider 決定模擬要用哪組隊伍輸入：
//   - 明確給 teams：每回合固定沿用（策略回放請走 SDK 的 TeamProvider）。
//   - 只給數量：用情境設定生成基準隊伍（DefaultRoster）。
func resolveProvider(ms *spec.MarketSetting, teams []market.TeamInput, count int) (marketlab.TeamProvider, error) {
	if len(teams) > 0 {
		if ms.MaxTeams > 0 && len(teams) > ms.MaxTeams {
			return nil, errs.Warnf("teams exceed scenario max_teams: %d", ms.MaxTeams)
		}
		fixed := teams
		return func(round int, prev *market.RoundResult) []market.TeamInput {
			return fixed
		}, nil
	}
	if count < 2 {
		return nil, errs.NewWarn("teams (or team_count >= 2) is required")
	}
	if ms.MaxTeams > 0 && count > ms.MaxTeams {
		return nil, errs.Warnf("teams exceed scenario max_teams: %d", ms.MaxTeams)
	}
	roster := DefaultRoster(ms, count)
	return func(round int, prev *market.RoundResult) []market.TeamInput {
		return roster
	}, nil
}

// DefaultRoster 依情境設定生成 n 支基準隊伍：
// 定位沿品牌/ESG/定價/品質四軸線性展開，確保隊伍間有差異化又不離譜。
// 每支隊伍在每個區隔各有一件已上市產品。
func DefaultRoster(ms *spec.MarketSetting, n int) []market.TeamInput {
	teams := make([]market.TeamInput, 0, n)
	for i := 0; i < n; i++ {
		frac := 0.5
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		products := make([]market.ProductSnapshot, 0, len(ms.Segments))
		for _, seg := range ms.Segments {
			products = append(products, market.ProductSnapshot{
				Segment: seg.Name,
				Price:   seg.PriceMin + (0.35+0.3*frac)*(seg.PriceMax-seg.PriceMin),
				Quality: seg.QualityExpectation * (0.9 + 0.2*frac),
				Status:  market.StatusLaunched,
			})
		}
		teams = append(teams, market.TeamInput{
			TeamID:   fmt.Sprintf("team-%02d", i+1),
			Brand:    0.3 + 0.4*frac,
			ESGScore: 300 + 400*frac,
			Products: products,
		})
	}
	return teams
}

// randomSeed 使用 crypto/rand 產生隨機 base seed。
// 目的：避免 math/rand 的 deterministic 來源造成 seed 品質偏差。
func randomSeed() (string, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "", errs.NewWarn("seed generate failed")
	}
	return "api-" + base64.RawURLEncoding.EncodeToString(raw), nil
}
