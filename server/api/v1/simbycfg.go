package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/server/httperr"
	"github.com/zintix-labs/marketlab/spec"
)

// SetByJson 傳入 JSON情境設定格式 以及希望模擬的回合數與場數
func (sh *SimHandler) SetByJson(w http.ResponseWriter, r *http.Request) {
	type SimRequestByJson struct {
		Rounds        int                `json:"rounds"`
		Matches       int                `json:"matches"`
		Teams         []market.TeamInput `json:"teams,omitempty"`
		TeamCount     int                `json:"team_count,omitempty"`
		MarketSetting json.RawMessage    `json:"cfg"`
		Seed          string             `json:"seed,omitempty"`
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. decode request
	req := new(SimRequestByJson)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.Wrap(err, "json decode failed"))
		return
	}

	// 2. vaild rounds/matches
	if req.Rounds < 1 {
		httperr.Errs(w, errs.NewWarn("rounds must be at least 1"))
		return
	}
	if req.Matches < 1 {
		req.Matches = 1
	}
	if req.Seed == "" {
		seed, serr := randomSeed()
		if serr != nil {
			httperr.Errs(w, serr)
			return
		}
		req.Seed = seed
	}

	// 3. 先解析設定以便生成隊伍（Simulator 內會再驗一次註冊狀態）
	ms, err := spec.GetMarketSettingByJSON(req.MarketSetting)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	provider, err := resolveProvider(ms, req.Teams, req.TeamCount)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 4. NewSimulator
	sim, err := sh.Marketlab.NewSimulatorByJSON(req.MarketSetting, req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	result, _, err := sim.Sim(provider, req.Rounds, req.Matches, false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 5. 回傳Json
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
