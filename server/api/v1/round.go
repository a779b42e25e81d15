package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/server/httperr"
	"github.com/zintix-labs/marketlab/spec"
)

// Round 無狀態試算單一回合。
//
// 跨回合狀態取零值（等同比賽起點），適合前端試算與整合測試；
// 要讓狀態延續請改走 /v1/match 系列。
func (sh *SimHandler) Round(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type RoundRequestBody struct {
		SID   spec.SID           `json:"sid"`
		Seed  string             `json:"seed,omitempty"`
		Round int                `json:"round,omitempty"`
		Teams []market.TeamInput `json:"teams"`
	}
	// ---
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(RoundRequestBody)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
		return
	}
	if len(req.Teams) == 0 {
		httperr.Errs(w, errs.NewWarn("teams is required"))
		return
	}
	if req.Round < 1 {
		req.Round = 1
	}
	if req.Seed == "" {
		seed, serr := randomSeed()
		if serr != nil {
			httperr.Errs(w, serr)
			return
		}
		req.Seed = seed
	}
	res, err := sh.Marketlab.SimulateRound(req.SID, req.Seed, req.Round, req.Teams)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
