package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/marketlab"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/server/httperr"
	"github.com/zintix-labs/marketlab/server/svrcfg"
	"github.com/zintix-labs/marketlab/spec"
)

// Create 開一場新比賽並回傳 match_id。
//
// seed 留空時由後端產生不可重現 seed（回應會標示 insecure）。
func (c *MatchHandler) Create(w http.ResponseWriter, q *http.Request) {
	type CreateRequest struct {
		SID  spec.SID `json:"sid"`
		Seed string   `json:"seed,omitempty"`
	}
	type CreateResponse struct {
		MatchID      string   `json:"match_id"`
		SID          spec.SID `json:"sid"`
		ScenarioName string   `json:"scenario_name"`
		Seed         string   `json:"seed"`
		Insecure     bool     `json:"insecure"`
	}
	if q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(CreateRequest)
	if err := json.NewDecoder(q.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(q.Context(), 5*time.Second)
	defer cancel()

	mid, m, err := c.rt.CreateMatch(ctx, req.SID, req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	resp := CreateResponse{
		MatchID:      mid,
		SID:          m.SID(),
		ScenarioName: m.ScenarioName(),
		Seed:         m.Seed(),
		Insecure:     m.Insecure(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Advance 推進指定比賽一個回合，回傳完整的 RoundResult。
func (c *MatchHandler) Advance(w http.ResponseWriter, q *http.Request) {
	type AdvanceRequest struct {
		MatchID string             `json:"match_id"`
		Teams   []market.TeamInput `json:"teams"`
	}
	if q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(AdvanceRequest)
	if err := json.NewDecoder(q.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
		return
	}
	if req.MatchID == "" {
		httperr.Errs(w, errs.NewWarn("match_id is required"))
		return
	}
	// 請求解析完成，設置超時 context
	ctx, cancel := context.WithTimeout(q.Context(), 5*time.Second)
	defer cancel()

	result, err := c.rt.Advance(ctx, req.MatchID, req.Teams)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Drop 結束並移除一場比賽。重複移除視為 no-op。
func (c *MatchHandler) Drop(w http.ResponseWriter, q *http.Request) {
	type DropRequest struct {
		MatchID string `json:"match_id"`
	}
	if q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(DropRequest)
	if err := json.NewDecoder(q.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
		return
	}
	if req.MatchID == "" {
		httperr.Errs(w, errs.NewWarn("match_id is required"))
		return
	}
	c.rt.DropMatch(req.MatchID)
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================
// ** MatchHandler **
// ============================================================

type MatchHandler struct {
	rt *marketlab.MatchRuntime
}

func NewMatchHandler(sCfg *svrcfg.SvrCfg) (*MatchHandler, error) {
	rt, err := sCfg.Marketlab.BuildRuntime(sCfg.MatchBufSize)
	if err != nil {
		return nil, errs.Wrap(err, "build match handler error")
	}
	return &MatchHandler{rt: rt}, nil
}
