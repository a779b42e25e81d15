package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/marketlab/recorder"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
)

type DistStat struct {
	// 情境識別
	ScenarioName string   `json:"scenario_name"`
	SID          spec.SID `json:"sid"`
	Segments     []string `json:"segments"`
	// 對齊序列（team-major：外層隊伍、內層回合）
	TeamIDs  []string    `json:"team_ids"`
	Revenues [][]float64 `json:"revenues"`
	Shares   [][]float64 `json:"shares"`
	Units    [][]int     `json:"units,omitempty"`
}

// Stat 由外部紀錄的逐回合序列重算統計報表。
// 用途：把別處（例如賽後落地的資料庫）的回合資料丟回來，取得與模擬器同一套報表。
func Stat(w http.ResponseWriter, r *http.Request) {
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// 嘗試解析
	dst := new(DistStat)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(dst.TeamIDs) == 0 || len(dst.TeamIDs) != len(dst.Revenues) || len(dst.TeamIDs) != len(dst.Shares) {
		http.Error(w, "team_ids/revenues/shares must align", http.StatusBadRequest)
		return
	}

	// 對齊回合數
	round := len(dst.Revenues[0])
	for i := range dst.TeamIDs {
		round = min(round, len(dst.Revenues[i]), len(dst.Shares[i]))
		if len(dst.Units) == len(dst.TeamIDs) {
			round = min(round, len(dst.Units[i]))
		}
	}
	if round < 1 {
		http.Error(w, "round must > 0", http.StatusBadRequest)
		return
	}

	rec, err := recorder.NewRoundRecorder(dst.ScenarioName, dst.SID, dst.Segments)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 重放回合：只還原隊伍彙總，區隔層資料（HHI/需求）外部序列沒有、維持零值
	rr := &market.RoundResult{
		Teams: make([]market.TeamResult, 0, len(dst.TeamIDs)),
	}
	for i := 0; i < round; i++ {
		rr.Round = i + 1
		rr.Teams = rr.Teams[:0] // 清空長度
		for t, id := range dst.TeamIDs {
			tr := market.TeamResult{
				TeamID:   id,
				Revenue:  dst.Revenues[t][i],
				AvgShare: dst.Shares[t][i],
			}
			if len(dst.Units) == len(dst.TeamIDs) {
				tr.Units = map[string]int{"all": dst.Units[t][i]}
			}
			rr.Teams = append(rr.Teams, tr)
		}
		// 紀錄
		rec.Record(rr)
	}
	rec.FinishMatch()
	st := rec.Done()
	st.Done()
	st.Summary.ScenarioName = dst.ScenarioName
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
}
