package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/marketlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// MatchReport 市場模擬統計報告
type MatchReport struct {
	Summary *SummaryReport `json:"Summary"`
	Teams   []*TeamReport  `json:"Teams"`
	Market  *MarketReport  `json:"Market"`
	isDone  bool
}

type SummaryReport struct {
	ScenarioName  string   `json:"ScenarioName"`
	ScenarioID    spec.SID `json:"ScenarioId"`
	Segments      []string `json:"Segments"`
	Rounds        int      `json:"Rounds"`
	Matches       int      `json:"Matches"`
	Teams         int      `json:"Teams"`
	TotalRevenue  float64  `json:"TotalRevenue"`
	TotalUnits    int      `json:"TotalUnits"`
	TotalWarranty float64  `json:"TotalWarranty"`
	TotalPenalty  float64  `json:"TotalPenalty"`
	Crowding      int      `json:"Crowding"`
	FirstMover    int      `json:"FirstMover"`
	ArmsRace      int      `json:"ArmsRace"`
	Erosion       int      `json:"Erosion"`
	ESGEvents     int      `json:"ESGEvents"`
	Rubberband    int      `json:"Rubberband"`
}

// TeamReport 單一隊伍統計
//
// 紀錄時只累積總和與平方和，避免逐回合轉型成本。紀錄完成後Done()會將
// 平均、標準差、信賴區間與落點分布整理填入
type TeamReport struct {
	TeamID       string    `json:"TeamId"`
	Rounds       int       `json:"Rounds"`
	Revenue      float64   `json:"Revenue"`
	RevenueSqSum float64   `json:"RevenueSqSum"` // 平方和
	RevenueMean  float64   `json:"RevenueMean"`
	RevenueStd   float64   `json:"RevenueStd"`
	RevenueCI    CI        `json:"RevenueCI"`
	ShareSum     float64   `json:"ShareSum"`
	ShareSqSum   float64   `json:"ShareSqSum"` // 平方和
	AvgShare     float64   `json:"AvgShare"`
	ShareStd     float64   `json:"ShareStd"`
	Units        int       `json:"Units"`
	WarrantyCost float64   `json:"WarrantyCost"`
	ESGPenalty   float64   `json:"ESGPenalty"`
	Wins         int       `json:"Wins"`
	WinRate      float64   `json:"WinRate"`
	Boosts       int       `json:"Boosts"`
	Drags        int       `json:"Drags"`
	ShareBucket  []string  `json:"ShareBucket"`
	ShareCollect []int     `json:"ShareCollect"`
	ShareDist    []float64 `json:"ShareDist"`
}

// MarketReport 市場面統計（集中度與需求）
type MarketReport struct {
	SegmentShareSq map[string]float64 `json:"SegmentShareSq"` // 逐回合 Σshare² 的累積
	SegmentHHI     map[string]float64 `json:"SegmentHHI"`
	AvgHHI         float64            `json:"AvgHHI"`
	SegmentDemand  map[string]int     `json:"SegmentDemand"`
	SegmentUnits   map[string]int     `json:"SegmentUnits"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 統計過程因為性能原因只累積總和與平方和，所以統計完成後
//
// 請使用 Done 來通知報表統計已經完成，可以一次性計算統計結果
func (s *MatchReport) Done() {
	if s.isDone {
		return
	}
	for _, t := range s.Teams {
		t.done(s.Summary.Matches)
	}
	// 排行榜順序：總營收遞減，同額依 TeamID
	sort.SliceStable(s.Teams, func(i, j int) bool {
		if s.Teams[i].Revenue != s.Teams[j].Revenue {
			return s.Teams[i].Revenue > s.Teams[j].Revenue
		}
		return s.Teams[i].TeamID < s.Teams[j].TeamID
	})

	if s.Market != nil && s.Summary.Rounds > 0 {
		rf := float64(s.Summary.Rounds)
		s.Market.SegmentHHI = make(map[string]float64, len(s.Market.SegmentShareSq))
		total := 0.0
		for seg, sq := range s.Market.SegmentShareSq {
			hhi := sq / rf
			s.Market.SegmentHHI[seg] = hhi
			total += hhi
		}
		if n := len(s.Market.SegmentHHI); n > 0 {
			s.Market.AvgHHI = total / float64(n)
		}
	}
	s.isDone = true
}

func (t *TeamReport) done(matches int) {
	if t.Rounds > 0 {
		rf := float64(t.Rounds)
		t.RevenueMean = t.Revenue / rf
		t.AvgShare = t.ShareSum / rf
		t.RevenueStd = stdFromSums(t.Revenue, t.RevenueSqSum, t.Rounds)
		t.ShareStd = stdFromSums(t.ShareSum, t.ShareSqSum, t.Rounds)

		se := 0.0
		if t.Rounds > 1 {
			se = t.RevenueStd / math.Sqrt(rf)
		}
		t.RevenueCI = CI{
			Lo: max(t.RevenueMean-1.96*se, 0.0),
			Hi: t.RevenueMean + 1.96*se,
		}

		t.ShareDist = make([]float64, len(t.ShareCollect))
		for i, c := range t.ShareCollect {
			t.ShareDist[i] = float64(c) / rf
		}
	}
	if matches > 0 {
		t.WinRate = float64(t.Wins) / float64(matches)
	}
}

// stdFromSums 以總和/平方和計算樣本標準差
func stdFromSums(sum, sqSum float64, n int) float64 {
	if n < 2 {
		return 0
	}
	nf := float64(n)
	variance := (sqSum - sum*sum/nf) / (nf - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Team 依 TeamID 取得隊伍統計；找不到回傳 nil
func (s *MatchReport) Team(id string) *TeamReport {
	for _, t := range s.Teams {
		if t.TeamID == id {
			return t
		}
	}
	return nil
}

// Winner 回傳排行榜首位（需先 Done）；無隊伍回傳 nil
func (s *MatchReport) Winner() *TeamReport {
	if !s.isDone || len(s.Teams) == 0 {
		return nil
	}
	return s.Teams[0]
}

func (s *MatchReport) WriteWith(w io.Writer, rep MatchReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *MatchReport) StdOut(ut time.Duration) {
	formatDuration(ut, s.Summary.Rounds)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.ScenarioName, sk, sm)
	fmt.Println(str)

	lk, lm := s.fmtLeaderboard()
	fmt.Println(fmtTable("Leaderboard", lk, lm))
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, rounds int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	rps := int(float64(rounds) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\nrps : %d rounds/sec\n", sec, rps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\nrps : %d rounds/sec\n", m, s, rps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\nrps : %d rounds/sec\n", h, m, s, rps)
}

// StdOut

func (s *MatchReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Scenario":      p.Sprintf("%s", s.Summary.ScenarioName),
		"Scenario ID":   fmt.Sprintf("%d", s.Summary.ScenarioID),
		"Segments":      p.Sprintf("%d", len(s.Summary.Segments)),
		"Total Rounds":  p.Sprintf("%d", s.Summary.Rounds),
		"Matches":       p.Sprintf("%d", s.Summary.Matches),
		"Teams":         p.Sprintf("%d", s.Summary.Teams),
		"Total Revenue": p.Sprintf("%.0f", s.Summary.TotalRevenue),
		"Total Units":   p.Sprintf("%d", s.Summary.TotalUnits),
		"Warranty Cost": p.Sprintf("%.0f", s.Summary.TotalWarranty),
		"ESG Penalty":   p.Sprintf("%.0f", s.Summary.TotalPenalty),
		"Avg HHI":       p.Sprintf("%.3f", s.Market.AvgHHI),
		"Crowding":      p.Sprintf("%d", s.Summary.Crowding),
		"First Mover":   p.Sprintf("%d", s.Summary.FirstMover),
		"Arms Race":     p.Sprintf("%d", s.Summary.ArmsRace),
		"Erosion":       p.Sprintf("%d", s.Summary.Erosion),
		"ESG Events":    p.Sprintf("%d", s.Summary.ESGEvents),
		"Rubberband":    p.Sprintf("%d", s.Summary.Rubberband),
	}
	keys := []string{"Scenario", "Scenario ID", "Segments", "Total Rounds", "Matches", "Teams", "Total Revenue", "Total Units", "Warranty Cost", "ESG Penalty", "Avg HHI", "Crowding", "First Mover", "Arms Race", "Erosion", "ESG Events", "Rubberband"}
	return keys, basic
}

func (s *MatchReport) fmtLeaderboard() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	keys := make([]string, 0, len(s.Teams))
	msg := make(map[string]string, len(s.Teams))
	for _, t := range s.Teams {
		keys = append(keys, t.TeamID)
		msg[t.TeamID] = p.Sprintf("rev %.0f [%.0f, %.0f] | share %.1f%% | wins %d",
			t.RevenueMean, t.RevenueCI.Lo, t.RevenueCI.Hi, 100.0*t.AvgShare, t.Wins)
	}
	return keys, msg
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
