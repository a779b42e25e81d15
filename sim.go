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
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/recorder"
	"github.com/zintix-labs/marketlab/sdk/core"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
	"github.com/zintix-labs/marketlab/stats"
)

const capPrepare int = 100

// TeamProvider 依回合產生隊伍輸入。
//
// round 從 1 起算；prev 為上一回合結果（第一回合為 nil），策略可以據此
// 調價、換區隔或追加投資。SimMP/SimMatches 會從多個 goroutine 併發呼叫，
// provider 必須是併發安全的（純函數最簡單）。
type TeamProvider func(round int, prev *market.RoundResult) []market.TeamInput

// Simulator 用於平衡分析：以同一情境大量開場，平行紀錄統計。
type Simulator struct {
	ScenarioName string                    // 情境名稱
	ScenarioID   spec.SID                  // 情境名稱enum
	set          *spec.MarketSetting       // 方便重用建立紀錄員
	cf           core.PRNGFactory          // 亂數生成器
	baseSeed     string                    // 初始下的種子
	seedmaker    *seedMaker                // 場次種子生成器
	rBuf         []*recorder.RoundRecorder // 併發紀錄員
	sBuf         []*stats.MatchReport      // 併發單場報表(僅Matches需要)
}

func newSimulator(ms *spec.MarketSetting, cf core.PRNGFactory) (*Simulator, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ms, cf, "sim-"+base64.RawURLEncoding.EncodeToString(raw))
}

func newSimulatorWithSeed(ms *spec.MarketSetting, cf core.PRNGFactory, seed string) (*Simulator, error) {
	if seed == "" {
		return nil, errs.NewFatal("sim seed required")
	}
	s := &Simulator{
		ScenarioName: ms.ScenarioName,
		ScenarioID:   ms.ScenarioID,
		set:          ms,
		cf:           cf,
		baseSeed:     seed,
		seedmaker:    newSeedMaker(hashSeed(seed)),
		rBuf:         make([]*recorder.RoundRecorder, 0, capPrepare),
		sBuf:         make([]*stats.MatchReport, 0, capPrepare),
	}
	return s, nil
}

// Sim 單線模擬器：連續跑指定場數並回傳統計結果與用時
func (s *Simulator) Sim(provider TeamProvider, rounds int, matches int, showpb bool) (*stats.MatchReport, time.Duration, error) {
	defer s.reset()
	if provider == nil {
		return nil, 0, errs.NewWarn("team provider required")
	}
	if rounds < 1 {
		return nil, 0, errs.NewWarn("rounds must > 0")
	}
	if matches < 1 {
		return nil, 0, errs.NewWarn("matches must > 0")
	}
	r, err := recorder.NewRoundRecorder(s.ScenarioName, s.ScenarioID, s.set.SegmentNames())
	if err != nil {
		return nil, 0, err
	}
	s.rBuf = append(s.rBuf, r)

	bar := pb.StartNew(rounds * matches)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < matches; i++ {
		if err := s.runMatch(r, provider, rounds, bar); err != nil {
			bar.Finish()
			return nil, 0, err
		}
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	result := r.Done()
	result.Done()

	return result, used, nil
}

// SimMP 平行執行多個 worker，總計 matches 場比賽，合併統計結果後 回傳統計結果與用時
func (s *Simulator) SimMP(provider TeamProvider, rounds int, matches int, mp int, showpb bool) (*stats.MatchReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if provider == nil {
		return nil, 0, errs.NewWarn("team provider required")
	}
	if rounds < 1 || matches < 1 {
		return nil, 0, errs.NewWarn("rounds/matches must > 0")
	}
	if mp > matches {
		mp = matches
	}

	for len(s.rBuf) < mp {
		r, err := recorder.NewRoundRecorder(s.ScenarioName, s.ScenarioID, s.set.SegmentNames())
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}

	jobs := make(chan struct{}, matches)
	for i := 0; i < matches; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	var firstErr atomic.Value
	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(rounds * matches)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			rec := s.rBuf[i]
			for range jobs {
				if firstErr.Load() != nil {
					return
				}
				if err := s.runMatch(rec, provider, rounds, bar); err != nil {
					firstErr.CompareAndSwap(nil, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if v := firstErr.Load(); v != nil {
		return nil, 0, v.(error)
	}

	st, err := recorder.MergeRoundRecorder(s.rBuf)
	if err != nil {
		return nil, 0, err
	}
	result := st.Done()
	result.Done()

	return result, used, nil
}

// SimMatches 逐場獨立紀錄：產出整體報表與跨場次的隊伍體驗報表。
func (s *Simulator) SimMatches(provider TeamProvider, rounds int, matches int, mp int, showpb bool) (*stats.MatchReport, *stats.EstimatorTeams, time.Duration, error) {
	defer s.reset()
	if provider == nil || rounds < 1 || matches < 1 || mp < 1 {
		return nil, nil, 0, errs.NewWarn("invalid param")
	}

	// 準備逐場紀錄員
	s.sBuf = make([]*stats.MatchReport, matches)
	for len(s.rBuf) < matches {
		r, err := recorder.NewRoundRecorder(s.ScenarioName, s.ScenarioID, s.set.SegmentNames())
		if err != nil {
			return nil, nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	// 作一個2048大小的緩衝channel 使場次依序處理
	jobs := make(chan *recorder.RoundRecorder, 2048)

	var firstErr atomic.Value
	wg := new(sync.WaitGroup)
	wg.Add(mp) // 併發worker

	bar := pb.StartNew(matches)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	// 併發執行
	for w := 0; w < mp; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs { // j := <- jobs
				if firstErr.Load() != nil {
					continue
				}
				if err := s.runMatch(j, provider, rounds, nil); err != nil {
					firstErr.CompareAndSwap(nil, err)
					continue
				}
				bar.Increment()
			}
		}()
	}
	// 塞進場次，開始模擬
	for _, j := range s.rBuf {
		jobs <- j
	}
	close(jobs) // 場次送完處理完畢關閉通道 通知所有worker不會再有新資料
	wg.Wait()   // 等待worker都執行完任務
	used := time.Since(bar.StartTime())
	bar.Finish()
	if v := firstErr.Load(); v != nil {
		return nil, nil, 0, v.(error)
	}

	// 整體基準報表
	record, err := recorder.MergeRoundRecorder(s.rBuf)
	if err != nil {
		return nil, nil, 0, err
	}
	st := record.Done()
	st.Done()

	// 跨場次分析報表
	for i, r := range s.rBuf {
		s.sBuf[i] = r.Done()
		s.sBuf[i].Done()
	}
	est := stats.EstimatorTeamExp(s.sBuf)
	return st, est, used, nil
}

// runMatch 跑完整的一場：開場、逐回合 Advance 並紀錄、結算冠軍。
func (s *Simulator) runMatch(rec *recorder.RoundRecorder, provider TeamProvider, rounds int, bar *pb.ProgressBar) error {
	m, err := newMatch(s.set, s.cf, s.nextMatchSeed())
	if err != nil {
		return err
	}
	var prev *market.RoundResult
	for r := 1; r <= rounds; r++ {
		teams := provider(r, prev)
		res, aerr := m.Advance(teams)
		if aerr != nil {
			return aerr
		}
		rec.Record(res)
		prev = res
		if bar != nil {
			bar.Increment()
		}
	}
	rec.FinishMatch()
	return nil
}

// nextMatchSeed 派生下一場的 match seed。
//
// 同一個 base seed 派生同一串場次 seed，因此整批模擬可重現；
// 平行模式下場次被哪個 worker 跑到不影響那一場自己的結果。
func (s *Simulator) nextMatchSeed() string {
	return fmt.Sprintf("%s#%016x", s.baseSeed, uint64(s.seedmaker.next()))
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
	s.sBuf = s.sBuf[:0]
}

// hashSeed 把字串 base seed 折進 seedMaker 的初始狀態（FNV-1a 64）。
func hashSeed(seed string) int64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(seed); i++ {
		h ^= uint64(seed[i])
		h *= 1099511628211
	}
	return int64(h & mask63)
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（例如 SimMP / SimMatches）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
