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
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/market"
	"github.com/zintix-labs/marketlab/spec"
)

type MatchRuntime struct {
	// build-time 來源（只讀引用）
	lab *Marketlab // 方便取 catalog/corefactory 與共用一些 helper

	// data-plane：存活中的比賽（matchID -> Match）
	mu      sync.RWMutex
	matches map[string]*Match
	ids     []spec.SID // 固定順序，用於觀測/列舉（來自 cat.IDs()）

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	// runtime 行為設定（一期先簡單，之後可擴展）
	maxMatches int // 同時存活的比賽上限
}

// CreateMatch 開一場新比賽並回傳 matchID。
//
// matchSeed 留空時由 crypto/rand 產生不可重現 seed（比賽會標示 insecure）。
func (rt *MatchRuntime) CreateMatch(ctx context.Context, id spec.SID, matchSeed string) (string, *Match, error) {
	select {
	case <-ctx.Done():
		// 如果通知取消
		return "", nil, errs.NewWarn("create canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		// done is the source of truth; keep a fast boolean for cheap reads/telemetry.
		rt.closed.Store(true)
		return "", nil, errs.NewFatal("match runtime closed: " + rt.ClosedReason())
	default:
	}

	var (
		m   *Match
		err error
	)
	if matchSeed == "" {
		m, err = rt.lab.NewMatchInsecure(id)
	} else {
		m, err = rt.lab.NewMatch(id, matchSeed)
	}
	if err != nil {
		return "", nil, err
	}

	raw := make([]byte, 9)
	if _, rerr := rand.Read(raw); rerr != nil {
		return "", nil, errs.Wrap(rerr, "new match id failed")
	}
	mid := "m-" + base64.RawURLEncoding.EncodeToString(raw)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.matches) >= rt.maxMatches {
		return "", nil, errs.NewWarn("too many live matches")
	}
	rt.matches[mid] = m
	return mid, m, nil
}

// Advance 推進指定比賽一個回合。
func (rt *MatchRuntime) Advance(ctx context.Context, matchID string, teams []market.TeamInput) (*market.RoundResult, error) {
	select {
	case <-ctx.Done():
		// 如果通知取消
		return nil, errs.NewWarn("advance canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		// done is the source of truth; keep a fast boolean for cheap reads/telemetry.
		rt.closed.Store(true)
		return nil, errs.NewFatal("match runtime closed: " + rt.ClosedReason())
	default:
	}

	m, ok := rt.Match(matchID)
	if !ok {
		return nil, errs.NewWarn("match id not found")
	}

	// match 自己會序列化 Advance
	return m.Advance(teams)
}

// Match 依 matchID 取出存活中的比賽。
func (rt *MatchRuntime) Match(matchID string) (*Match, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	m, ok := rt.matches[matchID]
	return m, ok
}

// DropMatch 結束並移除一場比賽。重複移除視為 no-op。
func (rt *MatchRuntime) DropMatch(matchID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.matches, matchID)
}

// LiveMatches 回傳存活中的比賽數。
func (rt *MatchRuntime) LiveMatches() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.matches)
}

// IDs 回傳可開場的情境 ID（固定順序）。
func (rt *MatchRuntime) IDs() []spec.SID {
	return rt.ids
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *MatchRuntime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *MatchRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *MatchRuntime) Closed() bool {
	return rt.closed.Load()
}

func (rt *MatchRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
