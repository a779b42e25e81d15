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

package core

import "fmt"

// Subsystem 名稱：每個子系統擁有獨立的亂數流，名稱參與 seed 派生，
// 因此這些字串是再現性合約的一部分，改名等於換 seed。
const (
	SubsystemMarket    = "market"
	SubsystemFactory   = "factory"
	SubsystemHR        = "hr"
	SubsystemMarketing = "marketing"
	SubsystemRnD       = "rnd"
	SubsystemFinance   = "finance"
	SubsystemGeneral   = "general"
)

// Subsystems 列出全部子系統（固定順序，觀測/列舉用）。
var Subsystems = []string{
	SubsystemMarket,
	SubsystemFactory,
	SubsystemHR,
	SubsystemMarketing,
	SubsystemRnD,
	SubsystemFinance,
	SubsystemGeneral,
}

// HashDJB2 以 djb2（xor 變體）雜湊字串成 32-bit 無號整數。
//
// 常數是合約的一部分：h 初值 5381，逐字元 h = (h*33) XOR c，全程 uint32 溢位語意。
// 任何語言以 32-bit 無號運算實作都會得到相同結果，這是跨實作重放的基礎。
func HashDJB2(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = (h * 33) ^ uint32(s[i])
	}
	return h
}

// DeriveSeed 由 match seed、子系統名稱與回合數派生一個子系統 seed。
//
// 派生字串固定為 "{matchSeed}-{subsystem}-{round}"。保證：
//  1. 子系統之間互不干擾（改動一個子系統的取樣不影響其他子系統）。
//  2. 同一 (matchSeed, round) 重放必然逐 bit 一致。
//  3. 換回合數即換全部 seed，不需要重放之前的回合。
func DeriveSeed(matchSeed, subsystem string, round int) int64 {
	return int64(HashDJB2(fmt.Sprintf("%s-%s-%d", matchSeed, subsystem, round)))
}

// SeedBundle 是一個回合的完整種子組：match seed 加上每個子系統各一個數值 seed。
type SeedBundle struct {
	MatchSeed string
	Round     int

	Market    int64
	Factory   int64
	HR        int64
	Marketing int64
	RnD       int64
	Finance   int64
	General   int64
}

// NewSeedBundle 由 (matchSeed, round) 派生完整種子組。
func NewSeedBundle(matchSeed string, round int) SeedBundle {
	return SeedBundle{
		MatchSeed: matchSeed,
		Round:     round,
		Market:    DeriveSeed(matchSeed, SubsystemMarket, round),
		Factory:   DeriveSeed(matchSeed, SubsystemFactory, round),
		HR:        DeriveSeed(matchSeed, SubsystemHR, round),
		Marketing: DeriveSeed(matchSeed, SubsystemMarketing, round),
		RnD:       DeriveSeed(matchSeed, SubsystemRnD, round),
		Finance:   DeriveSeed(matchSeed, SubsystemFinance, round),
		General:   DeriveSeed(matchSeed, SubsystemGeneral, round),
	}
}

// Seed 依子系統名稱取出對應 seed；未知名稱回傳 false。
func (b SeedBundle) Seed(subsystem string) (int64, bool) {
	switch subsystem {
	case SubsystemMarket:
		return b.Market, true
	case SubsystemFactory:
		return b.Factory, true
	case SubsystemHR:
		return b.HR, true
	case SubsystemMarketing:
		return b.Marketing, true
	case SubsystemRnD:
		return b.RnD, true
	case SubsystemFinance:
		return b.Finance, true
	case SubsystemGeneral:
		return b.General, true
	default:
		return 0, false
	}
}
