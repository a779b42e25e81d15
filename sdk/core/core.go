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

import (
	"math"

	"github.com/zintix-labs/marketlab/errs"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 與一般 PRNG 合約不同，本引擎的再現性合約（reproducibility contract）要求：
// 所有派生取樣（ranged / bounded / boolean / gaussian）都必須「只」由 Float64()
// 的輸出序列推導。這樣任何語言只要重現同一個 32-bit 核心與同一個 Float64 映射，
// 就能逐 bit 重放整條決策序列。
//
// 因此 UintN/IntN 在這裡不是 bias-free 的乘法高位實作，而是 floor(Float64()*n)：
// 精度上限 32 bits，對本引擎的取值範圍（隊伍數、列表長度）綽綽有餘。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數（兩次 32-bit 輸出拼接）。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以指定 seed 建立新的 PRNG。
//
// 合約（很重要）：在同一個實作與同一個版本下，New(seed) 必須是「決定性」的——
// 相同的 seed 必須產生相同的初始內部狀態與輸出序列。
//
// 引擎內部永遠不呼叫「不帶 seed 的 New()」：seed 的生命週期由 EngineContext
// 統一管理（由 match seed 派生），避免行為不一致與難以重現。
type PRNGFactory interface {
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory，核心為 Mulberry32。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newMulberry32(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供市場引擎所需的派生取樣方法。
//
// 所有派生方法都以 Float64() 為唯一消耗來源（見 RAND 的合約說明），
// 消耗次數固定且可預測：RangeFloat/IntBetween/Chance 各一次、Gaussian 兩次、
// ShuffleInts 每個位置一次（由尾端向前）。
type Core struct {
	PRNG
	initSeed int64
}

// New 以工廠與指定 seed 建立 Core。seed 會被保留（審計用），Clone 時一併帶出。
func New(cf PRNGFactory, seed int64) *Core {
	return &Core{PRNG: cf.New(seed), initSeed: seed}
}

// Wrap 允許使用外部自實現的 PRNG 建立 Core。
func Wrap(rng PRNG, seed int64) *Core {
	return &Core{PRNG: rng, initSeed: seed}
}

// Seed 回傳出生 seed（追溯用；完整重現請用 Snapshot/Restore）。
func (c *Core) Seed() int64 { return c.initSeed }

// Clone 複製一個 Core：保留原始 seed 與「當下」內部狀態。
// 複本與本體自此各自推進，兩邊後續序列完全一致。
func (c *Core) Clone() (*Core, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return nil, errs.Wrap(err, "clone snapshot failed")
	}
	dup := &Core{PRNG: newMulberry32(c.initSeed), initSeed: c.initSeed}
	if err := dup.Restore(snap); err != nil {
		return nil, errs.Wrap(err, "clone restore failed")
	}
	return dup, nil
}

// RangeFloat 回傳 [min,max) 的浮點亂數：min + next()*(max-min)。
func (c *Core) RangeFloat(min, max float64) float64 {
	return min + c.Float64()*(max-min)
}

// IntBetween 回傳 [min,max] 的整數亂數（含兩端）：floor(range(min,max+1))。
func (c *Core) IntBetween(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return int(math.Floor(c.RangeFloat(float64(min), float64(max)+1)))
}

// Chance 依機率 p 回傳布林：next() < p。
func (c *Core) Chance(p float64) bool {
	return c.Float64() < p
}

// Pick 從列表中隨機選取一個元素。
//
// 空集合屬於合約違反：靜默回傳哨兵值會在下游破壞決定性而不留痕跡，
// 所以這裡直接回錯誤，讓問題在測試期就浮出來。
func (c *Core) Pick(src []int) (int, error) {
	if len(src) == 0 {
		return 0, errs.NewFatal("pick from empty collection")
	}
	return src[c.IntBetween(0, len(src)-1)], nil
}

// PickString 與 Pick 相同，作用於字串列表。
func (c *Core) PickString(src []string) (string, error) {
	if len(src) == 0 {
		return "", errs.NewFatal("pick from empty collection")
	}
	return src[c.IntBetween(0, len(src)-1)], nil
}

// WeightedIndex 依權重抽出索引。權重總和必須 > 0，空集合回錯誤。
func (c *Core) WeightedIndex(weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, errs.NewFatal("weighted pick from empty collection")
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return 0, errs.NewFatal("weighted pick with negative weight")
		}
		total += w
	}
	if total <= 0 {
		return 0, errs.NewFatal("weighted pick with zero total weight")
	}
	draw := c.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if draw < acc {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// ShuffleInts 使用 Fisher-Yates (亦稱 Knuth Shuffle) 演算法
// 對 []int 進行「就地 (In-place)」隨機重排。
//
// 演算法特性：
//
//  1. 公平性 (Unbiased)：
//     所有 N! 種排列出現的機率嚴格相等 (1/N!)。
//
//  2. 消耗固定：
//     由尾端向前，每個位置恰好消耗一次 IntBetween 取樣，
//     因此重排 N 個元素固定消耗 N-1 次亂數。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}
	for i := len(src) - 1; i > 0; i-- {
		j := c.IntBetween(0, i)
		src[i], src[j] = src[j], src[i]
	}
}

// Gaussian 以 Box–Muller 轉換產生常態分布亂數，固定消耗兩次 Float64。
func (c *Core) Gaussian(mean, stddev float64) float64 {
	u1 := c.Float64()
	u2 := c.Float64()
	if u1 < 1e-12 {
		// log(0) 防護：夾到可表示的最小值，不改變消耗次數
		u1 = 1e-12
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + z*stddev
}
