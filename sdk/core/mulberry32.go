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

// Mulberry32 產生器：32-bit 狀態、32-bit 輸出。
//
// 演算法出自 Tommy Ettinger（public domain）。選它而不是 PCG/xoshiro 的原因是
// 跨語言再現性：整個狀態就是一個 uint32，常數固定（增量 0x6D2B79F5，
// 混洗乘數 t|1 與 t|61），任何語言用 32-bit 無號整數運算都能逐 bit 重放。

package core

import (
	"encoding/binary"
	"math"

	"github.com/zintix-labs/marketlab/errs"
)

const (
	mulberryInc       = 0x6D2B79F5
	mulberryFloatUnit = 1.0 / (1 << 32)
	mulberrySnapLen   = 12 // 8 bytes seed + 4 bytes state
)

// Mulberry32 亂數產生器。
type Mulberry32 struct {
	state uint32
	seed  int64 // 出生 seed，Snapshot 會一併保存（審計/Clone 用）
}

// newMulberry32 以指定 seed 建立新的 Mulberry32 實例。
//
// seed 取低 32 bits 作為初始狀態（與 JS 的 `seed >>> 0` 等價）。
// 種子派生（djb2）本來就輸出 32-bit，因此不會損失熵。
func newMulberry32(seed int64) *Mulberry32 {
	return &Mulberry32{state: uint32(uint64(seed)), seed: seed}
}

//---------------------------------------
// 回傳介面方法
//---------------------------------------

// Uint32 回傳下一個 32-bit 輸出，並推進內部狀態。
func (r *Mulberry32) Uint32() uint32 {
	r.state += mulberryInc
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Uint64 回傳非負整數 uint64 亂數（兩次 32-bit 輸出拼接，高位在前）。
func (r *Mulberry32) Uint64() uint64 {
	return (uint64(r.Uint32()) << 32) | uint64(r.Uint32())
}

// Float64 回傳 [0,1) 的浮點亂數（32-bit 精度）。
//
// 這就是再現性合約中的 next()：所有派生取樣都由它推導。
func (r *Mulberry32) Float64() float64 {
	return float64(r.Uint32()) * mulberryFloatUnit
}

// UintN 產出 [0,n) 的 uint 整數，若 max == 0 回傳 0。
//
// 刻意用 floor(Float64()*n) 而非乘法高位/拒絕採樣：見 RAND 的合約說明。
func (r *Mulberry32) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(math.Floor(r.Float64() * float64(max)))
}

// IntN 回傳 [0,n) 的亂數；若 n <= 0 回傳 -1。
func (r *Mulberry32) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return int(math.Floor(r.Float64() * float64(max)))
}

// Snapshot 取得當下內部狀態（seed + state）。
func (r *Mulberry32) Snapshot() ([]byte, error) {
	b := make([]byte, 0, mulberrySnapLen)
	b = binary.LittleEndian.AppendUint64(b, uint64(r.seed))
	b = binary.LittleEndian.AppendUint32(b, r.state)
	return b, nil
}

// Restore 依 Snapshot 輸出還原內部狀態。
func (r *Mulberry32) Restore(data []byte) error {
	if len(data) != mulberrySnapLen {
		return errs.Warnf("mulberry32 restore: want %d bytes, got %d", mulberrySnapLen, len(data))
	}
	r.seed = int64(binary.LittleEndian.Uint64(data[:8]))
	r.state = binary.LittleEndian.Uint32(data[8:12])
	return nil
}
