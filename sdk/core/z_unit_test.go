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
	"slices"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default(), 7)
	c2 := New(Default(), 7)
	for i := 0; i < 16; i++ {
		if c1.Float64() != c2.Float64() {
			t.Fatalf("Float64 mismatch at %d", i)
		}
	}
	if c1.IntBetween(0, 9) != c2.IntBetween(0, 9) {
		t.Fatalf("IntBetween mismatch")
	}
	if c1.Chance(0.5) != c2.Chance(0.5) {
		t.Fatalf("Chance mismatch")
	}
}

func TestFloat64Range(t *testing.T) {
	c := New(Default(), 99)
	for i := 0; i < 10000; i++ {
		v := c.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64 out of [0,1): %v", v)
		}
	}
}

func TestRangeFloatAndIntBetween(t *testing.T) {
	c := New(Default(), 3)
	for i := 0; i < 1000; i++ {
		v := c.RangeFloat(10, 20)
		if v < 10 || v >= 20 {
			t.Fatalf("RangeFloat out of [10,20): %v", v)
		}
	}
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		n := c.IntBetween(1, 6)
		if n < 1 || n > 6 {
			t.Fatalf("IntBetween out of [1,6]: %d", n)
		}
		seen[n] = true
	}
	for want := 1; want <= 6; want++ {
		if !seen[want] {
			t.Fatalf("IntBetween never produced %d", want)
		}
	}
}

func TestPickEmptyFailsLoudly(t *testing.T) {
	c := New(Default(), 9)
	if _, err := c.Pick(nil); err == nil {
		t.Fatalf("expected error for empty pick")
	}
	if _, err := c.PickString(nil); err == nil {
		t.Fatalf("expected error for empty string pick")
	}
	if _, err := c.WeightedIndex(nil); err == nil {
		t.Fatalf("expected error for empty weighted pick")
	}
	if _, err := c.WeightedIndex([]float64{0, 0}); err == nil {
		t.Fatalf("expected error for zero-total weighted pick")
	}
}

func TestShuffleKeepsElements(t *testing.T) {
	c := New(Default(), 11)
	src := []int{1, 2, 3, 4, 5}
	c.ShuffleInts(src)
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal(got, []int{1, 2, 3, 4, 5}) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestGaussianDeterministic(t *testing.T) {
	c1 := New(Default(), 21)
	c2 := New(Default(), 21)
	v1 := c1.Gaussian(0, 1)
	v2 := c2.Gaussian(0, 1)
	if v1 != v2 {
		t.Fatalf("expected deterministic Gaussian, got %v vs %v", v1, v2)
	}
	if math.IsNaN(v1) || math.IsInf(v1, 0) {
		t.Fatalf("unexpected Gaussian value: %v", v1)
	}
}

func TestCloneContinuesSequence(t *testing.T) {
	c := New(Default(), 42)
	for i := 0; i < 5; i++ {
		c.Float64()
	}
	dup, err := c.Clone()
	if err != nil {
		t.Fatalf("clone failed: %v", err)
	}
	if dup.Seed() != c.Seed() {
		t.Fatalf("clone lost seed: %d vs %d", dup.Seed(), c.Seed())
	}
	for i := 0; i < 10; i++ {
		if dup.Float64() != c.Float64() {
			t.Fatalf("clone diverged at %d", i)
		}
	}
}

func TestSnapshotRestoreRoundtrip(t *testing.T) {
	c := New(Default(), 5)
	c.Float64()
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	want := c.Float64()
	if err := c.Restore(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got := c.Float64(); got != want {
		t.Fatalf("restore did not rewind: got %v want %v", got, want)
	}
	if err := c.Restore([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for malformed snapshot")
	}
}

func TestHashDJB2Fixtures(t *testing.T) {
	// djb2 xor 變體的固定樣本：常數改動時測試必須跟著紅
	cases := []struct {
		in   string
		want uint32
	}{
		{"", 5381},
		{"a", 177604},
		{"ab", 5860902},
	}
	for _, tc := range cases {
		if got := HashDJB2(tc.in); got != tc.want {
			t.Fatalf("HashDJB2(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMulberry32Fixtures(t *testing.T) {
	// 跨語言固定樣本：seed 12345 的前四個 32-bit 輸出
	r := newMulberry32(12345)
	want := []uint32{4207900869, 1317490944, 2079646450, 3513001552}
	for i, w := range want {
		if got := r.Uint32(); got != w {
			t.Fatalf("output %d = %d, want %d", i, got, w)
		}
	}
}

func TestSeedBundleStability(t *testing.T) {
	b1 := NewSeedBundle("alpha", 3)
	b2 := NewSeedBundle("alpha", 3)
	if b1 != b2 {
		t.Fatalf("same inputs produced different bundles: %+v vs %+v", b1, b2)
	}

	b3 := NewSeedBundle("alpha", 4)
	if b1.Market == b3.Market && b1.General == b3.General {
		t.Fatalf("changing round should change seeds")
	}

	seen := map[int64]string{}
	for _, name := range Subsystems {
		s, ok := b1.Seed(name)
		if !ok {
			t.Fatalf("missing subsystem seed: %s", name)
		}
		if prev, dup := seen[s]; dup {
			t.Fatalf("seed collision between %s and %s", prev, name)
		}
		seen[s] = name
	}
	if _, ok := b1.Seed("nope"); ok {
		t.Fatalf("unknown subsystem should not resolve")
	}
}
