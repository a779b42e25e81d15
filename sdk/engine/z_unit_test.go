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

package engine

import (
	"strings"
	"testing"

	"github.com/zintix-labs/marketlab/sdk/core"
)

func TestContextDeterminism(t *testing.T) {
	c1, err := NewContext(core.Default(), "match-7", 2)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	c2, err := NewContext(core.Default(), "match-7", 2)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	for i := 0; i < 8; i++ {
		if c1.Market().Float64() != c2.Market().Float64() {
			t.Fatalf("market stream diverged at %d", i)
		}
		if c1.General().Float64() != c2.General().Float64() {
			t.Fatalf("general stream diverged at %d", i)
		}
	}
}

func TestContextStreamIndependence(t *testing.T) {
	c1, _ := NewContext(core.Default(), "match-7", 2)
	c2, _ := NewContext(core.Default(), "match-7", 2)

	// c1 先大量消耗市場流，不應影響其他子系統流
	for i := 0; i < 100; i++ {
		c1.Market().Float64()
	}
	for i := 0; i < 8; i++ {
		if c1.Factory().Float64() != c2.Factory().Float64() {
			t.Fatalf("factory stream perturbed by market draws")
		}
	}
}

func TestContextMandatoryParams(t *testing.T) {
	if _, err := NewContext(nil, "m", 1); err == nil {
		t.Fatalf("expected error for nil factory")
	}
	if _, err := NewContext(core.Default(), "", 1); err == nil {
		t.Fatalf("expected error for empty match seed")
	}
	if _, err := NewContext(core.Default(), "m", 0); err == nil {
		t.Fatalf("expected error for round 0")
	}
}

func TestInsecureContextIsLabelled(t *testing.T) {
	ctx, err := NewInsecureContext(core.Default(), 1)
	if err != nil {
		t.Fatalf("new insecure context: %v", err)
	}
	if !ctx.Insecure() {
		t.Fatalf("insecure flag not set")
	}
	if !strings.HasPrefix(ctx.MatchSeed(), "insecure-") {
		t.Fatalf("insecure seed not labelled: %q", ctx.MatchSeed())
	}
}

func TestNextIDSequence(t *testing.T) {
	ctx, _ := NewContext(core.Default(), "m", 3)
	if got := ctx.NextID("fm"); got != "fm-r3-0001" {
		t.Fatalf("unexpected id: %q", got)
	}
	if got := ctx.NextID("fm"); got != "fm-r3-0002" {
		t.Fatalf("unexpected id: %q", got)
	}
	if got := ctx.NextID("erosion"); got != "erosion-r3-0001" {
		t.Fatalf("prefix sequences must be independent: %q", got)
	}
}
