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

package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/zintix-labs/marketlab/demo"
	"github.com/zintix-labs/marketlab/demo/demo_strategies"
	"github.com/zintix-labs/marketlab/optimizer"
	"github.com/zintix-labs/marketlab/spec"
)

// OptCfg 是內建的預設調參設定；工作目錄有 opt_cfg.yaml 時以檔案為準。
const OptCfg = `
targets:
  avg_hhi: 0.35
  win_spread: 0.25
search:
  rounds: 20
  matches: 300
  workers: 4
  seed: "tuner"
candidates:
  boost_factors: [1.03, 1.05, 1.08, 1.12]
  drag_factors: [0.88, 0.92, 0.95, 0.97]
  crowding_penalties: [0.03, 0.05, 0.08]
  score_scales: [0.3, 0.4, 0.5]
output: "opt_tuning.yaml"
`

var optsid spec.SID

func main() {
	flag.Var(sidFlag{&optsid}, "scenario", "target scenario id")
	flag.Parse()
	lab, err := demo.NewMarketlab()
	if err != nil {
		log.Fatal(err)
	}
	ms, err := lab.Setting(optsid)
	if err != nil {
		log.Fatal(err)
	}
	tuner, err := optimizer.New([]byte(OptCfg), "opt_cfg.yaml")
	if err != nil {
		log.Fatal(err)
	}
	if err := tuner.Run(optsid, lab, demo_strategies.Rivals(ms), 64); err != nil {
		log.Fatal(err)
	}
}

type sidFlag struct{ p *spec.SID }

func (f sidFlag) String() string { return fmt.Sprint(uint(*f.p)) }
func (f sidFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.SID(uint(u))
	return nil
}
