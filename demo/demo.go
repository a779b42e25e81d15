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

package demo

import (
	"github.com/zintix-labs/marketlab"
	"github.com/zintix-labs/marketlab/catalog"
	"github.com/zintix-labs/marketlab/demo/demo_configs"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/sdk/core"
	"github.com/zintix-labs/marketlab/server/logger"
	"github.com/zintix-labs/marketlab/server/svrcfg"
)

func New() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

func NewServerConfig() (*svrcfg.SvrCfg, error) {
	lab, err := marketlab.NewAuto(
		core.Default(),
		marketlab.Configs(demo_configs.FS),
	)
	if err != nil {
		return nil, errs.NewFatal("new marketlab failed:" + err.Error())
	}
	scfg := &svrcfg.SvrCfg{
		Log:          logger.NewDefaultAsyncLogger(logger.ModeDev),
		MatchBufSize: 8,
		Marketlab:    lab,
	}
	return scfg, nil
}

func NewMarketlab() (*marketlab.Marketlab, error) {
	return marketlab.NewAuto(
		core.Default(),
		marketlab.Configs(demo_configs.FS),
	)
}
