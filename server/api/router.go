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

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/marketlab/server/api/dev"
	"github.com/zintix-labs/marketlab/server/api/index"
	v1 "github.com/zintix-labs/marketlab/server/api/v1"
	"github.com/zintix-labs/marketlab/server/httperr"
	"github.com/zintix-labs/marketlab/server/netsvr"
	"github.com/zintix-labs/marketlab/server/netsvr/middleware"
	"github.com/zintix-labs/marketlab/server/svrcfg"
)

// RegisterRoutes 註冊
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerIndex(svr)                // 2. 註冊主頁
	dev.Register(svr, sCfg)           // 3. 開發者工具頁
	registerV1API(svr, sCfg)          // 4. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover)
	svr.Use(middleware.Compression)
}

// 註冊主頁
func registerIndex(svr netsvr.NetSvr) {
	svr.Get("/", index.IndexHandlerFn)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	m, err := v1.NewMatchHandler(sCfg)
	if err != nil {
		return err
	}
	s, err := v1.NewSimHandler(sCfg.Marketlab)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/scenarios", scenarios(sCfg))
		vOne.Get("/sim", s.Sim)
		vOne.Get("/simmatches", s.SimMatches)

		vOne.Post("/round", s.Round)
		vOne.Post("/match", m.Create)
		vOne.Post("/match/advance", m.Advance)
		vOne.Post("/match/drop", m.Drop)
		vOne.Post("/sim", s.Sim)
		vOne.Post("/simmatches", s.SimMatches)
		vOne.Post("/simbycfg", s.SetByJson)
		vOne.Post("/stat", v1.Stat)
	})
	return nil
}

// scenarios 回傳 Catalog summary（列表 API）。
func scenarios(sCfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := sCfg.Marketlab.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}
