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

// Package index 提供服務主頁：一頁靜態 HTML，列出可用的 endpoints。
package index

import "net/http"

const indexHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <title>MarketLab</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 720px; margin: 48px auto; padding: 20px 24px; background:#111827; border:1px solid #1f2937; border-radius:12px; }
    h1 { margin: 0 0 8px; font-size: 22px; }
    p { color:#94a3b8; font-size: 14px; }
    code { background:#0b1224; border:1px solid #1f2738; border-radius:6px; padding:2px 6px; font-size:13px; }
    li { margin: 6px 0; font-size: 14px; }
    a { color:#38bdf8; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>MarketLab</h1>
    <p>回合制市場模擬引擎。Dev Panel：<a href="/dev">/dev</a></p>
    <ul>
      <li><code>POST /v1/round</code> 無狀態試算單一回合（sid + teams）</li>
      <li><code>POST /v1/match</code> 開場（sid + seed）</li>
      <li><code>POST /v1/match/advance</code> 推進一回合（match_id + teams）</li>
      <li><code>POST /v1/match/drop</code> 結束比賽</li>
      <li><code>GET/POST /v1/sim</code> 批量模擬（合併統計）</li>
      <li><code>GET/POST /v1/simmatches</code> 逐場模擬（含跨場隊伍體驗報表）</li>
      <li><code>POST /v1/simbycfg</code> 以 JSON 情境設定直接模擬</li>
      <li><code>POST /v1/stat</code> 由外部回合序列重算報表</li>
    </ul>
  </div>
</body>
</html>`

// IndexHandlerFn 回傳主頁 HTML。
func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}
