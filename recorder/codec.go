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

package recorder

import (
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/marketlab/errs"
	"github.com/zintix-labs/marketlab/stats"
)

// Export 將紀錄以 JSON + zstd 寫出（.json.zst 格式）。
//
// 長時間模擬可以分批落地再 Import + Merge 續算。
// 場內累積不在序列化範圍，請在 FinishMatch 之後呼叫。
func (s *RoundRecorder) Export(w io.Writer) error {
	if len(s.matchRev) != 0 {
		return errs.NewWarn("export with unfinished match: call FinishMatch first")
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return errs.Wrap(err, "create zstd writer failed")
	}
	if err := json.NewEncoder(zw).Encode(s); err != nil {
		zw.Close()
		return errs.Wrap(err, "encode recorder json failed")
	}
	return zw.Close()
}

// Import 讀回 Export 寫出的紀錄。
func Import(r io.Reader) (*RoundRecorder, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, errs.Wrap(err, "create zstd reader failed")
	}
	defer zr.Close()

	s := new(RoundRecorder)
	if err := json.NewDecoder(zr).Decode(s); err != nil {
		return nil, errs.Wrap(err, "unmarshal recorder json failed")
	}

	// 驗證
	if s.ScenarioName == "" {
		return nil, errs.Warnf("recorder: scenario name is required")
	}
	if len(s.Segments) == 0 {
		return nil, errs.Warnf("recorder: segments are required")
	}
	if s.Basic == nil {
		s.Basic = new(BasicRecord)
	}
	if s.Teams == nil {
		s.Teams = make(map[string]*TeamRecord, 8)
	}
	if s.Market == nil {
		s.Market = newMarketRecord(s.Segments)
	}
	for _, t := range s.Teams {
		if len(t.ShareCollect) == 0 {
			t.ShareCollect = make([]int, stats.Buckets.Len())
		}
	}
	s.matchRev = make(map[string]float64, len(s.Teams))
	return s, nil
}
