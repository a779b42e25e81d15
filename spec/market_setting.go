package spec

import (
	"fmt"

	"github.com/zintix-labs/marketlab/errs"
)

// MarketSetting 包含啟動一個市場情境所需的所有高階設定。
type MarketSetting struct {
	ScenarioName  string           `yaml:"scenario_name"   json:"scenario_name"`
	ScenarioID    SID              `yaml:"scenario_id"     json:"scenario_id"`
	MaxTeams      int              `yaml:"max_teams"       json:"max_teams"`
	DefaultRegion string           `yaml:"default_region"  json:"default_region"`
	Segments      []SegmentSetting `yaml:"segments"        json:"segments"`
	Economy       EconomySetting   `yaml:"economy"         json:"economy"`
	Pressures     PressureSetting  `yaml:"pressures"       json:"pressures"`
	Tuning        TuningSetting    `yaml:"tuning"          json:"tuning"`
	Fixed         map[string]any   `yaml:"fixed"           json:"fixed"`
}

// init
func (ms *MarketSetting) init() error {
	if ms.DefaultRegion == "" {
		ms.DefaultRegion = "global"
	}
	for i := range ms.Segments {
		seg := &ms.Segments[i]
		if err := seg.init(); err != nil {
			return err
		}
	}
	if err := ms.Economy.init(); err != nil {
		return err
	}
	ms.Pressures.init()
	if err := ms.Tuning.init(); err != nil {
		return err
	}
	return ms.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (ms *MarketSetting) valid() error {

	if ms.ScenarioName == "" {
		return errs.NewFatal("empty scenario_name")
	}

	// 檢查 Segments 不能為空
	if len(ms.Segments) == 0 {
		return errs.NewFatal(fmt.Sprintf("scenario_name: %s err:empty segments", ms.ScenarioName))
	}

	// 市場區隔名稱必須唯一：結果的 (team, segment) 鍵靠它
	seen := make(map[string]bool, len(ms.Segments))
	for _, seg := range ms.Segments {
		if seen[seg.Name] {
			return errs.NewFatal(fmt.Sprintf("scenario_name: %s err:duplicate segment %q", ms.ScenarioName, seg.Name))
		}
		seen[seg.Name] = true
	}

	if ms.MaxTeams < 0 {
		return errs.NewFatal(fmt.Sprintf("scenario_name: %s err:invalid max_teams", ms.ScenarioName))
	}

	return nil
}

// SegmentNames 依設定檔順序回傳全部市場區隔名稱。
// 模擬流程固定以這個順序走訪區隔，順序是再現性合約的一部分。
func (ms *MarketSetting) SegmentNames() []string {
	names := make([]string, 0, len(ms.Segments))
	for _, seg := range ms.Segments {
		names = append(names, seg.Name)
	}
	return names
}

// Segment 依名稱取出市場區隔設定；找不到回傳 nil。
func (ms *MarketSetting) Segment(name string) *SegmentSetting {
	for i := range ms.Segments {
		if ms.Segments[i].Name == name {
			return &ms.Segments[i]
		}
	}
	return nil
}
