package spec

import (
	"encoding/json"

	"github.com/zintix-labs/marketlab/errs"
	"gopkg.in/yaml.v3"
)

// GetMarketSettingByYAML
// 會讀取 YAML 設定、初始化各子設定並執行基本檢查後回傳。
func GetMarketSettingByYAML(data []byte) (*MarketSetting, error) {
	ms := &MarketSetting{}
	if err := yaml.Unmarshal(data, ms); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}

	// 設定檔初始化
	if err := ms.init(); err != nil {
		return nil, errs.Wrap(err, "market setting initialized err")
	}

	return ms, nil
}

// GetMarketSettingByJSON
// 會讀取 Json 設定、初始化各子設定並執行基本檢查後回傳
func GetMarketSettingByJSON(data []byte) (*MarketSetting, error) {
	ms := &MarketSetting{}
	if err := json.Unmarshal(data, ms); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}

	// 設定檔初始化
	if err := ms.init(); err != nil {
		return nil, errs.Wrap(err, "market setting initialized err")
	}

	return ms, nil
}
