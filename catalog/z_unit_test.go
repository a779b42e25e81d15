package catalog

import (
	"testing"
	"testing/fstest"
)

const scenarioYAML = `
scenario_name: "test-scenario"
scenario_id: 1
segments:
  - name: mainstream
    base_demand: 5000
    price_min: 200
    price_max: 500
    quality_expectation: 50
    weights: {price: 30, quality: 30, brand: 15, esg: 10, feature: 15}
    costs: {raw_material: 60, labor: 40, overhead: 30}
`

func testFS(names ...string) fstest.MapFS {
	m := fstest.MapFS{}
	for _, n := range names {
		m[n] = &fstest.MapFile{Data: []byte(scenarioYAML)}
	}
	return m
}

func TestRegisterAndLookup(t *testing.T) {
	c, err := New(testFS("alpha.yaml", "beta.yaml"))
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	err = c.Register(
		Entry{SID: 1, Name: "Alpha", ConfigName: "alpha.yaml"},
		Entry{SID: 2, Name: "beta", ConfigName: "beta.yaml"},
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// 名稱查詢不分大小寫
	if _, ok := c.GetByName("ALPHA"); !ok {
		t.Fatalf("case-insensitive lookup failed")
	}
	if got := c.IDs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("ids not sorted: %v", got)
	}

	ms, err := c.MarketSettingByID(1)
	if err != nil {
		t.Fatalf("load setting: %v", err)
	}
	if len(ms.Segments) != 1 || ms.Segments[0].Name != "mainstream" {
		t.Fatalf("unexpected setting: %+v", ms)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	c, _ := New(testFS("alpha.yaml", "beta.yaml"))
	if err := c.Register(Entry{SID: 1, Name: "alpha", ConfigName: "alpha.yaml"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Register(Entry{SID: 1, Name: "other", ConfigName: "beta.yaml"}); err == nil {
		t.Fatalf("duplicate sid must fail")
	}
	if err := c.Register(Entry{SID: 2, Name: "alpha", ConfigName: "beta.yaml"}); err == nil {
		t.Fatalf("duplicate name must fail")
	}
	if err := c.Register(Entry{SID: 3, Name: "gamma", ConfigName: "missing.yaml"}); err == nil {
		t.Fatalf("missing config must fail")
	}
}

func TestFreezeBlocksRegister(t *testing.T) {
	c, _ := New(testFS("alpha.yaml"))
	c.Freeze()
	if !c.IsFrozen() {
		t.Fatalf("freeze flag not set")
	}
	if err := c.Register(Entry{SID: 1, Name: "alpha", ConfigName: "alpha.yaml"}); err == nil {
		t.Fatalf("register after freeze must fail")
	}
}

func TestFlatFSContract(t *testing.T) {
	m := fstest.MapFS{
		"nested/alpha.yaml": &fstest.MapFile{Data: []byte(scenarioYAML)},
	}
	if _, err := New(m); err == nil {
		t.Fatalf("nested config FS must be rejected")
	}
}
