package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/zintix-labs/marketlab/demo"
	"github.com/zintix-labs/marketlab/demo/demo_strategies"
	"github.com/zintix-labs/marketlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	id        spec.SID
	worker    int
	rounds    int
	matches   int
	est       bool
	seed      string
	pprofmode string
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

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.Var(sidFlag{&cfg.id}, "scenario", "target scenario id")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.rounds, "rounds", 20, "rounds per match")
	flag.IntVar(&cfg.matches, "matches", 10000, "matches to simulate")
	flag.BoolVar(&cfg.est, "est", false, "per-match team experience report")
	flag.StringVar(&cfg.seed, "seed", "", "base seed string for match seed derivation")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed empty -> default seed
	if cfg.seed == "" {
		raw := make([]byte, 12)
		if _, err := rand.Read(raw); err != nil {
			log.Fatal(err)
		}
		cfg.seed = "run-" + base64.RawURLEncoding.EncodeToString(raw)
	}
}

// 這裡解析並分支要執行的模擬器
func executeSimulator() {
	cfg.valid() // 基本檢查

	lab, err := demo.NewMarketlab()
	if err != nil {
		log.Fatal(err)
	}
	s, err := lab.NewSimulatorWithSeed(cfg.id, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	ms, err := lab.Setting(cfg.id)
	if err != nil {
		log.Fatal(err)
	}
	ent, _ := lab.EntryById(cfg.id)
	cfg.name = ent.Name
	provider := demo_strategies.Rivals(ms)
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if !cfg.est { // 純平衡模擬
		if cfg.worker == 1 { // 單線程
			p.Printf("%s[SCENARIO:%s] [ROUNDS:%d] [MATCHES:%d]%s\n", green, cfg.name, cfg.rounds, cfg.matches, reset)
			st, used, _ := s.Sim(provider, cfg.rounds, cfg.matches, true)
			st.StdOut(used)
		} else {
			p.Printf("%s[WORKERS:%d] [SCENARIO:%s] [ROUNDS:%d] [MATCHES:%d]%s\n", green, cfg.worker, cfg.name, cfg.rounds, cfg.matches, reset)
			st, used, _ := s.SimMP(provider, cfg.rounds, cfg.matches, cfg.worker, true) // 併發
			st.StdOut(used)
		}
	} else { // 逐場獨立紀錄，多輸出跨場隊伍體驗報表
		p.Printf("%s[WORKERS:%d] [SCENARIO:%s] [ROUNDS:%d MATCHES:%d EST]%s\n", green, cfg.worker, cfg.name, cfg.rounds, cfg.matches, reset)
		st, est, used, _ := s.SimMatches(provider, cfg.rounds, cfg.matches, cfg.worker, true)
		st.StdOut(used)
		est.Out()
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}

	// 回合檢查
	if cfg.rounds < 1 {
		log.Fatal("value err : rounds must > 0")
	}
	// 單場回合太多 resize
	// 一場商業模擬賽照慣例是8~24回合；超過1000回合已是長期市場演化，統計上看長局數即可
	if cfg.rounds > 1000 {
		p.Printf("too much rounds per match: %d resized to 1k rounds\n", cfg.rounds)
		cfg.rounds = 1000
	}

	// 場數檢查
	if cfg.matches < 1 {
		log.Fatal("value err : matches must > 0")
	}

	// est 模式逐場保留紀錄員，場數過多會吃記憶體
	if cfg.est && cfg.matches > 100000 {
		p.Printf("too much matches for est mode: %d resized to 100k matches\n", cfg.matches)
		cfg.matches = 100000
	}
}
