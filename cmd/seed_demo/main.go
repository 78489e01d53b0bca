package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/xelth-com/wotrack/internal/config"
	"github.com/xelth-com/wotrack/internal/lifecycle"
	"github.com/xelth-com/wotrack/internal/store"
	"github.com/xelth-com/wotrack/internal/utils"
)

var operators = []string{"Ana", "João", "Márcia", "Zé"}

func main() {
	count := flag.Int("n", 40, "documents to register")
	days := flag.Int("days", 45, "spread original dates over this many past days")
	force := flag.Bool("force", false, "seed even when the cache already has documents")
	flag.Parse()

	fmt.Println("🌱 Work Order Demo Seeder")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	cache, closeCache, err := store.Open(cfg.Cache)
	if err != nil {
		log.Fatalf("❌ Failed to open cache: %v", err)
	}
	defer closeCache()

	st := store.New(cache)
	if err := st.Load(context.Background()); err != nil {
		log.Fatalf("❌ Failed to load cache: %v", err)
	}
	if st.Len() > 0 && !*force {
		fmt.Printf("⚠️  Cache already has %d documents, use -force to add more\n", st.Len())
		return
	}

	engine := lifecycle.NewEngine(st)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	prefixes := []string{"100", "101", "200"}

	created := 0
	for i := 0; i < *count; i++ {
		raw := fmt.Sprintf("%s%06d", prefixes[rng.Intn(len(prefixes))], rng.Intn(1000000))
		code, err := utils.NormalizeCode(raw)
		if err != nil {
			continue
		}
		actor := operators[rng.Intn(len(operators))]
		original := time.Now().AddDate(0, 0, -rng.Intn(*days+1))

		doc, ok, err := engine.Register(code, actor, lifecycle.RegisterOptions{
			OriginalDate:  &original,
			International: rng.Intn(10) == 0,
		})
		if err != nil || !ok {
			continue
		}
		created++

		// Walk each document a random distance along its lifecycle
		for step := rng.Intn(6); step > 0; step-- {
			switch rng.Intn(5) {
			case 0:
				engine.ReportError(doc.ID, actor)
			case 1:
				engine.MarkCorrected(doc.ID, actor)
			default:
				engine.Advance(doc.ID, actor)
			}
		}
	}

	st.Persist()
	fmt.Printf("✅ Registered %d documents (%d total in cache)\n", created, st.Len())
}
