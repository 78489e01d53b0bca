package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/wotrack/internal/ai"
	"github.com/xelth-com/wotrack/internal/config"
	"github.com/xelth-com/wotrack/internal/database"
	"github.com/xelth-com/wotrack/internal/handlers"
	"github.com/xelth-com/wotrack/internal/lifecycle"
	"github.com/xelth-com/wotrack/internal/remote"
	"github.com/xelth-com/wotrack/internal/store"
	"github.com/xelth-com/wotrack/internal/sync"
	"github.com/xelth-com/wotrack/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	syncCfg := config.LoadSyncConfig()

	// 2. Local durable cache, then the in-memory collection from it
	cache, closeCache, err := store.Open(cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	st := store.New(cache)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Load(loadCtx); err != nil {
		log.Printf("⚠️ Cache: starting empty, load failed: %v", err)
	}
	cancelLoad()
	log.Printf("📦 Store: %d documents loaded from %s cache", st.Len(), cfg.Cache.Backend)

	// 3. Remote collection (optional; without it the tracker runs offline)
	var db *database.DB
	var rem sync.Remote
	if cfg.Database.Enabled {
		db, err = database.Connect(cfg.Database)
		if err != nil {
			log.Printf("⚠️ Database unavailable, running offline: %v", err)
		} else {
			if err := db.Migrate(); err != nil {
				log.Printf("⚠️ Migration warning: %v", err)
			} else {
				log.Println("✅ Schema synchronized successfully")
			}
			rem = remote.NewGormStore(db.DB)
		}
	}

	// 4. Core services
	engine := lifecycle.NewEngine(st)
	syncEngine := sync.NewSyncEngine(st, rem, syncCfg)
	if err := syncEngine.Start(); err != nil {
		log.Printf("⚠️ Sync Engine: Failed to start: %v", err)
	}

	hub := websocket.NewHub()
	hub.AttachStore(st)
	go hub.Run()

	var ocr handlers.Extractor
	var gemini *ai.GeminiClient
	if cfg.Gemini.APIKey != "" {
		gemini, err = ai.NewGeminiClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Printf("⚠️ OCR: Gemini client unavailable: %v", err)
		} else {
			ocr = gemini
			log.Printf("🤖 OCR: using %s", cfg.Gemini.Model)
		}
	}

	// 5. Set up HTTP router
	router, err := handlers.NewRouter(handlers.Deps{
		Config:    cfg,
		Store:     st,
		Lifecycle: engine,
		Sync:      syncEngine,
		Hub:       hub,
		OCR:       ocr,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	// 6. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server (%s) starting on port %s", cfg.NodeEnv, cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("⚠️  Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	hub.Stop()

	// Flushes a pending debounced save before the remote goes away
	syncEngine.Stop()
	st.Persist()

	if gemini != nil {
		gemini.Close()
	}
	if err := closeCache(); err != nil {
		log.Printf("Cache close error: %v", err)
	}

	// Close database (this also stops embedded PostgreSQL)
	if db != nil {
		log.Println("🛑 Closing database connection...")
		if err := db.Close(); err != nil {
			log.Printf("Database close error: %v", err)
		}
	}

	log.Println("✅ Shutdown complete")
}
