package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contextd/internal/config"
	"contextd/internal/engine"
	"contextd/internal/handlers"
	"contextd/internal/jobs"
	"contextd/internal/logging"
	"contextd/internal/services"
	"contextd/internal/store"
	"contextd/internal/summarizer"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting contextd server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err == nil {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Backend: %s)", cfg.Port, cfg.StorageBackend)

	// Pick the durable KV backend
	kv := openKV(cfg)
	defer kv.Close()

	// Record store. The eviction hook resolves metrics lazily because the
	// metrics registry needs the store for its live record gauge.
	recordStore := store.NewRecordStore(kv, store.Options{
		MaxRecords:     cfg.MaxRecords,
		ExpiryDuration: cfg.ExpiryDuration,
		StorageKey:     cfg.StorageKey,
		OnEvict: func(n int) {
			services.GetMetrics().RecordEvictions(n)
		},
	})

	// Prometheus metrics
	metrics := services.InitMetrics(recordStore)

	// Model provider client (implements both collaborator contracts)
	provider := summarizer.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.FallbackModels)
	defaultModel := summarizer.ModelRef{ID: cfg.DefaultModelID}
	if defaultModel.ID == "" {
		log.Println("⚠️  DEFAULT_MODEL_ID not set - generation requires an explicit model per request")
	}

	// Generation coordinator
	engineCfg := engine.DefaultConfig()
	engineCfg.Enabled = cfg.Enabled
	engineCfg.AutoGenerate = cfg.AutoGenerate
	engineCfg.UpdateThreshold = cfg.UpdateThreshold
	engineCfg.CacheThreshold = cfg.CacheThreshold
	engineCfg.MinInputLength = cfg.MinInputLength
	engineCfg.MaxInputLength = cfg.MaxInputLength
	engineCfg.DebounceWindow = cfg.DebounceWindow
	engineCfg.GenerateTimeout = cfg.GenerateTimeout

	coordinator := engine.NewCoordinator(recordStore, provider, engineCfg, metrics)
	defer coordinator.Shutdown()
	log.Println("✅ Generation coordinator initialized")

	// Optional hot-reloadable threshold overrides
	if cfg.OverridesPath != "" {
		if overrides, err := config.LoadOverrides(cfg.OverridesPath); err == nil {
			coordinator.ApplyThresholds(overrides.UpdateThreshold, overrides.CacheThreshold, overrides.DebounceWindow)
		}
		watcher, err := config.WatchOverrides(cfg.OverridesPath, func(o *config.Overrides) {
			coordinator.ApplyThresholds(o.UpdateThreshold, o.CacheThreshold, o.DebounceWindow)
		})
		if err != nil {
			log.Printf("⚠️  Overrides watch disabled: %v", err)
		} else {
			defer watcher.Close()
			log.Printf("👀 Watching %s for threshold overrides", cfg.OverridesPath)
		}
	}

	// Periodic expired-record cleanup
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	cleanupJob := jobs.NewStoreCleanupJob(recordStore)
	if _, err := scheduler.NewJob(
		gocron.DurationJob(cfg.CleanupInterval),
		gocron.NewTask(func() {
			if err := cleanupJob.Run(context.Background()); err != nil {
				log.Printf("⚠️  [CLEANUP] Job failed: %v", err)
			}
		}),
	); err != nil {
		log.Fatalf("❌ Failed to schedule cleanup job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Shutdown()
	log.Printf("⏰ Store cleanup scheduled every %v", cfg.CleanupInterval)

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "contextd",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	prometheusMiddleware := fiberprometheus.New("contextd")
	prometheusMiddleware.RegisterAt(app, "/metrics")
	app.Use(prometheusMiddleware.Middleware)

	// Handlers
	healthHandler := handlers.NewHealthHandler(recordStore, coordinator, cleanupJob)
	contextHandler := handlers.NewContextHandler(recordStore, coordinator, defaultModel)
	providerHandler := handlers.NewProviderHandler(recordStore, provider, defaultModel)
	typingHandler := handlers.NewTypingHandler(coordinator, defaultModel, metrics)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Get("/context/stats", contextHandler.Stats)
	api.Post("/context/generate", contextHandler.Generate)
	api.Post("/context/clear", contextHandler.Clear)
	api.Get("/context/:fingerprint", contextHandler.Get)
	api.Patch("/context/:fingerprint", contextHandler.Update)
	api.Delete("/context/:fingerprint", contextHandler.Delete)
	api.Post("/prompt/enhance", contextHandler.Enhance)
	api.Post("/prompt/run", providerHandler.Run)
	api.Get("/models", providerHandler.Models)

	// Live-typing WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/typing", websocket.New(typingHandler.Handle))

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down contextd server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Server shutdown error: %v", err)
		}
	}()

	log.Printf("✅ contextd listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// openKV selects the durable backend. Failures fall back to the in-memory
// backend: the cache is advisory, so a broken persistence medium must not
// keep the engine from starting.
func openKV(cfg *config.Config) store.DurableKV {
	switch cfg.StorageBackend {
	case "redis":
		kv, err := store.NewRedisKV(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis backend unavailable: %v (falling back to in-memory)", err)
			return store.NewMemoryKV()
		}
		return kv
	case "memory":
		return store.NewMemoryKV()
	default:
		kv, err := store.NewSQLiteKV(cfg.SQLitePath)
		if err != nil {
			log.Printf("⚠️  SQLite backend unavailable: %v (falling back to in-memory)", err)
			return store.NewMemoryKV()
		}
		return kv
	}
}
