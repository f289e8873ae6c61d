package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"engagement-engine/config"
	"engagement-engine/engine"
	"engagement-engine/events"
	"engagement-engine/handlers"
	"engagement-engine/locks"
	"engagement-engine/middleware"
	"engagement-engine/models"
	"engagement-engine/services"
	"engagement-engine/utils"
	"engagement-engine/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	rules, err := cfg.EngineRules()
	if err != nil {
		log.Fatal("invalid engagement rules:", err)
	}
	catalog := engine.DefaultCatalog()
	if cfg.Rules.CatalogPath != "" {
		raw, err := os.ReadFile(cfg.Rules.CatalogPath)
		if err != nil {
			log.Fatal("failed to read mission catalog:", err)
		}
		if catalog, err = engine.ParseCatalog(raw); err != nil {
			log.Fatal("invalid mission catalog:", err)
		}
	}
	eng, err := engine.New(rules, catalog, nil)
	if err != nil {
		log.Fatal("failed to build engine:", err)
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.MissionCompletionRecord{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var locker locks.Locker
	var pruner workers.LockPruner
	if cfg.Redis.URL != "" {
		client, err := locks.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal("failed to configure redis:", err)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to reach redis:", err)
		}
		defer client.Close()
		locker = locks.NewRedisLocker(client, cfg.Locks.TTL)
		log.Println("✅ Per-user locks backed by Redis")
	} else {
		km := locks.NewKeyedMutex()
		locker, pruner = km, km
		log.Println("⚠️  redis.url not set, per-user locks are process-local (single replica only)")
	}

	hub := events.NewHub()
	store := services.NewGormStore(db)
	progressionService := services.NewProgressionService(eng, store, locker, hub, engine.SystemClock{})
	if cfg.Locks.Wait > 0 {
		progressionService.LockWait = cfg.Locks.Wait
	}

	var archiver *workers.CompletionArchiver
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.AccessKeySecret, cfg.R2.Bucket)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archiver = workers.NewCompletionArchiver(store, r2, cfg.Archive.BatchSize)
	} else {
		log.Println("⚠️  R2 not configured, completion archive disabled")
	}
	scheduler, err := workers.StartScheduler(ctx, archiver, cfg.Archive.Interval, pruner)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024,
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.HTTP.GatewayToken))

	allowedOrigins := strings.Split(cfg.HTTP.AllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	handlers.SetupProgressionRoutes(app, progressionService, hub)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.HTTP.Addr)
	log.Printf("✅ Day resets at %02d:00 %s", rules.ResetHour, rules.Location)
	log.Println("✅ GatewayAuthMiddleware enforced globally, all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func openDatabase(dbCfg config.DatabaseConfig) (*gorm.DB, error) {
	switch dbCfg.Driver {
	case "sqlite":
		url := dbCfg.URL
		if url == "" {
			url = "engagement.db"
		}
		log.Printf("⚠️  Using SQLite database %s", url)
		return gorm.Open(sqlite.Open(url), &gorm.Config{})
	default:
		if dbCfg.URL == "" {
			log.Fatal("database.url (DATABASE_URL) not set")
		}
		return gorm.Open(postgres.Open(dbCfg.URL), &gorm.Config{})
	}
}
