package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"leasing-sync/internal/config"
	"leasing-sync/internal/database"
	"leasing-sync/internal/dates"
	"leasing-sync/internal/handlers"
	"leasing-sync/internal/logger"
	"leasing-sync/internal/notify"
	"leasing-sync/internal/scheduler"
	"leasing-sync/internal/search"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "/etc/leasing-sync/config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		cfg = config.DefaultConfig()
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Business timezone governs what "today" means for every run
	if err := dates.SetTimezone(cfg.Timezone); err != nil {
		zlog.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	// Database
	gormDB, err := database.New(cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer gormDB.Close()

	if err := gormDB.InitSchema(); err != nil {
		zlog.Fatal("failed to initialize schema", zap.Error(err))
	}
	zlog.Info("database ready", zap.String("type", cfg.Database.Type))

	// Search (optional)
	var searchClient *search.SearchClient
	if cfg.Search.Meilisearch.Enabled {
		searchClient = search.NewSearchClient(cfg.Search.Meilisearch.Host, cfg.Search.Meilisearch.APIKey)
		if err := searchClient.InitIndex(); err != nil {
			zlog.Warn("failed to initialize search index", zap.Error(err))
		}
	}

	// Notifier
	notifier := notify.NewNotifier(cfg.Notify, zlog)

	// Scheduler
	sched := scheduler.NewScheduler(gormDB.DB(), cfg, notifier, searchClient, zlog)
	if err := sched.Start(); err != nil {
		zlog.Warn("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Setup Gin router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5176"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	adminHandler := handlers.NewAdminHandler(gormDB.DB(), sched, zlog)
	admin := r.Group("/api/admin")
	{
		admin.POST("/runs/trigger", adminHandler.TriggerRun)
		admin.GET("/runs/status", adminHandler.GetRunStatus)
		admin.GET("/runs", adminHandler.ListRuns)
		admin.GET("/runs/:id/report", adminHandler.GetRunReport)
		admin.GET("/flags", adminHandler.GetOpenFlags)
		admin.GET("/stats", adminHandler.GetStats)
		admin.POST("/cleanup/run", adminHandler.RunCleanup)
	}

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	zlog.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
