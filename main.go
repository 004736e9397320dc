package main

import (
	"fmt"
	"os"

	"stockforecast/config"
	"stockforecast/forecast"
	"stockforecast/logging"
	"stockforecast/models"
	"stockforecast/pipeline"
	"stockforecast/routes"
	"stockforecast/service"
	"stockforecast/session"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("Stock Forecast Dashboard")

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("Note: .env file not found, using environment variables only")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	// Run history is optional
	var recorder pipeline.Recorder = pipeline.NoopRecorder{}
	db, err := models.InitDatabase(cfg.Database.URL, cfg.Database.Verbose)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}()
		recorder = pipeline.NewGormRecorder(db)
		log.Info("database connection established")
	} else {
		log.Info("DATABASE_URL not set, run history disabled")
	}

	provider, err := service.NewProviderFromConfig(cfg)
	if err != nil {
		log.Error("failed to create data provider", "error", err)
		os.Exit(1)
	}
	start, _ := cfg.StartTime()
	loader := service.NewLoader(provider, start, log)

	opts := forecast.DefaultOptions()
	opts.IntervalWidth = cfg.Forecast.IntervalWidth
	opts.Changepoints = cfg.Forecast.Changepoints
	engine := forecast.NewEngine(forecast.AdditiveFactory(opts), log)

	p := pipeline.New(loader, engine, recorder, cfg.Data.Tickers, log)

	sessions := session.NewManager(cfg.Session.IdleTTL, log)
	if err := sessions.StartSweeper(cfg.Session.SweepCron); err != nil {
		log.Error("failed to start session sweeper", "error", err)
		os.Exit(1)
	}
	defer sessions.Stop()

	gin.SetMode(cfg.Server.GinMode)

	// Initialize router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "healthy",
			"service":  "stock-forecast",
			"provider": provider.Name(),
			"sessions": sessions.Len(),
		})
	})

	if err := routes.SetupRoutes(router, routes.Deps{Config: cfg, Pipeline: p, Sessions: sessions}); err != nil {
		log.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	log.Info("starting server", "port", cfg.Server.Port, "provider", provider.Name(), "tickers", cfg.Data.Tickers)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
