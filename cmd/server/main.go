package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/learning-gap-service/internal/cache"
	"github.com/SAP-F-2025/learning-gap-service/internal/config"
	"github.com/SAP-F-2025/learning-gap-service/internal/events"
	"github.com/SAP-F-2025/learning-gap-service/internal/handlers"
	"github.com/SAP-F-2025/learning-gap-service/internal/services"
	"github.com/SAP-F-2025/learning-gap-service/internal/utils"
	"github.com/SAP-F-2025/learning-gap-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := logger.(*utils.SlogLogger).GetSlogLogger()

	// Cache and events are optional collaborators: the analysis pipeline
	// runs without them when the backing services are unreachable.
	var cacheService cache.CacheService
	if redisClient, err := pkg.NewRedisClient(cfg); err != nil {
		logger.Warn("running without report cache", "error", err)
	} else {
		cacheService = cache.NewRedisCache(redisClient, slogger)
	}

	var publisher events.EventPublisher
	kafkaPublisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		TopicName:    cfg.EventTopic,
		Logger:       slogger,
	})
	if err != nil {
		logger.Warn("running without event publishing", "error", err)
	} else {
		publisher = kafkaPublisher
		defer publisher.Close()
	}

	validator := utils.NewValidator()
	detector := services.NewGapDetector(services.DetectorConfigFrom(cfg.Detection), slogger)
	recommender := services.NewRecommendationEngine(slogger)
	analysisService := services.NewAnalysisService(detector, recommender, cacheService, publisher, slogger)
	importExport := services.NewImportExportService(slogger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(analysisService, importExport, validator, logger)
	handlerManager.SetupRoutes(router)

	logger.Info("starting learning gap service", "port", cfg.Port, "environment", cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
