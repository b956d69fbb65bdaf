package main

import (
	"os"

	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	gootelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/persys-dev/workflow-watch/config"
	"github.com/persys-dev/workflow-watch/internal/handlers"
	"github.com/persys-dev/workflow-watch/internal/logging"
	"github.com/persys-dev/workflow-watch/internal/metrics"
	"github.com/persys-dev/workflow-watch/internal/store"
	"github.com/persys-dev/workflow-watch/internal/telemetry"
)

const serviceName = "workflow-watch-webhookd"

func main() {
	logger := logging.Init()

	shutdown := telemetry.SetupTracer(serviceName)
	defer shutdown()

	configPath := os.Getenv("WORKFLOW_WATCH_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}

	metrics.Register()

	r := gin.Default()
	r.Use(gootelgin.Middleware(serviceName))

	p := ginprometheus.NewPrometheus("webhookd")
	p.Use(r)

	webhookHandler := handlers.NewWebhookHandler(st, cfg.Webhook.Secret)
	workflowHandler := handlers.NewWorkflowHandler(st, cfg.Database.Path)

	api := r.Group("/api/v1")
	api.POST("/webhook", webhookHandler.Handle)
	api.GET("/workflows", workflowHandler.List)
	api.GET("/health", workflowHandler.Health)
	api.GET("/", workflowHandler.Info)

	addr := cfg.Backend.Addr()
	logger.Infof("Starting Workflow Watch webhook server on %s", addr)
	logger.Infof("Database: %s", cfg.Database.Path)
	if cfg.Webhook.Secret != "" {
		logger.Info("Webhook secret configured: Yes")
	} else {
		logger.Info("Webhook secret configured: No")
	}

	if err := r.Run(addr); err != nil {
		logger.WithError(err).Fatal("failed to start server")
	}
}
