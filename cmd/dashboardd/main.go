package main

import (
	"context"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	gootelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/persys-dev/workflow-watch/config"
	"github.com/persys-dev/workflow-watch/internal/dashboard"
	"github.com/persys-dev/workflow-watch/internal/logging"
	"github.com/persys-dev/workflow-watch/internal/metrics"
	"github.com/persys-dev/workflow-watch/internal/store"
	"github.com/persys-dev/workflow-watch/internal/telemetry"
)

const serviceName = "workflow-watch-dashboardd"

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

	// Same storage file the webhook service writes; both sides depend on the
	// workflow_runs schema staying identical.
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := dashboard.NewHub(st)
	monitor := dashboard.NewMonitor(st, hub.Publisher(), dashboard.DefaultPollInterval)
	go monitor.Run(ctx)

	r := gin.Default()
	r.Use(gootelgin.Middleware(serviceName))
	r.Use(cors.Default())

	p := ginprometheus.NewPrometheus("dashboardd")
	p.Use(r)

	r.GET("/", dashboard.Page)
	r.GET("/ws", hub.ServeWS)

	addr := cfg.Frontend.Addr()
	logger.Infof("Starting Workflow Dashboard on %s", addr)
	logger.Infof("Database: %s", cfg.Database.Path)
	logger.Infof("Access the dashboard at: http://%s", addr)

	if err := r.Run(addr); err != nil {
		logger.WithError(err).Fatal("failed to start server")
	}
}
