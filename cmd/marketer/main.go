package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/joho/godotenv"

	"marketer-service/internal/marketer/api"
	"marketer-service/internal/marketer/content"
	marketerDB "marketer-service/internal/marketer/db"
	"marketer-service/internal/marketer/events"
	"marketer-service/internal/marketer/llm"
	"marketer-service/internal/marketer/publish"
	"marketer-service/internal/marketer/services"
	gorm_db "marketer-service/pkg/db"
)

func main() {
	stdlog.Println("Marketer Service starting...")

	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file loaded; using process environment.")
	}

	_, appCancel := context.WithCancel(context.Background())

	gormDB, err := gorm_db.NewGormDB()
	if err != nil {
		stdlog.Fatalf("Failed to initialize database: %v", err)
	}

	stdlog.Println("Running database migrations...")
	err = gorm_db.AutoMigrate(gormDB,
		&marketerDB.Campaign{}, &marketerDB.Source{}, &marketerDB.Task{},
		&marketerDB.Metric{}, &marketerDB.Credential{})
	if err != nil {
		stdlog.Fatalf("Failed to migrate database: %v", err)
	}

	producer := events.NewProducerFromEnv()

	registry := publish.NewRegistry()
	registry.Register(marketerDB.PlatformLinkedIn, publish.NewLinkedInPublisher(gormDB))

	processService := services.NewProcessService(gormDB, registry, producer)
	generationService := services.NewGenerationService(gormDB, llm.NewClient(llm.ConfigFromEnv()))

	schedulerService := services.NewSchedulerService(processService, services.DefaultSchedulerInterval)
	if err := schedulerService.Start(); err != nil {
		stdlog.Fatalf("Failed to start scheduler: %v", err)
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	hlog.SetOutput(os.Stdout)
	hlog.SetLevel(hlog.LevelInfo)

	h := server.Default(server.WithHostPorts(serverAddr), server.WithExitWaitTime(5*time.Second))

	api.RegisterRoutes(h, api.Handlers{
		Tasks:     api.NewTaskHandler(gormDB),
		Campaigns: api.NewCampaignHandler(gormDB),
		Sources:   api.NewSourceHandler(gormDB, content.NewFetcher()),
		Metrics:   api.NewMetricHandler(gormDB),
		Scheduler: api.NewSchedulerHandler(processService),
		Generate:  api.NewGenerateHandler(gormDB, generationService),
		Auth:      api.NewAuthHandler(gormDB, api.LinkedInOAuthConfigFromEnv()),
	})

	h.GET("/ping", func(c context.Context, ctxReq *app.RequestContext) {
		ctxReq.JSON(http.StatusOK, utils.H{"message": "pong"})
	})

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		hlog.Infof("Received signal: %s. Initiating graceful shutdown...", sig)

		appCancel()

		shutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer httpShutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			hlog.Errorf("Hertz server shutdown error: %v", err)
		} else {
			hlog.Info("Hertz server gracefully stopped.")
		}

		schedulerService.Stop()

		if err := producer.Close(); err != nil {
			hlog.Errorf("Event producer close error: %v", err)
		}
		hlog.Info("Marketer Service gracefully shut down.")
	}()

	hlog.Infof("Marketer Service fully initialized and starting Hertz server on %s...", serverAddr)
	h.Spin()

	stdlog.Println("Marketer Service has been shut down.")
}
