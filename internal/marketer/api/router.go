package api

import (
	"github.com/cloudwego/hertz/pkg/app/server"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Tasks     *TaskHandler
	Campaigns *CampaignHandler
	Sources   *SourceHandler
	Metrics   *MetricHandler
	Scheduler *SchedulerHandler
	Generate  *GenerateHandler
	Auth      *AuthHandler
}

// RegisterRoutes wires the full HTTP surface onto the server.
func RegisterRoutes(h *server.Hertz, handlers Handlers) {
	root := h.Group("/api")

	tasks := root.Group("/tasks")
	{
		tasks.POST("", handlers.Tasks.CreateTask)
		tasks.GET("", handlers.Tasks.GetTasks)
		tasks.GET("/:id", handlers.Tasks.GetTaskByID)
		tasks.PATCH("/:id", handlers.Tasks.UpdateTask)
		tasks.DELETE("/:id", handlers.Tasks.DeleteTask)
	}

	campaigns := root.Group("/campaigns")
	{
		campaigns.POST("", handlers.Campaigns.CreateCampaign)
		campaigns.GET("", handlers.Campaigns.GetCampaigns)
		campaigns.GET("/:id", handlers.Campaigns.GetCampaignByID)
		campaigns.DELETE("/:id", handlers.Campaigns.DeleteCampaign)
	}

	sources := root.Group("/sources")
	{
		sources.POST("", handlers.Sources.CreateSource)
		sources.GET("", handlers.Sources.GetSources)
		sources.GET("/:id", handlers.Sources.GetSourceByID)
		sources.DELETE("/:id", handlers.Sources.DeleteSource)
	}

	metrics := root.Group("/metrics")
	{
		metrics.POST("", handlers.Metrics.CreateMetric)
		metrics.GET("", handlers.Metrics.GetMetrics)
	}

	scheduler := root.Group("/scheduler")
	{
		scheduler.GET("/process", handlers.Scheduler.PeekDueTasks)
		scheduler.POST("/process", handlers.Scheduler.ProcessDueTasks)
	}

	root.POST("/generate", handlers.Generate.Generate)

	auth := root.Group("/auth")
	{
		auth.GET("/linkedin", handlers.Auth.Login)
		auth.GET("/linkedin/callback", handlers.Auth.Callback)
	}
}
