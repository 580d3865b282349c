package api

import (
	"context"
	"log"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"marketer-service/internal/marketer/services"
)

// SchedulerHandler exposes the process operation over HTTP so an external
// cron trigger can drive it and operators can inspect the backlog.
type SchedulerHandler struct {
	Process *services.ProcessService
}

func NewSchedulerHandler(process *services.ProcessService) *SchedulerHandler {
	return &SchedulerHandler{Process: process}
}

// PeekDueTasks is the read-only mode: counts plus the next future task.
func (h *SchedulerHandler) PeekDueTasks(ctx context.Context, c *app.RequestContext) {
	result, err := h.Process.Peek()
	if err != nil {
		log.Printf("SchedulerHandler: peek failed: %v", err)
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to inspect scheduled tasks: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProcessDueTasks executes the batch. A selector failure is a 500 with no
// partial results; per-task failures are reported in the results array.
func (h *SchedulerHandler) ProcessDueTasks(ctx context.Context, c *app.RequestContext) {
	result, err := h.Process.Execute(ctx)
	if err != nil {
		log.Printf("SchedulerHandler: execute failed: %v", err)
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to process due tasks: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
