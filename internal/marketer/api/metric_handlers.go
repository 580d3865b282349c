package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	marketerDB "marketer-service/internal/marketer/db"
)

type MetricHandler struct {
	DB *gorm.DB
}

func NewMetricHandler(db *gorm.DB) *MetricHandler {
	return &MetricHandler{DB: db}
}

type CreateMetricRequest struct {
	TaskID      uint    `json:"task_id" validate:"required"`
	Likes       int     `json:"likes"`
	Comments    int     `json:"comments"`
	Shares      int     `json:"shares"`
	Impressions int     `json:"impressions"`
	RecordedAt  *string `json:"recorded_at"` // RFC3339, defaults to now
}

func (h *MetricHandler) CreateMetric(ctx context.Context, c *app.RequestContext) {
	var req CreateMetricRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	var task marketerDB.Task
	if err := h.DB.First(&task, req.TaskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Error verifying task: " + err.Error()})
		}
		return
	}

	recordedAt := time.Now()
	if req.RecordedAt != nil && *req.RecordedAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.RecordedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid recorded_at, expected RFC3339: " + err.Error()})
			return
		}
		recordedAt = parsed
	}

	metric := marketerDB.Metric{
		TaskID:      req.TaskID,
		Likes:       req.Likes,
		Comments:    req.Comments,
		Shares:      req.Shares,
		Impressions: req.Impressions,
		RecordedAt:  recordedAt,
	}
	if result := h.DB.Create(&metric); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create metric: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusCreated, metric)
}

func (h *MetricHandler) GetMetrics(ctx context.Context, c *app.RequestContext) {
	var metrics []marketerDB.Metric
	query := h.DB.Model(&marketerDB.Metric{})
	if taskIDStr := c.Query("task_id"); taskIDStr != "" {
		taskID, err := strconv.ParseUint(taskIDStr, 10, 32)
		if err == nil {
			query = query.Where("task_id = ?", uint(taskID))
		} else {
			log.Printf("Invalid task_id query parameter: %s", taskIDStr)
		}
	}
	if result := query.Order("recorded_at desc").Find(&metrics); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch metrics: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}
