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

type TaskHandler struct {
	DB *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{DB: db}
}

type CreateTaskRequest struct {
	CampaignID  *uint   `json:"campaign_id"`
	SourceID    *uint   `json:"source_id"`
	Platform    string  `json:"platform"`
	Content     string  `json:"content"`
	Status      string  `json:"status"`
	ScheduledAt *string `json:"scheduled_at"` // RFC3339
}

// UpdateTaskRequest carries partial updates. A pointer field left nil is
// untouched; ScheduledAt set to the empty string clears the schedule and
// resets the task to draft.
type UpdateTaskRequest struct {
	CampaignID   *uint   `json:"campaign_id"`
	SourceID     *uint   `json:"source_id"`
	Platform     *string `json:"platform"`
	Content      *string `json:"content"`
	Status       *string `json:"status"`
	ScheduledAt  *string `json:"scheduled_at"`
	PublishedURL *string `json:"published_url"`
}

func (h *TaskHandler) CreateTask(ctx context.Context, c *app.RequestContext) {
	var req CreateTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	if req.CampaignID != nil {
		var campaign marketerDB.Campaign
		if err := h.DB.First(&campaign, *req.CampaignID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusBadRequest, utils.H{"error": "Campaign not found"})
			} else {
				c.JSON(http.StatusInternalServerError, utils.H{"error": "Error verifying campaign: " + err.Error()})
			}
			return
		}
	}

	status := req.Status
	if status == "" {
		status = marketerDB.StatusDraft
	}

	task := marketerDB.Task{
		CampaignID: req.CampaignID,
		SourceID:   req.SourceID,
		Platform:   req.Platform,
		Content:    req.Content,
		Status:     status,
	}

	if req.ScheduledAt != nil && *req.ScheduledAt != "" {
		scheduledAt, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid scheduled_at, expected RFC3339: " + err.Error()})
			return
		}
		task.ScheduledAt = &scheduledAt
		if req.Status == "" {
			task.Status = marketerDB.StatusScheduled
		}
	}

	if result := h.DB.Create(&task); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create task: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTasks(ctx context.Context, c *app.RequestContext) {
	var tasks []marketerDB.Task
	query := h.DB.Model(&marketerDB.Task{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if platform := c.Query("platform"); platform != "" {
		query = query.Where("platform = ?", platform)
	}
	if campaignIDStr := c.Query("campaign_id"); campaignIDStr != "" {
		campaignID, err := strconv.ParseUint(campaignIDStr, 10, 32)
		if err == nil {
			query = query.Where("campaign_id = ?", uint(campaignID))
		} else {
			log.Printf("Invalid campaign_id query parameter: %s", campaignIDStr)
		}
	}
	if result := query.Order("created_at desc").Find(&tasks); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch tasks: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(ctx context.Context, c *app.RequestContext) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var task marketerDB.Task
	if result := h.DB.Preload("Metrics").First(&task, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch task: " + result.Error.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(ctx context.Context, c *app.RequestContext) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	var task marketerDB.Task
	if result := h.DB.First(&task, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to find task: " + result.Error.Error()})
		}
		return
	}

	updateData := make(map[string]interface{})
	if req.CampaignID != nil {
		updateData["campaign_id"] = *req.CampaignID
	}
	if req.SourceID != nil {
		updateData["source_id"] = *req.SourceID
	}
	if req.Platform != nil {
		updateData["platform"] = *req.Platform
	}
	if req.Content != nil {
		updateData["content"] = *req.Content
	}
	if req.PublishedURL != nil {
		updateData["published_url"] = *req.PublishedURL
	}
	if req.Status != nil {
		updateData["status"] = *req.Status
		// Manual drag to the posted column stamps PostedAt when the
		// automatic path never set it.
		if *req.Status == marketerDB.StatusPosted && task.PostedAt == nil {
			updateData["posted_at"] = time.Now()
		}
	}
	if req.ScheduledAt != nil {
		if *req.ScheduledAt == "" {
			// Clearing the schedule resets the task to draft.
			updateData["scheduled_at"] = nil
			updateData["status"] = marketerDB.StatusDraft
		} else {
			scheduledAt, err := time.Parse(time.RFC3339, *req.ScheduledAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid scheduled_at, expected RFC3339: " + err.Error()})
				return
			}
			updateData["scheduled_at"] = scheduledAt
			if req.Status == nil {
				updateData["status"] = marketerDB.StatusScheduled
			}
		}
	}

	if len(updateData) == 0 {
		c.JSON(http.StatusBadRequest, utils.H{"error": "No update fields provided"})
		return
	}
	if result := h.DB.Model(&task).Updates(updateData); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to update task: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes the task and its metrics in one transaction.
func (h *TaskHandler) DeleteTask(ctx context.Context, c *app.RequestContext) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var task marketerDB.Task
	if result := h.DB.First(&task, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to find task: " + result.Error.Error()})
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&marketerDB.Metric{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete task: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "Task deleted"})
}

func parseID(c *app.RequestContext) (uint, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid ID format"})
		return 0, false
	}
	return uint(id), true
}
