package api

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	marketerDB "marketer-service/internal/marketer/db"
)

type CampaignHandler struct {
	DB *gorm.DB
}

func NewCampaignHandler(db *gorm.DB) *CampaignHandler {
	return &CampaignHandler{DB: db}
}

type CreateCampaignRequest struct {
	Name        string `json:"name" validate:"required,gt=0"`
	Description string `json:"description"`
}

func (h *CampaignHandler) CreateCampaign(ctx context.Context, c *app.RequestContext) {
	var req CreateCampaignRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	campaign := marketerDB.Campaign{Name: req.Name, Description: req.Description}
	if result := h.DB.Create(&campaign); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create campaign: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

func (h *CampaignHandler) GetCampaigns(ctx context.Context, c *app.RequestContext) {
	var campaigns []marketerDB.Campaign
	if result := h.DB.Find(&campaigns); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch campaigns: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

// GetCampaignByID preloads tasks so the board can render its columns from
// one response.
func (h *CampaignHandler) GetCampaignByID(ctx context.Context, c *app.RequestContext) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var campaign marketerDB.Campaign
	if result := h.DB.Preload("Tasks").First(&campaign, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Campaign not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch campaign: " + result.Error.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign detaches the campaign's tasks before deleting: losing the
// parent never invalidates a task.
func (h *CampaignHandler) DeleteCampaign(ctx context.Context, c *app.RequestContext) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var campaign marketerDB.Campaign
	if result := h.DB.First(&campaign, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Campaign not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to find campaign: " + result.Error.Error()})
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&marketerDB.Task{}).
			Where("campaign_id = ?", campaign.ID).
			Update("campaign_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&campaign).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete campaign: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "Campaign deleted"})
}
