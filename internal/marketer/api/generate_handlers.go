package api

import (
	"context"
	"log"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	marketerDB "marketer-service/internal/marketer/db"
	"marketer-service/internal/marketer/services"
)

type GenerateHandler struct {
	DB         *gorm.DB
	Generation *services.GenerationService
}

func NewGenerateHandler(db *gorm.DB, generation *services.GenerationService) *GenerateHandler {
	return &GenerateHandler{DB: db, Generation: generation}
}

type GenerateRequest struct {
	SourceID   uint     `json:"source_id" validate:"required"`
	Platforms  []string `json:"platforms" validate:"required,min=1"`
	CampaignID *uint    `json:"campaign_id"`
}

// Generate creates one draft task per requested platform from a source.
func (h *GenerateHandler) Generate(ctx context.Context, c *app.RequestContext) {
	var req GenerateRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	var source marketerDB.Source
	if err := h.DB.First(&source, req.SourceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Source not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch source: " + err.Error()})
		}
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

	tasks, err := h.Generation.GenerateDrafts(ctx, &source, req.Platforms, req.CampaignID)
	if err != nil {
		log.Printf("GenerateHandler: generation failed for source ID %d: %v", source.ID, err)
		c.JSON(http.StatusBadGateway, utils.H{"error": "Failed to generate drafts: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, utils.H{"tasks": tasks, "count": len(tasks)})
}
