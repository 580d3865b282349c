package api

import (
	"context"
	"log"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"gorm.io/gorm"

	"marketer-service/internal/marketer/content"
	marketerDB "marketer-service/internal/marketer/db"
)

type SourceHandler struct {
	DB      *gorm.DB
	Fetcher *content.Fetcher
}

func NewSourceHandler(db *gorm.DB, fetcher *content.Fetcher) *SourceHandler {
	return &SourceHandler{DB: db, Fetcher: fetcher}
}

type CreateSourceRequest struct {
	URL string `json:"url" validate:"required,gt=0"`
}

// CreateSource fetches the URL, extracts the readable article and stores it
// as generation input.
func (h *SourceHandler) CreateSource(ctx context.Context, c *app.RequestContext) {
	var req CreateSourceRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	title, text, err := h.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		log.Printf("CreateSource: extraction failed for %s: %v", req.URL, err)
		c.JSON(http.StatusBadGateway, utils.H{"error": "Failed to extract article: " + err.Error()})
		return
	}

	source := marketerDB.Source{URL: req.URL, Title: title, Content: text}
	if result := h.DB.Create(&source); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to create source: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusCreated, source)
}

func (h *SourceHandler) GetSources(ctx context.Context, c *app.RequestContext) {
	var sources []marketerDB.Source
	if result := h.DB.Order("created_at desc").Find(&sources); result.Error != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch sources: " + result.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, sources)
}

func (h *SourceHandler) GetSourceByID(ctx context.Context, c *app.RequestContext) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var source marketerDB.Source
	if result := h.DB.First(&source, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Source not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to fetch source: " + result.Error.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, source)
}

// DeleteSource detaches referencing tasks before deleting, mirroring
// campaign deletion.
func (h *SourceHandler) DeleteSource(ctx context.Context, c *app.RequestContext) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var source marketerDB.Source
	if result := h.DB.First(&source, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, utils.H{"error": "Source not found"})
		} else {
			c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to find source: " + result.Error.Error()})
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&marketerDB.Task{}).
			Where("source_id = ?", source.ID).
			Update("source_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&source).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.H{"error": "Failed to delete source: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "Source deleted"})
}
