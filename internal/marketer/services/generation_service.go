package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	marketerDB "marketer-service/internal/marketer/db"
	"marketer-service/internal/marketer/llm"
	"marketer-service/pkg/validation"
)

// generatedBatchSchema constrains what the model is allowed to hand back
// before anything touches the database.
const generatedBatchSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"properties": {
			"platform": {"type": "string", "minLength": 1},
			"content": {"type": "string", "minLength": 1}
		},
		"required": ["platform", "content"]
	}
}`

const generationSystemPrompt = "You are a marketing copywriter. Given an article, write one social post per requested platform. " +
	"Respond with only a JSON array of objects, each with \"platform\" and \"content\" fields. " +
	"Match each platform's tone and length conventions. No surrounding prose, no markdown fences."

// GeneratedPost is one platform draft returned by the model.
type GeneratedPost struct {
	Platform string `json:"platform"`
	Content  string `json:"content"`
}

// GenerationService turns an ingested source into draft tasks via the LLM.
type GenerationService struct {
	DB  *gorm.DB
	LLM *llm.Client
}

func NewGenerationService(db *gorm.DB, client *llm.Client) *GenerationService {
	return &GenerationService{DB: db, LLM: client}
}

// GenerateDrafts asks the model for one post per platform and persists each
// as a draft task linked to the source (and campaign, when given). Model
// output that fails schema validation creates nothing.
func (g *GenerationService) GenerateDrafts(ctx context.Context, source *marketerDB.Source, platforms []string, campaignID *uint) ([]marketerDB.Task, error) {
	if len(platforms) == 0 {
		return nil, fmt.Errorf("at least one platform is required")
	}
	if strings.TrimSpace(source.Content) == "" {
		return nil, fmt.Errorf("source %d has no extracted content", source.ID)
	}

	userPrompt := fmt.Sprintf("Platforms: %s\n\nArticle title: %s\n\nArticle:\n%s",
		strings.Join(platforms, ", "), source.Title, source.Content)

	raw, err := g.LLM.Complete(ctx, []llm.Message{
		{Role: "system", Content: generationSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, fmt.Errorf("generate drafts: %w", err)
	}

	raw = stripCodeFences(raw)
	if err := validation.ValidateJSONWithSchema(generatedBatchSchema, raw); err != nil {
		return nil, fmt.Errorf("model output failed validation: %w", err)
	}

	var posts []GeneratedPost
	if err := json.Unmarshal([]byte(raw), &posts); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	sourceID := source.ID
	tasks := make([]marketerDB.Task, 0, len(posts))
	for _, post := range posts {
		tasks = append(tasks, marketerDB.Task{
			CampaignID: campaignID,
			SourceID:   &sourceID,
			Platform:   post.Platform,
			Content:    post.Content,
			Status:     marketerDB.StatusDraft,
		})
	}
	if err := g.DB.Create(&tasks).Error; err != nil {
		return nil, fmt.Errorf("persist generated drafts: %w", err)
	}
	log.Printf("GenerationService: created %d draft task(s) from source ID %d", len(tasks), source.ID)
	return tasks, nil
}

// stripCodeFences tolerates models that wrap JSON in ```json fences despite
// the prompt.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
