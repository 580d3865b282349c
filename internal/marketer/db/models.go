package db

import (
	"time"

	"gorm.io/gorm"
)

// Task status values. The UI only offers these four; the data layer does not
// reject other strings.
const (
	StatusTodo      = "todo"
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPosted    = "posted"
)

// Known platform identifiers. Platform is free text; anything without a
// registered publisher is treated as a no-op success at publish time.
const (
	PlatformLinkedIn = "linkedin"
	PlatformTwitter  = "twitter"
	PlatformBlog     = "blog"
)

// Task is one unit of schedulable content. It moves through
// todo -> draft -> scheduled -> posted; the background loop advances due
// scheduled tasks to posted via the publish registry.
type Task struct {
	gorm.Model
	CampaignID   *uint      `json:"campaign_id" gorm:"index"`
	SourceID     *uint      `json:"source_id" gorm:"index"`
	Platform     string     `json:"platform" gorm:"index"`
	Content      string     `json:"content" gorm:"type:text"`
	Status       string     `json:"status" gorm:"index;default:'draft'"`
	ScheduledAt  *time.Time `json:"scheduled_at" gorm:"index"`
	PostedAt     *time.Time `json:"posted_at"`
	PublishedURL string     `json:"published_url"`
	PublishError string     `json:"publish_error"`
	Metrics      []Metric   `json:"metrics,omitempty"`
}

// Campaign groups tasks on the kanban board.
type Campaign struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex"`
	Description string `json:"description"`
	Tasks       []Task `json:"tasks,omitempty"`
}

// Source is an ingested article: the URL plus the readability-extracted
// title and text used as LLM generation input.
type Source struct {
	gorm.Model
	URL     string `json:"url" gorm:"index"`
	Title   string `json:"title"`
	Content string `json:"content" gorm:"type:text"`
	Tasks   []Task `json:"tasks,omitempty"`
}

// Metric is one engagement snapshot for a posted task. Deleted together
// with its task.
type Metric struct {
	gorm.Model
	TaskID      uint      `json:"task_id" gorm:"not null;index"`
	Likes       int       `json:"likes"`
	Comments    int       `json:"comments"`
	Shares      int       `json:"shares"`
	Impressions int       `json:"impressions"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Credential is a stored OAuth access token for a publishing platform.
// Provider is unique: single-user app, one credential per platform.
type Credential struct {
	gorm.Model
	Provider    string    `json:"provider" gorm:"uniqueIndex"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	OwnerURN    string    `json:"owner_urn"`
}

// Expired reports whether the access token is past its expiry.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
