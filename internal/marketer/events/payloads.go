package events

import "time"

// Event types emitted on the publish-outcome topic.
const (
	TypeTaskPosted        = "task.posted"
	TypeTaskPublishFailed = "task.publish_failed"
)

// PublishOutcome is the JSON payload emitted after each automatic publish
// attempt. EventID is unique per emission so downstream consumers can
// deduplicate at-least-once deliveries.
type PublishOutcome struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	TaskID       uint      `json:"task_id"`
	Platform     string    `json:"platform,omitempty"`
	PublishedURL string    `json:"published_url,omitempty"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
