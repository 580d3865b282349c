package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	marketerDB "marketer-service/internal/marketer/db"
	"marketer-service/internal/marketer/events"
	"marketer-service/internal/marketer/publish"
)

// ProcessService owns the unit of work the scheduler loop triggers: find
// due tasks, publish them through the registry and record the outcome on
// each row. It is also invocable directly via the scheduler endpoint.
type ProcessService struct {
	DB       *gorm.DB
	Registry *publish.Registry
	Producer *events.Producer
	Now      func() time.Time
}

func NewProcessService(db *gorm.DB, registry *publish.Registry, producer *events.Producer) *ProcessService {
	return &ProcessService{DB: db, Registry: registry, Producer: producer, Now: time.Now}
}

// NextTask describes the earliest future-scheduled task in a Peek result.
type NextTask struct {
	ID          uint      `json:"id"`
	Platform    string    `json:"platform"`
	ScheduledAt time.Time `json:"scheduledAt"`
	TimeUntil   int64     `json:"timeUntil"` // seconds until due
}

// PeekResult is the read-only view of the scheduler's backlog.
type PeekResult struct {
	DueNow          int64     `json:"dueNow"`
	ScheduledFuture int64     `json:"scheduledFuture"`
	NextTask        *NextTask `json:"nextTask"`
}

// TaskResult is the per-task outcome of one Execute batch.
type TaskResult struct {
	Success      bool   `json:"success"`
	TaskID       uint   `json:"taskId"`
	Platform     string `json:"platform,omitempty"`
	PublishedURL string `json:"publishedUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ExecuteResult aggregates one Execute batch.
type ExecuteResult struct {
	Message      string       `json:"message"`
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	Results      []TaskResult `json:"results"`
}

// findDue returns all tasks with status=scheduled whose scheduled time has
// passed. No batch bound and no locking: the loop is single-instance.
func (s *ProcessService) findDue(now time.Time) ([]marketerDB.Task, error) {
	var tasks []marketerDB.Task
	err := s.DB.
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", marketerDB.StatusScheduled, now).
		Order("scheduled_at asc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	return tasks, nil
}

// Peek reports due/future counts and the next future task without mutating
// anything.
func (s *ProcessService) Peek() (*PeekResult, error) {
	now := s.Now()
	result := &PeekResult{}

	err := s.DB.Model(&marketerDB.Task{}).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", marketerDB.StatusScheduled, now).
		Count(&result.DueNow).Error
	if err != nil {
		return nil, fmt.Errorf("count due tasks: %w", err)
	}

	err = s.DB.Model(&marketerDB.Task{}).
		Where("status = ? AND scheduled_at > ?", marketerDB.StatusScheduled, now).
		Count(&result.ScheduledFuture).Error
	if err != nil {
		return nil, fmt.Errorf("count future tasks: %w", err)
	}

	var next marketerDB.Task
	err = s.DB.
		Where("status = ? AND scheduled_at > ?", marketerDB.StatusScheduled, now).
		Order("scheduled_at asc").
		First(&next).Error
	if err == nil && next.ScheduledAt != nil {
		result.NextTask = &NextTask{
			ID:          next.ID,
			Platform:    next.Platform,
			ScheduledAt: *next.ScheduledAt,
			TimeUntil:   int64(next.ScheduledAt.Sub(now) / time.Second),
		}
	} else if err != nil && err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("find next scheduled task: %w", err)
	}

	return result, nil
}

// Execute processes every due task. One task's failure never halts the rest
// of the batch; a failed task stays scheduled with its error recorded and is
// retried on the next tick.
func (s *ProcessService) Execute(ctx context.Context) (*ExecuteResult, error) {
	now := s.Now()
	due, err := s.findDue(now)
	if err != nil {
		return nil, err
	}

	result := &ExecuteResult{Results: make([]TaskResult, 0, len(due))}
	for i := range due {
		taskResult := s.processOne(ctx, &due[i])
		if taskResult.Success {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
		result.Results = append(result.Results, taskResult)
	}
	result.Message = fmt.Sprintf("Processed %d due task(s): %d succeeded, %d failed",
		len(due), result.SuccessCount, result.FailureCount)
	if len(due) > 0 {
		log.Println(result.Message)
	}
	return result, nil
}

// processOne publishes a single due task and records the outcome. Panics
// from a publisher are contained here so sibling tasks still run.
func (s *ProcessService) processOne(ctx context.Context, task *marketerDB.Task) (result TaskResult) {
	result = TaskResult{TaskID: task.ID, Platform: task.Platform}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected error publishing task: %v", r)
			log.Printf("ProcessService: panic processing task ID %d: %v", task.ID, r)
			s.recordFailure(task, msg)
			result.Success = false
			result.Error = msg
		}
	}()

	publisher, implemented := s.Registry.Resolve(task.Platform)
	hasContent := strings.TrimSpace(task.Content) != ""

	// Unimplemented platforms and content-less tasks are marked posted
	// without any remote call. Placeholder policy, see NoopPublisher.
	if !implemented || !hasContent {
		if !implemented {
			log.Printf("ProcessService: no publisher for platform %q, task ID %d marked posted", task.Platform, task.ID)
		}
		if err := s.recordSuccess(task, publish.Result{}); err != nil {
			result.Error = err.Error()
			return result
		}
		result.Success = true
		return result
	}

	res, err := publisher.Publish(ctx, publish.Request{TaskID: task.ID, Content: task.Content})
	if err != nil {
		log.Printf("ProcessService: publish failed for task ID %d: %v", task.ID, err)
		s.recordFailure(task, err.Error())
		result.Error = err.Error()
		s.emit(ctx, events.TypeTaskPublishFailed, task, "", err.Error())
		return result
	}

	if err := s.recordSuccess(task, res); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.PublishedURL = res.URL
	s.emit(ctx, events.TypeTaskPosted, task, res.URL, "")
	return result
}

// recordSuccess advances the task to posted, stamps PostedAt and clears any
// previous publish error.
func (s *ProcessService) recordSuccess(task *marketerDB.Task, res publish.Result) error {
	updates := map[string]interface{}{
		"status":        marketerDB.StatusPosted,
		"posted_at":     s.Now(),
		"published_url": res.URL,
		"publish_error": "",
	}
	if err := s.DB.Model(task).Updates(updates).Error; err != nil {
		log.Printf("ProcessService: failed to mark task ID %d posted: %v", task.ID, err)
		return fmt.Errorf("record publish success: %w", err)
	}
	return nil
}

// recordFailure leaves the task scheduled (it will be retried next tick)
// and stores the failure reason. Best effort: a write failure is only logged.
func (s *ProcessService) recordFailure(task *marketerDB.Task, msg string) {
	if err := s.DB.Model(task).Update("publish_error", msg).Error; err != nil {
		log.Printf("ProcessService: failed to record publish error on task ID %d: %v", task.ID, err)
	}
}

func (s *ProcessService) emit(ctx context.Context, eventType string, task *marketerDB.Task, url, errMsg string) {
	s.Producer.Emit(ctx, events.PublishOutcome{
		Type:         eventType,
		TaskID:       task.ID,
		Platform:     task.Platform,
		PublishedURL: url,
		Error:        errMsg,
	})
}
