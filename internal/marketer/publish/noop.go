package publish

import (
	"context"
	"log"
)

// NoopPublisher is the explicit variant for platforms without a real
// adapter: the task is marked posted without contacting any remote system.
// Placeholder policy until more platforms are implemented.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, req Request) (Result, error) {
	log.Printf("NoopPublisher: task ID %d treated as published (no remote call)", req.TaskID)
	return Result{}, nil
}

var _ Publisher = (*NoopPublisher)(nil)
