package publish

import (
	"context"
	"fmt"
	"log"
)

// Request carries what a publisher needs to post one task's content.
type Request struct {
	TaskID  uint
	Content string
}

// Result is the outcome of a successful publish call.
type Result struct {
	PostID string
	URL    string
}

// Publisher performs the platform-specific side effect of posting content.
// Implementations return an error for any failure, including remote
// rejections, and never panic for "normal" remote failures.
type Publisher interface {
	Publish(ctx context.Context, req Request) (Result, error)
}

// Registry maps a platform identifier to its publisher. Platforms without a
// registered publisher resolve to the explicit no-op variant rather than an
// implicit success buried in the caller.
type Registry struct {
	publishers map[string]Publisher
	fallback   Publisher
}

func NewRegistry() *Registry {
	return &Registry{
		publishers: make(map[string]Publisher),
		fallback:   &NoopPublisher{},
	}
}

func (r *Registry) Register(platform string, p Publisher) {
	log.Printf("Registering publisher for platform: %s", platform)
	r.publishers[platform] = p
}

// Resolve returns the publisher for the platform, or the no-op fallback with
// implemented=false when none is registered.
func (r *Registry) Resolve(platform string) (p Publisher, implemented bool) {
	if pub, ok := r.publishers[platform]; ok {
		return pub, true
	}
	return r.fallback, false
}

// Get returns the publisher for the platform or an error when none is
// registered. Callers that want the fallback behavior use Resolve.
func (r *Registry) Get(platform string) (Publisher, error) {
	pub, ok := r.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for platform: %s", platform)
	}
	return pub, nil
}

func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	return names
}
