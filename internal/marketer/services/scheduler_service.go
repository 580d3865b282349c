package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const DefaultSchedulerInterval = 60 * time.Second

// SchedulerState is the lifecycle of the background loop.
type SchedulerState int

const (
	SchedulerStopped SchedulerState = iota
	SchedulerRunning
)

// SchedulerService owns the repeating timer that drives due-task processing.
// One instance runs per deployment; it is an explicit object rather than
// module-level state so callers control its lifetime.
type SchedulerService struct {
	process  *ProcessService
	interval time.Duration

	mu        sync.Mutex
	state     SchedulerState
	scheduler gocron.Scheduler
}

func NewSchedulerService(process *ProcessService, interval time.Duration) *SchedulerService {
	if interval <= 0 {
		interval = DefaultSchedulerInterval
	}
	return &SchedulerService{process: process, interval: interval}
}

// Start begins ticking. The first run fires immediately; subsequent runs use
// singleton mode so a slow tick suppresses the next one instead of
// overlapping it. Starting while already running logs and returns.
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SchedulerRunning {
		log.Println("SchedulerService already running; ignoring Start.")
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.tick),
		gocron.WithName("process-due-tasks"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule due-task job: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.state = SchedulerRunning
	log.Printf("SchedulerService started with %s interval.", s.interval)
	return nil
}

// Stop suppresses future ticks. In-flight work from the current tick is not
// cancelled. Safe to call when already stopped.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SchedulerStopped {
		return
	}
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("Error shutting down gocron scheduler: %v", err)
	} else {
		log.Println("SchedulerService stopped.")
	}
	s.scheduler = nil
	s.state = SchedulerStopped
}

func (s *SchedulerService) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// tick runs one processing pass. Errors are logged, never propagated: a bad
// tick must not stop future ticks.
func (s *SchedulerService) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("SchedulerService: recovered from panic in tick: %v", r)
		}
	}()

	result, err := s.process.Execute(context.Background())
	if err != nil {
		log.Printf("SchedulerService: processing tick failed: %v", err)
		return
	}
	if result.FailureCount > 0 {
		log.Printf("SchedulerService: tick finished with %d failed publish(es).", result.FailureCount)
	}
}
