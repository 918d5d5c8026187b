package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler errors
var (
	ErrSchedulerRunning = errors.New("scheduler already running")
	ErrInvalidInterval  = errors.New("sync interval must be at least one second")
)

// CycleRunner runs one ingestion cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) SyncSummary
}

// SyncScheduler polls the mailbox on a fixed interval and serves manual triggers.
// Cycles never overlap: scheduled ticks are dropped while one is in flight,
// manual triggers wait for it.
type SyncScheduler struct {
	runner     CycleRunner
	interval   time.Duration
	startDelay time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	first   *time.Timer
	running bool

	syncing sync.Mutex
	last    SyncSummary
	lastAt  time.Time
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(runner CycleRunner, interval, startDelay time.Duration) *SyncScheduler {
	return &SyncScheduler{
		runner:     runner,
		interval:   interval,
		startDelay: startDelay,
	}
}

// Start schedules "@every interval" and a first run after the start delay
func (s *SyncScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	if s.interval < time.Second {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, s.interval)
	}

	c := cron.New(
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		cron.WithLogger(cronLogger{}),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.scheduledRun); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	c.Start()
	s.cron = c
	s.first = time.AfterFunc(s.startDelay, s.scheduledRun)
	s.running = true

	slog.Info("sync scheduler started", "interval", s.interval, "start_delay", s.startDelay)
	return nil
}

// Stop halts scheduling. The returned context is done once an in-flight cycle has finished.
func (s *SyncScheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.running = false
	if s.first != nil {
		s.first.Stop()
	}
	cronDone := s.cron.Stop()

	// cron only tracks its own jobs; the delayed first run holds the same lock
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.syncing.Lock()
		s.syncing.Unlock()
		cancel()
	}()
	slog.Info("sync scheduler stopping")
	return ctx
}

// IsRunning reports whether the scheduler is active
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow runs a cycle immediately, waiting for an in-flight one to finish first
func (s *SyncScheduler) RunNow(ctx context.Context) SyncSummary {
	s.syncing.Lock()
	defer s.syncing.Unlock()
	return s.run(ctx)
}

// LastRun returns the summary of the latest completed cycle
func (s *SyncScheduler) LastRun() (SyncSummary, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastAt
}

func (s *SyncScheduler) scheduledRun() {
	if !s.syncing.TryLock() {
		slog.Info("previous sync still running, skipping this tick")
		return
	}
	defer s.syncing.Unlock()
	// the delayed first run is not wrapped by cron.Recover
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sync cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	s.run(context.Background())
}

func (s *SyncScheduler) run(ctx context.Context) SyncSummary {
	summary := s.runner.RunCycle(ctx)
	s.mu.Lock()
	s.last, s.lastAt = summary, time.Now()
	s.mu.Unlock()
	return summary
}

// cronLogger routes cron's own messages to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(context.Background(), "cron: "+msg, append(keysAndValues, "error", err)...)
}
