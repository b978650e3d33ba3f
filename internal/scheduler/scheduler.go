package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Reaper drops sessions that have been idle too long.
type Reaper interface {
	ReapIdle(now time.Time) int
}

// Scheduler runs the periodic housekeeping jobs of the service.
type Scheduler struct {
	scheduler *gocron.Scheduler
	reaper    Reaper
	interval  time.Duration
	log       *zap.Logger
}

// New creates a new scheduler instance
func New(reaper Reaper, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		reaper:    reaper,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the idle-session reaper and runs it in the background.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("reap interval must be positive, got %s", s.interval)
	}
	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.reap); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("session reaper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) reap() {
	if n := s.reaper.ReapIdle(time.Now()); n > 0 {
		s.log.Debug("reaper pass", zap.Int("removed", n))
	}
}
