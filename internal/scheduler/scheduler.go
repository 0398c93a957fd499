package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/telemetry"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = 2 * time.Minute

// Sweeper evaluates every student and stores the resulting report
type Sweeper interface {
	Sweep(ctx context.Context) (*domain.RosterSummary, error)
}

// Scheduler runs the daily status sweep
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
}

// New creates a scheduler that runs the sweep on schedule, interpreted in loc
func New(sweeper Sweeper, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger))),
		sweeper:  sweeper,
		schedule: schedule,
	}
}

// Start registers the sweep job and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.Printf("✓ Status sweep scheduled (%s)", s.schedule)
	return nil
}

// Stop stops the cron loop. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	summary, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("⚠️ Status sweep failed: %v", err)
		return
	}
	telemetry.RecordSweep(ctx, summary)
}
