package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	sweepScratchTimeout   = 5 * time.Minute
)

// Sweeper removes scratch files left behind by interrupted extractions.
type Sweeper interface {
	SweepStale(ctx context.Context, maxAge time.Duration, now time.Time) (int, error)
}

// Scheduler periodically sweeps the scratch directory.
type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	maxAge  time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func New(
	ctx context.Context,
	sweeper Sweeper,
	spec string,
	maxAge time.Duration,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		sweeper: sweeper,
		spec:    spec,
		maxAge:  maxAge,
		now:     time.Now,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweepScratch); err != nil {
		return fmt.Errorf("add sweep job %q: %w", s.spec, err)
	}

	s.cron.Start()

	return nil
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepScratch() {
	ctx, cancel := context.WithTimeout(s.ctx, sweepScratchTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	removed, err := s.sweeper.SweepStale(ctx, s.maxAge, s.now())
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to sweep scratch files",
			"error", err,
			"removed", removed,
			"maxAgeSeconds", s.maxAge.Seconds())
		return
	}

	if removed > 0 {
		s.log.InfoContext(ctx, "Scratch sweep is done",
			"removed", removed)
	}
}
