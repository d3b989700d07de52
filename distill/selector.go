package distill

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// Selector finds threads with undistilled activity and queues them.
type Selector struct {
	threads    storage.ThreadStore
	heartbeats storage.HeartbeatStore
	working    *WorkingSet
	out        chan<- core.ThreadCandidate
	config     *Config
	logger     *slog.Logger
	now        func() time.Time
}

func newSelector(threads storage.ThreadStore, heartbeats storage.HeartbeatStore, working *WorkingSet,
	out chan<- core.ThreadCandidate, config *Config, logger *slog.Logger) *Selector {
	return &Selector{
		threads:    threads,
		heartbeats: heartbeats,
		working:    working,
		out:        out,
		config:     config,
		logger:     logger.With("component", "selector"),
		now:        time.Now,
	}
}

// Scan queues every eligible thread that is not already in flight and
// returns how many were queued. It blocks while the queue is full.
func (s *Selector) Scan(ctx context.Context) (int, error) {
	var cutoff time.Time
	if s.config.Lookback > 0 {
		cutoff = s.now().Add(-s.config.Lookback)
	}

	candidates, err := s.threads.ThreadsNeedingDistillation(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, c := range candidates {
		if !s.working.TryAdd(c.ThreadID) {
			s.logger.Debug("thread already in flight", "thread", c.ThreadID)
			continue
		}
		select {
		case s.out <- c:
			queued++
		case <-ctx.Done():
			s.working.Remove(c.ThreadID)
			return queued, ctx.Err()
		}
	}

	s.logger.Debug("scan complete", "candidates", len(candidates), "queued", queued)
	return queued, nil
}

// Run scans until ctx ends. After each scan it sleeps ScanInterval and then
// waits for a fresh heartbeat from the live agent.
func (s *Selector) Run(ctx context.Context) error {
	for {
		queued, err := s.Scan(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.Error("thread scan failed", "err", err)
		} else if queued > 0 {
			s.logger.Info("queued threads for distillation", "count", queued)
		}

		if err := sleep(ctx, s.config.ScanInterval); err != nil {
			return err
		}
		if err := s.waitForHeartbeat(ctx); err != nil {
			return err
		}
	}
}

// waitForHeartbeat returns once the newest heartbeat is younger than
// HeartbeatMaxAge.
func (s *Selector) waitForHeartbeat(ctx context.Context) error {
	logged := false
	for {
		hb, err := s.heartbeats.Heartbeat(ctx)
		switch {
		case err != nil:
			s.logger.Warn("failed to read heartbeat", "err", err)
		case hb != nil && s.now().Sub(hb.At) < s.config.HeartbeatMaxAge:
			if logged {
				s.logger.Info("live agent is back, resuming scans", "agent", hb.Agent)
			}
			return nil
		case !logged:
			s.logger.Info("no fresh heartbeat, pausing scans")
			logged = true
		}

		if err := sleep(ctx, s.config.HeartbeatPoll); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
