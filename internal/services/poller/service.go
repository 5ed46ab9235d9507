// Package poller runs the periodic multi-chain gas sampling loop.
package poller

import (
	"context"
	"log/slog"
	"time"

	"gasbot/internal/upstream/gas"
)

// Sampler produces one snapshot per call. The production implementation
// is *gas.Pool.
type Sampler interface {
	SampleAll(ctx context.Context) gas.Snapshot
}

// Consumer receives each completed snapshot. HandleSnapshot is called
// synchronously from the poll loop, so ticks never overlap: tick n's
// fan-out finishes before tick n+1 is sampled.
type Consumer interface {
	HandleSnapshot(ctx context.Context, snap gas.Snapshot)
}

type Config struct {
	Interval time.Duration
}

type Service struct {
	cfg      Config
	sampler  Sampler
	consumer Consumer
	log      *slog.Logger
}

func New(cfg Config, sampler Sampler, consumer Consumer, log *slog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Service{cfg: cfg, sampler: sampler, consumer: consumer, log: log}
}

// Run samples immediately, then on every tick until ctx is cancelled.
// A source failing only drops that source's reading for the tick; the
// loop itself always continues.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("poller started", slog.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("poller stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	snap := s.sampler.SampleAll(ctx)

	ok, failed := 0, 0
	for _, r := range snap {
		if r.Err != nil {
			failed++
			continue
		}
		ok++
	}
	if failed > 0 {
		s.log.Warn("poll tick incomplete", slog.Int("ok", ok), slog.Int("failed", failed), slog.Duration("dur", time.Since(start)))
	} else {
		s.log.Debug("poll tick", slog.Int("sources", ok), slog.Duration("dur", time.Since(start)))
	}
	if ok == 0 {
		// Nothing to evaluate this tick.
		return
	}

	s.consumer.HandleSnapshot(ctx, snap)
}
