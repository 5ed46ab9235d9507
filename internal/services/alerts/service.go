// Package alerts evaluates per-subscriber gas thresholds against each
// poll snapshot and fans out one-line notifications.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"gasbot/internal/domain"
	"gasbot/internal/store"
	"gasbot/internal/transport"
	"gasbot/internal/upstream/gas"
)

type Config struct {
	RatePerSec int
}

// Service is the threshold fan-out: per-recipient failure isolation is
// its one correctness property. A failed send is logged and never stops
// the remaining recipients of the same tick.
type Service struct {
	store   store.Store
	sender  transport.Sender
	log     *slog.Logger
	limiter *rate.Limiter
}

func New(cfg Config, st store.Store, sender transport.Sender, log *slog.Logger) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	return &Service{
		store:   st,
		sender:  sender,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// HandleSnapshot implements poller.Consumer. Chains are processed in
// snapshot order; a subscriber qualifies for a chain when notifications
// are on and their stored threshold is strictly below the sampled value.
func (s *Service) HandleSnapshot(ctx context.Context, snap gas.Snapshot) {
	for _, reading := range snap {
		if reading.Err != nil {
			continue
		}
		s.fanOut(ctx, reading.Chain, reading.Gwei)
	}
}

func (s *Service) fanOut(ctx context.Context, chain string, gwei uint64) {
	subs, err := s.store.Query(ctx, func(sub *domain.Subscriber) bool {
		if !sub.NotificationsEnabled {
			return false
		}
		threshold, ok := sub.GasThresholds[chain]
		return ok && threshold < gwei
	})
	if err != nil {
		s.log.Error("alert query failed", slog.String("chain", chain), slog.Any("err", err))
		return
	}
	if len(subs) == 0 {
		return
	}

	start := time.Now()
	text := fmt.Sprintf("%s: %d Gwei", chain, gwei)
	failed := 0
	for _, sub := range subs {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.sender.SendText(ctx, sub.ID, text); err != nil {
			failed++
			s.log.Warn("alert send failed", slog.String("chain", chain), slog.Int64("subscriber", sub.ID), slog.Any("err", err))
		}
	}

	fields := []any{
		slog.String("chain", chain),
		slog.Uint64("gwei", gwei),
		slog.Int("total", len(subs)),
		slog.Int("failed", failed),
		slog.Duration("dur", time.Since(start)),
	}
	if failed > 0 {
		s.log.Warn("alert fan-out finished with failures", fields...)
	} else {
		s.log.Debug("alert fan-out finished", fields...)
	}
}
