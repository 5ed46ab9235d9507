// Package broadcast runs the daily watchlist report fan-out and the
// on-demand operator broadcast.
package broadcast

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"gasbot/internal/domain"
	"gasbot/internal/store"
	"gasbot/internal/transport"
)

// optOutReminder is the fixed follow-up line after each daily report.
const optOutReminder = "Reply /notify to opt out of notifications."

// Reporter fetches the aggregate price report for one watchlist.
type Reporter interface {
	Report(ctx context.Context, symbols []string) (string, error)
}

type Config struct {
	At            string // "HH:MM"
	Timezone      string // IANA name, e.g. "Europe/Kyiv"
	GuardInterval time.Duration
	RatePerSec    int
}

type Service struct {
	cfg      Config
	store    store.Store
	sender   transport.Sender
	reporter Reporter
	log      *slog.Logger
	limiter  *rate.Limiter

	// now is swappable for tests.
	now func() time.Time
}

func New(cfg Config, st store.Store, sender transport.Sender, reporter Reporter, log *slog.Logger) *Service {
	if cfg.GuardInterval <= 0 {
		cfg.GuardInterval = time.Minute
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	return &Service{
		cfg:      cfg,
		store:    st,
		sender:   sender,
		reporter: reporter,
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
		now:      time.Now,
	}
}

// Run fires the daily broadcast once per calendar day at the configured
// wall-clock time. Each cycle computes the next fire instant, sleeps
// until it, broadcasts, then guard-waits before recomputing so an early
// wake-up cannot re-fire inside the same target window.
//
// The next-fire instant is loop-local state; it is recomputed from the
// configured target after every fire and on process restart.
func (s *Service) Run(ctx context.Context) {
	tgt, err := parseTarget(s.cfg.At, s.cfg.Timezone)
	if err != nil {
		s.log.Error("broadcast scheduler misconfigured, not arming", slog.Any("err", err))
		return
	}
	s.log.Info("broadcast scheduler armed", slog.String("at", s.cfg.At), slog.String("tz", tgt.loc.String()))

	for {
		fireAt := tgt.next(s.now())
		s.log.Debug("broadcast sleeping", slog.Time("until", fireAt))
		if !sleepUntil(ctx, fireAt) {
			s.log.Info("broadcast scheduler stopped")
			return
		}

		s.broadcast(ctx)

		if !sleepFor(ctx, s.cfg.GuardInterval) {
			s.log.Info("broadcast scheduler stopped")
			return
		}
	}
}

// broadcast sends each eligible subscriber their watchlist report plus
// the opt-out reminder. Subscribers are processed sequentially; one
// recipient's failure never stops the rest.
func (s *Service) broadcast(ctx context.Context) {
	start := time.Now()
	subs, err := s.store.Query(ctx, func(sub *domain.Subscriber) bool {
		return sub.NotificationsEnabled && len(sub.Watchlist) > 0
	})
	if err != nil {
		s.log.Error("broadcast query failed", slog.Any("err", err))
		return
	}

	failed := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		if err := s.sendReport(ctx, sub); err != nil {
			failed++
			s.log.Warn("broadcast send failed", slog.Int64("subscriber", sub.ID), slog.Any("err", err))
		}
	}

	fields := []any{
		slog.Int("total", len(subs)),
		slog.Int("failed", failed),
		slog.Duration("dur", time.Since(start)),
	}
	if failed > 0 {
		s.log.Warn("daily broadcast finished with failures", fields...)
	} else {
		s.log.Info("daily broadcast finished", fields...)
	}
}

func (s *Service) sendReport(ctx context.Context, sub domain.Subscriber) error {
	report, err := s.reporter.Report(ctx, sub.Watchlist)
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.sender.SendText(ctx, sub.ID, report); err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.sender.SendText(ctx, sub.ID, optOutReminder)
}

// SendAll delivers one text to every subscriber, no filter, sequential.
// Used by the operator /sendall command. Returns sent/failed counts.
func (s *Service) SendAll(ctx context.Context, text string) (sent, failed int) {
	subs, err := s.store.Query(ctx, nil)
	if err != nil {
		s.log.Error("sendall query failed", slog.Any("err", err))
		return 0, 0
	}
	for _, sub := range subs {
		if err := s.limiter.Wait(ctx); err != nil {
			return sent, failed
		}
		if err := s.sender.SendText(ctx, sub.ID, text); err != nil {
			failed++
			s.log.Warn("sendall delivery failed", slog.Int64("subscriber", sub.ID), slog.Any("err", err))
			continue
		}
		sent++
	}
	s.log.Info("operator broadcast finished", slog.Int("sent", sent), slog.Int("failed", failed))
	return sent, failed
}

// sleepUntil blocks until the instant or ctx cancellation; reports
// whether the instant was reached.
func sleepUntil(ctx context.Context, at time.Time) bool {
	return sleepFor(ctx, time.Until(at))
}

func sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-tmr.C:
		return true
	}
}
