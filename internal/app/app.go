// Package app wires the bot together: config, logging, store, upstream
// clients, the Telegram adapter and the background loops.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"gasbot/internal/config"
	"gasbot/internal/runtime/supervisor"
	"gasbot/internal/services/alerts"
	"gasbot/internal/services/broadcast"
	"gasbot/internal/services/logging"
	"gasbot/internal/services/poller"
	"gasbot/internal/store"
	"gasbot/internal/transport/telegram"
	"gasbot/internal/upstream/gas"
	"gasbot/internal/upstream/prices"
	logx "gasbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	logs  *logx.Service
	log   logx.Logger
	slogs *logging.Service

	st      store.Store
	pool    *gas.Pool
	prices  *prices.Client
	adapter *telegram.Adapter
	cmds    *telegram.Commands

	poll  *poller.Service
	bcast *broadcast.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// Secrets come from the environment when the file leaves them empty.
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
	}
	if strings.TrimSpace(cfg.Prices.APIKey) == "" {
		cfg.Prices.APIKey = os.Getenv("CMC_TOKEN")
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	slogSvc, slogger := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	busyTimeout, err := config.ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{
		Path:        cfg.Store.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	pool, err := gas.Dial(mapSources(cfg), log.With(logx.String("comp", "gas")))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("dial gas sources: %w", err)
	}

	pricesTimeout, err := config.ParseDurationField("prices.timeout", cfg.Prices.Timeout)
	if err != nil {
		_ = st.Close()
		pool.Close()
		return nil, err
	}
	priceCli := prices.New(prices.Config{
		QuoteURL:  cfg.Prices.QuoteURL,
		DetailURL: cfg.Prices.DetailURL,
		APIKey:    cfg.Prices.APIKey,
		Timeout:   pricesTimeout,
	}, log.With(logx.String("comp", "prices")))

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		_ = st.Close()
		pool.Close()
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		OwnerIDs:    cfg.Telegram.OwnerUserIDs,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = st.Close()
		pool.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	guard, err := config.ParseDurationField("broadcast.guard_interval", cfg.Broadcast.GuardInterval)
	if err != nil {
		_ = st.Close()
		pool.Close()
		return nil, err
	}
	bcastSvc := broadcast.New(broadcast.Config{
		At:            cfg.Broadcast.At,
		Timezone:      cfg.Broadcast.Timezone,
		GuardInterval: guard,
		RatePerSec:    cfg.Broadcast.RatePerSec,
	}, st, ad, priceCli, slogger.With(slog.String("svc", "broadcast")))

	alertSvc := alerts.New(alerts.Config{
		RatePerSec: cfg.Alerts.RatePerSec,
	}, st, ad, slogger.With(slog.String("svc", "alerts")))

	interval, err := config.ParseDurationField("poller.interval", cfg.Poller.Interval)
	if err != nil {
		_ = st.Close()
		pool.Close()
		return nil, err
	}
	pollSvc := poller.New(poller.Config{
		Interval: interval,
	}, pool, alertSvc, slogger.With(slog.String("svc", "poller")))

	cmds := telegram.NewCommands(ad, st, pool, priceCli, bcastSvc,
		log.With(logx.String("comp", "commands")))

	return &App{
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		slogs:   slogSvc,
		st:      st,
		pool:    pool,
		prices:  priceCli,
		adapter: ad,
		cmds:    cmds,
		poll:    pollSvc,
		bcast:   bcastSvc,
	}, nil
}

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	a.cmds.Register()
	a.adapter.Start(a.sup.Context())

	a.sup.GoRestart("poller", func(c context.Context) error {
		a.poll.Run(c)
		return nil
	})
	a.sup.GoRestart("broadcast", func(c context.Context) error {
		a.bcast.Run(c)
		return nil
	})

	// hot reload: logging applies live, everything else needs a restart
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the newest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs := config.SummarizeChange(lastApplied, newCfg)
				lastApplied = newCfg
				if len(sections) == 0 {
					a.log.Debug("config reload received, no effective changes")
					continue
				}

				a.logs.Apply(logx.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})
				a.slogs.Apply(logging.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logging.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})

				for _, s := range sections {
					if s != "logging" {
						a.log.Warn("config section changed; restart required",
							logx.String("section", s))
					}
				}
				fields := append([]logx.Field{
					logx.String("changed", strings.Join(sections, ",")),
				}, attrs...)
				a.log.Info("config reloaded", fields...)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}

	a.log.Info("app started", logx.Any("chains", a.pool.Chains()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	a.sup.Cancel()
	a.adapter.Stop()
	a.pool.Close()

	err := a.sup.Wait(ctx)
	if cerr := a.st.Close(); cerr != nil && err == nil {
		err = cerr
	}

	a.log.Info("stopped")
	_ = a.slogs.Close()
	_ = a.logs.Close()
	return err
}

func mapSources(cfg *config.Config) []gas.SourceConfig {
	out := make([]gas.SourceConfig, 0, len(cfg.Poller.Sources))
	for _, s := range cfg.Poller.Sources {
		out = append(out, gas.SourceConfig{
			Name:     strings.ToLower(strings.TrimSpace(s.Name)),
			Endpoint: strings.TrimSpace(s.Endpoint),
		})
	}
	return out
}

// StopTimeout bounds how long main waits for a clean shutdown.
const StopTimeout = 10 * time.Second
