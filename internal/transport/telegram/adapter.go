// Package telegram adapts the bot's chat boundary to Telegram via telebot.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"gasbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	OwnerIDs    []int64
}

// Adapter owns the telebot instance. It exposes the outbound Sender used
// by the background loops and hosts the inbound command handlers.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	runMu   sync.Mutex
	running bool
	done    chan struct{}
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// Bot exposes the underlying telebot instance for handler registration.
func (a *Adapter) Bot() *tele.Bot { return a.bot }

func (a *Adapter) IsOwner(id int64) bool {
	for _, owner := range a.cfg.OwnerIDs {
		if owner == id {
			return true
		}
	}
	return false
}

// Start begins long polling. It returns immediately; polling runs until
// ctx is cancelled or Stop is called.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	a.done = make(chan struct{})
	done := a.done
	a.runMu.Unlock()

	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	go func() {
		defer close(done)
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
	}()
}

// Stop halts polling and waits for the poll loop to exit.
func (a *Adapter) Stop() {
	a.runMu.Lock()
	if !a.running {
		a.runMu.Unlock()
		return
	}
	a.running = false
	done := a.done
	a.runMu.Unlock()

	a.bot.Stop()
	if done != nil {
		<-done
	}
}

// SendText implements transport.Sender. telebot has no context support,
// so cancellation is only checked up front.
func (a *Adapter) SendText(ctx context.Context, recipientID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(tele.ChatID(recipientID), text)
	return err
}
