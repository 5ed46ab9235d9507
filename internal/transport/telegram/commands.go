package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"gasbot/internal/domain"
	"gasbot/internal/store"
	"gasbot/internal/upstream/gas"
	"gasbot/pkg/logx"
)

// handlerTimeout bounds the work behind a single command. telebot
// handlers carry no context, so each handler derives its own.
const handlerTimeout = 15 * time.Second

// GasSampler is the slice of the gas pool the command layer needs.
type GasSampler interface {
	SampleAll(ctx context.Context) gas.Snapshot
	Chains() []string
}

// PriceSource serves the /price and /prices commands.
type PriceSource interface {
	Report(ctx context.Context, symbols []string) (string, error)
	Quote(ctx context.Context, symbol string) (string, error)
}

// Broadcaster is the operator fan-out behind /sendall.
type Broadcaster interface {
	SendAll(ctx context.Context, text string) (sent, failed int)
}

// Commands wires the chat command set to the bot's services.
type Commands struct {
	adapter *Adapter
	store   store.Store
	gas     GasSampler
	prices  PriceSource
	bcast   Broadcaster
	log     logx.Logger
}

func NewCommands(adapter *Adapter, st store.Store, sampler GasSampler, prices PriceSource, bcast Broadcaster, log logx.Logger) *Commands {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Commands{
		adapter: adapter,
		store:   st,
		gas:     sampler,
		prices:  prices,
		bcast:   bcast,
		log:     log,
	}
}

// Register installs all handlers and publishes the command menu.
func (c *Commands) Register() {
	b := c.adapter.Bot()

	b.Handle("/start", c.wrap(c.handleStart))
	b.Handle("/help", c.wrap(c.handleHelp))
	b.Handle("/me", c.wrap(c.handleMe))
	b.Handle("/notify", c.wrap(c.handleNotify))
	b.Handle("/watch", c.wrap(c.handleWatch))
	b.Handle("/unwatch", c.wrap(c.handleUnwatch))
	b.Handle("/price", c.wrap(c.handlePrice))
	b.Handle("/prices", c.wrap(c.handlePrices))
	b.Handle("/gas", c.wrap(c.handleGas))
	b.Handle("/setgas", c.wrap(c.handleSetGas))
	b.Handle("/sendall", c.wrap(c.handleSendAll))

	if err := b.SetCommands(menu); err != nil {
		c.log.Warn("set command menu failed", logx.Err(err))
	}
}

var menu = []tele.Command{
	{Text: "help", Description: "List commands"},
	{Text: "me", Description: "Show your settings"},
	{Text: "notify", Description: "Toggle notifications on/off"},
	{Text: "watch", Description: "Add a coin to your watchlist"},
	{Text: "unwatch", Description: "Remove a coin from your watchlist"},
	{Text: "price", Description: "Detailed quote for one coin"},
	{Text: "prices", Description: "Prices for your watchlist"},
	{Text: "gas", Description: "Current gas prices"},
	{Text: "setgas", Description: "Set or clear a gas alert level"},
}

type handlerFunc func(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error

// wrap gives each handler a context, a get-or-create subscriber record
// and uniform error reporting.
func (c *Commands) wrap(fn handlerFunc) tele.HandlerFunc {
	return func(tc tele.Context) error {
		sender := tc.Sender()
		if sender == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		sub, err := c.store.Get(ctx, sender.ID, displayName(sender))
		if err != nil {
			c.log.Warn("subscriber lookup failed",
				logx.Int64("user_id", sender.ID), logx.Err(err))
			return tc.Send("Something went wrong, try again later.")
		}

		if err := fn(ctx, tc, sub); err != nil {
			c.log.Warn("command failed",
				logx.String("command", firstToken(tc.Text())),
				logx.Int64("user_id", sender.ID),
				logx.Err(err))
			return tc.Send("Something went wrong, try again later.")
		}
		return nil
	}
}

func (c *Commands) handleStart(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	name := sub.DisplayName
	if name == "" {
		name = "there"
	}
	return tc.Send(fmt.Sprintf("Hi %s! Use /help to see what I can do.", name))
}

func (c *Commands) handleHelp(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	return tc.Send(helpText)
}

const helpText = `Commands:
/me - show your settings
/notify - toggle daily reports and gas alerts
/watch SYMBOL - add a coin to your watchlist
/unwatch SYMBOL - remove a coin from your watchlist
/price SYMBOL - detailed quote for one coin
/prices - prices for your watchlist
/gas - current gas prices
/setgas CHAIN GWEI - alert when gas rises above GWEI (0 clears)`

func (c *Commands) handleMe(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	var sb strings.Builder
	state := "off"
	if sub.NotificationsEnabled {
		state = "on"
	}
	fmt.Fprintf(&sb, "Notifications: %s\n", state)
	if len(sub.Watchlist) == 0 {
		sb.WriteString("Watchlist: empty\n")
	} else {
		fmt.Fprintf(&sb, "Watchlist: %s\n", strings.Join(sub.Watchlist, ", "))
	}
	if len(sub.GasThresholds) == 0 {
		sb.WriteString("Gas alerts: none")
	} else {
		sb.WriteString("Gas alerts:\n")
		for _, chain := range c.gas.Chains() {
			if gwei, ok := sub.GasThresholds[chain]; ok {
				fmt.Fprintf(&sb, "  %s: above %d gwei\n", chain, gwei)
			}
		}
	}
	return tc.Send(strings.TrimRight(sb.String(), "\n"))
}

func (c *Commands) handleNotify(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	enabled := sub.ToggleNotifications()
	if err := c.store.Update(ctx, sub); err != nil {
		return err
	}
	if enabled {
		return tc.Send("Notifications are on. You will get the daily report and gas alerts.")
	}
	return tc.Send("Notifications are off.")
}

func (c *Commands) handleWatch(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	symbol := strings.TrimSpace(tc.Message().Payload)
	if symbol == "" {
		return tc.Send("Usage: /watch SYMBOL, for example /watch BTC")
	}
	if !sub.AddWatch(symbol) {
		return tc.Send(fmt.Sprintf("%s is already on your watchlist.", domain.NormalizeSymbol(symbol)))
	}
	if err := c.store.Update(ctx, sub); err != nil {
		return err
	}
	return tc.Send(fmt.Sprintf("Added %s to your watchlist.", domain.NormalizeSymbol(symbol)))
}

func (c *Commands) handleUnwatch(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	symbol := strings.TrimSpace(tc.Message().Payload)
	if symbol == "" {
		return tc.Send("Usage: /unwatch SYMBOL")
	}
	if !sub.RemoveWatch(symbol) {
		return tc.Send(fmt.Sprintf("%s is not on your watchlist.", domain.NormalizeSymbol(symbol)))
	}
	if err := c.store.Update(ctx, sub); err != nil {
		return err
	}
	return tc.Send(fmt.Sprintf("Removed %s from your watchlist.", domain.NormalizeSymbol(symbol)))
}

func (c *Commands) handlePrice(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	symbol := strings.TrimSpace(tc.Message().Payload)
	if symbol == "" {
		return tc.Send("Usage: /price SYMBOL, for example /price ETH")
	}
	quote, err := c.prices.Quote(ctx, symbol)
	if err != nil {
		c.log.Warn("quote failed", logx.String("symbol", symbol), logx.Err(err))
		return tc.Send(fmt.Sprintf("No quote found for %s.", domain.NormalizeSymbol(symbol)))
	}
	return tc.Send(quote)
}

func (c *Commands) handlePrices(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	if len(sub.Watchlist) == 0 {
		return tc.Send("Your watchlist is empty. Add coins with /watch SYMBOL.")
	}
	report, err := c.prices.Report(ctx, sub.Watchlist)
	if err != nil {
		c.log.Warn("watchlist report failed",
			logx.Int64("user_id", sub.ID), logx.Err(err))
		return tc.Send("Price data is unavailable right now, try again later.")
	}
	return tc.Send(report)
}

func (c *Commands) handleGas(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	snap := c.gas.SampleAll(ctx)
	if len(snap) == 0 {
		return tc.Send("No gas sources are configured.")
	}
	return tc.Send(snap.Format())
}

func (c *Commands) handleSetGas(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	args := strings.Fields(tc.Message().Payload)
	if len(args) != 2 {
		return tc.Send("Usage: /setgas CHAIN GWEI, for example /setgas eth 30")
	}
	chain, ok := domain.CanonicalChain(args[0], c.gas.Chains())
	if !ok {
		return tc.Send(fmt.Sprintf("Unknown chain %q. Available: %s.",
			args[0], strings.Join(c.gas.Chains(), ", ")))
	}
	gwei, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return tc.Send("GWEI must be a non-negative whole number.")
	}

	if gwei == 0 {
		sub.ClearThreshold(chain)
		if err := c.store.Update(ctx, sub); err != nil {
			return err
		}
		return tc.Send(fmt.Sprintf("Gas alerts for %s are off.", chain))
	}
	sub.SetThreshold(chain, gwei)
	if err := c.store.Update(ctx, sub); err != nil {
		return err
	}
	return tc.Send(fmt.Sprintf("You will be notified when %s gas rises above %d gwei.", chain, gwei))
}

func (c *Commands) handleSendAll(ctx context.Context, tc tele.Context, sub *domain.Subscriber) error {
	if !c.adapter.IsOwner(sub.ID) {
		return tc.Send("This command is for the bot operator.")
	}
	text := strings.TrimSpace(tc.Message().Payload)
	if text == "" {
		return tc.Send("Usage: /sendall TEXT")
	}
	sent, failed := c.bcast.SendAll(ctx, text)
	return tc.Send(fmt.Sprintf("Delivered to %d subscribers, %d failed.", sent, failed))
}

func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
