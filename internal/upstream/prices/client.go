// Package prices fetches spot quotes for the watchlist report and the
// single-symbol detail command.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gasbot/pkg/logx"
)

const (
	defaultQuoteURL  = "https://pro-api.coinmarketcap.com/v2/cryptocurrency/quotes/latest"
	defaultDetailURL = "https://min-api.cryptocompare.com/data/pricemultifull"
)

type Config struct {
	QuoteURL  string
	DetailURL string
	APIKey    string
	Timeout   time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if cfg.QuoteURL == "" {
		cfg.QuoteURL = defaultQuoteURL
	}
	if cfg.DetailURL == "" {
		cfg.DetailURL = defaultDetailURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log}
}

type cmcResponse struct {
	Data map[string][]struct {
		Quote map[string]struct {
			Price float64 `json:"price"`
		} `json:"quote"`
	} `json:"data"`
}

// Report fetches USD quotes for every symbol and renders the aggregate
// watchlist report, one block per symbol in watchlist order. Symbols the
// upstream does not know are silently skipped, matching the tolerant
// behavior users expect from a free-form watchlist.
func (c *Client) Report(ctx context.Context, symbols []string) (string, error) {
	if len(symbols) == 0 {
		return "", fmt.Errorf("empty watchlist")
	}
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	q := url.Values{"symbol": {strings.Join(upper, ",")}}
	var res cmcResponse
	if err := c.getJSON(ctx, c.cfg.QuoteURL, q, &res); err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(upper))
	for _, sym := range upper {
		entries := res.Data[sym]
		if len(entries) == 0 {
			continue
		}
		usd, ok := entries[0].Quote["USD"]
		if !ok {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Coin📈: %s\nPrice USD💵: %.2f$\n", sym, usd.Price))
	}
	if len(blocks) == 0 {
		return "", fmt.Errorf("no quotes found for %s", strings.Join(upper, ","))
	}
	return strings.Join(blocks, "-----------\n"), nil
}

type detailResponse struct {
	Raw map[string]map[string]struct {
		Price       float64 `json:"PRICE"`
		High24      float64 `json:"HIGH24HOUR"`
		Low24       float64 `json:"LOW24HOUR"`
		ChangePct24 float64 `json:"CHANGEPCT24HOUR"`
	} `json:"RAW"`
}

// Quote fetches the 24h detail view for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("empty symbol")
	}

	q := url.Values{"fsyms": {symbol}, "tsyms": {"USD"}}
	var res detailResponse
	if err := c.getJSON(ctx, c.cfg.DetailURL, q, &res); err != nil {
		return "", err
	}

	usd, ok := res.Raw[symbol]["USD"]
	if !ok {
		return "", fmt.Errorf("no data for %s: currency not found", symbol)
	}
	return fmt.Sprintf(
		"💰Coin: %s\n💵Price USD: $ %.2f\n📊Change per 24 hour: %.2f%%\n📈High price(24 hour): $ %.2f\n📉Low price(24 hour): $ %.2f",
		symbol, usd.Price, usd.ChangePct24, usd.High24, usd.Low24,
	), nil
}

func (c *Client) getJSON(ctx context.Context, base string, q url.Values, out any) error {
	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-CMC_PRO_API_KEY", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("price upstream %s: status %d", u.Host, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode price response: %w", err)
	}
	return nil
}
