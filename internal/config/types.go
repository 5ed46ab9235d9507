package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Store     StoreConfig     `json:"store"`
	Poller    PollerConfig    `json:"poller"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Alerts    AlertsConfig    `json:"alerts,omitempty"`
	Prices    PricesConfig    `json:"prices,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via the
	// TELEGRAM_TOKEN environment variable instead.
	Token        string  `json:"token,omitempty"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StoreConfig controls the sqlite subscriber store.
type StoreConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// PollerConfig controls the periodic gas sampling loop.
//
// Interval is a Go duration string. Sources lists the chains to sample;
// each needs a unique name and a JSON-RPC endpoint.
type PollerConfig struct {
	Interval string         `json:"interval,omitempty"`
	Sources  []SourceConfig `json:"sources"`
}

type SourceConfig struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

// BroadcastConfig controls the daily watchlist report.
//
// At is local wall-clock "HH:MM" in Timezone (IANA name, default UTC).
type BroadcastConfig struct {
	At            string `json:"at"`
	Timezone      string `json:"timezone,omitempty"`
	GuardInterval string `json:"guard_interval,omitempty"` // Go duration string
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
}

type AlertsConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type PricesConfig struct {
	QuoteURL  string `json:"quote_url,omitempty"`
	DetailURL string `json:"detail_url,omitempty"`
	// APIKey may be left empty and supplied via CMC_TOKEN instead.
	APIKey  string `json:"api_key,omitempty"`
	Timeout string `json:"timeout,omitempty"` // Go duration string
}
