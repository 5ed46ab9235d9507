package config

import (
	"reflect"
	"sort"
	"strings"

	logx "gasbot/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (bot token, API key) are never
// included; only whether they are set.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 7)
	attrs := make([]logx.Field, 0, 16)

	if (strings.TrimSpace(oldCfg.Telegram.Token) != "") != (strings.TrimSpace(newCfg.Telegram.Token) != "") ||
		strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)),
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Store, newCfg.Store) {
		changed = append(changed, "store")
		attrs = append(attrs,
			logx.Bool("store.path_set", strings.TrimSpace(newCfg.Store.Path) != ""),
			logx.String("store.busy_timeout", strings.TrimSpace(newCfg.Store.BusyTimeout)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Poller, newCfg.Poller) {
		changed = append(changed, "poller")
		attrs = append(attrs,
			logx.String("poller.interval", strings.TrimSpace(newCfg.Poller.Interval)),
			logx.Int("poller.source_count", len(newCfg.Poller.Sources)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Broadcast, newCfg.Broadcast) {
		changed = append(changed, "broadcast")
		attrs = append(attrs,
			logx.String("broadcast.at", strings.TrimSpace(newCfg.Broadcast.At)),
			logx.String("broadcast.timezone", strings.TrimSpace(newCfg.Broadcast.Timezone)),
			logx.Int("broadcast.rate_per_sec", newCfg.Broadcast.RatePerSec),
		)
	}

	if oldCfg.Alerts != newCfg.Alerts {
		changed = append(changed, "alerts")
		attrs = append(attrs, logx.Int("alerts.rate_per_sec", newCfg.Alerts.RatePerSec))
	}

	if (strings.TrimSpace(oldCfg.Prices.APIKey) != "") != (strings.TrimSpace(newCfg.Prices.APIKey) != "") ||
		strings.TrimSpace(oldCfg.Prices.QuoteURL) != strings.TrimSpace(newCfg.Prices.QuoteURL) ||
		strings.TrimSpace(oldCfg.Prices.DetailURL) != strings.TrimSpace(newCfg.Prices.DetailURL) ||
		strings.TrimSpace(oldCfg.Prices.Timeout) != strings.TrimSpace(newCfg.Prices.Timeout) {
		changed = append(changed, "prices")
		attrs = append(attrs,
			logx.Bool("prices.api_key_set", strings.TrimSpace(newCfg.Prices.APIKey) != ""),
			logx.String("prices.timeout", strings.TrimSpace(newCfg.Prices.Timeout)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
