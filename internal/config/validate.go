package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks everything that can be verified without touching the
// network. It is used both at startup and as the reload gate, so a bad
// edit never replaces a working config.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("poller.interval", cfg.Poller.Interval); err != nil {
		return err
	}
	if _, err := ParseDurationField("broadcast.guard_interval", cfg.Broadcast.GuardInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("prices.timeout", cfg.Prices.Timeout); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Poller.Sources))
	for i, src := range cfg.Poller.Sources {
		name := strings.ToLower(strings.TrimSpace(src.Name))
		if name == "" {
			return fmt.Errorf("poller.sources[%d]: name is required", i)
		}
		if strings.TrimSpace(src.Endpoint) == "" {
			return fmt.Errorf("poller.sources[%d] (%s): endpoint is required", i, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("poller.sources: duplicate name %q", name)
		}
		seen[name] = struct{}{}
	}

	if at := strings.TrimSpace(cfg.Broadcast.At); at != "" {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("broadcast.at: want HH:MM, got %q", cfg.Broadcast.At)
		}
	}
	if tz := strings.TrimSpace(cfg.Broadcast.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("broadcast.timezone: %w", err)
		}
	}

	if cfg.Broadcast.RatePerSec < 0 {
		return fmt.Errorf("broadcast.rate_per_sec: must be >= 0")
	}
	if cfg.Alerts.RatePerSec < 0 {
		return fmt.Errorf("alerts.rate_per_sec: must be >= 0")
	}
	return nil
}
