package config

import (
	"strings"
	"testing"
)

const sampleYAML = `
telegram:
  owner_user_ids: [1001]
  poll_timeout: "10s"
logging:
  level: "info"
  console: true
  file:
    enabled: false
    path: ""
store:
  path: "./data/gasbot.db"
poller:
  interval: "1m"
  sources:
    - name: "ethereum"
      endpoint: "https://rpc.example/eth"
    - name: "bsc"
      endpoint: "https://rpc.example/bsc"
broadcast:
  at: "11:00"
  timezone: "Europe/Kyiv"
`

func TestParseBytesYAML(t *testing.T) {
	cfg, err := ParseBytes("config.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if got := len(cfg.Poller.Sources); got != 2 {
		t.Fatalf("sources = %d, want 2", got)
	}
	if cfg.Poller.Sources[1].Name != "bsc" {
		t.Fatalf("source[1].name = %q", cfg.Poller.Sources[1].Name)
	}
	if cfg.Broadcast.At != "11:00" || cfg.Broadcast.Timezone != "Europe/Kyiv" {
		t.Fatalf("broadcast = %+v", cfg.Broadcast)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseBytesRejectsUnknownFields(t *testing.T) {
	doc := sampleYAML + "\nmystery_section:\n  enabled: true\n"
	if _, err := ParseBytes("config.yaml", []byte(doc)); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestValidateCatchesBadInput(t *testing.T) {
	base := func() *Config {
		cfg, err := ParseBytes("config.yaml", []byte(sampleYAML))
		if err != nil {
			t.Fatalf("ParseBytes: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad interval", func(c *Config) { c.Poller.Interval = "soon" }, "poller.interval"},
		{"duplicate source", func(c *Config) { c.Poller.Sources[1].Name = "Ethereum" }, "duplicate"},
		{"empty endpoint", func(c *Config) { c.Poller.Sources[0].Endpoint = " " }, "endpoint"},
		{"bad at", func(c *Config) { c.Broadcast.At = "24:00" }, "broadcast.at"},
		{"bad timezone", func(c *Config) { c.Broadcast.Timezone = "Mars/Olympus" }, "broadcast.timezone"},
		{"negative rate", func(c *Config) { c.Broadcast.RatePerSec = -1 }, "rate_per_sec"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestSummarizeChange(t *testing.T) {
	oldCfg, err := ParseBytes("config.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	newCfg, err := ParseBytes("config.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	newCfg.Logging.Level = "debug"
	newCfg.Poller.Interval = "30s"

	changed, _ := SummarizeChange(oldCfg, newCfg)
	want := []string{"logging", "poller"}
	if len(changed) != len(want) {
		t.Fatalf("changed = %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Fatalf("changed = %v, want %v", changed, want)
		}
	}

	if changed, _ := SummarizeChange(oldCfg, oldCfg); len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %v", changed)
	}
}
