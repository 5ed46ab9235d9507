package domain

import (
	"strings"
	"time"
)

// Subscriber is one registered end user with notification preferences.
//
// Watchlist keeps first-seen order and never contains a symbol twice.
// GasThresholds maps a chain name to a gwei level; an absent entry means
// "not subscribed to that chain".
type Subscriber struct {
	ID                   int64
	DisplayName          string
	Watchlist            []string
	NotificationsEnabled bool
	GasThresholds        map[string]uint64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewSubscriber returns a default record for a first-seen user:
// empty watchlist, notifications off, no thresholds.
func NewSubscriber(id int64, displayName string) *Subscriber {
	now := time.Now().UTC()
	return &Subscriber{
		ID:            id,
		DisplayName:   displayName,
		Watchlist:     []string{},
		GasThresholds: map[string]uint64{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddWatch appends a symbol to the watchlist. Duplicates are dropped,
// first-seen order is preserved. Reports whether the list changed.
func (s *Subscriber) AddWatch(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return false
	}
	for _, have := range s.Watchlist {
		if have == symbol {
			return false
		}
	}
	s.Watchlist = append(s.Watchlist, symbol)
	return true
}

// RemoveWatch removes a symbol if present. Reports whether the list changed.
func (s *Subscriber) RemoveWatch(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	out := s.Watchlist[:0]
	removed := false
	for _, have := range s.Watchlist {
		if have == symbol {
			removed = true
			continue
		}
		out = append(out, have)
	}
	s.Watchlist = out
	return removed
}

// SetThreshold sets the per-chain gas alert level (gwei).
func (s *Subscriber) SetThreshold(chain string, gwei uint64) {
	if s.GasThresholds == nil {
		s.GasThresholds = map[string]uint64{}
	}
	s.GasThresholds[strings.ToLower(strings.TrimSpace(chain))] = gwei
}

// ClearThreshold unsubscribes the user from one chain's gas alerts.
func (s *Subscriber) ClearThreshold(chain string) {
	delete(s.GasThresholds, strings.ToLower(strings.TrimSpace(chain)))
}

// ToggleNotifications flips the opt-in flag and returns the new value.
func (s *Subscriber) ToggleNotifications() bool {
	s.NotificationsEnabled = !s.NotificationsEnabled
	return s.NotificationsEnabled
}

// NormalizeSymbol canonicalizes an asset symbol for watchlist storage.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// chainAliases maps user-friendly spellings onto canonical chain names.
var chainAliases = map[string]string{
	"eth":                 "ethereum",
	"ethereum":            "ethereum",
	"binance":             "bsc",
	"binance smart chain": "bsc",
	"bsc":                 "bsc",
	"matic":               "polygon",
	"polygon":             "polygon",
}

// CanonicalChain resolves a chain name or alias against the configured
// chain set. Reports ok=false when the chain is unknown.
func CanonicalChain(name string, known []string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canon, ok := chainAliases[name]; ok {
		name = canon
	}
	for _, k := range known {
		if strings.EqualFold(k, name) {
			return strings.ToLower(k), true
		}
	}
	return "", false
}
