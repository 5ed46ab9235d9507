package domain

import (
	"testing"
)

func TestAddWatchDeduplicates(t *testing.T) {
	t.Parallel()
	s := NewSubscriber(1, "ann")

	if !s.AddWatch("btc") {
		t.Fatal("first add should change the list")
	}
	if !s.AddWatch("eth") {
		t.Fatal("second symbol should be added")
	}
	for i := 0; i < 5; i++ {
		if s.AddWatch("BTC") {
			t.Fatal("duplicate add must not change the list")
		}
	}

	want := []string{"BTC", "ETH"}
	if len(s.Watchlist) != len(want) {
		t.Fatalf("watchlist = %v, want %v", s.Watchlist, want)
	}
	for i, sym := range want {
		if s.Watchlist[i] != sym {
			t.Fatalf("watchlist[%d] = %q, want %q", i, s.Watchlist[i], sym)
		}
	}
}

func TestAddWatchIgnoresEmpty(t *testing.T) {
	t.Parallel()
	s := NewSubscriber(1, "")
	if s.AddWatch("   ") {
		t.Fatal("blank symbol must be rejected")
	}
	if len(s.Watchlist) != 0 {
		t.Fatalf("watchlist = %v, want empty", s.Watchlist)
	}
}

func TestRemoveWatch(t *testing.T) {
	t.Parallel()
	s := NewSubscriber(1, "")
	s.AddWatch("btc")
	s.AddWatch("eth")
	s.AddWatch("sol")

	if !s.RemoveWatch("eth") {
		t.Fatal("expected removal")
	}
	if s.RemoveWatch("eth") {
		t.Fatal("second removal must report no change")
	}
	if len(s.Watchlist) != 2 || s.Watchlist[0] != "BTC" || s.Watchlist[1] != "SOL" {
		t.Fatalf("watchlist = %v, want [BTC SOL]", s.Watchlist)
	}
}

func TestToggleNotifications(t *testing.T) {
	t.Parallel()
	s := NewSubscriber(1, "")
	if s.NotificationsEnabled {
		t.Fatal("notifications must default to off")
	}
	if !s.ToggleNotifications() {
		t.Fatal("first toggle should enable")
	}
	if s.ToggleNotifications() {
		t.Fatal("second toggle should disable")
	}
}

func TestCanonicalChain(t *testing.T) {
	t.Parallel()
	known := []string{"ethereum", "bsc", "polygon"}

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"eth", "ethereum", true},
		{"Ethereum", "ethereum", true},
		{"binance", "bsc", true},
		{"MATIC", "polygon", true},
		{"polygon", "polygon", true},
		{"solana", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalChain(tt.in, known)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("CanonicalChain(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetAndClearThreshold(t *testing.T) {
	t.Parallel()
	s := NewSubscriber(1, "")
	s.SetThreshold("Ethereum", 25)
	if got := s.GasThresholds["ethereum"]; got != 25 {
		t.Fatalf("threshold = %d, want 25", got)
	}
	s.ClearThreshold("ETHEREUM")
	if _, ok := s.GasThresholds["ethereum"]; ok {
		t.Fatal("threshold should be cleared")
	}
}
