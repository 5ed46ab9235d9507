package gas

import (
	"errors"
	"strings"
	"testing"

	"gasbot/pkg/logx"
)

func TestSnapshotValue(t *testing.T) {
	t.Parallel()
	snap := Snapshot{
		{Chain: "ethereum", Gwei: 25},
		{Chain: "bsc", Err: errors.New("timeout")},
		{Chain: "polygon", Gwei: 80},
	}

	if v, ok := snap.Value("ethereum"); !ok || v != 25 {
		t.Fatalf("Value(ethereum) = (%d, %v), want (25, true)", v, ok)
	}
	if _, ok := snap.Value("bsc"); ok {
		t.Fatal("errored reading must not report a value")
	}
	if _, ok := snap.Value("solana"); ok {
		t.Fatal("unknown chain must not report a value")
	}
}

func TestSnapshotFormat(t *testing.T) {
	t.Parallel()
	snap := Snapshot{
		{Chain: "ethereum", Gwei: 25},
		{Chain: "bsc", Err: errors.New("timeout")},
	}
	got := snap.Format()
	if !strings.Contains(got, "ethereum: 25 gwei") {
		t.Fatalf("missing ethereum line in %q", got)
	}
	if !strings.Contains(got, "bsc: unavailable") {
		t.Fatalf("missing bsc unavailable line in %q", got)
	}
}

func TestDialRejectsEmptyConfig(t *testing.T) {
	t.Parallel()
	if _, err := Dial(nil, logx.Nop()); err == nil {
		t.Fatal("expected error for empty source list")
	}
	if _, err := Dial([]SourceConfig{{Name: "", Endpoint: "http://x"}}, logx.Nop()); err == nil {
		t.Fatal("expected error for unnamed source")
	}
}
