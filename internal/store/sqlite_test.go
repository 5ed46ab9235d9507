package store

import (
	"context"
	"path/filepath"
	"testing"

	"gasbot/internal/domain"
	"gasbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "subscribers.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestGetCreatesDefaultRecord(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sub, err := st.Get(ctx, 42, "ann")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sub.ID != 42 {
		t.Fatalf("ID = %d, want 42", sub.ID)
	}
	if sub.NotificationsEnabled {
		t.Fatal("notifications must default to off")
	}
	if len(sub.Watchlist) != 0 || len(sub.GasThresholds) != 0 {
		t.Fatalf("expected empty defaults, got %+v", sub)
	}
}

func TestGetTwiceReturnsSameRecord(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first, err := st.Get(ctx, 7, "bo")
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	second, err := st.Get(ctx, 7, "bo")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("second Get must not recreate the record: %v vs %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestGetConcurrentFirstLookup(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	const n = 8
	results := make(chan *domain.Subscriber, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			sub, err := st.Get(ctx, 99, "race")
			if err != nil {
				errs <- err
				return
			}
			results <- sub
		}()
	}
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("Get raised during concurrent create: %v", err)
		case sub := <-results:
			if sub.ID != 99 {
				t.Fatalf("ID = %d, want 99", sub.ID)
			}
		}
	}

	all, err := st.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one row after racing creates, got %d", len(all))
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sub, _ := st.Get(ctx, 1, "cy")
	sub.AddWatch("btc")
	sub.AddWatch("eth")
	sub.SetThreshold("ethereum", 25)
	sub.NotificationsEnabled = true
	prevUpdated := sub.UpdatedAt

	if err := st.Update(ctx, sub); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !sub.UpdatedAt.After(prevUpdated) {
		t.Fatal("Update must refresh UpdatedAt")
	}

	got, err := st.Get(ctx, 1, "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Watchlist) != 2 || got.Watchlist[0] != "BTC" || got.Watchlist[1] != "ETH" {
		t.Fatalf("watchlist = %v", got.Watchlist)
	}
	if got.GasThresholds["ethereum"] != 25 {
		t.Fatalf("thresholds = %v", got.GasThresholds)
	}
	if !got.NotificationsEnabled {
		t.Fatal("notifications flag lost")
	}
}

func TestQueryPredicate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		sub, _ := st.Get(ctx, id, "")
		sub.NotificationsEnabled = id%2 == 1
		if err := st.Update(ctx, sub); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	got, err := st.Query(ctx, func(s *domain.Subscriber) bool { return s.NotificationsEnabled })
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 opted-in subscribers, got %d", len(got))
	}
	for _, s := range got {
		if !s.NotificationsEnabled {
			t.Fatalf("predicate leaked opted-out subscriber %d", s.ID)
		}
	}
}
