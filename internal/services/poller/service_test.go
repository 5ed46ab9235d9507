package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gasbot/internal/upstream/gas"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSampler struct {
	mu    sync.Mutex
	snaps []gas.Snapshot
	calls int
}

func (f *fakeSampler) SampleAll(ctx context.Context) gas.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.snaps[f.calls%len(f.snaps)]
	f.calls++
	return snap
}

func (f *fakeSampler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingConsumer struct {
	mu    sync.Mutex
	snaps []gas.Snapshot
}

func (r *recordingConsumer) HandleSnapshot(ctx context.Context, snap gas.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	r.mu.Unlock()
}

func (r *recordingConsumer) seen() []gas.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gas.Snapshot(nil), r.snaps...)
}

func TestRunDeliversSnapshots(t *testing.T) {
	t.Parallel()
	sampler := &fakeSampler{snaps: []gas.Snapshot{{{Chain: "ethereum", Gwei: 25}}}}
	consumer := &recordingConsumer{}
	svc := New(Config{Interval: 10 * time.Millisecond}, sampler, consumer, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for len(consumer.seen()) < 3 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for snapshots")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	for _, snap := range consumer.seen()[:3] {
		if v, ok := snap.Value("ethereum"); !ok || v != 25 {
			t.Fatalf("unexpected snapshot %v", snap)
		}
	}
}

func TestRunContinuesAfterSourceFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("rpc down")
	sampler := &fakeSampler{snaps: []gas.Snapshot{
		{{Chain: "ethereum", Err: boom}, {Chain: "bsc", Gwei: 5}},
	}}
	consumer := &recordingConsumer{}
	svc := New(Config{Interval: 10 * time.Millisecond}, sampler, consumer, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for sampler.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatal("poll loop stopped ticking after a source failure")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	// A partially failed snapshot is still delivered with the good reading.
	snaps := consumer.seen()
	if len(snaps) == 0 {
		t.Fatal("partial snapshot was never delivered")
	}
	if v, ok := snaps[0].Value("bsc"); !ok || v != 5 {
		t.Fatalf("good reading missing from partial snapshot: %v", snaps[0])
	}
	if _, ok := snaps[0].Value("ethereum"); ok {
		t.Fatalf("errored reading reported a value: %v", snaps[0])
	}
}

func TestRunSkipsFullyFailedTick(t *testing.T) {
	t.Parallel()
	sampler := &fakeSampler{snaps: []gas.Snapshot{
		{{Chain: "ethereum", Err: errors.New("down")}},
	}}
	consumer := &recordingConsumer{}
	svc := New(Config{Interval: 10 * time.Millisecond}, sampler, consumer, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	svc.Run(ctx)

	if got := len(consumer.seen()); got != 0 {
		t.Fatalf("fully failed ticks must not reach the consumer, got %d snapshots", got)
	}
	if sampler.callCount() < 2 {
		t.Fatalf("loop should keep ticking, sampled %d times", sampler.callCount())
	}
}
