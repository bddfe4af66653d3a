package core

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func collectSnapshot(t *testing.T, snapshots <-chan []string) []string {
	t.Helper()

	select {
	case names := <-snapshots:
		sort.Strings(names)
		return names
	case <-time.After(2 * time.Second):
		t.Fatal("expected presence snapshot not received")
		return nil
	}
}

func TestPublisherPushesSnapshots(t *testing.T) {
	clk := clock.NewMock()
	st := newMemStore()
	p := NewPublisher(st, 5*time.Second, clk, nopLogger())

	st.add("alice", true, clk.Now())
	st.add("bob", true, clk.Now())
	st.add("carol", false, time.Time{})

	snapshots := make(chan []string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.Serve(ctx, func(_ context.Context, names []string) error {
			snapshots <- names
			return nil
		})
	}()

	// First snapshot is pushed immediately on subscribe.
	first := collectSnapshot(t, snapshots)
	if len(first) != 2 || first[0] != "alice" || first[1] != "bob" {
		t.Fatalf("unexpected snapshot: %v", first)
	}

	// Carol logs in; the next tick must include her.
	st.add("carol", true, clk.Now())
	time.Sleep(20 * time.Millisecond) // let the publish ticker start
	clk.Add(5 * time.Second)

	second := collectSnapshot(t, snapshots)
	if len(second) != 3 || second[2] != "carol" {
		t.Fatalf("expected carol in snapshot, got %v", second)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPublisherStopsWhenSubscriberGone(t *testing.T) {
	clk := clock.NewMock()
	st := newMemStore()
	p := NewPublisher(st, 5*time.Second, clk, nopLogger())

	pushErr := errors.New("subscriber gone")
	err := p.Serve(context.Background(), func(context.Context, []string) error {
		return pushErr
	})
	if !errors.Is(err, pushErr) {
		t.Fatalf("expected push error to surface, got %v", err)
	}
}
