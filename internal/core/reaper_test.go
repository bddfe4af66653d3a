package core

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestReaper(window time.Duration) (*Reaper, *Manager, *Registry, *memStore, *clock.Mock) {
	clk := clock.NewMock()
	st := newMemStore()
	r := NewRegistry(nopLogger())
	m := NewManager(r, st, time.Hour, clk, nopLogger())
	reaper := NewReaper(st, r, m, window, time.Minute, clk, nopLogger())
	return reaper, m, r, st, clk
}

func TestReaperEvictsStaleLogin(t *testing.T) {
	reaper, m, r, st, clk := newTestReaper(time.Minute)
	ctx := context.Background()

	st.add("alice", true, clk.Now().Add(-2*time.Minute)) // stale
	st.add("bob", true, clk.Now())                       // fresh

	alice := NewPeer("alice", 8)
	bob := NewPeer("bob", 8)
	r.Register(alice)
	r.Register(bob)

	if _, err := m.Open("alice", "bob"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	mustFrame(t, alice, "Connected with bob")
	mustFrame(t, bob, "Connected with alice")

	reaper.Sweep(ctx)

	if st.loggedIn("alice") {
		t.Fatal("stale user should be logged out")
	}
	mustClosed(t, alice)
	if r.Lookup("alice") != nil {
		t.Fatal("reaped user should be unregistered")
	}

	// The session ends for the partner too.
	mustFrame(t, bob, "alice has disconnected.")
	mustClosed(t, bob)

	if !st.loggedIn("bob") {
		t.Fatal("fresh user should stay logged in")
	}
}

func TestReaperSparesActiveUsers(t *testing.T) {
	reaper, _, r, st, clk := newTestReaper(time.Minute)
	ctx := context.Background()

	st.add("alice", true, clk.Now().Add(-30*time.Second))

	alice := NewPeer("alice", 8)
	r.Register(alice)

	reaper.Sweep(ctx)

	if !st.loggedIn("alice") {
		t.Fatal("user inside the window should stay logged in")
	}
	if alice.Closed() {
		t.Fatal("user inside the window should stay connected")
	}
}

func TestReaperRunSweepsOnTick(t *testing.T) {
	reaper, _, _, st, clk := newTestReaper(time.Minute)

	st.add("alice", true, clk.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reaper.Run(ctx)
	time.Sleep(20 * time.Millisecond) // let the ticker start

	clk.Add(time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !st.loggedIn("alice") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected the reaper tick to log alice out")
}
