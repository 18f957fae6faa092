package realtime

import (
	"testing"
	"time"
)

// fakeClock lets tests march time forward deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDedup(window time.Duration) (*DedupWindow, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	d := NewDedupWindow(window)
	d.now = clock.now
	return d, clock
}

func TestDedupWindow_SuppressesInsideWindow(t *testing.T) {
	d, clock := newTestDedup(5 * time.Second)

	if !d.Allow(7) {
		t.Fatalf("first notification must be allowed")
	}
	clock.advance(4 * time.Second)
	if d.Allow(7) {
		t.Fatalf("repeat inside the window must be suppressed")
	}
	clock.advance(2 * time.Second)
	if !d.Allow(7) {
		t.Fatalf("notification after the window must be allowed")
	}
}

func TestDedupWindow_TimestampAdvancesOnlyOnAllow(t *testing.T) {
	d, clock := newTestDedup(5 * time.Second)

	d.Allow(7) // t=0, allowed
	clock.advance(3 * time.Second)
	d.Allow(7) // t=3s, suppressed; must NOT refresh the window
	clock.advance(3 * time.Second)
	if !d.Allow(7) {
		t.Fatalf("6s after the last allowed notification the id must pass again")
	}
}

func TestDedupWindow_IDsAreIndependent(t *testing.T) {
	d, clock := newTestDedup(5 * time.Second)

	if !d.Allow(1) {
		t.Fatalf("id 1 first notification must be allowed")
	}
	clock.advance(time.Second)
	if !d.Allow(2) {
		t.Fatalf("id 2 must not be affected by id 1's window")
	}
	if d.Allow(1) {
		t.Fatalf("id 1 repeat inside window must be suppressed")
	}
}

func TestDedupWindow_ExactBoundaryAllows(t *testing.T) {
	d, clock := newTestDedup(5 * time.Second)

	d.Allow(3)
	clock.advance(5 * time.Second)
	if !d.Allow(3) {
		t.Fatalf("elapsed == window must be allowed")
	}
}
