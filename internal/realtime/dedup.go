package realtime

import (
	"sync"
	"time"
)

// DedupWindow suppresses repeat user-connected notifications for the same
// user ID arriving within the configured window. Entries are never swept;
// a stale entry is simply overwritten the next time its ID is allowed
// through, so the table is bounded by the number of distinct IDs seen in a
// session.
type DedupWindow struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	lastSeen map[int]time.Time
}

func NewDedupWindow(window time.Duration) *DedupWindow {
	return &DedupWindow{
		window:   window,
		now:      time.Now,
		lastSeen: make(map[int]time.Time),
	}
}

// Allow reports whether a notification for id may propagate. The timestamp
// is only advanced when the notification is allowed, so a burst of repeats
// inside the window collapses to the first one.
func (d *DedupWindow) Allow(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSeen[id]; ok && now.Sub(last) < d.window {
		return false
	}
	d.lastSeen[id] = now
	return true
}
