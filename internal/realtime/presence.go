package realtime

import (
	"sync"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

// PresenceSet is the canonical collection of users currently known to be
// online, deduplicated by user ID. It is owned by the Router; consumers only
// ever see copies via Snapshot.
type PresenceSet struct {
	mu    sync.RWMutex
	order []int
	users map[int]domain.ConnectedUser
}

func NewPresenceSet() *PresenceSet {
	return &PresenceSet{users: make(map[int]domain.ConnectedUser)}
}

// ReplaceAll swaps the entire set for the given roster. Duplicate IDs in the
// incoming list are collapsed to the first occurrence.
func (p *PresenceSet) ReplaceAll(users []domain.ConnectedUser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.order = p.order[:0]
	p.users = make(map[int]domain.ConnectedUser, len(users))
	for _, u := range users {
		if _, ok := p.users[u.ID]; ok {
			continue
		}
		p.users[u.ID] = u
		p.order = append(p.order, u.ID)
	}
}

// Add inserts a user unless an entry with the same ID already exists.
// Returns true when the set changed.
func (p *PresenceSet) Add(u domain.ConnectedUser) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.users[u.ID]; ok {
		return false
	}
	p.users[u.ID] = u
	p.order = append(p.order, u.ID)
	return true
}

// Remove deletes the entry with the given ID. Removing an absent ID is a
// no-op, not an error.
func (p *PresenceSet) Remove(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.users[id]; !ok {
		return false
	}
	delete(p.users, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Snapshot returns a copy of the current set in insertion order.
func (p *PresenceSet) Snapshot() []domain.ConnectedUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.ConnectedUser, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.users[id])
	}
	return out
}

// Len returns the number of users currently in the set.
func (p *PresenceSet) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}
