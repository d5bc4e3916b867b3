package ws

import (
	"sync"
)

// group is the live membership of one room, keyed by connection id.
type group struct {
	mu      sync.RWMutex
	members map[string]sender
}

func newGroup() *group { return &group{members: map[string]sender{}} }

func (g *group) add(c sender) {
	g.mu.Lock()
	g.members[c.ID()] = c
	g.mu.Unlock()
}

func (g *group) remove(connID string) {
	g.mu.Lock()
	delete(g.members, connID)
	g.mu.Unlock()
}

func (g *group) broadcast(event string, body any, exceptID string) {
	// Take a quick snapshot of the current members
	g.mu.RLock()
	conns := make([]sender, 0, len(g.members))
	for id, c := range g.members {
		if id == exceptID {
			continue
		}
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	// Do the I/O outside the lock
	var failed []string
	for _, c := range conns {
		if err := c.Emit(event, body); err != nil {
			failed = append(failed, c.ID())
		}
	}
	for _, id := range failed {
		g.remove(id)
	}
}
