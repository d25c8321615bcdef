package server

import "sync"

// presenceRegistry tracks which users are reachable on how many live
// connections. A user is online iff its handle set is non-empty. All
// transitions are computed inside the same critical section as the map
// mutation, so two handles for one user disconnecting at the same instant
// produce exactly one offline transition.
type presenceRegistry struct {
	mu    sync.Mutex
	conns map[string]map[*Client]struct{}
}

func newPresenceRegistry() *presenceRegistry {
	return &presenceRegistry{
		conns: make(map[string]map[*Client]struct{}),
	}
}

// register adds the handle to the user's set and reports whether the user
// just went online.
func (p *presenceRegistry) register(userId string, c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles, ok := p.conns[userId]
	if !ok {
		handles = make(map[*Client]struct{})
		p.conns[userId] = handles
	}

	wentOnline := len(handles) == 0
	handles[c] = struct{}{}
	return wentOnline
}

// unregister removes the handle from its user's set and reports the user
// id along with whether the user just went offline. Empty entries are
// deleted to bound memory.
func (p *presenceRegistry) unregister(c *Client) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userId := c.user.Id
	handles, ok := p.conns[userId]
	if !ok {
		return userId, false
	}

	if _, ok := handles[c]; !ok {
		return userId, false
	}

	delete(handles, c)
	if len(handles) == 0 {
		delete(p.conns, userId)
		return userId, true
	}

	return userId, false
}

func (p *presenceRegistry) isOnline(userId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.conns[userId]) > 0
}

func (p *presenceRegistry) onlineUsers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := make([]string, 0, len(p.conns))
	for userId := range p.conns {
		users = append(users, userId)
	}
	return users
}
