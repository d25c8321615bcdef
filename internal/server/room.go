package server

import (
	"log"
	"sync"

	"github.com/abdulhamid529589/kanz-chat/internal/stats"
)

// roomTable groups live connections by conversation id for fan-out.
// Membership changes are single map operations under one lock; a room
// exists only while it has at least one joined connection.
type roomTable struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   *log.Logger
	stats stats.StatsProvider
}

func newRoomTable(logger *log.Logger, su stats.StatsProvider) *roomTable {
	return &roomTable{
		rooms: make(map[string]map[*Client]struct{}),
		log:   logger,
		stats: su,
	}
}

// join is idempotent; joining a room twice leaves a single membership.
func (rt *roomTable) join(conversationId string, c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	members, ok := rt.rooms[conversationId]
	if !ok {
		members = make(map[*Client]struct{})
		rt.rooms[conversationId] = members
		rt.stats.Incr("NumActiveRooms")
	}

	members[c] = struct{}{}
}

func (rt *roomTable) leave(conversationId string, c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.remove(conversationId, c)
}

// leaveAll drops the connection from every room it joined. Called on
// disconnect.
func (rt *roomTable) leaveAll(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	for conversationId, members := range rt.rooms {
		if _, ok := members[c]; ok {
			rt.remove(conversationId, c)
		}
	}
}

// remove deletes the membership and unloads the room when it empties.
// Callers must hold rt.mu.
func (rt *roomTable) remove(conversationId string, c *Client) {
	members, ok := rt.rooms[conversationId]
	if !ok {
		return
	}

	if _, ok := members[c]; !ok {
		return
	}

	delete(members, c)
	if len(members) == 0 {
		delete(rt.rooms, conversationId)
		rt.stats.Decr("NumActiveRooms")
	}
}

// broadcast queues the event on every connection joined to the
// conversation, except skip. A room with no joined connections is a
// silent no-op.
func (rt *roomTable) broadcast(conversationId string, ev *Event, skip *Client) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	for c := range rt.rooms[conversationId] {
		if c == skip {
			continue
		}

		if !c.queueEvent(ev) {
			rt.log.Printf("dropped %s event for conversation %q, client buffer full", ev.Type, conversationId)
		}
	}
}

func (rt *roomTable) memberCount(conversationId string) int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return len(rt.rooms[conversationId])
}
