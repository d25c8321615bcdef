package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdulhamid529589/kanz-chat/internal/database"
	"github.com/abdulhamid529589/kanz-chat/internal/stats"
	"github.com/abdulhamid529589/kanz-chat/internal/testutil"
	"github.com/abdulhamid529589/kanz-chat/internal/types"
)

func testUser(id string) types.User {
	return types.User{Id: id, Username: "user-" + id}
}

// newTestStats returns a stats mock that accepts any counter traffic.
// Tests asserting specific counter behavior build their own mock.
func newTestStats() *stats.MockStatsUpdater {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything)
	su.On("Decr", mock.Anything)
	return su
}

func newTestChatServer(t *testing.T, db database.ChatRepository) *ChatServer {
	cs, err := NewChatServer(testutil.TestLogger(t), db, newTestStats(), nil)
	require.NoError(t, err)
	return cs
}

// newTestClient builds a client without a live websocket connection.
// Events queued to it land on the send channel, where tests read them.
func newTestClient(t *testing.T, cs *ChatServer, user types.User) *Client {
	return &Client{
		id:         uuid.New(),
		chatServer: cs,
		log:        testutil.TestLogger(t),
		user:       user,
		send:       make(chan *Event, 256),
		stop:       make(chan struct{}),
	}
}

// recvEvent pops one queued event or fails the test if none is pending.
func recvEvent(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case ev := <-c.send:
		return ev
	default:
		t.Fatal("expected a queued event")
		return nil
	}
}

// drain discards everything currently queued on the client.
func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.send:
		t.Fatalf("expected no queued event, got %q", ev.Type)
	default:
	}
}
