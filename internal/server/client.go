package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/abdulhamid529589/kanz-chat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is one live websocket connection for an authenticated user. A
// user may hold any number of clients at once; each carries its own
// connection id.
type Client struct {
	id         uuid.UUID
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	send       chan *Event
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:         uuid.New(),
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *Event, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeEvent(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Println("error parsing event:", err)
			c.queueEvent(ErrInvalidEvent())
			continue
		}

		c.dispatch(&ev)
	}
}

// dispatch runs the handler for one inbound event to completion before
// the next event on this connection is read.
func (c *Client) dispatch(ev *Event) {
	switch ev.Type {
	case EventUserOnline:
		c.chatServer.handleUserOnline(c, ev)
	case EventJoinConversation:
		c.chatServer.handleJoinConversation(c, ev)
	case EventLeaveConversation:
		c.chatServer.handleLeaveConversation(c, ev)
	case EventSendMessage:
		c.chatServer.handleSendMessage(c, ev)
	case EventTyping:
		c.chatServer.handleTyping(c, ev)
	case EventMessageRead:
		c.chatServer.handleMessageRead(c, ev)
	case EventEditMessage:
		c.chatServer.handleEditMessage(c, ev)
	case EventDeleteMessage:
		c.chatServer.handleDeleteMessage(c, ev)
	case EventAddReaction:
		c.chatServer.handleAddReaction(c, ev)
	case EventPinMessage:
		c.chatServer.handlePinMessage(c, ev)
	case EventForwardMessage:
		c.chatServer.handleForwardMessage(c, ev)
	case EventScheduleMessage:
		c.chatServer.handleScheduleMessage(c, ev)
	case EventCancelScheduled:
		c.chatServer.handleCancelScheduled(c, ev)
	default:
		c.log.Printf("unknown event type %q from %q", ev.Type, c.user.Username)
		c.queueEvent(ErrInvalidEvent())
	}
}

func (c *Client) queueEvent(ev *Event) bool {
	select {
	case c.send <- ev:
	default:
		c.log.Println("failed to queue event, channel is full")
		return false
	}

	return true
}

func serializeEvent(ev *Event) ([]byte, error) {
	return json.Marshal(ev)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.chatServer.deRegisterChan <- c
	c.stopClient()
}
