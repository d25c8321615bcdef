package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/abdulhamid529589/kanz-chat/internal/database"
	"github.com/abdulhamid529589/kanz-chat/internal/stats"
	"github.com/abdulhamid529589/kanz-chat/internal/types"
)

// ChatServer owns the process-local real-time state: the set of live
// connections, the presence registry and the room table. Connection
// registration flows through the hub goroutine; everything else is
// mutex-atomic map state.
type ChatServer struct {
	log            *log.Logger
	db             database.ChatRepository
	engine         *Engine
	presence       *presenceRegistry
	rooms          *roomTable
	notifier       Notifier
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, su stats.StatsProvider, notifier Notifier) (*ChatServer, error) {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	for _, metric := range []string{"NumActiveClients", "NumOnlineUsers", "NumActiveRooms", "NumMessagesSent"} {
		su.RegisterMetric(metric)
	}

	return &ChatServer{
		log:            logger,
		db:             db,
		engine:         NewEngine(logger, db),
		presence:       newPresenceRegistry(),
		rooms:          newRoomTable(logger, su),
		notifier:       notifier,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection from %q", client.user.Username)
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Username)
			cs.removeClient(client)
		case <-cs.stop:
			cs.log.Println("stopping clients")
			cs.clientsLock.Lock()
			for c := range cs.clients {
				c.stopClient()
			}
			cs.clientsLock.Unlock()

			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c] = struct{}{}
	cs.clientsLock.Unlock()
	cs.stats.Incr("NumActiveClients")

	if cs.presence.register(c.user.Id, c) {
		cs.stats.Incr("NumOnlineUsers")
		cs.broadcastStatus(c.user.Id, "online")
	}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	_, ok := cs.clients[c]
	delete(cs.clients, c)
	cs.clientsLock.Unlock()
	if !ok {
		return
	}

	cs.stats.Decr("NumActiveClients")
	cs.rooms.leaveAll(c)

	if userId, wentOffline := cs.presence.unregister(c); wentOffline {
		cs.stats.Decr("NumOnlineUsers")
		cs.broadcastStatus(userId, "offline")
	}
}

// broadcastStatus announces a presence transition to every connection.
func (cs *ChatServer) broadcastStatus(userId, status string) {
	ev, err := NewEvent(EventUserStatus, UserStatusPayload{UserId: userId, Status: status})
	if err != nil {
		cs.log.Println("marshal user_status:", err)
		return
	}

	cs.broadcastAll(ev, nil)
}

func (cs *ChatServer) broadcastAll(ev *Event, skip *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	for c := range cs.clients {
		if c == skip {
			continue
		}
		c.queueEvent(ev)
	}
}

func (cs *ChatServer) IsOnline(userId string) bool {
	return cs.presence.isOnline(userId)
}

// deliverMessage fans a committed message out to the conversation's room
// and hands offline, unmuted participants to the notification hook.
func (cs *ChatServer) deliverMessage(conv types.Conversation, msg types.Message, skip *Client) {
	ev, err := NewEvent(EventReceiveMessage, msg)
	if err != nil {
		cs.log.Println("marshal receive_message:", err)
		return
	}

	cs.rooms.broadcast(conv.Id, ev, skip)
	cs.stats.Incr("NumMessagesSent")

	for _, participant := range conv.Participants {
		if participant == msg.SenderId {
			continue
		}
		if cs.presence.isOnline(participant) || conv.IsMuted(participant) {
			continue
		}
		cs.notifier.MessageNotification(participant, conv, msg)
	}
}

func (cs *ChatServer) handleUserOnline(c *Client, ev *Event) {
	var p UserOnlinePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}

	// the identity gate already registered this connection; the explicit
	// announce only re-broadcasts current status
	cs.broadcastStatus(c.user.Id, "online")
}

func (cs *ChatServer) handleJoinConversation(c *Client, ev *Event) {
	var p ConversationPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ConversationId == "" {
		c.queueEvent(ErrInvalidEvent())
		return
	}

	cs.rooms.join(p.ConversationId, c)
}

func (cs *ChatServer) handleLeaveConversation(c *Client, ev *Event) {
	var p ConversationPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ConversationId == "" {
		c.queueEvent(ErrInvalidEvent())
		return
	}

	cs.rooms.leave(p.ConversationId, c)
}

func (cs *ChatServer) handleSendMessage(c *Client, ev *Event) {
	var p SendMessagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}
	p.SenderId = c.user.Id

	msg, conv, err := cs.engine.Send(p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.queueAck(c, EventMessageSent, msg)
	cs.deliverMessage(conv, msg, c)
}

func (cs *ChatServer) handleTyping(c *Client, ev *Event) {
	var p TypingPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ConversationId == "" {
		c.queueEvent(ErrInvalidEvent())
		return
	}

	out, err := NewEvent(EventUserTyping, UserTypingPayload{
		ConversationId: p.ConversationId,
		UserId:         c.user.Id,
		UserName:       p.UserName,
		IsTyping:       p.IsTyping,
	})
	if err != nil {
		cs.log.Println("marshal user_typing:", err)
		return
	}

	cs.rooms.broadcast(p.ConversationId, out, c)
}

func (cs *ChatServer) handleMessageRead(c *Client, ev *Event) {
	var p MessageReadPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}
	p.UserId = c.user.Id

	payload, err := cs.engine.MarkRead(p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.broadcastPayload(payload.ConversationId, EventMessageReadUpdate, payload, nil)
}

func (cs *ChatServer) handleEditMessage(c *Client, ev *Event) {
	var p EditMessagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}

	payload, err := cs.engine.Edit(c.user.Id, p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.broadcastPayload(payload.ConversationId, EventMessageEdited, payload, nil)
}

func (cs *ChatServer) handleDeleteMessage(c *Client, ev *Event) {
	var p DeleteMessagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}

	payload, err := cs.engine.Delete(c.user.Id, p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.broadcastPayload(payload.ConversationId, EventMessageDeleted, payload, nil)
}

func (cs *ChatServer) handleAddReaction(c *Client, ev *Event) {
	var p AddReactionPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}
	p.UserId = c.user.Id

	payload, err := cs.engine.ToggleReaction(p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.broadcastPayload(payload.ConversationId, EventReactionUpdated, payload, nil)
}

func (cs *ChatServer) handlePinMessage(c *Client, ev *Event) {
	var p PinMessagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}
	p.UserId = c.user.Id

	payload, err := cs.engine.Pin(p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.broadcastPayload(payload.ConversationId, EventMessagePinned, payload, nil)
}

func (cs *ChatServer) handleForwardMessage(c *Client, ev *Event) {
	var p ForwardMessagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}
	p.SenderId = c.user.Id

	msg, conv, err := cs.engine.Forward(p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.queueAck(c, EventMessageForwarded, msg)
	cs.deliverMessage(conv, msg, c)
}

func (cs *ChatServer) handleScheduleMessage(c *Client, ev *Event) {
	var p ScheduleMessagePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}
	p.SenderId = c.user.Id

	msg, err := cs.engine.Schedule(p)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	// no room broadcast until the dispatcher claims it
	cs.queueAck(c, EventMessageScheduled, msg)
}

func (cs *ChatServer) handleCancelScheduled(c *Client, ev *Event) {
	var p CancelScheduledPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		c.queueEvent(ErrInvalidEvent())
		return
	}

	payload, err := cs.engine.CancelScheduled(c.user.Id, p.MessageId)
	if err != nil {
		c.queueEvent(engineError(err))
		return
	}

	cs.queueAck(c, EventScheduledCancelled, payload)
}

func (cs *ChatServer) queueAck(c *Client, eventType string, payload any) {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		cs.log.Printf("marshal %s: %v", eventType, err)
		return
	}

	c.queueEvent(ev)
}

func (cs *ChatServer) broadcastPayload(conversationId, eventType string, payload any, skip *Client) {
	ev, err := NewEvent(eventType, payload)
	if err != nil {
		cs.log.Printf("marshal %s: %v", eventType, err)
		return
	}

	cs.rooms.broadcast(conversationId, ev, skip)
}

// engineError maps a mutation failure onto the message_error event sent
// to the requesting connection only. Broadcasts never carry failures.
func engineError(err error) *Event {
	switch {
	case errors.Is(err, ErrValidation):
		return errorEvent(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrConversationNotFound):
		return errorEvent(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotSender), errors.Is(err, ErrNotParticipant):
		return errorEvent(http.StatusForbidden, err.Error())
	default:
		return errorEvent(http.StatusInternalServerError, "internal server error")
	}
}
