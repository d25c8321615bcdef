package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/abdulhamid529589/kanz-chat/internal/types"
)

// Client -> server event types.
const (
	EventUserOnline        = "user_online"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventMessageRead       = "message_read"
	EventEditMessage       = "edit_message"
	EventDeleteMessage     = "delete_message"
	EventAddReaction       = "add_reaction"
	EventPinMessage        = "pin_message"
	EventForwardMessage    = "forward_message"
	EventScheduleMessage   = "schedule_message"
	EventCancelScheduled   = "cancel_scheduled"
)

// Server -> client event types.
const (
	EventReceiveMessage     = "receive_message"
	EventMessageSent        = "message_sent"
	EventUserTyping         = "user_typing"
	EventMessageReadUpdate  = "message_read_update"
	EventMessageEdited      = "message_edited"
	EventMessageDeleted     = "message_deleted"
	EventReactionUpdated    = "reaction_updated"
	EventMessagePinned      = "message_pinned"
	EventMessageForwarded   = "message_forwarded"
	EventUserStatus         = "user_status"
	EventMessageError       = "message_error"
	EventMessageScheduled   = "message_scheduled"
	EventScheduledCancelled = "scheduled_cancelled"
)

// Event is the envelope for every message crossing a connection, in both
// directions. The payload shape is determined by Type.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: Now(),
	}, nil
}

type UserOnlinePayload struct {
	UserId string `json:"userId"`
}

type ConversationPayload struct {
	ConversationId string `json:"conversationId"`
}

type SendMessagePayload struct {
	ConversationId string   `json:"conversationId"`
	Content        string   `json:"content"`
	MediaUrls      []string `json:"mediaUrls,omitempty"`
	SenderId       string   `json:"senderId"`
}

type TypingPayload struct {
	ConversationId string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
	UserName       string `json:"userName"`
}

type MessageReadPayload struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	UserId         string `json:"userId"`
}

type EditMessagePayload struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	Content        string `json:"content"`
	UserId         string `json:"userId"`
}

type DeleteMessagePayload struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	UserId         string `json:"userId"`
}

type AddReactionPayload struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	Emoji          string `json:"emoji"`
	UserId         string `json:"userId"`
}

type PinMessagePayload struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	UserId         string `json:"userId"`
	IsPinned       bool   `json:"isPinned"`
}

type ForwardMessagePayload struct {
	MessageId            string `json:"messageId"`
	TargetConversationId string `json:"targetConversationId"`
	SenderId             string `json:"senderId"`
	Content              string `json:"content,omitempty"`
}

type ScheduleMessagePayload struct {
	ConversationId string     `json:"conversationId"`
	Content        string     `json:"content"`
	MediaUrls      []string   `json:"mediaUrls,omitempty"`
	SenderId       string     `json:"senderId"`
	ScheduledFor   *time.Time `json:"scheduledFor"`
}

type CancelScheduledPayload struct {
	MessageId string `json:"messageId"`
}

type UserStatusPayload struct {
	UserId string `json:"userId"`
	Status string `json:"status"`
}

type UserTypingPayload struct {
	ConversationId string `json:"conversationId"`
	UserId         string `json:"userId"`
	UserName       string `json:"userName"`
	IsTyping       bool   `json:"isTyping"`
}

type MessageReadUpdatePayload struct {
	MessageId      string    `json:"messageId"`
	ConversationId string    `json:"conversationId"`
	UserId         string    `json:"userId"`
	ReadAt         time.Time `json:"readAt"`
}

type MessageEditedPayload struct {
	MessageId      string    `json:"messageId"`
	ConversationId string    `json:"conversationId"`
	Content        string    `json:"content"`
	EditedAt       time.Time `json:"editedAt"`
}

type MessageDeletedPayload struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	UserId         string `json:"userId"`
}

type ReactionUpdatedPayload struct {
	MessageId      string           `json:"messageId"`
	ConversationId string           `json:"conversationId"`
	Reactions      []types.Reaction `json:"reactions"`
}

type MessagePinnedPayload struct {
	MessageId      string     `json:"messageId"`
	ConversationId string     `json:"conversationId"`
	IsPinned       bool       `json:"isPinned"`
	PinnedBy       string     `json:"pinnedBy,omitempty"`
	PinnedAt       *time.Time `json:"pinnedAt,omitempty"`
}

type ScheduledCancelledPayload struct {
	MessageId string `json:"messageId"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errorEvent(code int, message string) *Event {
	ev, _ := NewEvent(EventMessageError, ErrorPayload{Code: code, Message: message})
	return ev
}

func ErrInvalidEvent() *Event {
	return errorEvent(http.StatusBadRequest, "invalid event format")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
