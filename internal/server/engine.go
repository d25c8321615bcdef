package server

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/teris-io/shortid"

	"github.com/abdulhamid529589/kanz-chat/internal/database"
	"github.com/abdulhamid529589/kanz-chat/internal/types"
)

var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotSender            = errors.New("only the sender can perform this action")
	ErrNotParticipant       = errors.New("not a participant of the conversation")
	ErrValidation           = errors.New("missing required fields")
)

// Engine validates and applies message mutations against the store. Every
// operation re-validates against current stored state, never against
// client-supplied prior state, and returns the payload the caller
// broadcasts to the owning conversation's room. The engine holds no
// socket state, which keeps it testable without a live connection.
type Engine struct {
	db  database.ChatRepository
	log *log.Logger
}

func NewEngine(logger *log.Logger, db database.ChatRepository) *Engine {
	return &Engine{db: db, log: logger}
}

// Send creates an immediately visible message and moves the
// conversation's last-message pointer.
func (e *Engine) Send(p SendMessagePayload) (types.Message, types.Conversation, error) {
	if p.ConversationId == "" || p.SenderId == "" || (p.Content == "" && len(p.MediaUrls) == 0) {
		return types.Message{}, types.Conversation{}, ErrValidation
	}

	conv, err := e.getConversation(p.ConversationId)
	if err != nil {
		return types.Message{}, types.Conversation{}, err
	}

	if !conv.IsParticipant(p.SenderId) {
		return types.Message{}, types.Conversation{}, ErrNotParticipant
	}

	id, err := shortid.Generate()
	if err != nil {
		return types.Message{}, types.Conversation{}, fmt.Errorf("generate message id: %w", err)
	}

	msg, err := e.db.CreateMessage(database.CreateMessageParams{
		Id:             id,
		ConversationId: p.ConversationId,
		SenderId:       p.SenderId,
		Content:        p.Content,
		MediaUrls:      p.MediaUrls,
		CreatedAt:      Now(),
	})
	if err != nil {
		return types.Message{}, types.Conversation{}, fmt.Errorf("create message: %w", err)
	}

	if err := e.db.UpdateConversationOnMessage(conv.Id, msg.Id, msg.SenderId, msg.CreatedAt); err != nil {
		return types.Message{}, types.Conversation{}, fmt.Errorf("update conversation: %w", err)
	}

	return ToMessage(msg), conv, nil
}

// Edit replaces the content of the sender's own message, appending the
// previous content to the edit history.
func (e *Engine) Edit(userId string, p EditMessagePayload) (MessageEditedPayload, error) {
	if p.MessageId == "" || p.Content == "" {
		return MessageEditedPayload{}, ErrValidation
	}

	msg, err := e.getMessage(p.MessageId)
	if err != nil {
		return MessageEditedPayload{}, err
	}

	if msg.SenderId != userId {
		return MessageEditedPayload{}, ErrNotSender
	}

	updated, err := e.db.UpdateMessageContent(msg.Id, p.Content, Now())
	if err != nil {
		return MessageEditedPayload{}, fmt.Errorf("update content: %w", err)
	}

	return MessageEditedPayload{
		MessageId:      updated.Id,
		ConversationId: updated.ConversationId,
		Content:        updated.Content,
		EditedAt:       *updated.EditedAt,
	}, nil
}

// Delete hides the message from the requesting sender's own view. The
// message stays visible to every other participant. Idempotent.
func (e *Engine) Delete(userId string, p DeleteMessagePayload) (MessageDeletedPayload, error) {
	if p.MessageId == "" {
		return MessageDeletedPayload{}, ErrValidation
	}

	msg, err := e.getMessage(p.MessageId)
	if err != nil {
		return MessageDeletedPayload{}, err
	}

	if msg.SenderId != userId {
		return MessageDeletedPayload{}, ErrNotSender
	}

	payload := MessageDeletedPayload{
		MessageId:      msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         userId,
	}

	if ToMessage(msg).DeletedBy(userId) {
		return payload, nil
	}

	if err := e.db.SoftDeleteMessage(msg.Id, userId); err != nil {
		return MessageDeletedPayload{}, fmt.Errorf("soft delete: %w", err)
	}

	return payload, nil
}

// MarkRead upserts the reader's receipt and clears their unread counter.
func (e *Engine) MarkRead(p MessageReadPayload) (MessageReadUpdatePayload, error) {
	if p.MessageId == "" || p.UserId == "" {
		return MessageReadUpdatePayload{}, ErrValidation
	}

	msg, err := e.getMessage(p.MessageId)
	if err != nil {
		return MessageReadUpdatePayload{}, err
	}

	if err := e.requireParticipant(msg.ConversationId, p.UserId); err != nil {
		return MessageReadUpdatePayload{}, err
	}

	readAt := Now()
	if err := e.db.UpsertReadReceipt(msg.Id, p.UserId, readAt); err != nil {
		return MessageReadUpdatePayload{}, fmt.Errorf("upsert read receipt: %w", err)
	}

	if err := e.db.ResetUnreadCount(msg.ConversationId, p.UserId); err != nil {
		e.log.Println("reset unread count:", err)
	}

	return MessageReadUpdatePayload{
		MessageId:      msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         p.UserId,
		ReadAt:         readAt,
	}, nil
}

// ToggleReaction adds the (emoji, user) tuple if absent, removes it if
// present. The toggle is a single conditional store operation, so two
// racing toggles never leave a duplicate or lose an update.
func (e *Engine) ToggleReaction(p AddReactionPayload) (ReactionUpdatedPayload, error) {
	if p.MessageId == "" || p.Emoji == "" || p.UserId == "" {
		return ReactionUpdatedPayload{}, ErrValidation
	}

	msg, err := e.getMessage(p.MessageId)
	if err != nil {
		return ReactionUpdatedPayload{}, err
	}

	if err := e.requireParticipant(msg.ConversationId, p.UserId); err != nil {
		return ReactionUpdatedPayload{}, err
	}

	if _, err := e.db.ToggleReaction(msg.Id, p.UserId, p.Emoji, Now()); err != nil {
		return ReactionUpdatedPayload{}, fmt.Errorf("toggle reaction: %w", err)
	}

	reactions, err := e.db.GetReactions(msg.Id)
	if err != nil {
		return ReactionUpdatedPayload{}, fmt.Errorf("get reactions: %w", err)
	}

	return ReactionUpdatedPayload{
		MessageId:      msg.Id,
		ConversationId: msg.ConversationId,
		Reactions:      toReactions(reactions),
	}, nil
}

// Pin sets or clears the message's pin state.
func (e *Engine) Pin(p PinMessagePayload) (MessagePinnedPayload, error) {
	if p.MessageId == "" || p.UserId == "" {
		return MessagePinnedPayload{}, ErrValidation
	}

	msg, err := e.getMessage(p.MessageId)
	if err != nil {
		return MessagePinnedPayload{}, err
	}

	if err := e.requireParticipant(msg.ConversationId, p.UserId); err != nil {
		return MessagePinnedPayload{}, err
	}

	pinnedAt := Now()
	if err := e.db.SetPinned(msg.Id, p.UserId, p.IsPinned, pinnedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MessagePinnedPayload{}, ErrMessageNotFound
		}
		return MessagePinnedPayload{}, fmt.Errorf("set pinned: %w", err)
	}

	payload := MessagePinnedPayload{
		MessageId:      msg.Id,
		ConversationId: msg.ConversationId,
		IsPinned:       p.IsPinned,
	}
	if p.IsPinned {
		payload.PinnedBy = p.UserId
		payload.PinnedAt = &pinnedAt
	}

	return payload, nil
}

// Forward copies the original message into the target conversation with
// forwarding lineage pointing at where it first originated. The original
// message is not mutated.
func (e *Engine) Forward(p ForwardMessagePayload) (types.Message, types.Conversation, error) {
	if p.MessageId == "" || p.TargetConversationId == "" || p.SenderId == "" {
		return types.Message{}, types.Conversation{}, ErrValidation
	}

	orig, err := e.getMessage(p.MessageId)
	if err != nil {
		return types.Message{}, types.Conversation{}, err
	}

	conv, err := e.getConversation(p.TargetConversationId)
	if err != nil {
		return types.Message{}, types.Conversation{}, err
	}

	if !conv.IsParticipant(p.SenderId) {
		return types.Message{}, types.Conversation{}, ErrNotParticipant
	}

	content := p.Content
	if content == "" {
		content = orig.Content
	}

	// lineage always points at the root of a forwarding chain
	fromId, fromConv, fromSender := orig.Id, orig.ConversationId, orig.SenderId
	if orig.ForwardedFromId != "" {
		fromId, fromConv, fromSender = orig.ForwardedFromId, orig.ForwardedConvId, orig.ForwardedSender
	}

	id, err := shortid.Generate()
	if err != nil {
		return types.Message{}, types.Conversation{}, fmt.Errorf("generate message id: %w", err)
	}

	msg, err := e.db.CreateMessage(database.CreateMessageParams{
		Id:              id,
		ConversationId:  conv.Id,
		SenderId:        p.SenderId,
		Content:         content,
		MediaUrls:       orig.MediaUrls,
		ForwardedFromId: fromId,
		ForwardedConvId: fromConv,
		ForwardedSender: fromSender,
		CreatedAt:       Now(),
	})
	if err != nil {
		return types.Message{}, types.Conversation{}, fmt.Errorf("create forwarded message: %w", err)
	}

	if err := e.db.UpdateConversationOnMessage(conv.Id, msg.Id, msg.SenderId, msg.CreatedAt); err != nil {
		return types.Message{}, types.Conversation{}, fmt.Errorf("update conversation: %w", err)
	}

	return ToMessage(msg), conv, nil
}

// Schedule creates a pending scheduled message. It stays invisible to the
// room until the dispatcher claims and delivers it.
func (e *Engine) Schedule(p ScheduleMessagePayload) (types.Message, error) {
	if p.ConversationId == "" || p.SenderId == "" || p.ScheduledFor == nil ||
		(p.Content == "" && len(p.MediaUrls) == 0) {
		return types.Message{}, ErrValidation
	}

	conv, err := e.getConversation(p.ConversationId)
	if err != nil {
		return types.Message{}, err
	}

	if !conv.IsParticipant(p.SenderId) {
		return types.Message{}, ErrNotParticipant
	}

	id, err := shortid.Generate()
	if err != nil {
		return types.Message{}, fmt.Errorf("generate message id: %w", err)
	}

	msg, err := e.db.CreateMessage(database.CreateMessageParams{
		Id:             id,
		ConversationId: p.ConversationId,
		SenderId:       p.SenderId,
		Content:        p.Content,
		MediaUrls:      p.MediaUrls,
		IsScheduled:    true,
		ScheduledFor:   p.ScheduledFor,
		CreatedAt:      Now(),
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("create scheduled message: %w", err)
	}

	return ToMessage(msg), nil
}

// CancelScheduled hard-deletes a still-pending scheduled message. Only
// the creator may cancel; a message already claimed by the dispatcher is
// reported as not found.
func (e *Engine) CancelScheduled(userId, messageId string) (ScheduledCancelledPayload, error) {
	if messageId == "" {
		return ScheduledCancelledPayload{}, ErrValidation
	}

	removed, err := e.db.DeleteScheduled(messageId, userId)
	if err != nil {
		return ScheduledCancelledPayload{}, fmt.Errorf("delete scheduled: %w", err)
	}

	if !removed {
		return ScheduledCancelledPayload{}, ErrMessageNotFound
	}

	return ScheduledCancelledPayload{MessageId: messageId}, nil
}

func (e *Engine) requireParticipant(conversationId, userId string) error {
	conv, err := e.getConversation(conversationId)
	if err != nil {
		return err
	}
	if !conv.IsParticipant(userId) {
		return ErrNotParticipant
	}
	return nil
}

func (e *Engine) getMessage(messageId string) (database.Message, error) {
	msg, err := e.db.GetMessage(messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Message{}, ErrMessageNotFound
		}
		return database.Message{}, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (e *Engine) getConversation(conversationId string) (types.Conversation, error) {
	conv, err := e.db.GetConversation(conversationId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Conversation{}, ErrConversationNotFound
		}
		return types.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return ToConversation(conv), nil
}

func ToMessage(m database.Message) types.Message {
	msg := types.Message{
		Id:              m.Id,
		ConversationId:  m.ConversationId,
		SenderId:        m.SenderId,
		Content:         m.Content,
		MediaUrls:       m.MediaUrls,
		DeletedFor:      m.DeletedFor,
		IsEdited:        m.IsEdited,
		EditedAt:        m.EditedAt,
		Reactions:       toReactions(m.Reactions),
		IsPinned:        m.IsPinned,
		PinnedBy:        m.PinnedBy,
		PinnedAt:        m.PinnedAt,
		IsScheduled:     m.IsScheduled,
		ScheduledFor:    m.ScheduledFor,
		IsScheduledSent: m.IsScheduledSent,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	for _, r := range m.ReadBy {
		msg.ReadBy = append(msg.ReadBy, types.ReadReceipt{UserId: r.AccountId, ReadAt: r.ReadAt})
	}
	for _, rec := range m.EditHistory {
		msg.EditHistory = append(msg.EditHistory, types.EditRecord{Content: rec.Content, EditedAt: rec.EditedAt})
	}
	if m.ForwardedFromId != "" {
		msg.ForwardedFrom = &types.ForwardRef{
			MessageId:      m.ForwardedFromId,
			ConversationId: m.ForwardedConvId,
			SenderId:       m.ForwardedSender,
		}
	}

	return msg
}

func toReactions(reactions []database.Reaction) []types.Reaction {
	out := make([]types.Reaction, 0, len(reactions))
	for _, r := range reactions {
		out = append(out, types.Reaction{Emoji: r.Emoji, UserId: r.AccountId, ReactedAt: r.CreatedAt})
	}
	return out
}

func ToConversation(c database.Conversation) types.Conversation {
	conv := types.Conversation{
		Id:            c.Id,
		Name:          c.Name,
		IsGroup:       c.IsGroup,
		GroupAdmin:    c.GroupAdmin,
		LastMessageId: c.LastMessageId,
		LastMessageAt: c.LastMessageAt,
		UnreadCounts:  make(map[string]int, len(c.Participants)),
		IsArchived:    c.IsArchived,
		ArchivedAt:    c.ArchivedAt,
		ArchivedBy:    c.ArchivedBy,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}

	for _, p := range c.Participants {
		conv.Participants = append(conv.Participants, p.AccountId)
		conv.UnreadCounts[p.AccountId] = p.UnreadCount
		if p.Muted {
			conv.MutedBy = append(conv.MutedBy, p.AccountId)
		}
	}

	return conv
}
