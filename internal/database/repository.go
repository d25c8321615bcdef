package database

import "time"

type ChatRepository interface {
	Ping() error
	GetAccountById(accountId string) (User, error)
	GetConversation(conversationId string) (Conversation, error)
	ListConversations(accountId string) ([]Conversation, error)
	// UpdateConversationOnMessage moves the conversation's last-message
	// pointer and bumps the unread counter of every participant except the
	// sender. The last-message timestamp never moves backwards.
	UpdateConversationOnMessage(conversationId, messageId, senderId string, at time.Time) error
	ResetUnreadCount(conversationId, accountId string) error
	// RemoveParticipant drops a participant. If the departing participant
	// was the group admin, admin rights transfer to the longest-standing
	// remaining participant; if no participant remains, the conversation
	// is deleted.
	RemoveParticipant(conversationId, accountId string) error
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessage(messageId string) (Message, error)
	ListMessages(conversationId, viewerId string, before time.Time, limit int) ([]Message, error)
	// UpdateMessageContent replaces the content and appends the previous
	// content to the message's edit history in a single transaction.
	UpdateMessageContent(messageId, content string, at time.Time) (Message, error)
	SoftDeleteMessage(messageId, accountId string) error
	UpsertReadReceipt(messageId, accountId string, at time.Time) error
	// ToggleReaction atomically removes the (emoji, account) tuple if it
	// exists or inserts it if it does not. Exactly one of the two happens.
	ToggleReaction(messageId, accountId, emoji string, at time.Time) (added bool, err error)
	GetReactions(messageId string) ([]Reaction, error)
	SetPinned(messageId, accountId string, pinned bool, at time.Time) error
	ListDueScheduled(now time.Time, limit int) ([]Message, error)
	ListScheduled(accountId string) ([]Message, error)
	// ClaimScheduled flips is_scheduled_sent to true only if it is still
	// false. It reports whether this caller won the claim.
	ClaimScheduled(messageId string, at time.Time) (bool, error)
	// DeleteScheduled hard-deletes a still-pending scheduled message owned
	// by the given account. It reports whether a row was removed.
	DeleteScheduled(messageId, accountId string) (bool, error)
}
