package types

import (
	"time"
)

type User struct {
	Id          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

type Conversation struct {
	Id            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	IsGroup       bool           `json:"isGroup"`
	GroupAdmin    string         `json:"groupAdmin,omitempty"`
	Participants  []string       `json:"participants"`
	LastMessageId string         `json:"lastMessageId,omitempty"`
	LastMessageAt time.Time      `json:"lastMessageAt,omitempty"`
	UnreadCounts  map[string]int `json:"unreadCounts,omitempty"`
	MutedBy       []string       `json:"mutedBy,omitempty"`
	IsArchived    bool           `json:"isArchived,omitempty"`
	ArchivedAt    *time.Time     `json:"archivedAt,omitempty"`
	ArchivedBy    string         `json:"archivedBy,omitempty"`
	CreatedAt     time.Time      `json:"createdAt,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt,omitempty"`
}

// IsParticipant reports whether the given account is a member of the
// conversation.
func (c Conversation) IsParticipant(accountId string) bool {
	for _, p := range c.Participants {
		if p == accountId {
			return true
		}
	}
	return false
}

// IsMuted reports whether the given participant suppresses notifications
// for this conversation.
func (c Conversation) IsMuted(accountId string) bool {
	for _, m := range c.MutedBy {
		if m == accountId {
			return true
		}
	}
	return false
}

type Message struct {
	Id              string        `json:"id"`
	ConversationId  string        `json:"conversationId"`
	SenderId        string        `json:"senderId"`
	Content         string        `json:"content,omitempty"`
	MediaUrls       []string      `json:"mediaUrls,omitempty"`
	ReadBy          []ReadReceipt `json:"readBy,omitempty"`
	DeletedFor      []string      `json:"-"`
	IsEdited        bool          `json:"isEdited,omitempty"`
	EditedAt        *time.Time    `json:"editedAt,omitempty"`
	EditHistory     []EditRecord  `json:"editHistory,omitempty"`
	Reactions       []Reaction    `json:"reactions,omitempty"`
	IsPinned        bool          `json:"isPinned,omitempty"`
	PinnedBy        string        `json:"pinnedBy,omitempty"`
	PinnedAt        *time.Time    `json:"pinnedAt,omitempty"`
	ForwardedFrom   *ForwardRef   `json:"forwardedFrom,omitempty"`
	IsScheduled     bool          `json:"isScheduled,omitempty"`
	ScheduledFor    *time.Time    `json:"scheduledFor,omitempty"`
	IsScheduledSent bool          `json:"isScheduledSent,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt,omitempty"`
}

// DeletedBy reports whether the given viewer has soft-deleted the message.
func (m Message) DeletedBy(accountId string) bool {
	for _, d := range m.DeletedFor {
		if d == accountId {
			return true
		}
	}
	return false
}

type ReadReceipt struct {
	UserId string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

type EditRecord struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"editedAt"`
}

type Reaction struct {
	Emoji     string    `json:"emoji"`
	UserId    string    `json:"userId"`
	ReactedAt time.Time `json:"reactedAt"`
}

// ForwardRef records where a forwarded message originated. It is set once
// when the copy is created and never mutated afterwards.
type ForwardRef struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	SenderId       string `json:"senderId"`
}
