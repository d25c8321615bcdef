package database

import "time"

type User struct {
	Id          string
	Username    string
	DisplayName string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Conversation struct {
	Id            string
	Name          string
	IsGroup       bool
	GroupAdmin    string
	Participants  []Participant
	LastMessageId string
	LastMessageAt time.Time
	IsArchived    bool
	ArchivedAt    *time.Time
	ArchivedBy    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Participant struct {
	ConversationId string
	AccountId      string
	UnreadCount    int
	Muted          bool
	CreatedAt      time.Time
}

type Message struct {
	Id              string
	ConversationId  string
	SenderId        string
	Content         string
	MediaUrls       []string
	ReadBy          []ReadReceipt
	DeletedFor      []string
	IsEdited        bool
	EditedAt        *time.Time
	EditHistory     []EditRecord
	Reactions       []Reaction
	IsPinned        bool
	PinnedBy        string
	PinnedAt        *time.Time
	ForwardedFromId string
	ForwardedConvId string
	ForwardedSender string
	IsScheduled     bool
	ScheduledFor    *time.Time
	IsScheduledSent bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ReadReceipt struct {
	AccountId string
	ReadAt    time.Time
}

type EditRecord struct {
	Content  string
	EditedAt time.Time
}

type Reaction struct {
	Emoji     string
	AccountId string
	CreatedAt time.Time
}

type CreateMessageParams struct {
	Id              string
	ConversationId  string
	SenderId        string
	Content         string
	MediaUrls       []string
	ForwardedFromId string
	ForwardedConvId string
	ForwardedSender string
	IsScheduled     bool
	ScheduledFor    *time.Time
	CreatedAt       time.Time
}
