package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) GetAccountById(accountId string) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetConversation(conversationId string) (Conversation, error) {
	args := m.Called(conversationId)
	return args.Get(0).(Conversation), args.Error(1)
}
func (m *MockChatRepository) ListConversations(accountId string) ([]Conversation, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Conversation), args.Error(1)
}
func (m *MockChatRepository) UpdateConversationOnMessage(conversationId, messageId, senderId string, at time.Time) error {
	args := m.Called(conversationId, messageId, senderId, at)
	return args.Error(0)
}
func (m *MockChatRepository) ResetUnreadCount(conversationId, accountId string) error {
	args := m.Called(conversationId, accountId)
	return args.Error(0)
}
func (m *MockChatRepository) RemoveParticipant(conversationId, accountId string) error {
	args := m.Called(conversationId, accountId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessage(messageId string) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) ListMessages(conversationId, viewerId string, before time.Time, limit int) ([]Message, error) {
	args := m.Called(conversationId, viewerId, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) UpdateMessageContent(messageId, content string, at time.Time) (Message, error) {
	args := m.Called(messageId, content, at)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) SoftDeleteMessage(messageId, accountId string) error {
	args := m.Called(messageId, accountId)
	return args.Error(0)
}
func (m *MockChatRepository) UpsertReadReceipt(messageId, accountId string, at time.Time) error {
	args := m.Called(messageId, accountId, at)
	return args.Error(0)
}
func (m *MockChatRepository) ToggleReaction(messageId, accountId, emoji string, at time.Time) (bool, error) {
	args := m.Called(messageId, accountId, emoji, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) GetReactions(messageId string) ([]Reaction, error) {
	args := m.Called(messageId)
	return args.Get(0).([]Reaction), args.Error(1)
}
func (m *MockChatRepository) SetPinned(messageId, accountId string, pinned bool, at time.Time) error {
	args := m.Called(messageId, accountId, pinned, at)
	return args.Error(0)
}
func (m *MockChatRepository) ListDueScheduled(now time.Time, limit int) ([]Message, error) {
	args := m.Called(now, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) ListScheduled(accountId string) ([]Message, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) ClaimScheduled(messageId string, at time.Time) (bool, error) {
	args := m.Called(messageId, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) DeleteScheduled(messageId, accountId string) (bool, error) {
	args := m.Called(messageId, accountId)
	return args.Bool(0), args.Error(1)
}
