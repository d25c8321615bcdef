package server

import (
	"log"

	"github.com/abdulhamid529589/kanz-chat/internal/types"
)

// Notifier is the outbound hook for participants with no live connection.
// Production deployments wire email or push delivery behind it; the chat
// core only decides who is unreachable.
type Notifier interface {
	MessageNotification(accountId string, conv types.Conversation, msg types.Message)
}

type LogNotifier struct {
	log *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) MessageNotification(accountId string, conv types.Conversation, msg types.Message) {
	n.log.Printf("offline notification for %q: message %s in conversation %s", accountId, msg.Id, conv.Id)
}
