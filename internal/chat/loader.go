package chat

import (
	"context"

	"lawchat-terminal/internal/logging"
	"lawchat-terminal/internal/models"
)

// HistorySource fetches the recorded messages of a conversation
type HistorySource interface {
	LoadConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}

// HistoryFunc adapts a function to HistorySource
type HistoryFunc func(ctx context.Context, conversationID string) ([]models.Message, error)

func (f HistoryFunc) LoadConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	return f(ctx, conversationID)
}

// Loader seeds a MessageList from the backend history
type Loader struct {
	source HistorySource
}

func NewLoader(source HistorySource) *Loader {
	return &Loader{source: source}
}

// Load fetches the history of conversationID and replaces the content of
// list with it. On error the list is left untouched and the error, including
// backend.ErrNotFound for an unknown id, goes back to the caller.
func (l *Loader) Load(ctx context.Context, conversationID string, list *MessageList) ([]models.Message, error) {
	messages, err := l.source.LoadConversation(ctx, conversationID)
	if err != nil {
		logging.Error("Failed to load conversation %s: %v", conversationID, err)
		return nil, err
	}

	list.ReplaceAll(messages)
	logging.Info("Loaded %d messages for conversation %s", len(messages), conversationID)
	return list.Messages(), nil
}

// WelcomeSeed is the static first message of a fresh conversation
func WelcomeSeed(welcome string) []models.Message {
	if welcome == "" {
		return nil
	}
	return []models.Message{models.NewMessage(models.RoleSystem, welcome)}
}
