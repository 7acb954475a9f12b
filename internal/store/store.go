package store

import (
	"context"
	"errors"

	"lawchat-terminal/internal/models"
)

// ErrNotFound is returned when a conversation has no cached snapshot
var ErrNotFound = errors.New("conversation not cached")

// ConversationStore keeps local snapshots of backend conversations so the
// list screen and a failed load still have something to show offline.
type ConversationStore interface {
	// SaveConversation replaces the snapshot of conv, messages included
	SaveConversation(ctx context.Context, conv *models.Conversation) error

	// GetConversation returns the snapshot with its messages in order
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	// ListConversations returns snapshot metadata, most recent first.
	// Messages are not populated.
	ListConversations(ctx context.Context) ([]models.Conversation, error)

	// DeleteConversation removes a snapshot and its messages
	DeleteConversation(ctx context.Context, id string) error

	Close() error
}
