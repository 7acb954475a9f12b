package chat

import (
	"context"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/logging"
)

// IDSource creates conversation ids on the backend
type IDSource interface {
	NewConversationID(ctx context.Context) (string, error)
}

// Provider establishes the conversation id a chat view works with
type Provider struct {
	source IDSource
	// OnCreated, when set, is told about every id the backend hands out
	OnCreated func(id string)
}

func NewProvider(source IDSource) *Provider {
	return &Provider{source: source}
}

// Resolve returns supplied, normalized, when the caller already has an id.
// Otherwise it asks the backend for a new one. There is no retry.
func (p *Provider) Resolve(ctx context.Context, supplied string) (string, error) {
	if id := backend.NormalizeID(supplied); id != "" {
		return id, nil
	}

	id, err := p.source.NewConversationID(ctx)
	if err != nil {
		logging.Error("Failed to obtain conversation id: %v", err)
		return "", err
	}
	logging.Info("New conversation id: %s", id)

	if p.OnCreated != nil {
		p.OnCreated(id)
	}
	return id, nil
}
