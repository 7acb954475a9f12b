package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"lawchat-terminal/internal/models"
)

// NormalizeID strips whitespace and one pair of surrounding quotes. The
// backend returns the new id JSON-encoded, so it usually arrives quoted.
func NormalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) >= 2 {
		first, last := id[0], id[len(id)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			id = strings.TrimSpace(id[1 : len(id)-1])
		}
	}
	return id
}

// NewConversationID asks the backend for a fresh conversation id
func (c *Client) NewConversationID(ctx context.Context) (string, error) {
	const op = "new conversation"

	data, err := c.doShort(ctx, op, http.MethodPost, "/chat/new_talks", struct{}{})
	if err != nil {
		return "", err
	}

	id := NormalizeID(string(data))
	if id == "" {
		return "", &Error{Kind: KindEmptyID, Op: op}
	}
	return id, nil
}

// ListTalks fetches every conversation the backend knows, keyed by id
func (c *Client) ListTalks(ctx context.Context) (map[string]Talk, error) {
	const op = "list talks"

	data, err := c.doShort(ctx, op, http.MethodGet, "/chat/talks", nil)
	if err != nil {
		return nil, err
	}

	talks := map[string]Talk{}
	if err := json.Unmarshal(data, &talks); err != nil {
		return nil, networkError(op, 0, fmt.Errorf("failed to decode talks: %w", err))
	}
	return talks, nil
}

// LoadConversation returns the recorded messages of one conversation. An id
// missing from the mapping is ErrNotFound, which is not the same as an
// existing conversation with an empty history.
func (c *Client) LoadConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	talks, err := c.ListTalks(ctx)
	if err != nil {
		return nil, err
	}

	talk, ok := talks[conversationID]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Op: "load conversation " + conversationID}
	}
	return talk.Conversation(conversationID).Messages, nil
}

// LoadRecords reads history from the per-conversation records endpoint.
// That endpoint answers unknown ids with an empty list, so an empty result
// is reported as ErrNotFound.
func (c *Client) LoadRecords(ctx context.Context, conversationID string) ([]models.Message, error) {
	op := "load records " + conversationID

	data, err := c.doShort(ctx, op, http.MethodGet, conversationPath(conversationID, "records"), nil)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, networkError(op, 0, fmt.Errorf("failed to decode records: %w", err))
	}
	if len(records) == 0 {
		return nil, &Error{Kind: KindNotFound, Op: op}
	}

	messages := make([]models.Message, 0, len(records)*2)
	for _, r := range records {
		messages = append(messages, r.ToModels()...)
	}
	return messages, nil
}
