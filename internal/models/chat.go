package models

import (
	"time"
)

// Conversation is a named sequence of messages. The backend holds the
// authoritative copy; the client only ever fetches it whole.
type Conversation struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:        id,
		UpdatedAt: time.Now(),
	}
}

// Title returns the text shown for the conversation in lists
func (c Conversation) Title() string {
	if c.Question != "" {
		return c.Question
	}
	for _, m := range c.Messages {
		if m.Role == RoleUser && m.Content != "" {
			return m.Content
		}
	}
	return c.ID
}

// RoleInfo is the display metadata for a role
type RoleInfo struct {
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
}

// DefaultRoles returns the built-in display names and avatar glyphs
func DefaultRoles() map[Role]RoleInfo {
	return map[Role]RoleInfo{
		RoleUser:      {Name: "User", Avatar: "●"},
		RoleAssistant: {Name: "Assistant", Avatar: "◆"},
		RoleSystem:    {Name: "System", Avatar: "◇"},
	}
}
