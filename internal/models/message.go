package models

import (
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles the chat view can render
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Status tracks the lifecycle of a streamed message. Messages loaded from
// history never stay pending.
type Status string

const (
	StatusNone     Status = ""
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// InProgress reports whether the message is still receiving stream chunks
func (m Message) InProgress() bool {
	return m.Status == StatusPending
}

// Settled returns m with a pending status resolved. Only a live stream may
// own a pending message, so loaded ones become complete, or failed when
// nothing was received.
func (m Message) Settled() Message {
	if m.Status != StatusPending {
		return m
	}
	if m.Content == "" {
		m.Status = StatusFailed
	} else {
		m.Status = StatusComplete
	}
	return m
}
