package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"lawchat-terminal/internal/models"
)

// WireID accepts both JSON strings and numbers; older records store numeric ids
type WireID string

func (id *WireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = WireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = WireID(n.String())
	return nil
}

// WireMessage is a message as the backend serializes it
type WireMessage struct {
	Role     string `json:"role"`
	ID       WireID `json:"id,omitempty"`
	CreateAt int64  `json:"createAt,omitempty"` // unix millis
	Content  string `json:"content"`
	Status   string `json:"status,omitempty"`
}

// Talk is one entry of the GET /chat/talks mapping
type Talk struct {
	Ques   string        `json:"ques"`
	Record []WireMessage `json:"record"`
}

// Record is one question/answer row of GET /chat/{id}/records
type Record struct {
	ID        WireID `json:"id"`
	TalkID    string `json:"talk_id"`
	SessionID string `json:"session_id"`
	Ques      string `json:"ques"`
	Ans       string `json:"ans"`
}

type sendRequest struct {
	Content string `json:"content"`
}

// ToModel converts a wire message; unknown roles fall back to assistant and
// a pending status is settled
func (w WireMessage) ToModel() models.Message {
	role := models.Role(w.Role)
	if !role.Valid() {
		role = models.RoleAssistant
	}
	var createdAt time.Time
	if w.CreateAt > 0 {
		createdAt = time.UnixMilli(w.CreateAt)
	}
	return models.Message{
		ID:        string(w.ID),
		Role:      role,
		Content:   w.Content,
		Status:    models.Status(w.Status),
		CreatedAt: createdAt,
	}.Settled()
}

// FromModel converts a message into its wire form
func FromModel(m models.Message) WireMessage {
	var createAt int64
	if !m.CreatedAt.IsZero() {
		createAt = m.CreatedAt.UnixMilli()
	}
	return WireMessage{
		Role:     string(m.Role),
		ID:       WireID(m.ID),
		CreateAt: createAt,
		Content:  m.Content,
		Status:   string(m.Status),
	}
}

// ToModels expands a record into the user question and assistant answer
func (r Record) ToModels() []models.Message {
	base := string(r.ID)
	if base == "" {
		base = r.SessionID
	}
	out := make([]models.Message, 0, 2)
	if r.Ques != "" {
		out = append(out, models.Message{ID: recordID(base, "q"), Role: models.RoleUser, Content: r.Ques})
	}
	if r.Ans != "" {
		out = append(out, models.Message{ID: recordID(base, "a"), Role: models.RoleAssistant, Content: r.Ans})
	}
	return out
}

func recordID(base, suffix string) string {
	if base == "" {
		return ""
	}
	return base + "-" + suffix
}

// NewTalk builds a talk entry from a conversation, the inverse of Talk.Conversation
func NewTalk(c models.Conversation) Talk {
	record := make([]WireMessage, len(c.Messages))
	for i, m := range c.Messages {
		record[i] = FromModel(m)
	}
	return Talk{Ques: c.Question, Record: record}
}

// Conversation converts a talk keyed by id into a model conversation
func (t Talk) Conversation(id string) models.Conversation {
	msgs := make([]models.Message, len(t.Record))
	for i, w := range t.Record {
		msgs[i] = w.ToModel()
	}
	return models.Conversation{
		ID:       id,
		Question: t.Ques,
		Messages: msgs,
	}
}
