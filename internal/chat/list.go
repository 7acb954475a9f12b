package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lawchat-terminal/internal/models"
)

// MessageList is the ordered message sequence behind one chat view. It owns
// its id counter; the random prefix keeps ids from two lists in the same
// process apart. The stream goroutine appends while the UI renders, so every
// method takes the lock.
type MessageList struct {
	mu       sync.Mutex
	messages []models.Message
	prefix   string
	next     uint64
}

func NewMessageList(seed ...models.Message) *MessageList {
	l := &MessageList{
		prefix: uuid.NewString()[:8],
	}
	l.ReplaceAll(seed)
	return l
}

// NewID returns an id no other message of this list has had
func (l *MessageList) NewID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newIDLocked()
}

func (l *MessageList) newIDLocked() string {
	id := fmt.Sprintf("%s-%d", l.prefix, l.next)
	l.next++
	return id
}

// Messages returns a snapshot copy safe to render while streaming continues
func (l *MessageList) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *MessageList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Get returns the message with id
func (l *MessageList) Get(id string) (models.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexLocked(id); i >= 0 {
		return l.messages[i], true
	}
	return models.Message{}, false
}

// Last returns the final message, if any
func (l *MessageList) Last() (models.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.messages) == 0 {
		return models.Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Append adds msg, assigning an id and timestamp when missing, and returns
// the stored message
func (l *MessageList) Append(msg models.Message) models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ID == "" || l.indexLocked(msg.ID) >= 0 {
		msg.ID = l.newIDLocked()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	l.messages = append(l.messages, msg)
	return msg
}

// AppendContent grows the content of the message with id. It returns false
// when the message is gone, e.g. after the view was cleared mid-stream.
func (l *MessageList) AppendContent(id, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return false
	}
	l.messages[i].Content += text
	return true
}

// SetStatus updates the status of the message with id
func (l *MessageList) SetStatus(id string, status models.Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return false
	}
	l.messages[i].Status = status
	return true
}

// Remove drops the message with id and reports whether it was there
func (l *MessageList) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return false
	}
	l.messages = append(l.messages[:i:i], l.messages[i+1:]...)
	return true
}

// ReplaceAll swaps in a whole new sequence. Messages without an id, or with
// an id already used earlier in the sequence, get a fresh one.
func (l *MessageList) ReplaceAll(messages []models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(messages))
	out := make([]models.Message, len(messages))
	for i, msg := range messages {
		if msg.ID == "" || seen[msg.ID] {
			msg.ID = l.newIDLocked()
		}
		seen[msg.ID] = true
		out[i] = msg.Settled()
	}
	l.messages = out
}

// ReplaceLast replaces the final message with transform(last). It reports
// false on an empty list.
func (l *MessageList) ReplaceLast(transform func(models.Message) models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.messages)
	if n == 0 {
		return false
	}
	replaced := transform(l.messages[n-1])
	replaced.ID = l.messages[n-1].ID
	l.messages[n-1] = replaced
	return true
}

// InProgress returns the message currently being streamed into, if any
func (l *MessageList) InProgress() (models.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].InProgress() {
			return l.messages[i], true
		}
	}
	return models.Message{}, false
}

func (l *MessageList) indexLocked(id string) int {
	// Appends target the tail, so search backwards
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// MockReset returns the transform used by the reset affordance: the message
// becomes a complete reply with the given content.
func MockReset(content string) func(models.Message) models.Message {
	return func(m models.Message) models.Message {
		m.Content = content
		m.Status = models.StatusComplete
		return m
	}
}
