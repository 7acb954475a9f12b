package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawchat-terminal/internal/models"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func conversation(id, question string, updated time.Time, contents ...string) *models.Conversation {
	conv := &models.Conversation{ID: id, Question: question, UpdatedAt: updated}
	for i, c := range contents {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		conv.Messages = append(conv.Messages, models.Message{
			ID:      id + "-" + string(rune('a'+i)),
			Role:    role,
			Content: c,
			Status:  models.StatusComplete,
		})
	}
	return conv
}

func TestSaveAndGetConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	contents := make([]string, 12)
	for i := range contents {
		contents[i] = string(rune('一' + i))
	}
	want := conversation("talk_001", "什么是宪法？", time.Now(), contents...)
	require.NoError(t, s.SaveConversation(ctx, want))

	got, err := s.GetConversation(ctx, "talk_001")
	require.NoError(t, err)
	assert.Equal(t, "什么是宪法？", got.Question)
	require.Len(t, got.Messages, len(contents))
	for i, msg := range got.Messages {
		assert.Equal(t, contents[i], msg.Content)
	}
}

func TestSaveConversationReplacesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveConversation(ctx, conversation("talk_001", "q", time.Now(), "a", "b", "c")))
	require.NoError(t, s.SaveConversation(ctx, conversation("talk_001", "q", time.Now(), "x")))

	got, err := s.GetConversation(ctx, "talk_001")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "x", got.Messages[0].Content)
}

func TestSaveConversationRequiresID(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.SaveConversation(context.Background(), &models.Conversation{}))
	assert.Error(t, s.SaveConversation(context.Background(), nil))
}

func TestGetConversationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.SaveConversation(ctx, conversation("old", "", base.Add(-time.Hour), "a")))
	require.NoError(t, s.SaveConversation(ctx, conversation("new", "", base, "b")))
	require.NoError(t, s.SaveConversation(ctx, conversation("mid", "", base.Add(-time.Minute), "c")))

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, "new", convs[0].ID)
	assert.Equal(t, "mid", convs[1].ID)
	assert.Equal(t, "old", convs[2].ID)
	assert.Nil(t, convs[0].Messages)
}

func TestDeleteConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveConversation(ctx, conversation("talk_001", "", time.Now(), "a", "b")))
	require.NoError(t, s.SaveConversation(ctx, conversation("talk_0010", "", time.Now(), "c")))
	require.NoError(t, s.DeleteConversation(ctx, "talk_001"))

	_, err := s.GetConversation(ctx, "talk_001")
	assert.ErrorIs(t, err, ErrNotFound)

	other, err := s.GetConversation(ctx, "talk_0010")
	require.NoError(t, err)
	assert.Len(t, other.Messages, 1, "deleting one id must not touch ids sharing its prefix")

	assert.NoError(t, s.DeleteConversation(ctx, "never-saved"))
}
