package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/chat"
	"lawchat-terminal/internal/models"
)

func TestMergeConversations(t *testing.T) {
	now := time.Now()
	talks := map[string]backend.Talk{
		"talk_b": {Ques: "remote b"},
		"talk_a": {Ques: "remote a", Record: []backend.WireMessage{
			{Role: "user", Content: "remote a", CreateAt: now.UnixMilli()},
		}},
		"talk_c": {Ques: "fresh question"},
	}
	cached := []models.Conversation{
		{ID: "talk_c", Question: "stale question", UpdatedAt: now},
		{ID: "talk_local", Question: "only here", UpdatedAt: now.Add(-time.Hour)},
	}

	entries := mergeConversations(talks, cached)
	require.Len(t, entries, 4)

	assert.Equal(t, "talk_c", entries[0].conv.ID)
	assert.Equal(t, "fresh question", entries[0].conv.Question)
	assert.True(t, entries[0].remote)
	assert.True(t, entries[0].cached)

	assert.Equal(t, "talk_local", entries[1].conv.ID)
	assert.False(t, entries[1].remote)

	assert.Equal(t, "talk_a", entries[2].conv.ID)
	assert.False(t, entries[2].cached)
	assert.Equal(t, now.UnixMilli(), entries[2].conv.UpdatedAt.UnixMilli())
	assert.Nil(t, entries[2].conv.Messages)

	assert.Equal(t, "talk_b", entries[3].conv.ID)
}

func TestMergeConversationsOffline(t *testing.T) {
	cached := []models.Conversation{{ID: "talk_001", Question: "q"}}
	entries := mergeConversations(nil, cached)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].remote)
}

func TestChatItemTitleTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "法"
	}
	item := chatItem{entry: listEntry{conv: models.Conversation{ID: "x", Question: long}}}
	assert.Equal(t, maxTitleRunes+1, len([]rune(item.Title())))

	empty := chatItem{entry: listEntry{conv: models.Conversation{ID: "talk_9"}}}
	assert.Equal(t, "talk_9", empty.Title())
}

func TestSnapshotSkipsSeedAndPending(t *testing.T) {
	conv := snapshot("talk_001", []models.Message{
		{ID: "s", Role: models.RoleSystem, Content: "欢迎"},
		{ID: "1", Role: models.RoleUser, Content: "问题"},
		{ID: "2", Role: models.RoleAssistant, Content: "答", Status: models.StatusComplete},
		{ID: "3", Role: models.RoleAssistant, Content: "半", Status: models.StatusPending},
	})

	assert.Equal(t, "talk_001", conv.ID)
	assert.Equal(t, "问题", conv.Question)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "2", conv.Messages[1].ID)
}

func TestDescribeError(t *testing.T) {
	cases := []struct {
		err   error
		title string
	}{
		{&backend.Error{Kind: backend.KindNotFound}, "Conversation not found"},
		{&backend.Error{Kind: backend.KindEmptyID}, "No conversation id"},
		{&backend.Error{Kind: backend.KindNetwork}, "Backend unreachable"},
		{chat.ErrSendInFlight, "Reply in progress"},
		{errors.New("boom"), "Error"},
	}
	for _, tc := range cases {
		title, hint := describeError(tc.err)
		assert.Equal(t, tc.title, title)
		assert.NotEmpty(t, hint)
	}
}

func TestErrorOverlayRender(t *testing.T) {
	o := NewErrorOverlayModel()
	o.UpdateSize(100, 30)
	assert.Equal(t, "background", o.RenderOverlay("background"))

	o.Show(&backend.Error{Kind: backend.KindNetwork, Op: "list talks"})
	require.True(t, o.IsVisible())
	assert.Contains(t, o.RenderOverlay("background"), "Backend unreachable")

	o.Hide()
	assert.False(t, o.IsVisible())
	assert.Nil(t, o.Err())
}
