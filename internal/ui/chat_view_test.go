package ui

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/config"
	"lawchat-terminal/internal/mockbackend"
	"lawchat-terminal/internal/models"
	"lawchat-terminal/internal/store"
)

func newTestView(t *testing.T, srv *mockbackend.Server, cache store.ConversationStore, id string) ChatViewModel {
	t.Helper()
	return newTestViewFresh(t, srv, cache, id, false)
}

func newTestViewFresh(t *testing.T, srv *mockbackend.Server, cache store.ConversationStore, id string, fresh bool) ChatViewModel {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	cfg := config.DefaultConfig()
	cfg.Chat.ResetDelayMs = 1
	client := backend.NewClient(ts.URL, 5*time.Second)
	return NewChatViewModel(cfg, client, cache, id, fresh, 100, 40)
}

// drive runs cmd and feeds every resulting message back into the view
func drive(t *testing.T, m ChatViewModel, cmd tea.Cmd) ChatViewModel {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 100, "command chain did not settle")
		next, c := m.Update(cmd())
		m = next.(ChatViewModel)
		cmd = c
	}
	return m
}

func TestChatViewLoadsHistory(t *testing.T) {
	srv := mockbackend.New()
	srv.Seed("talk_001", "你好！", "你好！有什么可以帮您？")
	m := newTestView(t, srv, nil, "talk_001")

	welcome := m.Messages()
	require.Len(t, welcome, 1)
	assert.Equal(t, models.RoleSystem, welcome[0].Role)

	m = drive(t, m, m.loadHistory())
	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "你好！", msgs[0].Content)
	assert.False(t, m.loading)
	assert.False(t, m.errOverlay.IsVisible())
}

func TestChatViewEmptyHistoryKeepsWelcome(t *testing.T) {
	srv := mockbackend.New()
	srv.Seed("talk_001", "q", "a")
	m := newTestView(t, srv, nil, "talk_001")

	m.list.ReplaceAll(nil)
	next, _ := m.Update(historyLoaded{})
	m = next.(ChatViewModel)

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "欢迎来到法律法规知识问答系统！", msgs[0].Content)
}

func TestChatViewSendStreamsReply(t *testing.T) {
	srv := mockbackend.New()
	srv.Seed("talk_001", "q", "a")
	m := newTestView(t, srv, nil, "talk_001")
	m = drive(t, m, m.loadHistory())

	m.textarea.SetValue("什么是宪法？")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ChatViewModel)
	assert.True(t, m.streaming)
	assert.Empty(t, m.textarea.Value())

	m = drive(t, m, cmd)
	assert.False(t, m.streaming)

	msgs := m.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "什么是宪法？", msgs[2].Content)
	assert.Equal(t, "Chunk 0 Chunk 1 Chunk 2 Chunk 3 Chunk 4 ", msgs[3].Content)
	assert.Equal(t, models.StatusComplete, msgs[3].Status)
}

func TestChatViewIgnoresEnterWhileLoading(t *testing.T) {
	m := newTestView(t, mockbackend.New(), nil, "talk_001")
	m.textarea.SetValue("hi")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ChatViewModel)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.list.Len())
}

func TestChatViewNotFoundOffersNewConversation(t *testing.T) {
	m := newTestView(t, mockbackend.New(), nil, "talk_404")
	m = drive(t, m, m.loadHistory())

	require.True(t, m.errOverlay.IsVisible())
	assert.ErrorIs(t, m.errOverlay.Err(), backend.ErrNotFound)
	assert.Contains(t, m.View(), "Conversation not found")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	m = next.(ChatViewModel)
	require.NotNil(t, cmd)
	assert.Equal(t, StartNewConversation{}, cmd())
	assert.False(t, m.errOverlay.IsVisible())
}

func TestChatViewFallsBackToCache(t *testing.T) {
	cache, err := store.NewMemoryStore()
	require.NoError(t, err)
	defer cache.Close()

	snap := &models.Conversation{
		ID:        "talk_001",
		Question:  "cached question",
		UpdatedAt: time.Now(),
		Messages: []models.Message{
			{ID: "1", Role: models.RoleUser, Content: "cached question"},
			{ID: "2", Role: models.RoleAssistant, Content: "cached answer", Status: models.StatusComplete},
		},
	}
	require.NoError(t, cache.SaveConversation(context.Background(), snap))

	// A closed server makes every request a network error
	ts := httptest.NewServer(mockbackend.New().Router())
	ts.Close()
	client := backend.NewClient(ts.URL, time.Second)
	m := NewChatViewModel(config.DefaultConfig(), client, cache, "talk_001", false, 100, 40)

	m = drive(t, m, m.loadHistory())
	assert.False(t, m.errOverlay.IsVisible())
	assert.Equal(t, "offline: showing cached copy", m.note)

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "cached answer", msgs[1].Content)
}

func TestChatViewResetAndClear(t *testing.T) {
	srv := mockbackend.New()
	srv.Seed("talk_001", "q", "a")
	m := newTestView(t, srv, nil, "talk_001")
	m = drive(t, m, m.loadHistory())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	m = drive(t, m, cmd)

	last := m.Messages()[1]
	assert.Equal(t, "This is a mock reset message.", last.Content)
	assert.Equal(t, models.StatusComplete, last.Status)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = next.(ChatViewModel)
	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
}

func TestChatViewSnapshotSavedAfterReply(t *testing.T) {
	cache, err := store.NewMemoryStore()
	require.NoError(t, err)
	defer cache.Close()

	srv := mockbackend.New()
	srv.Seed("talk_001", "q", "a")
	m := newTestView(t, srv, cache, "talk_001")
	m = drive(t, m, m.loadHistory())

	m.textarea.SetValue("second")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = drive(t, next.(ChatViewModel), cmd)

	conv, err := cache.GetConversation(context.Background(), "talk_001")
	require.NoError(t, err)
	assert.Equal(t, "q", conv.Question)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, "second", conv.Messages[2].Content)
}

func TestChatViewFreshConversationSkipsHistory(t *testing.T) {
	srv := mockbackend.New()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	client := backend.NewClient(ts.URL, 5*time.Second)

	id, err := client.NewConversationID(context.Background())
	require.NoError(t, err)
	_, err = client.LoadConversation(context.Background(), id)
	require.ErrorIs(t, err, backend.ErrNotFound, "a talk without records is not listed yet")

	m := NewChatViewModel(config.DefaultConfig(), client, nil, id, true, 100, 40)
	assert.False(t, m.loading)
	assert.False(t, m.errOverlay.IsVisible())
	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)

	m.textarea.SetValue("什么是宪法？")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = drive(t, next.(ChatViewModel), cmd)

	assert.False(t, m.errOverlay.IsVisible())
	msgs = m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, models.StatusComplete, msgs[2].Status)

	_, err = client.LoadConversation(context.Background(), id)
	assert.NoError(t, err, "the first answer makes the talk visible")
}

func TestChatViewRefusedSendLeavesNoQuestion(t *testing.T) {
	srv := mockbackend.New()
	srv.Seed("talk_001", "q", "a")
	m := newTestViewFresh(t, srv, nil, "", true)

	m.textarea.SetValue("问题")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ChatViewModel)
	assert.Nil(t, cmd)
	assert.True(t, m.errOverlay.IsVisible())
	assert.False(t, m.streaming)

	msgs := m.Messages()
	require.Len(t, msgs, 1, "only the welcome seed remains")
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
}

func TestChatViewLabelsShowTime(t *testing.T) {
	m := newTestViewFresh(t, mockbackend.New(), nil, "talk_001", true)
	at := time.Date(2024, 5, 14, 9, 32, 0, 0, time.Local)
	m.list.ReplaceAll([]models.Message{
		{Role: models.RoleUser, Content: "什么是宪法？", CreatedAt: at},
	})
	m.renderMessages()

	assert.Contains(t, m.viewport.View(), "09:32")
}
