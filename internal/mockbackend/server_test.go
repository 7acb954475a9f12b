package mockbackend_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/chat"
	"lawchat-terminal/internal/mockbackend"
	"lawchat-terminal/internal/models"
)

func newBackend(t *testing.T, opts ...mockbackend.Option) (*mockbackend.Server, *backend.Client) {
	t.Helper()
	srv := mockbackend.New(opts...)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, backend.NewClient(ts.URL, 5*time.Second)
}

func TestNewTalkIsQuoted(t *testing.T) {
	srv := mockbackend.New()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat/new_talks", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := strings.TrimSpace(string(raw))
	assert.True(t, strings.HasPrefix(body, `"talk_`), "got %s", body)
	assert.True(t, strings.HasSuffix(body, `"`))
}

func TestClientCreatesConversation(t *testing.T) {
	srv, client := newBackend(t)

	id, err := client.NewConversationID(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "talk_"))
	assert.Equal(t, []string{id}, srv.TalkIDs())

	talks, err := client.ListTalks(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, talks, id, "a talk without messages is not listed")

	_, err = client.LoadConversation(context.Background(), id)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestStreamInChunks(t *testing.T) {
	_, client := newBackend(t)

	body, err := client.OpenStream(context.Background(), "talk_001", "你好")
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Chunk 0 Chunk 1 Chunk 2 Chunk 3 Chunk 4 ", string(raw))
}

func TestSendRecordsHistory(t *testing.T) {
	responder := func(content string) []string {
		return []string{"关于「", content, "」的回答"}
	}
	_, client := newBackend(t, mockbackend.WithResponder(responder))
	ctx := context.Background()

	id, err := client.NewConversationID(ctx)
	require.NoError(t, err)

	list := chat.NewMessageList()
	list.Append(models.NewMessage(models.RoleUser, "宪法"))
	require.NoError(t, chat.NewAppender(client, list).SendMessage(ctx, id, "宪法"))

	last, _ := list.Last()
	assert.Equal(t, "关于「宪法」的回答", last.Content)
	assert.Equal(t, models.StatusComplete, last.Status)

	history, err := client.LoadConversation(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "宪法", history[0].Content)
	assert.Equal(t, models.RoleAssistant, history[1].Role)
	assert.Equal(t, "关于「宪法」的回答", history[1].Content)
	assert.False(t, history[1].CreatedAt.IsZero())

	records, err := client.LoadRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "宪法", records[0].Content)
}

func TestLoaderAgainstBackend(t *testing.T) {
	srv, client := newBackend(t)
	srv.Seed("talk_001", "你好！", "你好！有什么可以帮您？")

	list := chat.NewMessageList()
	msgs, err := chat.NewLoader(client).Load(context.Background(), "talk_001", list)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "你好！有什么可以帮您？", msgs[1].Content)

	_, err = chat.NewLoader(client).Load(context.Background(), "talk_404", list)
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.Equal(t, 2, list.Len())

	_, err = chat.NewLoader(chat.HistoryFunc(client.LoadRecords)).Load(context.Background(), "talk_404", list)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestSendQueryParamFallback(t *testing.T) {
	srv := mockbackend.New()
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat/talk_001?content=hi", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/chat/talk_001", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp2.StatusCode)
}

func TestStreamStopsWhenClientCancels(t *testing.T) {
	_, client := newBackend(t, mockbackend.WithChunkDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	list := chat.NewMessageList()
	a := chat.NewAppender(client, list)

	events, err := a.Stream(ctx, "talk_001", "hi")
	require.NoError(t, err)

	first := <-events
	require.False(t, first.Done)
	assert.Equal(t, "Chunk 0 ", first.Chunk)

	cancel()
	for range events {
	}

	last, _ := list.Last()
	assert.Equal(t, "Chunk 0 ", last.Content)
	assert.Equal(t, models.StatusFailed, last.Status)
	assert.False(t, a.Busy())
}
