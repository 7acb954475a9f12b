package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/chat"
	"lawchat-terminal/internal/config"
	"lawchat-terminal/internal/logging"
	"lawchat-terminal/internal/models"
	"lawchat-terminal/internal/store"
)

const (
	titleHeight    = 4
	textareaHeight = 5
	helpHeight     = 2
	padding        = 2
)

// ChatBackend is what the chat view needs from the backend client
type ChatBackend interface {
	chat.Transport
	LoadConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	LoadRecords(ctx context.Context, conversationID string) ([]models.Message, error)
	BaseURL() string
}

type ChatViewModel struct {
	cfg            *config.Config
	conversationID string
	baseURL        string

	list     *chat.MessageList
	appender *chat.Appender
	loader   *chat.Loader
	cache    store.ConversationStore

	viewport   viewport.Model
	textarea   textarea.Model
	spinner    spinner.Model
	errOverlay ErrorOverlayModel
	mdRenderer *glamour.TermRenderer
	width      int
	height     int

	loading   bool
	streaming bool
	note      string // status bar note, e.g. offline fallback

	ctx        context.Context
	cancelFunc context.CancelFunc
}

type BackToChatList struct{}

// StartNewConversation asks the app for a fresh conversation id
type StartNewConversation struct{}

type historyLoaded struct {
	err       error
	fromCache bool
}

type streamEventMsg struct {
	event  chat.StreamEvent
	events <-chan chat.StreamEvent
}

type streamClosedMsg struct{}

type resetTickMsg struct{}

type snapshotSaved struct {
	err error
}

// createMarkdownRenderer creates a markdown renderer with fallback handling
func createMarkdownRenderer(width int) *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-14),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer with auto style: %v, trying fallback", err)

	renderer, err = glamour.NewTermRenderer(
		glamour.WithWordWrap(width - 14),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer: %v, using plain text", err)
	return nil
}

// safeRenderMarkdown renders markdown with panic recovery and plain text fallback
func (m *ChatViewModel) safeRenderMarkdown(content string) (out string) {
	out = content
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Panic in markdown rendering: %v", r)
			out = content
		}
	}()

	if m.mdRenderer == nil || content == "" {
		return content
	}

	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		logging.Error("Markdown rendering error: %v, falling back to plain text", err)
		return content
	}

	return strings.Trim(rendered, "\n")
}

// NewChatViewModel binds a view to conversationID. A fresh conversation was
// just created by the backend and has no history yet, so it keeps the welcome
// seed instead of loading.
func NewChatViewModel(cfg *config.Config, client ChatBackend, cache store.ConversationStore, conversationID string, fresh bool, width, height int) ChatViewModel {
	ta := textarea.New()
	ta.Placeholder = cfg.Chat.Placeholder
	ta.Focus()
	ta.CharLimit = 2000
	ta.SetWidth(width - 4)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Keep only essential editing keys
	ta.KeyMap.CharacterForward = key.NewBinding(key.WithKeys("right"))
	ta.KeyMap.CharacterBackward = key.NewBinding(key.WithKeys("left"))
	ta.KeyMap.LineStart = key.NewBinding(key.WithKeys("home"))
	ta.KeyMap.LineEnd = key.NewBinding(key.WithKeys("end"))
	ta.KeyMap.DeleteCharacterBackward = key.NewBinding(key.WithKeys("backspace"))
	ta.KeyMap.DeleteCharacterForward = key.NewBinding(key.WithKeys("delete"))
	ta.KeyMap.LineNext = key.NewBinding()
	ta.KeyMap.LinePrevious = key.NewBinding()
	ta.KeyMap.WordForward = key.NewBinding()
	ta.KeyMap.WordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordForward = key.NewBinding()
	ta.KeyMap.DeleteAfterCursor = key.NewBinding()
	ta.KeyMap.DeleteBeforeCursor = key.NewBinding()
	ta.KeyMap.InsertNewline = key.NewBinding()

	vp := viewport.New(width-6, height-titleHeight-textareaHeight-helpHeight-padding)
	vp.MouseWheelDelta = 2
	vp.KeyMap.Down = key.NewBinding(key.WithKeys("down"))
	vp.KeyMap.Up = key.NewBinding(key.WithKeys("up"))
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	vp.KeyMap.PageUp = key.NewBinding(key.WithKeys("pgup"))
	vp.KeyMap.HalfPageDown = key.NewBinding()
	vp.KeyMap.HalfPageUp = key.NewBinding()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	var history chat.HistorySource = client
	if cfg.Chat.HistorySource == config.HistorySourceRecords {
		history = chat.HistoryFunc(client.LoadRecords)
	}

	list := chat.NewMessageList(chat.WelcomeSeed(cfg.Chat.WelcomeMessage)...)
	ctx, cancel := context.WithCancel(context.Background())

	errOverlay := NewErrorOverlayModel()
	errOverlay.UpdateSize(width, height)

	m := ChatViewModel{
		cfg:            cfg,
		conversationID: conversationID,
		baseURL:        client.BaseURL(),
		list:           list,
		appender:       chat.NewAppender(client, list),
		loader:         chat.NewLoader(history),
		cache:          cache,
		viewport:       vp,
		textarea:       ta,
		spinner:        sp,
		errOverlay:     errOverlay,
		mdRenderer:     createMarkdownRenderer(width),
		width:          width,
		height:         height,
		loading:        !fresh,
		ctx:            ctx,
		cancelFunc:     cancel,
	}
	m.renderMessages()
	return m
}

func (m ChatViewModel) Init() tea.Cmd {
	if !m.loading {
		return tea.Batch(textarea.Blink, m.spinner.Tick)
	}
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.loadHistory(),
	)
}

// ConversationID returns the id the view is bound to
func (m ChatViewModel) ConversationID() string {
	return m.conversationID
}

// Messages returns a snapshot of what the view shows
func (m ChatViewModel) Messages() []models.Message {
	return m.list.Messages()
}

// Close stops any reply still streaming
func (m ChatViewModel) Close() {
	m.cancelFunc()
}

func (m ChatViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = msg.Height - titleHeight - textareaHeight - helpHeight - padding
		m.textarea.SetWidth(msg.Width - 4)
		m.errOverlay.UpdateSize(msg.Width, msg.Height)
		m.mdRenderer = createMarkdownRenderer(msg.Width)
		m.renderMessages()
		return m, nil

	case tea.KeyMsg:
		if m.errOverlay.IsVisible() {
			return m.updateOverlay(msg)
		}

		switch msg.String() {
		case "ctrl+x":
			m.cancelFunc()
			return m, tea.Quit

		case "esc":
			m.cancelFunc()
			return m, func() tea.Msg { return BackToChatList{} }

		case "ctrl+n":
			m.cancelFunc()
			return m, func() tea.Msg { return StartNewConversation{} }

		case "ctrl+r":
			if m.streaming || m.list.Len() == 0 {
				return m, nil
			}
			return m, tea.Tick(m.cfg.ResetDelay(), func(time.Time) tea.Msg {
				return resetTickMsg{}
			})

		case "ctrl+l":
			m.list.ReplaceAll(chat.WelcomeSeed(m.cfg.Chat.WelcomeMessage))
			m.renderMessages()
			return m, nil

		case "enter":
			return m.submit()
		}

	case historyLoaded:
		m.loading = false
		if msg.err != nil {
			if msg.fromCache {
				m.note = "offline: showing cached copy"
			} else {
				m.errOverlay.Show(msg.err)
			}
			m.renderMessages()
			return m, nil
		}
		m.note = ""
		if m.list.Len() == 0 {
			m.list.ReplaceAll(chat.WelcomeSeed(m.cfg.Chat.WelcomeMessage))
		}
		m.renderMessages()
		m.viewport.GotoBottom()
		return m, m.saveSnapshot()

	case streamEventMsg:
		m.renderMessages()
		m.viewport.GotoBottom()
		if !msg.event.Done {
			return m, waitForStreamEvent(msg.events)
		}
		m.streaming = false
		if msg.event.Err != nil && m.ctx.Err() == nil {
			m.errOverlay.Show(msg.event.Err)
		}
		return m, m.saveSnapshot()

	case streamClosedMsg:
		m.streaming = false
		m.renderMessages()
		return m, nil

	case resetTickMsg:
		if !m.streaming && m.list.ReplaceLast(chat.MockReset(m.cfg.Chat.ResetMessage)) {
			m.renderMessages()
		}
		return m, nil

	case snapshotSaved:
		if msg.err != nil {
			logging.Warn("Failed to cache conversation %s: %v", m.conversationID, msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.streaming || m.loading {
			m.renderMessages()
		}
		return m, cmd
	}

	if !m.streaming {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m ChatViewModel) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+x":
		m.cancelFunc()
		return m, tea.Quit
	case "ctrl+n":
		if errors.Is(m.errOverlay.Err(), backend.ErrNotFound) {
			m.errOverlay.Hide()
			m.cancelFunc()
			return m, func() tea.Msg { return StartNewConversation{} }
		}
	case "esc", "enter":
		m.errOverlay.Hide()
		m.textarea.Focus()
	}
	return m, nil
}

// submit sends the textarea content; ignored while loading or streaming
func (m ChatViewModel) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.textarea.Value())
	if content == "" || m.streaming || m.loading {
		return m, nil
	}

	// Stream appends the placeholder itself, so the question has to go in
	// first; a refused send takes it back out.
	question := m.list.Append(models.NewMessage(models.RoleUser, content))
	events, err := m.appender.Stream(m.ctx, m.conversationID, content)
	if err != nil {
		logging.Error("Failed to send message: %v", err)
		m.list.Remove(question.ID)
		m.errOverlay.Show(err)
		m.renderMessages()
		return m, nil
	}

	m.textarea.Reset()
	m.streaming = true
	m.renderMessages()
	m.viewport.GotoBottom()
	return m, waitForStreamEvent(events)
}

func waitForStreamEvent(events <-chan chat.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{event: ev, events: events}
	}
}

// loadHistory replaces the welcome seed with the backend history. When the
// backend is unreachable it falls back to the cached snapshot.
func (m ChatViewModel) loadHistory() tea.Cmd {
	ctx, loader, list, cache, id := m.ctx, m.loader, m.list, m.cache, m.conversationID
	return func() tea.Msg {
		_, err := loader.Load(ctx, id, list)
		if err == nil {
			return historyLoaded{}
		}
		if !errors.Is(err, backend.ErrNetwork) || cache == nil {
			return historyLoaded{err: err}
		}

		snap, cerr := cache.GetConversation(ctx, id)
		if cerr != nil {
			return historyLoaded{err: err}
		}
		logging.Info("Backend unreachable, using cached copy of %s", id)
		list.ReplaceAll(snap.Messages)
		return historyLoaded{err: err, fromCache: true}
	}
}

// saveSnapshot caches the settled messages of the conversation
func (m ChatViewModel) saveSnapshot() tea.Cmd {
	if m.cache == nil {
		return nil
	}
	conv := snapshot(m.conversationID, m.list.Messages())
	cache := m.cache
	return func() tea.Msg {
		return snapshotSaved{err: cache.SaveConversation(context.Background(), conv)}
	}
}

// snapshot drops the welcome seed and unfinished replies
func snapshot(id string, messages []models.Message) *models.Conversation {
	conv := models.NewConversation(id)
	for _, msg := range messages {
		if msg.Role == models.RoleSystem || msg.InProgress() {
			continue
		}
		if conv.Question == "" && msg.Role == models.RoleUser {
			conv.Question = msg.Content
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv
}

func (m ChatViewModel) View() string {
	var b strings.Builder

	b.WriteString(TitleWithPaddingStyle.Render("法律法规知识问答") + "\n")

	status := fmt.Sprintf("Conversation: %s | Backend: %s", m.conversationID, m.baseURL)
	switch {
	case m.loading:
		status += " | " + m.spinner.View() + " Loading history..."
	case m.streaming:
		status += " | " + m.spinner.View() + " Receiving reply..."
	}
	if m.note != "" {
		status += " | " + statusNoteStyle.Render(m.note)
	}
	b.WriteString(statusBarStyle.Render(status) + "\n\n")

	b.WriteString(RenderViewportWithBorder(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.renderScrollIndicator())
	b.WriteString("\n")

	b.WriteString(m.textarea.View() + "\n")

	helpText := "Enter: Send • Ctrl+R: Reset last • Ctrl+L: Clear • Ctrl+N: New • ↑/↓: Scroll • Esc: Back • Ctrl+X: Exit"
	b.WriteString(helpStyle.Render(helpText))

	return m.errOverlay.RenderOverlay(b.String())
}

func (m *ChatViewModel) renderMessages() {
	var b strings.Builder

	for _, msg := range m.list.Messages() {
		info := m.cfg.Role(msg.Role)
		label := RoleLabelStyle(msg.Role).Render(strings.TrimSpace(info.Avatar + " " + info.Name))
		if !msg.CreatedAt.IsZero() {
			label += " " + TimestampStyle.Render(msg.CreatedAt.Format("15:04"))
		}

		var body string
		switch {
		case msg.InProgress() && msg.Content == "":
			body = m.spinner.View() + " Thinking..."
		case msg.Role == models.RoleUser:
			body = msg.Content
		default:
			body = m.safeRenderMarkdown(msg.Content)
		}

		if msg.InProgress() && msg.Content != "" {
			body += " " + m.spinner.View()
		}
		if msg.Status == models.StatusFailed {
			body += "\n" + FailedMarkerStyle.Render("✗ reply failed")
		}

		b.WriteString(GetMessageContentStyle(msg.Role, m.width).Render(label + "\n" + body))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
}

func (m ChatViewModel) renderScrollIndicator() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	return ScrollIndicatorStyle.Render(fmt.Sprintf("Scroll: %d%% ↕", scrollPercent))
}
