package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/logging"
	"lawchat-terminal/internal/models"
	"lawchat-terminal/internal/store"
)

// TalkLister lists the conversations the backend knows
type TalkLister interface {
	ListTalks(ctx context.Context) (map[string]backend.Talk, error)
}

type ChatListModel struct {
	list    list.Model
	convs   []listEntry
	lister  TalkLister
	cache   store.ConversationStore
	timeout time.Duration
	width   int
	height  int
	loading bool
	note    string
}

type listEntry struct {
	conv   models.Conversation
	remote bool
	cached bool
}

type chatItem struct {
	entry listEntry
}

const maxTitleRunes = 48

func (i chatItem) Title() string {
	title := []rune(strings.ReplaceAll(i.entry.conv.Title(), "\n", " "))
	if len(title) > maxTitleRunes {
		return string(title[:maxTitleRunes]) + "…"
	}
	return string(title)
}

func (i chatItem) Description() string {
	source := "remote"
	switch {
	case i.entry.remote && i.entry.cached:
		source = "remote, cached"
	case i.entry.cached:
		source = "cached only"
	}
	desc := fmt.Sprintf("ID: %s | %s", i.entry.conv.ID, source)
	if !i.entry.conv.UpdatedAt.IsZero() {
		desc += " | Updated: " + i.entry.conv.UpdatedAt.Format("2006-01-02 15:04")
	}
	return desc
}

func (i chatItem) FilterValue() string { return i.entry.conv.Title() + " " + i.entry.conv.ID }

type ChatSelected struct {
	ConversationID string
}

type CreateNewChat struct{}

type DeleteChat struct {
	ConversationID string
}

type conversationsLoaded struct {
	entries   []listEntry
	remoteErr error
}

func NewChatListModel(lister TalkLister, cache store.ConversationStore, timeout time.Duration, width, height int) ChatListModel {
	l := list.New(nil, CreateThemedDelegate(), width, height-4)
	l.Title = "法律法规知识问答 · Conversations"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	ConfigureListStyles(&l)

	// Only arrows and filter from the built-in bindings
	l.KeyMap.CursorUp = key.NewBinding(key.WithKeys("up"))
	l.KeyMap.CursorDown = key.NewBinding(key.WithKeys("down"))
	l.KeyMap.NextPage = key.NewBinding()
	l.KeyMap.PrevPage = key.NewBinding()
	l.KeyMap.GoToStart = key.NewBinding()
	l.KeyMap.GoToEnd = key.NewBinding()
	l.KeyMap.Filter = key.NewBinding(key.WithKeys("/"))
	l.KeyMap.ClearFilter = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.CancelWhileFiltering = key.NewBinding(key.WithKeys("esc"))
	l.KeyMap.AcceptWhileFiltering = key.NewBinding(key.WithKeys("enter"))
	l.KeyMap.ShowFullHelp = key.NewBinding()
	l.KeyMap.CloseFullHelp = key.NewBinding()
	l.KeyMap.Quit = key.NewBinding()
	l.KeyMap.ForceQuit = key.NewBinding()

	return ChatListModel{
		list:    l,
		lister:  lister,
		cache:   cache,
		timeout: timeout,
		width:   width,
		height:  height,
		loading: true,
	}
}

func (m ChatListModel) Init() tea.Cmd {
	return m.refresh()
}

func (m ChatListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case conversationsLoaded:
		m.loading = false
		m.note = ""
		if msg.remoteErr != nil {
			m.note = "backend unreachable, showing cached conversations"
		}
		m.setEntries(msg.entries)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+x":
			return m, tea.Quit

		case "enter":
			item, ok := m.list.SelectedItem().(chatItem)
			if !ok {
				return m, nil
			}
			id := item.entry.conv.ID
			return m, func() tea.Msg { return ChatSelected{ConversationID: id} }

		case "ctrl+n":
			return m, func() tea.Msg { return CreateNewChat{} }

		case "ctrl+d":
			item, ok := m.list.SelectedItem().(chatItem)
			if !ok || !item.entry.cached {
				return m, nil
			}
			id := item.entry.conv.ID
			return m, func() tea.Msg { return DeleteChat{ConversationID: id} }

		case "r":
			m.loading = true
			return m, m.refresh()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ChatListModel) View() string {
	helpText := "↑/↓: Navigate • Enter: Open • /: Filter • Ctrl+N: New • Ctrl+D: Delete cached • r: Refresh • Ctrl+X: Exit"

	var status string
	switch {
	case m.loading:
		status = statusBarStyle.Render("Loading conversations...")
	case m.note != "":
		status = statusBarStyle.Render(statusNoteStyle.Render(m.note))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.list.View(),
		status,
		helpStyle.Render(helpText),
	)
}

// Refresh reloads the backend and cache listings
func (m ChatListModel) Refresh() tea.Cmd {
	return m.refresh()
}

func (m *ChatListModel) setEntries(entries []listEntry) {
	m.convs = entries
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = chatItem{entry: e}
	}
	m.list.SetItems(items)
}

func (m ChatListModel) refresh() tea.Cmd {
	lister, cache, timeout := m.lister, m.cache, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		talks, remoteErr := lister.ListTalks(ctx)
		if remoteErr != nil {
			logging.Warn("Failed to list backend conversations: %v", remoteErr)
		}

		var cached []models.Conversation
		if cache != nil {
			var err error
			cached, err = cache.ListConversations(ctx)
			if err != nil {
				logging.Warn("Failed to list cached conversations: %v", err)
			}
		}

		return conversationsLoaded{
			entries:   mergeConversations(talks, cached),
			remoteErr: remoteErr,
		}
	}
}

// mergeConversations joins the backend listing with the local cache. Cached
// entries keep their order (most recent first); backend-only entries follow,
// sorted by id.
func mergeConversations(talks map[string]backend.Talk, cached []models.Conversation) []listEntry {
	entries := make([]listEntry, 0, len(talks)+len(cached))
	seen := make(map[string]bool, len(cached))

	for _, conv := range cached {
		talk, remote := talks[conv.ID]
		if remote && talk.Ques != "" {
			conv.Question = talk.Ques
		}
		entries = append(entries, listEntry{conv: conv, remote: remote, cached: true})
		seen[conv.ID] = true
	}

	var remoteOnly []string
	for id := range talks {
		if !seen[id] {
			remoteOnly = append(remoteOnly, id)
		}
	}
	sort.Strings(remoteOnly)

	for _, id := range remoteOnly {
		conv := talks[id].Conversation(id)
		for _, msg := range conv.Messages {
			if msg.CreatedAt.After(conv.UpdatedAt) {
				conv.UpdatedAt = msg.CreatedAt
			}
		}
		conv.Messages = nil
		entries = append(entries, listEntry{conv: conv, remote: true})
	}

	return entries
}
