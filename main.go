package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/chat"
	"lawchat-terminal/internal/config"
	"lawchat-terminal/internal/logging"
	"lawchat-terminal/internal/models"
	"lawchat-terminal/internal/store"
	"lawchat-terminal/internal/ui"
)

type appState int

const (
	stateChatList appState = iota
	stateConnecting
	stateChatView
)

type model struct {
	state    appState
	cfg      *config.Config
	client   *backend.Client
	cache    store.ConversationStore
	provider *chat.Provider

	chatListModel ui.ChatListModel
	chatViewModel ui.ChatViewModel
	spinner       spinner.Model

	width  int
	height int

	err error
}

type conversationReady struct {
	id string
}

type conversationFailed struct {
	err error
}

func main() {
	configPath := flag.String("config", "", "config file (default ~/.lawchat-terminal/config.yaml)")
	backendURL := flag.String("backend", "", "backend base URL, overrides the config")
	conversationID := flag.String("id", "", "open this conversation directly")
	newConversation := flag.Bool("new", false, "start a new conversation")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *backendURL != "" {
		cfg.Backend.BaseURL = *backendURL
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid -backend: %v", err)
		}
	}

	logDir, err := cfg.LogDir()
	if err != nil {
		log.Fatalf("Failed to resolve log directory: %v", err)
	}
	if err := logging.InitLogger(logDir, cfg.Log.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.RequestTimeout())
	logging.Info("Using backend %s", client.BaseURL())

	m := model{
		state:  stateChatList,
		cfg:    cfg,
		client: client,
		width:  80,
		height: 24,
	}

	if cfg.Cache.Enabled {
		if cache, err := openCache(cfg); err != nil {
			// The cache is optional; run without it
			logging.Error("Conversation cache disabled: %v", err)
		} else {
			m.cache = cache
			defer cache.Close()
		}
	}

	m.provider = chat.NewProvider(client)
	m.provider.OnCreated = m.rememberConversation

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = ui.SpinnerStyle

	switch {
	case *conversationID != "":
		id := backend.NormalizeID(*conversationID)
		m.state = stateChatView
		m.chatViewModel = ui.NewChatViewModel(cfg, client, m.cache, id, false, m.width, m.height)
	case *newConversation:
		m.state = stateConnecting
	default:
		m.chatListModel = ui.NewChatListModel(client, m.cache, cfg.RequestTimeout(), m.width, m.height)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

func openCache(cfg *config.Config) (*store.BadgerStore, error) {
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return store.NewBadgerStore(dir)
}

// rememberConversation caches a freshly created id so it shows up in the
// list even before the first reply
func (m model) rememberConversation(id string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.SaveConversation(context.Background(), models.NewConversation(id)); err != nil {
		logging.Warn("Failed to cache new conversation %s: %v", id, err)
	}
}

func (m model) requestConversation() tea.Cmd {
	provider, timeout := m.provider, m.cfg.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		id, err := provider.Resolve(ctx, "")
		if err != nil {
			return conversationFailed{err: err}
		}
		return conversationReady{id: id}
	}
}

func (m model) Init() tea.Cmd {
	switch m.state {
	case stateChatList:
		return m.chatListModel.Init()
	case stateConnecting:
		return tea.Batch(m.spinner.Tick, m.requestConversation())
	case stateChatView:
		return m.chatViewModel.Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		switch m.state {
		case stateChatList:
			newModel, cmd := m.chatListModel.Update(msg)
			m.chatListModel = newModel.(ui.ChatListModel)
			return m, cmd
		case stateChatView:
			newModel, cmd := m.chatViewModel.Update(msg)
			m.chatViewModel = newModel.(ui.ChatViewModel)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.state == stateChatView {
				m.chatViewModel.Close()
			}
			return m, tea.Quit
		}
		if m.state == stateConnecting {
			switch msg.String() {
			case "esc":
				return m.showList()
			case "enter":
				if m.err != nil {
					m.err = nil
					return m, tea.Batch(m.spinner.Tick, m.requestConversation())
				}
			case "ctrl+x":
				return m, tea.Quit
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.state == stateConnecting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case ui.CreateNewChat, ui.StartNewConversation:
		if m.state == stateChatView {
			m.chatViewModel.Close()
		}
		m.state = stateConnecting
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.requestConversation())

	case conversationReady:
		return m.openConversation(msg.id, true)

	case conversationFailed:
		m.err = msg.err
		return m, nil

	case ui.ChatSelected:
		return m.openConversation(msg.ConversationID, false)

	case ui.DeleteChat:
		if m.cache != nil {
			if err := m.cache.DeleteConversation(context.Background(), msg.ConversationID); err != nil {
				logging.Error("Failed to delete cached conversation %s: %v", msg.ConversationID, err)
			}
		}
		return m, m.chatListModel.Refresh()

	case ui.BackToChatList:
		return m.showList()
	}

	switch m.state {
	case stateChatList:
		newModel, cmd := m.chatListModel.Update(msg)
		m.chatListModel = newModel.(ui.ChatListModel)
		return m, cmd

	case stateChatView:
		newModel, cmd := m.chatViewModel.Update(msg)
		m.chatViewModel = newModel.(ui.ChatViewModel)
		return m, cmd
	}

	return m, nil
}

// openConversation shows id in the chat view; fresh ids skip the history load
func (m model) openConversation(id string, fresh bool) (tea.Model, tea.Cmd) {
	m.err = nil
	m.state = stateChatView
	m.chatViewModel = ui.NewChatViewModel(m.cfg, m.client, m.cache, id, fresh, m.width, m.height)
	return m, m.chatViewModel.Init()
}

func (m model) showList() (tea.Model, tea.Cmd) {
	m.err = nil
	m.state = stateChatList
	m.chatListModel = ui.NewChatListModel(m.client, m.cache, m.cfg.RequestTimeout(), m.width, m.height)
	return m, m.chatListModel.Init()
}

func (m model) View() string {
	switch m.state {
	case stateChatList:
		return m.chatListModel.View()
	case stateConnecting:
		if m.err != nil {
			return ui.RenderError(fmt.Sprintf("Could not start a conversation: %v", m.err)) +
				"\n\n  Enter: Retry • Esc: Conversation list • Ctrl+C: Quit"
		}
		return fmt.Sprintf("\n  %s Requesting a new conversation from %s...", m.spinner.View(), m.client.BaseURL())
	case stateChatView:
		return m.chatViewModel.View()
	}

	return "Loading..."
}
