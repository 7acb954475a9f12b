package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/chat"
)

// errorPanel is the foreground drawn over the chat view
type errorPanel struct {
	title   string
	message string
	hint    string
	width   int
}

func (p errorPanel) Init() tea.Cmd {
	return nil
}

func (p errorPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return p, nil
}

func (p errorPanel) View() string {
	width := p.width / 2
	if width < 40 {
		width = 40
	}

	var content strings.Builder
	content.WriteString(ErrorOverlayTitleStyle.Render("✗ " + p.title))
	content.WriteString("\n\n")
	content.WriteString(ErrorOverlayMessageStyle.Width(width - 8).Render(p.message))
	if p.hint != "" {
		content.WriteString("\n\n")
		content.WriteString(ErrorOverlayHintStyle.Render(p.hint))
	}

	return ErrorOverlayBorderStyle.Width(width - 4).Render(content.String())
}

// ErrorOverlayModel shows backend failures on top of the current screen
type ErrorOverlayModel struct {
	panel   errorPanel
	err     error
	visible bool
}

func NewErrorOverlayModel() ErrorOverlayModel {
	return ErrorOverlayModel{}
}

// Show displays err with a title and hint picked from its kind
func (m *ErrorOverlayModel) Show(err error) {
	title, hint := describeError(err)
	m.panel.title = title
	m.panel.message = err.Error()
	m.panel.hint = hint
	m.err = err
	m.visible = true
}

func (m *ErrorOverlayModel) Hide() {
	m.visible = false
	m.err = nil
}

func (m *ErrorOverlayModel) IsVisible() bool {
	return m.visible
}

// Err returns the error on display, or nil
func (m *ErrorOverlayModel) Err() error {
	return m.err
}

func (m *ErrorOverlayModel) UpdateSize(width, height int) {
	m.panel.width = width
}

func (m ErrorOverlayModel) RenderOverlay(backgroundView string) string {
	if !m.visible {
		return backgroundView
	}

	overlayModel := overlay.New(
		m.panel,
		&staticViewModel{content: backgroundView},
		overlay.Center,
		overlay.Center,
		0,
		0,
	)

	return overlayModel.View()
}

func describeError(err error) (title, hint string) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return "Conversation not found", "Ctrl+N: Start a new conversation • Esc: Dismiss"
	case errors.Is(err, backend.ErrEmptyID):
		return "No conversation id", "The backend returned an empty id • Esc: Dismiss"
	case errors.Is(err, chat.ErrSendInFlight):
		return "Reply in progress", "Wait for the current reply to finish • Esc: Dismiss"
	case errors.Is(err, backend.ErrNetwork):
		return "Backend unreachable", "Check backend.base_url in the config • Esc: Dismiss"
	default:
		return "Error", "Esc: Dismiss"
	}
}

// staticViewModel renders fixed content as the overlay background
type staticViewModel struct {
	content string
}

func (m staticViewModel) Init() tea.Cmd {
	return nil
}

func (m staticViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m staticViewModel) View() string {
	return m.content
}
