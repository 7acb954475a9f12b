package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	tint "github.com/lrstanley/bubbletint"

	"lawchat-terminal/internal/models"
)

// Theme registry for the application
var Theme *tint.Registry

// Common style elements used across all views
var (
	TitleStyle            lipgloss.Style
	TitleWithPaddingStyle lipgloss.Style
	errorStyle            lipgloss.Style
	ErrorMessageStyle     lipgloss.Style
	statusBarStyle        lipgloss.Style
	statusNoteStyle       lipgloss.Style
	helpStyle             lipgloss.Style
	SpinnerStyle          lipgloss.Style
	ViewportBorderStyle   lipgloss.Style
	ScrollIndicatorStyle  lipgloss.Style

	// Message bubbles
	UserMessageLabelStyle      lipgloss.Style
	AssistantMessageLabelStyle lipgloss.Style
	SystemMessageLabelStyle    lipgloss.Style
	MessageContentStyle        lipgloss.Style
	FailedMarkerStyle          lipgloss.Style
	TimestampStyle             lipgloss.Style

	// Error overlay
	ErrorOverlayBorderStyle  lipgloss.Style
	ErrorOverlayTitleStyle   lipgloss.Style
	ErrorOverlayMessageStyle lipgloss.Style
	ErrorOverlayHintStyle    lipgloss.Style
)

func init() {
	tint.NewDefaultRegistry()
	tint.SetTint(tint.TintChalk)
	Theme = tint.DefaultRegistry

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(tint.Purple())

	TitleWithPaddingStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(tint.Purple()).
		Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
		Foreground(tint.Red()).
		Bold(true).
		Padding(1)

	ErrorMessageStyle = lipgloss.NewStyle().
		Foreground(tint.Red())

	statusBarStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 1)

	statusNoteStyle = lipgloss.NewStyle().
		Foreground(tint.Yellow())

	helpStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(1, 0, 0, 1)

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(tint.Purple())

	ViewportBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.White()).
		Padding(0, 1)

	ScrollIndicatorStyle = lipgloss.NewStyle().
		Foreground(tint.White())

	UserMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(true)

	AssistantMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true)

	SystemMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		Bold(true)

	MessageContentStyle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 1).
		MarginBottom(1)

	FailedMarkerStyle = lipgloss.NewStyle().
		Foreground(tint.Red()).
		Italic(true)

	TimestampStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	ErrorOverlayBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.Red()).
		Padding(1, 2)

	ErrorOverlayTitleStyle = lipgloss.NewStyle().
		Foreground(tint.Red()).
		Bold(true)

	ErrorOverlayMessageStyle = lipgloss.NewStyle().
		Foreground(tint.Fg())

	ErrorOverlayHintStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())
}

// ConfigureListStyles configures all list styles to match the application theme
func ConfigureListStyles(l *list.Model) {
	l.Styles.Title = TitleStyle
	l.Styles.TitleBar = lipgloss.NewStyle().
		Padding(0, 0, 1, 0)

	l.Styles.PaginationStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	l.Styles.HelpStyle = helpStyle

	l.Styles.FilterPrompt = lipgloss.NewStyle().
		Foreground(tint.Yellow())
	l.Styles.FilterCursor = lipgloss.NewStyle().
		Foreground(tint.Purple())

	l.Styles.StatusBar = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 1, 0)

	l.Styles.DividerDot = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		SetString(" • ")
}

// CreateThemedDelegate creates a themed list delegate with application colors
func CreateThemedDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.Styles.SelectedTitle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.SelectedDesc = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.NormalTitle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 0, 0, 2)

	d.Styles.NormalDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedTitle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	return d
}

// RenderError renders an error message
func RenderError(msg string) string {
	return ErrorMessageStyle.Render("  ✗ " + msg)
}

// RenderViewportWithBorder renders content with a viewport border style
func RenderViewportWithBorder(content string) string {
	return ViewportBorderStyle.Render(content)
}

// RoleLabelStyle picks the label colour of a role
func RoleLabelStyle(role models.Role) lipgloss.Style {
	switch role {
	case models.RoleUser:
		return UserMessageLabelStyle
	case models.RoleSystem:
		return SystemMessageLabelStyle
	default:
		return AssistantMessageLabelStyle
	}
}

// GetMessageContentStyle returns the bubble style for role; user messages sit on the right
func GetMessageContentStyle(role models.Role, width int) lipgloss.Style {
	style := MessageContentStyle.Width(width - 10)
	if role == models.RoleUser {
		return style.Align(lipgloss.Right)
	}
	return style
}
