package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/shipit/internal/domain"
)

// Theme contains the composed styles.
var Theme = struct {
	Title   lipgloss.Style
	Heading lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	BadgeSuccess lipgloss.Style
	BadgeError   lipgloss.Style
	BadgeWarning lipgloss.Style
	BadgeInfo    lipgloss.Style

	Box      lipgloss.Style
	BoxError lipgloss.Style

	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
	Heading: lipgloss.NewStyle().Bold(true).Foreground(ColorText),
	Muted:   lipgloss.NewStyle().Foreground(ColorTextMuted),
	Bold:    lipgloss.NewStyle().Bold(true).Foreground(ColorText),

	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Info:    lipgloss.NewStyle().Foreground(ColorInfo),

	BadgeSuccess: lipgloss.NewStyle().Foreground(ColorBg).Background(ColorSuccess).Padding(0, 1),
	BadgeError:   lipgloss.NewStyle().Foreground(ColorBg).Background(ColorError).Padding(0, 1),
	BadgeWarning: lipgloss.NewStyle().Foreground(ColorBg).Background(ColorWarning).Padding(0, 1),
	BadgeInfo:    lipgloss.NewStyle().Foreground(ColorBg).Background(ColorInfo).Padding(0, 1),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 2),
	BoxError: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 2),

	HelpKey:  lipgloss.NewStyle().Foreground(ColorPrimary),
	HelpDesc: lipgloss.NewStyle().Foreground(ColorTextMuted),
}

// RenderGateStatus returns the icon and label of a gate outcome.
func RenderGateStatus(s domain.GateStatus) string {
	switch s {
	case domain.GatePass:
		return Theme.Success.Render(IconSuccess + " pass")
	case domain.GateFail:
		return Theme.Error.Render(IconError + " fail")
	default:
		return Theme.Warning.Render(IconSkipped + " skipped")
	}
}

// RenderBadge returns a badge for a record state: green for the happy
// terminal states, red for failures, yellow for everything else.
func RenderBadge(state string, failed, done bool) string {
	switch {
	case failed:
		return Theme.BadgeError.Render(state)
	case done:
		return Theme.BadgeSuccess.Render(state)
	default:
		return Theme.BadgeWarning.Render(state)
	}
}

// RenderKeyHelp returns formatted key binding help text.
func RenderKeyHelp(key, desc string) string {
	return Theme.HelpKey.Render(key) + " " + Theme.HelpDesc.Render(desc)
}

// RenderError returns a styled error message.
func RenderError(msg string) string {
	return Theme.Error.Render(IconError + " " + msg)
}

// RenderSuccess returns a styled success message.
func RenderSuccess(msg string) string {
	return Theme.Success.Render(IconSuccess + " " + msg)
}

// RenderWarning returns a styled warning message.
func RenderWarning(msg string) string {
	return Theme.Warning.Render(IconWarning + " " + msg)
}

// RenderInfo returns a styled info message.
func RenderInfo(msg string) string {
	return Theme.Info.Render(IconInfo + " " + msg)
}

// RenderChecklistItem renders an unchecked action item.
func RenderChecklistItem(item string) string {
	return Theme.Warning.Render(IconBox) + " " + item
}
