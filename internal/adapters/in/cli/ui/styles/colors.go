// Package styles holds the lipgloss palette and composed styles of the
// shipit terminal output.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Green500  = lipgloss.Color("#00cc6a")
	Cyan500   = lipgloss.Color("#00a0cc")
	Violet400 = lipgloss.Color("#a78bfa")

	Neutral200 = lipgloss.Color("#e5e5e5")
	Neutral500 = lipgloss.Color("#737373")
	Neutral700 = lipgloss.Color("#404040")
	Neutral800 = lipgloss.Color("#262626")

	NeonGreen  = lipgloss.Color("#00ff88")
	NeonCyan   = lipgloss.Color("#00ccff")
	NeonRed    = lipgloss.Color("#ff4444")
	NeonYellow = lipgloss.Color("#fbbf24")
)

// Semantic colors.
var (
	ColorPrimary = NeonGreen
	ColorAccent  = Violet400
	ColorSuccess = NeonGreen
	ColorWarning = NeonYellow
	ColorError   = NeonRed
	ColorInfo    = NeonCyan

	ColorText      = Neutral200
	ColorTextMuted = Neutral500
	ColorBg        = lipgloss.Color("#000000")
	ColorBgMuted   = Neutral800
	ColorBorder    = Neutral700
)
