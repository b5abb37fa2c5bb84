package styles

// Status icons. Plain unicode so they render without a patched font.
const (
	IconSuccess = "✔"
	IconError   = "✘"
	IconWarning = "!"
	IconInfo    = "i"
	IconSkipped = "–"
	IconBullet  = "▸"
	IconBox     = "☐"
)
