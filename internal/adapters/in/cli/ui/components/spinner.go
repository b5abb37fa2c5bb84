package components

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/shipit/internal/adapters/in/cli/ui/styles"
)

// Activity draws a spinner next to a label until the work behind it ends.
type Activity struct {
	spinner spinner.Model
	label   string
	done    bool
}

type activityDoneMsg struct{}

// NewActivity creates an Activity showing label.
func NewActivity(label string) Activity {
	return Activity{
		label: label,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.ColorPrimary)),
		),
	}
}

func (m Activity) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Activity) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View is empty once the work is done so the line is cleared.
func (m Activity) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// Spin runs fn while the spinner is drawn on w and returns fn's error.
// Input and signals are left to the caller; cancelling ctx stops the
// spinner but Spin still waits for fn.
func Spin(ctx context.Context, w io.Writer, label string, fn func() error) error {
	p := tea.NewProgram(NewActivity(label),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(w),
		tea.WithoutSignalHandler(),
	)

	done := make(chan error, 1)
	go func() {
		done <- fn()
		p.Send(activityDoneMsg{})
	}()

	// a spinner that cannot draw is not a reason to fail the work
	_, _ = p.Run()
	return <-done
}
