package components

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/shipit/internal/adapters/in/cli/ui/styles"
)

// Answer is the outcome of a Prompt.
type Answer int

const (
	Undecided Answer = iota
	AnswerYes
	AnswerNo
	AnswerCancelled
)

var (
	choiceStyle   = lipgloss.NewStyle().Padding(0, 2).Foreground(styles.ColorText)
	selectedStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).
			Foreground(styles.ColorBg).Background(styles.ColorPrimary)
)

// Prompt asks before an irreversible step such as publishing or withdrawing
// a version. The selection starts on "No".
type Prompt struct {
	question string
	detail   string
	onYes    bool
	answer   Answer
}

// NewPrompt creates a prompt. detail may be empty.
func NewPrompt(question, detail string) Prompt {
	return Prompt{question: question, detail: detail}
}

func (p Prompt) Init() tea.Cmd { return nil }

func (p Prompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "left", "right", "h", "l", "tab", "shift+tab":
		p.onYes = !p.onYes
		return p, nil
	case "y", "Y":
		p.answer = AnswerYes
	case "n", "N":
		p.answer = AnswerNo
	case "enter":
		p.answer = AnswerNo
		if p.onYes {
			p.answer = AnswerYes
		}
	case "esc", "ctrl+c", "q":
		p.answer = AnswerCancelled
	default:
		return p, nil
	}
	return p, tea.Quit
}

func (p Prompt) View() string {
	var b strings.Builder
	b.WriteString(styles.Theme.Bold.Render(p.question) + "\n")
	if p.detail != "" {
		b.WriteString(styles.Theme.Muted.Render(p.detail) + "\n")
	}

	yes, no := choiceStyle, selectedStyle
	if p.onYes {
		yes, no = selectedStyle, choiceStyle
	}
	b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Center, yes.Render("Yes"), "  ", no.Render("No")) + "\n\n")
	b.WriteString(styles.RenderKeyHelp("y/n", "answer") + "  " + styles.RenderKeyHelp("enter", "choose") + "  " +
		styles.RenderKeyHelp("esc", "cancel"))
	return b.String()
}

// Answer returns the operator's answer, Undecided while the prompt runs.
func (p Prompt) Answer() Answer {
	return p.answer
}

// Ask runs a Prompt reading keys from in and drawing on out. Only an
// explicit yes returns true.
func Ask(ctx context.Context, in io.Reader, out io.Writer, question, detail string) (bool, error) {
	final, err := tea.NewProgram(NewPrompt(question, detail),
		tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("failed to run prompt: %w", err)
	}
	return final.(Prompt).Answer() == AnswerYes, nil
}
