// internal/tui/prompt.go
//
// The interactive line prompt. Each ReadLine call runs a short-lived
// bubbletea program around a single textinput:
//
//   - enter submits the line
//   - up/down walk the command history
//   - tab accepts the current completion suggestion
//   - ctrl+d on an empty line (or ctrl+c) ends input with io.EOF

package tui

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// HistorySource returns previously entered lines, oldest first.
type HistorySource func() []string

// Prompt reads lines from a terminal.
type Prompt struct {
	in          io.Reader
	out         io.Writer
	history     HistorySource
	completions []string
}

// PromptOption customizes a Prompt.
type PromptOption func(*Prompt)

// WithHistory enables up/down navigation through entries.
func WithHistory(source HistorySource) PromptOption {
	return func(p *Prompt) {
		p.history = source
	}
}

// WithCompletions sets the strings offered as tab completions.
func WithCompletions(completions []string) PromptOption {
	return func(p *Prompt) {
		p.completions = append([]string(nil), completions...)
	}
}

// NewPrompt returns a prompt reading keys from in and drawing to out.
func NewPrompt(in io.Reader, out io.Writer, opts ...PromptOption) *Prompt {
	p := &Prompt{in: in, out: out}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// ReadLine shows prompt and returns the submitted line. It returns io.EOF
// when the user ends input and ctx.Err() when ctx is cancelled.
func (p *Prompt) ReadLine(ctx context.Context, prompt string) (string, error) {
	var entries []string
	if p.history != nil {
		entries = p.history()
	}
	model := newPromptModel(prompt, entries, p.completions)
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := program.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", io.EOF
		}
		return "", err
	}
	m, ok := final.(promptModel)
	if !ok || m.eof {
		return "", io.EOF
	}
	return m.line, nil
}

// Close implements the console reader contract.
func (p *Prompt) Close() error {
	return nil
}

type promptModel struct {
	input   textinput.Model
	history []string
	// cursor indexes history; len(history) is the line being edited.
	cursor int
	draft  string

	line string
	done bool
	eof  bool
}

func newPromptModel(prompt string, history, completions []string) promptModel {
	input := textinput.New()
	input.Prompt = prompt
	input.ShowSuggestions = len(completions) > 0
	input.SetSuggestions(completions)
	input.Focus()
	return promptModel{
		input:   input,
		history: history,
		cursor:  len(history),
	}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	switch key.Type {
	case tea.KeyEnter:
		m.line = m.input.Value()
		m.done = true
		return m, tea.Quit
	case tea.KeyCtrlC:
		m.eof = true
		m.done = true
		return m, tea.Quit
	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.eof = true
			m.done = true
			return m, tea.Quit
		}
	case tea.KeyUp:
		m.recall(-1)
		return m, nil
	case tea.KeyDown:
		m.recall(1)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *promptModel) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	next := m.cursor + step
	if next < 0 || next > len(m.history) {
		return
	}
	if m.cursor == len(m.history) {
		m.draft = m.input.Value()
	}
	m.cursor = next
	if next == len(m.history) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(m.history[next])
	}
	m.input.CursorEnd()
}

func (m promptModel) View() string {
	if m.done {
		if m.eof {
			return m.input.Prompt + "\n"
		}
		return m.input.Prompt + m.line + "\n"
	}
	return m.input.View()
}
