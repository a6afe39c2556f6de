package ui

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// doneMsg tells the spinner the wrapped work has finished
type doneMsg struct{ err error }

// SpinnerModel is a Bubble Tea model showing a spinner, a label and the
// elapsed time until the wrapped work finishes or the user presses Ctrl+C.
type SpinnerModel struct {
	spinner     spinner.Model
	label       string
	hint        string
	start       time.Time
	elapsed     time.Duration
	done        bool
	interrupted bool
	err         error
}

// NewSpinnerModel creates a spinner model. hint is shown muted after the
// label, e.g. "timeout 5m0s".
func NewSpinnerModel(label, hint string) SpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(SpinnerStyle),
	)
	return SpinnerModel{
		spinner: s,
		label:   label,
		hint:    hint,
		start:   time.Now(),
	}
}

// Init implements tea.Model
func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.elapsed = time.Since(m.start)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m SpinnerModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	line := fmt.Sprintf("  %s %s", m.spinner.View(), m.label)
	note := m.elapsed.Truncate(time.Second).String()
	if m.hint != "" {
		note += ", " + m.hint
	}
	return line + "  " + StepNoteStyle.Render("("+note+")") + "\n"
}

// Done reports whether the wrapped work finished
func (m SpinnerModel) Done() bool {
	return m.done
}

// Interrupted reports whether the user pressed Ctrl+C
func (m SpinnerModel) Interrupted() bool {
	return m.interrupted
}

// RunWithSpinner runs fn while showing a spinner on out. When out is not a
// terminal a single "please wait" line is printed instead. Pressing Ctrl+C
// cancels the context passed to fn; fn's error is always returned.
func RunWithSpinner(ctx context.Context, out *os.File, label, hint string, fn func(context.Context) error) error {
	if !IsTerminal(out) {
		NewPrinter(out).PrintPleaseWait(label, hint)
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewSpinnerModel(label, hint), tea.WithOutput(out))

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	final, err := p.Run()
	if m, ok := final.(SpinnerModel); err != nil || !ok || !m.Done() {
		cancel()
	}
	return <-result
}
