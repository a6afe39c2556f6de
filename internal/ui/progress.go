package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// String returns a lowercase name for the status, used in logs
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepComplete:
		return "complete"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("StepStatus(%d)", int(s))
	}
}

// Done reports whether the step has reached a final state
func (s StepStatus) Done() bool {
	return s == StepComplete || s == StepFailed || s == StepSkipped
}

// Step represents a single step in a multi-step operation
type Step struct {
	Number  int        // 1-based
	Name    string     // e.g. "Sideload MyApp_1.0.0.0_ARM.appx"
	Status  StepStatus
	Message string // Optional note (e.g. "3 packages", "not installed")
}

// Progress is a progress bar with a step list.
// Steps may be appended while the operation runs; deploy plans only know
// how many packages there are after scanning the package directory.
type Progress struct {
	Label     string
	Steps     []Step
	Current   int
	Percent   float64
	Width     int
	ShowBar   bool
	ShowSteps bool
	bar       progress.Model
}

// NewProgress creates a new progress display with the named steps
func NewProgress(label string, names ...string) *Progress {
	p := &Progress{
		Label:     label,
		ShowBar:   true,
		ShowSteps: true,
	}
	for _, name := range names {
		p.AddStep(name)
	}
	p.SetWidth(GetTerminalWidth())
	return p
}

// Total returns the number of steps
func (p *Progress) Total() int {
	return len(p.Steps)
}

// SetWidth sets the terminal width and resizes the bar to fit
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	// room for percentage and step count
	barWidth := min(max(width-20, 20), 50)
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// AddStep appends a pending step and returns its number
func (p *Progress) AddStep(name string) int {
	n := len(p.Steps) + 1
	p.Steps = append(p.Steps, Step{Number: n, Name: name, Status: StepPending})
	p.recount()
	return n
}

// UpdateStep updates a step's status and message. Unknown step numbers
// beyond the end of the list are added, so callers may report steps the
// progress was not told about up front.
func (p *Progress) UpdateStep(stepNumber int, name string, status StepStatus, message string) {
	if stepNumber < 1 {
		return
	}
	for len(p.Steps) < stepNumber {
		p.AddStep("")
	}

	step := &p.Steps[stepNumber-1]
	if name != "" {
		step.Name = name
	}
	step.Status = status
	step.Message = message

	if status == StepRunning {
		p.Current = stepNumber
	}
	p.recount()
}

func (p *Progress) recount() {
	if len(p.Steps) == 0 {
		p.Percent = 0
		return
	}
	completed := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			completed++
		}
	}
	p.Percent = float64(completed) / float64(len(p.Steps))
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	if p.ShowBar {
		b.WriteString(p.renderProgressBar())
		b.WriteString("\n\n")
	}

	if p.ShowSteps {
		lines := make([]string, 0, len(p.Steps))
		for _, step := range p.Steps {
			lines = append(lines, p.RenderStep(step))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String()
}

func (p *Progress) renderProgressBar() string {
	barView := p.bar.ViewAs(p.Percent)
	percentStr := fmt.Sprintf("%3.0f%%", p.Percent*100)
	stepStr := fmt.Sprintf("[%d/%d]", p.Current, p.Total())

	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %s", barView, percentStr, stepStr))
}

// RenderStep renders a single step line: "  [2/5] Remove MyApp      ✓  (note)"
func (p *Progress) RenderStep(step Step) string {
	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  [%d/%d] ", step.Number, p.Total()))
	b.WriteString(style.Render(step.Name))

	// keep markers in one column
	const nameColumn = 45
	b.WriteString(strings.Repeat(" ", max(nameColumn-lipgloss.Width(step.Name), 1)))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// StepCallback is the function signature for step progress updates.
// Long-running operations call it to report progress.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)
