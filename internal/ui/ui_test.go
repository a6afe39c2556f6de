package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestHeaderKeepsParamOrder(t *testing.T) {
	out := NewHeader("Deploy", "winiotctl deploy",
		P("Device", "192.168.1.20"),
		P("User", "Administrator"),
		P("Directory", "./AppPackages"),
	).SetWidth(80).Render()

	device := strings.Index(out, "192.168.1.20")
	user := strings.Index(out, "Administrator")
	dir := strings.Index(out, "./AppPackages")
	if device < 0 || user < 0 || dir < 0 {
		t.Fatalf("header missing params:\n%s", out)
	}
	if !(device < user && user < dir) {
		t.Errorf("params out of order:\n%s", out)
	}
	if !strings.Contains(out, "DEPLOY") {
		t.Errorf("title should be upper-cased:\n%s", out)
	}
}

func TestResultBoxes(t *testing.T) {
	success := NewSuccessResult("Sideload complete", P("Package", "MyApp"), P("Polls", "3")).SetWidth(80).Render()
	if !strings.Contains(success, "SUCCESS") || strings.Index(success, "MyApp") > strings.Index(success, "Polls") {
		t.Errorf("unexpected success box:\n%s", success)
	}

	failure := NewFailureResult("Remove failed", errors.New("package is non-removable"), []string{"Pick another package"}).
		SetWidth(80).Render()
	for _, want := range []string{"FAILED", "non-removable", "Troubleshooting:", "Pick another package"} {
		if !strings.Contains(failure, want) {
			t.Errorf("failure box missing %q:\n%s", want, failure)
		}
	}

	warning := NewWarningResult("No startup app", P("Searched", "MyApp")).AddDetail("Packages", "4").Render()
	if !strings.Contains(warning, "WARNING") || !strings.Contains(warning, "Packages") {
		t.Errorf("unexpected warning box:\n%s", warning)
	}
}

func TestProgressUpdateStep(t *testing.T) {
	p := NewProgress("", "List packages", "Reboot")

	p.UpdateStep(1, "", StepComplete, "4 packages")
	if p.Percent != 0.5 {
		t.Errorf("Percent = %v, want 0.5", p.Percent)
	}

	// reporting a step past the end grows the list
	p.UpdateStep(3, "Set startup app", StepRunning, "")
	if p.Total() != 3 || p.Current != 3 || p.Steps[2].Name != "Set startup app" {
		t.Errorf("steps = %+v", p.Steps)
	}
	if p.Percent != 1.0/3.0 {
		t.Errorf("Percent = %v", p.Percent)
	}

	p.UpdateStep(0, "ignored", StepFailed, "")
	if p.Total() != 3 {
		t.Error("step 0 should be ignored")
	}

	line := p.RenderStep(p.Steps[0])
	if !strings.Contains(line, "[1/3]") || !strings.Contains(line, "(4 packages)") {
		t.Errorf("RenderStep = %q", line)
	}
}

func TestStepStatus(t *testing.T) {
	for _, s := range []StepStatus{StepComplete, StepFailed, StepSkipped} {
		if !s.Done() {
			t.Errorf("%s should be done", s)
		}
	}
	if StepRunning.Done() || StepPending.Done() {
		t.Error("running and pending are not done")
	}
	if StepStatus(42).String() != "StepStatus(42)" {
		t.Errorf("String() = %s", StepStatus(42))
	}
}

func TestRunnerSuccess(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(RunnerConfig{
		Title:     "Deploy",
		Command:   "winiotctl deploy",
		StepNames: []string{"List packages"},
		Output:    &buf,
	})

	err := r.Run(context.Background(), func(ctx context.Context, onStep StepCallback) ([]Param, error) {
		onStep(1, "", StepRunning, "")
		onStep(1, "", StepComplete, "4 packages")
		onStep(2, "Reboot", StepSkipped, "not requested")
		return []Param{P("Device", "minwinpc")}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"DEPLOY", "List packages", "(4 packages)", "Reboot", "Deploy complete", "minwinpc", "Duration"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\r") {
		t.Error("non-live runner must not rewrite lines")
	}
}

func TestRunnerFailure(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("device said no")
	r := NewRunner(RunnerConfig{
		Title:        "Reboot",
		Output:       &buf,
		Troubleshoot: func(err error) []string { return []string{"tip for " + err.Error()} },
	})

	err := r.Run(context.Background(), func(ctx context.Context, onStep StepCallback) ([]Param, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if out := buf.String(); !strings.Contains(out, "Reboot failed") || !strings.Contains(out, "tip for device said no") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		c     Confirmation
		want  bool
	}{
		{"yes", "yes\n", Confirmation{Title: "x"}, true},
		{"y upper", "Y\n", Confirmation{Title: "x"}, true},
		{"no", "no\n", Confirmation{Title: "x"}, false},
		{"eof", "", Confirmation{Title: "x"}, false},
		{"no newline", "yes", Confirmation{Title: "x"}, true},
		{"phrase", "I AGREE\n", Confirmation{Title: "x", Phrase: "I AGREE"}, true},
		{"phrase case", "i agree\n", Confirmation{Title: "x", Phrase: "I AGREE"}, false},
		{"phrase y", "y\n", Confirmation{Title: "x", Phrase: "I AGREE"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if got := Confirm(strings.NewReader(tt.input), &out, tt.c); got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "WARNING") {
				t.Error("warning box not printed")
			}
		})
	}
}

func TestRemoveConfirmationMentionsPackage(t *testing.T) {
	c := RemoveConfirmation("kiosk", "MyApp", "MyApp_1.0.0.0_arm__8wekyb3d8bbwe")
	if !strings.Contains(strings.Join(c.Warnings, "\n"), "MyApp_1.0.0.0_arm__8wekyb3d8bbwe") {
		t.Errorf("warnings = %v", c.Warnings)
	}
}

func TestChainBox(t *testing.T) {
	root := errors.New("connection refused")
	mid := fmt.Errorf("list packages: %w", root)
	outer := fmt.Errorf("deploy: %w", mid)

	box := NewChainBox([]error{outer, mid, root})
	if len(box.Lines) != 3 {
		t.Fatalf("lines = %v", box.Lines)
	}
	if !strings.HasPrefix(box.Lines[1], "--> ") || !strings.HasPrefix(box.Lines[2], "  --> ") {
		t.Errorf("lines = %q", box.Lines)
	}
	if !strings.Contains(box.Render(), "Cause chain") {
		t.Error("title missing")
	}
}

func TestPrinterPrintHeader(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).SetWidth(80).PrintHeader("Startup app", "winiotctl startup --show", P("Device", "kiosk"))
	out := buf.String()
	for _, want := range []string{"Startup app", "winiotctl startup --show", "Device:", "kiosk"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n\n") {
		t.Error("header should be followed by a blank line")
	}
}

func TestOutputBoxTruncates(t *testing.T) {
	box := NewOutputBox("Packages", "alpha\nbravo\ncharlie\ndelta\n").SetMaxLines(2)
	out := box.Render()
	if !strings.Contains(out, "output truncated") || strings.Contains(out, "charlie") {
		t.Errorf("unexpected render:\n%s", out)
	}
	if len(box.Lines) != 4 {
		t.Error("rendering must not modify Lines")
	}
}

func TestSpinnerModel(t *testing.T) {
	m := NewSpinnerModel("Installing MyApp", "timeout 5m0s")
	if m.Init() == nil {
		t.Fatal("Init should start the spinner")
	}
	if view := m.View(); !strings.Contains(view, "Installing MyApp") || !strings.Contains(view, "timeout 5m0s") {
		t.Errorf("View() = %q", view)
	}

	next, cmd := m.Update(doneMsg{err: errors.New("x")})
	done := next.(SpinnerModel)
	if !done.Done() || cmd == nil {
		t.Error("doneMsg should finish the model")
	}
	if done.View() != "" {
		t.Error("finished model should render nothing")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.(SpinnerModel).Interrupted() {
		t.Error("Ctrl+C should interrupt")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if next.(SpinnerModel).Interrupted() {
		t.Error("other keys are ignored")
	}
}

func TestRunWithSpinnerNonTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	boom := errors.New("install failed")
	called := false
	err = RunWithSpinner(context.Background(), f, "Installing MyApp", "", func(ctx context.Context) error {
		called = true
		return boom
	})
	if !called || !errors.Is(err, boom) {
		t.Fatalf("RunWithSpinner() = %v, called = %v", err, called)
	}

	data, _ := os.ReadFile(f.Name())
	if !strings.Contains(string(data), "Installing MyApp") {
		t.Errorf("expected a please-wait line, got %q", data)
	}
}
