package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirmation describes a dangerous operation the user must approve.
type Confirmation struct {
	Title      string
	Warnings   []string
	Disclaimer string
	Phrase     string // what the user must type; empty means "yes"
}

// Confirm displays a warning box on out and reads one line from in.
// Returns true only if the line matches the phrase. The default phrase also
// accepts "y" in any case.
func Confirm(in io.Reader, out io.Writer, c Confirmation) bool {
	width := GetTerminalWidth()

	phrase := c.Phrase
	if phrase == "" {
		phrase = "yes"
	}

	lines := []string{
		"",
		WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, c.Title)),
		"",
	}
	bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
	for _, warning := range c.Warnings {
		lines = append(lines, bulletStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	if c.Disclaimer != "" {
		disclaimerStyle := lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			Width(width - 12).
			PaddingLeft(3)
		lines = append(lines, disclaimerStyle.Render(c.Disclaimer), "")
	}

	_, _ = fmt.Fprintln(out, boxStyle(width, WarningColor).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	_, _ = fmt.Fprint(out, promptStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", phrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	input = strings.TrimSpace(input)
	if input == phrase {
		return true
	}
	if c.Phrase == "" && (strings.EqualFold(input, "y") || strings.EqualFold(input, "yes")) {
		return true
	}

	cancelStyle := lipgloss.NewStyle().Foreground(MutedColor)
	_, _ = fmt.Fprintln(out, cancelStyle.Render("  Operation cancelled."))
	_, _ = fmt.Fprintln(out)
	return false
}

// RemoveConfirmation is the prompt shown before uninstalling a package
func RemoveConfirmation(device, name, fullName string) Confirmation {
	return Confirmation{
		Title: "REMOVE PACKAGE",
		Warnings: []string{
			fmt.Sprintf("Package %s will be uninstalled from %s", name, device),
			"Full name: " + fullName,
			"App data stored by the package is deleted with it",
		},
	}
}

// RebootConfirmation is the prompt shown before restarting a device
func RebootConfirmation(device string) Confirmation {
	return Confirmation{
		Title: "REBOOT DEVICE",
		Warnings: []string{
			fmt.Sprintf("%s will restart and be unreachable for a minute or two", device),
			"Running apps are stopped without warning",
		},
	}
}
