package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/bytedance/sonic"

	"github.com/muurk/winiotctl/internal/iotapi"
	"github.com/muurk/winiotctl/internal/ui"
)

// maxChainLines caps the cause chain box
const maxChainLines = 8

// shownError marks an error whose failure box was already printed, so main
// only adds the cause chain.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err: err}
}

// printError prints a failure box with troubleshooting tips followed by the
// cause chain, outermost first.
func printError(w io.Writer, err error) {
	p := ui.NewPrinter(w)

	var s *shownError
	if errors.As(err, &s) {
		err = s.err
	} else {
		p.PrintFailure(iotapi.GetShortErrorMessage(err), err, troubleshootingTips(err))
	}

	if chain := iotapi.Chain(err); len(chain) > 1 {
		p.PrintOutput(ui.NewChainBox(chain).SetMaxLines(maxChainLines))
	}
}

// troubleshootingTips turns the multi-line hint into box bullets
func troubleshootingTips(err error) []string {
	var tips []string
	for _, line := range strings.Split(iotapi.GetTroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "•"))
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		tips = append(tips, line)
	}
	return tips
}

// printJSON writes v as indented JSON to stdout
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
