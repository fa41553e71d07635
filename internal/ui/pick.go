package ui

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrCancelled is returned when the user aborts a selection.
var ErrCancelled = errors.New("selection cancelled")

// Swapped in tests.
var (
	lookPath = exec.LookPath
	command  = exec.Command
)

// Pick presents items through fzf and returns the chosen index. Items are
// piped as plain text on stdin, prefixed with their index and hidden from
// display; no preview commands are passed.
func Pick(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, errors.New("no items to select from")
	}

	fzf, err := lookPath("fzf")
	if err != nil {
		return -1, fmt.Errorf("fzf not found in PATH: %w", err)
	}

	var input strings.Builder
	for i, item := range items {
		// Tabs would shift the delimiter fields.
		fmt.Fprintf(&input, "%d\t%s\n", i, strings.ReplaceAll(item, "\t", " "))
	}

	cmd := command(fzf,
		"--prompt", prompt+" > ",
		"--height", "40%",
		"--reverse",
		"--with-nth", "2..",
		"--delimiter", "\t",
		"--no-multi",
	)
	cmd.Stdin = strings.NewReader(input.String())
	cmd.Stderr = os.Stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && (exitErr.ExitCode() == 130 || exitErr.ExitCode() == 1) {
			return -1, ErrCancelled
		}
		return -1, fmt.Errorf("fzf failed: %w", err)
	}

	return parsePick(stdout.String(), len(items))
}

func parsePick(out string, n int) (int, error) {
	line := strings.TrimSpace(out)
	if line == "" {
		return -1, ErrCancelled
	}
	field, _, _ := strings.Cut(line, "\t")
	idx, err := strconv.Atoi(field)
	if err != nil {
		return -1, fmt.Errorf("parsing selection index: %w", err)
	}
	if idx < 0 || idx >= n {
		return -1, fmt.Errorf("selection index %d out of range", idx)
	}
	return idx, nil
}
