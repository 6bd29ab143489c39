// Package interactive provides the confirmation prompt used before installing an update.
package interactive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when confirmation is needed but stdin is not a TTY.
var ErrNotTerminal = errors.New("confirmation required but stdin is not a terminal (use --yes)")

// Prompter asks yes/no questions.
type Prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks question and reports whether the answer was yes. Anything
// other than y/yes, including end of input, counts as no.
func (p *Prompter) Confirm(question string) bool {
	_, _ = fmt.Fprintf(p.out, "%s [y/N] ", question)

	if !p.scanner.Scan() {
		_, _ = fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConfirmInstall asks before installing latest over current. assumeYes skips
// the question; without it a terminal is required.
func ConfirmInstall(p *Prompter, current, latest string, assumeYes, interactive bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !interactive {
		return false, ErrNotTerminal
	}
	return p.Confirm(fmt.Sprintf("Install TwitchDesk %s (currently %s) and restart?", latest, current)), nil
}
