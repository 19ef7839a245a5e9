package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether w is an *os.File attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// IsTerminal is the exported form used by progress rendering.
func IsTerminal(w io.Writer) bool { return isTerminal(w) }
