package pipeline

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen)
	infoColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// status prints one user-facing line. Colour is dropped automatically when
// stdout is not a terminal.
func (p *Pipeline) status(c *color.Color, format string, a ...any) {
	if p.out == nil {
		return
	}
	_, _ = c.Fprintln(p.out, fmt.Sprintf(format, a...))
}
