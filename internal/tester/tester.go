// Package tester smoke-tests a freshly built artifact with a short prompt.
package tester

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"makellamafile/internal/errdefs"
	"makellamafile/internal/execx"
)

// DefaultPrompt is used when testing is requested without an explicit prompt.
const DefaultPrompt = "Tell me a short story"

// Tester runs the artifact in CLI mode with a bounded token budget.
type Tester struct {
	Tokens  int
	Timeout time.Duration
	Runner  execx.Runner
	// Out receives the artifact's output as it runs; nil discards it.
	Out io.Writer
	Log zerolog.Logger
}

// Args returns the flags passed to the artifact for a smoke test.
func (t *Tester) Args(prompt string) []string {
	return []string{"--cli", "-n", strconv.Itoa(t.Tokens), "-p", prompt}
}

// Run executes the artifact and returns a TestFailed error when it does not
// exit cleanly. Callers report the error; it never aborts a conversion.
func (t *Tester) Run(ctx context.Context, artifact, prompt string) (execx.Result, error) {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	t.Log.Info().Str("artifact", artifact).Str("prompt", prompt).Int("tokens", t.Tokens).Msg("testing artifact")
	res, err := t.Runner.Run(ctx, execx.Cmd{
		Path:    artifact,
		Args:    t.Args(prompt),
		Timeout: t.Timeout,
		Stream:  t.Out,
	})
	if err != nil {
		return res, errdefs.ErrTestFailed(res.ExitCode, err)
	}
	if !res.OK() {
		return res, errdefs.ErrTestFailed(res.ExitCode, nil)
	}
	return res, nil
}
