// Package execx runs external tools and reports a structured result instead
// of relying on ambient success signalling.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Cmd describes one process invocation.
type Cmd struct {
	Path    string
	Args    []string
	Env     map[string]string // additional env vars
	Dir     string            // working directory
	Timeout time.Duration     // zero means no timeout
	// Stream, when set, also receives combined stdout/stderr as it is produced.
	Stream io.Writer
}

// Result is what a finished (or unstartable) process left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// OK reports whether the process exited zero.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Runner is the seam the builder and tester use to launch processes.
type Runner interface {
	Run(ctx context.Context, c Cmd) (Result, error)
}

// OSRunner launches real processes via os/exec.
type OSRunner struct{}

// Run starts c and waits for it. A non-zero exit is reported through
// Result.ExitCode with a nil error; err is non-nil only when the process
// could not be started or was killed by the timeout.
func (OSRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	// Children that inherit our pipes must not keep Wait blocked past the kill.
	cmd.WaitDelay = time.Second
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	var stdout, stderr bytes.Buffer
	if c.Stream != nil {
		// stdout and stderr are copied by separate goroutines.
		stream := &lockedWriter{w: c.Stream}
		cmd.Stdout = io.MultiWriter(&stdout, stream)
		cmd.Stderr = io.MultiWriter(&stderr, stream)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		return res, fmt.Errorf("%s timed out after %s", c.Path, c.Timeout)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		return res, err
	}
	return res, nil
}

// lockedWriter serialises writes to w.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
