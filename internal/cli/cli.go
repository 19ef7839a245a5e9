// Package cli is the makellamafile command line: flag parsing, config
// resolution and exit-code mapping around a single pipeline run.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"makellamafile/internal/errdefs"
)

// Version is stamped at build time with -ldflags "-X makellamafile/internal/cli.Version=...".
var Version = "dev"

// helpRequested reports whether -h or --help appears before a "--" terminator.
func helpRequested(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

func usage(w io.Writer) {
	root := buildRootCmd(w, w, &options{})
	root.InitDefaultHelpFlag()
	_ = root.Help()
}

// Execute runs the command with explicit streams and returns the exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Help short-circuits everything else, including config loading.
	if helpRequested(args) {
		usage(stdout)
		return 0
	}
	root := buildRootCmd(stdout, stderr, &options{})
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		reportError(stderr, err)
		return errdefs.ExitCode(err)
	}
	return 0
}

func reportError(w io.Writer, err error) {
	_, _ = color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
	if errdefs.IsUsage(err) {
		_, _ = fmt.Fprintf(w, "Run '%s --help' for usage.\n", commandName)
	}
}

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code (0 for success, 1 on any fatal error).
func MainWithArgs(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Execute(ctx, args, os.Stdout, os.Stderr)
}

// Main returns an exit code for use by cmd/makellamafile.
func Main() int { return MainWithArgs(os.Args[1:]) }
