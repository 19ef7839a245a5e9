// Package builder assembles a llamafile: the runtime stub with the model
// weights and a run-time argument list appended as zip members.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"makellamafile/internal/common/fsutil"
	"makellamafile/internal/errdefs"
	"makellamafile/internal/execx"
)

// ArgsFileName is the member name llamafile reads its baked-in arguments from.
const ArgsFileName = ".args"

// Args returns the argument descriptor baked into the artifact for weights
// stored under the given file name.
func Args(weightsName string) []string {
	return []string{"-m", weightsName, "--host", "0.0.0.0"}
}

// Builder holds the external tools and the process runner.
type Builder struct {
	RuntimeStub  string
	AlignTool    string
	AlignTimeout time.Duration
	Runner       execx.Runner
	Log          zerolog.Logger
}

// Build produces an executable artifact at outPath from the weights at input.
// On failure the artifact directory is left in place; the argument descriptor
// is removed on every path.
func (b *Builder) Build(ctx context.Context, input, outPath string) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errdefs.ErrBuildFailed("create "+dir, err)
	}

	if err := fsutil.CopyFile(b.RuntimeStub, outPath); err != nil {
		return errdefs.ErrBuildFailed("copy runtime stub", err)
	}
	if !fsutil.IsRegularFile(outPath) {
		return errdefs.ErrBuildFailed("runtime stub copy produced no file at "+outPath, nil)
	}

	argsPath, err := writeArgs(dir, filepath.Base(input))
	if err != nil {
		return errdefs.ErrBuildFailed("write argument descriptor", err)
	}
	defer func() {
		if err := os.Remove(argsPath); err != nil && !os.IsNotExist(err) {
			b.Log.Warn().Err(err).Str("path", argsPath).Msg("could not remove argument descriptor")
		}
	}()

	b.Log.Debug().Str("tool", b.AlignTool).Str("artifact", outPath).Msg("embedding weights")
	res, err := b.Runner.Run(ctx, execx.Cmd{
		Path:    b.AlignTool,
		Args:    []string{"-j0", outPath, input, argsPath},
		Timeout: b.AlignTimeout,
	})
	if err != nil {
		return errdefs.ErrBuildFailed("run "+filepath.Base(b.AlignTool), err)
	}
	if !res.OK() {
		return errdefs.ErrBuildFailed(fmt.Sprintf("%s exited with code %d: %s",
			filepath.Base(b.AlignTool), res.ExitCode, strings.TrimSpace(res.Stderr)), nil)
	}

	if err := os.Chmod(outPath, 0o755); err != nil {
		return errdefs.ErrBuildFailed("mark artifact executable", err)
	}
	return nil
}

// writeArgs writes the descriptor, one token per line, next to the artifact.
// zipalign stores members under their base name, so the file must be called .args.
func writeArgs(dir, weightsName string) (string, error) {
	p := filepath.Join(dir, ArgsFileName)
	content := strings.Join(Args(weightsName), "\n") + "\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return "", err
	}
	return p, nil
}
