package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"makellamafile/internal/config"
	"makellamafile/internal/logging"
)

// fakeZipalign appends every member after "-j0 <artifact>" to the artifact.
const fakeZipalign = `#!/bin/sh
shift
out="$1"
shift
for f in "$@"; do
  cat "$f" >> "$out" || exit 1
done
`

const failingZipalign = `#!/bin/sh
echo "zipalign: corrupt central directory" 1>&2
exit 1
`

// fakeStub behaves like a llamafile that answers any prompt.
const fakeStub = `#!/bin/sh
echo "stub: $*"
exit 0
`

type env struct {
	root      string
	outputDir string
	dlDir     string
	cfg       config.Config
	out       *bytes.Buffer
}

func writeExec(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newEnv lays out tools and directories for an end-to-end conversion.
func newEnv(t *testing.T, zipalign string) *env {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script tools require a unix shell")
	}
	root := t.TempDir()
	e := &env{
		root:      root,
		outputDir: filepath.Join(root, "llamafiles"),
		dlDir:     filepath.Join(root, "huggingface"),
		out:       &bytes.Buffer{},
	}
	for _, d := range []string{e.outputDir, e.dlDir, filepath.Join(root, "bin")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	stub := filepath.Join(root, "bin", "llamafile")
	align := filepath.Join(root, "bin", "zipalign")
	writeExec(t, stub, fakeStub)
	writeExec(t, align, zipalign)
	e.cfg = config.Config{
		OutputDir:   e.outputDir,
		DownloadDir: e.dlDir,
		RuntimeStub: stub,
		AlignTool:   align,
		TestTokens:  8,
	}
	return e
}

func (e *env) pipeline(opts ...Option) *Pipeline {
	base := []Option{WithOutput(e.out), WithLogger(logging.Nop())}
	return New(e.cfg, append(base, opts...)...)
}

func (e *env) model(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(e.root, name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
