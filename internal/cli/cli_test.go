package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"makellamafile/internal/config"
	"makellamafile/internal/errdefs"
	"makellamafile/internal/pipeline"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := Execute(context.Background(), args, &out, &errb)
	return code, out.String(), errb.String()
}

// withPipelineStub replaces the pipeline constructor and restores it on cleanup.
func withPipelineStub(t *testing.T, r *recordingRunner) {
	t.Helper()
	old := fnNewPipeline
	fnNewPipeline = func(cfg config.Config, _ ...pipeline.Option) runner {
		r.cfg = cfg
		return r
	}
	t.Cleanup(func() { fnNewPipeline = old })
}

type recordingRunner struct {
	cfg   config.Config
	req   pipeline.Request
	calls int
	err   error
}

func (r *recordingRunner) Run(_ context.Context, req pipeline.Request) (pipeline.Artifact, error) {
	r.calls++
	r.req = req
	return pipeline.Artifact{}, r.err
}

// isolate points HOME and every MAKELLAMAFILE_* variable at a temp tree.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{config.EnvConfig, config.EnvOutputDir, config.EnvDownloadDir, config.EnvBinDir, config.EnvLogLevel, config.EnvMetricsFile} {
		t.Setenv(k, "")
	}
	return home
}

func TestHelpShortCircuits(t *testing.T) {
	isolate(t)
	r := &recordingRunner{}
	withPipelineStub(t, r)
	for _, args := range [][]string{{"-h"}, {"--help"}, {"model.gguf", "--bogus", "-h"}} {
		code, out, errOut := run(t, args...)
		if code != 0 {
			t.Fatalf("%v: exit %d, stderr %q", args, code, errOut)
		}
		for _, want := range []string{"Usage:", "--output-dir", "--no-docs", "--prompt"} {
			if !strings.Contains(out, want) {
				t.Fatalf("%v: usage missing %q:\n%s", args, want, out)
			}
		}
	}
	if r.calls != 0 {
		t.Fatalf("pipeline ran during help")
	}
}

func TestHelpTokenAsFlagValue(t *testing.T) {
	isolate(t)
	r := &recordingRunner{}
	withPipelineStub(t, r)
	code, out, _ := run(t, "-d", "-h", "model.gguf")
	if code != 0 || !strings.Contains(out, "Usage:") || r.calls != 0 {
		t.Fatalf("separate -h value must print help: exit %d calls %d", code, r.calls)
	}
	if code, _, errOut := run(t, "-d=-h", "model.gguf"); code != 0 {
		t.Fatalf("attached value: exit %d: %s", code, errOut)
	}
	if r.calls != 1 || r.req.Description != "-h" {
		t.Fatalf("attached -h not passed through: %+v", r.req)
	}
}

func TestHelpAfterTerminatorIsPositional(t *testing.T) {
	if helpRequested([]string{"--", "-h"}) {
		t.Fatalf("-h after -- must not request help")
	}
}

func TestMissingInputIsUsageError(t *testing.T) {
	isolate(t)
	r := &recordingRunner{}
	withPipelineStub(t, r)
	code, _, errOut := run(t, "-t")
	if code != 1 {
		t.Fatalf("exit %d want 1", code)
	}
	if !strings.Contains(errOut, "missing input") || !strings.Contains(errOut, "--help") {
		t.Fatalf("stderr %q", errOut)
	}
	if r.calls != 0 {
		t.Fatalf("pipeline ran without input")
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	isolate(t)
	withPipelineStub(t, &recordingRunner{})
	code, _, errOut := run(t, "--frobnicate", "model.gguf")
	if code != 1 || !strings.Contains(errOut, "frobnicate") {
		t.Fatalf("exit %d stderr %q", code, errOut)
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "--version")
	if code != 0 || !strings.Contains(out, Version) {
		t.Fatalf("exit %d out %q", code, out)
	}
}

func TestFlagsBuildRequest(t *testing.T) {
	home := isolate(t)
	r := &recordingRunner{}
	withPipelineStub(t, r)
	code, _, errOut := run(t, "-o", "~/out", "-n", "tiny", "-d", "desc", "--no-docs", "-p", "hi", "model.gguf")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	want := pipeline.Request{
		InputSpec:      "model.gguf",
		OutputDir:      filepath.Join(home, "out"),
		ModelName:      "tiny",
		Description:    "desc",
		TestAfterBuild: true,
		TestPrompt:     "hi",
		SkipDocs:       true,
	}
	if r.req != want {
		t.Fatalf("request %+v\nwant %+v", r.req, want)
	}
	if r.cfg.TestTokens != config.DefaultTestTokens {
		t.Fatalf("config not resolved: %+v", r.cfg)
	}
}

func TestTestFlagUsesDefaultPrompt(t *testing.T) {
	isolate(t)
	r := &recordingRunner{}
	withPipelineStub(t, r)
	if code, _, _ := run(t, "model.gguf", "-t"); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !r.req.TestAfterBuild || r.req.TestPrompt != "" {
		t.Fatalf("request %+v", r.req)
	}
}

func TestExtraPositionalsFirstWins(t *testing.T) {
	isolate(t)
	r := &recordingRunner{}
	withPipelineStub(t, r)
	code, _, errOut := run(t, "a.gguf", "b.gguf")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if r.req.InputSpec != "a.gguf" {
		t.Fatalf("input %q", r.req.InputSpec)
	}
	if !strings.Contains(errOut, "extra arguments ignored") {
		t.Fatalf("no warning in %q", errOut)
	}
}

func TestPipelineErrorsExitOne(t *testing.T) {
	isolate(t)
	for _, err := range []error{
		errdefs.ErrInputNotFound("x.gguf"),
		errdefs.ErrBuildFailed("zipalign failed", errors.New("exit 1")),
		errdefs.ErrBinaryMissing("runtime stub", "/nope"),
	} {
		withPipelineStub(t, &recordingRunner{err: err})
		code, _, errOut := run(t, "x.gguf")
		if code != 1 || !strings.Contains(errOut, err.Error()) {
			t.Fatalf("%v: exit %d stderr %q", err, code, errOut)
		}
	}
}

func TestExplicitMissingConfigFails(t *testing.T) {
	home := isolate(t)
	r := &recordingRunner{}
	withPipelineStub(t, r)
	code, _, errOut := run(t, "--config", filepath.Join(home, "absent.yaml"), "x.gguf")
	if code != 1 || !strings.Contains(errOut, "load config") {
		t.Fatalf("exit %d stderr %q", code, errOut)
	}
	if r.calls != 0 {
		t.Fatalf("pipeline ran with a broken config")
	}
}

const (
	stubScript = `#!/bin/sh
if [ "$1" = "--cli" ]; then
  echo "generated text"
  exit 0
fi
exit 0
`
	failingStubScript = `#!/bin/sh
echo "model failed to load"
exit 3
`
	zipalignScript = `#!/bin/sh
shift
out="$1"
shift
for f in "$@"; do cat "$f" >> "$out" || exit 1; done
`
)

// e2eEnv installs shell-script stand-ins for the runtime stub and zipalign
// and routes the real pipeline at them through the environment.
func e2eEnv(t *testing.T, stub string) (outDir, model string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
	home := isolate(t)
	bin := filepath.Join(home, "bin")
	outDir = filepath.Join(home, "llamafiles")
	for _, d := range []string{bin, outDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(bin, config.StubName), []byte(stub), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, config.AlignName), []byte(zipalignScript), 0o755); err != nil {
		t.Fatal(err)
	}
	model = filepath.Join(home, "TinyLLama-v0.1-5M-F16.gguf")
	if err := os.WriteFile(model, []byte("GGUF weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvBinDir, bin)
	t.Setenv(config.EnvOutputDir, outDir)
	t.Setenv(config.EnvDownloadDir, filepath.Join(home, "dl"))
	t.Setenv(config.EnvLogLevel, "error")
	return outDir, model
}

func TestEndToEndConversion(t *testing.T) {
	outDir, model := e2eEnv(t, stubScript)
	code, out, errOut := run(t, "-t", model)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	name := "TinyLLama-v0.1-5M-F16"
	if _, err := os.Stat(filepath.Join(outDir, name, name+".llamafile")); err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, name, "README.md")); err != nil {
		t.Fatalf("readme: %v", err)
	}
	if !strings.Contains(out, "generated text") || !strings.Contains(out, "Test passed") {
		t.Fatalf("stdout %q", out)
	}

	code, _, _ = run(t, "--no-docs", model)
	if code != 0 {
		t.Fatalf("second run exit %d", code)
	}
	if _, err := os.Stat(filepath.Join(outDir, name+"_v1", name+"_v1.llamafile")); err != nil {
		t.Fatalf("versioned artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, name+"_v1", "README.md")); !os.IsNotExist(err) {
		t.Fatalf("README written despite --no-docs")
	}
}

func TestEndToEndFailingSmokeTestKeepsExitZero(t *testing.T) {
	_, model := e2eEnv(t, failingStubScript)
	code, out, errOut := run(t, "-p", "hello", model)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "exit code 3") {
		t.Fatalf("failure not reported: %q", out)
	}
}

func TestEndToEndMissingOutputDir(t *testing.T) {
	outDir, model := e2eEnv(t, stubScript)
	code, _, errOut := run(t, "-o", filepath.Join(outDir, "absent"), model)
	if code != 1 || !strings.Contains(errOut, "output directory does not exist") {
		t.Fatalf("exit %d stderr %q", code, errOut)
	}
}
