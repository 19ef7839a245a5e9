package pipeline

import (
	"context"

	"makellamafile/internal/execx"
	"makellamafile/internal/input"
	"makellamafile/internal/modelinfo"
)

// ArtifactExt is the extension of every produced artifact.
const ArtifactExt = "llamafile"

// Request is one parsed invocation. It is built once by the CLI and not
// modified afterwards.
type Request struct {
	InputSpec      string
	OutputDir      string
	ModelName      string
	Description    string
	TestAfterBuild bool
	TestPrompt     string
	SkipDocs       bool
}

// Artifact describes a finished conversion.
type Artifact struct {
	Name     string
	Dir      string
	Path     string
	Digest   string
	Info     modelinfo.Info
	DocsPath string
	Input    input.Resolved
	// TestErr holds the smoke-test outcome when testing was requested.
	TestErr error
}

// InputResolver yields a local model file for an input spec.
type InputResolver interface {
	Resolve(ctx context.Context, spec string) (input.Resolved, error)
}

// ArtifactBuilder embeds weights into the runtime stub at outPath.
type ArtifactBuilder interface {
	Build(ctx context.Context, input, outPath string) error
}

// SmokeTester exercises a built artifact.
type SmokeTester interface {
	Run(ctx context.Context, artifact, prompt string) (execx.Result, error)
}
