// Package pipeline sequences one model-to-llamafile conversion: pre-flight
// checks, input resolution, naming, hashing, classification, build, docs,
// optional smoke test and cleanup of downloaded input.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"makellamafile/internal/builder"
	"makellamafile/internal/common/fsutil"
	"makellamafile/internal/config"
	"makellamafile/internal/docs"
	"makellamafile/internal/errdefs"
	"makellamafile/internal/execx"
	"makellamafile/internal/hasher"
	"makellamafile/internal/input"
	"makellamafile/internal/logging"
	"makellamafile/internal/metrics"
	"makellamafile/internal/modelinfo"
	"makellamafile/internal/tester"
	"makellamafile/internal/version"
)

// Pipeline runs conversions against a fixed configuration.
type Pipeline struct {
	cfg      config.Config
	resolver InputResolver
	builder  ArtifactBuilder
	tester   SmokeTester
	metrics  *metrics.Recorder
	log      zerolog.Logger
	out      io.Writer
	now      func() time.Time
}

// Option customises a Pipeline; tests use these to swap stages for fakes.
type Option func(*Pipeline)

func WithResolver(r InputResolver) Option   { return func(p *Pipeline) { p.resolver = r } }
func WithBuilder(b ArtifactBuilder) Option  { return func(p *Pipeline) { p.builder = b } }
func WithTester(t SmokeTester) Option       { return func(p *Pipeline) { p.tester = t } }
func WithLogger(l zerolog.Logger) Option    { return func(p *Pipeline) { p.log = l } }
func WithOutput(w io.Writer) Option         { return func(p *Pipeline) { p.out = w } }
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New wires the real stages from cfg, then applies opts.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		log: logging.Nop(),
		out: os.Stdout,
		now: time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	runner := execx.OSRunner{}
	if p.resolver == nil {
		var progress io.Writer
		if logging.IsTerminal(os.Stderr) {
			progress = os.Stderr
		}
		p.resolver = &input.Resolver{
			DownloadDir: cfg.DownloadDir,
			Fetcher:     input.NewHTTPFetcher(cfg.DownloadTimeout, progress),
			Log:         p.log,
		}
	}
	if p.builder == nil {
		p.builder = &builder.Builder{
			RuntimeStub:  cfg.RuntimeStub,
			AlignTool:    cfg.AlignTool,
			AlignTimeout: cfg.AlignTimeout,
			Runner:       runner,
			Log:          p.log,
		}
	}
	if p.tester == nil {
		p.tester = &tester.Tester{
			Tokens:  cfg.TestTokens,
			Timeout: cfg.TestTimeout,
			Runner:  runner,
			Out:     p.out,
			Log:     p.log,
		}
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	return p
}

// Metrics exposes the recorder the pipeline reports into.
func (p *Pipeline) Metrics() *metrics.Recorder { return p.metrics }

// outputDir is the request's directory, falling back to the configured one.
func (p *Pipeline) outputDir(req Request) string {
	if req.OutputDir != "" {
		return req.OutputDir
	}
	return p.cfg.OutputDir
}

// Preflight verifies everything that must hold before any side effect:
// the output directory exists and both external tools are executable.
func (p *Pipeline) Preflight(req Request) error {
	if strings.TrimSpace(req.InputSpec) == "" {
		return errdefs.ErrUsage("missing input file or URL")
	}
	if err := validateName(req.ModelName); err != nil {
		return err
	}
	if dir := p.outputDir(req); !fsutil.IsDir(dir) {
		return errdefs.ErrOutputDirMissing(dir)
	}
	if !fsutil.IsExecutable(p.cfg.RuntimeStub) {
		return errdefs.ErrBinaryMissing("runtime stub", p.cfg.RuntimeStub)
	}
	if !fsutil.IsExecutable(p.cfg.AlignTool) {
		return errdefs.ErrBinaryMissing("alignment tool", p.cfg.AlignTool)
	}
	return nil
}

// validateName rejects -n values that would escape the output directory.
func validateName(name string) error {
	if name == "" {
		return nil
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errdefs.ErrUsage(fmt.Sprintf("invalid model name %q", name))
	}
	return nil
}

// BaseName derives the artifact base name from the local input path.
func BaseName(localPath string) string {
	base := filepath.Base(localPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run executes one conversion. Fatal failures return immediately; docs and
// smoke-test failures are only reported. A downloaded input is removed once
// the build has succeeded.
func (p *Pipeline) Run(ctx context.Context, req Request) (art Artifact, err error) {
	log := p.log.With().Str("run", uuid.NewString()).Logger()
	started := p.now()
	preflightOK := false
	defer func() {
		p.metrics.ObserveStage("total", p.now().Sub(started))
		p.metrics.Conversion(resultLabel(err))
		// A failed pre-flight writes nothing to disk, metrics included.
		if preflightOK {
			p.writeMetrics(log)
		}
	}()

	if err := p.Preflight(req); err != nil {
		return art, err
	}
	preflightOK = true
	outDir := p.outputDir(req)
	log.Debug().Str("config", p.cfg.String()).Msg("pre-flight passed")

	var res input.Resolved
	if err := p.stage("resolve", func() error {
		var rerr error
		res, rerr = p.resolver.Resolve(ctx, req.InputSpec)
		return rerr
	}); err != nil {
		return art, err
	}
	art.Input = res

	base := req.ModelName
	if base == "" {
		base = BaseName(res.LocalPath)
	}
	art.Name = version.Resolve(outDir, base)
	art.Dir = filepath.Join(outDir, art.Name)
	art.Path = filepath.Join(art.Dir, art.Name+"."+ArtifactExt)
	if art.Name != base {
		log.Info().Str("base", base).Str("name", art.Name).Msg("output exists, using versioned name")
	}

	if err := p.stage("hash", func() error {
		var herr error
		art.Digest, herr = hasher.File(res.LocalPath)
		return herr
	}); err != nil {
		return art, err
	}
	art.Info = modelinfo.Extract(res.LocalPath)
	log.Info().Str("digest", art.Digest).Str("parameters", art.Info.Parameters).Msg("input analysed")

	if err := p.stage("build", func() error {
		return p.builder.Build(ctx, res.LocalPath, art.Path)
	}); err != nil {
		return art, err
	}
	if fi, serr := os.Stat(art.Path); serr == nil {
		p.metrics.ArtifactSize(fi.Size())
	}
	if res.WasDownloaded {
		defer p.cleanup(log, res.LocalPath)
	}
	p.status(okColor, "Created llamafile: %s", art.Path)

	if !req.SkipDocs {
		_ = p.stage("docs", func() error {
			path, derr := docs.Write(art.Dir, docs.Params{
				ModelName:    art.Name,
				InputPath:    res.LocalPath,
				ArtifactPath: art.Path,
				Digest:       art.Digest,
				Description:  req.Description,
				Info:         art.Info,
				Now:          p.now(),
			})
			if derr != nil {
				log.Warn().Err(derr).Msg("could not write documentation")
				p.status(warnColor, "Warning: documentation not written: %v", derr)
				return derr
			}
			art.DocsPath = path
			p.status(okColor, "Documentation: %s", path)
			return nil
		})
	}

	if req.TestAfterBuild {
		_ = p.stage("test", func() error {
			prompt := req.TestPrompt
			if prompt == "" {
				prompt = tester.DefaultPrompt
			}
			p.status(infoColor, "Testing llamafile with prompt: %q", prompt)
			_, art.TestErr = p.tester.Run(ctx, art.Path, prompt)
			if art.TestErr != nil {
				log.Warn().Err(art.TestErr).Msg("smoke test failed")
				p.status(errColor, "Test failed: %v", art.TestErr)
			} else {
				p.status(okColor, "Test passed")
			}
			return art.TestErr
		})
	}
	return art, nil
}

// stage runs fn and records its duration under name.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := p.now()
	err := fn()
	p.metrics.ObserveStage(name, p.now().Sub(start))
	return err
}

func (p *Pipeline) cleanup(log zerolog.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("could not remove downloaded input")
		return
	}
	log.Info().Str("path", path).Msg("removed downloaded input")
}

func (p *Pipeline) writeMetrics(log zerolog.Logger) {
	if p.cfg.MetricsFile == "" {
		return
	}
	if err := p.metrics.WriteTextfile(p.cfg.MetricsFile); err != nil {
		log.Warn().Err(err).Str("path", p.cfg.MetricsFile).Msg("could not write metrics textfile")
	}
}

// resultLabel classifies a conversion outcome for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errdefs.IsUsage(err):
		return "usage_error"
	case errdefs.IsInputNotFound(err):
		return "input_not_found"
	case errdefs.IsDownloadFailed(err):
		return "download_failed"
	case errdefs.IsOutputDirMissing(err):
		return "output_dir_missing"
	case errdefs.IsBinaryMissing(err):
		return "binary_missing"
	case errdefs.IsBuildFailed(err):
		return "build_failed"
	default:
		return "error"
	}
}
