// Package input turns a command-line input spec into a readable local file,
// downloading it first when it is an HTTP(S) URL.
package input

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"makellamafile/internal/common/fsutil"
	"makellamafile/internal/errdefs"
)

// downloadQuerySuffix is appended by Hugging Face "download" links.
const downloadQuerySuffix = "?download=true"

// Resolved is a local model file ready for the pipeline.
type Resolved struct {
	LocalPath     string
	WasDownloaded bool
}

// Fetcher stores the body at rawURL into dest, overwriting dest.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) error
}

// Resolver resolves input specs. DownloadDir must exist or be creatable.
type Resolver struct {
	DownloadDir string
	Fetcher     Fetcher
	Log         zerolog.Logger
}

// IsURL reports whether spec uses an http or https scheme.
func IsURL(spec string) bool {
	s := strings.ToLower(spec)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// DownloadName derives the stored file name for a URL: the trailing
// "?download=true" is dropped and the last path segment is kept. It returns
// "" when the URL has no usable path segment.
func DownloadName(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSuffix(rawURL, downloadQuerySuffix))
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	switch base {
	case "", ".", "..", "/":
		return ""
	}
	return base
}

// Resolve returns the local file for spec.
func (r *Resolver) Resolve(ctx context.Context, spec string) (Resolved, error) {
	if IsURL(spec) {
		return r.download(ctx, spec)
	}
	abs, err := filepath.Abs(spec)
	if err != nil {
		return Resolved{}, errdefs.ErrInputNotFound(spec)
	}
	if !fsutil.IsRegularFile(abs) {
		return Resolved{}, errdefs.ErrInputNotFound(spec)
	}
	return Resolved{LocalPath: abs}, nil
}

func (r *Resolver) download(ctx context.Context, spec string) (Resolved, error) {
	cleaned := strings.TrimSuffix(spec, downloadQuerySuffix)
	name := DownloadName(spec)
	if name == "" {
		return Resolved{}, errdefs.ErrDownloadFailed(spec, errInvalidName)
	}
	dest, err := filepath.Abs(filepath.Join(r.DownloadDir, name))
	if err != nil {
		return Resolved{}, errdefs.ErrDownloadFailed(spec, err)
	}
	r.Log.Info().Str("url", cleaned).Str("dest", dest).Msg("downloading model")
	if err := r.Fetcher.Fetch(ctx, cleaned, dest); err != nil {
		return Resolved{}, errdefs.ErrDownloadFailed(spec, err)
	}
	if !fsutil.IsRegularFile(dest) {
		return Resolved{}, errdefs.ErrDownloadFailed(spec, errNoFile)
	}
	return Resolved{LocalPath: dest, WasDownloaded: true}, nil
}
