// Package config resolves the immutable settings a conversion runs with.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"makellamafile/internal/common/fsutil"
)

// Defaults mirror the directories the installer creates.
const (
	DefaultOutputDir   = "~/models/llamafiles"
	DefaultDownloadDir = "~/models/huggingface"
	DefaultBinDir      = "/opt/homebrew/share/makellamafile/bin"
	DefaultConfigPath  = "~/.config/makellamafile/config"
	DefaultLogLevel    = "info"
	DefaultTestTokens  = 50
	DefaultTestTimeout = 300 * time.Second

	StubName  = "llamafile"
	AlignName = "zipalign"
)

// Environment variables consulted after the config file.
const (
	EnvConfig      = "MAKELLAMAFILE_CONFIG"
	EnvOutputDir   = "MAKELLAMAFILE_OUTPUT_DIR"
	EnvDownloadDir = "MAKELLAMAFILE_DOWNLOAD_DIR"
	EnvBinDir      = "MAKELLAMAFILE_BIN_DIR"
	EnvLogLevel    = "MAKELLAMAFILE_LOG_LEVEL"
	EnvMetricsFile = "MAKELLAMAFILE_METRICS_FILE"
)

// Config is resolved once per invocation and passed by value afterwards.
type Config struct {
	OutputDir       string
	DownloadDir     string
	RuntimeStub     string
	AlignTool       string
	LogLevel        string
	MetricsFile     string
	DownloadTimeout time.Duration
	AlignTimeout    time.Duration
	TestTimeout     time.Duration
	TestTokens      int
}

// Overrides carries values given on the command line; empty means unset.
type Overrides struct {
	ConfigPath  string
	OutputDir   string
	LogLevel    string
	MetricsFile string
}

// Resolve layers defaults, the config file, the environment and flag overrides,
// then expands '~' in every path. A missing default config file is not an error;
// a missing explicitly named one is.
func Resolve(o Overrides) (Config, error) {
	f := File{
		OutputDir:   DefaultOutputDir,
		DownloadDir: DefaultDownloadDir,
		BinDir:      DefaultBinDir,
		LogLevel:    DefaultLogLevel,
		TestTokens:  DefaultTestTokens,
		TestTimeout: int(DefaultTestTimeout / time.Second),
	}

	path := o.ConfigPath
	explicit := path != ""
	if !explicit {
		if v := os.Getenv(EnvConfig); v != "" {
			path, explicit = v, true
		} else {
			path = DefaultConfigPath
		}
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return Config{}, err
	}
	if explicit || fsutil.PathExists(p) {
		loaded, err := Load(p)
		if err != nil {
			return Config{}, err
		}
		merge(&f, loaded)
	}

	merge(&f, File{
		OutputDir:   os.Getenv(EnvOutputDir),
		DownloadDir: os.Getenv(EnvDownloadDir),
		BinDir:      os.Getenv(EnvBinDir),
		LogLevel:    os.Getenv(EnvLogLevel),
		MetricsFile: os.Getenv(EnvMetricsFile),
	})
	merge(&f, File{OutputDir: o.OutputDir, LogLevel: o.LogLevel, MetricsFile: o.MetricsFile})

	return finish(f)
}

// merge copies every non-zero field of src over dst.
func merge(dst *File, src File) {
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if src.DownloadDir != "" {
		dst.DownloadDir = src.DownloadDir
	}
	if src.BinDir != "" {
		dst.BinDir = src.BinDir
		// A new bin dir re-derives the tools unless they are named explicitly.
		dst.RuntimeStub, dst.AlignTool = "", ""
	}
	if src.RuntimeStub != "" {
		dst.RuntimeStub = src.RuntimeStub
	}
	if src.AlignTool != "" {
		dst.AlignTool = src.AlignTool
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.MetricsFile != "" {
		dst.MetricsFile = src.MetricsFile
	}
	if src.DownloadTimeout > 0 {
		dst.DownloadTimeout = src.DownloadTimeout
	}
	if src.AlignTimeout > 0 {
		dst.AlignTimeout = src.AlignTimeout
	}
	if src.TestTimeout > 0 {
		dst.TestTimeout = src.TestTimeout
	}
	if src.TestTokens > 0 {
		dst.TestTokens = src.TestTokens
	}
}

func finish(f File) (Config, error) {
	if f.RuntimeStub == "" {
		f.RuntimeStub = filepath.Join(f.BinDir, StubName)
	}
	if f.AlignTool == "" {
		f.AlignTool = filepath.Join(f.BinDir, AlignName)
	}
	cfg := Config{
		LogLevel:        strings.ToLower(strings.TrimSpace(f.LogLevel)),
		DownloadTimeout: seconds(f.DownloadTimeout),
		AlignTimeout:    seconds(f.AlignTimeout),
		TestTimeout:     seconds(f.TestTimeout),
		TestTokens:      f.TestTokens,
	}
	paths := []struct {
		in  string
		out *string
	}{
		{f.OutputDir, &cfg.OutputDir},
		{f.DownloadDir, &cfg.DownloadDir},
		{f.RuntimeStub, &cfg.RuntimeStub},
		{f.AlignTool, &cfg.AlignTool},
		{f.MetricsFile, &cfg.MetricsFile},
	}
	for _, p := range paths {
		v, err := fsutil.ExpandHome(strings.TrimSpace(p.in))
		if err != nil {
			return Config{}, err
		}
		*p.out = v
	}
	return cfg, nil
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// String renders the settings for debug logging.
func (c Config) String() string {
	return "output_dir=" + c.OutputDir +
		" download_dir=" + c.DownloadDir +
		" runtime_stub=" + c.RuntimeStub +
		" align_tool=" + c.AlignTool +
		" test_tokens=" + strconv.Itoa(c.TestTokens)
}
