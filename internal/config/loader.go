package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// File holds the settings a configuration file may carry.
// Zero values mean "unspecified" and leave the lower-precedence value in place.
type File struct {
	OutputDir       string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	DownloadDir     string `json:"download_dir" yaml:"download_dir" toml:"download_dir"`
	BinDir          string `json:"bin_dir" yaml:"bin_dir" toml:"bin_dir"`
	RuntimeStub     string `json:"runtime_stub" yaml:"runtime_stub" toml:"runtime_stub"`
	AlignTool       string `json:"align_tool" yaml:"align_tool" toml:"align_tool"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MetricsFile     string `json:"metrics_file" yaml:"metrics_file" toml:"metrics_file"`
	DownloadTimeout int    `json:"download_timeout" yaml:"download_timeout" toml:"download_timeout"`
	AlignTimeout    int    `json:"align_timeout" yaml:"align_timeout" toml:"align_timeout"`
	TestTimeout     int    `json:"test_timeout" yaml:"test_timeout" toml:"test_timeout"`
	TestTokens      int    `json:"test_tokens" yaml:"test_tokens" toml:"test_tokens"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml, and the extensionless shell-style
// file written by the installer (KEY="value" lines).
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &f); err != nil {
			return f, err
		}
	case ".json":
		if err := json.Unmarshal(b, &f); err != nil {
			return f, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &f); err != nil {
			return f, err
		}
	case "", ".conf", ".env":
		return loadShell(b)
	default:
		return f, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return f, nil
}

// shellKeys maps installer variable names onto File fields.
var shellKeys = map[string]func(*File, string) error{
	"OUTPUT_DIR":       func(f *File, v string) error { f.OutputDir = v; return nil },
	"DOWNLOAD_DIR":     func(f *File, v string) error { f.DownloadDir = v; return nil },
	"BIN_DIR":          func(f *File, v string) error { f.BinDir = v; return nil },
	"RUNTIME_STUB":     func(f *File, v string) error { f.RuntimeStub = v; return nil },
	"ALIGN_TOOL":       func(f *File, v string) error { f.AlignTool = v; return nil },
	"LOG_LEVEL":        func(f *File, v string) error { f.LogLevel = v; return nil },
	"METRICS_FILE":     func(f *File, v string) error { f.MetricsFile = v; return nil },
	"DOWNLOAD_TIMEOUT": func(f *File, v string) error { return atoiInto(&f.DownloadTimeout, v) },
	"ALIGN_TIMEOUT":    func(f *File, v string) error { return atoiInto(&f.AlignTimeout, v) },
	"TEST_TIMEOUT":     func(f *File, v string) error { return atoiInto(&f.TestTimeout, v) },
	"TEST_TOKENS":      func(f *File, v string) error { return atoiInto(&f.TestTokens, v) },
}

func loadShell(b []byte) (File, error) {
	var f File
	env, err := gotenv.StrictParse(bytes.NewReader(b))
	if err != nil {
		return f, err
	}
	for k, v := range env {
		set, ok := shellKeys[strings.ToUpper(k)]
		if !ok {
			continue
		}
		if err := set(&f, v); err != nil {
			return f, fmt.Errorf("%s: %w", k, err)
		}
	}
	return f, nil
}

func atoiInto(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
