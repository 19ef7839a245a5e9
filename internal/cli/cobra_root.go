package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"makellamafile/internal/config"
	"makellamafile/internal/errdefs"
	"makellamafile/internal/logging"
	"makellamafile/internal/pipeline"
)

const commandName = "makellamafile"

type options struct {
	outputDir   string
	name        string
	description string
	test        bool
	prompt      string
	noDocs      bool
	configPath  string
	logLevel    string
	metricsFile string
	version     bool
}

// fnNewPipeline is swapped in tests.
var fnNewPipeline = func(cfg config.Config, opts ...pipeline.Option) runner {
	return pipeline.New(cfg, opts...)
}

type runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Artifact, error)
}

// buildRootCmd constructs the single-command tree bound to o.
func buildRootCmd(stdout, stderr io.Writer, o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   commandName + " [OPTIONS] <GGUF_FILE_OR_URL>",
		Short: "Package a GGUF model into a self-contained llamafile",
		Long: "Package a GGUF model (local file or URL) into a self-contained llamafile.\n\n" +
			"The artifact is written to <output-dir>/<name>/<name>.llamafile together with a README.\n" +
			"Existing names are never overwritten; _v1, _v2, ... suffixes are added instead.",
		Example: "  " + commandName + " ./TinyLLama-v0.1-5M-F16.gguf\n" +
			"  " + commandName + " -n tiny -d \"Smallest test model\" -t ./model.gguf\n" +
			"  " + commandName + " https://huggingface.co/org/repo/resolve/main/model.gguf?download=true",
		Args:                  cobra.ArbitraryArgs,
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.version {
				_, err := fmt.Fprintln(stdout, commandName, Version)
				return err
			}
			if cmd.Flags().Changed("prompt") {
				o.test = true
			}
			return convert(cmd.Context(), o, args, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errdefs.ErrUsage(err.Error())
	})

	f := root.Flags()
	f.StringVarP(&o.outputDir, "output-dir", "o", "", "Directory receiving <name>/<name>.llamafile (default "+config.DefaultOutputDir+")")
	f.StringVarP(&o.name, "name", "n", "", "Model name; defaults to the input file name without extension")
	f.StringVarP(&o.description, "description", "d", "", "Description written into the README")
	f.BoolVarP(&o.test, "test", "t", false, "Run the llamafile with a short prompt after building")
	f.StringVarP(&o.prompt, "prompt", "p", "", "Prompt for the test run (implies --test)")
	f.BoolVar(&o.noDocs, "no-docs", false, "Do not write README.md")
	f.StringVar(&o.configPath, "config", "", "Config file (defaults "+config.EnvConfig+" or "+config.DefaultConfigPath+")")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults "+config.EnvLogLevel+" or info)")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics here after the run")
	f.BoolVar(&o.version, "version", false, "Print the version and exit")
	return root
}

// convert resolves configuration and runs one conversion for the first
// positional argument.
func convert(ctx context.Context, o *options, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errdefs.ErrUsage("missing input file or URL")
	}
	cfg, err := config.Resolve(config.Overrides{
		ConfigPath:  o.configPath,
		OutputDir:   o.outputDir,
		LogLevel:    o.logLevel,
		MetricsFile: o.metricsFile,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(stderr, cfg.LogLevel)
	if len(args) > 1 {
		log.Warn().Strs("ignored", args[1:]).Msg("extra arguments ignored, only the first input is converted")
	}

	req := pipeline.Request{
		InputSpec:      args[0],
		OutputDir:      cfg.OutputDir,
		ModelName:      o.name,
		Description:    o.description,
		TestAfterBuild: o.test,
		TestPrompt:     o.prompt,
		SkipDocs:       o.noDocs,
	}
	p := fnNewPipeline(cfg, pipeline.WithLogger(log), pipeline.WithOutput(stdout))
	_, err = p.Run(ctx, req)
	return err
}
