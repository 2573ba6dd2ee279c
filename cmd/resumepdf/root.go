package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
	"github.com/porticus-lab/go-resume-pdf/internal/config"
)

// envConfig names a config file used when --config is absent.
const envConfig = "RESUMEPDF_CONFIG"

// browserFlags override the [browser] and [layout] config sections.
type browserFlags struct {
	chromePath string
	noSandbox  bool
	download   bool
	engines    []string
	timeout    time.Duration
	pageSize   string
	scale      float64
}

// app carries the streams and global flags shared by every command.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	verbose    bool
	configPath string
	browser    browserFlags
	lookupEnv  func(string) (string, bool)
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, lookupEnv: os.LookupEnv}
	root := a.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	code := exitCodeFor(err)
	switch code {
	case ExitSuccess:
	case ExitInterrupted:
		fmt.Fprintln(stderr, "interrupted")
	default:
		fmt.Fprintln(stderr, "error:", errorMessage(err))
	}
	return code
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "resumepdf",
		Short:         "Render resume markup into paginated PDF documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := log.InfoLevel
			if a.verbose {
				level = log.DebugLevel
			}
			logger := newLogger(a.stderr, level)
			if _, err := maxprocs.Set(maxprocs.Logger(logger.Debugf)); err != nil {
				logger.Debug("automaxprocs", "err", err)
			}
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (.yaml, .yml or .toml); defaults to $"+envConfig)
	pf.AddFlagSet(a.browser.flagSet())

	root.AddCommand(
		a.exportCmd(),
		a.generateCmd(),
		a.sanitizeCmd(),
		a.inspectCmd(),
		a.serveCmd(),
	)
	return root
}

func (f *browserFlags) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("browser", pflag.ContinueOnError)
	fs.StringVar(&f.chromePath, "chrome-path", "", "path to a Chrome or Chromium binary")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the browser sandbox")
	fs.BoolVar(&f.download, "download-browser", false, "download Chromium when none is installed")
	fs.StringSliceVar(&f.engines, "engine", nil, "rendering engines to try in order (chromedp, rod)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-render timeout")
	fs.StringVar(&f.pageSize, "page-size", "", "PDF page size (a3, a4, a5, letter, legal, tabloid)")
	fs.Float64Var(&f.scale, "scale", 0, "capture scale factor")
	return fs
}

// apply copies the flags the user set onto cfg.
func (f *browserFlags) apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("chrome-path") {
		cfg.Browser.ChromePath = f.chromePath
	}
	if flags.Changed("no-sandbox") {
		cfg.Browser.NoSandbox = f.noSandbox
	}
	if flags.Changed("download-browser") {
		cfg.Browser.AutoDownload = f.download
	}
	if flags.Changed("engine") {
		cfg.Browser.Engines = f.engines
	}
	if flags.Changed("timeout") {
		cfg.Browser.Timeout = f.timeout.String()
	}
	if flags.Changed("page-size") {
		cfg.Layout.PageSize = f.pageSize
	}
	if flags.Changed("scale") {
		cfg.Layout.Scale = f.scale
	}
}

// loadConfig resolves settings from defaults, the config file, the
// environment and finally flags, each overriding the last.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path, _ = a.lookupEnv(envConfig)
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
		loggerFromContext(cmd.Context()).Debug("config loaded", "path", path)
	}
	if err := cfg.ApplyEnv(a.lookupEnv); err != nil {
		return nil, err
	}
	a.browser.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPipeline starts a pipeline configured from cfg.
func (a *app) newPipeline(ctx context.Context, cfg *config.Config, extra ...resumepdf.Option) (*resumepdf.Pipeline, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	logger := loggerFromContext(ctx)
	opts = append(opts, resumepdf.WithLogger(logger))
	opts = append(opts, extra...)

	p, err := resumepdf.New(opts...)
	if err != nil {
		return nil, err
	}
	logger.Debug("engine ready", "engine", p.EngineName())
	return p, nil
}

// readInput reads the named file, or stdin for "-".
func (a *app) readInput(name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(name) // #nosec G304 -- input path is user-provided
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: file not found", errReadInput, name)
		}
		return "", fmt.Errorf("%w %s: %w", errReadInput, name, err)
	}
	return string(data), nil
}

// exactArgs wraps cobra.ExactArgs so that arity errors map to ExitUsage.
func exactArgs(n int) cobra.PositionalArgs {
	check := cobra.ExactArgs(n)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}
