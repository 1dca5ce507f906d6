// Package main provides the manifest command. It reads an executable's
// symbol table, matches it against a hazard catalog and prints or writes
// the resulting application manifest.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/isseis/go-app-manifest/internal/catalogsource"
	"github.com/isseis/go-app-manifest/internal/config"
	"github.com/isseis/go-app-manifest/internal/logging"
	"github.com/isseis/go-app-manifest/internal/producer"
	"github.com/isseis/go-app-manifest/internal/terminal"
)

var (
	errMissingBinary  = errors.New("a binary path is required (-b)")
	errMissingCatalog = errors.New("a catalog source is required (-l)")
)

type cliOptions struct {
	binary         string
	catalog        string
	output         string
	configPath     string
	envFile        string
	appName        string
	appDescription string
	dedup          string
	arch           string
	logDir         string
	verbose        bool
	quiet          bool
	noColor        bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	session, err := logging.Setup(logging.Options{
		Level:   level,
		Console: stderr,
		LogDir:  cfg.Log.Dir,
		Terminal: terminal.Options{
			DetectorOptions:   terminal.DetectorOptions{ForceNonInteractive: opts.quiet},
			PreferenceOptions: terminal.PreferenceOptions{DisableColor: opts.noColor},
		},
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: failed to set up logging: %v\n", err)
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()

	source, err := catalogsource.New(cfg.CatalogSourceConfig())
	if err != nil {
		session.ReportFailure(stderr, "config", err)
		return 1
	}

	p := producer.New(source, producer.Options{
		Matcher: cfg.MatcherConfig(),
		Meta:    cfg.Meta(),
		Arch:    cfg.Binary.Arch,
		Write:   true,
		Stdout:  stdout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := p.Run(ctx, producer.Request{
		BinaryPath:    opts.binary,
		CatalogSource: opts.catalog,
		OutputPath:    opts.output,
	}); err != nil {
		kind, _ := producer.KindOf(err)
		session.ReportFailure(stderr, kind.String(), err)
		return 1
	}
	return 0
}

// parseArgs prints the usage for every argument error; the caller only
// reports the error itself.
func parseArgs(args []string, stderr io.Writer) (*cliOptions, error) {
	var opts cliOptions

	fs := flag.NewFlagSet("manifest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	fs.StringVar(&opts.binary, "b", "", "Path to the binary to analyze")
	fs.StringVar(&opts.binary, "binary", "", "Long form of -b")
	fs.StringVar(&opts.catalog, "l", "", "Catalog source: file://<path>, a URL, s3://<bucket>/<key> or a catalog version")
	fs.StringVar(&opts.catalog, "library", "", "Long form of -l")
	fs.StringVar(&opts.output, "o", "", "Write the manifest to this file instead of standard output")
	fs.StringVar(&opts.output, "output", "", "Long form of -o")
	fs.StringVar(&opts.configPath, "c", "", "Path to a TOML configuration file")
	fs.StringVar(&opts.configPath, "config", "", "Long form of -c")
	fs.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Dotenv file with MANIFEST_* variables; ignored when missing")
	fs.StringVar(&opts.appName, "app-name", "", "Application name written into the manifest")
	fs.StringVar(&opts.appDescription, "app-description", "", "Application description written into the manifest")
	fs.StringVar(&opts.dedup, "dedup", "", "Duplicate policy: keep or by-api-name")
	fs.StringVar(&opts.arch, "arch", "", "Slice of a universal Mach-O binary to analyze, e.g. x86_64 or arm64")
	fs.StringVar(&opts.logDir, "log-dir", "", "Directory for a JSON log file of this run")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.BoolVar(&opts.verbose, "verbose", false, "Long form of -v")
	fs.BoolVar(&opts.quiet, "quiet", false, "Plain log output even on a terminal")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	switch {
	case fs.NArg() > 0:
		err = fmt.Errorf("unexpected arguments: %v", fs.Args())
	case opts.binary == "":
		err = errMissingBinary
	case opts.catalog == "":
		err = errMissingCatalog
	}
	if err != nil {
		fs.Usage()
		return nil, err
	}
	return &opts, nil
}

// loadConfig layers the env file, the config file, the environment and
// finally the command line flags.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.appName != "" {
		cfg.App.Name = opts.appName
	}
	if opts.appDescription != "" {
		cfg.App.Description = opts.appDescription
	}
	if opts.dedup != "" {
		cfg.Matcher.Duplicates = opts.dedup
	}
	if opts.arch != "" {
		cfg.Binary.Arch = opts.arch
	}
	if opts.logDir != "" {
		cfg.Log.Dir = opts.logDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, "Usage: %s -b <binary> -l <catalog> [flags]\n", filepath.Base(os.Args[0]))
	fs.PrintDefaults()
}
