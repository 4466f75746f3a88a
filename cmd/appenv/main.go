package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/animalet/appenv/pkg/server"
	"github.com/animalet/appenv/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version information set during build
var (
	version = "dev"
)

const (
	exitSuccess = 0
	exitError   = 1
)

type options struct {
	configPath  string
	format      string
	listen      string
	serve       bool
	debug       bool
	showHelp    bool
	showVersion bool
}

func main() {
	os.Exit(runWithArgs(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	flags := flag.NewFlagSet("appenv", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.format, "format", string(settings.EnvExport), "Output format")
	flags.StringVar(&opts.listen, "listen", "", "Listen address, overrides the server module")
	flags.BoolVar(&opts.serve, "serve", false, "Serve the settings over HTTP")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	flags.BoolVar(&opts.showVersion, "version", false, "Show version information")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			opts.showHelp = true
			return opts, nil
		}
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %v", flags.Args())
	}
	if !slices.Contains(settings.ExportFormats(), settings.ExportFormat(opts.format)) {
		return nil, errors.Errorf("unsupported format %q, expected one of %v", opts.format, settings.ExportFormats())
	}
	return opts, nil
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `Usage: appenv [options]

Resolves the API base URL and application name for the current environment
and prints them, or serves them over HTTP.

Options:
  --config FILE     Path to configuration file (.yaml, .yml, .json, .toml, .xml).
                    Without it the PUBLIC_APP_* environment variables are read.
  --format FORMAT   Output format: %v (default "env")
  --serve           Serve the settings over HTTP instead of printing them
  --listen ADDR     Listen address, overrides the server module
  --debug           Enable debug mode
  --version         Show version information
  --help            Show this help

More information: https://github.com/animalet/appenv
`, settings.ExportFormats())
}

func setupLogging(debug bool, out io.Writer) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    false,
		TimeFormat: "2006-01-02 15:04:05",
	})
	server.SetDebug(debug)
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n\n", err)
		printUsage(stderr)
		return exitError
	}

	if opts.showHelp {
		printUsage(stdout)
		return exitSuccess
	}

	if opts.showVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", "appenv", version)
		return exitSuccess
	}

	setupLogging(opts.debug, stderr)
	if err := run(opts, stdout); err != nil {
		log.Error().Err(err).Msg("appenv failed")
		return exitError
	}
	return exitSuccess
}

func run(opts *options, stdout io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	s, err := settings.Load(cfg)
	if err != nil {
		return err
	}

	if !opts.serve {
		return settings.Export(stdout, s, settings.ExportFormat(opts.format))
	}

	serverCfg, err := serverConfig(cfg, opts.listen)
	if err != nil {
		return err
	}
	return server.NewServer(s, *serverCfg).StartAndWaitForSignal()
}
