// Package main is the entry point for factorize.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"factorize/internal/api"
	"factorize/internal/collector"
	"factorize/internal/config"
	"factorize/internal/factor"
	"factorize/internal/logger"
	"factorize/internal/pipeline"
)

var (
	version = "dev"
)

const (
	exitOK      = 0
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	workers       int
	queueCapacity int
	method        string
	format        string
	configFile    string
	envFile       string
	logLevel      string
	logJSON       bool
	stats         bool
	showVersion   bool
	serveAddr     string
	inputFile     string
	outputFile    string

	set map[string]bool // flags given explicitly
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("factorize", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVar(&opts.workers, "t", 3, "number of worker threads (> 0)")
	fs.IntVar(&opts.queueCapacity, "q", 128, "work queue capacity (> 0)")
	fs.StringVar(&opts.method, "method", factor.MethodTrial, "factorization method (trial, rho)")
	fs.StringVar(&opts.format, "format", string(collector.FormatText), "output format (text, json, yaml)")
	fs.StringVar(&opts.configFile, "config", "", "config file path (YAML/JSON)")
	fs.StringVar(&opts.envFile, "env", ".env", "dotenv file with FACTORIZE_* variables (ignored if missing)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON")
	fs.BoolVar(&opts.stats, "stats", false, "print a run summary to stderr")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version")
	fs.StringVar(&opts.serveAddr, "serve", "", "serve the HTTP API on this address instead of reading input (e.g. :8080)")
	fs.StringVar(&opts.inputFile, "input", "", "read input from this file instead of stdin")
	fs.StringVar(&opts.outputFile, "output", "", "write results to this file instead of stdout")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `factorize - concurrent prime factorization

Reads whitespace-separated (label, number) pairs and prints each label
followed by its prime factors. Reading stops at the first malformed pair.

Usage:
  factorize [-t num-worker] [options] < input

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Examples:
  # factorize with 8 workers
  echo "a 12 b 97" | factorize -t 8

  # Pollard rho, JSON lines, with a run summary
  factorize -method rho -format json -stats < numbers.txt

  # settings from a file
  factorize -config factorize.yaml < numbers.txt

  # HTTP API
  factorize -serve :8080
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	return opts, nil
}

// settings is the merged result of defaults, config file, environment and flags.
type settings struct {
	pipeline  pipeline.Config
	logLevel  logger.Level
	logJSON   bool
	stats     bool
	serveAddr string
}

func buildSettings(opts *options) (*settings, error) {
	fileConfig := &config.FileConfig{}

	// 1. config file
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
		fileConfig = loaded
	}

	// 2. environment
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	if err := fileConfig.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	// 3. flags given explicitly
	if opts.set["log-level"] || fileConfig.Log.Level == "" {
		fileConfig.Log.Level = opts.logLevel
	}
	if opts.set["log-json"] {
		fileConfig.Log.JSON = opts.logJSON
	}
	if opts.set["stats"] {
		fileConfig.Stats = opts.stats
	}
	if opts.set["serve"] {
		fileConfig.Server.Addr = opts.serveAddr
	}
	if opts.set["method"] {
		fileConfig.Method = opts.method
	}
	if opts.set["format"] {
		fileConfig.Format = opts.format
	}

	pc, err := fileConfig.ToPipelineConfig()
	if err != nil {
		return nil, err
	}
	if opts.set["t"] {
		pc.Workers = opts.workers
	}
	if opts.set["q"] {
		pc.QueueCapacity = opts.queueCapacity
	}
	if err := pc.Validate(); err != nil {
		return nil, err
	}

	level, err := fileConfig.LogLevel()
	if err != nil {
		return nil, err
	}

	return &settings{
		pipeline:  pc,
		logLevel:  level,
		logJSON:   fileConfig.Log.JSON,
		stats:     fileConfig.Stats,
		serveAddr: fileConfig.Server.Addr,
	}, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger.SetDefault(logger.New(stderr, logger.LevelWarn))

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "factorize version %s\n", version)
		return exitOK
	}

	s, err := buildSettings(opts)
	if err != nil {
		logger.Error("", "configuration error: %v", err)
		return exitFailure
	}

	if s.logJSON {
		logger.SetDefault(logger.NewJSON(stderr, s.logLevel))
	} else {
		logger.Default.SetLevel(s.logLevel)
	}

	if s.serveAddr != "" {
		if err := runServer(s); err != nil {
			logger.Error("", "server error: %v", err)
			return exitFailure
		}
		return exitOK
	}

	if err := runPipeline(s, opts, stdin, stdout, stderr); err != nil {
		logger.Error("", "%v", err)
		return exitFailure
	}
	return exitOK
}

func runPipeline(s *settings, opts *options, stdin io.Reader, stdout, stderr io.Writer) error {
	in := stdin
	if opts.inputFile != "" {
		f, err := os.Open(opts.inputFile)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	out := stdout
	var outFile *os.File
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		outFile = f
		out = f
	}

	report, err := pipeline.New(s.pipeline).Run(in, out)

	if outFile != nil {
		if cerr := outFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}
	if s.stats && report != nil {
		fmt.Fprint(stderr, report.Summary())
	}
	return err
}

// runServer serves the HTTP API until SIGINT or SIGTERM.
func runServer(s *settings) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			logger.Info("", "signal received, shutting down server")
			cancel()
		case <-ctx.Done():
		}
	}()

	server := api.NewServer(s.serveAddr, s.pipeline)
	return server.Start(ctx)
}
