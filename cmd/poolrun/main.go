// Command poolrun runs a batch of tasks on a thread pool described by an
// HCL config file and prints a summary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// exitError carries a specific process exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.msg)
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	logLevel    string
	metricsAddr string
	producers   int
}

func parseArgs(args []string, output io.Writer) (*options, bool, error) {
	fs := flag.NewFlagSet("poolrun", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
poolrun - run a batch of tasks on a fixed-size thread pool.

Usage:
  poolrun [options] CONFIG

Options:
`)
		fs.PrintDefaults()
	}

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to the HCL config file.")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error.")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running. Empty disables.")
	fs.IntVar(&o.producers, "producers", 4, "Number of goroutines posting tasks.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &exitError{code: 2, msg: err.Error()}
	}
	if o.configPath == "" && fs.NArg() > 0 {
		o.configPath = fs.Arg(0)
	}
	if o.configPath == "" {
		fs.Usage()
		return nil, true, nil
	}
	if o.producers < 1 {
		return nil, false, &exitError{code: 2, msg: "-producers must be >= 1"}
	}
	return o, false, nil
}

func run(outW, errW io.Writer, args []string) error {
	o, exit, err := parseArgs(args, errW)
	if err != nil || exit {
		return err
	}

	logger, err := newLogger(o.logLevel, errW)
	if err != nil {
		return &exitError{code: 2, msg: err.Error()}
	}
	defer func() { _ = logger.Sync() }()

	return runJob(outW, logger, o)
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	cfg := zap.NewProductionEncoderConfig()
	return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), lvl)), nil
}
