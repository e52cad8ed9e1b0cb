// Package main is the entry point for the scriptbridge command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/scriptbridge/internal/app"
	"github.com/dshills/scriptbridge/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		select {
		case <-signals:
			application.Shutdown()
		case <-application.Done():
		}
	}()

	if err := application.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func parseFlags() app.Options {
	var opts app.Options
	var showVersion bool
	var showHelp bool
	var showSchema bool

	defaultConfig := os.Getenv(config.EnvPrefix + "CONFIG")

	flag.StringVar(&opts.ConfigPath, "config", defaultConfig, "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", defaultConfig, "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.IntVar(&opts.Debug, "debug", 0, "Script debug level (0-3)")
	flag.IntVar(&opts.Debug, "d", 0, "Script debug level (shorthand)")
	flag.BoolVar(&opts.Quiet, "q", false, "Load startup scripts quietly")
	flag.BoolVar(&showSchema, "schema", false, "Print the JSON schema of the configuration file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "scriptbridge - Lua script host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: scriptbridge [options] [scripts...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands are read from standard input, one per line:\n")
		fmt.Fprintf(os.Stderr, "  list, listfull, load, unload, reload, autoload, dump, set, help, quit\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scriptbridge                     Start with the configured scripts\n")
		fmt.Fprintf(os.Stderr, "  scriptbridge hello.lua           Load a script at startup\n")
		fmt.Fprintf(os.Stderr, "  scriptbridge -debug 2 -q a.lua   Quiet load with debug output\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showSchema {
		data, err := config.Schema()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("scriptbridge %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}
	if opts.Debug < 0 || opts.Debug > 3 {
		fmt.Fprintf(os.Stderr, "Error: invalid debug level %d (must be 0 to 3)\n", opts.Debug)
		os.Exit(1)
	}

	// Remaining arguments are scripts to load
	opts.Scripts = flag.Args()

	return opts
}
