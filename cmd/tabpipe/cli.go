package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/tabkit/pipeline/config"
)

// cliOptions mirrors the teacher's flat go-flags option struct, one field
// per overridable piece of config.Config.
type cliOptions struct {
	ConfigFile    string `long:"config" description:"YAML file with store/loader/writer configuration" value-name:"config_file"`
	StoreKind     string `long:"store" description:"Metadata store backend (memory, sql)" value-name:"kind"`
	StoreDriver   string `long:"store-driver" description:"SQL driver for the store backend (mysql, postgres, mssql, sqlite3)" value-name:"driver"`
	StoreDSN      string `long:"store-dsn" description:"DSN for the store backend" value-name:"dsn"`
	LoaderKind    string `long:"loader" description:"Table loader backend (memory, file, sql, http)" value-name:"kind"`
	LoaderBaseDir string `long:"loader-base-dir" description:"Base directory for the file loader" value-name:"dir"`
	WriterKind    string `long:"writer" description:"Output writer backend (file, sql)" value-name:"kind"`
	WriterBaseDir string `long:"writer-base-dir" description:"Base directory for the file writer" value-name:"dir"`
	Project       string `long:"project" description:"Project id to run" value-name:"project_id"`
	Period        string `long:"period" description:"Request period identifier" value-name:"period_id"`
	Scenario      string `long:"scenario" description:"Scenario fixture file to run instead of a live project" value-name:"scenario_file"`
	Verbose       bool   `long:"verbose" short:"v" description:"Enable debug logging and diagnostic dumps"`
	Help          bool   `long:"help" description:"Show this help"`

	// Command is the leading positional argument: "run" (default) executes
	// the project, "validate" compiles its expressions and resolvers without
	// running it.
	Command string
}

// parseOptions parses args, resolves config.yaml + CLI overrides, and
// returns the merged Config alongside the raw options (for Scenario/Verbose).
func parseOptions(args []string) (config.Config, cliOptions) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options] (run|validate)"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	opts.Command = "run"
	if len(rest) > 0 {
		opts.Command = rest[0]
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	base, err := config.ParseConfig(opts.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	override := config.Config{
		Store: config.StoreConfig{
			Kind:   opts.StoreKind,
			Driver: opts.StoreDriver,
			DSN:    opts.StoreDSN,
		},
		Loader: config.LoaderConfig{
			Kind:    opts.LoaderKind,
			BaseDir: opts.LoaderBaseDir,
		},
		Writer: config.WriterConfig{
			Kind:    opts.WriterKind,
			BaseDir: opts.WriterBaseDir,
		},
		ProjectID:     opts.Project,
		RequestPeriod: opts.Period,
	}

	return config.Merge(base, override), opts
}
