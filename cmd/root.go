// Package cmd implements the easctl CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/internal/app"
	"github.com/zepben/eas-go/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Host        string
	Port        int
	AccessToken string
	Format      string
	Out         string
	Timeout     string
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `easctl` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "easctl",
	Short: "easctl — Evolve App Server (EAS) CLI",
	Long: `easctl is a command-line tool for driving an Evolve App Server:
uploading studies, running hosting capacity work packages and calibrations,
exporting OpenDSS models, and managing ingestor runs.

Quick start:
  easctl config init                 # create a config.json with your server details
  easctl wp progress                 # show current work package progress
  easctl opendss list                # list OpenDSS model exports`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(config.Flags{
		Host:        globalFlags.Host,
		Port:        globalFlags.Port,
		AccessToken: globalFlags.AccessToken,
	})
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		if d, err2 := time.ParseDuration(globalFlags.Timeout); err2 == nil {
			cfg.Timeout = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Host, "host", "",
		"EAS server host (overrides env EAS_HOST and config.json)")
	pf.IntVar(&globalFlags.Port, "port", 0,
		"EAS server port (default: protocol default)")
	pf.StringVar(&globalFlags.AccessToken, "access-token", "",
		"pre-issued access token (overrides env EAS_ACCESS_TOKEN and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show extra detail after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests (authorization header redacted)")
}
