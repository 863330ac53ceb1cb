package main

import (
	"fmt"

	"github.com/ritzau/pipeline-builder/pkg/config"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands once flags are parsed
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pipeline-builder",
		Short:         "Build pipelines of typed nodes and check that they form a DAG",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", config.DefaultFile, "Path to the TOML config file")
	pf.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	pf.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	pf.Bool("log-json", false, "Log as JSON instead of the compact format")
	pf.String("analyzer-url", "", "Analysis endpoint that receives submitted pipelines")
	pf.Duration("analyzer-timeout", 0, "Timeout of one submission")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newAnalyzerCmd(a))
	root.AddCommand(newSubmitCmd(a))
	root.AddCommand(newCheckCmd(a))
	return root
}

// load reads the configuration for cmd and applies the logging settings
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	logging.Configure(logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt), cfg.Log.JSON)
	logging.Debug("configuration loaded", "file", cfg.File, "analyzer", cfg.Analyzer.URL)
	return nil
}
