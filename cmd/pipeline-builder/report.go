package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ritzau/pipeline-builder/pkg/analysis/local"
	"github.com/ritzau/pipeline-builder/pkg/analysis/remote"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/output"
	"github.com/spf13/cobra"
)

// errNotDAG makes check fail the process for a cyclic pipeline
var errNotDAG = errors.New("pipeline is not a DAG")

// readPipeline loads a {nodes, edges} export
func readPipeline(path string) (*model.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline: %w", err)
	}
	p := model.NewPipeline()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing pipeline %s: %w", path, err)
	}
	return p, nil
}

func newSubmitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit an exported pipeline to the analysis service and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPipeline(args[0])
			if err != nil {
				return err
			}

			client := remote.New(a.cfg.Analyzer.URL, remote.WithTimeout(a.cfg.Analyzer.Timeout))
			defer client.Close()

			res, err := client.Analyze(cmd.Context(), p)
			if err != nil {
				output.PrintSubmitError(cmd.ErrOrStderr(), client.Endpoint(), err)
				return fmt.Errorf("submission failed: %w", err)
			}
			output.PrintAnalysisReport(cmd.OutOrStdout(), client.Name(), res, nil)
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Analyze an exported pipeline locally and list its cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPipeline(args[0])
			if err != nil {
				return err
			}

			analyzer := local.New()
			res, err := analyzer.Analyze(cmd.Context(), p)
			if err != nil {
				return err
			}
			found, err := local.Cycles(p)
			if err != nil {
				return err
			}
			output.PrintAnalysisReport(cmd.OutOrStdout(), analyzer.Name(), res, found)
			if !res.IsDAG {
				return errNotDAG
			}
			return nil
		},
	}
}
