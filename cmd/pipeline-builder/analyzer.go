package main

import (
	"github.com/ritzau/pipeline-builder/pkg/analysis/local"
	"github.com/ritzau/pipeline-builder/pkg/analysis/service"
	"github.com/spf13/cobra"
)

func newAnalyzerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyzer",
		Short: "Run the analysis service that counts nodes and edges and detects cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := service.New(local.New(), a.cfg.Analyzer.Origins)
			return svc.Listen(cmd.Context(), a.cfg.Analyzer.Listen)
		},
	}

	cmd.Flags().String("analyzer-listen", ":8000", "Listen address of the analysis service")
	cmd.Flags().StringSlice("analyzer-origins", nil, "Origins allowed by CORS")
	return cmd
}
