package main

import (
	"fmt"
	"time"

	"github.com/ritzau/pipeline-builder/pkg/analysis"
	"github.com/ritzau/pipeline-builder/pkg/analysis/remote"
	"github.com/ritzau/pipeline-builder/pkg/config"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/pubsub"
	"github.com/ritzau/pipeline-builder/pkg/store"
	"github.com/ritzau/pipeline-builder/pkg/watcher"
	"github.com/ritzau/pipeline-builder/pkg/web"
	"github.com/spf13/cobra"
)

const reloadQuietPeriod = 300 * time.Millisecond

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the builder API: canvas operations, autocomplete, submission and change streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			st := store.New()
			pub := pubsub.NewSSEPublisher(pubsub.DefaultTopics())
			defer pub.Close()

			client := remote.New(cfg.Analyzer.URL, remote.WithTimeout(cfg.Analyzer.Timeout))
			defer client.Close()

			runner := analysis.NewRunner(st, client, pub)
			srv := web.NewServer(st, runner, pub, web.WithEndpoint(client.Endpoint))

			if cfg.Watch {
				err := watcher.WatchAndReload(ctx, cfg.File, reloadQuietPeriod, func(watcher.ChangeEvent) error {
					return a.reload(cmd, client)
				})
				if err != nil {
					return fmt.Errorf("watching %s: %w", cfg.File, err)
				}
				logging.Info("watching config file", "path", cfg.File)
			}

			return srv.Start(ctx, cfg.Port)
		},
	}

	cmd.Flags().Int("port", 8080, "Port of the builder API")
	cmd.Flags().Bool("watch", false, "Reload the config file when it changes")
	return cmd
}

// reload re-reads the configuration and applies what can change while serving:
// the log level and the analysis endpoint
func (a *app) reload(cmd *cobra.Command, client *remote.Client) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logging.Configure(logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt), cfg.Log.JSON)
	if cfg.Analyzer.URL != client.Endpoint() {
		logging.Info("analysis endpoint changed", "from", client.Endpoint(), "to", cfg.Analyzer.URL)
		client.SetEndpoint(cfg.Analyzer.URL)
	}
	if cfg.Port != a.cfg.Port {
		logging.Warn("port changes take effect after a restart", "port", a.cfg.Port, "configured", cfg.Port)
	}
	return nil
}
