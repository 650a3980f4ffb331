// Package main is the researchdesk command line: harvesting papers from
// arXiv, running the NATS ingest worker, store maintenance and offline QA.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/researchdesk/engine/app"
	"github.com/WessleyAI/researchdesk/pkg/config"
	"github.com/WessleyAI/researchdesk/pkg/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// cli carries the state shared by every subcommand.
type cli struct {
	cfgPath  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:     "researchctl",
		Short:   "Operate the researchdesk paper store",
		Version: version,
		Long: `researchctl harvests papers from arXiv into the paper store, runs the
ingest worker that consumes harvested papers from NATS, maintains stored
papers and answers questions against them offline.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v := config.New()
			if cmd.Flags().Changed("log-level") {
				v.Set("log.level", c.logLevel)
			}
			cfg, err := config.LoadWith(v, c.cfgPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logging.NewWithWriter(cmd.ErrOrStderr(), "researchctl", cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default: ./researchdesk.yaml or $RESEARCHDESK_CONFIG)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		c.harvestCmd(),
		c.ingestCmd(),
		c.papersCmd(),
		c.askCmd(),
	)
	return root
}

// openApp connects the configured store.
func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, c.cfg, c.logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
