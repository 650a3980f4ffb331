package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/researchdesk/engine/ingest"
	"github.com/WessleyAI/researchdesk/pkg/fn"
)

func (c *cli) ingestCmd() *cobra.Command {
	var (
		seenSize int
		seenTTL  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Consume harvested paper events from NATS into the store",
		Long: `Ingest subscribes to nats.subject in queue group nats.queue and stores each
paper event. An empty nats.queue subscribes without a group. Redelivered
events are skipped, store failures are retried and events that still fail
are published to <subject>.dlq. On interrupt the connection is drained before
the store is closed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			nc, closed, err := connectNATS(c.cfg.NATS.URL, "researchctl-ingest")
			if err != nil {
				return err
			}
			defer nc.Close()

			worker := ingest.NewWorker(ingest.Deps{
				Store:  a.Store,
				Seen:   ingest.NewSeenCache(seenSize, seenTTL),
				Retry:  fn.DefaultRetry,
				Logger: c.logger,
			}, c.cfg.NATS.Subject, nc)

			if _, err := worker.Start(nc, c.cfg.NATS.Queue); err != nil {
				return fmt.Errorf("subscribe %s: %w", c.cfg.NATS.Subject, err)
			}
			c.logger.Info("ingest worker started", "subject", c.cfg.NATS.Subject, "queue", c.cfg.NATS.Queue)

			<-ctx.Done()
			c.logger.Info("ingest worker stopping")
			// the store is closed by the deferred a.Close only after this returns
			return drainAndWait(nc, closed)
		},
	}
	cmd.Flags().IntVar(&seenSize, "seen-size", 10000, "event ids remembered for redelivery detection")
	cmd.Flags().DurationVar(&seenTTL, "seen-ttl", 24*time.Hour, "how long an event id is remembered")
	return cmd
}
