package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/researchdesk/engine/app"
	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/engine/research"
	"github.com/WessleyAI/researchdesk/pkg/fn"
	"github.com/WessleyAI/researchdesk/pkg/metrics"
	"github.com/WessleyAI/researchdesk/pkg/natsutil"
	"github.com/WessleyAI/researchdesk/pkg/resilience"
)

// topicsFile is the YAML layout accepted by --topics-file.
type topicsFile struct {
	Topics []string `yaml:"topics"`
}

func loadTopics(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf topicsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tf.Topics, nil
}

// sink receives the papers harvested for one topic.
type sink func(ctx context.Context, topic string, papers []domain.Paper) error

func storeSink(store research.PaperStore) sink {
	return func(ctx context.Context, _ string, papers []domain.Paper) error {
		if err := store.AddPapers(ctx, papers); err != nil {
			return err
		}
		metrics.PapersStoredTotal.Add(float64(len(papers)))
		return nil
	}
}

func publishSink(pub natsutil.Publisher, subject string, now func() time.Time) sink {
	return func(ctx context.Context, topic string, papers []domain.Paper) error {
		for _, p := range papers {
			ev := domain.NewPaperEvent(topic, p, now())
			if err := natsutil.Publish(ctx, pub, subject, ev); err != nil {
				return fmt.Errorf("publish %q: %w", p.Title, err)
			}
		}
		return nil
	}
}

// harvester fetches papers for many topics with bounded concurrency. The
// source paces its own requests, so workers only overlap sink writes with
// fetch waits.
type harvester struct {
	source  research.PaperSource
	sink    sink
	limit   int
	workers int
	retry   fn.RetryOpts
}

type harvestResult struct {
	Topic string
	Count int
}

func (h *harvester) run(ctx context.Context, topics []string) []fn.Result[harvestResult] {
	retry := h.retry
	retry.Retryable = func(err error) bool {
		return errors.Is(err, domain.ErrExternalFetch) && !errors.Is(err, resilience.ErrCircuitOpen)
	}

	return fn.ParMap(ctx, topics, h.workers, func(ctx context.Context, topic string) fn.Result[harvestResult] {
		if err := domain.ValidateTopic(topic); err != nil {
			return fn.Err[harvestResult](err)
		}
		fetched := fn.Retry(ctx, retry, func(ctx context.Context) fn.Result[[]domain.Paper] {
			papers, err := h.source.Search(ctx, topic, h.limit)
			return fn.FromPair(papers, err)
		})
		papers, err := fetched.Unwrap()
		if err != nil {
			return fn.Err[harvestResult](err)
		}
		metrics.PapersFetchedTotal.WithLabelValues(h.source.Name()).Add(float64(len(papers)))
		if len(papers) > 0 {
			if err := h.sink(ctx, topic, papers); err != nil {
				return fn.Err[harvestResult](err)
			}
		}
		return fn.Ok(harvestResult{Topic: topic, Count: len(papers)})
	})
}

// cleanTopics trims topics and drops blanks and case-insensitive repeats,
// keeping the first spelling.
func cleanTopics(topics []string) []string {
	trimmed := fn.Map(topics, strings.TrimSpace)
	nonBlank := fn.Filter(trimmed, func(t string) bool { return t != "" })
	return fn.UniqueBy(nonBlank, strings.ToLower)
}

// finish reports the results and then flushes published events, so the
// process does not exit with events still buffered in the client.
func finish(w io.Writer, topics []string, results []fn.Result[harvestResult], flush func() error) error {
	err := report(w, topics, results)
	if ferr := flush(); ferr != nil {
		return errors.Join(err, fmt.Errorf("nats flush: %w", ferr))
	}
	return err
}

// report prints one line per topic and returns an error when any failed.
func report(w io.Writer, topics []string, results []fn.Result[harvestResult]) error {
	failed := 0
	for i, r := range results {
		res, err := r.Unwrap()
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", topics[i], err)
			continue
		}
		fmt.Fprintf(w, "ok   %s: %d papers\n", res.Topic, res.Count)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d topic(s) failed", failed, len(topics))
	}
	return nil
}

func (c *cli) harvestCmd() *cobra.Command {
	var (
		topics     []string
		topicsPath string
		limit      int
		workers    int
		publish    bool
	)
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Fetch papers from arXiv for one or more topics",
		Long: `Harvest queries arXiv for each topic and writes the results to the paper
store, or with --publish sends them as paper events to NATS for the ingest
worker. Requests are spaced by arxiv.request_interval and failed fetches are
retried with backoff until the arXiv circuit breaker opens.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if topicsPath != "" {
				fromFile, err := loadTopics(topicsPath)
				if err != nil {
					return err
				}
				topics = append(topics, fromFile...)
			}
			topics = cleanTopics(topics)
			if len(topics) == 0 {
				return fmt.Errorf("provide --topic or --topics-file")
			}
			if limit <= 0 {
				limit = c.cfg.Arxiv.MaxResults
			}

			ctx := cmd.Context()
			h := &harvester{
				source:  app.NewSource(c.cfg.Arxiv),
				limit:   limit,
				workers: workers,
				retry:   fn.DefaultRetry,
			}
			flush := func() error { return nil }
			if publish {
				nc, _, err := connectNATS(c.cfg.NATS.URL, "researchctl-harvest")
				if err != nil {
					return err
				}
				defer nc.Close()
				h.sink = publishSink(nc, c.cfg.NATS.Subject, time.Now)
				flush = func() error { return nc.FlushTimeout(natsFlushTimeout) }
			} else {
				a, err := c.openApp(ctx)
				if err != nil {
					return err
				}
				defer a.Close(context.Background())
				h.sink = storeSink(a.Store)
			}

			c.logger.Info("harvest starting", "topics", len(topics), "limit", limit, "publish", publish)
			return finish(cmd.OutOrStdout(), topics, h.run(ctx, topics), flush)
		},
	}
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "topic to harvest (repeatable)")
	cmd.Flags().StringVar(&topicsPath, "topics-file", "", "YAML file with a topics list")
	cmd.Flags().IntVar(&limit, "limit", 0, "papers per topic (default arxiv.max_results)")
	cmd.Flags().IntVar(&workers, "workers", 2, "topics harvested concurrently")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish paper events to NATS instead of storing")
	return cmd
}
