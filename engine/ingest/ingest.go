// Package ingest stores paper events arriving over NATS. Each event runs
// through validation, redelivery detection and a retried store write; events
// that still fail are forwarded to a dead letter subject.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/pkg/fn"
	"github.com/WessleyAI/researchdesk/pkg/metrics"
	"github.com/WessleyAI/researchdesk/pkg/natsutil"
)

const (
	// DefaultSubject carries PaperEvents published by harvest.
	DefaultSubject = "research.papers"
	// DLQSuffix is appended to the subject for dead letters.
	DLQSuffix = ".dlq"
)

// Outcomes reported per event.
const (
	OutcomeStored    = "stored"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// ErrDuplicate marks an event whose id was stored recently.
var ErrDuplicate = errors.New("ingest: duplicate event")

// PaperWriter is the store write used by the pipeline.
type PaperWriter interface {
	AddPapers(ctx context.Context, papers []domain.Paper) error
}

// Deps holds the collaborators of the ingest pipeline.
type Deps struct {
	Store  PaperWriter
	Seen   *SeenCache
	Retry  fn.RetryOpts
	Logger *slog.Logger
}

// --- Pipeline Stages ---

// Validate checks the paper carried by an event and fills in a missing id.
var Validate fn.Stage[domain.PaperEvent, domain.PaperEvent] = func(_ context.Context, ev domain.PaperEvent) fn.Result[domain.PaperEvent] {
	if err := domain.ValidatePaper(ev.Paper); err != nil {
		return fn.Err[domain.PaperEvent](err)
	}
	if ev.ID == "" {
		ev.ID = domain.PaperID(ev.Paper)
	}
	return fn.Ok(ev)
}

// NewDedupe rejects events already marked in seen.
func NewDedupe(seen *SeenCache) fn.Stage[domain.PaperEvent, domain.PaperEvent] {
	return func(_ context.Context, ev domain.PaperEvent) fn.Result[domain.PaperEvent] {
		if seen.Seen(ev.ID) {
			return fn.Err[domain.PaperEvent](ErrDuplicate)
		}
		return fn.Ok(ev)
	}
}

// NewStore writes the event's paper, retrying store failures with opts, and
// marks the event as seen once written.
func NewStore(w PaperWriter, seen *SeenCache, opts fn.RetryOpts) fn.Stage[domain.PaperEvent, domain.PaperEvent] {
	opts.Retryable = func(err error) bool { return errors.Is(err, domain.ErrStore) }
	write := fn.Stage[domain.PaperEvent, domain.PaperEvent](func(ctx context.Context, ev domain.PaperEvent) fn.Result[domain.PaperEvent] {
		if err := w.AddPapers(ctx, []domain.Paper{ev.Paper}); err != nil {
			return fn.Err[domain.PaperEvent](err)
		}
		return fn.Ok(ev)
	})
	return fn.Then(fn.RetryStage(opts, write), fn.TapStage(func(_ context.Context, ev domain.PaperEvent) {
		seen.Mark(ev.ID)
		metrics.PapersStoredTotal.Inc()
	}))
}

// NewPipeline wires Validate, dedupe and store with a span per stage.
func NewPipeline(deps Deps) fn.Stage[domain.PaperEvent, domain.PaperEvent] {
	seen := deps.Seen
	if seen == nil {
		seen = NewSeenCache(10000, 24*time.Hour)
	}
	return fn.Pipeline(
		fn.TracedStage("ingest.validate", Validate),
		fn.TracedStage("ingest.dedupe", NewDedupe(seen)),
		fn.TracedStage("ingest.store", NewStore(deps.Store, seen, deps.Retry)),
	)
}

// DeadLetter is published when an event cannot be stored.
type DeadLetter struct {
	Event domain.PaperEvent `json:"event"`
	Error string            `json:"error"`
}

// Worker consumes paper events.
type Worker struct {
	pipeline fn.Stage[domain.PaperEvent, domain.PaperEvent]
	dlq      natsutil.Publisher
	subject  string
	logger   *slog.Logger
}

// NewWorker creates a worker for subject. dlq may be nil to drop failed
// events after logging them.
func NewWorker(deps Deps, subject string, dlq natsutil.Publisher) *Worker {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &Worker{
		pipeline: NewPipeline(deps),
		dlq:      dlq,
		subject:  subject,
		logger:   log,
	}
}

// Handle runs one event through the pipeline and returns its outcome.
func (w *Worker) Handle(ctx context.Context, ev domain.PaperEvent) string {
	result := w.pipeline(ctx, ev)
	stored, err := result.Unwrap()

	var outcome string
	switch {
	case err == nil:
		outcome = OutcomeStored
		w.logger.Info("ingest: stored", "id", stored.ID, "title", stored.Paper.Title, "topic", stored.Topic)
	case errors.Is(err, ErrDuplicate):
		outcome = OutcomeDuplicate
		w.logger.Debug("ingest: skipping duplicate", "id", ev.ID)
	case errors.Is(err, domain.ErrInvalidArgument):
		outcome = OutcomeInvalid
		w.logger.Warn("ingest: invalid event", "id", ev.ID, "error", err)
	default:
		outcome = OutcomeFailed
		w.logger.Error("ingest: store failed", "id", ev.ID, "error", err)
		w.deadLetter(ctx, ev, err)
	}
	metrics.IngestEventsTotal.WithLabelValues(outcome).Inc()
	return outcome
}

func (w *Worker) deadLetter(ctx context.Context, ev domain.PaperEvent, cause error) {
	if w.dlq == nil {
		return
	}
	dl := DeadLetter{Event: ev, Error: cause.Error()}
	if err := natsutil.Publish(ctx, w.dlq, w.subject+DLQSuffix, dl); err != nil {
		w.logger.Error("ingest: DLQ publish failed", "error", err)
	}
}

// Start subscribes the worker to its subject in queue group queue. With an
// empty queue every worker receives every event.
func (w *Worker) Start(nc *nats.Conn, queue string) (*nats.Subscription, error) {
	handle := func(ctx context.Context, ev domain.PaperEvent) { w.Handle(ctx, ev) }
	if queue == "" {
		return natsutil.Subscribe(nc, w.subject, w.logger, handle)
	}
	return natsutil.QueueSubscribe(nc, w.subject, queue, w.logger, handle)
}
