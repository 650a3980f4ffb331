// Package research implements the assistant operations on top of a paper
// source, a paper store and the similarity ranker: fetch-and-store, topic
// search, summarization, future-work suggestions and question answering.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/engine/similarity"
	"github.com/WessleyAI/researchdesk/pkg/fn"
	"github.com/WessleyAI/researchdesk/pkg/metrics"
)

const tracerName = "researchdesk/engine/research"

// PaperSource fetches papers from an external catalogue.
type PaperSource interface {
	Name() string
	Search(ctx context.Context, topic string, limit int) ([]domain.Paper, error)
}

// PaperStore is the subset of the store the service reads and writes.
type PaperStore interface {
	AddPapers(ctx context.Context, papers []domain.Paper) error
	PapersByTopic(ctx context.Context, topic string) ([]domain.Paper, error)
	PapersSince(ctx context.Context, topic string, startYear int) ([]domain.Paper, error)
}

// Options configures the service.
type Options struct {
	FetchLimit      int
	TopK            int
	SummaryLimit    int
	SuggestionLimit int
	ExcerptLength   int
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		FetchLimit:      5,
		TopK:            similarity.DefaultTopK,
		SummaryLimit:    5,
		SuggestionLimit: 5,
		ExcerptLength:   200,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FetchLimit <= 0 {
		o.FetchLimit = d.FetchLimit
	}
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.SummaryLimit <= 0 {
		o.SummaryLimit = d.SummaryLimit
	}
	if o.SuggestionLimit <= 0 {
		o.SuggestionLimit = d.SuggestionLimit
	}
	if o.ExcerptLength <= 0 {
		o.ExcerptLength = d.ExcerptLength
	}
	return o
}

// Service is the research assistant.
type Service struct {
	source PaperSource
	store  PaperStore
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a Service. Zero option fields take their defaults.
func New(source PaperSource, store PaperStore, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		store:  store,
		opts:   opts.withDefaults(),
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Options returns the effective options.
func (s *Service) Options() Options { return s.opts }

// FetchReport is the outcome of FetchAndStore.
type FetchReport struct {
	Status string            `json:"status"`
	Added  []domain.PaperRef `json:"added_papers,omitempty"`
}

// Answer is the outcome of a QA request.
type Answer struct {
	Question string  `json:"question"`
	Topic    string  `json:"topic"`
	Matches  []Match `json:"similar_sentences"`
}

// Match is one ranked fragment.
type Match struct {
	Sentence string          `json:"sentence"`
	Paper    domain.PaperRef `json:"paper"`
	Score    float64         `json:"similarity_score"`
}

// FetchAndStore pulls the top papers on topic from the source and writes them
// to the store as one batch. Nothing is written when the source returns no
// papers or when any paper fails to store.
func (s *Service) FetchAndStore(ctx context.Context, topic string) (report FetchReport, err error) {
	ctx, done := s.begin(ctx, "fetch_and_store", attribute.String("topic", topic))
	defer func() { done(err) }()

	if err := domain.ValidateTopic(topic); err != nil {
		return FetchReport{}, err
	}

	papers, err := s.source.Search(ctx, topic, s.opts.FetchLimit)
	if err != nil {
		return FetchReport{}, err
	}
	metrics.PapersFetchedTotal.WithLabelValues(s.source.Name()).Add(float64(len(papers)))
	if len(papers) == 0 {
		return FetchReport{Status: fmt.Sprintf("No papers found on '%s'.", topic)}, nil
	}
	for _, p := range papers {
		if err := domain.ValidatePaper(p); err != nil {
			return FetchReport{}, err
		}
	}

	if err := s.store.AddPapers(ctx, papers); err != nil {
		return FetchReport{}, err
	}
	metrics.PapersStoredTotal.Add(float64(len(papers)))

	added := fn.Map(papers, domain.Paper.Ref)
	s.logger.Info("papers stored", "topic", topic, "count", len(added), "source", s.source.Name())
	return FetchReport{
		Status: fmt.Sprintf("Top %d papers on '%s' fetched and stored successfully.", len(added), topic),
		Added:  added,
	}, nil
}

// Search returns stored papers on topic published in or after startYear.
func (s *Service) Search(ctx context.Context, topic string, startYear int) (papers []domain.Paper, err error) {
	ctx, done := s.begin(ctx, "search",
		attribute.String("topic", topic), attribute.Int("start_year", startYear))
	defer func() { done(err) }()

	return s.store.PapersSince(ctx, topic, startYear)
}

// Summarize joins the abstracts of the first stored papers on topic with a
// single space. Empty abstracts are joined as they are.
func (s *Service) Summarize(ctx context.Context, topic string) (summary string, err error) {
	ctx, done := s.begin(ctx, "summarize", attribute.String("topic", topic))
	defer func() { done(err) }()

	papers, err := s.store.PapersByTopic(ctx, topic)
	if err != nil {
		return "", err
	}
	abstracts := fn.Map(fn.Take(papers, s.opts.SummaryLimit), func(p domain.Paper) string { return p.Abstract })
	return strings.Join(abstracts, " "), nil
}

// FutureWorks lists the first stored papers on topic with an abstract
// excerpt each.
func (s *Service) FutureWorks(ctx context.Context, topic string) (suggestions string, err error) {
	ctx, done := s.begin(ctx, "future_works", attribute.String("topic", topic))
	defer func() { done(err) }()

	papers, err := s.store.PapersByTopic(ctx, topic)
	if err != nil {
		return "", err
	}
	gaps := fn.Map(fn.Take(papers, s.opts.SuggestionLimit), func(p domain.Paper) string {
		return fmt.Sprintf("Paper: %s, Abstract: %s...", p.Title, excerpt(p.Abstract, s.opts.ExcerptLength))
	})
	return "Based on research, here are potential gaps:\n" + strings.Join(gaps, "\n"), nil
}

// Answer ranks the fragments of stored papers on topic against question.
// topK 0 uses the configured default.
func (s *Service) Answer(ctx context.Context, topic, question string, topK int) (answer *Answer, err error) {
	ctx, done := s.begin(ctx, "qa", attribute.String("topic", topic))
	defer func() { done(err) }()

	if topK == 0 {
		topK = s.opts.TopK
	}
	if err := domain.ValidateTopK(topK); err != nil {
		return nil, err
	}

	papers, err := s.store.PapersByTopic(ctx, topic)
	if err != nil {
		return nil, err
	}

	metrics.RankCandidates.Observe(float64(len(similarity.Candidates(papers))))
	ranked, err := similarity.Rank(question, papers, topK)
	if err != nil {
		return nil, err
	}

	matches := fn.Map(ranked, func(r similarity.Result) Match {
		return Match{Sentence: r.Sentence, Paper: r.Paper.Ref(), Score: r.Score}
	})
	s.logger.Debug("question answered", "topic", topic, "papers", len(papers), "matches", len(matches))
	return &Answer{Question: question, Topic: topic, Matches: matches}, nil
}

// begin opens a span for op and returns a completion func that records the
// outcome on the span and in the operation metrics.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "research."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			kind := domain.KindName(err)
			metrics.OperationErrorsTotal.WithLabelValues(op, kind).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Warn("research operation failed", "op", op, "kind", kind, "error", err)
		}
		metrics.OperationDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
		span.End()
	}
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
