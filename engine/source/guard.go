package source

import (
	"context"
	"errors"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/pkg/fn"
	"github.com/WessleyAI/researchdesk/pkg/resilience"
)

// Searcher is a paper catalogue.
type Searcher interface {
	Name() string
	Search(ctx context.Context, topic string, limit int) ([]domain.Paper, error)
}

// Guarded stops calling a failing catalogue until its breaker cools down.
type Guarded struct {
	next    Searcher
	breaker *resilience.Breaker
}

// Guard wraps next with a circuit breaker. Only fetch failures count
// towards tripping it.
func Guard(next Searcher, opts resilience.BreakerOpts) *Guarded {
	opts.Counts = func(err error) bool { return errors.Is(err, domain.ErrExternalFetch) }
	return &Guarded{next: next, breaker: resilience.NewBreaker(opts)}
}

func (g *Guarded) Name() string { return g.next.Name() }

// State exposes the breaker state.
func (g *Guarded) State() resilience.State { return g.breaker.State() }

// Search forwards to the wrapped catalogue. A rejected call is reported as
// a fetch failure wrapping resilience.ErrCircuitOpen.
func (g *Guarded) Search(ctx context.Context, topic string, limit int) ([]domain.Paper, error) {
	result := resilience.CallResult(g.breaker, ctx, func(ctx context.Context) fn.Result[[]domain.Paper] {
		papers, err := g.next.Search(ctx, topic, limit)
		return fn.FromPair(papers, err)
	})
	papers, err := result.Unwrap()
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, domain.FetchError(g.next.Name()+": search", err)
	}
	return papers, err
}
