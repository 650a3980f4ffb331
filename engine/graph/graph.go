// Package graph stores papers as nodes in Neo4j.
package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/pkg/repo"
)

// Topic filters compare lowercased title and abstract against the topic.
const (
	topicMatch = "(toLower(n.title) CONTAINS toLower($topic) OR toLower(n.abstract) CONTAINS toLower($topic))"
	sinceMatch = topicMatch + " AND n.year >= $start_year"
)

// Config holds the Neo4j connection settings.
type Config struct {
	URL         string
	User        string
	Password    string
	Database    string
	MaxPoolSize int
	ConnTimeout time.Duration
}

// PaperStore provides paper operations on top of the generic Neo4j repository.
type PaperStore struct {
	driver neo4j.DriverWithContext
	papers *repo.Neo4jRepo[domain.Paper, string]
}

// New creates a PaperStore over an existing driver.
func New(driver neo4j.DriverWithContext, database string) *PaperStore {
	return &PaperStore{
		driver: driver,
		papers: newPaperRepo(repo.DriverSessions(driver, database)),
	}
}

// Connect opens a driver, verifies connectivity and returns a store that
// owns the driver.
func Connect(ctx context.Context, cfg Config) (*PaperStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URL,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
			if cfg.ConnTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnTimeout
			}
			c.MaxConnectionLifetime = time.Hour
		},
	)
	if err != nil {
		return nil, domain.StoreError("graph: connect", fmt.Errorf("neo4j driver: %w", err))
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, domain.StoreError("graph: connect", fmt.Errorf("verify connectivity: %w", err))
	}
	return New(driver, cfg.Database), nil
}

// EnsureSchema creates the title index used by delete and update.
func (g *PaperStore) EnsureSchema(ctx context.Context) error {
	return domain.StoreError("graph: ensure schema", g.papers.EnsureIndex(ctx))
}

// AddPapers stores papers in one transaction. Either all are stored or none.
func (g *PaperStore) AddPapers(ctx context.Context, papers []domain.Paper) error {
	return domain.StoreError("graph: add papers", g.papers.CreateAll(ctx, papers))
}

// PapersByTopic returns papers whose title or abstract contains topic,
// case-insensitively.
func (g *PaperStore) PapersByTopic(ctx context.Context, topic string) ([]domain.Paper, error) {
	papers, err := g.papers.Where(ctx, topicMatch, map[string]any{"topic": topic})
	if err != nil {
		return nil, domain.StoreError("graph: papers by topic", err)
	}
	return papers, nil
}

// PapersSince is PapersByTopic restricted to papers published in or after
// startYear.
func (g *PaperStore) PapersSince(ctx context.Context, topic string, startYear int) ([]domain.Paper, error) {
	papers, err := g.papers.Where(ctx, sinceMatch, map[string]any{
		"topic":      topic,
		"start_year": int64(startYear),
	})
	if err != nil {
		return nil, domain.StoreError("graph: papers since", err)
	}
	return papers, nil
}

// AllPapers returns every stored paper.
func (g *PaperStore) AllPapers(ctx context.Context) ([]domain.Paper, error) {
	papers, err := g.papers.List(ctx, repo.ListOpts{})
	if err != nil {
		return nil, domain.StoreError("graph: all papers", err)
	}
	return papers, nil
}

// DeleteByTitle removes every paper with exactly this title.
func (g *PaperStore) DeleteByTitle(ctx context.Context, title string) (int, error) {
	n, err := g.papers.DeleteWhere(ctx, title)
	if err != nil {
		return 0, domain.StoreError("graph: delete by title", err)
	}
	return n, nil
}

// UpdateByTitle merges the patch into every paper with exactly this title.
func (g *PaperStore) UpdateByTitle(ctx context.Context, title string, patch domain.PaperPatch) (int, error) {
	n, err := g.papers.UpdateWhere(ctx, title, patch.Props())
	if err != nil {
		return 0, domain.StoreError("graph: update by title", err)
	}
	return n, nil
}

// Ping verifies the server is reachable.
func (g *PaperStore) Ping(ctx context.Context) error {
	if g.driver == nil {
		return domain.StoreError("graph: ping", errors.New("no driver"))
	}
	return domain.StoreError("graph: ping", g.driver.VerifyConnectivity(ctx))
}

// Close releases the driver.
func (g *PaperStore) Close(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}
