// Package storage selects and opens the configured paper store.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/engine/graph"
	"github.com/WessleyAI/researchdesk/engine/sqlstore"
)

// Supported drivers.
const (
	DriverNeo4j  = "neo4j"
	DriverSQLite = "sqlite"
)

// Store is the full persistent paper store contract.
type Store interface {
	AddPapers(ctx context.Context, papers []domain.Paper) error
	PapersByTopic(ctx context.Context, topic string) ([]domain.Paper, error)
	PapersSince(ctx context.Context, topic string, startYear int) ([]domain.Paper, error)
	AllPapers(ctx context.Context) ([]domain.Paper, error)
	DeleteByTitle(ctx context.Context, title string) (int, error)
	UpdateByTitle(ctx context.Context, title string, patch domain.PaperPatch) (int, error)
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Store = (*graph.PaperStore)(nil)
	_ Store = (*sqlstore.Store)(nil)
)

// Config selects a driver and carries its settings.
type Config struct {
	Driver     string
	Neo4j      graph.Config
	SQLitePath string
}

// Open connects to the configured store and ensures its schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case DriverNeo4j, "":
		s, err = graph.Connect(ctx, cfg.Neo4j)
		if err != nil {
			return nil, err
		}
		logger.Info("store connected", "driver", DriverNeo4j, "url", cfg.Neo4j.URL)
	case DriverSQLite:
		s, err = sqlstore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", "driver", DriverSQLite, "path", cfg.SQLitePath)
	default:
		return nil, domain.InvalidArgument("storage: open", "unknown store driver %q", cfg.Driver)
	}

	if err := s.EnsureSchema(ctx); err != nil {
		logger.Warn("schema setup failed", "error", err)
	}
	return s, nil
}

// Describe returns a short human-readable location of the store.
func (c Config) Describe() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("sqlite:%s", c.SQLitePath)
	}
	return fmt.Sprintf("neo4j:%s", c.Neo4j.URL)
}
