// Package app assembles the service collaborators from configuration. Both
// binaries build their object graph here.
package app

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/researchdesk/engine/graph"
	"github.com/WessleyAI/researchdesk/engine/research"
	"github.com/WessleyAI/researchdesk/engine/source"
	"github.com/WessleyAI/researchdesk/engine/storage"
	"github.com/WessleyAI/researchdesk/pkg/config"
	"github.com/WessleyAI/researchdesk/pkg/resilience"
)

// App holds the opened store and the services built on it.
type App struct {
	Store    storage.Store
	Source   research.PaperSource
	Research *research.Service
	Logger   *slog.Logger
}

// StorageConfig maps the store section.
func StorageConfig(c config.StoreConfig) storage.Config {
	return storage.Config{
		Driver: c.Driver,
		Neo4j: graph.Config{
			URL:         c.Neo4j.URL,
			User:        c.Neo4j.User,
			Password:    c.Neo4j.Password,
			Database:    c.Neo4j.Database,
			MaxPoolSize: c.Neo4j.MaxPoolSize,
			ConnTimeout: c.Neo4j.ConnTimeout,
		},
		SQLitePath: c.SQLite.Path,
	}
}

// SourceConfig maps the arxiv section.
func SourceConfig(c config.ArxivConfig) source.Config {
	return source.Config{
		BaseURL:         c.BaseURL,
		UserAgent:       c.UserAgent,
		Timeout:         c.Timeout,
		RequestInterval: c.RequestInterval,
	}
}

// NewSource builds the arXiv client behind a circuit breaker.
func NewSource(c config.ArxivConfig) research.PaperSource {
	return source.Guard(source.NewArxiv(SourceConfig(c)), resilience.BreakerOpts{
		FailThreshold: c.BreakerThreshold,
		Timeout:       c.BreakerCooldown,
	})
}

// ResearchOptions maps the research limits and the fetch size.
func ResearchOptions(cfg *config.Config) research.Options {
	return research.Options{
		FetchLimit:      cfg.Arxiv.MaxResults,
		TopK:            cfg.Research.TopK,
		SummaryLimit:    cfg.Research.SummaryLimit,
		SuggestionLimit: cfg.Research.SuggestionLimit,
		ExcerptLength:   cfg.Research.ExcerptLength,
	}
}

// New wires a service around an already opened store.
func New(cfg *config.Config, store storage.Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	src := NewSource(cfg.Arxiv)
	return &App{
		Store:    store,
		Source:   src,
		Research: research.New(src, store, ResearchOptions(cfg), logger),
		Logger:   logger,
	}
}

// Open connects the configured store and wires the service around it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := storage.Open(ctx, StorageConfig(cfg.Store), logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, store, logger), nil
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}
