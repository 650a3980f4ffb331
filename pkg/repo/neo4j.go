package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the subset of a neo4j result the repository reads.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Tx runs statements inside a managed write transaction.
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// Session is the subset of a neo4j session the repository needs.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
	// ExecuteWrite runs work in one transaction, committing only if it
	// returns nil.
	ExecuteWrite(ctx context.Context, work func(Tx) error) error
	Close(ctx context.Context) error
}

// SessionFactory opens a session per operation.
type SessionFactory func(ctx context.Context) Session

// DriverSessions returns a SessionFactory backed by driver. An empty
// database selects the server default.
func DriverSessions(driver neo4j.DriverWithContext, database string) SessionFactory {
	return func(ctx context.Context) Session {
		return &sessionAdapter{sess: driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})}
	}
}

// sessionAdapter adapts neo4j.SessionWithContext to Session.
type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) ExecuteWrite(ctx context.Context, work func(Tx) error) error {
	_, err := a.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, work(txAdapter{tx: tx})
	})
	return err
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

type txAdapter struct {
	tx neo4j.ManagedTransaction
}

func (a txAdapter) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return a.tx.Run(ctx, cypher, params)
}

// Neo4jRepo is a generic Neo4j-backed repository over nodes of one label.
type Neo4jRepo[T any, K comparable] struct {
	sessions   SessionFactory
	label      string
	key        string
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
}

// Neo4jOption configures a Neo4jRepo.
type Neo4jOption[T any, K comparable] func(*Neo4jRepo[T, K])

// WithKey sets the property used by UpdateWhere and DeleteWhere
// (default "id").
func WithKey[T any, K comparable](key string) Neo4jOption[T, K] {
	return func(r *Neo4jRepo[T, K]) { r.key = key }
}

// NewNeo4jRepo creates a repository. fromRecord reads the node bound to "n".
func NewNeo4jRepo[T any, K comparable](
	sessions SessionFactory,
	label string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T, K],
) *Neo4jRepo[T, K] {
	r := &Neo4jRepo[T, K]{
		sessions:   sessions,
		label:      label,
		key:        "id",
		toMap:      toMap,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Compile-time interface check.
var _ Repository[any, string] = (*Neo4jRepo[any, string])(nil)

// EnsureIndex creates a range index on the key property if missing.
func (r *Neo4jRepo[T, K]) EnsureIndex(ctx context.Context) error {
	sess := r.sessions(ctx)
	defer sess.Close(ctx)

	name := strings.ToLower(r.label) + "_" + r.key
	cypher := fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s)", name, r.label, r.key)
	res, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return err
	}
	return drain(ctx, res)
}

// List returns nodes of the label. Without a limit every node is returned.
func (r *Neo4jRepo[T, K]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN n", r.label)
	params := map[string]any{}
	if opts.Offset > 0 {
		cypher += " SKIP $offset"
		params["offset"] = int64(opts.Offset)
	}
	if opts.Limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = int64(opts.Limit)
	}
	return r.query(ctx, cypher, params)
}

// Where returns nodes matching a WHERE clause over n.
func (r *Neo4jRepo[T, K]) Where(ctx context.Context, where string, params map[string]any) ([]T, error) {
	cypher := fmt.Sprintf("MATCH (n:%s) WHERE %s RETURN n", r.label, where)
	return r.query(ctx, cypher, params)
}

// CreateAll inserts entities in a single transaction. If any insert fails
// none of them are kept.
func (r *Neo4jRepo[T, K]) CreateAll(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}
	sess := r.sessions(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("CREATE (n:%s $props)", r.label)
	return sess.ExecuteWrite(ctx, func(tx Tx) error {
		for i, e := range entities {
			res, err := tx.Run(ctx, cypher, map[string]any{"props": r.toMap(e)})
			if err != nil {
				return fmt.Errorf("create %s %d: %w", r.label, i, err)
			}
			if err := drain(ctx, res); err != nil {
				return fmt.Errorf("create %s %d: %w", r.label, i, err)
			}
		}
		return nil
	})
}

// UpdateWhere merges props into every node with the given key and returns
// how many nodes changed.
func (r *Neo4jRepo[T, K]) UpdateWhere(ctx context.Context, key K, props map[string]any) (int, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {%s: $key}) SET n += $props RETURN count(n) AS affected", r.label, r.key)
	return r.count(ctx, cypher, map[string]any{"key": key, "props": props})
}

// DeleteWhere removes every node with the given key, along with its
// relationships, and returns how many were removed.
func (r *Neo4jRepo[T, K]) DeleteWhere(ctx context.Context, key K) (int, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {%s: $key}) DETACH DELETE n RETURN count(n) AS affected", r.label, r.key)
	return r.count(ctx, cypher, map[string]any{"key": key})
}

func (r *Neo4jRepo[T, K]) query(ctx context.Context, cypher string, params map[string]any) ([]T, error) {
	sess := r.sessions(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	items := []T{}
	for res.Next(ctx) {
		item, err := r.fromRecord(res.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Neo4jRepo[T, K]) count(ctx context.Context, cypher string, params map[string]any) (int, error) {
	sess := r.sessions(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return 0, err
	}
	if !res.Next(ctx) {
		return 0, res.Err()
	}
	n, _, err := neo4j.GetRecordValue[int64](res.Record(), "affected")
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// drain consumes a result so server-side errors surface.
func drain(ctx context.Context, res Result) error {
	for res.Next(ctx) {
	}
	return res.Err()
}
