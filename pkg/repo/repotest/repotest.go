// Package repotest provides an in-memory stand-in for repo.Session that
// records every statement it is asked to run.
package repotest

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/researchdesk/pkg/repo"
)

// Result is a canned query result.
type Result struct {
	Records []*neo4j.Record
	Error   error
	idx     int
}

func (r *Result) Next(context.Context) bool {
	if r.idx < len(r.Records) {
		r.idx++
		return true
	}
	return false
}

func (r *Result) Record() *neo4j.Record { return r.Records[r.idx-1] }

func (r *Result) Err() error { return r.Error }

// Call is one recorded statement.
type Call struct {
	Cypher string
	Params map[string]any
	InTx   bool
}

// Responder decides the outcome of the n-th statement (0-based).
type Responder func(n int, cypher string, params map[string]any) (*Result, error)

// Session records statements and answers them through Respond. A nil
// Respond, or a nil *Result, yields an empty result.
type Session struct {
	Respond Responder

	mu         sync.Mutex
	calls      []Call
	committed  int
	rolledBack int
	closed     int
}

// Factory returns a repo.SessionFactory that always hands out s.
func (s *Session) Factory() repo.SessionFactory {
	return func(context.Context) repo.Session { return s }
}

func (s *Session) Run(ctx context.Context, cypher string, params map[string]any) (repo.Result, error) {
	return s.run(cypher, params, false)
}

func (s *Session) ExecuteWrite(ctx context.Context, work func(repo.Tx) error) error {
	if err := work(tx{s: s}); err != nil {
		s.mu.Lock()
		s.rolledBack++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.committed++
	s.mu.Unlock()
	return nil
}

func (s *Session) Close(context.Context) error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// Calls returns the statements run so far.
func (s *Session) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Committed returns how many write transactions succeeded.
func (s *Session) Committed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// RolledBack returns how many write transactions failed.
func (s *Session) RolledBack() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolledBack
}

// Closed returns how many times Close was called.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) run(cypher string, params map[string]any, inTx bool) (repo.Result, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, Call{Cypher: cypher, Params: params, InTx: inTx})
	respond := s.Respond
	s.mu.Unlock()

	if respond == nil {
		return &Result{}, nil
	}
	res, err := respond(n, cypher, params)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	return res, nil
}

type tx struct {
	s *Session
}

func (t tx) Run(ctx context.Context, cypher string, params map[string]any) (repo.Result, error) {
	return t.s.run(cypher, params, true)
}

// Rows answers every statement with the same records.
func Rows(records ...*neo4j.Record) Responder {
	return func(int, string, map[string]any) (*Result, error) {
		return &Result{Records: records}, nil
	}
}

// NodeRecord builds a record binding a node with props to "n".
func NodeRecord(label string, props map[string]any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"n"},
		Values: []any{dbtype.Node{Labels: []string{label}, Props: props}},
	}
}

// CountRecord builds a record binding n to "affected".
func CountRecord(n int64) *neo4j.Record {
	return &neo4j.Record{Keys: []string{"affected"}, Values: []any{n}}
}
