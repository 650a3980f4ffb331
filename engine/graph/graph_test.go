package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/pkg/repo/repotest"
)

func newTestStore(s *repotest.Session) *PaperStore {
	return &PaperStore{papers: newPaperRepo(s.Factory())}
}

func paperRecord(title, abstract string, year any) *neo4j.Record {
	return repotest.NodeRecord(PaperLabel, map[string]any{"title": title, "abstract": abstract, "year": year})
}

func TestPaperFromProps(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  domain.Paper
	}{
		{"int year", map[string]any{"title": "T", "abstract": "A", "year": int64(2021)}, domain.Paper{Title: "T", Abstract: "A", Year: 2021}},
		{"string year", map[string]any{"title": "T", "year": "2019"}, domain.Paper{Title: "T", Year: 2019}},
		{"bad year", map[string]any{"title": "T", "year": "n/a"}, domain.Paper{Title: "T"}},
		{"missing", map[string]any{}, domain.Paper{}},
	}
	for _, tt := range tests {
		if got := paperFromProps(tt.props); got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestPaperToMap(t *testing.T) {
	m := paperToMap(domain.Paper{Title: "T", Abstract: "A", Year: 2020})
	if m["title"] != "T" || m["abstract"] != "A" || m["year"] != int64(2020) {
		t.Fatalf("unexpected map %v", m)
	}
}

func TestPapersByTopic(t *testing.T) {
	s := &repotest.Session{Respond: repotest.Rows(
		paperRecord("Quantum Walks", "walks", int64(2019)),
		paperRecord("Graphs", "A QUANTUM view", int64(2023)),
	)}
	papers, err := newTestStore(s).PapersByTopic(context.Background(), "quantum")
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 || papers[1].Year != 2023 {
		t.Fatalf("unexpected papers %+v", papers)
	}
	call := s.Calls()[0]
	if !strings.Contains(call.Cypher, "toLower(n.title) CONTAINS toLower($topic)") ||
		!strings.Contains(call.Cypher, "toLower(n.abstract) CONTAINS toLower($topic)") {
		t.Fatalf("expected case-insensitive containment, got %q", call.Cypher)
	}
	if call.Params["topic"] != "quantum" {
		t.Fatalf("unexpected params %v", call.Params)
	}
}

func TestPapersSince(t *testing.T) {
	s := &repotest.Session{}
	papers, err := newTestStore(s).PapersSince(context.Background(), "quantum", 2022)
	if err != nil {
		t.Fatal(err)
	}
	if papers == nil || len(papers) != 0 {
		t.Fatalf("expected empty slice, got %#v", papers)
	}
	call := s.Calls()[0]
	if !strings.Contains(call.Cypher, "n.year >= $start_year") {
		t.Fatalf("expected year filter, got %q", call.Cypher)
	}
	if call.Params["start_year"] != int64(2022) {
		t.Fatalf("unexpected params %v", call.Params)
	}
}

func TestAddPapers_Atomic(t *testing.T) {
	boom := errors.New("write failed")
	s := &repotest.Session{Respond: func(n int, _ string, _ map[string]any) (*repotest.Result, error) {
		if n == 2 {
			return nil, boom
		}
		return nil, nil
	}}
	papers := []domain.Paper{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}, {Title: "e"}}
	err := newTestStore(s).AddPapers(context.Background(), papers)
	if !errors.Is(err, domain.ErrStore) || !errors.Is(err, boom) {
		t.Fatalf("expected store error wrapping cause, got %v", err)
	}
	if s.Committed() != 0 || s.RolledBack() != 1 {
		t.Fatal("expected the whole batch to roll back")
	}
}

func TestAddPapers_Success(t *testing.T) {
	s := &repotest.Session{}
	papers := []domain.Paper{{Title: "a", Year: 2020}, {Title: "b", Year: 2021}}
	if err := newTestStore(s).AddPapers(context.Background(), papers); err != nil {
		t.Fatal(err)
	}
	calls := s.Calls()
	if len(calls) != 2 || calls[0].Cypher != "CREATE (n:Paper $props)" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if s.Committed() != 1 {
		t.Fatal("expected a commit")
	}
}

func TestDeleteAndUpdateByTitle(t *testing.T) {
	s := &repotest.Session{Respond: repotest.Rows(repotest.CountRecord(1))}
	g := newTestStore(s)

	n, err := g.DeleteByTitle(context.Background(), "Old Paper")
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	year := 2024
	n, err = g.UpdateByTitle(context.Background(), "Old Paper", domain.PaperPatch{Year: &year})
	if err != nil || n != 1 {
		t.Fatalf("update: n=%d err=%v", n, err)
	}

	calls := s.Calls()
	if !strings.Contains(calls[0].Cypher, "MATCH (n:Paper {title: $key}) DETACH DELETE n") {
		t.Fatalf("unexpected delete cypher %q", calls[0].Cypher)
	}
	props := calls[1].Params["props"].(map[string]any)
	if len(props) != 1 || props["year"] != int64(2024) {
		t.Fatalf("unexpected update props %v", props)
	}
}

func TestStoreErrorsAreClassified(t *testing.T) {
	boom := errors.New("unavailable")
	s := &repotest.Session{Respond: func(int, string, map[string]any) (*repotest.Result, error) { return nil, boom }}
	g := newTestStore(s)
	ctx := context.Background()

	if _, err := g.PapersByTopic(ctx, "x"); !errors.Is(err, domain.ErrStore) {
		t.Errorf("PapersByTopic: %v", err)
	}
	if _, err := g.PapersSince(ctx, "x", 2000); !errors.Is(err, domain.ErrStore) {
		t.Errorf("PapersSince: %v", err)
	}
	if _, err := g.AllPapers(ctx); !errors.Is(err, domain.ErrStore) {
		t.Errorf("AllPapers: %v", err)
	}
	if _, err := g.DeleteByTitle(ctx, "x"); !errors.Is(err, domain.ErrStore) {
		t.Errorf("DeleteByTitle: %v", err)
	}
	if err := g.EnsureSchema(ctx); !errors.Is(err, domain.ErrStore) {
		t.Errorf("EnsureSchema: %v", err)
	}
	if err := g.Ping(ctx); !errors.Is(err, domain.ErrStore) {
		t.Errorf("Ping without driver: %v", err)
	}
	if err := g.Close(ctx); err != nil {
		t.Errorf("Close without driver: %v", err)
	}
}
