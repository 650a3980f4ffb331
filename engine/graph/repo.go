package graph

import (
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/WessleyAI/researchdesk/engine/domain"
	"github.com/WessleyAI/researchdesk/pkg/repo"
)

// PaperLabel is the node label papers are stored under.
const PaperLabel = "Paper"

// newPaperRepo creates a Neo4j-backed repository for Paper nodes keyed by title.
func newPaperRepo(sessions repo.SessionFactory) *repo.Neo4jRepo[domain.Paper, string] {
	return repo.NewNeo4jRepo[domain.Paper, string](
		sessions,
		PaperLabel,
		paperToMap,
		paperFromRecord,
		repo.WithKey[domain.Paper, string]("title"),
	)
}

func paperToMap(p domain.Paper) map[string]any {
	return map[string]any{
		"title":    p.Title,
		"abstract": p.Abstract,
		"year":     int64(p.Year),
	}
}

func paperFromRecord(rec *neo4j.Record) (domain.Paper, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return domain.Paper{}, err
	}
	return paperFromProps(node.Props), nil
}

func paperFromProps(props map[string]any) domain.Paper {
	return domain.Paper{
		Title:    strProp(props, "title"),
		Abstract: strProp(props, "abstract"),
		Year:     intProp(props, "year"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// intProp reads an integer property. Years written as strings by older
// loaders are parsed.
func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
