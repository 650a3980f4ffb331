// Package sqlstore stores papers in a local SQLite database. It offers the
// same operations as the Neo4j store and is meant for single-node setups and
// development.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/WessleyAI/researchdesk/engine/domain"
)

// driverName is a sqlite3 driver with a Unicode-aware lower() registered as
// ulower, so topic matching folds case the same way Neo4j's toLower does.
const driverName = "sqlite3_researchdesk"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

const (
	selectPapers = `SELECT title, abstract, year FROM papers`
	topicWhere   = ` WHERE (instr(ulower(title), ulower(?1)) > 0 OR instr(ulower(abstract), ulower(?1)) > 0)`
	orderByID    = ` ORDER BY id`
)

// Store is a SQLite-backed paper store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures its schema.
// The path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, domain.StoreError("sqlite: open", fmt.Errorf("creating %s: %w", dir, err))
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, domain.StoreError("sqlite: open", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the papers table and its title index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL CHECK (title <> ''),
			abstract TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_title ON papers(title)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.StoreError("sqlite: ensure schema", err)
		}
	}
	return nil
}

// AddPapers inserts papers in one transaction. Either all are stored or none.
func (s *Store) AddPapers(ctx context.Context, papers []domain.Paper) error {
	const op = "sqlite: add papers"
	if len(papers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError(op, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO papers (title, abstract, year) VALUES (?, ?, ?)`)
	if err != nil {
		return domain.StoreError(op, err)
	}
	defer stmt.Close()

	for i, p := range papers {
		if _, err := stmt.ExecContext(ctx, p.Title, p.Abstract, p.Year); err != nil {
			return domain.StoreError(op, fmt.Errorf("paper %d: %w", i, err))
		}
	}
	return domain.StoreError(op, tx.Commit())
}

// PapersByTopic returns papers whose title or abstract contains topic,
// case-insensitively, in insertion order.
func (s *Store) PapersByTopic(ctx context.Context, topic string) ([]domain.Paper, error) {
	papers, err := s.query(ctx, selectPapers+topicWhere+orderByID, topic)
	return papers, domain.StoreError("sqlite: papers by topic", err)
}

// PapersSince is PapersByTopic restricted to papers published in or after
// startYear.
func (s *Store) PapersSince(ctx context.Context, topic string, startYear int) ([]domain.Paper, error) {
	papers, err := s.query(ctx, selectPapers+topicWhere+` AND year >= ?2`+orderByID, topic, startYear)
	return papers, domain.StoreError("sqlite: papers since", err)
}

// AllPapers returns every stored paper in insertion order.
func (s *Store) AllPapers(ctx context.Context) ([]domain.Paper, error) {
	papers, err := s.query(ctx, selectPapers+orderByID)
	return papers, domain.StoreError("sqlite: all papers", err)
}

// DeleteByTitle removes every paper with exactly this title.
func (s *Store) DeleteByTitle(ctx context.Context, title string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE title = ?`, title)
	if err != nil {
		return 0, domain.StoreError("sqlite: delete by title", err)
	}
	n, err := res.RowsAffected()
	return int(n), domain.StoreError("sqlite: delete by title", err)
}

// UpdateByTitle applies the patch to every paper with exactly this title.
func (s *Store) UpdateByTitle(ctx context.Context, title string, patch domain.PaperPatch) (int, error) {
	const op = "sqlite: update by title"
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Abstract != nil {
		sets = append(sets, "abstract = ?")
		args = append(args, *patch.Abstract)
	}
	if patch.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *patch.Year)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, title)

	res, err := s.db.ExecContext(ctx, `UPDATE papers SET `+strings.Join(sets, ", ")+` WHERE title = ?`, args...)
	if err != nil {
		return 0, domain.StoreError(op, err)
	}
	n, err := res.RowsAffected()
	return int(n), domain.StoreError(op, err)
}

// Ping checks the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	return domain.StoreError("sqlite: ping", s.db.PingContext(ctx))
}

// Close releases the database.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]domain.Paper, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	papers := []domain.Paper{}
	for rows.Next() {
		var p domain.Paper
		if err := rows.Scan(&p.Title, &p.Abstract, &p.Year); err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return papers, nil
}
