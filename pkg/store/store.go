// Package store keeps named, revisioned documents in a SQLite database.
// Each Save appends a new revision holding the document's encoded form;
// Load decodes a revision back into a fully evaluated document.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/chazu/strata/pkg/document"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a document or revision does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrInvalidName is returned for an empty document name.
var ErrInvalidName = errors.New("store: invalid document name")

// Summary describes the newest revision of a stored document.
type Summary struct {
	Name    string
	Latest  int
	Updated time.Time
}

// Revision describes one saved revision of a document.
type Revision struct {
	Rev      int
	ID       uuid.UUID
	SavedAt  time.Time
	Groups   int
	Entities int
}

// Store is a document store backed by a single SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps revision numbering race free.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s.db = db
	s.logger.Debug("opened store", "path", path)
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends doc as the next revision of name and returns its number.
// Revisions start at 1.
func (s *Store) Save(ctx context.Context, name string, doc *document.Document) (int, error) {
	if name == "" {
		return 0, ErrInvalidName
	}
	body, err := doc.Marshal()
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", name, err)
	}
	users := lo.CountBy(doc.Entities(), func(en *document.Entity) bool {
		return en.Kind == document.KindUser
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (name, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
		name, now, now)
	if err != nil {
		return 0, err
	}

	var rev int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(rev), 0) + 1 FROM revisions WHERE name = ?`, name).Scan(&rev)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (name, rev, revision_id, saved_at, format_version, group_count, entity_count, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, rev, uuid.NewString(), now, document.FormatVersion, len(doc.GroupsSorted()), users, body)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.logger.Info("saved document", "name", name, "rev", rev, "bytes", len(body))
	return rev, nil
}

// Load decodes revision rev of name, or the latest revision when rev is 0.
// opts are passed to document.Unmarshal, so the caller chooses the solver
// and kernel the loaded document is evaluated with.
func (s *Store) Load(ctx context.Context, name string, rev int, opts ...document.Option) (*document.Document, error) {
	var body []byte
	var err error
	if rev == 0 {
		err = s.db.QueryRowContext(ctx,
			`SELECT body FROM revisions WHERE name = ? ORDER BY rev DESC LIMIT 1`, name).Scan(&body)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT body FROM revisions WHERE name = ? AND rev = ?`, name, rev).Scan(&body)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if rev == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s rev %d", ErrNotFound, name, rev)
	}
	if err != nil {
		return nil, err
	}

	opts = append([]document.Option{document.WithLogger(s.logger)}, opts...)
	doc, err := document.Unmarshal(body, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return doc, nil
}

// List returns every stored document, sorted by name.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, MAX(r.rev), d.updated_at
		FROM documents d JOIN revisions r ON r.name = d.name
		GROUP BY d.name
		ORDER BY d.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.Name, &sum.Latest, &updated); err != nil {
			return nil, err
		}
		if sum.Updated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", sum.Name, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Revisions lists the revisions of name, oldest first.
func (s *Store) Revisions(ctx context.Context, name string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rev, revision_id, saved_at, group_count, entity_count
		FROM revisions WHERE name = ? ORDER BY rev`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		var id, saved string
		if err := rows.Scan(&r.Rev, &id, &saved, &r.Groups, &r.Entities); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse revision id: %w", err)
		}
		if r.SavedAt, err = time.Parse(time.RFC3339Nano, saved); err != nil {
			return nil, fmt.Errorf("parse saved_at: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return out, nil
}

// Delete removes name and all of its revisions.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.logger.Info("deleted document", "name", name)
	return nil
}
