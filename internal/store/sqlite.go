package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/leaseline-platform/shadowsync-go/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shadow_entities (
	seq    INTEGER PRIMARY KEY AUTOINCREMENT,
	id     TEXT NOT NULL UNIQUE,
	fields TEXT NOT NULL
);
`

// SQLite is a durable shadow backend over a single-file SQLite database.
// Entity fields are stored as one JSON document per row; the rowid sequence
// preserves creation order for stable pagination.
//
// Note that JSON round-tripping turns time.Time field values into RFC3339
// strings. The verifier compares time fields by instant, so a round-tripped
// entity still matches its in-memory original.
type SQLite struct {
	db *sql.DB
}

var _ Shadow = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	doc, err := json.Marshal(e.Fields)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("sqlite: marshal fields for %s: %w", e.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO shadow_entities (id, fields) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET fields = excluded.fields`,
		e.ID, string(doc),
	)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("sqlite: create %s: %w", e.ID, err)
	}
	return e, nil
}

func (s *SQLite) Update(ctx context.Context, id string, fields map[string]any) (domain.Entity, error) {
	cur, err := s.FindByID(ctx, id)
	if err != nil {
		return domain.Entity{}, err
	}
	if cur == nil {
		return domain.Entity{}, ErrNotFound
	}
	next := cur.Clone()
	for k, v := range fields {
		next.Fields[k] = v
	}
	doc, err := json.Marshal(next.Fields)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("sqlite: marshal fields for %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE shadow_entities SET fields = ? WHERE id = ?`, string(doc), id,
	); err != nil {
		return domain.Entity{}, fmt.Errorf("sqlite: update %s: %w", id, err)
	}
	return next, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shadow_entities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: delete %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLite) FindByID(ctx context.Context, id string) (*domain.Entity, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM shadow_entities WHERE id = ?`, id,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find %s: %w", id, err)
	}
	return decodeEntity(id, doc)
}

func (s *SQLite) FindAll(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields FROM shadow_entities ORDER BY seq LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []domain.Entity
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		e, err := decodeEntity(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	return out, nil
}

// List is FindAll under the primary-side reader's name, letting a SQLite
// snapshot of the authoritative store serve as the verifier's primary side.
func (s *SQLite) List(ctx context.Context, limit, offset int) ([]domain.Entity, error) {
	return s.FindAll(ctx, limit, offset)
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shadow_entities`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

func (s *SQLite) AllIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM shadow_entities ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: all ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: all ids: %w", err)
	}
	return ids, nil
}

func decodeEntity(id, doc string) (*domain.Entity, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return nil, fmt.Errorf("sqlite: decode fields for %s: %w", id, err)
	}
	return &domain.Entity{ID: id, Fields: fields}, nil
}
