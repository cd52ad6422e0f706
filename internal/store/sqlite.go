package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	object   TEXT PRIMARY KEY,
	label    TEXT NOT NULL,
	created  INTEGER NOT NULL,
	modified INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS attributes (
	object    TEXT NOT NULL,
	attribute TEXT NOT NULL,
	value     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attributes_object ON attributes(object);
CREATE INDEX IF NOT EXISTS idx_attributes_kv ON attributes(attribute, value);
CREATE TABLE IF NOT EXISTS secrets (
	object       TEXT PRIMARY KEY,
	secret       BLOB NOT NULL,
	content_type TEXT NOT NULL
);
`

// SQLiteStore is the embedded single-file engine spec section 4.2 asks for,
// backed by the pure-Go modernc.org/sqlite driver so the daemon keeps the
// teacher's no-cgo build.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if necessary) the database file at path and ensures
// the schema exists.
func Open(path string, log *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-file engine, single writer; matches the spec's single-threaded core
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) AddItem(ctx context.Context, object, label string, attrs map[string]string, secret []byte, contentType string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add_item: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `INSERT INTO items (object, label, created, modified) VALUES (?, ?, ?, ?)`, object, label, now, now); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	for k, v := range attrs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO attributes (object, attribute, value) VALUES (?, ?, ?)`, object, k, v); err != nil {
			return fmt.Errorf("insert attribute: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO secrets (object, secret, content_type) VALUES (?, ?, ?)`, object, secret, contentType); err != nil {
		return fmt.Errorf("insert secret: %w", err)
	}
	return tx.Commit()
}

// FindItems implements the N-way intersection search described in spec
// section 4.2: one SELECT per (attribute, value) pair, INTERSECTed.
func (s *SQLiteStore) FindItems(ctx context.Context, match map[string]string) ([]string, error) {
	if len(match) == 0 {
		return nil, fmt.Errorf("find_items: empty match set is undefined")
	}

	selects := make([]string, 0, len(match))
	args := make([]interface{}, 0, len(match)*2)
	for k, v := range match {
		selects = append(selects, "SELECT object FROM attributes WHERE attribute = ? AND value = ?")
		args = append(args, k, v)
	}
	query := strings.Join(selects, " INTERSECT ")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find_items: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var object string
		if err := rows.Scan(&object); err != nil {
			return nil, fmt.Errorf("find_items scan: %w", err)
		}
		results = append(results, object)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) GetMetadata(ctx context.Context, object string) (Metadata, bool, error) {
	var label string
	var created, modified int64
	row := s.db.QueryRowContext(ctx, `SELECT label, created, modified FROM items WHERE object = ?`, object)
	if err := row.Scan(&label, &created, &modified); err != nil {
		if err == sql.ErrNoRows {
			return Metadata{}, false, nil
		}
		return Metadata{}, false, fmt.Errorf("get_metadata: %w", err)
	}
	return Metadata{
		Label:    label,
		Created:  time.Unix(created, 0),
		Modified: time.Unix(modified, 0),
	}, true, nil
}

func (s *SQLiteStore) SetMetadataLabel(ctx context.Context, object, label string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE items SET label = ? WHERE object = ?`, label, object)
	if err != nil {
		return fmt.Errorf("set_metadata_label: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set_metadata_label: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set_metadata_label: no such object %s", object)
	}
	return nil
}

func (s *SQLiteStore) GetAttributes(ctx context.Context, object string) (map[string]string, bool, error) {
	exists, err := s.ItemExists(ctx, object)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT attribute, value FROM attributes WHERE object = ?`, object)
	if err != nil {
		return nil, false, fmt.Errorf("get_attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, false, fmt.Errorf("get_attributes scan: %w", err)
		}
		attrs[k] = v
	}
	return attrs, true, rows.Err()
}

func (s *SQLiteStore) SetAttributes(ctx context.Context, object string, attrs map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set_attributes: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attributes WHERE object = ?`, object); err != nil {
		return fmt.Errorf("clear attributes: %w", err)
	}
	for k, v := range attrs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO attributes (object, attribute, value) VALUES (?, ?, ?)`, object, k, v); err != nil {
			return fmt.Errorf("insert attribute: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetSecret(ctx context.Context, object string) ([]byte, string, bool, error) {
	var secret []byte
	var contentType string
	row := s.db.QueryRowContext(ctx, `SELECT secret, content_type FROM secrets WHERE object = ?`, object)
	if err := row.Scan(&secret, &contentType); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("get_secret: %w", err)
	}
	return secret, contentType, true, nil
}

func (s *SQLiteStore) SetSecret(ctx context.Context, object string, secret []byte, contentType string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE secrets SET secret = ?, content_type = ? WHERE object = ?`, secret, contentType, object)
	if err != nil {
		return fmt.Errorf("set_secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set_secret: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set_secret: no such object %s", object)
	}
	return nil
}

func (s *SQLiteStore) DeleteItem(ctx context.Context, object string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete_item: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE object = ?`, object); err != nil {
		return fmt.Errorf("delete item row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attributes WHERE object = ?`, object); err != nil {
		return fmt.Errorf("delete attribute rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM secrets WHERE object = ?`, object); err != nil {
		return fmt.Errorf("delete secret row: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ItemExists(ctx context.Context, object string) (bool, error) {
	var one int
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM items WHERE object = ? LIMIT 1`, object)
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("item_exists: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
