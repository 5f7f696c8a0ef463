package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRegistry implements Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingests (
		id TEXT PRIMARY KEY,
		title TEXT,
		source TEXT,
		document_type TEXT,
		namespace TEXT NOT NULL DEFAULT '',
		filename TEXT,
		tags TEXT,
		chunk_count INTEGER NOT NULL,
		word_count INTEGER,
		char_count INTEGER,
		file_size INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ingests_namespace ON ingests(namespace);
	CREATE INDEX IF NOT EXISTS idx_ingests_created_at ON ingests(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Save inserts or replaces an ingest record.
func (r *SQLiteRegistry) Save(ctx context.Context, rec *Record) error {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ingests
		 (id, title, source, document_type, namespace, filename, tags, chunk_count, word_count, char_count, file_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Source, rec.DocumentType, rec.Namespace, rec.Filename,
		string(tagsJSON), rec.ChunkCount, rec.WordCount, rec.CharCount, rec.FileSize, rec.CreatedAt,
	)
	return err
}

const recordColumns = `id, title, source, document_type, namespace, filename, tags, chunk_count, word_count, char_count, file_size, created_at`

func scanRecord(scan func(...interface{}) error) (*Record, error) {
	var rec Record
	var tagsJSON string
	err := scan(&rec.ID, &rec.Title, &rec.Source, &rec.DocumentType, &rec.Namespace,
		&rec.Filename, &tagsJSON, &rec.ChunkCount, &rec.WordCount, &rec.CharCount,
		&rec.FileSize, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &rec, nil
}

// Get returns a record by document ID.
func (r *SQLiteRegistry) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM ingests WHERE id = ?`, id)
	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns records newest first, optionally restricted to a namespace.
func (r *SQLiteRegistry) List(ctx context.Context, namespace string, offset, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + recordColumns + ` FROM ingests`
	args := []interface{}{}
	if namespace != "" {
		query += ` WHERE namespace = ?`
		args = append(args, namespace)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Delete removes a record by document ID.
func (r *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ingests WHERE id = ?`, id)
	return err
}

// DeleteNamespace removes every record in the namespace and returns what was
// deleted.
func (r *SQLiteRegistry) DeleteNamespace(ctx context.Context, namespace string) ([]*Record, error) {
	if namespace == "" {
		return nil, fmt.Errorf("refusing to delete the empty namespace")
	}
	recs, err := r.List(ctx, namespace, 0, 1<<30)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ingests WHERE namespace = ?`, namespace); err != nil {
		return nil, err
	}
	return recs, nil
}

// Count returns the total number of ingest records.
func (r *SQLiteRegistry) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingests`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}
