package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"storybot/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS ledger (
	source     TEXT    NOT NULL,
	namespace  TEXT    NOT NULL,
	id         TEXT    NOT NULL,
	reason     TEXT    NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	PRIMARY KEY (source, namespace, id)
)`

// SQLiteStore persists ledger records in a SQLite database
type SQLiteStore struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (creating if needed) the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create ledger table: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, source string) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT namespace, id, reason, created_at FROM ledger WHERE source = ? ORDER BY created_at, id`,
		source,
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var (
			ns, id, reason string
			createdAt      int64
		)
		if err := rows.Scan(&ns, &id, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		records = append(records, types.Record{
			Namespace: types.Namespace(ns),
			Source:    source,
			ID:        id,
			Reason:    reason,
			Timestamp: fromMillis(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO ledger (source, namespace, id, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (source, namespace, id) DO NOTHING`,
		rec.Source, string(rec.Namespace), rec.ID, rec.Reason, toMillis(rec.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

// Flush is a no-op: each insert commits on its own.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
