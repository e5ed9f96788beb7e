package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{`CREATE TABLE IF NOT EXISTS sent_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp       TEXT NOT NULL,
	sender_address  TEXT NOT NULL,
	recipient_email TEXT NOT NULL,
	school          TEXT NOT NULL DEFAULT '',
	admin_name      TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS sent_log_recipient ON sent_log (recipient_email)`,
}

// SQLiteStore keeps the ledger in a sent_log table. Rows are only ever inserted.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite ledger database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite %s: %w", path, err)
	}
	// Single writer; keeps modernc from interleaving connections on one file.
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ledger: create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Contacted returns every distinct recipient address in the table.
func (s *SQLiteStore) Contacted(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT recipient_email FROM sent_log`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query contacted: %w", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		if email = strings.TrimSpace(email); email != "" {
			out[email] = struct{}{}
		}
	}
	return out, rows.Err()
}

// Append inserts one row in its own implicit transaction.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_log (timestamp, sender_address, recipient_email, school, admin_name, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.Format(TimeLayout), e.SenderAddress, e.RecipientEmail,
		e.School, e.ContactName, e.Status, e.Error)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) countByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sent_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger: count: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
