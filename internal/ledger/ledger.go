// Package ledger records every send attempt in an append-only log and answers which
// recipients were already contacted by earlier runs.
package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Status values written to the ledger.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TimeLayout is the timestamp format of the ledger's timestamp column.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is one send attempt.
type Entry struct {
	Timestamp      time.Time
	SenderAddress  string
	RecipientEmail string
	School         string
	ContactName    string
	Status         string
	Error          string
}

// Store is an append-only attempt log.
type Store interface {
	// Contacted returns every recipient address that has at least one entry.
	Contacted(ctx context.Context) (map[string]struct{}, error)
	// Append durably adds one entry before returning.
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Header returns the stable column order of the ledger.
func Header() []string {
	return []string{
		"timestamp",
		"sender_address",
		"recipient_email",
		"school",
		"admin_name",
		"status",
		"error",
	}
}

// recordFor lays the entry out under header. Columns the entry has no value for are
// left empty.
func (e Entry) recordFor(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		switch canonicalColumn(name) {
		case "timestamp":
			out[i] = e.Timestamp.Format(TimeLayout)
		case "sender_address":
			out[i] = e.SenderAddress
		case "recipient_email":
			out[i] = e.RecipientEmail
		case "school":
			out[i] = e.School
		case "admin_name":
			out[i] = e.ContactName
		case "status":
			out[i] = e.Status
		case "error":
			out[i] = e.Error
		}
	}
	return out
}

// Open returns the store for path, choosing SQLite for .db/.sqlite/.sqlite3 files and
// CSV otherwise.
func Open(path string) (Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger: path is required")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewCSVStore(path), nil
	}
}

// Totals summarizes a ledger's contents.
type Totals struct {
	Rows      int
	Success   int
	Error     int
	Contacted int
}

// Summarize counts entries by status. Stores that cannot enumerate entries only
// report the contacted set size.
func Summarize(ctx context.Context, s Store) (Totals, error) {
	contacted, err := s.Contacted(ctx)
	if err != nil {
		return Totals{}, err
	}
	t := Totals{Contacted: len(contacted)}
	if c, ok := s.(interface {
		countByStatus(ctx context.Context) (map[string]int, error)
	}); ok {
		counts, err := c.countByStatus(ctx)
		if err != nil {
			return Totals{}, err
		}
		for status, n := range counts {
			t.Rows += n
			switch status {
			case StatusSuccess:
				t.Success += n
			case StatusError:
				t.Error += n
			}
		}
	}
	return t, nil
}
