package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVStore keeps the ledger as a CSV file. The file is only ever appended to.
type CSVStore struct {
	path string
}

// NewCSVStore returns a store backed by path. The file is created on first Append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the ledger file path.
func (s *CSVStore) Path() string { return s.path }

// Contacted reads the recipient column of every row. A missing file yields an empty set.
func (s *CSVStore) Contacted(ctx context.Context) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	err := s.scan(ctx, func(get func(string) string) {
		if email := strings.TrimSpace(get("recipient_email")); email != "" {
			out[email] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CSVStore) countByStatus(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	err := s.scan(ctx, func(get func(string) string) {
		out[strings.TrimSpace(get("status"))]++
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CSVStore) scan(ctx context.Context, fn func(get func(string) string)) error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ledger: open %s: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger: read header: %w", err)
	}
	index, err := s.columnIndex(header)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ledger: read row: %w", err)
		}
		fn(func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		})
	}
}

// columnIndex maps canonical column names to positions in header. Legacy spellings
// resolve to their canonical name; the first match wins.
func (s *CSVStore) columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		canon := canonicalColumn(name)
		if canon == "" {
			continue
		}
		if _, taken := index[canon]; !taken {
			index[canon] = i
		}
	}
	if _, ok := index["recipient_email"]; !ok {
		return nil, fmt.Errorf("ledger: %s has no recipient_email column", s.path)
	}
	return index, nil
}

func canonicalColumn(name string) string {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	switch key {
	case "timestamp", "school", "admin_name", "status", "error":
		return key
	case "sender_address", "sender_email", "sender":
		return "sender_address"
	case "recipient_email", "recipient", "email":
		return "recipient_email"
	case "contact_name":
		return "admin_name"
	default:
		return ""
	}
}

// Append writes one row, writing the header first when the file is new or empty. On an
// existing ledger the row follows that file's own header, column by column, and a
// missing final newline is restored first. The row is flushed and synced before Append
// returns.
func (s *CSVStore) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open %s: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("ledger: stat %s: %w", s.path, err)
	}

	header := Header()
	fresh := true
	if size := info.Size(); size > 0 {
		existing, err := csv.NewReader(io.NewSectionReader(f, 0, size)).Read()
		switch {
		case err == io.EOF:
		case err != nil:
			return fmt.Errorf("ledger: read header: %w", err)
		default:
			if _, err := s.columnIndex(existing); err != nil {
				return err
			}
			header, fresh = existing, false
		}

		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("ledger: read %s: %w", s.path, err)
		}
		if last[0] != '\n' {
			if _, err := f.Write([]byte("\n")); err != nil {
				return fmt.Errorf("ledger: write %s: %w", s.path, err)
			}
		}
	}

	cw := csv.NewWriter(f)
	if fresh {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	if err := cw.Write(e.recordFor(header)); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("ledger: write row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("ledger: sync %s: %w", s.path, err)
	}
	return f.Close()
}

// Close is a no-op; every Append opens and closes the file.
func (s *CSVStore) Close() error { return nil }
