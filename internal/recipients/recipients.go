// Package recipients streams contact rows out of a CSV export and maps
// deployment-specific column names onto a canonical record.
package recipients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingEmailColumn is returned when no header matches the configured email column.
var ErrMissingEmailColumn = errors.New("recipients: missing email column")

// Record is one contact row. Email is always trimmed and non-empty.
type Record struct {
	Email       string
	School      string
	ContactName string
	County      string
	EntityType  string
	Website     string

	// Line is the 1-based CSV line the record was read from.
	Line int
}

// Columns lists the accepted header names for each canonical field. Matching is
// case-insensitive and ignores surrounding whitespace; the first match wins.
type Columns struct {
	Email       []string
	School      []string
	ContactName []string
	County      []string
	EntityType  []string
	Website     []string
}

// DefaultColumns recognizes the header spellings used by the known contact exports.
func DefaultColumns() Columns {
	return Columns{
		Email:       []string{"Email", "email", "email_address"},
		School:      []string{"School", "school_name", "school"},
		ContactName: []string{"Administrator Name", "contact_name", "admin_name", "name"},
		County:      []string{"County", "county"},
		EntityType:  []string{"Entity Type", "entity_type"},
		Website:     []string{"Website", "website", "url"},
	}
}

// Merge returns c with any empty field filled from fallback.
func (c Columns) Merge(fallback Columns) Columns {
	pick := func(a, b []string) []string {
		if len(a) > 0 {
			return a
		}
		return b
	}
	return Columns{
		Email:       pick(c.Email, fallback.Email),
		School:      pick(c.School, fallback.School),
		ContactName: pick(c.ContactName, fallback.ContactName),
		County:      pick(c.County, fallback.County),
		EntityType:  pick(c.EntityType, fallback.EntityType),
		Website:     pick(c.Website, fallback.Website),
	}
}

type columnIndex struct {
	email, school, contact, county, entity, website int
}

// Reader yields records lazily. It is single-pass.
type Reader struct {
	cr    *csv.Reader
	idx   columnIndex
	blank int
}

// NewReader reads the header row and resolves the column mapping.
func NewReader(r io.Reader, cols Columns) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("recipients: read header: %w", err)
	}
	byName := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeHeader(name)
		if _, ok := byName[key]; !ok {
			byName[key] = i
		}
	}
	lookup := func(names []string) int {
		for _, n := range names {
			if i, ok := byName[normalizeHeader(n)]; ok {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		email:   lookup(cols.Email),
		school:  lookup(cols.School),
		contact: lookup(cols.ContactName),
		county:  lookup(cols.County),
		entity:  lookup(cols.EntityType),
		website: lookup(cols.Website),
	}
	if idx.email < 0 {
		return nil, fmt.Errorf("%w (tried %q)", ErrMissingEmailColumn, cols.Email)
	}
	return &Reader{cr: cr, idx: idx}, nil
}

// Open opens a CSV file and returns a Reader over it. The caller closes the returned
// Closer once iteration is finished.
func Open(path string, cols Columns) (*Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("recipients: open %s: %w", path, err)
	}
	r, err := NewReader(f, cols)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return r, f, nil
}

// Next returns the next record with a non-blank email, or io.EOF when the input is
// exhausted. Rows whose email cell is empty or whitespace are skipped and counted.
func (r *Reader) Next() (Record, error) {
	for {
		rec, err := r.cr.Read()
		if err == io.EOF {
			return Record{}, io.EOF
		}
		if err != nil {
			return Record{}, fmt.Errorf("recipients: read row: %w", err)
		}
		line, _ := r.cr.FieldPos(0)

		get := func(i int) string {
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		email := get(r.idx.email)
		if email == "" {
			r.blank++
			continue
		}
		return Record{
			Email:       email,
			School:      get(r.idx.school),
			ContactName: get(r.idx.contact),
			County:      get(r.idx.county),
			EntityType:  get(r.idx.entity),
			Website:     get(r.idx.website),
			Line:        line,
		}, nil
	}
}

// Blank returns how many rows were skipped for having no email so far.
func (r *Reader) Blank() int { return r.blank }

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}
