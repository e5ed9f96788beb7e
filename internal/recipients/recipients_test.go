package recipients_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/multi-sender-outreach/internal/recipients"
)

func readAll(t *testing.T, r *recipients.Reader) []recipients.Record {
	t.Helper()
	var out []recipients.Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestReader(t *testing.T) {
	t.Run("fundraiser export headers", func(t *testing.T) {
		in := "School,Administrator Name,Email,Phone\n" +
			"Lincoln Elementary, Jane Doe ,jane@lincoln.test,555\n" +
			"Adams Middle,,  ,555\n" +
			"Grant High,,grant@grant.test,\n"
		r, err := recipients.NewReader(strings.NewReader(in), recipients.DefaultColumns())
		require.NoError(t, err)

		got := readAll(t, r)
		require.Len(t, got, 2)
		assert.Equal(t, recipients.Record{Email: "jane@lincoln.test", School: "Lincoln Elementary", ContactName: "Jane Doe", Line: 2}, got[0])
		assert.Equal(t, "grant@grant.test", got[1].Email)
		assert.Equal(t, "", got[1].ContactName)
		assert.Equal(t, 4, got[1].Line)
		assert.Equal(t, 1, r.Blank())
	})

	t.Run("directory export headers", func(t *testing.T) {
		in := "\ufeffemail,school_name,contact_name,county,entity_type,website\n" +
			"a@district.test,North Academy,Sam Lee,King,Charter,https://north.test\n"
		r, err := recipients.NewReader(strings.NewReader(in), recipients.DefaultColumns())
		require.NoError(t, err)

		got := readAll(t, r)
		require.Len(t, got, 1)
		assert.Equal(t, "North Academy", got[0].School)
		assert.Equal(t, "Sam Lee", got[0].ContactName)
		assert.Equal(t, "King", got[0].County)
		assert.Equal(t, "Charter", got[0].EntityType)
		assert.Equal(t, "https://north.test", got[0].Website)
	})

	t.Run("custom mapping", func(t *testing.T) {
		cols := recipients.Columns{Email: []string{"Contact E-mail"}, School: []string{"Org"}}.Merge(recipients.DefaultColumns())
		in := "Org,Contact E-mail\nAcme,ops@acme.test\n"
		r, err := recipients.NewReader(strings.NewReader(in), cols)
		require.NoError(t, err)
		got := readAll(t, r)
		require.Len(t, got, 1)
		assert.Equal(t, "Acme", got[0].School)
	})

	t.Run("short rows", func(t *testing.T) {
		in := "School,Email\nOnly School\n"
		r, err := recipients.NewReader(strings.NewReader(in), recipients.DefaultColumns())
		require.NoError(t, err)
		assert.Empty(t, readAll(t, r))
		assert.Equal(t, 1, r.Blank())
	})

	t.Run("missing email column", func(t *testing.T) {
		_, err := recipients.NewReader(strings.NewReader("School,Phone\nx,y\n"), recipients.DefaultColumns())
		require.ErrorIs(t, err, recipients.ErrMissingEmailColumn)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := recipients.NewReader(strings.NewReader(""), recipients.DefaultColumns())
		require.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	_, _, err := recipients.Open(filepath.Join(t.TempDir(), "nope.csv"), recipients.DefaultColumns())
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte("Email\nx@example.com\n"), 0o644))
	r, closer, err := recipients.Open(path, recipients.DefaultColumns())
	require.NoError(t, err)
	defer closer.Close()
	assert.Len(t, readAll(t, r), 1)
}
