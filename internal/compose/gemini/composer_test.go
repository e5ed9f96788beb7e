package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/multi-sender-outreach/internal/compose"
	"github.com/shpitdev/multi-sender-outreach/internal/recipients"
)

func TestNew_RequiresKeyAndModel(t *testing.T) {
	_, err := New(context.Background(), Config{Model: "gemini-2.5-flash"})
	require.Error(t, err)
	_, err = New(context.Background(), Config{APIKey: "k"})
	require.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(compose.Request{Recipient: recipients.Record{
		Email:       "jane@lincoln.test",
		School:      "Lincoln Elementary",
		ContactName: "Jane Doe",
		County:      "King",
		EntityType:  "Public",
		Website:     "https://lincoln.test",
	}}, "Parents United")

	for _, want := range []string{
		"Administrator name: Jane Doe",
		"School: Lincoln Elementary",
		"County: King",
		"Entity type: Public",
		"Website: https://lincoln.test",
		"4 to 6 sentences",
		"No sales language",
		"greeting line: Hi Jane Doe,",
		"Best,\nParents United",
		"Never mention or imply that the email was generated",
	} {
		assert.Contains(t, p, want)
	}
	assert.NotContains(t, p, "jane@lincoln.test")

	blank := buildPrompt(compose.Request{Recipient: recipients.Record{School: "Grant High"}}, "X")
	assert.Contains(t, blank, "greeting line: Hi there,")
	assert.Contains(t, blank, "County: (unknown)")
}

func TestCompose_AgainstFakeServer(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  Hi Jane Doe,\n\nHello.\n\nBest,\nTeam  "}]}}]}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL, Subject: "Subject A"})
	require.NoError(t, err)

	msg, err := c.Compose(context.Background(), compose.Request{Recipient: recipients.Record{ContactName: "Jane Doe", School: "Lincoln Elementary"}})
	require.NoError(t, err)
	assert.Equal(t, "Subject A", msg.Subject)
	assert.Equal(t, "Hi Jane Doe,\n\nHello.\n\nBest,\nTeam", msg.Body)
	assert.True(t, strings.Contains(gotBody, "Lincoln Elementary"), "prompt not sent: %s", gotBody)
}

func TestCompose_ErrorsAreReturned(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"bad prompt","status":"INVALID_ARGUMENT"}}`)
		}))
		defer srv.Close()

		c, err := New(context.Background(), Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = c.Compose(context.Background(), compose.Request{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gemini: generate")
	})

	t.Run("empty text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"   "}]}}]}`)
		}))
		defer srv.Close()

		c, err := New(context.Background(), Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = c.Compose(context.Background(), compose.Request{})
		require.ErrorIs(t, err, compose.ErrEmptyBody)
	})
}
