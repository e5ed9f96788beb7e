package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/multi-sender-outreach/internal/version"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(configErr(errors.New("bad flag"))))
	assert.Equal(t, 1, exitCode(runErr(errors.New("smtp down"))))
	assert.Equal(t, 1, exitCode(errors.New("unclassified")))
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	senders := filepath.Join(dir, "senders.json")
	recipients := filepath.Join(dir, "recipients.csv")
	badLedger := filepath.Join(dir, "bad_ledger.csv")
	require.NoError(t, os.WriteFile(senders, []byte(`[{"name":"A","email":"a@example.com","password":"pw-a"}]`), 0o600))
	require.NoError(t, os.WriteFile(recipients, []byte("Email,School\nprincipal@lincoln.edu,Lincoln\n"), 0o600))
	require.NoError(t, os.WriteFile(badLedger, []byte("a,b\n1,2\n"), 0o600))

	paths := []string{
		"--senders", senders,
		"--recipients", recipients,
		"--ledger", filepath.Join(dir, "sent_log.csv"),
	}

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{name: "version", args: []string{"--version"}, wantCode: 0, wantOut: version.Current},
		{name: "unknown flag", args: []string{"run", "--no-such-flag"}, wantCode: 2},
		{name: "invalid delays", args: append([]string{"run", "--min-delay", "30s", "--max-delay", "10s"}, paths...), wantCode: 2},
		{name: "validation without address", args: append([]string{"run", "--mode", "test"}, paths...), wantCode: 2},
		{name: "missing senders file", args: []string{"run", "--senders", filepath.Join(dir, "nope.json"), "--recipients", recipients}, wantCode: 2},
		{name: "preview", args: append([]string{"preview", "--limit", "1"}, paths...), wantCode: 0, wantOut: "To: principal@lincoln.edu"},
		{name: "empty ledger", args: append([]string{"ledger"}, paths...), wantCode: 0, wantOut: "no entries"},
		{name: "unreadable ledger", args: []string{"ledger", "--ledger", badLedger}, wantCode: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := execute(context.Background(), tt.args, &out)
			assert.Equal(t, tt.wantCode, code, "output: %s", out.String())
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}
