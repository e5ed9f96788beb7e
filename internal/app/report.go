package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shpitdev/multi-sender-outreach/internal/compose"
	"github.com/shpitdev/multi-sender-outreach/internal/config"
	"github.com/shpitdev/multi-sender-outreach/internal/ledger"
	"github.com/shpitdev/multi-sender-outreach/internal/outreach"
	"github.com/shpitdev/multi-sender-outreach/internal/recipients"
)

// Preview composes messages for the first limit sendable recipients and writes them
// to w. Nothing is sent and the ledger is only read.
func Preview(ctx context.Context, cfg config.Config, w io.Writer, limit int, opts ...Option) (int, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if limit <= 0 {
		limit = 3
	}

	composer := o.composer
	if composer == nil {
		var err error
		composer, err = NewComposer(ctx, cfg)
		if err != nil {
			return 0, err
		}
	}

	contacted := map[string]struct{}{}
	if cfg.DedupeEnabled && config.FileExists(cfg.LedgerPath) {
		store, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return 0, err
		}
		raw, err := store.Contacted(ctx)
		_ = store.Close()
		if err != nil {
			return 0, err
		}
		for email := range raw {
			contacted[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
		}
	}

	src, closer, err := recipients.Open(cfg.RecipientsPath, cfg.Columns)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = closer.Close()
	}()

	validation := cfg.Mode == string(outreach.ModeValidation)
	shown := 0
	for shown < limit {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return shown, err
		}
		if _, seen := contacted[strings.ToLower(rec.Email)]; seen {
			continue
		}

		msg, err := composer.Compose(ctx, compose.Request{Recipient: rec})
		if err != nil {
			return shown, fmt.Errorf("compose line %d: %w", rec.Line, err)
		}
		shown++

		to := rec.Email
		if validation {
			to = fmt.Sprintf("%s (for %s)", cfg.TestAddress, rec.Email)
		}
		_, _ = fmt.Fprintf(w, "--- %d (line %d) ---\nTo: %s\nSubject: %s\n\n%s\n", shown, rec.Line, to, msg.Subject, strings.TrimRight(msg.Body, "\n"))
	}
	return shown, nil
}

// LedgerReport writes entry totals for the configured ledger to w.
func LedgerReport(ctx context.Context, cfg config.Config, w io.Writer) (ledger.Totals, error) {
	if !config.FileExists(cfg.LedgerPath) {
		_, _ = fmt.Fprintf(w, "ledger %s: no entries\n", cfg.LedgerPath)
		return ledger.Totals{}, nil
	}
	store, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return ledger.Totals{}, err
	}
	defer func() {
		_ = store.Close()
	}()

	t, err := ledger.Summarize(ctx, store)
	if err != nil {
		return ledger.Totals{}, err
	}
	_, _ = fmt.Fprintf(w, "ledger %s\n  rows:      %d\n  success:   %d\n  error:     %d\n  contacted: %d\n",
		cfg.LedgerPath, t.Rows, t.Success, t.Error, t.Contacted)
	return t, nil
}
