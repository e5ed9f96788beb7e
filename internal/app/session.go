// Package app wires configuration into a runnable outreach session.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shpitdev/multi-sender-outreach/internal/accounts"
	"github.com/shpitdev/multi-sender-outreach/internal/compose"
	"github.com/shpitdev/multi-sender-outreach/internal/compose/gemini"
	"github.com/shpitdev/multi-sender-outreach/internal/config"
	"github.com/shpitdev/multi-sender-outreach/internal/ledger"
	"github.com/shpitdev/multi-sender-outreach/internal/outreach"
	"github.com/shpitdev/multi-sender-outreach/internal/pacing"
	"github.com/shpitdev/multi-sender-outreach/internal/recipients"
	"github.com/shpitdev/multi-sender-outreach/internal/transport"
)

// Option overrides a collaborator a Session would otherwise build from config.
type Option func(*options)

type options struct {
	transport transport.Transport
	composer  compose.Composer
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

func WithComposer(c compose.Composer) Option {
	return func(o *options) { o.composer = c }
}

// WithSleep replaces the pause between attempts.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Session is a fully wired run. Errors from NewSession are startup errors; errors
// from Run happen after the run started.
type Session struct {
	ID  string
	cfg config.Config
	log zerolog.Logger

	orch    *outreach.Orchestrator
	source  *recipients.Reader
	closers []io.Closer
}

// NewSession loads senders, opens the recipient file and the ledger and builds the
// composer and transport. cfg must already be validated.
func NewSession(ctx context.Context, cfg config.Config, base zerolog.Logger, opts ...Option) (*Session, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	s := &Session{ID: uuid.NewString(), cfg: cfg}
	s.log = base.With().Str("run", s.ID).Logger()

	senders, err := accounts.Load(cfg.SendersPath)
	if err != nil {
		return nil, err
	}

	src, closer, err := recipients.Open(cfg.RecipientsPath, cfg.Columns)
	if err != nil {
		return nil, err
	}
	s.source = src
	s.closers = append(s.closers, closer)

	store, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.closers = append(s.closers, store)

	composer := o.composer
	if composer == nil {
		composer, err = NewComposer(ctx, cfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	tr := o.transport
	if tr == nil {
		tr, err = NewTransport(cfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	selectRand, delayRand := seededRands(cfg.Seed)
	pacer, err := pacing.New(pacing.Config{
		Min:     cfg.MinDelay,
		Max:     cfg.MaxDelay,
		PerHour: cfg.SendsPerHour,
		Rand:    delayRand,
		Sleep:   o.sleep,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	mode, err := outreach.ParseMode(cfg.Mode)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.orch, err = outreach.New(outreach.Options{
		PerAccountCap:   cfg.PerAccountCap,
		DedupeEnabled:   cfg.DedupeEnabled,
		Mode:            mode,
		TestAddress:     cfg.TestAddress,
		ValidationSends: cfg.ValidationSends,
	}, outreach.Deps{
		Pool:      accounts.NewPool(senders),
		Ledger:    store,
		Composer:  tracedComposer{next: composer, log: s.log},
		Transport: tracedTransport{next: tr, log: s.log},
		Pacer:     pacer,
		Rand:      selectRand,
		Now:       o.now,
		Logger:    s.log,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.log.Info().
		Interface("config", cfg.Masked()).
		Int("senders", len(senders)).
		Msg("run start")
	return s, nil
}

// Run executes the session and logs its summary.
func (s *Session) Run(ctx context.Context) (outreach.Summary, error) {
	sum, err := s.orch.Run(ctx, s.source)
	ev := s.log.Info()
	if err != nil && !errors.Is(err, context.Canceled) {
		ev = s.log.Error().Err(err)
	}
	ev.Str("reason", string(sum.Reason)).
		Int("read", sum.Read).
		Int("sent", sum.Sent).
		Int("failed", sum.Failed).
		Int("skipped_blank", sum.SkippedBlank).
		Int("skipped_contacted", sum.SkippedContacted).
		Interface("per_sender", sum.PerSender).
		Dur("elapsed", sum.Elapsed).
		Msg("run complete")
	return sum, err
}

// Close releases the recipient file and the ledger.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewComposer builds the configured message strategy.
func NewComposer(ctx context.Context, cfg config.Config) (compose.Composer, error) {
	switch cfg.Strategy {
	case config.StrategyGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.GeminiModel,
			BaseURL:   cfg.GeminiBaseURL,
			Timeout:   cfg.GeminiTimeout,
			Subject:   cfg.SubjectLine,
			Signature: cfg.Signature,
		})
	case config.StrategyTemplate, "":
		return compose.Template{Subject: cfg.SubjectLine, Signature: cfg.Signature}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}

// NewTransport builds the configured delivery transport.
func NewTransport(cfg config.Config) (transport.Transport, error) {
	kind, err := transport.NormalizeKind(cfg.Transport)
	if err != nil {
		return nil, err
	}
	if kind == transport.KindResend {
		r, err := transport.NewResend(cfg.ResendBaseURL)
		if err != nil {
			return nil, fmt.Errorf("resend: %w", err)
		}
		return r, nil
	}
	return transport.NewSMTP(transport.SMTPConfig{
		Host:    cfg.SMTPHost,
		Port:    cfg.SMTPPort,
		Timeout: cfg.SMTPTimeout,
	}), nil
}

func seededRands(seed int64) (selectRand, delayRand *rand.Rand) {
	s := uint64(seed)
	if seed == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(s, 1)), rand.New(rand.NewPCG(s, 2))
}
