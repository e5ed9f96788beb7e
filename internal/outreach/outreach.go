// Package outreach drives a sequential outreach run: it walks the recipient list,
// spreads sends across sender mailboxes under a per-mailbox cap, records every attempt
// in the ledger and pauses between attempts.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shpitdev/multi-sender-outreach/internal/accounts"
	"github.com/shpitdev/multi-sender-outreach/internal/compose"
	"github.com/shpitdev/multi-sender-outreach/internal/ledger"
	"github.com/shpitdev/multi-sender-outreach/internal/pacing"
	"github.com/shpitdev/multi-sender-outreach/internal/recipients"
	"github.com/shpitdev/multi-sender-outreach/internal/transport"
	"github.com/shpitdev/multi-sender-outreach/internal/util"
)

var errLedger = errors.New("outreach: append ledger")

// DefaultPerAccountCap is the per-mailbox success ceiling for one run.
const DefaultPerAccountCap = 200

// Source yields recipients in input order and io.EOF at the end.
type Source interface {
	Next() (recipients.Record, error)
}

type Options struct {
	PerAccountCap int
	DedupeEnabled bool

	Mode        Mode
	TestAddress string
	// ValidationSends caps attempts in validation mode. Zero means one per sender; attempts
	// rotate so no mailbox is used twice before every mailbox has been used once.
	ValidationSends int
}

// Deps are the collaborators of a run. Pool, Ledger, Composer, Transport and Pacer
// are required.
type Deps struct {
	Pool      *accounts.Pool
	Ledger    ledger.Store
	Composer  compose.Composer
	Transport transport.Transport
	Pacer     *pacing.Pacer

	// Rand picks among eligible senders. Nil means a time-seeded source.
	Rand   *rand.Rand
	Now    func() time.Time
	Logger zerolog.Logger
}

// Summary describes a finished run.
type Summary struct {
	Read             int
	Sent             int
	Failed           int
	SkippedBlank     int
	SkippedContacted int
	PerSender        map[string]int
	Reason           Reason
	State            State
	Elapsed          time.Duration
}

// Attempts is the number of delivery attempts, successful or not.
func (s Summary) Attempts() int { return s.Sent + s.Failed }

type Orchestrator struct {
	opts  Options
	deps  Deps
	rng   *rand.Rand
	now   func() time.Time
	log   zerolog.Logger
	state State
}

func New(opts Options, deps Deps) (*Orchestrator, error) {
	if deps.Pool == nil || deps.Pool.Len() == 0 {
		return nil, accounts.ErrNoSenders
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("outreach: ledger is required")
	}
	if deps.Composer == nil {
		return nil, fmt.Errorf("outreach: composer is required")
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("outreach: transport is required")
	}
	if deps.Pacer == nil {
		return nil, fmt.Errorf("outreach: pacer is required")
	}

	if opts.PerAccountCap == 0 {
		opts.PerAccountCap = DefaultPerAccountCap
	}
	if opts.PerAccountCap < 0 {
		return nil, fmt.Errorf("outreach: per-account cap must be > 0 (got %d)", opts.PerAccountCap)
	}
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	switch opts.Mode {
	case ModeFull:
	case ModeValidation:
		opts.TestAddress = strings.TrimSpace(opts.TestAddress)
		if opts.TestAddress == "" {
			return nil, fmt.Errorf("outreach: validation mode requires a test address")
		}
		if opts.ValidationSends < 0 {
			return nil, fmt.Errorf("outreach: validation sends must be >= 0 (got %d)", opts.ValidationSends)
		}
		if opts.ValidationSends == 0 {
			opts.ValidationSends = deps.Pool.Len()
		}
	default:
		return nil, fmt.Errorf("outreach: unknown mode %q", opts.Mode)
	}

	o := &Orchestrator{
		opts:  opts,
		deps:  deps,
		rng:   deps.Rand,
		now:   deps.Now,
		log:   deps.Logger,
		state: StateInit,
	}
	if o.rng == nil {
		seed := uint64(time.Now().UnixNano())
		o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// State returns the current run state.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) setState(s State) {
	if o.state == s {
		return
	}
	o.log.Debug().Str("from", o.state.String()).Str("to", s.String()).Msg("state")
	o.state = s
}

// Run processes src until it ends, every sender reaches the cap, the validation limit
// is hit or ctx is canceled. Per-recipient compose and delivery failures are recorded
// and do not stop the run. A ledger failure does.
func (o *Orchestrator) Run(ctx context.Context, src Source) (Summary, error) {
	start := o.now()
	sum := Summary{}
	finish := func(reason Reason, err error) (Summary, error) {
		o.setState(StateDone)
		sum.Reason = reason
		sum.State = o.state
		sum.PerSender = o.deps.Pool.Counts()
		if b, ok := src.(interface{ Blank() int }); ok {
			sum.SkippedBlank += b.Blank()
		}
		sum.Elapsed = o.now().Sub(start)
		return sum, err
	}

	tried := map[*accounts.Account]int{}

	o.setState(StateLoadingLedger)
	var contacted map[string]struct{}
	if o.opts.DedupeEnabled {
		raw, err := o.deps.Ledger.Contacted(ctx)
		if err != nil {
			return finish(ReasonFailed, fmt.Errorf("outreach: load ledger: %w", err))
		}
		contacted = make(map[string]struct{}, len(raw))
		for email := range raw {
			contacted[normalizeEmail(email)] = struct{}{}
		}
		o.log.Info().Int("contacted", len(contacted)).Msg("loaded ledger")
	}

	for {
		o.setState(StateIterating)
		if err := ctx.Err(); err != nil {
			return finish(ReasonCanceled, err)
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return finish(ReasonEndOfInput, nil)
		}
		if err != nil {
			return finish(ReasonFailed, fmt.Errorf("outreach: read recipients: %w", err))
		}
		sum.Read++

		email := strings.TrimSpace(rec.Email)
		if email == "" {
			o.setState(StateSkipping)
			sum.SkippedBlank++
			continue
		}
		if _, seen := contacted[normalizeEmail(email)]; seen {
			o.setState(StateSkipping)
			sum.SkippedContacted++
			o.log.Debug().Str("to", email).Msg("skip: already contacted")
			continue
		}

		if o.opts.Mode == ModeValidation && sum.Attempts() >= o.opts.ValidationSends {
			o.log.Info().Int("attempts", sum.Attempts()).Msg("validation limit reached")
			return finish(ReasonValidationLimit, nil)
		}

		eligible := o.deps.Pool.Eligible(o.opts.PerAccountCap)
		if o.opts.Mode == ModeValidation {
			eligible = leastTried(eligible, tried)
		}
		acct := accounts.Select(o.rng, eligible)
		if acct == nil {
			o.log.Warn().Int("cap", o.opts.PerAccountCap).Msg("all senders reached their cap")
			return finish(ReasonExhausted, nil)
		}

		o.setState(StateSending)
		rec.Email = email
		tried[acct]++
		ok, err := o.attempt(ctx, acct, rec)
		if err != nil {
			if ctx.Err() != nil && !errors.Is(err, errLedger) {
				return finish(ReasonCanceled, err)
			}
			return finish(ReasonFailed, err)
		}
		if ok {
			sum.Sent++
		} else {
			sum.Failed++
		}

		o.setState(StateThrottling)
		d, err := o.deps.Pacer.Pause(ctx)
		if err != nil {
			return finish(ReasonCanceled, err)
		}
		o.log.Debug().Dur("delay", d).Msg("paused")
	}
}

// attempt composes and delivers one message and appends its ledger entry. It reports
// whether delivery succeeded; the returned error is reserved for ledger failures and
// cancellation during the ceiling wait.
func (o *Orchestrator) attempt(ctx context.Context, acct *accounts.Account, rec recipients.Record) (bool, error) {
	to := rec.Email
	if o.opts.Mode == ModeValidation {
		to = o.opts.TestAddress
	}
	entry := ledger.Entry{
		SenderAddress:  acct.Sender.Address,
		RecipientEmail: to,
		School:         rec.School,
		ContactName:    rec.ContactName,
	}
	logger := o.log.With().Str("sender", acct.Sender.Address).Str("to", to).Logger()

	msg, err := o.deps.Composer.Compose(ctx, compose.Request{Recipient: rec, SenderName: acct.Sender.Name})
	if err != nil {
		return false, o.recordFailure(ctx, logger, entry, fmt.Errorf("compose: %w", err), acct.Sender.Credential)
	}

	if err := o.deps.Pacer.Wait(ctx); err != nil {
		return false, err
	}

	if err := o.deps.Transport.Send(ctx, acct.Sender, to, msg.Subject, msg.Body); err != nil {
		return false, o.recordFailure(ctx, logger, entry, err, acct.Sender.Credential)
	}

	acct.RecordSuccess()
	entry.Timestamp = o.now()
	entry.Status = ledger.StatusSuccess
	if err := o.deps.Ledger.Append(context.WithoutCancel(ctx), entry); err != nil {
		return true, fmt.Errorf("%w: %w", errLedger, err)
	}
	logger.Info().Int("sender_total", acct.Sent()).Msg("sent")
	return true, nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, logger zerolog.Logger, entry ledger.Entry, cause error, credential string) error {
	detail := util.RedactSecrets(util.RedactValue(cause.Error(), credential))
	entry.Timestamp = o.now()
	entry.Status = ledger.StatusError
	entry.Error = detail
	if err := o.deps.Ledger.Append(context.WithoutCancel(ctx), entry); err != nil {
		return fmt.Errorf("%w: %w", errLedger, err)
	}
	logger.Error().Str("error", detail).Msg("send failed")
	return nil
}

// leastTried keeps the accounts with the fewest attempts so far, so a validation run
// exercises every mailbox before repeating one.
func leastTried(eligible []*accounts.Account, tried map[*accounts.Account]int) []*accounts.Account {
	if len(eligible) == 0 {
		return nil
	}
	low := tried[eligible[0]]
	for _, a := range eligible[1:] {
		low = min(low, tried[a])
	}
	out := make([]*accounts.Account, 0, len(eligible))
	for _, a := range eligible {
		if tried[a] == low {
			out = append(out, a)
		}
	}
	return out
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
