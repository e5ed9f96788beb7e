package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shpitdev/multi-sender-outreach/internal/accounts"
	"github.com/shpitdev/multi-sender-outreach/internal/compose"
	"github.com/shpitdev/multi-sender-outreach/internal/transport"
	"github.com/shpitdev/multi-sender-outreach/internal/util"
)

// tracedComposer logs each composition at debug level with its duration.
type tracedComposer struct {
	next compose.Composer
	log  zerolog.Logger
}

func (t tracedComposer) Compose(ctx context.Context, req compose.Request) (compose.Message, error) {
	start := time.Now()
	msg, err := t.next.Compose(ctx, req)
	ev := t.log.Debug().
		Str("to", req.Recipient.Email).
		Int("line", req.Recipient.Line).
		Dur("duration", time.Since(start).Round(time.Millisecond))
	if err != nil {
		ev.Str("error", util.RedactSecrets(err.Error())).Msg("compose failed")
		return msg, err
	}
	ev.Int("body_bytes", len(msg.Body)).Msg("composed")
	return msg, nil
}

// tracedTransport logs each delivery at debug level with its duration.
type tracedTransport struct {
	next transport.Transport
	log  zerolog.Logger
}

func (t tracedTransport) Send(ctx context.Context, sender accounts.Sender, to, subject, body string) error {
	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	start := time.Now()
	err := t.next.Send(ctx, sender, to, subject, body)
	ev := t.log.Debug().
		Str("sender", sender.Address).
		Str("to", to).
		Str("deadline_in", deadlineIn).
		Dur("duration", time.Since(start).Round(time.Millisecond))
	if err != nil {
		ev.Str("status", "error").Msg("deliver")
		return err
	}
	ev.Str("status", "ok").Msg("deliver")
	return nil
}
