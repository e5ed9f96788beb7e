// Package transport delivers a composed message from one sender mailbox to one recipient.
package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/shpitdev/multi-sender-outreach/internal/accounts"
	"github.com/shpitdev/multi-sender-outreach/internal/util"
)

// Transport submits exactly one message per call. Implementations open a fresh
// session for each call and never retry.
type Transport interface {
	Send(ctx context.Context, sender accounts.Sender, to, subject, body string) error
}

// SendError wraps a delivery failure with the provider and sender involved. Its text
// keeps the provider's reason so it can be written to the ledger.
type SendError struct {
	Provider string
	Sender   string
	Err      error

	credential string
}

func (e *SendError) Error() string {
	if e == nil || e.Err == nil {
		return "send failed"
	}
	msg := fmt.Sprintf("%s: send from %s: %s", e.Provider, e.Sender, e.Err.Error())
	return util.RedactSecrets(util.RedactValue(msg, e.credential))
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func sendError(provider string, sender accounts.Sender, err error) error {
	return &SendError{
		Provider:   provider,
		Sender:     sender.Address,
		Err:        err,
		credential: sender.Credential,
	}
}

// Kind names a transport implementation.
type Kind string

const (
	KindSMTP   Kind = "smtp"
	KindResend Kind = "resend"
)

// NormalizeKind maps user input to a Kind, defaulting to SMTP.
func NormalizeKind(raw string) (Kind, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "smtp":
		return KindSMTP, nil
	case "resend":
		return KindResend, nil
	default:
		return "", fmt.Errorf("unknown transport %q (want smtp or resend)", raw)
	}
}
