// Package compose builds the subject and body of an outreach message for one recipient.
package compose

import (
	"context"
	"errors"

	"github.com/shpitdev/multi-sender-outreach/internal/recipients"
)

// DefaultSubject is the subject line used when none is configured.
const DefaultSubject = "Quick question about your PTO"

// DefaultSignature closes every message.
const DefaultSignature = "Hubbalicious Outreach Team"

// ErrEmptyBody is returned when a strategy produces no body text.
var ErrEmptyBody = errors.New("compose: empty body")

// Request carries what a strategy may use to personalize a message.
type Request struct {
	Recipient recipients.Record

	// SenderName is the display name of the mailbox chosen for this attempt.
	SenderName string
}

// Message is a composed email. The subject is the configured constant for every strategy.
type Message struct {
	Subject string
	Body    string
}

// Composer produces the message for a single recipient.
type Composer interface {
	Compose(ctx context.Context, req Request) (Message, error)
}
