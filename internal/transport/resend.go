package transport

import (
	"context"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/shpitdev/multi-sender-outreach/internal/accounts"
)

// Resend submits messages through the Resend HTTP API. Each sender's credential is its
// Resend API key.
type Resend struct {
	baseURL *url.URL
}

// NewResend returns a Resend transport. baseURL overrides the API endpoint and may be empty.
func NewResend(baseURL string) (*Resend, error) {
	r := &Resend{}
	if strings.TrimSpace(baseURL) != "" {
		u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/")
		if err != nil {
			return nil, err
		}
		r.baseURL = u
	}
	return r, nil
}

// Send implements Transport. A new client is built per call so no session outlives
// one message.
func (r *Resend) Send(ctx context.Context, sender accounts.Sender, to, subject, body string) error {
	client := resend.NewClient(sender.Credential)
	if r.baseURL != nil {
		client.BaseURL = r.baseURL
	}

	_, err := client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    sender.From(),
		To:      []string{to},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return sendError("resend", sender, err)
	}
	return nil
}
