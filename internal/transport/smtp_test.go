package transport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mail "gopkg.in/mail.v2"

	"github.com/shpitdev/multi-sender-outreach/internal/accounts"
)

var testSender = accounts.Sender{
	Name:       "Alice Example",
	Address:    "alice@example.com",
	Credential: "app-password-1234",
}

func TestNewSMTPDefaults(t *testing.T) {
	s := NewSMTP(SMTPConfig{})
	assert.Equal(t, "smtp.gmail.com:587", s.Endpoint())
	assert.Equal(t, 30*time.Second, s.timeout)
}

func TestSMTPSendUsesSenderCredentials(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "mail.test", Port: 2525, Timeout: 5 * time.Second})

	var gotDialer *mail.Dialer
	var raw bytes.Buffer
	s.dial = func(d *mail.Dialer, m *mail.Message) error {
		gotDialer = d
		_, err := m.WriteTo(&raw)
		return err
	}

	err := s.Send(context.Background(), testSender, "principal@school.org", "Quick question", "Hi there,\n\nBody.\n")
	require.NoError(t, err)
	require.NotNil(t, gotDialer)

	assert.Equal(t, "mail.test", gotDialer.Host)
	assert.Equal(t, 2525, gotDialer.Port)
	assert.Equal(t, "alice@example.com", gotDialer.Username)
	assert.Equal(t, "app-password-1234", gotDialer.Password)
	assert.Equal(t, mail.MandatoryStartTLS, gotDialer.StartTLSPolicy)
	assert.Equal(t, 5*time.Second, gotDialer.Timeout)

	msg := raw.String()
	assert.Contains(t, msg, `From: "Alice Example" <alice@example.com>`)
	assert.Contains(t, msg, "To: principal@school.org")
	assert.Contains(t, msg, "Subject: Quick question")
	assert.Contains(t, msg, "Content-Type: text/plain")
}

func TestSMTPSendErrorKeepsReasonAndHidesCredential(t *testing.T) {
	s := NewSMTP(SMTPConfig{})
	s.dial = func(*mail.Dialer, *mail.Message) error {
		return errors.New("535 5.7.8 Username and Password not accepted (app-password-1234)")
	}

	err := s.Send(context.Background(), testSender, "x@y.org", "s", "b")
	require.Error(t, err)

	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, "smtp", sendErr.Provider)
	assert.Contains(t, err.Error(), "535 5.7.8 Username and Password not accepted")
	assert.Contains(t, err.Error(), "alice@example.com")
	assert.False(t, strings.Contains(err.Error(), "app-password-1234"), "credential leaked: %s", err.Error())
}

func TestSMTPSendHonorsCanceledContext(t *testing.T) {
	s := NewSMTP(SMTPConfig{})
	called := false
	s.dial = func(*mail.Dialer, *mail.Message) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, testSender, "x@y.org", "s", "b")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "", want: KindSMTP},
		{in: " SMTP ", want: KindSMTP},
		{in: "resend", want: KindResend},
		{in: "carrier-pigeon", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeKind(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
