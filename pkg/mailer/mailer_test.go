package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	mail "github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/pkg/config"
)

type recordingDialer struct {
	sent []*mail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*mail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestNewSMTPRequiresHostAndFrom(t *testing.T) {
	_, err := NewSMTP(config.NotificationConfig{SMTPHost: "smtp.example.org"})
	assert.Error(t, err)

	m, err := NewSMTP(config.NotificationConfig{SMTPHost: "smtp.example.org", From: "desk@example.org"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestSMTPMailerSend(t *testing.T) {
	d := &recordingDialer{}
	m := &SMTPMailer{from: "desk@example.org", dialer: d}

	require.NoError(t, m.Send(context.Background(), Message{To: nil, Subject: "skip"}))
	assert.Empty(t, d.sent)

	require.NoError(t, m.Send(context.Background(), Message{
		To:      []string{"staff@example.org"},
		Subject: "Urgent complaint #3",
		HTML:    "<p>hello</p>",
	}))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"Urgent complaint #3"}, d.sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "staff@example.org")
}

func TestSMTPMailerSendError(t *testing.T) {
	d := &recordingDialer{err: errors.New("connection refused")}
	m := &SMTPMailer{from: "desk@example.org", dialer: d}

	err := m.Send(context.Background(), Message{To: []string{"a@example.org"}, Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
