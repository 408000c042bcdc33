package smtp

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type captureSender struct {
	msgs []*mail.Msg
	err  error
}

func (c *captureSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func fixedMailer(s sender) *mailer {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &mailer{client: s, from: "noreply@prayer.app", now: func() time.Time { return now }}
}

func TestSendCode_BuildsMessage(t *testing.T) {
	cs := &captureSender{}
	m := fixedMailer(cs)

	err := m.SendCode(context.Background(), "a@b.com", "123456", m.now().Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, cs.msgs, 1)

	rcpts, err := cs.msgs[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com"}, rcpts)

	var buf bytes.Buffer
	_, err = cs.msgs[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), "10 minutes")
	assert.Contains(t, buf.String(), codeSubject)
}

func TestSendCode_InvalidRecipient(t *testing.T) {
	cs := &captureSender{}
	err := fixedMailer(cs).SendCode(context.Background(), "not an address", "123456", time.Now())
	assert.Error(t, err)
	assert.Empty(t, cs.msgs)
}

func TestSendCode_DeliveryError(t *testing.T) {
	boom := errors.New("connection refused")
	m := fixedMailer(&captureSender{err: boom})
	err := m.SendCode(context.Background(), "a@b.com", "123456", m.now().Add(time.Minute))
	assert.ErrorIs(t, err, boom)
}
