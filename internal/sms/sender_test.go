package sms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type scriptedTransport struct {
	failures int
	calls    int
	lastTo   string
	lastBody string
}

func (s *scriptedTransport) Send(_ context.Context, to, body string) (*SendResponse, error) {
	s.calls++
	s.lastTo = to
	s.lastBody = body
	if s.calls <= s.failures {
		return nil, errors.New("gateway unavailable")
	}
	return &SendResponse{MessageID: "msg_1", Status: "queued"}, nil
}

func TestRetrySenderSucceedsAfterRetries(t *testing.T) {
	transport := &scriptedTransport{failures: 2}
	sender := NewRetrySender(transport, "251", nil).
		WithMaxRetries(2).
		WithBaseDelay(1 * time.Millisecond)

	outcome := sender.Send(context.Background(), "0911234567", "hello")

	assert.True(t, outcome.Sent)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, transport.calls)
	assert.Equal(t, "msg_1", outcome.ProviderMessageID)
	assert.Equal(t, "251911234567", transport.lastTo)
}

func TestRetrySenderGivesUpAfterMaxRetries(t *testing.T) {
	transport := &scriptedTransport{failures: 10}
	sender := NewRetrySender(transport, "251", nil).
		WithMaxRetries(2).
		WithBaseDelay(1 * time.Millisecond)

	outcome := sender.Send(context.Background(), "0911234567", "hello")

	assert.False(t, outcome.Sent)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, transport.calls)
	assert.Contains(t, outcome.Reason, "gateway unavailable")
}

func TestRetrySenderInvalidPhoneIsFailureNotError(t *testing.T) {
	transport := &scriptedTransport{}
	sender := NewRetrySender(transport, "251", nil)

	outcome := sender.Send(context.Background(), "not a number", "hello")

	assert.False(t, outcome.Sent)
	assert.Equal(t, "invalid phone number", outcome.Reason)
	assert.Zero(t, transport.calls)
}

func TestRetrySenderStopsOnCancelledContext(t *testing.T) {
	transport := &scriptedTransport{failures: 10}
	sender := NewRetrySender(transport, "251", nil).
		WithMaxRetries(5).
		WithBaseDelay(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := sender.Send(ctx, "0911234567", "hello")

	assert.False(t, outcome.Sent)
	assert.Equal(t, 1, transport.calls)
}
