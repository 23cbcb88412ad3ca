package sms

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

var sendTracer = otel.Tracer("amaraspa.internal.sms")

// Transport abstracts the single-attempt gateway call.
type Transport interface {
	Send(ctx context.Context, to, body string) (*SendResponse, error)
}

// Outcome is the final result of one logical send, after retries.
type Outcome struct {
	Sent              bool
	Reason            string
	ProviderMessageID string
	Attempts          int
}

// RetrySender wraps a Transport with phone normalization and retry. Failures
// are retried with linearly increasing backoff; the last attempt's outcome is
// what gets reported (and logged by the caller).
type RetrySender struct {
	transport   Transport
	countryCode string
	maxRetries  int
	baseDelay   time.Duration
	logger      *logging.Logger
}

// NewRetrySender creates a retrying sender.
func NewRetrySender(transport Transport, countryCode string, logger *logging.Logger) *RetrySender {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetrySender{
		transport:   transport,
		countryCode: countryCode,
		maxRetries:  2,
		baseDelay:   1 * time.Second,
		logger:      logger,
	}
}

func (s *RetrySender) WithMaxRetries(n int) *RetrySender {
	if n >= 0 {
		s.maxRetries = n
	}
	return s
}

func (s *RetrySender) WithBaseDelay(d time.Duration) *RetrySender {
	if d > 0 {
		s.baseDelay = d
	}
	return s
}

// Send normalizes the destination and attempts delivery up to maxRetries+1
// times. An unnormalizable number is a send failure, not an error.
func (s *RetrySender) Send(ctx context.Context, phone, body string) Outcome {
	ctx, span := sendTracer.Start(ctx, "sms.send")
	defer span.End()

	to, ok := NormalizeMSISDN(phone, s.countryCode)
	if !ok {
		span.SetAttributes(attribute.String("amaraspa.sms.reason", "invalid_phone"))
		return Outcome{Sent: false, Reason: "invalid phone number"}
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.baseDelay * time.Duration(attempt)
			s.logger.Warn("sms: retrying send", "to", to, "attempt", attempt+1, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Outcome{Sent: false, Reason: ctx.Err().Error(), Attempts: attempt}
			case <-timer.C:
			}
		}

		resp, err := s.transport.Send(ctx, to, body)
		if err == nil {
			span.SetAttributes(attribute.Int("amaraspa.sms.attempts", attempt+1))
			return Outcome{
				Sent:              true,
				ProviderMessageID: resp.MessageID,
				Attempts:          attempt + 1,
			}
		}
		lastErr = err
	}

	span.RecordError(lastErr)
	return Outcome{Sent: false, Reason: lastErr.Error(), Attempts: s.maxRetries + 1}
}
