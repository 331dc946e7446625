package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/resilience"
)

// classifyNATSError decides how the executor treats ingest-queue errors.
// Connection loss is retried; an oversized job or a bad subject is not.
func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case errors.Is(err, nats.ErrMaxPayload):
		// the job itself is wrong, the server is fine
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err),
		errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrSlowConsumer):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

// wrapQueueError tags publish and subscribe failures with a domain kind so
// callers can tell a retryable outage from a rejected job.
func wrapQueueError(operation string, err error) error {
	if err == nil {
		return nil
	}
	label := "nats " + operation
	switch {
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrInvalidInput):
		return err
	case errors.Is(err, nats.ErrMaxPayload):
		return domain.WrapError(domain.ErrInvalidInput, label, err)
	case classifyNATSError(err).Retryable:
		return domain.WrapError(domain.ErrTemporary, label, err)
	default:
		return err
	}
}
