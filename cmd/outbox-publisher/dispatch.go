package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/outbox/registry"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pubsub"
)

// outcome is what happened to one claimed row.
type outcome struct {
	topic  string
	err    error
	reason enums.OutboxDLQErrorReason // set when the row goes to the DLQ
}

func (o outcome) published() bool { return o.err == nil }

// processBatch reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events) > 0
		for _, event := range events {
			if err := s.record(ctx, tx, event, s.dispatch(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// dispatch resolves and publishes one row without touching the database.
func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) outcome {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcome{err: err, reason: enums.OutboxDLQReasonNonRetryable}
	}
	out := outcome{topic: resolved.Descriptor.Topic}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	_, out.err = s.broker.Publish(publishCtx, out.topic, pubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})

	var nonRetryable registry.NonRetryableError
	switch {
	case out.err == nil:
	case errors.As(out.err, &nonRetryable):
		out.reason = enums.OutboxDLQReasonNonRetryable
	case event.AttemptCount+1 >= s.maxAttempts:
		out.err = fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, out.err)
		out.reason = enums.OutboxDLQReasonMaxAttempts
	}
	return out
}

// record persists the outcome of one row inside the batch transaction.
func (s *Service) record(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, out outcome) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"topic":          out.topic,
	})
	eventType := string(event.EventType)

	switch {
	case out.published():
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType)
		s.logg.Debug(logCtx, "outbox.published")
		return nil

	case out.reason != "":
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"error":        out.err.Error(),
			"error_reason": out.reason,
		}), "outbox.dead_lettered")
		message := out.err.Error()
		entry := models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   out.reason,
			ErrorMessage:  &message,
			AttemptCount:  event.AttemptCount,
			FailedAt:      s.now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("dead-letter %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, out.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark %s terminal: %w", event.ID, err)
		}
		s.metrics.IncDeadLettered(eventType, string(out.reason))
		return nil

	default:
		next := s.now().Add(retryDelay(event.AttemptCount + 1))
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"error":           out.err.Error(),
			"next_attempt_at": next.UTC().Format(time.RFC3339),
		}), "outbox.publish_failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, out.err, next); err != nil {
			return fmt.Errorf("mark %s failed: %w", event.ID, err)
		}
		s.metrics.IncFailed(eventType)
		return nil
	}
}
