// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package services

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/querylens/internal/events"
	"github.com/tomtom215/querylens/internal/logging"
	"github.com/tomtom215/querylens/internal/metrics"
	"github.com/tomtom215/querylens/internal/models"
)

// Subscriber matches the event bus subscription surface.
//
// Satisfied by *events.Bus.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// AuditWriter matches the history store's write surface.
//
// Satisfied by *history.Store.
type AuditWriter interface {
	Put(audit *models.QueryAudit) error
}

// HistoryConsumerService drains query.executed events into the audit
// store. Running it under the data supervisor decouples audit persistence
// from request latency: handlers publish and return, this service writes.
type HistoryConsumerService struct {
	bus   Subscriber
	store AuditWriter
	name  string
}

// NewHistoryConsumerService creates the audit trail consumer.
func NewHistoryConsumerService(bus Subscriber, store AuditWriter) *HistoryConsumerService {
	return &HistoryConsumerService{
		bus:   bus,
		store: store,
		name:  "history-consumer",
	}
}

// Serve implements suture.Service. It subscribes to the query.executed
// topic and persists each event until the context is canceled.
//
// Undecodable messages are acked and dropped with a log line; retrying a
// poison message would loop forever. Store write failures nack so the bus
// redelivers.
func (s *HistoryConsumerService) Serve(ctx context.Context) error {
	msgs, err := s.bus.Subscribe(ctx, events.TopicQueryExecuted)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.TopicQueryExecuted, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				// The bus closed while we are still supposed to run. A
				// restart would only fail to resubscribe, so stay down.
				logging.Warn().Str("topic", events.TopicQueryExecuted).Msg("Event bus closed, stopping audit consumer")
				return suture.ErrDoNotRestart
			}
			s.handle(msg)
		}
	}
}

func (s *HistoryConsumerService) handle(msg *message.Message) {
	audit, err := events.DecodeQueryExecuted(msg)
	if err != nil {
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable audit event")
		metrics.EventsConsumed.WithLabelValues(events.TopicQueryExecuted, "decode_error").Inc()
		msg.Ack()
		return
	}

	if err := s.store.Put(audit); err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Failed to persist audit event")
		metrics.EventsConsumed.WithLabelValues(events.TopicQueryExecuted, "error").Inc()
		msg.Nack()
		return
	}

	metrics.EventsConsumed.WithLabelValues(events.TopicQueryExecuted, "ok").Inc()
	msg.Ack()
}

// String implements fmt.Stringer; suture uses it to name the service in
// log messages.
func (s *HistoryConsumerService) String() string {
	return s.name
}
