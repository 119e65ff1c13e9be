// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package events carries internal pub/sub traffic between the API layer
// and background consumers over a Watermill in-process channel.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/querylens/internal/metrics"
	"github.com/tomtom215/querylens/internal/models"
)

// TopicQueryExecuted carries one message per executed query, consumed by
// the history writer.
const TopicQueryExecuted = "query.executed"

// Bus is an in-process pub/sub built on Watermill's GoChannel transport.
// Publishing never blocks the API path beyond the channel buffer.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates the in-process event bus
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logger)

	return &Bus{pubsub: pubsub}
}

// PublishQueryExecuted serializes an audit record onto the bus
func (b *Bus) PublishQueryExecuted(audit *models.QueryAudit) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	payload, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("serialize audit event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("path", audit.Path)

	if err := b.pubsub.Publish(TopicQueryExecuted, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(TopicQueryExecuted).Inc()
	return nil
}

// Subscribe returns the message stream for a topic. The channel closes
// when the context is cancelled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts down the bus and closes all subscriber channels
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// DecodeQueryExecuted deserializes an audit record from a bus message
func DecodeQueryExecuted(msg *message.Message) (*models.QueryAudit, error) {
	var audit models.QueryAudit
	if err := json.Unmarshal(msg.Payload, &audit); err != nil {
		return nil, fmt.Errorf("decode audit event: %w", err)
	}
	return &audit, nil
}
