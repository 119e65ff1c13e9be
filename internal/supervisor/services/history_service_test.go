// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/querylens/internal/events"
	"github.com/tomtom215/querylens/internal/models"
)

// recordingWriter captures audits and optionally fails.
type recordingWriter struct {
	mu     sync.Mutex
	audits []*models.QueryAudit
	err    error
}

func (w *recordingWriter) Put(audit *models.QueryAudit) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.audits = append(w.audits, audit)
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.audits)
}

func TestHistoryConsumerPersistsEvents(t *testing.T) {
	bus := events.NewBus(nil)
	defer func() { _ = bus.Close() }()

	writer := &recordingWriter{}
	svc := NewHistoryConsumerService(bus, writer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give the subscription a moment to attach before publishing.
	time.Sleep(20 * time.Millisecond)

	audit := &models.QueryAudit{
		ID:       "audit-1",
		SQL:      "SELECT * FROM users LIMIT 1",
		Path:     models.QueryPathDirect,
		RowCount: 1,
	}
	if err := bus.PublishQueryExecuted(audit); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for writer.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("Audit event was not persisted")
		case <-time.After(10 * time.Millisecond):
		}
	}

	writer.mu.Lock()
	got := writer.audits[0]
	writer.mu.Unlock()
	if got.ID != "audit-1" {
		t.Errorf("Expected audit-1, got %s", got.ID)
	}
	if got.Path != models.QueryPathDirect {
		t.Errorf("Expected direct path, got %s", got.Path)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHistoryConsumerStaysDownWhenBusCloses(t *testing.T) {
	bus := events.NewBus(nil)
	svc := NewHistoryConsumerService(bus, &recordingWriter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let the subscription attach, then close the bus under a live context.
	time.Sleep(20 * time.Millisecond)
	if err := bus.Close(); err != nil {
		t.Fatalf("Failed to close bus: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, suture.ErrDoNotRestart) {
			t.Errorf("Expected suture.ErrDoNotRestart, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after bus close")
	}
}

func TestHistoryConsumerAcksUndecodableMessage(t *testing.T) {
	svc := NewHistoryConsumerService(nil, &recordingWriter{})

	msg := message.NewMessage("poison", []byte("{not json"))
	svc.handle(msg)

	select {
	case <-msg.Acked():
	case <-time.After(time.Second):
		t.Fatal("Expected poison message to be acked")
	}
}

func TestHistoryConsumerNacksOnWriteFailure(t *testing.T) {
	writer := &recordingWriter{err: errors.New("store closed")}
	svc := NewHistoryConsumerService(nil, writer)

	payload := []byte(`{"id":"a1","sql":"SELECT 1","path":"direct","row_count":0,"duration_ns":0,"duration_ms":0,"executed_at":"2026-01-01T00:00:00Z"}`)
	msg := message.NewMessage("a1", payload)
	svc.handle(msg)

	select {
	case <-msg.Nacked():
	case <-time.After(time.Second):
		t.Fatal("Expected message to be nacked on write failure")
	}
}

func TestHistoryConsumerString(t *testing.T) {
	svc := NewHistoryConsumerService(nil, nil)
	if svc.String() != "history-consumer" {
		t.Errorf("Expected history-consumer, got %s", svc.String())
	}
}
