// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package history is the durable audit trail of executed queries, backed
// by BadgerDB. Records expire via badger entry TTLs after the configured
// retention window.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/querylens/internal/config"
	"github.com/tomtom215/querylens/internal/logging"
	"github.com/tomtom215/querylens/internal/metrics"
	"github.com/tomtom215/querylens/internal/models"
)

// Keys are time-prefixed so a reverse iteration yields newest-first.
const auditPrefix = "audit:"

// Store persists query audit records in BadgerDB
type Store struct {
	db        *badger.DB
	retention time.Duration

	mu     sync.RWMutex
	closed bool
}

// Open creates or opens a history store at the configured path.
// A path of ":memory:" opens an ephemeral in-memory store, used in tests
// and when no durable volume is mounted.
func Open(cfg *config.HistoryConfig) (*Store, error) {
	var opts badger.Options
	if cfg.Path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}

	// Badger's own logger is too chatty for an embedded audit log
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Dur("retention", cfg.Retention).Msg("Query history store opened")

	return &Store{
		db:        db,
		retention: cfg.Retention,
	}, nil
}

// Put persists one audit record. Missing IDs and timestamps are filled in,
// and the record expires after the retention window.
func (s *Store) Put(audit *models.QueryAudit) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("history store is closed")
	}

	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	if audit.ExecutedAt.IsZero() {
		audit.ExecutedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(audit)
	if err != nil {
		metrics.RecordHistoryWrite(err)
		return fmt.Errorf("marshal audit record: %w", err)
	}

	key := fmt.Sprintf("%s%020d:%s", auditPrefix, audit.ExecutedAt.UnixNano(), audit.ID)

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), payload)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
		}
		return txn.SetEntry(entry)
	})
	metrics.RecordHistoryWrite(err)
	if err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// Recent returns up to n audit records, newest first
func (s *Store) Recent(n int) ([]models.QueryAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("history store is closed")
	}
	if n <= 0 {
		return []models.QueryAudit{}, nil
	}

	records := make([]models.QueryAudit, 0, n)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(auditPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the highest possible key under the prefix, then walk back
		seek := append([]byte(auditPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(auditPrefix)) && len(records) < n; it.Next() {
			var audit models.QueryAudit
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &audit)
			})
			if err != nil {
				return fmt.Errorf("decode audit record: %w", err)
			}
			records = append(records, audit)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read audit records: %w", err)
	}
	return records, nil
}

// Count returns the number of live audit records
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("history store is closed")
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(auditPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(auditPrefix)); it.ValidForPrefix([]byte(auditPrefix)); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}

// Close gracefully shuts down the store
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
