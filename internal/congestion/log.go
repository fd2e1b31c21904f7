// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package congestion implements the traffic side of the service: a
// sampled observation log, a weekday/hour factor model, a background
// sampler that probes the reference routes, and the estimator that turns
// a factor into a drive-time prediction.
package congestion

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mledesma/hestia/internal/models"
)

const obsKeyPrefix = "congestion:obs:"

// ObservationLog is the append-only store of congestion samples. Keys
// embed a zero-padded UnixNano timestamp so Badger's ordered iteration
// doubles as time ordering, which makes retention pruning a prefix scan.
type ObservationLog struct {
	db *badger.DB
}

// NewObservationLog wraps an already-open Badger database.
func NewObservationLog(db *badger.DB) *ObservationLog {
	return &ObservationLog{db: db}
}

func obsKey(at time.Time) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", obsKeyPrefix, at.UTC().UnixNano(), uuid.NewString()))
}

// Append stores one observation.
func (l *ObservationLog) Append(_ context.Context, obs models.CongestionObservation) error {
	value, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(obsKey(obs.ObservedAt), value)
	})
	if err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

// All returns every stored observation in time order.
func (l *ObservationLog) All(ctx context.Context) ([]models.CongestionObservation, error) {
	var out []models.CongestionObservation
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(obsKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var obs models.CongestionObservation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &obs)
			})
			if err != nil {
				return fmt.Errorf("decode observation: %w", err)
			}
			out = append(out, obs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan observations: %w", err)
	}
	return out, nil
}

// Count returns the number of stored observations.
func (l *ObservationLog) Count(_ context.Context) (int, error) {
	count := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(obsKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return count, nil
}

// PruneBefore deletes observations older than the cutoff and returns how
// many were removed.
func (l *ObservationLog) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	boundary := fmt.Sprintf("%s%019d", obsKeyPrefix, cutoff.UTC().UnixNano())

	var stale [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(obsKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= boundary {
				break
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan stale observations: %w", err)
	}

	for _, key := range stale {
		err := l.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, fmt.Errorf("prune observation: %w", err)
		}
	}
	return len(stale), nil
}
