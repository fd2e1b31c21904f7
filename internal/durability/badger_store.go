// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package durability

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const snapshotKeyPrefix = "snapshot:"

// BadgerStore is the local snapshot tier, one key per dataset in the
// shared Badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an already-open Badger database. The caller owns
// the database lifecycle.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get returns the snapshot blob for the named dataset.
func (s *BadgerStore) Get(_ context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKeyPrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("badger get %s: %w", name, err)
	}
	return data, nil
}

// Put stores the snapshot blob, replacing any previous version.
func (s *BadgerStore) Put(_ context.Context, name string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKeyPrefix+name), data)
	})
	if err != nil {
		return fmt.Errorf("badger put %s: %w", name, err)
	}
	return nil
}
