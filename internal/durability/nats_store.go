// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package durability

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ObjectStoreConfig holds remote tier configuration.
type ObjectStoreConfig struct {
	Bucket      string `koanf:"bucket"`
	Description string `koanf:"description"`
}

// NATSStore is the remote snapshot tier, backed by a JetStream object
// store bucket. Snapshots can be large (a full amenity catalog serializes
// to several megabytes), which rules out plain KV entries.
type NATSStore struct {
	store jetstream.ObjectStore
}

// NewNATSStore creates or updates the object store bucket on the given
// connection.
func NewNATSStore(ctx context.Context, nc *nats.Conn, cfg ObjectStoreConfig) (*NATSStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	store, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store %s: %w", cfg.Bucket, err)
	}

	return &NATSStore{store: store}, nil
}

// Get downloads the snapshot blob for the named dataset.
func (s *NATSStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.GetBytes(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("object store get %s: %w", name, err)
	}
	return data, nil
}

// Put uploads the snapshot blob, replacing any previous version.
func (s *NATSStore) Put(ctx context.Context, name string, data []byte) error {
	if _, err := s.store.PutBytes(ctx, name, data); err != nil {
		return fmt.Errorf("object store put %s: %w", name, err)
	}
	return nil
}
