// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package durability implements the tiered snapshot strategy shared by the
// amenity index, the property catalog, and the congestion model.
//
// Reads cascade through three tiers: local disk snapshot, remote object
// store, authoritative source rebuild. Writes persist to both snapshot
// tiers synchronously, but only the local tier can fail the operation;
// remote durability is best-effort. The asymmetry is the service's core
// resilience property: a dead upstream at startup must not prevent serving
// stale-but-valid cached data, and a dead remote store must not fail a
// successful catalog mutation.
package durability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/metrics"
)

// Logical snapshot names. Each dataset is one opaque blob per tier.
const (
	DatasetAmenities       = "amenities"
	DatasetProperties      = "properties"
	DatasetCongestionModel = "congestion-model"
)

// Tier identifies where a load was satisfied.
type Tier string

const (
	TierLocal  Tier = "local"
	TierRemote Tier = "remote"
	TierSource Tier = "source"
)

// ErrNotFound is returned by a BlobStore when the named snapshot does not
// exist in that tier.
var ErrNotFound = errors.New("snapshot not found")

// ErrNoData is returned by Load when every tier failed or was empty.
// Callers surface this as an explicit empty result, not a fatal error.
var ErrNoData = errors.New("no tier yielded data")

// BlobStore is one snapshot tier.
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}

// RebuildFunc fetches a dataset from its authoritative source and returns
// the serialized snapshot blob.
type RebuildFunc func(ctx context.Context) ([]byte, error)

// Config holds durability configuration.
type Config struct {
	// RemoteTimeout bounds a single remote store operation. Default: 30s
	RemoteTimeout time.Duration `koanf:"remote_timeout"`
}

// Manager runs the load cascade and the dual-tier persist.
type Manager struct {
	local  BlobStore
	remote BlobStore // nil when the remote tier is disabled
	config Config
	logger zerolog.Logger
}

// NewManager creates a durability manager. remote may be nil, which
// reduces the cascade to local snapshot -> source rebuild.
func NewManager(local BlobStore, remote BlobStore, cfg Config) *Manager {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 30 * time.Second
	}
	return &Manager{
		local:  local,
		remote: remote,
		config: cfg,
		logger: logging.With().Str("component", "durability").Logger(),
	}
}

// Load hydrates one dataset through the tier cascade:
//
//  1. local snapshot
//  2. remote snapshot (also re-primes the local tier on success)
//  3. authoritative rebuild (persists both tiers on success)
//
// Tier failures below the last are logged, never returned. When no tier
// yields data the error wraps ErrNoData.
func (m *Manager) Load(ctx context.Context, dataset string, rebuild RebuildFunc) ([]byte, Tier, error) {
	if data, err := m.local.Get(ctx, dataset); err == nil {
		metrics.SnapshotLoads.WithLabelValues(dataset, string(TierLocal), "ok").Inc()
		m.logger.Info().Str("dataset", dataset).Int("bytes", len(data)).Msg("Loaded local snapshot")
		return data, TierLocal, nil
	} else if !errors.Is(err, ErrNotFound) {
		metrics.SnapshotLoads.WithLabelValues(dataset, string(TierLocal), "error").Inc()
		m.logger.Warn().Err(err).Str("dataset", dataset).Msg("Local snapshot load failed, trying remote")
	} else {
		metrics.SnapshotLoads.WithLabelValues(dataset, string(TierLocal), "miss").Inc()
	}

	if m.remote != nil {
		data, err := m.remoteGet(ctx, dataset)
		if err == nil {
			metrics.SnapshotLoads.WithLabelValues(dataset, string(TierRemote), "ok").Inc()
			m.logger.Info().Str("dataset", dataset).Int("bytes", len(data)).Msg("Loaded remote snapshot")
			// Re-prime the local tier so the next cold start stays local.
			if perr := m.local.Put(ctx, dataset, data); perr != nil {
				m.logger.Warn().Err(perr).Str("dataset", dataset).Msg("Failed to re-prime local snapshot")
			}
			return data, TierRemote, nil
		}
		if errors.Is(err, ErrNotFound) {
			metrics.SnapshotLoads.WithLabelValues(dataset, string(TierRemote), "miss").Inc()
		} else {
			metrics.SnapshotLoads.WithLabelValues(dataset, string(TierRemote), "error").Inc()
			m.logger.Warn().Err(err).Str("dataset", dataset).Msg("Remote snapshot load failed, rebuilding from source")
		}
	}

	if rebuild == nil {
		return nil, "", fmt.Errorf("dataset %s: %w", dataset, ErrNoData)
	}

	data, err := rebuild(ctx)
	if err != nil {
		metrics.SnapshotLoads.WithLabelValues(dataset, string(TierSource), "error").Inc()
		return nil, "", fmt.Errorf("dataset %s: source rebuild: %v: %w", dataset, err, ErrNoData)
	}
	metrics.SnapshotLoads.WithLabelValues(dataset, string(TierSource), "ok").Inc()
	m.logger.Info().Str("dataset", dataset).Int("bytes", len(data)).Msg("Rebuilt dataset from authoritative source")

	if err := m.Persist(ctx, dataset, data); err != nil {
		// Local persistence failing after a successful rebuild is worth a
		// warning but the in-memory data is correct, keep going.
		m.logger.Warn().Err(err).Str("dataset", dataset).Msg("Failed to persist rebuilt snapshot")
	}
	return data, TierSource, nil
}

// Persist writes the blob to both tiers. The local write must succeed;
// the remote write is best-effort and only logged on failure.
func (m *Manager) Persist(ctx context.Context, dataset string, data []byte) error {
	if err := m.local.Put(ctx, dataset, data); err != nil {
		metrics.SnapshotSaves.WithLabelValues(dataset, string(TierLocal), "error").Inc()
		return fmt.Errorf("persist %s to local tier: %w", dataset, err)
	}
	metrics.SnapshotSaves.WithLabelValues(dataset, string(TierLocal), "ok").Inc()

	if m.remote == nil {
		return nil
	}
	if err := m.remotePut(ctx, dataset, data); err != nil {
		metrics.SnapshotSaves.WithLabelValues(dataset, string(TierRemote), "error").Inc()
		m.logger.Warn().Err(err).Str("dataset", dataset).Msg("Remote snapshot upload failed, local tier is current")
		return nil
	}
	metrics.SnapshotSaves.WithLabelValues(dataset, string(TierRemote), "ok").Inc()
	return nil
}

// remoteGet bounds the remote read with the configured timeout.
func (m *Manager) remoteGet(ctx context.Context, dataset string) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, m.config.RemoteTimeout)
	defer cancel()
	return m.remote.Get(rctx, dataset)
}

// remotePut bounds the remote write with the configured timeout.
func (m *Manager) remotePut(ctx context.Context, dataset string, data []byte) error {
	rctx, cancel := context.WithTimeout(ctx, m.config.RemoteTimeout)
	defer cancel()
	return m.remote.Put(rctx, dataset, data)
}
