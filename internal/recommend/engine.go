// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package recommend wires the catalog, the spatial index, and the scorer
// into the ranked read path, and implements the write paths the queue
// worker and the admin endpoints drive.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mledesma/hestia/internal/catalog"
	"github.com/mledesma/hestia/internal/durability"
	"github.com/mledesma/hestia/internal/geo"
	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/metrics"
	"github.com/mledesma/hestia/internal/models"
	"github.com/mledesma/hestia/internal/scoring"
	"github.com/mledesma/hestia/internal/source"
)

// DefaultMaxResults caps the ranked list returned by Recommend.
const DefaultMaxResults = 10

// ErrInvalidPriorities rejects negative priority weights.
var ErrInvalidPriorities = errors.New("priority weights must be non-negative")

// Engine owns the amenity index and coordinates reads against the
// catalog. The index pointer follows the same copy-on-write rule as the
// catalog snapshot: rebuilt wholesale, swapped atomically, never patched.
type Engine struct {
	catalog    *catalog.Catalog
	scorer     *scoring.Scorer
	durability *durability.Manager
	platform   source.PlatformAPI
	writer     Copywriter
	index      atomic.Pointer[geo.Index]
	maxResults int
	logger     zerolog.Logger
}

// NewEngine creates an engine with an empty amenity index. Hydrate or
// RebuildAmenities must run before recommendations carry scores.
func NewEngine(cat *catalog.Catalog, scorer *scoring.Scorer, dur *durability.Manager, platform source.PlatformAPI, writer Copywriter) *Engine {
	if writer == nil {
		writer = TemplateCopywriter{}
	}
	e := &Engine{
		catalog:    cat,
		scorer:     scorer,
		durability: dur,
		platform:   platform,
		writer:     writer,
		maxResults: DefaultMaxResults,
		logger:     logging.With().Str("component", "recommend").Logger(),
	}
	e.index.Store(geo.Build(nil, geo.DefaultCellSizeKm))
	return e
}

// scored pairs a property with its computed vectors during ranking.
type scored struct {
	property models.PropertyRecord
	vector   scoring.ScoreVector
	nearest  map[string]scoring.NearestAmenity
	score    float64
}

// Recommend ranks candidate properties by the weighted dot product of
// the request priorities and each property's MinMax-normalized score
// vector, returning at most the top ten.
//
// An empty candidate set or an empty index yields an empty list, never
// an error. Negative weights are the only rejected input.
func (e *Engine) Recommend(ctx context.Context, req models.RecommendRequest) ([]models.Recommendation, error) {
	for cat, w := range req.Priorities {
		if w < 0 {
			metrics.RecommendRequests.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%w: %s = %v", ErrInvalidPriorities, cat, w)
		}
	}

	start := time.Now()
	defer func() {
		metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	}()

	var candidates []models.PropertyRecord
	if req.GroupID != "" {
		candidates = e.catalog.FilterByGroup(req.GroupID)
	} else {
		candidates = e.catalog.All()
	}

	ix := e.index.Load()
	results := make([]scored, 0, len(candidates))
	for _, prop := range candidates {
		if err := ctx.Err(); err != nil {
			metrics.RecommendRequests.WithLabelValues("canceled").Inc()
			return nil, err
		}
		if !prop.HasCoordinates() {
			continue
		}
		vector, nearest := e.scorer.Score(ix, *prop.Lat, *prop.Lng, req.Personas)
		results = append(results, scored{property: prop, vector: vector, nearest: nearest})
	}

	if len(results) == 0 {
		metrics.RecommendRequests.WithLabelValues("empty").Inc()
		return []models.Recommendation{}, nil
	}

	e.rank(results, req.Priorities)

	limit := e.maxResults
	if len(results) < limit {
		limit = len(results)
	}
	out := make([]models.Recommendation, 0, limit)
	for _, r := range results[:limit] {
		highlights := e.highlights(r.nearest)
		headline, body := e.writer.Compose(r.property, r.score, highlights)
		out = append(out, models.Recommendation{
			PropertyID: r.property.ID,
			Name:       r.property.Name,
			MatchScore: r.score,
			Highlights: highlights,
			Headline:   headline,
			Body:       body,
		})
	}
	metrics.RecommendRequests.WithLabelValues("ok").Inc()
	return out, nil
}

// rank normalizes each category across the candidate set to [0, 1] and
// sorts by weighted score, name-then-ID tiebreak for determinism. One
// dense category would otherwise drown the others in the dot product.
func (e *Engine) rank(results []scored, priorities map[string]float64) {
	categories := e.scorer.Categories()

	type bounds struct{ min, max float64 }
	perCat := make(map[string]bounds, len(categories))
	for _, cat := range categories {
		b := bounds{min: results[0].vector[cat], max: results[0].vector[cat]}
		for _, r := range results[1:] {
			v := r.vector[cat]
			if v < b.min {
				b.min = v
			}
			if v > b.max {
				b.max = v
			}
		}
		perCat[cat] = b
	}

	for i := range results {
		score := 0.0
		for _, cat := range categories {
			w := priorities[cat]
			if w == 0 {
				continue
			}
			b := perCat[cat]
			if b.max > b.min {
				score += w * (results[i].vector[cat] - b.min) / (b.max - b.min)
			}
		}
		results[i].score = score
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].property.Name != results[j].property.Name {
			return results[i].property.Name < results[j].property.Name
		}
		return results[i].property.ID < results[j].property.ID
	})
}

// highlights converts nearest-amenity metadata into response highlights,
// in configured category order.
func (e *Engine) highlights(nearest map[string]scoring.NearestAmenity) []models.Highlight {
	out := make([]models.Highlight, 0, len(nearest))
	for _, cat := range e.scorer.Categories() {
		n, ok := nearest[cat]
		if !ok {
			continue
		}
		out = append(out, models.Highlight{
			Category:      cat,
			AmenityName:   n.AmenityName,
			AmenityType:   n.AmenityType,
			DistanceKM:    n.DistanceKM,
			PriorityMatch: n.PriorityBoosted,
		})
	}
	return out
}

// ProcessOwner is the queue worker body: fetch one owner's authoritative
// listings, replace that owner's catalog partition, persist the catalog
// snapshot.
func (e *Engine) ProcessOwner(ctx context.Context, ownerID string) error {
	records, err := e.platform.FetchOwnerProperties(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("refresh owner %s: %w", ownerID, err)
	}
	e.catalog.ReplaceOwner(ownerID, records)
	e.logger.Info().Str("owner_id", ownerID).Int("records", len(records)).Msg("Owner partition replaced")
	return e.persistProperties(ctx)
}

func (e *Engine) persistProperties(ctx context.Context) error {
	blob, err := durability.EncodeSnapshot(e.catalog.All())
	if err != nil {
		return err
	}
	return e.durability.Persist(ctx, durability.DatasetProperties, blob)
}

// RebuildAmenities fetches the full amenity dataset, rebuilds the
// spatial index, swaps it in, and persists the snapshot. Returns the
// number of indexed points.
func (e *Engine) RebuildAmenities(ctx context.Context) (int, error) {
	amenities, err := e.platform.FetchAmenities(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild amenities: %w", err)
	}
	ix := geo.Build(amenities, geo.DefaultCellSizeKm)
	e.index.Store(ix)
	e.logger.Info().Int("indexed", ix.Size()).Int("skipped", ix.Skipped()).Msg("Amenity index rebuilt")

	blob, err := durability.EncodeSnapshot(amenities)
	if err != nil {
		return ix.Size(), err
	}
	if err := e.durability.Persist(ctx, durability.DatasetAmenities, blob); err != nil {
		return ix.Size(), err
	}
	return ix.Size(), nil
}

// HydrateAmenities loads the amenity dataset through the durability
// cascade and builds the index. With no tier yielding data the error
// wraps durability.ErrNoData; the caller decides whether that is fatal.
func (e *Engine) HydrateAmenities(ctx context.Context) error {
	data, tier, err := e.durability.Load(ctx, durability.DatasetAmenities, func(ctx context.Context) ([]byte, error) {
		amenities, err := e.platform.FetchAmenities(ctx)
		if err != nil {
			return nil, err
		}
		return durability.EncodeSnapshot(amenities)
	})
	if err != nil {
		return fmt.Errorf("hydrate amenities: %w", err)
	}

	var amenities []models.AmenityPoint
	if err := durability.DecodeSnapshot(data, &amenities); err != nil {
		return fmt.Errorf("hydrate amenities: %w", err)
	}
	ix := geo.Build(amenities, geo.DefaultCellSizeKm)
	e.index.Store(ix)
	e.logger.Info().Str("tier", string(tier)).Int("indexed", ix.Size()).Msg("Amenity index hydrated")
	return nil
}

// HydrateProperties loads the property catalog through the durability
// cascade. The source tier rebuilds owner by owner.
func (e *Engine) HydrateProperties(ctx context.Context) error {
	data, tier, err := e.durability.Load(ctx, durability.DatasetProperties, func(ctx context.Context) ([]byte, error) {
		records, err := e.fetchAllOwners(ctx)
		if err != nil {
			return nil, err
		}
		return durability.EncodeSnapshot(records)
	})
	if err != nil {
		return fmt.Errorf("hydrate properties: %w", err)
	}

	var records []models.PropertyRecord
	if err := durability.DecodeSnapshot(data, &records); err != nil {
		return fmt.Errorf("hydrate properties: %w", err)
	}
	e.catalog.Restore(records)
	e.logger.Info().Str("tier", string(tier)).Int("records", len(records)).Msg("Property catalog hydrated")
	return nil
}

func (e *Engine) fetchAllOwners(ctx context.Context) ([]models.PropertyRecord, error) {
	owners, err := e.platform.FetchOwnerIDs(ctx)
	if err != nil {
		return nil, err
	}
	var records []models.PropertyRecord
	for _, ownerID := range owners {
		got, err := e.platform.FetchOwnerProperties(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("owner %s: %w", ownerID, err)
		}
		records = append(records, got...)
	}
	return records, nil
}

// IndexStats reports the current amenity index for the health endpoint.
type IndexStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// AmenityStats returns current index counters.
func (e *Engine) AmenityStats() IndexStats {
	ix := e.index.Load()
	return IndexStats{Indexed: ix.Size(), Skipped: ix.Skipped()}
}
