// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package scoring computes per-category lifestyle scores for a coordinate
// from the amenities around it.
//
// Each amenity within the search radius contributes a distance-decayed
// impact to exactly one category. The decay 1/(d+0.5) is positive, bounded
// by 2.0 at d=0, and smoothly decreasing, so scores are monotone in both
// amenity count and proximity and there is no division by zero at d=0.
package scoring

import (
	"strings"

	"github.com/mledesma/hestia/internal/geo"
)

// ScoreVector maps a category name to its cumulative proximity-weighted
// score. Values are never negative; an absent category reads as zero.
type ScoreVector map[string]float64

// NearestAmenity is the representative amenity picked for one category.
// Selection follows priority-before-distance: a persona-boosted match
// displaces any non-boosted match regardless of distance, because a
// persona-relevant amenity should surface even when a nearer, irrelevant
// one of the same category exists.
type NearestAmenity struct {
	AmenityName     string  `json:"amenity_name"`
	AmenityType     string  `json:"amenity_type"`
	DistanceKM      float64 `json:"distance_km"`
	PriorityBoosted bool    `json:"is_priority_boosted"`
}

// Impact returns the distance-decayed contribution of a single amenity at
// d kilometres: 1/(d+0.5), strictly decreasing and in (0, 2] for d >= 0.
func Impact(distanceKm float64) float64 {
	return 1 / (distanceKm + 0.5)
}

// Scorer classifies and scores amenities around a coordinate. It is
// stateless apart from its immutable configuration and safe for concurrent
// use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer. Zero-valued radius and boost fall back to
// the production defaults so a partially populated config stays usable.
func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.SearchRadiusKm <= 0 {
		cfg.SearchRadiusKm = def.SearchRadiusKm
	}
	if cfg.BoostFactor <= 0 {
		cfg.BoostFactor = def.BoostFactor
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = def.Categories
	}
	if len(cfg.Personas) == 0 {
		cfg.Personas = def.Personas
	}
	return &Scorer{cfg: cfg}
}

// Score computes the score vector and per-category nearest-amenity
// metadata for a coordinate. personas selects which boost keyword lists
// apply; unknown persona names are ignored.
//
// An empty index or no amenities in range yields an empty (non-nil) vector
// and metadata map; callers treat that as "no information", not an error.
func (s *Scorer) Score(ix *geo.Index, lat, lng float64, personas []string) (ScoreVector, map[string]NearestAmenity) {
	scores := make(ScoreVector, len(s.cfg.Categories))
	nearest := make(map[string]NearestAmenity, len(s.cfg.Categories))

	if ix == nil {
		return scores, nearest
	}

	boostKeywords := s.boostKeywordsFor(personas)

	for _, p := range ix.QueryRadius(lat, lng, s.cfg.SearchRadiusKm) {
		// The index filters on the coarse spherical distance; the score
		// uses the precise ellipsoidal distance.
		dist := geo.Geodesic(lat, lng, p.Lat, p.Lng)
		if dist > s.cfg.SearchRadiusKm {
			continue
		}

		text := p.Amenity.CategoryText()
		category, ok := s.classify(text)
		if !ok {
			continue
		}

		impact := Impact(dist)
		boosted := matchesAny(text, boostKeywords)
		if boosted {
			impact *= s.cfg.BoostFactor
		}
		scores[category] += impact

		candidate := NearestAmenity{
			AmenityName:     p.Amenity.Name,
			AmenityType:     p.Amenity.Type,
			DistanceKM:      dist,
			PriorityBoosted: boosted,
		}
		current, exists := nearest[category]
		if !exists || displaces(candidate, current) {
			nearest[category] = candidate
		}
	}

	return scores, nearest
}

// RadiusKm returns the configured search radius.
func (s *Scorer) RadiusKm() float64 {
	return s.cfg.SearchRadiusKm
}

// Categories returns the configured category names in declaration order.
func (s *Scorer) Categories() []string {
	return s.cfg.CategoryNames()
}

// classify returns the first configured category whose keywords match the
// amenity text. Keyword lists are designed to be disjoint; when they are
// not, declaration order resolves the tie.
func (s *Scorer) classify(text string) (string, bool) {
	for _, cat := range s.cfg.Categories {
		if matchesAny(text, cat.Keywords) {
			return cat.Name, true
		}
	}
	return "", false
}

// boostKeywordsFor collects the boost keyword lists of the requested
// personas.
func (s *Scorer) boostKeywordsFor(personas []string) []string {
	if len(personas) == 0 {
		return nil
	}
	requested := make(map[string]bool, len(personas))
	for _, p := range personas {
		requested[strings.ToLower(strings.TrimSpace(p))] = true
	}

	var keywords []string
	for _, pc := range s.cfg.Personas {
		if requested[pc.Name] {
			keywords = append(keywords, pc.BoostKeywords...)
		}
	}
	return keywords
}

// displaces reports whether candidate should replace current as the
// representative amenity: priority first, then distance.
func displaces(candidate, current NearestAmenity) bool {
	if candidate.PriorityBoosted != current.PriorityBoosted {
		return candidate.PriorityBoosted
	}
	return candidate.DistanceKM < current.DistanceKM
}

// matchesAny reports whether any keyword is a substring of text.
func matchesAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
