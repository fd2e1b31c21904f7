// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package models defines the shared record types exchanged between the
// catalog, the spatial index, the durability layer, and the HTTP surface.
package models

import (
	"strings"
	"time"
)

// AmenityPoint is an immutable point of interest used as scoring input.
// Amenities are created in bulk when the spatial index is built; the index
// is always rebuilt wholesale, never patched in place.
//
// Category membership is not stored. It is derived at scoring time by
// keyword matching against the lowercased descriptive text, which keeps
// category definitions as configuration rather than data migrations.
type AmenityPoint struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	SubCategory string   `json:"sub_category"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// HasCoordinates reports whether the amenity carries a usable location.
// Amenities without coordinates are excluded from indexing and scoring.
func (a AmenityPoint) HasCoordinates() bool {
	return a.Lat != nil && a.Lng != nil
}

// CategoryText returns the lowercased concatenation of the descriptive
// fields used for keyword classification.
func (a AmenityPoint) CategoryText() string {
	return strings.ToLower(a.SubCategory + " " + a.Type + " " + a.Name)
}

// PropertyRecord is a single listing owned by the property catalog.
// Records are grouped by OwnerID for partitioned replacement and may carry
// an optional MapGroupID for display filtering.
type PropertyRecord struct {
	ID         string   `json:"id"`
	OwnerID    string   `json:"owner_id"`
	Name       string   `json:"name"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	MapGroupID string   `json:"map_group_id,omitempty"`
}

// HasCoordinates reports whether the property carries a usable location.
func (p PropertyRecord) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}

// CongestionObservation is one sampled data point for a reference route:
// the ratio of observed to free-flow travel time at a given weekday/hour.
type CongestionObservation struct {
	ObservedAt time.Time `json:"observed_at"`
	DayOfWeek  int       `json:"day_of_week"` // 0=Monday .. 6=Sunday
	HourOfDay  int       `json:"hour_of_day"` // 0..23
	RouteName  string    `json:"route_name"`
	Factor     float64   `json:"congestion_factor"`
}

// ReferenceRoute is a fixed probe route sampled by the congestion sampler.
type ReferenceRoute struct {
	Name     string  `json:"name" koanf:"name"`
	StartLat float64 `json:"start_lat" koanf:"start_lat"`
	StartLng float64 `json:"start_lng" koanf:"start_lng"`
	EndLat   float64 `json:"end_lat" koanf:"end_lat"`
	EndLng   float64 `json:"end_lng" koanf:"end_lng"`
}
