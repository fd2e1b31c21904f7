// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package geo provides the static spatial index over amenity points and the
// two-stage distance policy: a cheap spherical haversine filter answered by
// the index, and a precise ellipsoidal geodesic distance computed per point
// by the scorer.
//
// The index is immutable after Build. Rebuilding produces a fresh Index that
// the owner swaps in atomically; in-flight queries keep reading the previous
// index until their reference goes away. Because the structure is never
// mutated after construction, queries need no locking.
package geo

import (
	"math"

	"github.com/mledesma/hestia/internal/models"
)

// DefaultCellSizeKm is the grid cell size used when none is configured.
// One-kilometre cells keep a 3 km radius query down to a handful of cells
// over a dense city dataset.
const DefaultCellSizeKm = 1.0

// Point is an amenity with validated coordinates, as stored in the index.
type Point struct {
	Amenity models.AmenityPoint
	Lat     float64
	Lng     float64
}

// cellKey identifies one grid cell.
type cellKey struct {
	x, y int
}

// Index divides geographic space into fixed-size cells so a radius query
// only inspects cells overlapping the query's bounding box, O(k) in the
// number of nearby points instead of O(n) over the whole dataset.
type Index struct {
	cells       map[cellKey][]Point
	cellSizeDeg float64
	size        int
	skipped     int
}

// Build constructs an index over the given amenities. Points without
// coordinates are counted but excluded; they can never contribute to a
// score. cellSizeKm <= 0 selects DefaultCellSizeKm.
func Build(points []models.AmenityPoint, cellSizeKm float64) *Index {
	if cellSizeKm <= 0 {
		cellSizeKm = DefaultCellSizeKm
	}

	ix := &Index{
		cells:       make(map[cellKey][]Point),
		cellSizeDeg: cellSizeKm / kmPerDegree,
	}

	for _, a := range points {
		if !a.HasCoordinates() {
			ix.skipped++
			continue
		}
		p := Point{Amenity: a, Lat: *a.Lat, Lng: *a.Lng}
		key := ix.keyFor(p.Lat, p.Lng)
		ix.cells[key] = append(ix.cells[key], p)
		ix.size++
	}

	return ix
}

// keyFor returns the cell containing a coordinate.
func (ix *Index) keyFor(lat, lng float64) cellKey {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return cellKey{
		x: int(math.Floor(lng / ix.cellSizeDeg)),
		y: int(math.Floor(lat / ix.cellSizeDeg)),
	}
}

// QueryRadius returns every indexed point whose great-circle (haversine)
// distance to the query point is at most radiusKm. Order is unspecified.
func (ix *Index) QueryRadius(lat, lng, radiusKm float64) []Point {
	if radiusKm <= 0 || ix.size == 0 {
		return nil
	}

	center := ix.keyFor(lat, lng)

	// Longitude degrees shrink with latitude, so the x scan range widens
	// by 1/cos(lat). The +1 margin covers points near cell boundaries.
	latCells := int(math.Ceil(radiusKm/kmPerDegree/ix.cellSizeDeg)) + 1
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngCells := int(math.Ceil(radiusKm/kmPerDegree/cosLat/ix.cellSizeDeg)) + 1

	var results []Point
	for dx := -lngCells; dx <= lngCells; dx++ {
		for dy := -latCells; dy <= latCells; dy++ {
			cell, ok := ix.cells[cellKey{x: center.x + dx, y: center.y + dy}]
			if !ok {
				continue
			}
			for _, p := range cell {
				if Haversine(lat, lng, p.Lat, p.Lng) <= radiusKm {
					results = append(results, p)
				}
			}
		}
	}

	return results
}

// Size returns the number of indexed points.
func (ix *Index) Size() int {
	return ix.size
}

// Skipped returns the number of input points rejected for missing
// coordinates during Build.
func (ix *Index) Skipped() int {
	return ix.skipped
}
