// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package geo

import (
	"fmt"
	"math"
	"testing"

	"github.com/mledesma/hestia/internal/models"
)

func ptr(v float64) *float64 { return &v }

func amenity(id string, lat, lng float64) models.AmenityPoint {
	return models.AmenityPoint{ID: id, Name: id, Lat: ptr(lat), Lng: ptr(lng)}
}

func TestHaversineKnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		{name: "same point", lat1: 10.3157, lng1: 123.9055, lat2: 10.3157, lng2: 123.9055, wantKm: 0, tolKm: 0.0001},
		{name: "business park to it park", lat1: 10.3157, lng1: 123.9055, lat2: 10.3275, lng2: 123.9060, wantKm: 1.31, tolKm: 0.05},
		{name: "one degree of latitude", lat1: 0, lng1: 0, lat2: 1, lng2: 0, wantKm: 111.19, tolKm: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolKm {
				t.Errorf("Haversine() = %v km, want %v km (±%v)", got, tt.wantKm, tt.tolKm)
			}
		})
	}
}

func TestGeodesicAgreesWithHaversineAtCityScale(t *testing.T) {
	// The ellipsoidal correction is below ~0.5% of the spherical value.
	pairs := [][4]float64{
		{10.3157, 123.9055, 10.3275, 123.9060},
		{10.3157, 123.9055, 10.2830, 123.8800},
		{10.300, 123.900, 10.302, 123.900},
	}

	for i, p := range pairs {
		h := Haversine(p[0], p[1], p[2], p[3])
		g := Geodesic(p[0], p[1], p[2], p[3])
		if g <= 0 {
			t.Fatalf("pair %d: Geodesic() = %v, want > 0", i, g)
		}
		if rel := math.Abs(g-h) / h; rel > 0.005 {
			t.Errorf("pair %d: geodesic %v vs haversine %v, relative diff %v > 0.5%%", i, g, h, rel)
		}
	}
}

func TestGeodesicZeroForIdenticalPoints(t *testing.T) {
	if d := Geodesic(10.3, 123.9, 10.3, 123.9); d != 0 {
		t.Errorf("Geodesic(same point) = %v, want 0", d)
	}
}

func TestBuildSkipsMissingCoordinates(t *testing.T) {
	points := []models.AmenityPoint{
		amenity("a", 10.30, 123.90),
		{ID: "no-lat", Name: "no-lat", Lng: ptr(123.9)},
		{ID: "no-lng", Name: "no-lng", Lat: ptr(10.3)},
		{ID: "no-coords", Name: "no-coords"},
		amenity("b", 10.31, 123.91),
	}

	ix := Build(points, 0)

	if ix.Size() != 2 {
		t.Errorf("Size() = %d, want 2", ix.Size())
	}
	if ix.Skipped() != 3 {
		t.Errorf("Skipped() = %d, want 3", ix.Skipped())
	}
}

func TestQueryRadiusMatchesBruteForce(t *testing.T) {
	// A grid of points around the query center; the index must return
	// exactly the set a linear haversine scan selects.
	var points []models.AmenityPoint
	for i := -10; i <= 10; i++ {
		for j := -10; j <= 10; j++ {
			lat := 10.30 + float64(i)*0.004
			lng := 123.90 + float64(j)*0.004
			points = append(points, amenity(fmt.Sprintf("p-%d-%d", i, j), lat, lng))
		}
	}

	ix := Build(points, 1.0)

	const qLat, qLng, radius = 10.30, 123.90, 3.0

	want := make(map[string]bool)
	for _, a := range points {
		if Haversine(qLat, qLng, *a.Lat, *a.Lng) <= radius {
			want[a.ID] = true
		}
	}

	got := ix.QueryRadius(qLat, qLng, radius)
	if len(got) != len(want) {
		t.Fatalf("QueryRadius() returned %d points, want %d", len(got), len(want))
	}
	for _, p := range got {
		if !want[p.Amenity.ID] {
			t.Errorf("QueryRadius() returned %s outside radius", p.Amenity.ID)
		}
	}
}

func TestQueryRadiusEdgeCases(t *testing.T) {
	ix := Build(nil, 1.0)
	if got := ix.QueryRadius(10.3, 123.9, 3.0); got != nil {
		t.Errorf("empty index: QueryRadius() = %v, want nil", got)
	}

	ix = Build([]models.AmenityPoint{amenity("a", 10.3, 123.9)}, 1.0)
	if got := ix.QueryRadius(10.3, 123.9, 0); got != nil {
		t.Errorf("zero radius: QueryRadius() = %v, want nil", got)
	}
	if got := ix.QueryRadius(10.3, 123.9, 0.5); len(got) != 1 {
		t.Errorf("point at center: QueryRadius() returned %d points, want 1", len(got))
	}
}
