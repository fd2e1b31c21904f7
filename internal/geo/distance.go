// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package geo

import "math"

const (
	// earthRadiusKm is the mean Earth radius used by the haversine filter.
	earthRadiusKm = 6371.0

	// WGS84 ellipsoid parameters used by the precise geodesic distance.
	wgs84SemiMajorKm = 6378.137
	wgs84Flattening  = 1.0 / 298.257223563

	// kmPerDegree approximates one degree of latitude.
	kmPerDegree = 111.0
)

// Haversine returns the great-circle distance between two points in km,
// assuming a spherical Earth. This is the coarse filter used by the index:
// cheap, and accurate to ~0.5% which is plenty to answer "is this point
// plausibly within range".
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Geodesic returns the ellipsoidal distance between two points in km using
// the Andoyer-Lambert approximation on the WGS84 ellipsoid. This is the
// authoritative distance used for scoring and display; it differs from the
// spherical value by up to ~0.3% which matters when distances feed a
// distance-decay score.
//
// The approximation degrades near antipodal points. All call sites operate
// at city scale where the error is well under a metre.
func Geodesic(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	// Reduced latitudes.
	f := wgs84Flattening
	beta1 := math.Atan((1 - f) * math.Tan(lat1*math.Pi/180))
	beta2 := math.Atan((1 - f) * math.Tan(lat2*math.Pi/180))
	deltaLng := (lng2 - lng1) * math.Pi / 180

	// Central angle between the reduced latitudes (spherical law via
	// haversine for numerical stability at short distances).
	h := hav(beta2-beta1) + math.Cos(beta1)*math.Cos(beta2)*hav(deltaLng)
	sigma := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	if sigma == 0 {
		return 0
	}

	p := (beta1 + beta2) / 2
	q := (beta2 - beta1) / 2

	cosHalf := math.Cos(sigma / 2)
	sinHalf := math.Sin(sigma / 2)

	x := (sigma - math.Sin(sigma)) * math.Sin(p) * math.Sin(p) * math.Cos(q) * math.Cos(q) / (cosHalf * cosHalf)
	y := (sigma + math.Sin(sigma)) * math.Cos(p) * math.Cos(p) * math.Sin(q) * math.Sin(q) / (sinHalf * sinHalf)

	return wgs84SemiMajorKm * (sigma - f/2*(x+y))
}

// hav is the haversine function hav(θ) = sin²(θ/2).
func hav(theta float64) float64 {
	s := math.Sin(theta / 2)
	return s * s
}
