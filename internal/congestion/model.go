// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package congestion

import (
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mledesma/hestia/internal/models"
)

// minCellSamples is the threshold below which a weekday/hour cell mean is
// considered unreliable and the per-weekday trend line is used instead.
const minCellSamples = 3

// Factor clamp bounds. A linear fit extrapolated into an unsampled hour
// can run negative or absurdly high; observed Cebu factors live well
// inside this range.
const (
	minFactor = 0.5
	maxFactor = 4.0
)

// CellStats is the aggregated congestion for one weekday/hour cell.
type CellStats struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// LinearFit is a least-squares line of congestion factor over hour of day
// for one weekday.
type LinearFit struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	N     int     `json:"n"`
}

// Model is an immutable trained congestion model. Lookups cascade from
// the most specific estimate to the least: cell mean, weekday trend
// line, global mean, and finally the free-flow factor 1.0.
type Model struct {
	Cells       map[string]CellStats `json:"cells"`
	DayFits     map[string]LinearFit `json:"day_fits"`
	GlobalMean  float64              `json:"global_mean"`
	SampleCount int                  `json:"sample_count"`
	TrainedAt   time.Time            `json:"trained_at"`
}

func cellKey(dayOfWeek, hour int) string {
	return strconv.Itoa(dayOfWeek) + "-" + strconv.Itoa(hour)
}

// dayIndex converts a wall-clock time to the model's weekday convention,
// 0=Monday through 6=Sunday.
func dayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Train builds a model from the observation log. An empty log yields a
// model that predicts free flow everywhere.
func Train(observations []models.CongestionObservation, now time.Time) *Model {
	m := &Model{
		Cells:       make(map[string]CellStats),
		DayFits:     make(map[string]LinearFit),
		SampleCount: len(observations),
		TrainedAt:   now,
	}
	if len(observations) == 0 {
		m.GlobalMean = 1.0
		return m
	}

	cellFactors := make(map[string][]float64)
	dayHours := make(map[int][]float64)
	dayFactors := make(map[int][]float64)
	all := make([]float64, 0, len(observations))

	for _, obs := range observations {
		if obs.Factor <= 0 || math.IsNaN(obs.Factor) {
			continue
		}
		key := cellKey(obs.DayOfWeek, obs.HourOfDay)
		cellFactors[key] = append(cellFactors[key], obs.Factor)
		dayHours[obs.DayOfWeek] = append(dayHours[obs.DayOfWeek], float64(obs.HourOfDay))
		dayFactors[obs.DayOfWeek] = append(dayFactors[obs.DayOfWeek], obs.Factor)
		all = append(all, obs.Factor)
	}
	if len(all) == 0 {
		m.GlobalMean = 1.0
		return m
	}

	for key, factors := range cellFactors {
		m.Cells[key] = CellStats{
			Mean:  stat.Mean(factors, nil),
			Count: len(factors),
		}
	}

	for dow, hours := range dayHours {
		if len(hours) < 2 || !hasSpread(hours) {
			continue
		}
		alpha, beta := stat.LinearRegression(hours, dayFactors[dow], nil, false)
		if math.IsNaN(alpha) || math.IsNaN(beta) {
			continue
		}
		m.DayFits[strconv.Itoa(dow)] = LinearFit{Alpha: alpha, Beta: beta, N: len(hours)}
	}

	m.GlobalMean = stat.Mean(all, nil)
	return m
}

// hasSpread reports whether xs contains at least two distinct values; a
// regression over a single x is degenerate.
func hasSpread(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return true
		}
	}
	return false
}

// Factor returns the predicted congestion factor for a weekday/hour.
func (m *Model) Factor(dayOfWeek, hour int) float64 {
	if cell, ok := m.Cells[cellKey(dayOfWeek, hour)]; ok && cell.Count >= minCellSamples {
		return clampFactor(cell.Mean)
	}
	if fit, ok := m.DayFits[strconv.Itoa(dayOfWeek)]; ok {
		return clampFactor(fit.Alpha + fit.Beta*float64(hour))
	}
	if m.SampleCount > 0 {
		return clampFactor(m.GlobalMean)
	}
	return 1.0
}

func clampFactor(f float64) float64 {
	return math.Min(maxFactor, math.Max(minFactor, f))
}
