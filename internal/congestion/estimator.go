// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package congestion

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mledesma/hestia/internal/durability"
	"github.com/mledesma/hestia/internal/geo"
	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/metrics"
	"github.com/mledesma/hestia/internal/models"
)

// Severity bands, from the factor thresholds the widget traffic view has
// always used.
const (
	SeveritySmooth   = "smooth"
	SeverityModerate = "moderate"
	SeverityHeavy    = "heavy"
)

// Config holds congestion estimation settings.
type Config struct {
	// SampleInterval is the pause between sampler cycles. Default: 30m
	SampleInterval time.Duration `koanf:"sample_interval"`
	// FreeFlowSpeedKmh estimates unobstructed urban driving speed, used
	// to derive the base drive time from geodesic distance. Default: 30
	FreeFlowSpeedKmh float64 `koanf:"free_flow_speed_kmh"`
	// ModerateThreshold and HeavyThreshold split factors into severity
	// bands. Defaults: 1.2 and 1.5
	ModerateThreshold float64 `koanf:"moderate_threshold"`
	HeavyThreshold    float64 `koanf:"heavy_threshold"`
	// RetentionDays bounds the observation log. Default: 90
	RetentionDays int `koanf:"retention_days"`
	// Routes are the probe routes the sampler drives each cycle. Empty
	// uses DefaultRoutes.
	Routes []models.ReferenceRoute `koanf:"routes"`
}

// withDefaults fills zero values in place.
func (c *Config) withDefaults() {
	if c.SampleInterval <= 0 {
		c.SampleInterval = 30 * time.Minute
	}
	if c.FreeFlowSpeedKmh <= 0 {
		c.FreeFlowSpeedKmh = 30
	}
	if c.ModerateThreshold <= 0 {
		c.ModerateThreshold = 1.2
	}
	if c.HeavyThreshold <= 0 {
		c.HeavyThreshold = 1.5
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if len(c.Routes) == 0 {
		c.Routes = DefaultRoutes()
	}
}

// DefaultRoutes returns the built-in Metro Cebu probe routes. They cover
// the major arteries so the sampled factors generalize city-wide.
func DefaultRoutes() []models.ReferenceRoute {
	return []models.ReferenceRoute{
		{Name: "IT Park to Ayala", StartLat: 10.3296, StartLng: 123.9056, EndLat: 10.3175, EndLng: 123.9066},
		{Name: "Banilad to Talamban", StartLat: 10.3404, StartLng: 123.9103, EndLat: 10.3700, EndLng: 123.9150},
		{Name: "Osmena Blvd (Capitol to Colon)", StartLat: 10.3168, StartLng: 123.8931, EndLat: 10.2974, EndLng: 123.9015},
		{Name: "South Road Properties", StartLat: 10.2797, StartLng: 123.8804, EndLat: 10.2520, EndLng: 123.8640},
		{Name: "Mabolo to Ayala via MJ Cuenco", StartLat: 10.3230, StartLng: 123.9150, EndLat: 10.3175, EndLng: 123.9066},
		{Name: "Mactan Bridge (Mandaue side)", StartLat: 10.3239, StartLng: 123.9372, EndLat: 10.3117, EndLng: 123.9784},
		{Name: "Airport to SM City Cebu", StartLat: 10.3075, StartLng: 123.9800, EndLat: 10.3111, EndLng: 123.9181},
		{Name: "Guadalupe to Capitol", StartLat: 10.3210, StartLng: 123.8710, EndLat: 10.3168, EndLng: 123.8931},
	}
}

// Estimator owns the trained congestion model and answers drive-time
// predictions. The model is swapped atomically on retrain; readers never
// block.
type Estimator struct {
	config     Config
	log        *ObservationLog
	durability *durability.Manager
	model      atomic.Pointer[Model]
	retrainMu  sync.Mutex
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEstimator creates an estimator seeded with a free-flow model.
func NewEstimator(cfg Config, obsLog *ObservationLog, dur *durability.Manager) *Estimator {
	cfg.withDefaults()
	e := &Estimator{
		config:     cfg,
		log:        obsLog,
		durability: dur,
		logger:     logging.With().Str("component", "congestion").Logger(),
		now:        time.Now,
	}
	e.model.Store(Train(nil, e.now()))
	return e
}

// Routes returns the configured probe routes.
func (e *Estimator) Routes() []models.ReferenceRoute {
	return e.config.Routes
}

// Hydrate loads the model through the durability cascade, retraining
// from the local observation log as the source tier. Never fatal: with
// nothing to load the estimator keeps its free-flow seed model.
func (e *Estimator) Hydrate(ctx context.Context) error {
	data, tier, err := e.durability.Load(ctx, durability.DatasetCongestionModel, func(ctx context.Context) ([]byte, error) {
		observations, err := e.log.All(ctx)
		if err != nil {
			return nil, err
		}
		if len(observations) == 0 {
			return nil, fmt.Errorf("observation log is empty")
		}
		return durability.EncodeSnapshot(Train(observations, e.now()))
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("No congestion model available, serving free-flow predictions")
		return nil
	}

	var m Model
	if err := durability.DecodeSnapshot(data, &m); err != nil {
		return fmt.Errorf("hydrate congestion model: %w", err)
	}
	e.model.Store(&m)
	e.logger.Info().
		Str("tier", string(tier)).
		Int("samples", m.SampleCount).
		Time("trained_at", m.TrainedAt).
		Msg("Congestion model hydrated")
	return nil
}

// Retrain rebuilds the model from the full observation log, swaps it in,
// and persists the snapshot. Serialized so concurrent triggers cannot
// interleave a stale model after a fresh one.
func (e *Estimator) Retrain(ctx context.Context, trigger string) error {
	e.retrainMu.Lock()
	defer e.retrainMu.Unlock()

	observations, err := e.log.All(ctx)
	if err != nil {
		metrics.CongestionRetrains.WithLabelValues(trigger).Inc()
		return fmt.Errorf("retrain: %w", err)
	}

	m := Train(observations, e.now())
	e.model.Store(m)
	metrics.CongestionRetrains.WithLabelValues(trigger).Inc()
	e.logger.Info().
		Str("trigger", trigger).
		Int("samples", m.SampleCount).
		Int("cells", len(m.Cells)).
		Msg("Congestion model retrained")

	blob, err := durability.EncodeSnapshot(m)
	if err != nil {
		return fmt.Errorf("retrain: %w", err)
	}
	if err := e.durability.Persist(ctx, durability.DatasetCongestionModel, blob); err != nil {
		// The in-memory model is current, snapshot loss only costs the
		// next cold start a retrain.
		e.logger.Warn().Err(err).Msg("Failed to persist congestion model snapshot")
	}
	return nil
}

// EnsureTrained retrains on demand when the current model is still the
// untrained seed but logged observations exist. Called on the predict
// path so an untrained default is never served while data is available.
func (e *Estimator) EnsureTrained(ctx context.Context) {
	if e.model.Load().SampleCount > 0 {
		return
	}
	n, err := e.log.Count(ctx)
	if err != nil || n == 0 {
		return
	}
	if err := e.Retrain(ctx, "on-demand"); err != nil {
		e.logger.Warn().Err(err).Msg("On-demand retrain failed, serving free-flow predictions")
	}
}

// Predict estimates the drive from start to end at the given departure
// time.
func (e *Estimator) Predict(startLat, startLng, endLat, endLng float64, departAt time.Time) models.TrafficPrediction {
	distance := geo.Geodesic(startLat, startLng, endLat, endLng)
	base := distance / e.config.FreeFlowSpeedKmh * 60

	factor := e.model.Load().Factor(dayIndex(departAt), departAt.Hour())
	predicted := base * factor
	delay := predicted - base
	if delay < 0 {
		delay = 0
	}

	return models.TrafficPrediction{
		DistanceKM:       distance,
		PredictedMinutes: predicted,
		DelayMinutes:     delay,
		Severity:         e.severity(factor),
	}
}

func (e *Estimator) severity(factor float64) string {
	switch {
	case factor > e.config.HeavyThreshold:
		return SeverityHeavy
	case factor > e.config.ModerateThreshold:
		return SeverityModerate
	default:
		return SeveritySmooth
	}
}

// Status describes the current model for the health endpoint.
type Status struct {
	TrainedAt   time.Time `json:"trained_at"`
	SampleCount int       `json:"sample_count"`
	CellCount   int       `json:"cell_count"`
}

// ModelStatus returns training metadata for the current model.
func (e *Estimator) ModelStatus() Status {
	m := e.model.Load()
	return Status{
		TrainedAt:   m.TrainedAt,
		SampleCount: m.SampleCount,
		CellCount:   len(m.Cells),
	}
}
