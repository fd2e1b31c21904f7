// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package congestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/metrics"
	"github.com/mledesma/hestia/internal/models"
	"github.com/mledesma/hestia/internal/source"
)

// Sampler probes the reference routes on a fixed interval, derives a
// congestion factor from each observed drive time, and appends the
// result to the observation log. Each completed cycle triggers a model
// retrain and a retention prune.
type Sampler struct {
	estimator *Estimator
	log       *ObservationLog
	router    source.Router
	logger    zerolog.Logger
	now       func() time.Time

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSampler creates a sampler over the estimator's configured routes.
func NewSampler(est *Estimator, obsLog *ObservationLog, router source.Router) *Sampler {
	return &Sampler{
		estimator: est,
		log:       obsLog,
		router:    router,
		logger:    logging.With().Str("component", "congestion-sampler").Logger(),
		now:       time.Now,
	}
}

// Start launches the sampling loop. The first cycle runs immediately so
// a fresh deployment has observations before the first interval elapses.
func (s *Sampler) Start() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return fmt.Errorf("sampler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run()
	s.logger.Info().
		Dur("interval", s.estimator.config.SampleInterval).
		Int("routes", len(s.estimator.config.Routes)).
		Msg("Congestion sampler started")
	return nil
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (s *Sampler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.running = false
	s.logger.Info().Msg("Congestion sampler stopped")
}

func (s *Sampler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.estimator.config.SampleInterval)
	defer ticker.Stop()

	s.cycle()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cycle()
		}
	}
}

// cycle probes every route once. Route failures are logged and skipped;
// a cycle that collected at least one observation counts as ok.
func (s *Sampler) cycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	collected := 0
	for _, route := range s.estimator.config.Routes {
		if ctx.Err() != nil {
			return
		}
		if err := s.sampleRoute(ctx, route); err != nil {
			s.logger.Warn().Err(err).Str("route", route.Name).Msg("Route sample failed")
			continue
		}
		collected++
	}

	if collected == 0 {
		metrics.SamplerCycles.WithLabelValues("error").Inc()
		s.logger.Warn().Msg("Sampler cycle collected no observations")
		return
	}
	metrics.SamplerCycles.WithLabelValues("ok").Inc()

	if err := s.estimator.Retrain(ctx, "scheduled"); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled retrain failed")
	}

	cutoff := s.now().AddDate(0, 0, -s.estimator.config.RetentionDays)
	if pruned, err := s.log.PruneBefore(ctx, cutoff); err != nil {
		s.logger.Warn().Err(err).Msg("Observation prune failed")
	} else if pruned > 0 {
		s.logger.Debug().Int("pruned", pruned).Msg("Pruned stale observations")
	}
}

func (s *Sampler) sampleRoute(ctx context.Context, route models.ReferenceRoute) error {
	res, err := s.router.Route(ctx, route.StartLat, route.StartLng, route.EndLat, route.EndLng)
	if err != nil {
		return err
	}
	if res.DistanceKM <= 0 || res.DurationMinutes <= 0 {
		return fmt.Errorf("degenerate route result: %+v", res)
	}

	freeFlow := res.DistanceKM / s.estimator.config.FreeFlowSpeedKmh * 60
	if freeFlow <= 0 {
		return fmt.Errorf("zero free-flow estimate for %s", route.Name)
	}
	factor := res.DurationMinutes / freeFlow
	if factor < 1.0 {
		// Observed faster than the free-flow estimate means the speed
		// assumption was low for this road, not negative congestion.
		factor = 1.0
	}

	now := s.now()
	obs := models.CongestionObservation{
		ObservedAt: now,
		DayOfWeek:  dayIndex(now),
		HourOfDay:  now.Hour(),
		RouteName:  route.Name,
		Factor:     factor,
	}
	if err := s.log.Append(ctx, obs); err != nil {
		return err
	}
	metrics.SamplerObservations.Inc()
	return nil
}
