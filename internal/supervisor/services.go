// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Service wrappers adapting Hestia's lifecycle-managed components to the
// suture.Service interface. Each wrapper starts its component, blocks until
// the supervision context is canceled, then stops it.
package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mledesma/hestia/internal/congestion"
	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/queue"
)

// QueueService wraps the catalog refresh queue as a suture service.
type QueueService struct {
	queue *queue.Queue
}

// NewQueueService creates a queue service wrapper.
func NewQueueService(q *queue.Queue) *QueueService {
	return &QueueService{queue: q}
}

// Serve implements suture.Service. It starts the queue worker and blocks
// until the context is canceled.
func (s *QueueService) Serve(ctx context.Context) error {
	logging.Info().Msg("Starting refresh queue worker")

	if err := s.queue.Start(ctx); err != nil {
		logging.Error().Err(err).Msg("Failed to start refresh queue worker")
		return err
	}

	<-ctx.Done()

	if err := s.queue.Stop(); err != nil {
		logging.Warn().Err(err).Msg("Error stopping refresh queue worker")
	}

	logging.Info().Msg("Refresh queue worker stopped")
	return nil
}

func (s *QueueService) String() string {
	return "refresh-queue"
}

// SamplerService wraps the congestion sampler as a suture service.
type SamplerService struct {
	sampler *congestion.Sampler
}

// NewSamplerService creates a sampler service wrapper.
func NewSamplerService(sampler *congestion.Sampler) *SamplerService {
	return &SamplerService{sampler: sampler}
}

// Serve implements suture.Service. It starts the probe loop and blocks
// until the context is canceled.
func (s *SamplerService) Serve(ctx context.Context) error {
	logging.Info().Msg("Starting congestion sampler")

	if err := s.sampler.Start(); err != nil {
		logging.Error().Err(err).Msg("Failed to start congestion sampler")
		return err
	}

	<-ctx.Done()

	s.sampler.Stop()
	logging.Info().Msg("Congestion sampler stopped")
	return nil
}

func (s *SamplerService) String() string {
	return "congestion-sampler"
}

// HTTPService wraps the HTTP server as a suture service.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService creates an HTTP service wrapper. A zero shutdownTimeout
// falls back to the tree default.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout == 0 {
		shutdownTimeout = DefaultTreeConfig().ShutdownTimeout
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. It runs ListenAndServe and performs a
// graceful Shutdown when the context is canceled.
func (s *HTTPService) Serve(ctx context.Context) error {
	logging.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("HTTP server shutdown error")
		return err
	}

	logging.Info().Msg("HTTP server stopped")
	return nil
}

func (s *HTTPService) String() string {
	return "http-server"
}
