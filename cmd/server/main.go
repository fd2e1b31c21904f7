// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Command server runs the Hestia recommendation service: it hydrates
// the amenity and property datasets through the durability cascade,
// then serves the HTTP API under a supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/nats-io/nats.go"

	"github.com/mledesma/hestia/internal/api"
	"github.com/mledesma/hestia/internal/catalog"
	"github.com/mledesma/hestia/internal/config"
	"github.com/mledesma/hestia/internal/congestion"
	"github.com/mledesma/hestia/internal/durability"
	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/queue"
	"github.com/mledesma/hestia/internal/recommend"
	"github.com/mledesma/hestia/internal/scoring"
	"github.com/mledesma/hestia/internal/source"
	"github.com/mledesma/hestia/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Str("storage", cfg.Storage.Path).
		Msg("Starting Hestia")

	db, err := badger.Open(badger.DefaultOptions(cfg.Storage.Path).WithLogger(nil))
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("Failed to open local store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing local store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Remote snapshot tier. Every failure here degrades to local-only
	// durability instead of aborting startup.
	var remote durability.BlobStore
	if cfg.NATS.Enabled {
		url := cfg.NATS.URL
		if cfg.NATS.EmbeddedServer {
			ns, err := durability.NewEmbeddedServer(durability.EmbeddedServerConfig{
				StoreDir: cfg.NATS.StoreDir,
			})
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
			}
			defer ns.Shutdown()
			url = ns.ClientURL()
		}

		nc, err := nats.Connect(url,
			nats.Name("hestia"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			logging.Warn().Err(err).Str("url", url).Msg("NATS unavailable, snapshot durability is local-only")
		} else {
			defer nc.Close()
			store, err := durability.NewNATSStore(ctx, nc, durability.ObjectStoreConfig{
				Bucket:      cfg.NATS.Bucket,
				Description: "Hestia dataset snapshots",
			})
			if err != nil {
				logging.Warn().Err(err).Msg("Object store unavailable, snapshot durability is local-only")
			} else {
				remote = store
				logging.Info().Str("bucket", cfg.NATS.Bucket).Msg("Remote snapshot tier ready")
			}
		}
	} else {
		logging.Info().Msg("Remote snapshot tier disabled")
	}

	dur := durability.NewManager(durability.NewBadgerStore(db), remote, cfg.Durability)

	// Upstream clients, wrapped in circuit breakers so a flapping
	// platform or routing API fails fast instead of piling up requests.
	platform := source.NewCircuitBreakerClient(source.NewClient(cfg.Platform))
	router := source.NewCircuitBreakerRouter(source.NewRoutingClient(cfg.Routing))

	cat := catalog.New()
	scorer := scoring.NewScorer(cfg.Scoring)
	engine := recommend.NewEngine(cat, scorer, dur, platform, nil)
	refreshQueue := queue.New(engine, cfg.Queue)

	obsLog := congestion.NewObservationLog(db)
	estimator := congestion.NewEstimator(cfg.Congestion, obsLog, dur)
	sampler := congestion.NewSampler(estimator, obsLog, router)

	// Dataset hydration. Amenities and properties must exist before the
	// API can answer anything; the congestion model degrades to its
	// free-flow seed when no tier has data.
	hydrateCtx, hydrateCancel := context.WithTimeout(ctx, 5*time.Minute)
	defer hydrateCancel()
	if err := engine.HydrateAmenities(hydrateCtx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to hydrate amenity dataset")
	}
	if err := engine.HydrateProperties(hydrateCtx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to hydrate property dataset")
	}
	if err := estimator.Hydrate(hydrateCtx); err != nil {
		logging.Warn().Err(err).Msg("Failed to hydrate congestion model")
	}
	stats := engine.AmenityStats()
	logging.Info().
		Int("amenities", stats.Indexed).
		Int("properties", cat.Len()).
		Msg("Datasets hydrated")

	handler := api.NewHandler(engine, cat, refreshQueue, estimator)
	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(handler, api.RouterConfig{
			CORSOrigins:       cfg.Server.CORSOrigins,
			RateLimitRequests: cfg.Server.RateLimitReqs,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
		}),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddWorkerService(supervisor.NewQueueService(refreshQueue))
	tree.AddWorkerService(supervisor.NewSamplerService(sampler))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Hestia stopped gracefully")
}
