// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package config loads layered service configuration: struct defaults,
// then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/mledesma/hestia/internal/congestion"
	"github.com/mledesma/hestia/internal/durability"
	"github.com/mledesma/hestia/internal/queue"
	"github.com/mledesma/hestia/internal/scoring"
	"github.com/mledesma/hestia/internal/source"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig          `koanf:"server"`
	Logging    LoggingConfig         `koanf:"logging"`
	Storage    StorageConfig         `koanf:"storage"`
	NATS       NATSConfig            `koanf:"nats"`
	Platform   source.Config         `koanf:"platform"`
	Routing    source.RoutingConfig  `koanf:"routing"`
	Scoring    scoring.Config        `koanf:"scoring"`
	Queue      queue.Config          `koanf:"queue"`
	Congestion congestion.Config     `koanf:"congestion"`
	Durability durability.Config     `koanf:"durability"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StorageConfig holds the local Badger database location. The snapshot
// tier and the congestion observation log share one database.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// NATSConfig holds remote snapshot tier settings. With Enabled false the
// durability cascade runs local-only.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	Bucket         string `koanf:"bucket"`
}

// defaultConfig returns the built-in defaults, overridden by file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Path: "/data/hestia",
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			Bucket:         "hestia-snapshots",
		},
		Platform: source.Config{
			BaseURL: "",
			APIKey:  "",
			Timeout: 30 * time.Second,
		},
		Routing: source.RoutingConfig{
			BaseURL:           "",
			APIKey:            "",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 4,
		},
		Scoring: scoring.DefaultConfig(),
		Queue:   queue.DefaultConfig(),
		Congestion: congestion.Config{
			SampleInterval:    30 * time.Minute,
			FreeFlowSpeedKmh:  30,
			ModerateThreshold: 1.2,
			HeavyThreshold:    1.5,
			RetentionDays:     90,
		},
		Durability: durability.Config{
			RemoteTimeout: 30 * time.Second,
		},
	}
}

// Validate rejects configuration a running service cannot act on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Scoring.SearchRadiusKm <= 0 {
		return fmt.Errorf("scoring.search_radius_km must be positive")
	}
	if c.Scoring.BoostFactor < 1 {
		return fmt.Errorf("scoring.boost_factor must be >= 1")
	}
	if len(c.Scoring.Categories) == 0 {
		return fmt.Errorf("scoring.categories must not be empty")
	}
	if c.Congestion.ModerateThreshold >= c.Congestion.HeavyThreshold {
		return fmt.Errorf("congestion.moderate_threshold must be below heavy_threshold")
	}
	if c.NATS.Enabled && c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("nats.url required when nats is enabled without the embedded server")
	}
	return nil
}
