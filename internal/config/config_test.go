// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Scoring.SearchRadiusKm != 3.0 {
		t.Errorf("Scoring.SearchRadiusKm = %v, want 3.0", cfg.Scoring.SearchRadiusKm)
	}
	if cfg.Scoring.BoostFactor != 3.0 {
		t.Errorf("Scoring.BoostFactor = %v, want 3.0", cfg.Scoring.BoostFactor)
	}
	if len(cfg.Scoring.Categories) != 4 {
		t.Errorf("len(Scoring.Categories) = %d, want 4", len(cfg.Scoring.Categories))
	}
	if cfg.Congestion.SampleInterval != 30*time.Minute {
		t.Errorf("Congestion.SampleInterval = %v, want 30m", cfg.Congestion.SampleInterval)
	}
	if cfg.Queue.JobTimeout != 2*time.Minute {
		t.Errorf("Queue.JobTimeout = %v, want 2m", cfg.Queue.JobTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCORING_SEARCH_RADIUS_KM", "5.0")
	t.Setenv("NATS_ENABLED", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Scoring.SearchRadiusKm != 5.0 {
		t.Errorf("Scoring.SearchRadiusKm = %v, want 5.0", cfg.Scoring.SearchRadiusKm)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled = true, want false")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 7070
platform:
  base_url: "https://platform.example"
congestion:
  free_flow_speed_kmh: 25
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Platform.BaseURL != "https://platform.example" {
		t.Errorf("Platform.BaseURL = %s, want file value", cfg.Platform.BaseURL)
	}
	if cfg.Congestion.FreeFlowSpeedKmh != 25 {
		t.Errorf("Congestion.FreeFlowSpeedKmh = %v, want 25", cfg.Congestion.FreeFlowSpeedKmh)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %s, want default", cfg.Server.Host)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want env override 9001", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"zero radius", func(c *Config) { c.Scoring.SearchRadiusKm = 0 }},
		{"boost below one", func(c *Config) { c.Scoring.BoostFactor = 0.5 }},
		{"no categories", func(c *Config) { c.Scoring.Categories = nil }},
		{"inverted thresholds", func(c *Config) {
			c.Congestion.ModerateThreshold = 2.0
			c.Congestion.HeavyThreshold = 1.5
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}
