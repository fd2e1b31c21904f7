// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// RoutingConfig holds connectivity settings for the routing provider.
type RoutingConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
	// RequestsPerSecond caps outbound routing calls. The provider's free
	// tier throttles hard at roughly 5 req/s. Default: 4
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// RouteResult is one observed drive between two points.
type RouteResult struct {
	DistanceKM      float64
	DurationMinutes float64
}

// RoutingClient queries the routing provider for live drive times along
// the reference routes. All calls pass through a shared rate limiter so
// the congestion sampler cannot exhaust the provider quota.
type RoutingClient struct {
	config  RoutingConfig
	http    *http.Client
	limiter *rate.Limiter
}

// NewRoutingClient creates a routing provider client.
func NewRoutingClient(cfg RoutingConfig) *RoutingClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	return &RoutingClient{
		config: cfg,
		http: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// routeResponse mirrors the OSRM-compatible wire format the provider
// speaks: duration in seconds, distance in meters.
type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// Route fetches the current drive time from start to end. Blocks on the
// rate limiter, so a canceled context returns promptly even under load.
func (c *RoutingClient) Route(ctx context.Context, startLat, startLng, endLat, endLng float64) (RouteResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return RouteResult{}, fmt.Errorf("routing rate limit: %w", err)
	}

	// OSRM coordinate order is lng,lat.
	u := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=false",
		c.config.BaseURL,
		formatCoord(startLng), formatCoord(startLat),
		formatCoord(endLng), formatCoord(endLat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return RouteResult{}, fmt.Errorf("build routing request: %w", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return RouteResult{}, fmt.Errorf("routing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RouteResult{}, fmt.Errorf("routing request: status %d: %s", resp.StatusCode, body)
	}

	var parsed routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return RouteResult{}, fmt.Errorf("decode routing response: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return RouteResult{}, fmt.Errorf("routing provider returned no route (code %q)", parsed.Code)
	}

	r := parsed.Routes[0]
	return RouteResult{
		DistanceKM:      r.Distance / 1000.0,
		DurationMinutes: r.Duration / 60.0,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
