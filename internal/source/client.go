// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package source holds the HTTP clients for the authoritative listing
// platform and the routing provider. Both upstreams are external services
// with their own availability characteristics, so every client here is
// wrapped in a circuit breaker before the rest of the service sees it.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mledesma/hestia/internal/models"
)

// Config holds connectivity settings for the authoritative platform API.
type Config struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// Client talks to the listing platform's REST API. It is the bottom tier
// of the durability cascade and the backend for catalog refresh jobs.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a platform API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// envelope is the platform API response wrapper.
type envelope[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// FetchAmenities downloads the full amenity dataset.
func (c *Client) FetchAmenities(ctx context.Context) ([]models.AmenityPoint, error) {
	var out envelope[[]models.AmenityPoint]
	if err := c.get(ctx, "/api/amenities", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch amenities: %w", err)
	}
	return out.Data, nil
}

// FetchOwnerIDs lists every owner known to the platform.
func (c *Client) FetchOwnerIDs(ctx context.Context) ([]string, error) {
	var out envelope[[]string]
	if err := c.get(ctx, "/api/owners", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch owner ids: %w", err)
	}
	return out.Data, nil
}

// FetchOwnerProperties downloads one owner's property listings.
func (c *Client) FetchOwnerProperties(ctx context.Context, ownerID string) ([]models.PropertyRecord, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("fetch owner properties: empty owner id")
	}
	path := "/api/owners/" + url.PathEscape(ownerID) + "/properties"
	var out envelope[[]models.PropertyRecord]
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch properties for owner %s: %w", ownerID, err)
	}
	return out.Data, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded error body for log context, upstreams are chatty.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
