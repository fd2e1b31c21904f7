// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mledesma/hestia/internal/models"
)

func TestFetchAmenities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/amenities" {
			t.Errorf("path = %s, want /api/amenities", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"a1","name":"Cebu Doctors Hospital","type":"hospital","lat":10.31,"lng":123.89},
			{"id":"a2","name":"No Coords Clinic","type":"clinic"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	amenities, err := c.FetchAmenities(context.Background())
	if err != nil {
		t.Fatalf("FetchAmenities() error = %v", err)
	}
	if len(amenities) != 2 {
		t.Fatalf("len(amenities) = %d, want 2", len(amenities))
	}
	if !amenities[0].HasCoordinates() {
		t.Error("first amenity should have coordinates")
	}
	if amenities[1].HasCoordinates() {
		t.Error("second amenity should lack coordinates")
	}
}

func TestFetchOwnerProperties(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/owners/owner-7/") {
			t.Errorf("path = %s, want owner-scoped path", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"p1","owner_id":"owner-7","name":"Unit A","lat":10.3,"lng":123.9}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	props, err := c.FetchOwnerProperties(context.Background(), "owner-7")
	if err != nil {
		t.Fatalf("FetchOwnerProperties() error = %v", err)
	}
	if len(props) != 1 || props[0].OwnerID != "owner-7" {
		t.Errorf("props = %+v, want one record for owner-7", props)
	}
}

func TestFetchOwnerPropertiesEmptyID(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused"})
	if _, err := c.FetchOwnerProperties(context.Background(), ""); err == nil {
		t.Fatal("FetchOwnerProperties(\"\") = nil, want error")
	}
}

func TestFetchAmenitiesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.FetchAmenities(context.Background()); err == nil {
		t.Fatal("FetchAmenities() = nil, want error on 500")
	}
}

func TestFetchAmenitiesContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.FetchAmenities(ctx); err == nil {
		t.Fatal("FetchAmenities() = nil, want context deadline error")
	}
}

func TestRoutingClientParsesOSRMResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
			t.Errorf("path = %s, want OSRM driving route", r.URL.Path)
		}
		// 12.5 km, 25 minutes.
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"duration":1500,"distance":12500}]}`))
	}))
	defer srv.Close()

	c := NewRoutingClient(RoutingConfig{BaseURL: srv.URL})
	res, err := c.Route(context.Background(), 10.31, 123.89, 10.32, 123.95)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if res.DistanceKM != 12.5 {
		t.Errorf("DistanceKM = %v, want 12.5", res.DistanceKM)
	}
	if res.DurationMinutes != 25 {
		t.Errorf("DurationMinutes = %v, want 25", res.DurationMinutes)
	}
}

func TestRoutingClientNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	c := NewRoutingClient(RoutingConfig{BaseURL: srv.URL})
	if _, err := c.Route(context.Background(), 10.31, 123.89, 10.32, 123.95); err == nil {
		t.Fatal("Route() = nil, want error on NoRoute")
	}
}

func TestRoutingClientRateLimiterHonorsContext(t *testing.T) {
	// Limiter at 1 req/s with burst 1: the second call must wait, and a
	// canceled context turns that wait into a prompt error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"duration":60,"distance":1000}]}`))
	}))
	defer srv.Close()

	c := NewRoutingClient(RoutingConfig{BaseURL: srv.URL, RequestsPerSecond: 1})
	if _, err := c.Route(context.Background(), 1, 2, 3, 4); err != nil {
		t.Fatalf("first Route() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Route(ctx, 1, 2, 3, 4)
	if err == nil {
		t.Fatal("second Route() = nil, want rate limit wait error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

// failingPlatform always errors, for breaker behavior checks.
type failingPlatform struct{}

func (failingPlatform) FetchAmenities(context.Context) ([]models.AmenityPoint, error) {
	return nil, errors.New("upstream down")
}
func (failingPlatform) FetchOwnerIDs(context.Context) ([]string, error) {
	return nil, errors.New("upstream down")
}
func (failingPlatform) FetchOwnerProperties(context.Context, string) ([]models.PropertyRecord, error) {
	return nil, errors.New("upstream down")
}

func TestCircuitBreakerPassesThroughErrors(t *testing.T) {
	cbc := NewCircuitBreakerClient(failingPlatform{})
	if _, err := cbc.FetchAmenities(context.Background()); err == nil {
		t.Fatal("FetchAmenities() = nil, want wrapped client error")
	}
}

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":["owner-1","owner-2"]}`))
	}))
	defer srv.Close()

	cbc := NewCircuitBreakerClient(NewClient(Config{BaseURL: srv.URL}))
	owners, err := cbc.FetchOwnerIDs(context.Background())
	if err != nil {
		t.Fatalf("FetchOwnerIDs() error = %v", err)
	}
	if len(owners) != 2 || owners[0] != "owner-1" {
		t.Errorf("owners = %v, want [owner-1 owner-2]", owners)
	}
}
