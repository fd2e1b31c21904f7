// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/metrics"
	"github.com/mledesma/hestia/internal/models"
)

// PlatformAPI is the authoritative listing platform surface the rest of
// the service depends on. Both the raw client and its breaker-wrapped
// form implement it.
type PlatformAPI interface {
	FetchAmenities(ctx context.Context) ([]models.AmenityPoint, error)
	FetchOwnerIDs(ctx context.Context) ([]string, error)
	FetchOwnerProperties(ctx context.Context, ownerID string) ([]models.PropertyRecord, error)
}

// Router is the routing provider surface.
type Router interface {
	Route(ctx context.Context, startLat, startLng, endLat, endLng float64) (RouteResult, error)
}

// newBreaker builds a circuit breaker with the shared policy: open after
// a 60% failure rate over at least 5 requests, hold open for 2 minutes,
// probe with up to 3 requests in half-open state.
func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// execute runs fn through the breaker and records the outcome metric.
func execute(cb *gobreaker.CircuitBreaker[any], name string, fn func() (any, error)) (any, error) {
	result, err := cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", name).Msg("Request rejected by open circuit")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
	return result, nil
}

func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreakerClient wraps the platform client with circuit breaker
// protection. The breaker uses real time for its recovery windows, so
// unit tests should exercise the wrapped client directly.
type CircuitBreakerClient struct {
	client PlatformAPI
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps a platform client.
func NewCircuitBreakerClient(client PlatformAPI) *CircuitBreakerClient {
	name := "platform-api"
	return &CircuitBreakerClient{
		client: client,
		cb:     newBreaker(name),
		name:   name,
	}
}

// FetchAmenities downloads the amenity dataset with breaker protection.
func (c *CircuitBreakerClient) FetchAmenities(ctx context.Context) ([]models.AmenityPoint, error) {
	return castResult[[]models.AmenityPoint](execute(c.cb, c.name, func() (any, error) {
		return c.client.FetchAmenities(ctx)
	}))
}

// FetchOwnerIDs lists owners with breaker protection.
func (c *CircuitBreakerClient) FetchOwnerIDs(ctx context.Context) ([]string, error) {
	return castResult[[]string](execute(c.cb, c.name, func() (any, error) {
		return c.client.FetchOwnerIDs(ctx)
	}))
}

// FetchOwnerProperties downloads one owner's listings with breaker
// protection.
func (c *CircuitBreakerClient) FetchOwnerProperties(ctx context.Context, ownerID string) ([]models.PropertyRecord, error) {
	return castResult[[]models.PropertyRecord](execute(c.cb, c.name, func() (any, error) {
		return c.client.FetchOwnerProperties(ctx, ownerID)
	}))
}

// CircuitBreakerRouter wraps the routing client with circuit breaker
// protection. A tripped breaker stops the congestion sampler from
// hammering a throttled provider for the duration of the open window.
type CircuitBreakerRouter struct {
	router Router
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerRouter wraps a routing client.
func NewCircuitBreakerRouter(router Router) *CircuitBreakerRouter {
	name := "routing-api"
	return &CircuitBreakerRouter{
		router: router,
		cb:     newBreaker(name),
		name:   name,
	}
}

// Route fetches a drive time with breaker protection.
func (r *CircuitBreakerRouter) Route(ctx context.Context, startLat, startLng, endLat, endLng float64) (RouteResult, error) {
	return castResult[RouteResult](execute(r.cb, r.name, func() (any, error) {
		return r.router.Route(ctx, startLat, startLng, endLat, endLng)
	}))
}
