// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package middleware provides chi-compatible HTTP middleware: request ID
// propagation, Prometheus request instrumentation, and gzip response
// compression. CORS and rate limiting come from the go-chi ecosystem and
// are wired directly in the router.
package middleware
