// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mledesma/hestia/internal/catalog"
	"github.com/mledesma/hestia/internal/congestion"
	"github.com/mledesma/hestia/internal/durability"
	"github.com/mledesma/hestia/internal/models"
	"github.com/mledesma/hestia/internal/queue"
	"github.com/mledesma/hestia/internal/recommend"
	"github.com/mledesma/hestia/internal/scoring"
)

const (
	baseLat = 10.3157
	baseLng = 123.8854
)

func ptr(v float64) *float64 { return &v }

// offsetNorth shifts a latitude north by roughly km kilometers.
func offsetNorth(lat, km float64) float64 { return lat + km/111.19 }

type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStore() *memStore { return &memStore{blobs: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, durability.ErrNotFound
	}
	return data, nil
}

func (s *memStore) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = data
	return nil
}

type fakePlatform struct {
	mu         sync.Mutex
	amenities  []models.AmenityPoint
	properties map[string][]models.PropertyRecord
	err        error
}

func (f *fakePlatform) FetchAmenities(context.Context) ([]models.AmenityPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.amenities, nil
}

func (f *fakePlatform) FetchOwnerIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]string, 0, len(f.properties))
	for id := range f.properties {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakePlatform) FetchOwnerProperties(_ context.Context, ownerID string) ([]models.PropertyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.properties[ownerID], nil
}

// testStack wires an end-to-end in-memory service for handler tests.
type testStack struct {
	handler  *Handler
	server   http.Handler
	catalog  *catalog.Catalog
	queue    *queue.Queue
	platform *fakePlatform
	obsLog   *congestion.ObservationLog
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	dur := durability.NewManager(newMemStore(), nil, durability.Config{})

	platform := &fakePlatform{
		amenities: []models.AmenityPoint{
			{ID: "a1", Name: "Cebu Doctors Hospital", Type: "hospital", SubCategory: "health", Lat: ptr(offsetNorth(baseLat, 0.2)), Lng: ptr(baseLng)},
			{ID: "a2", Name: "Ayala Mall", Type: "mall", SubCategory: "shopping", Lat: ptr(offsetNorth(baseLat, 1.0)), Lng: ptr(baseLng)},
		},
		properties: map[string][]models.PropertyRecord{
			"owner-1": {
				{ID: "p1", OwnerID: "owner-1", Name: "Vista Tower", Lat: ptr(baseLat), Lng: ptr(baseLng)},
				{ID: "p2", OwnerID: "owner-1", Name: "Harbor Lights", Lat: ptr(offsetNorth(baseLat, 5.0)), Lng: ptr(baseLng)},
			},
		},
	}

	cat := catalog.New()
	scorer := scoring.NewScorer(scoring.DefaultConfig())
	engine := recommend.NewEngine(cat, scorer, dur, platform, nil)

	q := queue.New(engine, queue.Config{JobTimeout: 5 * time.Second})

	obsLog := congestion.NewObservationLog(db)
	est := congestion.NewEstimator(congestion.Config{}, obsLog, dur)

	handler := NewHandler(engine, cat, q, est)
	router := NewRouter(handler, RouterConfig{RateLimitRequests: 1000})

	if _, err := engine.RebuildAmenities(context.Background()); err != nil {
		t.Fatalf("RebuildAmenities() error = %v", err)
	}
	cat.ReplaceOwner("owner-1", platform.properties["owner-1"])

	return &testStack{
		handler:  handler,
		server:   router,
		catalog:  cat,
		queue:    q,
		platform: platform,
		obsLog:   obsLog,
	}
}

// do runs a request through the full router and decodes the envelope.
func (s *testStack) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)

	var envelope models.APIResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, envelope
}

func decodeData(t *testing.T, envelope models.APIResponse, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestRecommendRanksByPriority(t *testing.T) {
	s := newTestStack(t)

	_, envelope := s.do(t, http.MethodPost, "/api/v1/recommend", models.RecommendRequest{
		Priorities: map[string]float64{"health": 1.0},
	})

	if envelope.Status != "success" {
		t.Fatalf("status = %q, want success", envelope.Status)
	}

	var recs []models.Recommendation
	decodeData(t, envelope, &recs)
	if len(recs) != 2 {
		t.Fatalf("len(recommendations) = %d, want 2", len(recs))
	}
	if recs[0].PropertyID != "p1" {
		t.Errorf("top result = %s, want p1 (closest to the hospital)", recs[0].PropertyID)
	}
	if recs[0].MatchScore < recs[1].MatchScore {
		t.Error("results not sorted by score")
	}
}

func TestRecommendRejectsNegativeWeight(t *testing.T) {
	s := newTestStack(t)

	rec, envelope := s.do(t, http.MethodPost, "/api/v1/recommend", models.RecommendRequest{
		Priorities: map[string]float64{"health": -1.0},
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidation {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeValidation)
	}
}

func TestRecommendRejectsEmptyPriorities(t *testing.T) {
	s := newTestStack(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/recommend", models.RecommendRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRecommendRejectsMalformedJSON(t *testing.T) {
	s := newTestStack(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCatalogRefreshSubmitsJob(t *testing.T) {
	s := newTestStack(t)

	rec, envelope := s.do(t, http.MethodPost, "/api/v1/catalog/refresh", refreshRequest{OwnerID: "owner-1"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var submit models.JobSubmitResponse
	decodeData(t, envelope, &submit)
	if submit.JobID == "" {
		t.Fatal("empty job_id")
	}

	_, statusEnvelope := s.do(t, http.MethodGet, "/api/v1/jobs/"+submit.JobID, nil)
	var status models.JobStatusResponse
	decodeData(t, statusEnvelope, &status)
	if status.Status != string(queue.StatusQueued) {
		t.Errorf("job status = %q, want queued (worker not started)", status.Status)
	}
}

func TestCatalogRefreshRequiresOwnerID(t *testing.T) {
	s := newTestStack(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/catalog/refresh", refreshRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestJobStatusUnknownIs404(t *testing.T) {
	s := newTestStack(t)

	rec, envelope := s.do(t, http.MethodGet, "/api/v1/jobs/no-such-job", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeNotFound)
	}
}

func TestTrafficPredictFreeFlowWithEmptyLog(t *testing.T) {
	s := newTestStack(t)

	target := fmt.Sprintf("/api/v1/traffic/predict?start_lat=%f&start_lng=%f&end_lat=%f&end_lng=%f",
		10.3296, 123.9056, 10.3175, 123.9066)
	rec, envelope := s.do(t, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var pred models.TrafficPrediction
	decodeData(t, envelope, &pred)
	if pred.DistanceKM <= 0 {
		t.Errorf("DistanceKM = %v, want positive", pred.DistanceKM)
	}
	if pred.DelayMinutes != 0 {
		t.Errorf("DelayMinutes = %v, want 0 with an empty log", pred.DelayMinutes)
	}
	if pred.Severity != congestion.SeveritySmooth {
		t.Errorf("Severity = %q, want smooth", pred.Severity)
	}
}

func TestTrafficPredictOnDemandRetrain(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		obs := models.CongestionObservation{
			ObservedAt: now.Add(time.Duration(i) * time.Minute),
			DayOfWeek:  (int(now.Weekday()) + 6) % 7,
			HourOfDay:  now.Hour(),
			Factor:     2.0,
		}
		if err := s.obsLog.Append(ctx, obs); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	target := fmt.Sprintf("/api/v1/traffic/predict?start_lat=%f&start_lng=%f&end_lat=%f&end_lng=%f",
		10.3296, 123.9056, 10.3175, 123.9066)
	_, envelope := s.do(t, http.MethodGet, target, nil)

	var pred models.TrafficPrediction
	decodeData(t, envelope, &pred)
	if pred.DelayMinutes <= 0 {
		t.Errorf("DelayMinutes = %v, want positive after on-demand retrain", pred.DelayMinutes)
	}
	if pred.Severity != congestion.SeverityHeavy {
		t.Errorf("Severity = %q, want heavy at 2.0x", pred.Severity)
	}
}

func TestTrafficPredictValidation(t *testing.T) {
	s := newTestStack(t)

	cases := []struct {
		name   string
		target string
	}{
		{"missing params", "/api/v1/traffic/predict"},
		{"latitude out of range", "/api/v1/traffic/predict?start_lat=91&start_lng=123.9&end_lat=10.3&end_lng=123.9"},
		{"not a number", "/api/v1/traffic/predict?start_lat=abc&start_lng=123.9&end_lat=10.3&end_lng=123.9"},
		{"bad hour", "/api/v1/traffic/predict?start_lat=10.3&start_lng=123.9&end_lat=10.31&end_lng=123.91&hour=24"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := s.do(t, http.MethodGet, tc.target, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRebuildAmenitiesReportsCount(t *testing.T) {
	s := newTestStack(t)

	rec, envelope := s.do(t, http.MethodPost, "/api/v1/admin/amenities/rebuild", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var data struct {
		Indexed int `json:"indexed_amenities"`
	}
	decodeData(t, envelope, &data)
	if data.Indexed != 2 {
		t.Errorf("indexed_amenities = %d, want 2", data.Indexed)
	}
}

func TestRebuildAmenitiesUpstreamFailure(t *testing.T) {
	s := newTestStack(t)
	s.platform.mu.Lock()
	s.platform.err = errors.New("upstream down")
	s.platform.mu.Unlock()

	rec, envelope := s.do(t, http.MethodPost, "/api/v1/admin/amenities/rebuild", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeUpstream {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeUpstream)
	}
}

func TestRetrainTrafficEndpoint(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	obs := models.CongestionObservation{ObservedAt: time.Now(), DayOfWeek: 0, HourOfDay: 8, Factor: 1.4}
	if err := s.obsLog.Append(ctx, obs); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	rec, envelope := s.do(t, http.MethodPost, "/api/v1/admin/traffic/retrain", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status congestion.Status
	decodeData(t, envelope, &status)
	if status.SampleCount != 1 {
		t.Errorf("sample_count = %d, want 1", status.SampleCount)
	}
}

func TestHealthReportsDatasets(t *testing.T) {
	s := newTestStack(t)

	rec, envelope := s.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health healthResponse
	decodeData(t, envelope, &health)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Datasets.Amenities.Indexed != 2 {
		t.Errorf("amenities indexed = %d, want 2", health.Datasets.Amenities.Indexed)
	}
	if health.Datasets.Properties.Records != 2 || health.Datasets.Properties.Owners != 1 {
		t.Errorf("properties = %+v, want 2 records / 1 owner", health.Datasets.Properties)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	s := newTestStack(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("hestia_")) {
		t.Error("metrics output missing hestia_ series")
	}
}

func TestQueueWorkerCompletesSubmittedJob(t *testing.T) {
	s := newTestStack(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.queue.Start(ctx); err != nil {
		t.Fatalf("queue Start() error = %v", err)
	}
	defer func() { _ = s.queue.Stop() }()

	_, envelope := s.do(t, http.MethodPost, "/api/v1/catalog/refresh", refreshRequest{OwnerID: "owner-1"})
	var submit models.JobSubmitResponse
	decodeData(t, envelope, &submit)

	deadline := time.After(2 * time.Second)
	for {
		status := s.queue.Status(submit.JobID)
		if status == queue.StatusCompleted {
			break
		}
		if status == queue.StatusFailed {
			t.Fatal("job failed")
		}
		select {
		case <-deadline:
			t.Fatalf("job did not complete, last status %q", status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	if s.catalog.Len() != 2 {
		t.Errorf("catalog Len() = %d, want 2 after refresh", s.catalog.Len())
	}
}
