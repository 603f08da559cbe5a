package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/streampulse/tracker/tracker"
)

type fakeProvider struct {
	snap tracker.StatusSnapshot
}

func (f *fakeProvider) Status() tracker.StatusSnapshot { return f.snap }

func doRequest(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzWithoutDB(t *testing.T) {
	h := NewMux(Options{Provider: &fakeProvider{}})
	rec := doRequest(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing correlation id header")
	}
}

func TestHealthzReusesCorrelationID(t *testing.T) {
	h := NewMux(Options{Provider: &fakeProvider{}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("correlation id = %q, want corr-123", got)
	}
}

func TestReadyzFreshScan(t *testing.T) {
	p := &fakeProvider{snap: tracker.StatusSnapshot{LastScan: time.Now()}}
	h := NewMux(Options{Provider: p, StaleAfter: time.Minute})

	rec := doRequest(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %q, want ready", body["status"])
	}
}

func TestReadyzStaleScan(t *testing.T) {
	p := &fakeProvider{snap: tracker.StatusSnapshot{LastScan: time.Now().Add(-time.Hour)}}
	h := NewMux(Options{Provider: p, StaleAfter: time.Minute})

	rec := doRequest(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["failed_check"] != "scan_freshness" {
		t.Errorf("failed_check = %q, want scan_freshness", body["failed_check"])
	}
}

func TestReadyzBeforeFirstScan(t *testing.T) {
	h := NewMux(Options{Provider: &fakeProvider{}, StaleAfter: time.Minute})
	if rec := doRequest(t, h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d before first scan, want 503", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	scan := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &fakeProvider{snap: tracker.StatusSnapshot{
		Streams: []tracker.Stream{
			{
				VideoID:           "v1",
				ChannelID:         "c1",
				ChannelName:       "Test Channel",
				Title:             "Live Now",
				Status:            tracker.StatusLive,
				ConcurrentViewers: 42,
			},
		},
		LastScan:   scan,
		LastSample: scan.Add(30 * time.Second),
	}}
	h := NewMux(Options{Provider: p})

	rec := doRequest(t, h, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Streams []struct {
			VideoID           string `json:"video_id"`
			Status            string `json:"status"`
			ConcurrentViewers int64  `json:"concurrent_viewers"`
		} `json:"streams"`
		Tracked    int    `json:"tracked"`
		LastScan   string `json:"last_scan"`
		LastSample string `json:"last_sample"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Tracked != 1 || len(body.Streams) != 1 {
		t.Fatalf("tracked = %d, streams = %d, want 1/1", body.Tracked, len(body.Streams))
	}
	if body.Streams[0].VideoID != "v1" || body.Streams[0].Status != "live" || body.Streams[0].ConcurrentViewers != 42 {
		t.Errorf("unexpected stream: %+v", body.Streams[0])
	}
	if body.LastScan != "2025-06-01T12:00:00Z" {
		t.Errorf("last_scan = %q", body.LastScan)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(Options{Provider: &fakeProvider{}})
	if rec := doRequest(t, h, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d, want 200", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := NewMux(Options{Provider: &fakeProvider{}})
	if rec := doRequest(t, h, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route = %d, want 404", rec.Code)
	}
}
