package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockYouTubeServer creates a test server that mocks YouTube Data API v3 responses
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockYouTubeServer creates a new mock YouTube API server
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockActivitiesResponse adds a handler for the activities endpoint returning
// upload activities for the given video ids.
func (m *MockYouTubeServer) MockActivitiesResponse(videoIDs ...string) {
	items := make([]map[string]interface{}, 0, len(videoIDs))
	for _, id := range videoIDs {
		items = append(items, map[string]interface{}{
			"contentDetails": map[string]interface{}{
				"upload": map[string]string{"videoId": id},
			},
		})
	}
	m.Handlers["/youtube/v3/activities"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items}) //nolint:errcheck // test mock response
	}
}

// VideoFixture describes one video returned by the mock videos endpoint.
// Numeric fields use strings because the API serializes uint64 counts as
// JSON strings.
type VideoFixture struct {
	ID                   string
	Title                string
	ChannelTitle         string
	LiveBroadcastContent string
	ConcurrentViewers    string
	ScheduledStartTime   string
	ActualStartTime      string
	LikeCount            string
	CommentCount         string
}

// MockVideosResponse adds a handler for the videos endpoint serving the given
// fixtures keyed by the requested id.
func (m *MockYouTubeServer) MockVideosResponse(videos ...VideoFixture) {
	byID := make(map[string]VideoFixture, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	m.Handlers["/youtube/v3/videos"] = func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]interface{}{}
		if v, ok := byID[r.URL.Query().Get("id")]; ok {
			item := map[string]interface{}{
				"id": v.ID,
				"snippet": map[string]interface{}{
					"title":                v.Title,
					"channelTitle":         v.ChannelTitle,
					"liveBroadcastContent": v.LiveBroadcastContent,
				},
			}
			details := map[string]interface{}{}
			if v.ConcurrentViewers != "" {
				details["concurrentViewers"] = v.ConcurrentViewers
			}
			if v.ScheduledStartTime != "" {
				details["scheduledStartTime"] = v.ScheduledStartTime
			}
			if v.ActualStartTime != "" {
				details["actualStartTime"] = v.ActualStartTime
			}
			if len(details) > 0 {
				item["liveStreamingDetails"] = details
			}
			stats := map[string]interface{}{}
			if v.LikeCount != "" {
				stats["likeCount"] = v.LikeCount
			}
			if v.CommentCount != "" {
				stats["commentCount"] = v.CommentCount
			}
			if len(stats) > 0 {
				item["statistics"] = stats
			}
			items = append(items, item)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items}) //nolint:errcheck // test mock response
	}
}

// MockErrorResponse makes the given endpoint path fail with the status code.
func (m *MockYouTubeServer) MockErrorResponse(path string, status int) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // test mock response
			"error": map[string]interface{}{"code": status, "message": http.StatusText(status)},
		})
	}
}
