package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Handlers bundles the dependencies shared by the HTTP handlers.
type Handlers struct {
	db         *sql.DB
	provider   StatusProvider
	staleAfter time.Duration
}

// HandleHealthz responds to liveness probe requests. With a database
// configured it also checks connectivity; in log-only mode the process being
// up is the whole check.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error {
			if h.db == nil {
				return nil
			}
			return h.db.PingContext(r.Context())
		}},
		{"scan_freshness", func() error {
			if h.provider == nil || h.staleAfter <= 0 {
				return nil
			}
			last := h.provider.Status().LastScan
			if last.IsZero() {
				return fmt.Errorf("no scan completed yet")
			}
			if age := time.Since(last); age > h.staleAfter {
				return fmt.Errorf("last scan %s ago exceeds %s", age.Round(time.Second), h.staleAfter)
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// statusStream is the JSON shape of one tracked stream in /status.
type statusStream struct {
	VideoID           string `json:"video_id"`
	ChannelID         string `json:"channel_id"`
	ChannelName       string `json:"channel_name"`
	Title             string `json:"title"`
	Status            string `json:"status"`
	ConcurrentViewers int64  `json:"concurrent_viewers"`
	LikeCount         int64  `json:"like_count"`
	CommentCount      int64  `json:"comment_count"`
	ScheduledStart    string `json:"scheduled_start,omitempty"`
	ActualStart       string `json:"actual_start,omitempty"`
}

// HandleStatus reports the tracked stream set and loop progress.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	snap := h.provider.Status()

	streams := make([]statusStream, 0, len(snap.Streams))
	for _, s := range snap.Streams {
		streams = append(streams, statusStream{
			VideoID:           s.VideoID,
			ChannelID:         s.ChannelID,
			ChannelName:       s.ChannelName,
			Title:             s.Title,
			Status:            string(s.Status),
			ConcurrentViewers: s.ConcurrentViewers,
			LikeCount:         s.LikeCount,
			CommentCount:      s.CommentCount,
			ScheduledStart:    formatTime(s.ScheduledStart),
			ActualStart:       formatTime(s.ActualStart),
		})
	}

	resp := map[string]any{
		"streams":     streams,
		"tracked":     len(streams),
		"last_scan":   formatTime(snap.LastScan),
		"last_sample": formatTime(snap.LastSample),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
