// Package tracker implements the stream discovery and sampling core: the
// registry of currently tracked broadcasts, the bounded per-video sample
// history, and the two-cadence collector loop that drives both.
package tracker

import "time"

// Status is the broadcast state reported by the upstream feed.
type Status string

const (
	StatusLive     Status = "live"
	StatusUpcoming Status = "upcoming"
)

// Stream is the registry's current belief about one broadcast. It exists only
// in memory; the durable trace of a stream is the sample rows written for it.
type Stream struct {
	VideoID     string
	ChannelID   string
	ChannelName string
	Title       string
	Status      Status

	// Metrics, refreshed in place on each analytics tick while live.
	ConcurrentViewers int64
	LikeCount         int64
	CommentCount      int64

	ScheduledStart time.Time
	ActualStart    time.Time
}

// Metrics is one observation returned by the metrics fetcher.
type Metrics struct {
	ConcurrentViewers int64
	LikeCount         int64
	CommentCount      int64
	ScheduledStart    time.Time
	ActualStart       time.Time
}

// Sample is one charting point kept in the in-memory history window.
type Sample struct {
	CollectedAt       time.Time
	ConcurrentViewers int64
	LikeCount         int64
	CommentCount      int64
}

// Row is the full durable record written for one sample. Every persisted row
// carries the complete column set; partial rows are never published.
type Row struct {
	CollectedAt       time.Time
	ChannelID         string
	ChannelName       string
	VideoID           string
	VideoTitle        string
	ConcurrentViewers int64
	LikeCount         int64
	CommentCount      int64
	StreamStatus      Status
	ScheduledStart    time.Time
	ActualStart       time.Time
}

// EventKind distinguishes registry lifecycle transitions.
type EventKind int

const (
	// EventDiscovered fires the first time a video id appears in a scan.
	EventDiscovered EventKind = iota
	// EventEnded fires once a video id has been absent from more consecutive
	// scans than the configured grace allows. There is no stored "ended"
	// state; removal from the registry is the terminal transition.
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventDiscovered:
		return "discovered"
	case EventEnded:
		return "ended"
	}
	return "unknown"
}

// Event is emitted by Registry.Apply for each lifecycle transition.
type Event struct {
	Kind   EventKind
	Stream Stream
}
