package tracker

// History keeps a bounded FIFO of recent samples per video, for charting only.
// It is never persisted and lives as long as the process. Not safe for
// concurrent use; owned by the collector loop.
type History struct {
	capacity int
	points   map[string][]Sample
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity, points: make(map[string][]Sample)}
}

// Append records one sample, evicting the oldest when the window is full.
func (h *History) Append(videoID string, s Sample) {
	pts := append(h.points[videoID], s)
	if len(pts) > h.capacity {
		pts = pts[len(pts)-h.capacity:]
	}
	h.points[videoID] = pts
}

// Points returns a copy of the window for one video, oldest first.
func (h *History) Points(videoID string) []Sample {
	pts := h.points[videoID]
	out := make([]Sample, len(pts))
	copy(out, pts)
	return out
}

// Len reports the current window length for one video.
func (h *History) Len(videoID string) int { return len(h.points[videoID]) }

// Drop forgets a video's window once the stream has ended.
func (h *History) Drop(videoID string) { delete(h.points, videoID) }
