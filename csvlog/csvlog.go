// Package csvlog appends sample rows to a flat CSV file, the persistence path
// that works with no database configured.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/streampulse/tracker/tracker"
)

// header is the fixed column order. It must stay in sync with record below;
// consumers parse positionally.
var header = []string{
	"collected_at",
	"channel_id",
	"channel_name",
	"video_id",
	"video_title",
	"concurrent_viewers",
	"like_count",
	"comment_count",
	"stream_status",
	"scheduled_start",
	"actual_start",
}

// Writer appends rows to a single CSV file. The header is written exactly
// once, decided by whether the file already exists at construction, so
// restarts keep appending to the same file without repeating it.
type Writer struct {
	path      string
	needsHead bool
}

func New(path string) *Writer {
	_, err := os.Stat(path)
	return &Writer{path: path, needsHead: os.IsNotExist(err)}
}

// Append writes one row, opening and closing the file per call so the file is
// always flushed and safe to read between samples.
func (w *Writer) Append(row tracker.Row) error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if w.needsHead {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.needsHead = false
	}
	if err := cw.Write(record(row)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.path, err)
	}
	return nil
}

func record(row tracker.Row) []string {
	return []string{
		row.CollectedAt.UTC().Format(time.RFC3339),
		row.ChannelID,
		row.ChannelName,
		row.VideoID,
		row.VideoTitle,
		strconv.FormatInt(row.ConcurrentViewers, 10),
		strconv.FormatInt(row.LikeCount, 10),
		strconv.FormatInt(row.CommentCount, 10),
		string(row.StreamStatus),
		formatTimestamp(row.ScheduledStart),
		formatTimestamp(row.ActualStart),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
