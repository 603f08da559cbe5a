package tracker

import (
	"testing"
	"time"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(2)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, viewers := range []int64{10, 20, 30} {
		h.Append("v1", Sample{
			CollectedAt:       base.Add(time.Duration(i) * time.Minute),
			ConcurrentViewers: viewers,
		})
	}

	pts := h.Points("v1")
	if len(pts) != 2 {
		t.Fatalf("len(Points) = %d, want 2", len(pts))
	}
	if pts[0].ConcurrentViewers != 20 || pts[1].ConcurrentViewers != 30 {
		t.Errorf("window = [%d %d], want [20 30]", pts[0].ConcurrentViewers, pts[1].ConcurrentViewers)
	}
	if !pts[0].CollectedAt.Before(pts[1].CollectedAt) {
		t.Errorf("points not in oldest-first order")
	}
}

func TestHistoryPerVideoIsolation(t *testing.T) {
	h := NewHistory(10)
	h.Append("v1", Sample{ConcurrentViewers: 1})
	h.Append("v2", Sample{ConcurrentViewers: 2})
	h.Append("v2", Sample{ConcurrentViewers: 3})

	if h.Len("v1") != 1 {
		t.Errorf("Len(v1) = %d, want 1", h.Len("v1"))
	}
	if h.Len("v2") != 2 {
		t.Errorf("Len(v2) = %d, want 2", h.Len("v2"))
	}
	if h.Len("unknown") != 0 {
		t.Errorf("Len(unknown) = %d, want 0", h.Len("unknown"))
	}
}

func TestHistoryDrop(t *testing.T) {
	h := NewHistory(10)
	h.Append("v1", Sample{ConcurrentViewers: 1})
	h.Drop("v1")
	if h.Len("v1") != 0 {
		t.Errorf("Len after Drop = %d, want 0", h.Len("v1"))
	}
	// Dropping an unknown id is a no-op.
	h.Drop("unknown")
}

func TestHistoryPointsReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Append("v1", Sample{ConcurrentViewers: 1})

	pts := h.Points("v1")
	pts[0].ConcurrentViewers = 999

	if got := h.Points("v1")[0].ConcurrentViewers; got != 1 {
		t.Errorf("internal window mutated through returned slice: viewers = %d, want 1", got)
	}
}

func TestHistoryFullWindow(t *testing.T) {
	h := NewHistory(60)
	for i := 0; i < 100; i++ {
		h.Append("v1", Sample{ConcurrentViewers: int64(i)})
	}
	pts := h.Points("v1")
	if len(pts) != 60 {
		t.Fatalf("len = %d, want 60", len(pts))
	}
	if pts[0].ConcurrentViewers != 40 || pts[59].ConcurrentViewers != 99 {
		t.Errorf("window bounds = [%d %d], want [40 99]", pts[0].ConcurrentViewers, pts[59].ConcurrentViewers)
	}
}
