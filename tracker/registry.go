package tracker

import "sort"

// Registry tracks the believed set of active broadcasts. Each video id moves
// through a small state machine: absent -> tracked -> absent. A stream is
// tracked from the first scan that reports it and dropped after it has been
// missing from grace+1 consecutive scans. With grace 0 every scan replaces the
// snapshot wholesale, so a single empty or partial scan result ends every
// tracked stream; that fragility is the documented default behavior, and a
// positive grace is the knob that tolerates transient scan failures.
//
// Registry is not safe for concurrent use; the collector loop is its only
// owner.
type Registry struct {
	grace   int
	entries map[string]*entry
}

type entry struct {
	stream Stream
	missed int
}

func NewRegistry(grace int) *Registry {
	if grace < 0 {
		grace = 0
	}
	return &Registry{grace: grace, entries: make(map[string]*entry)}
}

// Apply reconciles the registry with the result of one discovery scan and
// returns the lifecycle events the transition produced. Streams present in
// the scan have their identity fields and status refreshed; metrics gathered
// by previous analytics ticks are preserved.
func (r *Registry) Apply(scan []Stream) []Event {
	var events []Event

	seen := make(map[string]struct{}, len(scan))
	for _, s := range scan {
		if s.VideoID == "" {
			continue
		}
		if _, dup := seen[s.VideoID]; dup {
			continue
		}
		seen[s.VideoID] = struct{}{}

		if e, ok := r.entries[s.VideoID]; ok {
			e.missed = 0
			e.stream.ChannelName = s.ChannelName
			e.stream.Title = s.Title
			e.stream.Status = s.Status
			continue
		}
		r.entries[s.VideoID] = &entry{stream: s}
		events = append(events, Event{Kind: EventDiscovered, Stream: s})
	}

	for id, e := range r.entries {
		if _, ok := seen[id]; ok {
			continue
		}
		e.missed++
		if e.missed > r.grace {
			events = append(events, Event{Kind: EventEnded, Stream: e.stream})
			delete(r.entries, id)
		}
	}

	return events
}

// Live returns pointers to the tracked streams currently reported live, so
// the collector can refresh their metrics in place.
func (r *Registry) Live() []*Stream {
	out := make([]*Stream, 0, len(r.entries))
	for _, e := range r.entries {
		if e.stream.Status == StatusLive {
			out = append(out, &e.stream)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

// Snapshot returns a copy of every tracked stream, ordered by video id.
func (r *Registry) Snapshot() []Stream {
	out := make([]Stream, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.stream)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

// Len reports the number of tracked streams.
func (r *Registry) Len() int { return len(r.entries) }
