package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streampulse/tracker/telemetry"
)

// Scanner discovers candidate live/upcoming broadcasts for one channel. On
// upstream failure it returns the partial set accumulated so far together
// with the error, so one broken channel never aborts discovery for the rest.
type Scanner interface {
	Scan(ctx context.Context, channelID string) ([]Stream, error)
}

// MetricsFetcher retrieves the current engagement counts for one video.
type MetricsFetcher interface {
	StreamMetrics(ctx context.Context, videoID string) (*Metrics, error)
}

// SampleStore is the relational half of the persistence sink.
type SampleStore interface {
	// EnsureChannel provisions the channel registry row and per-channel table,
	// idempotently, and returns the table name.
	EnsureChannel(ctx context.Context, channelID, channelName string) (string, error)
	// InsertSample writes one row in its own immediately committed transaction.
	InsertSample(ctx context.Context, table string, row Row) error
}

// FlatLog is the append-only half of the persistence sink.
type FlatLog interface {
	Append(row Row) error
}

// LiveView mirrors the current registry snapshot for external readers.
type LiveView interface {
	Publish(ctx context.Context, channelID string, streams []Stream) error
}

// Notifier is told after each sample has been made durable.
type Notifier interface {
	SamplePersisted(ctx context.Context)
}

// Options wires a Collector. Scanner, Fetcher, Log and Channels are required;
// Store, View and Notifier may be nil to disable relational persistence, the
// live view mirror and the dashboard trigger respectively.
type Options struct {
	Channels []string
	Scanner  Scanner
	Fetcher  MetricsFetcher
	Store    SampleStore
	Log      FlatLog
	View     LiveView
	Notifier Notifier

	DiscoveryInterval time.Duration
	AnalyticsInterval time.Duration
	HistoryCapacity   int
	MissGrace         int
	ScanConcurrency   int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Collector owns all mutable tracker state: the registry, the history
// windows, and the channel-to-table map. Nothing else mutates them; workers
// spawned for discovery and metrics hand their results back over channels and
// the loop goroutine applies them. The status snapshot behind its own mutex
// is the one read-side concession, for the HTTP handlers.
type Collector struct {
	channels    []string
	scanner     Scanner
	fetcher     MetricsFetcher
	store       SampleStore
	log         FlatLog
	view        LiveView
	notifier    Notifier
	discovery   time.Duration
	analytics   time.Duration
	concurrency int
	now         func() time.Time

	registry *Registry
	history  *History
	tables   map[string]string

	mu         sync.RWMutex
	snapshot   []Stream
	lastScan   time.Time
	lastSample time.Time
}

// StatusSnapshot is a read-only copy of the collector's state for /status.
type StatusSnapshot struct {
	Streams    []Stream
	LastScan   time.Time
	LastSample time.Time
}

func New(o Options) *Collector {
	if o.AnalyticsInterval <= 0 {
		o.AnalyticsInterval = 30 * time.Second
	}
	if o.DiscoveryInterval < o.AnalyticsInterval {
		o.DiscoveryInterval = o.AnalyticsInterval
	}
	if o.ScanConcurrency < 1 {
		o.ScanConcurrency = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Collector{
		channels:    o.Channels,
		scanner:     o.Scanner,
		fetcher:     o.Fetcher,
		store:       o.Store,
		log:         o.Log,
		view:        o.View,
		notifier:    o.Notifier,
		discovery:   o.DiscoveryInterval,
		analytics:   o.AnalyticsInterval,
		concurrency: o.ScanConcurrency,
		now:         o.Now,
		registry:    NewRegistry(o.MissGrace),
		history:     NewHistory(o.HistoryCapacity),
		tables:      make(map[string]string),
	}
}

// Run drives the two-cadence loop until ctx is canceled. A single ticker
// fires at the analytics interval; a modulo counter decides which ticks also
// re-scan channels. Cancellation is cooperative and observed only between
// ticks. Any failure inside a tick is logged and followed by a fixed pause;
// nothing in the loop body is fatal.
func (c *Collector) Run(ctx context.Context) {
	ratio := int(c.discovery / c.analytics)
	if ratio < 1 {
		ratio = 1
	}
	slog.Info("tracker loop starting",
		slog.Int("channels", len(c.channels)),
		slog.Duration("discovery_interval", c.discovery),
		slog.Duration("analytics_interval", c.analytics))

	ticker := time.NewTicker(c.analytics)
	defer ticker.Stop()

	counter := 0
	for {
		if err := c.Tick(ctx, counter == 0); err != nil {
			slog.Error("tick failed, pausing before next tick", slog.Any("err", err), slog.Duration("pause", c.analytics))
			select {
			case <-ctx.Done():
				slog.Info("tracker loop stopped")
				return
			case <-time.After(c.analytics):
			}
		}
		counter = (counter + 1) % ratio

		select {
		case <-ctx.Done():
			slog.Info("tracker loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one loop iteration: discovery when discover is set, then an
// analytics pass over every tracked live stream. Panics from the tick body
// are converted into errors so the loop survives them.
func (c *Collector) Tick(ctx context.Context, discover bool) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tick panic: %v", rec)
		}
	}()

	ctx, span := telemetry.StartSpan(ctx, "tracker", "tick")
	defer span.End()

	if discover {
		c.runDiscovery(ctx)
	}
	c.runAnalytics(ctx)
	c.publishView(ctx)
	c.updateSnapshot()
	return nil
}

// runDiscovery fans one scan task out per channel, collects the results, and
// reconciles the registry against the merged set.
func (c *Collector) runDiscovery(ctx context.Context) {
	type scanResult struct {
		channelID string
		streams   []Stream
	}

	results := make(chan scanResult, len(c.channels))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for _, id := range c.channels {
		wg.Add(1)
		go func(channelID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			streams, err := c.scanner.Scan(ctx, channelID)
			telemetry.ObserveScan(time.Since(start), err)
			if err != nil {
				// A partial set is still usable; the scanner accumulates
				// whatever it confirmed before the failure.
				slog.Warn("channel scan failed", slog.String("channel_id", channelID), slog.Int("partial", len(streams)), slog.Any("err", err))
			}
			results <- scanResult{channelID: channelID, streams: streams}
		}(id)
	}
	wg.Wait()
	close(results)

	var discovered []Stream
	for r := range results {
		discovered = append(discovered, r.streams...)
	}

	for _, ev := range c.registry.Apply(discovered) {
		switch ev.Kind {
		case EventDiscovered:
			slog.Info("new stream detected",
				slog.String("video_id", ev.Stream.VideoID),
				slog.String("channel", ev.Stream.ChannelName),
				slog.String("title", ev.Stream.Title),
				slog.String("status", string(ev.Stream.Status)))
			c.tableFor(ctx, ev.Stream.ChannelID, ev.Stream.ChannelName)
		case EventEnded:
			slog.Info("stream ended",
				slog.String("video_id", ev.Stream.VideoID),
				slog.String("channel", ev.Stream.ChannelName))
			c.history.Drop(ev.Stream.VideoID)
		}
	}
	telemetry.SetTrackedStreams(c.registry.Len())

	c.mu.Lock()
	c.lastScan = c.now().UTC()
	c.mu.Unlock()
}

// runAnalytics fetches metrics for every tracked live stream (one bounded
// task per stream), then applies results and persists samples sequentially in
// the loop goroutine. Upcoming streams keep their zero-filled defaults and
// are never sampled.
func (c *Collector) runAnalytics(ctx context.Context) {
	live := c.registry.Live()
	if len(live) == 0 {
		return
	}

	type fetchResult struct {
		videoID string
		metrics *Metrics
	}

	results := make(chan fetchResult, len(live))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for _, s := range live {
		wg.Add(1)
		go func(videoID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			m, err := c.fetcher.StreamMetrics(ctx, videoID)
			telemetry.ObserveSample(time.Since(start), err)
			if err != nil {
				// Skipped for this tick; no sample is produced.
				slog.Warn("metrics fetch failed", slog.String("video_id", videoID), slog.Any("err", err))
				return
			}
			results <- fetchResult{videoID: videoID, metrics: m}
		}(s.VideoID)
	}
	wg.Wait()
	close(results)

	byID := make(map[string]*Metrics, len(live))
	for r := range results {
		byID[r.videoID] = r.metrics
	}

	for _, s := range live {
		m, ok := byID[s.VideoID]
		if !ok {
			continue
		}
		s.ConcurrentViewers = m.ConcurrentViewers
		s.LikeCount = m.LikeCount
		s.CommentCount = m.CommentCount
		s.ScheduledStart = m.ScheduledStart
		s.ActualStart = m.ActualStart

		collectedAt := c.now().UTC()
		c.history.Append(s.VideoID, Sample{
			CollectedAt:       collectedAt,
			ConcurrentViewers: m.ConcurrentViewers,
			LikeCount:         m.LikeCount,
			CommentCount:      m.CommentCount,
		})
		c.persist(ctx, Row{
			CollectedAt:       collectedAt,
			ChannelID:         s.ChannelID,
			ChannelName:       s.ChannelName,
			VideoID:           s.VideoID,
			VideoTitle:        s.Title,
			ConcurrentViewers: m.ConcurrentViewers,
			LikeCount:         m.LikeCount,
			CommentCount:      m.CommentCount,
			StreamStatus:      s.Status,
			ScheduledStart:    m.ScheduledStart,
			ActualStart:       m.ActualStart,
		})

		c.mu.Lock()
		c.lastSample = collectedAt
		c.mu.Unlock()
	}
}

// persist writes one sample to both sinks. The flat log is written first and
// unconditionally; a relational failure is logged and swallowed, leaving the
// flat log as the surviving copy. The sinks may therefore diverge under
// partial failure; this is the accepted best-effort model, not exactly-once.
func (c *Collector) persist(ctx context.Context, row Row) {
	if err := c.log.Append(row); err != nil {
		telemetry.IncPersistFailure()
		slog.Error("flat log write failed", slog.String("video_id", row.VideoID), slog.Any("err", err))
	}
	if c.store != nil {
		if table := c.tableFor(ctx, row.ChannelID, row.ChannelName); table != "" {
			if err := c.store.InsertSample(ctx, table, row); err != nil {
				telemetry.IncPersistFailure()
				slog.Error("relational write failed, row kept in flat log only",
					slog.String("video_id", row.VideoID), slog.String("table", table), slog.Any("err", err))
			}
		}
	}
	telemetry.IncSamples()

	if c.notifier != nil {
		c.notifier.SamplePersisted(ctx)
	}
}

// tableFor returns the channel's table name, provisioning it on first
// sighting. Provisioning is idempotent in the store, so retrying after an
// earlier failure is safe. Returns "" in log-only mode or while the channel
// remains unprovisioned.
func (c *Collector) tableFor(ctx context.Context, channelID, channelName string) string {
	if c.store == nil {
		return ""
	}
	if table, ok := c.tables[channelID]; ok {
		return table
	}
	table, err := c.store.EnsureChannel(ctx, channelID, channelName)
	if err != nil {
		slog.Error("channel provisioning failed", slog.String("channel_id", channelID), slog.Any("err", err))
		return ""
	}
	slog.Info("channel table ready", slog.String("channel_id", channelID), slog.String("table", table))
	c.tables[channelID] = table
	return table
}

func (c *Collector) publishView(ctx context.Context) {
	if c.view == nil {
		return
	}
	byChannel := make(map[string][]Stream, len(c.channels))
	for _, id := range c.channels {
		byChannel[id] = nil
	}
	for _, s := range c.registry.Snapshot() {
		byChannel[s.ChannelID] = append(byChannel[s.ChannelID], s)
	}
	for id, streams := range byChannel {
		if err := c.view.Publish(ctx, id, streams); err != nil {
			slog.Warn("live view publish failed", slog.String("channel_id", id), slog.Any("err", err))
		}
	}
}

func (c *Collector) updateSnapshot() {
	snap := c.registry.Snapshot()
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
}

// Status returns a copy of the tracked set and loop progress for the HTTP
// handlers. Safe for concurrent use.
func (c *Collector) Status() StatusSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	streams := make([]Stream, len(c.snapshot))
	copy(streams, c.snapshot)
	return StatusSnapshot{Streams: streams, LastScan: c.lastScan, LastSample: c.lastSample}
}

// HistoryPoints exposes one video's chart window, oldest first. Only valid
// from the loop goroutine or tests; the history has a single owner.
func (c *Collector) HistoryPoints(videoID string) []Sample {
	return c.history.Points(videoID)
}
