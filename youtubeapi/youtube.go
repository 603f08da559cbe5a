// Package youtubeapi wraps the YouTube Data API v3 for stream discovery and
// metric sampling. Authentication is API-key only; no OAuth flow is needed for
// the read-only endpoints used here.
package youtubeapi

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/streampulse/tracker/tracker"
)

// activityPageSize bounds how many recent activities are inspected per scan.
// Ten is enough to cover simultaneous broadcasts on a single channel without
// paging.
const activityPageSize = 10

// Client is a thin stateless wrapper around the generated YouTube service.
type Client struct {
	svc *yt.Service
}

// New builds a client authenticated with the given API key. Extra options are
// appended after the key so tests can point the client at a mock endpoint.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Scan lists the channel's recent upload activities and confirms each
// candidate video's broadcast state, returning those currently live or
// upcoming. On upstream failure the streams confirmed so far are returned
// together with the error; a partial set is still usable.
func (c *Client) Scan(ctx context.Context, channelID string) ([]tracker.Stream, error) {
	resp, err := c.svc.Activities.List([]string{"snippet", "contentDetails"}).
		ChannelId(channelID).
		MaxResults(activityPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("activities list for %s: %w", channelID, err)
	}

	var candidates []string
	seen := make(map[string]bool)
	for _, item := range resp.Items {
		if item.ContentDetails == nil || item.ContentDetails.Upload == nil {
			continue
		}
		id := item.ContentDetails.Upload.VideoId
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	var streams []tracker.Stream
	for _, videoID := range candidates {
		video, err := c.lookupVideo(ctx, videoID)
		if err != nil {
			return streams, fmt.Errorf("confirm video %s: %w", videoID, err)
		}
		if video == nil || video.Snippet == nil {
			continue
		}
		status, ok := broadcastStatus(video.Snippet.LiveBroadcastContent)
		if !ok {
			continue
		}
		s := tracker.Stream{
			VideoID:     videoID,
			ChannelID:   channelID,
			ChannelName: video.Snippet.ChannelTitle,
			Title:       video.Snippet.Title,
			Status:      status,
		}
		if d := video.LiveStreamingDetails; d != nil {
			s.ConcurrentViewers = int64(d.ConcurrentViewers)
			s.ScheduledStart = parseTimestamp(d.ScheduledStartTime)
			s.ActualStart = parseTimestamp(d.ActualStartTime)
		}
		streams = append(streams, s)
	}
	return streams, nil
}

// StreamMetrics fetches the current engagement counts for one video. Counts
// the API omits (likes hidden, viewers not yet reported) come back as zero.
func (c *Client) StreamMetrics(ctx context.Context, videoID string) (*tracker.Metrics, error) {
	video, err := c.lookupVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("video metrics for %s: %w", videoID, err)
	}
	if video == nil {
		return nil, fmt.Errorf("video metrics for %s: not found", videoID)
	}

	m := &tracker.Metrics{}
	if d := video.LiveStreamingDetails; d != nil {
		m.ConcurrentViewers = int64(d.ConcurrentViewers)
		m.ScheduledStart = parseTimestamp(d.ScheduledStartTime)
		m.ActualStart = parseTimestamp(d.ActualStartTime)
	}
	if st := video.Statistics; st != nil {
		m.LikeCount = int64(st.LikeCount)
		m.CommentCount = int64(st.CommentCount)
	}
	return m, nil
}

func (c *Client) lookupVideo(ctx context.Context, videoID string) (*yt.Video, error) {
	resp, err := c.svc.Videos.List([]string{"snippet", "liveStreamingDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return resp.Items[0], nil
}

func broadcastStatus(liveBroadcastContent string) (tracker.Status, bool) {
	switch liveBroadcastContent {
	case "live":
		return tracker.StatusLive, true
	case "upcoming":
		return tracker.StatusUpcoming, true
	}
	return "", false
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
