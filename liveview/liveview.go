// Package liveview mirrors the in-memory registry into Redis so dashboards
// and other processes can read the current live/upcoming set without talking
// to the tracker.
package liveview

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streampulse/tracker/tracker"
)

// viewTTL keeps stale hashes from outliving a dead tracker. Upcoming streams
// can be days away, so the window is generous; each publish refreshes it.
const viewTTL = 7 * 24 * time.Hour

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func KeyForChannel(channelID string) string {
	// Use {...} so Redis Cluster users get stable hash slotting per channel key.
	return fmt.Sprintf("streampulse:live:{%s}", channelID)
}

// Publish replaces the channel's hash with the given streams: present video
// ids are upserted, absent ones deleted, so the hash is always a clean
// current view. An empty slice clears the channel.
func (s *Store) Publish(ctx context.Context, channelID string, streams []tracker.Stream) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("nil redis client")
	}

	key := KeyForChannel(channelID)

	existing, err := s.client.HKeys(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis HKEYS %s: %w", key, err)
	}

	pipe := s.client.Pipeline()

	keep := make(map[string]struct{}, len(streams))
	for _, st := range streams {
		keep[st.VideoID] = struct{}{}
		b, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal stream %s: %w", st.VideoID, err)
		}
		pipe.HSet(ctx, key, st.VideoID, string(b))
	}

	var toDelete []string
	for _, field := range existing {
		if _, ok := keep[field]; !ok {
			toDelete = append(toDelete, field)
		}
	}
	if len(toDelete) > 0 {
		pipe.HDel(ctx, key, toDelete...)
	}

	pipe.Expire(ctx, key, viewTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline exec %s: %w", key, err)
	}
	return nil
}
