package liveview

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/streampulse/tracker/tracker"
)

func TestKeyForChannel(t *testing.T) {
	got := KeyForChannel("UC111")
	want := "streampulse:live:{UC111}"
	if got != want {
		t.Errorf("KeyForChannel() = %q, want %q", got, want)
	}
}

func TestPublishNilClient(t *testing.T) {
	var s *Store
	if err := s.Publish(context.Background(), "UC111", nil); err == nil {
		t.Error("expected error from nil store")
	}
	if err := New(nil).Publish(context.Background(), "UC111", nil); err == nil {
		t.Error("expected error from nil client")
	}
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse TEST_REDIS_URL: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishReplacesView(t *testing.T) {
	client := setupTestRedis(t)
	s := New(client)
	ctx := context.Background()

	channelID := "UC-test-liveview"
	key := KeyForChannel(channelID)
	t.Cleanup(func() { client.Del(ctx, key) })

	first := []tracker.Stream{
		{VideoID: "v1", ChannelID: channelID, Status: tracker.StatusLive, ConcurrentViewers: 10},
		{VideoID: "v2", ChannelID: channelID, Status: tracker.StatusUpcoming},
	}
	if err := s.Publish(ctx, channelID, first); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	fields, err := client.HKeys(ctx, key).Result()
	if err != nil {
		t.Fatalf("HKEYS: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("fields = %v, want v1 and v2", fields)
	}

	// v2 disappears from the next snapshot and must be removed.
	second := []tracker.Stream{
		{VideoID: "v1", ChannelID: channelID, Status: tracker.StatusLive, ConcurrentViewers: 25},
	}
	if err := s.Publish(ctx, channelID, second); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	raw, err := client.HGet(ctx, key, "v1").Result()
	if err != nil {
		t.Fatalf("HGET v1: %v", err)
	}
	var got tracker.Stream
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ConcurrentViewers != 25 {
		t.Errorf("viewers = %d, want 25 after update", got.ConcurrentViewers)
	}
	if _, err := client.HGet(ctx, key, "v2").Result(); err != redis.Nil {
		t.Errorf("v2 still present, want removed")
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 {
		t.Errorf("TTL = %v, want positive", ttl)
	}

	// An empty snapshot clears the remaining stream.
	if err := s.Publish(ctx, channelID, nil); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if n, err := client.HLen(ctx, key).Result(); err != nil || n != 0 {
		t.Errorf("HLEN = %d (err %v), want 0 after empty publish", n, err)
	}
}
