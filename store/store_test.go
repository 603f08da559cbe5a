package store

import "testing"

func TestTableName(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    string
	}{
		{"simple", "gamer", "stream_gamer"},
		{"mixed case", "GamerOne", "stream_gamerone"},
		{"spaces", "Cool Streams TV", "stream_cool_streams_tv"},
		{"punctuation runs", "A -- B!!", "stream_a_b"},
		{"unicode", "日本語チャンネル", "stream_channel"},
		{"leading trailing junk", "--Live--", "stream_live"},
		{"digits kept", "channel42", "stream_channel42"},
		{"empty", "", "stream_channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TableName(tt.channel); got != tt.want {
				t.Errorf("TableName(%q) = %q, want %q", tt.channel, got, tt.want)
			}
		})
	}
}
