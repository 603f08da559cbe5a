// Package store provides database connection helpers, schema migration, and
// the per-channel sample table provisioning and insert path.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/streampulse/tracker/tracker"
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Store persists samples into a shared channel registry plus one table per
// channel. All DDL is idempotent, so provisioning can be re-run at any time.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies idempotent schema changes for the channel registry. The
// per-channel sample tables are created on demand by EnsureChannel.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			channel_id TEXT PRIMARY KEY,
			channel_name TEXT,
			table_name TEXT,
			added_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_channels_table_name ON channels(table_name)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

var nonIdentifier = regexp.MustCompile(`[^a-z0-9]+`)

// TableName derives the per-channel table name from the display name: lower
// case, runs of anything outside [a-z0-9] collapsed to a single underscore,
// prefixed with "stream_". The result contains only identifier-safe
// characters, which is what allows it to be interpolated into DDL below.
func TableName(channelName string) string {
	s := strings.ToLower(channelName)
	s = nonIdentifier.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "channel"
	}
	return "stream_" + s
}

// EnsureChannel registers the channel and creates its sample table and
// indexes if they do not exist yet, returning the table name. Re-registering
// an existing channel only refreshes its display name; the original table
// name is kept so rows keep landing in the same table even if the channel is
// renamed upstream.
func (s *Store) EnsureChannel(ctx context.Context, channelID, channelName string) (string, error) {
	table := TableName(channelName)

	var existing string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO channels(channel_id, channel_name, table_name, added_at)
		 VALUES($1,$2,$3,NOW())
		 ON CONFLICT(channel_id) DO UPDATE SET channel_name=EXCLUDED.channel_name
		 RETURNING table_name`,
		channelID, channelName, table).Scan(&existing)
	if err != nil {
		return "", fmt.Errorf("upsert channel %s: %w", channelID, err)
	}
	if existing != "" {
		table = existing
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			collected_at TIMESTAMPTZ NOT NULL,
			channel_id TEXT NOT NULL,
			channel_name TEXT,
			video_id TEXT NOT NULL,
			video_title TEXT,
			concurrent_viewers BIGINT DEFAULT 0,
			like_count BIGINT DEFAULT 0,
			comment_count BIGINT DEFAULT 0,
			stream_status TEXT,
			scheduled_start TIMESTAMPTZ,
			actual_start TIMESTAMPTZ
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_video_id ON %s(video_id)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_collected_at ON %s(collected_at)`, table, table),
	}
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("provision %s step %d: %w", table, i, err)
		}
	}
	return table, nil
}

// InsertSample writes one sample row in its own transaction, committed
// immediately so every row is durable on its own.
func (s *Store) InsertSample(ctx context.Context, table string, row tracker.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`INSERT INTO %s (
		collected_at, channel_id, channel_name, video_id, video_title,
		concurrent_viewers, like_count, comment_count, stream_status,
		scheduled_start, actual_start
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, table)

	if _, err := tx.ExecContext(ctx, q,
		row.CollectedAt,
		row.ChannelID,
		row.ChannelName,
		row.VideoID,
		row.VideoTitle,
		row.ConcurrentViewers,
		row.LikeCount,
		row.CommentCount,
		string(row.StreamStatus),
		nullableTime(row.ScheduledStart),
		nullableTime(row.ActualStart),
	); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// nullableTime maps the zero time to SQL NULL so unset start times do not
// show up as 0001-01-01.
func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
