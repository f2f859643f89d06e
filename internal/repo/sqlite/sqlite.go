package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hamed0406/pingwatch/internal/domain"
	"github.com/hamed0406/pingwatch/internal/repo"
)

var _ repo.OutageStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS outages (
  target        TEXT    NOT NULL,
  started_at    TEXT    NOT NULL,
  ended_at      TEXT,
  duration_secs INTEGER,
  PRIMARY KEY (target, started_at)
);
CREATE INDEX IF NOT EXISTS idx_outages_target_time ON outages(target, started_at);
`

// Store keeps outages in a local SQLite file. Timestamps are stored as
// fixed-width UTC text so that lexical order matches time order.
type Store struct {
	db *sql.DB
}

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY between the tick loop and API reads
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Save(ctx context.Context, o domain.Outage) error {
	var ended, dur any
	if o.EndedAt != nil {
		ended = o.EndedAt.UTC().Format(timeLayout)
	}
	if o.DurationSecs != nil {
		dur = *o.DurationSecs
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO outages (target, started_at, ended_at, duration_secs)
VALUES (?, ?, ?, ?)
ON CONFLICT(target, started_at) DO UPDATE SET
  ended_at = excluded.ended_at,
  duration_secs = excluded.duration_secs`,
		o.Target, o.StartedAt.UTC().Format(timeLayout), ended, dur)
	if err != nil {
		return fmt.Errorf("upsert outage: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, target string, limit int) ([]domain.Outage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT started_at, ended_at, duration_secs
  FROM outages
 WHERE target = ?
 ORDER BY started_at DESC
 LIMIT ?`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("list outages: %w", err)
	}
	defer rows.Close()

	var out []domain.Outage
	for rows.Next() {
		var (
			started string
			ended   sql.NullString
			dur     sql.NullInt64
		)
		if err := rows.Scan(&started, &ended, &dur); err != nil {
			return nil, fmt.Errorf("scan outage: %w", err)
		}
		o := domain.Outage{Target: target}
		if o.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if ended.Valid {
			t, err := time.Parse(timeLayout, ended.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			o.EndedAt = &t
		}
		if dur.Valid {
			d := dur.Int64
			o.DurationSecs = &d
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
