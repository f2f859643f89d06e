package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/pingwatch/internal/domain"
	"github.com/hamed0406/pingwatch/internal/repo"
)

var _ repo.OutageStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS outages (
  target        TEXT        NOT NULL,
  started_at    TIMESTAMPTZ NOT NULL,
  ended_at      TIMESTAMPTZ NULL,
  duration_secs BIGINT      NULL,
  PRIMARY KEY (target, started_at)
);

CREATE INDEX IF NOT EXISTS idx_outages_target_time ON outages (target, started_at DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// EnsureSchema creates the outages table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Save(ctx context.Context, o domain.Outage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO outages (target, started_at, ended_at, duration_secs)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (target, started_at)
		 DO UPDATE SET ended_at = EXCLUDED.ended_at, duration_secs = EXCLUDED.duration_secs`,
		o.Target, o.StartedAt.UTC(), o.EndedAt, o.DurationSecs,
	)
	if err != nil {
		return fmt.Errorf("upsert outage: %w", err)
	}
	s.log.Debug("outage_saved", zap.String("target", o.Target), zap.Time("started_at", o.StartedAt), zap.Bool("open", o.Open()))
	return nil
}

func (s *Store) List(ctx context.Context, target string, limit int) ([]domain.Outage, error) {
	q := `SELECT started_at, ended_at, duration_secs
	        FROM outages
	       WHERE target = $1
	       ORDER BY started_at DESC`
	args := []any{target}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list outages: %w", err)
	}
	defer rows.Close()

	var out []domain.Outage
	for rows.Next() {
		var (
			startedAt time.Time
			endedAt   *time.Time
			duration  *int64
		)
		if err := rows.Scan(&startedAt, &endedAt, &duration); err != nil {
			return nil, fmt.Errorf("scan outage: %w", err)
		}
		out = append(out, domain.Outage{
			Target:       target,
			StartedAt:    startedAt,
			EndedAt:      endedAt,
			DurationSecs: duration,
		})
	}
	return out, rows.Err()
}
