package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/puntwatch/puntwatch/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; satisfied by both
// *pgxpool.Pool and the pgxmock pool used in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS notifications (
	id             TEXT PRIMARY KEY,
	game_id        TEXT NOT NULL,
	drive_id       TEXT NOT NULL,
	status_id      TEXT NOT NULL,
	boost_id       TEXT,
	score          DOUBLE PRECISION NOT NULL,
	current_pct    DOUBLE PRECISION NOT NULL,
	historical_pct DOUBLE PRECISION NOT NULL,
	status         TEXT NOT NULL DEFAULT 'posted',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (game_id, drive_id)
);

CREATE INDEX IF NOT EXISTS idx_notifications_game_id ON notifications(game_id);
CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status);
CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateNotification(ctx context.Context, rec *model.NotificationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = model.NotificationPosted
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, game_id, drive_id, status_id, boost_id, score, current_pct, historical_pct, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.GameID, rec.DriveID, rec.StatusID, rec.BoostID,
		rec.Score, rec.CurrentPercentile, rec.HistoricalPercentile,
		string(rec.Status), now, now,
	)
	return eris.Wrapf(err, "postgres: insert notification %s/%s", rec.GameID, rec.DriveID)
}

func (s *PostgresStore) UpdateNotificationStatus(ctx context.Context, id string, status model.NotificationStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update notification status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("notification not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetBoostID(ctx context.Context, id, boostID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET boost_id = $1, updated_at = $2 WHERE id = $3`,
		boostID, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set boost id %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("notification not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) GetNotification(ctx context.Context, id string) (*model.NotificationRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, game_id, drive_id, status_id, coalesce(boost_id, ''), score, current_pct, historical_pct, status, created_at, updated_at
		 FROM notifications WHERE id = $1`,
		id,
	)

	var r model.NotificationRecord
	var status string
	err := row.Scan(&r.ID, &r.GameID, &r.DriveID, &r.StatusID, &r.BoostID,
		&r.Score, &r.CurrentPercentile, &r.HistoricalPercentile,
		&status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get notification %s: not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get notification %s", id)
	}
	r.Status = model.NotificationStatus(status)
	return &r, nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, filter Filter) ([]model.NotificationRecord, error) {
	query := `SELECT id, game_id, drive_id, status_id, coalesce(boost_id, ''), score, current_pct, historical_pct, status, created_at, updated_at
	          FROM notifications WHERE 1=1`
	var args []any

	if filter.GameID != "" {
		args = append(args, filter.GameID)
		query += ` AND game_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter.UTC())
		query += ` AND created_at > $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list notifications")
	}
	defer rows.Close()

	var recs []model.NotificationRecord
	for rows.Next() {
		var r model.NotificationRecord
		var status string
		if err := rows.Scan(&r.ID, &r.GameID, &r.DriveID, &r.StatusID, &r.BoostID,
			&r.Score, &r.CurrentPercentile, &r.HistoricalPercentile,
			&status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan notification")
		}
		r.Status = model.NotificationStatus(status)
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list notifications iterate")
}
