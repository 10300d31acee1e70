package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/puntwatch/puntwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS notifications (
	id             TEXT PRIMARY KEY,
	game_id        TEXT NOT NULL,
	drive_id       TEXT NOT NULL,
	status_id      TEXT NOT NULL,
	boost_id       TEXT,
	score          REAL NOT NULL,
	current_pct    REAL NOT NULL,
	historical_pct REAL NOT NULL,
	status         TEXT NOT NULL DEFAULT 'posted',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (game_id, drive_id)
);

CREATE INDEX IF NOT EXISTS idx_notifications_game_id ON notifications(game_id);
CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status);
CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateNotification(ctx context.Context, rec *model.NotificationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = model.NotificationPosted
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, game_id, drive_id, status_id, boost_id, score, current_pct, historical_pct, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.GameID, rec.DriveID, rec.StatusID, nullable(rec.BoostID),
		rec.Score, rec.CurrentPercentile, rec.HistoricalPercentile,
		string(rec.Status), now, now,
	)
	return eris.Wrapf(err, "sqlite: insert notification %s/%s", rec.GameID, rec.DriveID)
}

func (s *SQLiteStore) UpdateNotificationStatus(ctx context.Context, id string, status model.NotificationStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update notification status %s", id)
	}
	return checkRowsAffected(res, "notification", id)
}

func (s *SQLiteStore) SetBoostID(ctx context.Context, id, boostID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET boost_id = ?, updated_at = ? WHERE id = ?`,
		boostID, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set boost id %s", id)
	}
	return checkRowsAffected(res, "notification", id)
}

func (s *SQLiteStore) GetNotification(ctx context.Context, id string) (*model.NotificationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, drive_id, status_id, boost_id, score, current_pct, historical_pct, status, created_at, updated_at
		 FROM notifications WHERE id = ?`,
		id,
	)
	return scanNotification(row)
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, filter Filter) ([]model.NotificationRecord, error) {
	query := `SELECT id, game_id, drive_id, status_id, boost_id, score, current_pct, historical_pct, status, created_at, updated_at
	          FROM notifications WHERE 1=1`
	var args []any

	if filter.GameID != "" {
		query += ` AND game_id = ?`
		args = append(args, filter.GameID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list notifications")
	}
	defer rows.Close()

	var recs []model.NotificationRecord
	for rows.Next() {
		r, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list notifications iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotification(row scannable) (*model.NotificationRecord, error) {
	var r model.NotificationRecord
	var boostID sql.NullString
	var status string

	err := row.Scan(&r.ID, &r.GameID, &r.DriveID, &r.StatusID, &boostID,
		&r.Score, &r.CurrentPercentile, &r.HistoricalPercentile,
		&status, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("notification not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan notification")
	}

	r.BoostID = boostID.String
	r.Status = model.NotificationStatus(status)
	return &r, nil
}
