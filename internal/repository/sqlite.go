package repository

import (
	"context"
	"database/sql"
	"fmt"

	"machine-metrics/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore archives sampled ticks. The daemon only writes to it; reads
// serve the offline archive command.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{dbPath: path}
}

func (s *SQLiteStore) Init() error {
	var err error

	s.db, err = sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	if err = s.db.Ping(); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS samples (
		metric TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		value REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS samples_metric_timestamp ON samples(metric, timestamp);`

	_, err = s.db.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}

	return nil
}

// StoreSamples writes one tick's samples in a single transaction.
func (s *SQLiteStore) StoreSamples(ctx context.Context, samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO samples(metric, timestamp, value) VALUES(?, ?, ?)")
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		_, err = stmt.ExecContext(ctx, sample.Key.String(), int64(sample.Point.Timestamp), sample.Point.Value)
		if err != nil {
			return fmt.Errorf("error inserting sample %s: %w", sample.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing samples: %w", err)
	}
	return nil
}

// GetSamples returns the newest limit samples of key, oldest first. A
// non-positive limit returns everything.
func (s *SQLiteStore) GetSamples(ctx context.Context, key domain.MetricKey, limit int) ([]domain.Sample, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `SELECT timestamp, value FROM (
		SELECT rowid, timestamp, value FROM samples WHERE metric = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?
	) ORDER BY timestamp ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, key.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	var fetched []domain.Sample

	for rows.Next() {
		var ts int64
		sample := domain.Sample{Key: key}

		if err := rows.Scan(&ts, &sample.Point.Value); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		sample.Point.Timestamp = uint64(ts)
		fetched = append(fetched, sample)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return fetched, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
