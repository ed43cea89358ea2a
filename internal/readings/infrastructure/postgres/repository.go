package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	readings "scada-cloud/internal/readings/domain"
)

const defaultReadingsTable = "readings"

// ReadingRepository is a Postgres implementation for raw readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB, opts ...Option) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*ReadingRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert writes a batch of readings. Duplicate (data_point_id, ts) rows are
// ignored so replayed ingest batches stay harmless.
func (r *ReadingRepository) Insert(ctx context.Context, batch []readings.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if len(batch) == 0 {
		return nil
	}

	var (
		placeholders []string
		args         []any
	)
	for i, reading := range batch {
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, reading.DataPointID, reading.DeviceID, reading.TS.UTC(), reading.Value, reading.Quality)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (data_point_id, device_id, ts, value, quality)
VALUES %s
ON CONFLICT (data_point_id, ts) DO NOTHING`, r.table, strings.Join(placeholders, ", "))

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// QueryRange loads readings for a data point within [start, end).
func (r *ReadingRepository) QueryRange(ctx context.Context, dataPointID string, start, end time.Time) ([]readings.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if dataPointID == "" {
		return nil, errors.New("reading repo: empty data point id")
	}

	query := fmt.Sprintf(`
SELECT data_point_id, device_id, ts, value, quality
FROM %s
WHERE data_point_id = $1 AND ts >= $2 AND ts < $3
ORDER BY ts ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, dataPointID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.Reading
	for rows.Next() {
		var reading readings.Reading
		if err := rows.Scan(
			&reading.DataPointID,
			&reading.DeviceID,
			&reading.TS,
			&reading.Value,
			&reading.Quality,
		); err != nil {
			return nil, err
		}
		reading.TS = reading.TS.UTC()
		result = append(result, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
