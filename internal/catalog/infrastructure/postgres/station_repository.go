package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	catalog "scada-cloud/internal/catalog/domain"
)

const defaultStationsTable = "stations"

// StationRepository is a Postgres implementation for stations.
type StationRepository struct {
	db    DBTX
	table string
}

// NewStationRepository constructs a repository.
func NewStationRepository(db DBTX, opts ...StationOption) *StationRepository {
	repo := &StationRepository{db: db, table: defaultStationsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// StationOption configures the repository.
type StationOption func(*StationRepository)

// WithStationTable overrides the default table name.
func WithStationTable(table string) StationOption {
	return func(repo *StationRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a station by id.
func (r *StationRepository) Get(ctx context.Context, id string) (*catalog.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	if id == "" {
		return nil, errors.New("station repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, code, name, region, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var station catalog.Station
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&station.ID,
		&station.Code,
		&station.Name,
		&station.Region,
		&station.CreatedAt,
		&station.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	station.CreatedAt = station.CreatedAt.UTC()
	station.UpdatedAt = station.UpdatedAt.UTC()
	return &station, nil
}

// Save upserts a station.
func (r *StationRepository) Save(ctx context.Context, station *catalog.Station) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if station == nil {
		return errors.New("station repo: nil station")
	}
	if err := station.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (id, code, name, region, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (id)
DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, region = EXCLUDED.region, updated_at = EXCLUDED.updated_at`, r.table)

	_, err := r.db.ExecContext(ctx, query, station.ID, station.Code, station.Name, station.Region, now)
	return err
}
