package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	catalog "scada-cloud/internal/catalog/domain"
)

const defaultDataPointsTable = "data_points"

// DataPointRepository is a Postgres implementation for data points.
type DataPointRepository struct {
	db    DBTX
	table string
}

// NewDataPointRepository constructs a repository.
func NewDataPointRepository(db DBTX, opts ...DataPointOption) *DataPointRepository {
	repo := &DataPointRepository{db: db, table: defaultDataPointsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DataPointOption configures the repository.
type DataPointOption func(*DataPointRepository)

// WithDataPointTable overrides the default table name.
func WithDataPointTable(table string) DataPointOption {
	return func(repo *DataPointRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a data point by id.
func (r *DataPointRepository) Get(ctx context.Context, id string) (*catalog.DataPoint, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("datapoint repo: nil db")
	}
	if id == "" {
		return nil, errors.New("datapoint repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, code, name, device_id, station_id, unit, enabled, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var point catalog.DataPoint
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&point.ID,
		&point.Code,
		&point.Name,
		&point.DeviceID,
		&point.StationID,
		&point.Unit,
		&point.Enabled,
		&point.CreatedAt,
		&point.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	point.CreatedAt = point.CreatedAt.UTC()
	point.UpdatedAt = point.UpdatedAt.UTC()
	return &point, nil
}

// ListEnabledByDevice loads enabled data points for a device.
func (r *DataPointRepository) ListEnabledByDevice(ctx context.Context, deviceID string) ([]catalog.DataPoint, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("datapoint repo: nil db")
	}
	if deviceID == "" {
		return nil, errors.New("datapoint repo: empty device id")
	}

	query := fmt.Sprintf(`
SELECT id, code, name, device_id, station_id, unit, enabled, created_at, updated_at
FROM %s
WHERE device_id = $1 AND enabled = TRUE
ORDER BY id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.DataPoint
	for rows.Next() {
		var point catalog.DataPoint
		if err := rows.Scan(
			&point.ID,
			&point.Code,
			&point.Name,
			&point.DeviceID,
			&point.StationID,
			&point.Unit,
			&point.Enabled,
			&point.CreatedAt,
			&point.UpdatedAt,
		); err != nil {
			return nil, err
		}
		point.CreatedAt = point.CreatedAt.UTC()
		point.UpdatedAt = point.UpdatedAt.UTC()
		result = append(result, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Save upserts a data point.
func (r *DataPointRepository) Save(ctx context.Context, point *catalog.DataPoint) error {
	if r == nil || r.db == nil {
		return errors.New("datapoint repo: nil db")
	}
	if point == nil {
		return errors.New("datapoint repo: nil point")
	}
	if err := point.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (id, code, name, device_id, station_id, unit, enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (id)
DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, device_id = EXCLUDED.device_id,
	station_id = EXCLUDED.station_id, unit = EXCLUDED.unit, enabled = EXCLUDED.enabled,
	updated_at = EXCLUDED.updated_at`, r.table)

	_, err := r.db.ExecContext(ctx, query, point.ID, point.Code, point.Name, point.DeviceID, point.StationID, point.Unit, point.Enabled, now)
	return err
}
