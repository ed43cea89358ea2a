package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	analytics "scada-cloud/internal/analytics/domain"
)

const (
	defaultHourlyTable = "hourly_buckets"
	defaultDailyTable  = "daily_buckets"
)

// BucketRepository is a Postgres implementation for aggregate buckets.
// Uniqueness on (data_point_id, bucket_start) in both tables is required
// for upsert correctness.
type BucketRepository struct {
	db          *sql.DB
	hourlyTable string
	dailyTable  string
}

// NewBucketRepository constructs a repository.
func NewBucketRepository(db *sql.DB, opts ...Option) *BucketRepository {
	repo := &BucketRepository{
		db:          db,
		hourlyTable: defaultHourlyTable,
		dailyTable:  defaultDailyTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*BucketRepository)

// WithHourlyTable overrides the hourly table name.
func WithHourlyTable(table string) Option {
	return func(repo *BucketRepository) {
		if table != "" {
			repo.hourlyTable = table
		}
	}
}

// WithDailyTable overrides the daily table name.
func WithDailyTable(table string) Option {
	return func(repo *BucketRepository) {
		if table != "" {
			repo.dailyTable = table
		}
	}
}

func (r *BucketRepository) tableFor(granularity analytics.Granularity) (string, error) {
	switch granularity {
	case analytics.GranularityHourly:
		return r.hourlyTable, nil
	case analytics.GranularityDaily:
		return r.dailyTable, nil
	default:
		return "", analytics.ErrInvalidGranularity
	}
}

// Upsert writes the bucket for its window. The xmax trick reports whether
// the row was inserted rather than updated.
func (r *BucketRepository) Upsert(ctx context.Context, granularity analytics.Granularity, bucket *analytics.Bucket) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("bucket repo: nil db")
	}
	if bucket == nil {
		return false, errors.New("bucket repo: nil bucket")
	}
	table, err := r.tableFor(granularity)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	device_id, data_point_id, bucket_start,
	min_value, max_value, avg_value, sum_value, sample_count, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)
ON CONFLICT (data_point_id, bucket_start)
DO UPDATE SET
	device_id = EXCLUDED.device_id,
	min_value = EXCLUDED.min_value,
	max_value = EXCLUDED.max_value,
	avg_value = EXCLUDED.avg_value,
	sum_value = EXCLUDED.sum_value,
	sample_count = EXCLUDED.sample_count,
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)`, table)

	var created bool
	if err := r.db.QueryRowContext(ctx, query,
		bucket.DeviceID,
		bucket.DataPointID,
		bucket.BucketStart.UTC(),
		bucket.Min,
		bucket.Max,
		bucket.Avg,
		bucket.Sum,
		bucket.Count,
		time.Now().UTC(),
	).Scan(&created); err != nil {
		return false, err
	}
	return created, nil
}

// FindByPointAndStart loads a bucket by its unique key.
func (r *BucketRepository) FindByPointAndStart(ctx context.Context, granularity analytics.Granularity, dataPointID string, bucketStart time.Time) (*analytics.Bucket, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("bucket repo: nil db")
	}
	table, err := r.tableFor(granularity)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT device_id, data_point_id, bucket_start, min_value, max_value, avg_value, sum_value, sample_count, updated_at
FROM %s
WHERE data_point_id = $1 AND bucket_start = $2
LIMIT 1`, table)

	bucket, err := scanBucket(r.db.QueryRowContext(ctx, query, dataPointID, bucketStart.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// List returns buckets matching the filter plus the unpaginated total.
func (r *BucketRepository) List(ctx context.Context, granularity analytics.Granularity, filter analytics.BucketFilter) ([]analytics.Bucket, int, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("bucket repo: nil db")
	}
	table, err := r.tableFor(granularity)
	if err != nil {
		return nil, 0, err
	}

	var (
		conditions []string
		args       []any
	)
	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.DeviceID != "" {
		addCondition("device_id = $%d", filter.DeviceID)
	}
	if filter.DataPointID != "" {
		addCondition("data_point_id = $%d", filter.DataPointID)
	}
	if !filter.Start.IsZero() {
		addCondition("bucket_start >= $%d", filter.Start.UTC())
	}
	if !filter.End.IsZero() {
		addCondition("bucket_start < $%d", filter.End.UTC())
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}
	listArgs := append(append([]any(nil), args...), limit, (page-1)*limit)

	listQuery := fmt.Sprintf(`
SELECT device_id, data_point_id, bucket_start, min_value, max_value, avg_value, sum_value, sample_count, updated_at
FROM %s %s
ORDER BY bucket_start ASC, data_point_id ASC
LIMIT $%d OFFSET $%d`, table, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []analytics.Bucket
	for rows.Next() {
		bucket, err := scanBucket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBucket(row rowScanner) (*analytics.Bucket, error) {
	var bucket analytics.Bucket
	if err := row.Scan(
		&bucket.DeviceID,
		&bucket.DataPointID,
		&bucket.BucketStart,
		&bucket.Min,
		&bucket.Max,
		&bucket.Avg,
		&bucket.Sum,
		&bucket.Count,
		&bucket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	bucket.BucketStart = bucket.BucketStart.UTC()
	bucket.UpdatedAt = bucket.UpdatedAt.UTC()
	return &bucket, nil
}
