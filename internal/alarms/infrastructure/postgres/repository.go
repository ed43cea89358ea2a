package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	alarms "scada-cloud/internal/alarms/domain"
)

const defaultAlarmsTable = "alarms"

// AlarmRepository is a Postgres implementation for alarms.
type AlarmRepository struct {
	db    *sql.DB
	table string
}

// NewAlarmRepository constructs a repository.
func NewAlarmRepository(db *sql.DB, opts ...Option) *AlarmRepository {
	repo := &AlarmRepository{db: db, table: defaultAlarmsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*AlarmRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *AlarmRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const alarmColumns = `id, rule_id, device_id, data_point_id, station_id, severity, status, value,
	triggered_at, acknowledged_by, acknowledged_at, cleared_at, notes, created_at, updated_at`

// GetByID fetches an alarm by id.
func (r *AlarmRepository) GetByID(ctx context.Context, id string) (*alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	if id == "" {
		return nil, errors.New("alarm repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
LIMIT 1`, alarmColumns, r.table)

	alarm, err := scanAlarm(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alarm, nil
}

// Create inserts a new alarm.
func (r *AlarmRepository) Create(ctx context.Context, alarm *alarms.Alarm) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	if alarm == nil {
		return errors.New("alarm repo: nil alarm")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, rule_id, device_id, data_point_id, station_id, severity, status, value,
	triggered_at, notes, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		alarm.ID, alarm.RuleID, alarm.DeviceID, alarm.DataPointID, alarm.StationID,
		alarm.Severity, alarm.Status, alarm.Value,
		alarm.TriggeredAt.UTC(), alarm.Notes, alarm.CreatedAt.UTC(), alarm.UpdatedAt.UTC())
	return err
}

// MarkAcknowledged records an acknowledgement.
func (r *AlarmRepository) MarkAcknowledged(ctx context.Context, id, userID, notes string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, acknowledged_by = $2, acknowledged_at = $3, notes = $4, updated_at = $3
WHERE id = $5`, r.table)
	_, err := r.db.ExecContext(ctx, query, alarms.StatusAcknowledged, userID, at.UTC(), notes, id)
	return err
}

// MarkCleared records the terminal transition.
func (r *AlarmRepository) MarkCleared(ctx context.Context, id, notes string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, cleared_at = $2, notes = $3, updated_at = $2
WHERE id = $4`, r.table)
	_, err := r.db.ExecContext(ctx, query, alarms.StatusCleared, at.UTC(), notes, id)
	return err
}

// ListByStationStatusAndTime lists alarms for a station, optionally filtered
// by status, triggered within [from, to).
func (r *AlarmRepository) ListByStationStatusAndTime(ctx context.Context, stationID, status string, from, to time.Time) ([]alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	if stationID == "" {
		return nil, errors.New("alarm repo: empty station id")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE station_id = $1 AND triggered_at >= $2 AND triggered_at < $3
	AND ($4 = '' OR status = $4)
ORDER BY triggered_at DESC`, alarmColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, stationID, from.UTC(), to.UTC(), status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []alarms.Alarm
	for rows.Next() {
		alarm, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row rowScanner) (*alarms.Alarm, error) {
	var (
		alarm          alarms.Alarm
		acknowledgedBy sql.NullString
		acknowledgedAt sql.NullTime
		clearedAt      sql.NullTime
	)
	if err := row.Scan(
		&alarm.ID,
		&alarm.RuleID,
		&alarm.DeviceID,
		&alarm.DataPointID,
		&alarm.StationID,
		&alarm.Severity,
		&alarm.Status,
		&alarm.Value,
		&alarm.TriggeredAt,
		&acknowledgedBy,
		&acknowledgedAt,
		&clearedAt,
		&alarm.Notes,
		&alarm.CreatedAt,
		&alarm.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if acknowledgedBy.Valid {
		alarm.AcknowledgedBy = acknowledgedBy.String
	}
	if acknowledgedAt.Valid {
		alarm.AcknowledgedAt = acknowledgedAt.Time.UTC()
	}
	if clearedAt.Valid {
		alarm.ClearedAt = clearedAt.Time.UTC()
	}
	alarm.TriggeredAt = alarm.TriggeredAt.UTC()
	alarm.CreatedAt = alarm.CreatedAt.UTC()
	alarm.UpdatedAt = alarm.UpdatedAt.UTC()
	return &alarm, nil
}
