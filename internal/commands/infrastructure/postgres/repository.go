package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	commands "scada-cloud/internal/commands/domain"
)

const defaultCommandsTable = "device_commands"

// CommandRepository is a Postgres implementation for commands.
type CommandRepository struct {
	db    *sql.DB
	table string
}

// NewCommandRepository constructs a repository.
func NewCommandRepository(db *sql.DB, opts ...Option) *CommandRepository {
	repo := &CommandRepository{db: db, table: defaultCommandsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*CommandRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *CommandRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const commandColumns = `id, command_no, station_id, device_id, command_type, payload, status,
	requested_by, approved_by, response, requested_at, approved_at, executed_at`

// GetByID fetches a command by id.
func (r *CommandRepository) GetByID(ctx context.Context, id string) (*commands.Command, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("command repo: nil db")
	}
	if id == "" {
		return nil, errors.New("command repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
LIMIT 1`, commandColumns, r.table)

	cmd, err := scanCommand(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// Create inserts a new pending command.
func (r *CommandRepository) Create(ctx context.Context, cmd *commands.Command) error {
	if r == nil || r.db == nil {
		return errors.New("command repo: nil db")
	}
	if cmd == nil {
		return errors.New("command repo: nil command")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id, command_no, station_id, device_id, command_type, payload, status,
	requested_by, requested_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		cmd.ID, cmd.CommandNo, cmd.StationID, cmd.DeviceID, cmd.CommandType,
		[]byte(cmd.Payload), cmd.Status, cmd.RequestedBy, cmd.RequestedAt.UTC())
	return err
}

// MarkSent records approval and dispatch start.
func (r *CommandRepository) MarkSent(ctx context.Context, id, approver string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("command repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, approved_by = $2, approved_at = $3
WHERE id = $4`, r.table)
	_, err := r.db.ExecContext(ctx, query, commands.StatusSent, approver, at.UTC(), id)
	return err
}

// MarkExecuted records successful execution.
func (r *CommandRepository) MarkExecuted(ctx context.Context, id, response string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("command repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, response = $2, executed_at = $3
WHERE id = $4`, r.table)
	_, err := r.db.ExecContext(ctx, query, commands.StatusExecuted, response, at.UTC(), id)
	return err
}

// MarkFailed records a dispatch failure.
func (r *CommandRepository) MarkFailed(ctx context.Context, id, response string) error {
	if r == nil || r.db == nil {
		return errors.New("command repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, response = $2
WHERE id = $3`, r.table)
	_, err := r.db.ExecContext(ctx, query, commands.StatusFailed, response, id)
	return err
}

// MarkRejected closes a command without dispatch.
func (r *CommandRepository) MarkRejected(ctx context.Context, id, response string) error {
	if r == nil || r.db == nil {
		return errors.New("command repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, response = $2
WHERE id = $3`, r.table)
	_, err := r.db.ExecContext(ctx, query, commands.StatusRejected, response, id)
	return err
}

// ListByDeviceAndTime lists commands for a device requested within [from, to).
func (r *CommandRepository) ListByDeviceAndTime(ctx context.Context, deviceID string, from, to time.Time) ([]commands.Command, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("command repo: nil db")
	}
	if deviceID == "" {
		return nil, errors.New("command repo: empty device id")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE device_id = $1 AND requested_at >= $2 AND requested_at < $3
ORDER BY requested_at DESC`, commandColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, deviceID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []commands.Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(row rowScanner) (*commands.Command, error) {
	var (
		cmd        commands.Command
		payload    []byte
		approvedBy sql.NullString
		response   sql.NullString
		approvedAt sql.NullTime
		executedAt sql.NullTime
	)
	if err := row.Scan(
		&cmd.ID,
		&cmd.CommandNo,
		&cmd.StationID,
		&cmd.DeviceID,
		&cmd.CommandType,
		&payload,
		&cmd.Status,
		&cmd.RequestedBy,
		&approvedBy,
		&response,
		&cmd.RequestedAt,
		&approvedAt,
		&executedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		cmd.Payload = payload
	}
	if approvedBy.Valid {
		cmd.ApprovedBy = approvedBy.String
	}
	if response.Valid {
		cmd.Response = response.String
	}
	if approvedAt.Valid {
		cmd.ApprovedAt = approvedAt.Time.UTC()
	}
	if executedAt.Valid {
		cmd.ExecutedAt = executedAt.Time.UTC()
	}
	cmd.RequestedAt = cmd.RequestedAt.UTC()
	return &cmd, nil
}
