package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	commands "scada-cloud/internal/commands/domain"
)

// CommandRepository is an in-memory implementation for tests and local runs.
type CommandRepository struct {
	mu    sync.RWMutex
	items map[string]commands.Command
}

func NewCommandRepository() *CommandRepository {
	return &CommandRepository{items: make(map[string]commands.Command)}
}

func (r *CommandRepository) GetByID(_ context.Context, id string) (*commands.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &cmd, nil
}

func (r *CommandRepository) Create(_ context.Context, cmd *commands.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[cmd.ID] = *cmd
	return nil
}

func (r *CommandRepository) MarkSent(_ context.Context, id, approver string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.items[id]
	if !ok {
		return commands.ErrNotFound
	}
	cmd.Status = commands.StatusSent
	cmd.ApprovedBy = approver
	cmd.ApprovedAt = at.UTC()
	r.items[id] = cmd
	return nil
}

func (r *CommandRepository) MarkExecuted(_ context.Context, id, response string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.items[id]
	if !ok {
		return commands.ErrNotFound
	}
	cmd.Status = commands.StatusExecuted
	cmd.Response = response
	cmd.ExecutedAt = at.UTC()
	r.items[id] = cmd
	return nil
}

func (r *CommandRepository) MarkFailed(_ context.Context, id, response string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.items[id]
	if !ok {
		return commands.ErrNotFound
	}
	cmd.Status = commands.StatusFailed
	cmd.Response = response
	r.items[id] = cmd
	return nil
}

func (r *CommandRepository) MarkRejected(_ context.Context, id, response string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.items[id]
	if !ok {
		return commands.ErrNotFound
	}
	cmd.Status = commands.StatusRejected
	cmd.Response = response
	r.items[id] = cmd
	return nil
}

func (r *CommandRepository) ListByDeviceAndTime(_ context.Context, deviceID string, from, to time.Time) ([]commands.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []commands.Command
	for _, cmd := range r.items {
		if cmd.DeviceID != deviceID {
			continue
		}
		if cmd.RequestedAt.Before(from) || !cmd.RequestedAt.Before(to) {
			continue
		}
		result = append(result, cmd)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RequestedAt.After(result[j].RequestedAt)
	})
	return result, nil
}
