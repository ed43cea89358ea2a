package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	catalog "scada-cloud/internal/catalog/domain"
	"scada-cloud/internal/commands/application/events"
	commands "scada-cloud/internal/commands/domain"
	"scada-cloud/internal/eventing"
	"scada-cloud/internal/observability/metrics"
)

// Dispatcher delivers an approved command to the target device and returns
// the device response.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd *commands.Command) (string, error)
}

// Service drives the command lifecycle.
type Service struct {
	commands   commands.Repository
	devices    catalog.DeviceRepository
	dispatcher Dispatcher
	bus        eventing.EventBus
	logger     *log.Logger
	clock      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func NewService(repo commands.Repository, devices catalog.DeviceRepository, dispatcher Dispatcher, bus eventing.EventBus, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		commands:   repo,
		devices:    devices,
		dispatcher: dispatcher,
		bus:        bus,
		logger:     logger,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes a new command to queue for approval.
type CreateRequest struct {
	DeviceID    string
	CommandType string
	Payload     json.RawMessage
	RequestedBy string
}

// Create validates the target device and stores a pending command.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*commands.Command, error) {
	if req.DeviceID == "" || req.CommandType == "" {
		return nil, fmt.Errorf("device id and command type are required")
	}
	device, err := s.devices.Get(ctx, req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("load device %s: %w", req.DeviceID, err)
	}
	if device == nil {
		return nil, fmt.Errorf("device %s: %w", req.DeviceID, catalog.ErrNotFound)
	}
	if !device.Commandable() {
		return nil, fmt.Errorf("device %s is %s: %w", device.ID, device.Status, commands.ErrInvalidState)
	}

	now := s.clock().UTC()
	cmd := &commands.Command{
		ID:          buildCommandID(req.DeviceID, req.CommandType, now),
		CommandNo:   buildCommandNo(now),
		StationID:   device.StationID,
		DeviceID:    device.ID,
		CommandType: req.CommandType,
		Payload:     req.Payload,
		Status:      commands.StatusPending,
		RequestedBy: req.RequestedBy,
		RequestedAt: now,
	}
	if err := s.commands.Create(ctx, cmd); err != nil {
		return nil, fmt.Errorf("create command: %w", err)
	}

	s.publish(ctx, &events.CommandCreated{
		EventID:     eventing.NewEventID(),
		CommandID:   cmd.ID,
		CommandNo:   cmd.CommandNo,
		StationID:   cmd.StationID,
		DeviceID:    cmd.DeviceID,
		DeviceName:  device.Name,
		CommandType: cmd.CommandType,
		RequestedBy: cmd.RequestedBy,
		RequestedAt: cmd.RequestedAt,
	})
	return cmd, nil
}

// Approve moves a pending command to sent and dispatches it to the device.
// A dispatch failure is a command outcome, not an error: the command ends
// up failed and is returned with a nil error.
func (s *Service) Approve(ctx context.Context, id, approver string) (*commands.Command, error) {
	cmd, err := s.commands.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load command %s: %w", id, err)
	}
	if cmd == nil {
		return nil, fmt.Errorf("command %s: %w", id, commands.ErrNotFound)
	}
	if cmd.Status != commands.StatusPending {
		return nil, fmt.Errorf("cannot approve command in status %s: %w", cmd.Status, commands.ErrInvalidState)
	}

	now := s.clock().UTC()
	if err := s.commands.MarkSent(ctx, cmd.ID, approver, now); err != nil {
		return nil, fmt.Errorf("mark command sent: %w", err)
	}
	cmd.Status = commands.StatusSent
	cmd.ApprovedBy = approver
	cmd.ApprovedAt = now

	s.publish(ctx, &events.CommandApproved{
		EventID:    eventing.NewEventID(),
		CommandID:  cmd.ID,
		CommandNo:  cmd.CommandNo,
		StationID:  cmd.StationID,
		DeviceID:   cmd.DeviceID,
		ApprovedBy: approver,
		ApprovedAt: now,
	})

	return s.execute(ctx, cmd)
}

// Reject closes a pending command without dispatching it.
func (s *Service) Reject(ctx context.Context, id, rejector, reason string) (*commands.Command, error) {
	cmd, err := s.commands.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load command %s: %w", id, err)
	}
	if cmd == nil {
		return nil, fmt.Errorf("command %s: %w", id, commands.ErrNotFound)
	}
	if cmd.Status != commands.StatusPending {
		return nil, fmt.Errorf("cannot reject command in status %s: %w", cmd.Status, commands.ErrInvalidState)
	}

	if err := s.commands.MarkRejected(ctx, cmd.ID, reason); err != nil {
		return nil, fmt.Errorf("mark command rejected: %w", err)
	}
	cmd.Status = commands.StatusRejected
	cmd.Response = reason
	metrics.IncCommandResult(commands.StatusRejected)

	s.publish(ctx, &events.CommandRejected{
		EventID:    eventing.NewEventID(),
		CommandID:  cmd.ID,
		CommandNo:  cmd.CommandNo,
		StationID:  cmd.StationID,
		DeviceID:   cmd.DeviceID,
		RejectedBy: rejector,
		Reason:     reason,
		RejectedAt: s.clock().UTC(),
	})
	return cmd, nil
}

// List returns commands for a device within [from, to].
func (s *Service) List(ctx context.Context, deviceID string, from, to time.Time) ([]commands.Command, error) {
	return s.commands.ListByDeviceAndTime(ctx, deviceID, from, to)
}

// execute dispatches a sent command and records the terminal outcome.
func (s *Service) execute(ctx context.Context, cmd *commands.Command) (*commands.Command, error) {
	if cmd.Status != commands.StatusSent {
		return nil, fmt.Errorf("cannot execute command in status %s: %w", cmd.Status, commands.ErrInvalidState)
	}

	response, dispatchErr := s.dispatcher.Dispatch(ctx, cmd)
	now := s.clock().UTC()
	if dispatchErr != nil {
		reason := dispatchErr.Error()
		if err := s.commands.MarkFailed(ctx, cmd.ID, reason); err != nil {
			return nil, fmt.Errorf("mark command failed: %w", err)
		}
		cmd.Status = commands.StatusFailed
		cmd.Response = reason
		metrics.IncCommandResult(commands.StatusFailed)
		if s.logger != nil {
			s.logger.Printf("command dispatch failed: command=%s device=%s err=%v", cmd.CommandNo, cmd.DeviceID, dispatchErr)
		}
		s.publish(ctx, &events.CommandFailed{
			EventID:   eventing.NewEventID(),
			CommandID: cmd.ID,
			CommandNo: cmd.CommandNo,
			StationID: cmd.StationID,
			DeviceID:  cmd.DeviceID,
			Reason:    reason,
			FailedAt:  now,
		})
		return cmd, nil
	}

	if err := s.commands.MarkExecuted(ctx, cmd.ID, response, now); err != nil {
		return nil, fmt.Errorf("mark command executed: %w", err)
	}
	cmd.Status = commands.StatusExecuted
	cmd.Response = response
	cmd.ExecutedAt = now
	metrics.IncCommandResult(commands.StatusExecuted)

	s.publish(ctx, &events.CommandExecuted{
		EventID:    eventing.NewEventID(),
		CommandID:  cmd.ID,
		CommandNo:  cmd.CommandNo,
		StationID:  cmd.StationID,
		DeviceID:   cmd.DeviceID,
		Response:   response,
		ExecutedAt: now,
	})
	return cmd, nil
}

func (s *Service) publish(ctx context.Context, event any) {
	if s.bus == nil {
		return
	}
	metrics.IncEventPublished(eventing.EventType(event))
	if err := s.bus.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Printf("publish %s: %v", eventing.EventType(event), err)
	}
}

func buildCommandID(deviceID, commandType string, at time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d", deviceID, commandType, at.UnixNano())))
	return "cmd-" + hex.EncodeToString(sum[:])[:8]
}

func buildCommandNo(at time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("no|%d", at.UnixNano())))
	return "CMD" + at.Format("20060102") + hex.EncodeToString(sum[:])[:6]
}
