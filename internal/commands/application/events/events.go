package events

import "time"

// CommandCreated is published when a new command enters the pending state.
type CommandCreated struct {
	EventID     string    `json:"event_id"`
	CommandID   string    `json:"command_id"`
	CommandNo   string    `json:"command_no"`
	StationID   string    `json:"station_id"`
	DeviceID    string    `json:"device_id"`
	DeviceName  string    `json:"device_name,omitempty"`
	CommandType string    `json:"command_type"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// CommandApproved is published when a pending command is approved and sent.
type CommandApproved struct {
	EventID    string    `json:"event_id"`
	CommandID  string    `json:"command_id"`
	CommandNo  string    `json:"command_no"`
	StationID  string    `json:"station_id"`
	DeviceID   string    `json:"device_id"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

// CommandRejected is published when a pending command is rejected.
type CommandRejected struct {
	EventID    string    `json:"event_id"`
	CommandID  string    `json:"command_id"`
	CommandNo  string    `json:"command_no"`
	StationID  string    `json:"station_id"`
	DeviceID   string    `json:"device_id"`
	RejectedBy string    `json:"rejected_by"`
	Reason     string    `json:"reason,omitempty"`
	RejectedAt time.Time `json:"rejected_at"`
}

// CommandExecuted is published after the device confirms execution.
type CommandExecuted struct {
	EventID    string    `json:"event_id"`
	CommandID  string    `json:"command_id"`
	CommandNo  string    `json:"command_no"`
	StationID  string    `json:"station_id"`
	DeviceID   string    `json:"device_id"`
	Response   string    `json:"response,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
}

// CommandFailed is published when dispatch to the device does not succeed.
type CommandFailed struct {
	EventID   string    `json:"event_id"`
	CommandID string    `json:"command_id"`
	CommandNo string    `json:"command_no"`
	StationID string    `json:"station_id"`
	DeviceID  string    `json:"device_id"`
	Reason    string    `json:"reason,omitempty"`
	FailedAt  time.Time `json:"failed_at"`
}
