package events

import "time"

// AlarmCreated is emitted when a rule raises a new alarm. It carries the
// denormalized station/device/point labels so subscribers can render the
// alarm without a follow-up query.
type AlarmCreated struct {
	EventID       string    `json:"event_id"`
	AlarmID       string    `json:"alarm_id"`
	RuleID        string    `json:"rule_id"`
	StationID     string    `json:"station_id"`
	StationName   string    `json:"station_name"`
	DeviceID      string    `json:"device_id"`
	DeviceName    string    `json:"device_name"`
	DataPointID   string    `json:"data_point_id"`
	DataPointName string    `json:"data_point_name"`
	Severity      string    `json:"severity"`
	Value         float64   `json:"value"`
	TriggeredAt   time.Time `json:"triggered_at"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AlarmAcknowledged is emitted when an operator acknowledges an alarm.
type AlarmAcknowledged struct {
	EventID        string    `json:"event_id"`
	AlarmID        string    `json:"alarm_id"`
	StationID      string    `json:"station_id"`
	DeviceID       string    `json:"device_id"`
	AcknowledgedBy string    `json:"acknowledged_by"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
	Notes          string    `json:"notes,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// AlarmCleared is emitted when an alarm reaches its terminal state.
type AlarmCleared struct {
	EventID    string    `json:"event_id"`
	AlarmID    string    `json:"alarm_id"`
	StationID  string    `json:"station_id"`
	DeviceID   string    `json:"device_id"`
	ClearedAt  time.Time `json:"cleared_at"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
