package events

import "time"

// ReadingReceived is emitted for every reading accepted at ingest.
type ReadingReceived struct {
	EventID     string    `json:"event_id"`
	StationID   string    `json:"station_id"`
	DeviceID    string    `json:"device_id"`
	DataPointID string    `json:"data_point_id"`
	TS          time.Time `json:"ts"`
	Value       float64   `json:"value"`
	Quality     string    `json:"quality"`
	OccurredAt  time.Time `json:"occurred_at"`
}
