package stream

import (
	"strings"

	alarmevents "scada-cloud/internal/alarms/application/events"
	commandevents "scada-cloud/internal/commands/application/events"
	readingevents "scada-cloud/internal/readings/application/events"
)

// TopicAlarmsAll receives every alarm event regardless of station.
const TopicAlarmsAll = "alarms:all"

// ReadingsDeviceTopic is the topic for live readings of a single device.
func ReadingsDeviceTopic(deviceID string) string {
	return "readings:device:" + deviceID
}

// ReadingsStationTopic is the topic for live readings of a whole station.
func ReadingsStationTopic(stationID string) string {
	return "readings:station:" + stationID
}

// AlarmsStationTopic is the topic for alarm lifecycle events of a station.
func AlarmsStationTopic(stationID string) string {
	return "alarms:station:" + stationID
}

// CommandsDeviceTopic is the topic for command lifecycle events of a device.
func CommandsDeviceTopic(deviceID string) string {
	return "commands:device:" + deviceID
}

// StationTopic receives every event scoped to a station.
func StationTopic(stationID string) string {
	return "station:" + stationID
}

// ValidTopic reports whether a client-supplied topic key is well formed.
func ValidTopic(topic string) bool {
	if topic == TopicAlarmsAll {
		return true
	}
	for _, prefix := range []string{
		"readings:device:",
		"readings:station:",
		"alarms:station:",
		"commands:device:",
		"station:",
	} {
		if strings.HasPrefix(topic, prefix) && len(topic) > len(prefix) {
			return true
		}
	}
	return false
}

// Route describes where a domain event goes on the wire.
type Route struct {
	EventID string
	Type    string
	Topics  []string
	Payload any
}

// RouteEvent maps a domain event to its push type and topic set. It returns
// false for event types that are not streamed.
func RouteEvent(event any) (Route, bool) {
	switch e := event.(type) {
	case *readingevents.ReadingReceived:
		return Route{
			EventID: e.EventID,
			Type:    "reading.new",
			Topics: []string{
				ReadingsDeviceTopic(e.DeviceID),
				ReadingsStationTopic(e.StationID),
				StationTopic(e.StationID),
			},
			Payload: e,
		}, true
	case *alarmevents.AlarmCreated:
		return Route{
			EventID: e.EventID,
			Type:    "alarm.created",
			Topics:  alarmTopics(e.StationID),
			Payload: e,
		}, true
	case *alarmevents.AlarmAcknowledged:
		return Route{
			EventID: e.EventID,
			Type:    "alarm.acknowledged",
			Topics:  alarmTopics(e.StationID),
			Payload: e,
		}, true
	case *alarmevents.AlarmCleared:
		return Route{
			EventID: e.EventID,
			Type:    "alarm.cleared",
			Topics:  alarmTopics(e.StationID),
			Payload: e,
		}, true
	case *commandevents.CommandCreated:
		return Route{
			EventID: e.EventID,
			Type:    "command.created",
			Topics:  commandTopics(e.DeviceID, e.StationID),
			Payload: e,
		}, true
	case *commandevents.CommandApproved:
		return Route{
			EventID: e.EventID,
			Type:    "command.approved",
			Topics:  commandTopics(e.DeviceID, e.StationID),
			Payload: e,
		}, true
	case *commandevents.CommandRejected:
		return Route{
			EventID: e.EventID,
			Type:    "command.rejected",
			Topics:  commandTopics(e.DeviceID, e.StationID),
			Payload: e,
		}, true
	case *commandevents.CommandExecuted:
		return Route{
			EventID: e.EventID,
			Type:    "command.executed",
			Topics:  commandTopics(e.DeviceID, e.StationID),
			Payload: e,
		}, true
	case *commandevents.CommandFailed:
		return Route{
			EventID: e.EventID,
			Type:    "command.failed",
			Topics:  commandTopics(e.DeviceID, e.StationID),
			Payload: e,
		}, true
	default:
		return Route{}, false
	}
}

func alarmTopics(stationID string) []string {
	return []string{
		AlarmsStationTopic(stationID),
		TopicAlarmsAll,
		StationTopic(stationID),
	}
}

func commandTopics(deviceID, stationID string) []string {
	return []string{
		CommandsDeviceTopic(deviceID),
		StationTopic(stationID),
	}
}
