package stream

import (
	"testing"

	alarmevents "scada-cloud/internal/alarms/application/events"
	commandevents "scada-cloud/internal/commands/application/events"
	readingevents "scada-cloud/internal/readings/application/events"
)

func TestValidTopic(t *testing.T) {
	valid := []string{
		"alarms:all",
		"readings:device:dev-1",
		"readings:station:st-1",
		"alarms:station:st-1",
		"commands:device:dev-1",
		"station:st-1",
	}
	for _, topic := range valid {
		if !ValidTopic(topic) {
			t.Errorf("ValidTopic(%q) = false, want true", topic)
		}
	}

	invalid := []string{
		"",
		"alarms:",
		"readings:device:",
		"station:",
		"weather:station:st-1",
	}
	for _, topic := range invalid {
		if ValidTopic(topic) {
			t.Errorf("ValidTopic(%q) = true, want false", topic)
		}
	}
}

func TestRouteReadingReceived(t *testing.T) {
	route, ok := RouteEvent(&readingevents.ReadingReceived{
		EventID:   "ev-1",
		StationID: "st-1",
		DeviceID:  "dev-1",
	})
	if !ok {
		t.Fatal("reading event must be routed")
	}
	if route.Type != "reading.new" {
		t.Fatalf("type = %s", route.Type)
	}
	assertTopics(t, route.Topics, "readings:device:dev-1", "readings:station:st-1", "station:st-1")
}

func TestRouteAlarmEventsIncludeAlarmsAll(t *testing.T) {
	for _, event := range []any{
		&alarmevents.AlarmCreated{StationID: "st-1"},
		&alarmevents.AlarmAcknowledged{StationID: "st-1"},
		&alarmevents.AlarmCleared{StationID: "st-1"},
	} {
		route, ok := RouteEvent(event)
		if !ok {
			t.Fatalf("%T must be routed", event)
		}
		assertTopics(t, route.Topics, "alarms:station:st-1", "alarms:all", "station:st-1")
	}
}

func TestRouteCommandEvents(t *testing.T) {
	types := map[any]string{
		&commandevents.CommandCreated{DeviceID: "dev-1", StationID: "st-1"}:  "command.created",
		&commandevents.CommandApproved{DeviceID: "dev-1", StationID: "st-1"}: "command.approved",
		&commandevents.CommandRejected{DeviceID: "dev-1", StationID: "st-1"}: "command.rejected",
		&commandevents.CommandExecuted{DeviceID: "dev-1", StationID: "st-1"}: "command.executed",
		&commandevents.CommandFailed{DeviceID: "dev-1", StationID: "st-1"}:   "command.failed",
	}
	for event, wantType := range types {
		route, ok := RouteEvent(event)
		if !ok {
			t.Fatalf("%T must be routed", event)
		}
		if route.Type != wantType {
			t.Fatalf("%T type = %s, want %s", event, route.Type, wantType)
		}
		assertTopics(t, route.Topics, "commands:device:dev-1", "station:st-1")
	}
}

func TestRouteIgnoresUnknownEvents(t *testing.T) {
	if _, ok := RouteEvent(struct{ Name string }{"x"}); ok {
		t.Fatal("unknown event types must not be routed")
	}
}

func assertTopics(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("topics = %v, want %v", got, want)
		}
	}
}
