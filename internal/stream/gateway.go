package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	alarmevents "scada-cloud/internal/alarms/application/events"
	commandevents "scada-cloud/internal/commands/application/events"
	"scada-cloud/internal/eventing"
	"scada-cloud/internal/observability/metrics"
	readingevents "scada-cloud/internal/readings/application/events"
)

// pushMessage is the wire envelope for server pushes.
type pushMessage struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Gateway fans domain events out to websocket subscribers. Each connected
// client holds a set of topic subscriptions; an event routed to several
// topics still reaches each client at most once.
type Gateway struct {
	mu      sync.RWMutex
	clients map[*Client]map[string]struct{}
	topics  map[string]map[*Client]struct{}
	logger  *log.Logger
	clock   func() time.Time
}

// NewGateway constructs an empty gateway.
func NewGateway(logger *log.Logger) *Gateway {
	return &Gateway{
		clients: make(map[*Client]map[string]struct{}),
		topics:  make(map[string]map[*Client]struct{}),
		logger:  logger,
		clock:   time.Now,
	}
}

// AttachBus subscribes the gateway to every streamed event type.
func (g *Gateway) AttachBus(bus eventing.EventBus) {
	handler := func(ctx context.Context, event any) error {
		g.HandleEvent(ctx, event)
		return nil
	}
	for _, eventType := range []string{
		eventing.EventTypeOf[readingevents.ReadingReceived](),
		eventing.EventTypeOf[alarmevents.AlarmCreated](),
		eventing.EventTypeOf[alarmevents.AlarmAcknowledged](),
		eventing.EventTypeOf[alarmevents.AlarmCleared](),
		eventing.EventTypeOf[commandevents.CommandCreated](),
		eventing.EventTypeOf[commandevents.CommandApproved](),
		eventing.EventTypeOf[commandevents.CommandRejected](),
		eventing.EventTypeOf[commandevents.CommandExecuted](),
		eventing.EventTypeOf[commandevents.CommandFailed](),
	} {
		bus.Subscribe(eventType, handler)
	}
}

// Register adds a connected client with no subscriptions.
func (g *Gateway) Register(client *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.clients[client]; ok {
		return
	}
	g.clients[client] = make(map[string]struct{})
	metrics.StreamConnected()
}

// Unregister removes a client and all its subscriptions. The client's send
// channel is closed so its write pump exits.
func (g *Gateway) Unregister(client *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	subscribed, ok := g.clients[client]
	if !ok {
		return
	}
	for topic := range subscribed {
		g.dropFromTopic(topic, client)
	}
	delete(g.clients, client)
	close(client.send)
	metrics.StreamDisconnected()
}

// Subscribe adds a client to a topic. Subscribing twice is a no-op.
func (g *Gateway) Subscribe(client *Client, topic string) bool {
	if !ValidTopic(topic) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	subscribed, ok := g.clients[client]
	if !ok {
		return false
	}
	subscribed[topic] = struct{}{}
	members, ok := g.topics[topic]
	if !ok {
		members = make(map[*Client]struct{})
		g.topics[topic] = members
	}
	members[client] = struct{}{}
	return true
}

// Unsubscribe removes a client from a topic. Unknown topics are a no-op.
func (g *Gateway) Unsubscribe(client *Client, topic string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	subscribed, ok := g.clients[client]
	if !ok {
		return
	}
	delete(subscribed, topic)
	g.dropFromTopic(topic, client)
}

// Topics returns a snapshot of a client's subscriptions.
func (g *Gateway) Topics(client *Client) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	subscribed := g.clients[client]
	result := make([]string, 0, len(subscribed))
	for topic := range subscribed {
		result = append(result, topic)
	}
	return result
}

// HandleEvent routes one domain event to every subscribed client. A client
// subscribed to several matching topics receives the event once. Slow
// clients with a full send buffer have the message dropped, not the
// connection.
func (g *Gateway) HandleEvent(_ context.Context, event any) {
	route, ok := RouteEvent(event)
	if !ok {
		return
	}

	raw, err := json.Marshal(pushMessage{
		Type:      route.Type,
		Data:      route.Payload,
		Timestamp: g.clock().UTC(),
	})
	if err != nil {
		if g.logger != nil {
			g.logger.Printf("stream: marshal %s: %v", route.Type, err)
		}
		return
	}

	g.mu.RLock()
	targets := make(map[*Client]struct{})
	for _, topic := range route.Topics {
		for client := range g.topics[topic] {
			targets[client] = struct{}{}
		}
	}
	for client := range targets {
		select {
		case client.send <- raw:
		default:
			metrics.IncStreamDropped()
			if g.logger != nil {
				g.logger.Printf("stream: send buffer full, dropping %s", route.Type)
			}
		}
	}
	g.mu.RUnlock()
}

// dropFromTopic must be called with the write lock held.
func (g *Gateway) dropFromTopic(topic string, client *Client) {
	members, ok := g.topics[topic]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(g.topics, topic)
	}
}
