package application

import (
	"context"
	"fmt"
	"time"

	commands "scada-cloud/internal/commands/domain"
)

// SimulatedDispatcher acknowledges every command without contacting a real
// device. It stands in for the downlink until a field gateway is attached.
type SimulatedDispatcher struct {
	Latency time.Duration
}

func NewSimulatedDispatcher() *SimulatedDispatcher {
	return &SimulatedDispatcher{}
}

func (d *SimulatedDispatcher) Dispatch(ctx context.Context, cmd *commands.Command) (string, error) {
	if d.Latency > 0 {
		select {
		case <-time.After(d.Latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("ack %s %s", cmd.CommandType, cmd.CommandNo), nil
}
