package smartthings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/quirks"
	"zigbee-quirks/internal/zcl"
)

const (
	cmdCheckIn  uint8 = 0x00
	cmdIdentify uint8 = 0x00

	defaultBeepSeconds = 5
)

// BeepRetry is how identify is delivered to a tag that may be asleep.
var BeepRetry = quirks.RetryPolicy{Attempts: 5, Delay: 5 * time.Second}

// Arrival handles the arrival sensor's poll control check-ins, which mark
// the tag present, and beeps it through the Identify cluster.
type Arrival struct {
	retry quirks.RetryPolicy
	now   func() time.Time

	mu          sync.Mutex
	lastCheckIn time.Time
}

func NewArrival(retry quirks.RetryPolicy) *Arrival {
	return &Arrival{retry: retry, now: time.Now}
}

// HandleCommand implements device.CommandHandler.
func (a *Arrival) HandleCommand(ctx context.Context, dev *device.Device, cmd device.Command) error {
	switch {
	case cmd.ClusterID == clusterPollControl && cmd.ID == cmdCheckIn && cmd.Direction == zcl.DirectionToClient:
		a.mu.Lock()
		a.lastCheckIn = a.now()
		a.mu.Unlock()
		dev.Logger().Debug("arrival check-in")
		return nil
	case cmd.ClusterID == clusterIdentify && cmd.ID == cmdIdentify && cmd.Direction == zcl.DirectionToServer:
		return a.beep(ctx, dev, cmd)
	}
	return nil
}

func (a *Arrival) beep(ctx context.Context, dev *device.Device, cmd device.Command) error {
	seconds := any(defaultBeepSeconds)
	if len(cmd.Args) > 0 {
		seconds = cmd.Args[0]
	}
	payload, err := zcl.EncodeValue(zcl.TypeUint16, seconds)
	if err != nil {
		return fmt.Errorf("beep duration: %w", err)
	}

	ep, ok := dev.Endpoint(cmd.Endpoint)
	if !ok {
		ep, ok = dev.Endpoint(1)
	}
	if !ok {
		return fmt.Errorf("beep: %w", device.ErrUnknownCluster)
	}
	identify, ok := ep.InputCluster(clusterIdentify)
	if !ok {
		return fmt.Errorf("beep on endpoint %d: %w", ep.ID, device.ErrUnknownCluster)
	}
	if dev.Transport() == nil {
		return fmt.Errorf("beep: %w", device.ErrNoTransport)
	}
	return a.retry.Do(ctx, dev.Logger(), "beep", func(ctx context.Context) error {
		return identify.Command(ctx, cmdIdentify, payload)
	})
}

// LastCheckIn returns when the tag last checked in, zero if never.
func (a *Arrival) LastCheckIn() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastCheckIn
}

// Present reports whether the tag checked in within timeout.
func (a *Arrival) Present(timeout time.Duration) bool {
	last := a.LastCheckIn()
	return !last.IsZero() && a.now().Sub(last) <= timeout
}
