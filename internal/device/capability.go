package device

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/zcl"
)

// Reading is a telemetry value that may not have been observed yet.
// The zero value is Unknown.
type Reading struct {
	value float64
	known bool
}

// Unknown is the reading before any observation.
var Unknown = Reading{}

// Known returns an observed reading.
func Known(v float64) Reading {
	return Reading{value: v, known: true}
}

// Value returns the reading and whether it has been observed.
func (r Reading) Value() (float64, bool) {
	return r.value, r.known
}

func (r Reading) IsKnown() bool { return r.known }

func (r Reading) String() string {
	if !r.known {
		return "unknown"
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// MarshalJSON encodes an unknown reading as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.known {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// BatteryReadings is the telemetry exposed by a battery monitor. Derived
// holds vendor-specific values decoded alongside the battery, keyed by name.
type BatteryReadings struct {
	Percent Reading
	Voltage Reading
	Derived map[string]Reading
}

// AttributeListener is notified when a cluster's cached attribute changes.
type AttributeListener interface {
	AttributeUpdated(attrID uint16, value any)
}

// BatteryMonitor decodes battery telemetry for a device.
type BatteryMonitor interface {
	AttributeListener
	// Setup starts listening and, when configured, binds and reads the
	// battery attribute asynchronously. newJoin is true on first join.
	Setup(ctx context.Context, newJoin bool)
	Readings() BatteryReadings
	Stop()
}

// Command is a cluster command addressed to or received from a device.
type Command struct {
	Endpoint  zigbee.Endpoint
	ClusterID zigbee.ClusterID
	ID        uint8
	Direction zcl.CommandDirection
	Args      []any
}

// CommandHandler implements vendor-specific command behaviour.
type CommandHandler interface {
	HandleCommand(ctx context.Context, dev *Device, cmd Command) error
}

// Framer chooses the profile id stamped on outgoing frames of an endpoint.
type Framer interface {
	FrameProfile(ep *Endpoint) zigbee.ProfileID
}
