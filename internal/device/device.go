package device

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/zcl"
)

// Device is a node's endpoint/cluster graph together with the capability
// units attached to it. A device built from discovery data alone is
// generic; a device rebuilt from a quirk carries the quirk name.
type Device struct {
	IEEE         zigbee.IEEEAddress
	NWK          zigbee.NetworkAddress
	Manufacturer string
	Model        string
	Quirk        string

	Battery  BatteryMonitor
	Commands CommandHandler

	endpoints map[zigbee.Endpoint]*Endpoint
	transport Transport
	registry  *zcl.Registry
	logger    *slog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithTransport sets the transport used for outgoing messages.
func WithTransport(t Transport) Option {
	return func(d *Device) { d.transport = t }
}

// WithRegistry sets the registry used to describe generic clusters.
func WithRegistry(r *zcl.Registry) Option {
	return func(d *Device) { d.registry = r }
}

// WithLogger sets the device logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// New creates a device with no endpoints.
func New(ieee zigbee.IEEEAddress, nwk zigbee.NetworkAddress, opts ...Option) *Device {
	d := &Device{
		IEEE:      ieee,
		NWK:       nwk,
		endpoints: make(map[zigbee.Endpoint]*Endpoint),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	d.logger = d.logger.With("ieee", IEEEString(ieee))
	return d
}

// Replacement returns an empty device sharing this device's identity,
// transport and registry, labelled with the given quirk name.
func (d *Device) Replacement(quirk string) *Device {
	return &Device{
		IEEE:         d.IEEE,
		NWK:          d.NWK,
		Manufacturer: d.Manufacturer,
		Model:        d.Model,
		Quirk:        quirk,
		endpoints:    make(map[zigbee.Endpoint]*Endpoint),
		transport:    d.transport,
		registry:     d.registry,
		logger:       d.logger.With("quirk", quirk),
	}
}

// IEEEString formats an address the way device records are keyed.
func IEEEString(ieee zigbee.IEEEAddress) string {
	return fmt.Sprintf("%016X", uint64(ieee))
}

func (d *Device) Logger() *slog.Logger { return d.logger }

func (d *Device) Transport() Transport { return d.transport }

func (d *Device) Registry() *zcl.Registry { return d.registry }

// IsQuirked reports whether the device was rebuilt from a quirk.
func (d *Device) IsQuirked() bool { return d.Quirk != "" }

// AddEndpoint creates an endpoint with no clusters. An existing endpoint
// with the same id is replaced.
func (d *Device) AddEndpoint(id zigbee.Endpoint, profile zigbee.ProfileID, deviceType uint16) *Endpoint {
	ep := &Endpoint{
		ID:         id,
		ProfileID:  profile,
		DeviceType: deviceType,
		device:     d,
		in:         make(map[zigbee.ClusterID]*Cluster),
		out:        make(map[zigbee.ClusterID]*Cluster),
	}
	d.endpoints[id] = ep
	return ep
}

// AddDescribedEndpoint creates a generic endpoint from a simple descriptor.
func (d *Device) AddDescribedEndpoint(desc zigbee.EndpointDescription) *Endpoint {
	ep := d.AddEndpoint(desc.Endpoint, desc.ProfileID, desc.DeviceID)
	for _, id := range desc.InClusterList {
		ep.AddInputCluster(id)
	}
	for _, id := range desc.OutClusterList {
		ep.AddOutputCluster(id)
	}
	return ep
}

// Endpoint returns the endpoint with the given id.
func (d *Device) Endpoint(id zigbee.Endpoint) (*Endpoint, bool) {
	ep, ok := d.endpoints[id]
	return ep, ok
}

// EndpointIDs returns the application endpoint ids in ascending order.
// The ZDO endpoint 0 is never included.
func (d *Device) EndpointIDs() []zigbee.Endpoint {
	ids := make([]zigbee.Endpoint, 0, len(d.endpoints))
	for id := range d.endpoints {
		if id == 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Endpoints returns the application endpoints in ascending id order.
func (d *Device) Endpoints() []*Endpoint {
	ids := d.EndpointIDs()
	eps := make([]*Endpoint, len(ids))
	for i, id := range ids {
		eps[i] = d.endpoints[id]
	}
	return eps
}

// HandleCommand dispatches a command to the device's command handler.
// Without a handler it does nothing. A failing or panicking handler is
// logged and reported as an error; it never takes the caller down.
func (d *Device) HandleCommand(ctx context.Context, cmd Command) (err error) {
	if d.Commands == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command handler panic: %v", r)
			d.logger.Error("command handler panic",
				"cluster", fmt.Sprintf("0x%04X", uint16(cmd.ClusterID)),
				"command", fmt.Sprintf("0x%02X", cmd.ID),
				"panic", r,
			)
		}
	}()
	if err := d.Commands.HandleCommand(ctx, d, cmd); err != nil {
		d.logger.Warn("command handler failed",
			"cluster", fmt.Sprintf("0x%04X", uint16(cmd.ClusterID)),
			"command", fmt.Sprintf("0x%02X", cmd.ID),
			"err", err,
		)
		return fmt.Errorf("handle command 0x%02X on cluster 0x%04X: %w", cmd.ID, uint16(cmd.ClusterID), err)
	}
	return nil
}

// Stop releases the device's capability units.
func (d *Device) Stop() {
	if d.Battery != nil {
		d.Battery.Stop()
	}
}
