package quirks

import (
	"fmt"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
)

// Resolve returns the device to use for dev: dev itself when no descriptor
// matches, otherwise the device rebuilt from the first matching descriptor.
// A descriptor that cannot be applied is a broken static table and panics.
func Resolve(dev *device.Device, c *Catalog) *device.Device {
	m := Match(dev, c)
	if !m.Matched() {
		return dev
	}
	rebuilt, err := Rebuild(dev, m.Descriptor)
	if err != nil {
		panic(err)
	}
	c.logger.Info("device quirked",
		"ieee", device.IEEEString(dev.IEEE),
		"quirk", m.Descriptor.Name,
		"alternative", m.Alternative,
	)
	return rebuilt
}

// Rebuild constructs the replacement device described by d. Every endpoint
// of orig is carried over: endpoints named by the blueprint are built from
// it, the rest generically. Attribute caches move with their cluster id.
// orig should not be used after a successful rebuild.
func Rebuild(orig *device.Device, d *Descriptor) (*device.Device, error) {
	for id := range d.Replacement {
		if _, ok := orig.Endpoint(id); !ok {
			return nil, fmt.Errorf("%w: %q replaces endpoint %d the device does not have", ErrBadDescriptor, d.Name, id)
		}
	}

	dev := orig.Replacement(d.Name)
	for _, id := range orig.EndpointIDs() {
		src, _ := orig.Endpoint(id)
		bp, replaced := d.Replacement[id]
		if !replaced {
			copyEndpoint(dev, src)
			continue
		}
		if err := buildEndpoint(dev, src, mergeEndpoint(bp, src)); err != nil {
			return nil, fmt.Errorf("%w: %q endpoint %d: %v", ErrBadDescriptor, d.Name, id, err)
		}
	}

	if d.Capabilities != nil {
		caps := d.Capabilities(dev)
		dev.Battery = caps.Battery
		dev.Commands = caps.Commands
	}
	return dev, nil
}

// resolvedEndpoint is a blueprint with every inherited field filled in.
type resolvedEndpoint struct {
	framer     device.Framer
	profileID  zigbee.ProfileID
	deviceType uint16
	in, out    []ClusterEntry
}

// mergeEndpoint fills the blueprint's unset fields from the original
// endpoint.
func mergeEndpoint(bp EndpointBlueprint, orig *device.Endpoint) resolvedEndpoint {
	r := resolvedEndpoint{
		framer:     bp.Framer,
		profileID:  orig.ProfileID,
		deviceType: orig.DeviceType,
		in:         bp.InputClusters,
		out:        bp.OutputClusters,
	}
	if bp.ProfileID != nil {
		r.profileID = *bp.ProfileID
	}
	if bp.DeviceType != nil {
		r.deviceType = *bp.DeviceType
	}
	return r
}

func copyEndpoint(dev *device.Device, src *device.Endpoint) {
	ep := dev.AddEndpoint(src.ID, src.ProfileID, src.DeviceType)
	ep.Framer = src.Framer
	for _, id := range src.InputClusterIDs() {
		c := ep.AddInputCluster(id)
		old, _ := src.InputCluster(id)
		c.LoadAttributes(old.Attributes())
	}
	for _, id := range src.OutputClusterIDs() {
		c := ep.AddOutputCluster(id)
		old, _ := src.OutputCluster(id)
		c.LoadAttributes(old.Attributes())
	}
}

func buildEndpoint(dev *device.Device, src *device.Endpoint, r resolvedEndpoint) error {
	ep := dev.AddEndpoint(src.ID, r.profileID, r.deviceType)
	ep.Framer = r.framer

	for _, e := range r.in {
		c, err := installCluster(ep, e, ep.AddInputCluster, ep.InstallInputCluster)
		if err != nil {
			return fmt.Errorf("input cluster: %w", err)
		}
		if old, ok := src.InputCluster(c.ID()); ok {
			c.LoadAttributes(old.Attributes())
		}
	}
	for _, e := range r.out {
		c, err := installCluster(ep, e, ep.AddOutputCluster, ep.InstallOutputCluster)
		if err != nil {
			return fmt.Errorf("output cluster: %w", err)
		}
		if old, ok := src.OutputCluster(c.ID()); ok {
			c.LoadAttributes(old.Attributes())
		}
	}
	return nil
}

func installCluster(
	ep *device.Endpoint,
	e ClusterEntry,
	generic func(zigbee.ClusterID) *device.Cluster,
	install func(*device.Cluster) error,
) (*device.Cluster, error) {
	if e.factory == nil {
		return generic(e.id), nil
	}
	c := e.factory(ep)
	if err := install(c); err != nil {
		return nil, err
	}
	return c, nil
}
