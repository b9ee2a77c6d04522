// Package quirks matches generically discovered devices against a catalog
// of vendor descriptors and rebuilds matching devices into their
// specialized form.
package quirks

import (
	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
)

// Descriptor describes one vendor device variant: the topologies it
// recognises and the replacement it builds.
type Descriptor struct {
	Name string
	// Signatures are alternatives; any one matching is enough.
	Signatures  []Signature
	Replacement Blueprint
	// Capabilities, when set, builds the capability units attached to the
	// rebuilt device.
	Capabilities func(dev *device.Device) Capabilities
}

// Capabilities are the optional behaviours of a rebuilt device.
type Capabilities struct {
	Battery  device.BatteryMonitor
	Commands device.CommandHandler
}

// Signature is the expected topology of a device, keyed by endpoint id.
type Signature map[zigbee.Endpoint]EndpointSignature

// EndpointSignature is the expected shape of one endpoint. A nil ProfileID
// or DeviceType matches any value.
type EndpointSignature struct {
	ProfileID      *zigbee.ProfileID
	DeviceType     *uint16
	InputClusters  []zigbee.ClusterID
	OutputClusters []zigbee.ClusterID
}

// Blueprint is the replacement topology. Endpoints missing from the map are
// carried over from the original device unchanged.
type Blueprint map[zigbee.Endpoint]EndpointBlueprint

// EndpointBlueprint specifies a replacement endpoint. Nil ProfileID and
// DeviceType inherit the original endpoint's values.
type EndpointBlueprint struct {
	Framer         device.Framer
	ProfileID      *zigbee.ProfileID
	DeviceType     *uint16
	InputClusters  []ClusterEntry
	OutputClusters []ClusterEntry
}

// ClusterFactory builds a specialized cluster bound to ep.
type ClusterFactory func(ep *device.Endpoint) *device.Cluster

// ClusterEntry is a cluster of a blueprint endpoint: either a bare id built
// generically, or a factory for a specialized cluster.
type ClusterEntry struct {
	id      zigbee.ClusterID
	factory ClusterFactory
}

// ID is a generic cluster entry.
func ID(id zigbee.ClusterID) ClusterEntry {
	return ClusterEntry{id: id}
}

// IDs is a list of generic cluster entries.
func IDs(ids ...zigbee.ClusterID) []ClusterEntry {
	entries := make([]ClusterEntry, len(ids))
	for i, id := range ids {
		entries[i] = ID(id)
	}
	return entries
}

// Custom is a specialized cluster entry.
func Custom(f ClusterFactory) ClusterEntry {
	return ClusterEntry{factory: f}
}

// Profile returns a pointer for use in signature and blueprint tables.
func Profile(p zigbee.ProfileID) *zigbee.ProfileID { return &p }

// DeviceType returns a pointer for use in signature and blueprint tables.
func DeviceType(t uint16) *uint16 { return &t }
