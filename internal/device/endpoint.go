package device

import (
	"context"
	"fmt"
	"sort"

	"github.com/shimmeringbee/zigbee"
)

// Endpoint is one application endpoint of a device with its input (server)
// and output (client) clusters.
type Endpoint struct {
	ID         zigbee.Endpoint
	ProfileID  zigbee.ProfileID
	DeviceType uint16
	// Framer overrides the profile id stamped on outgoing frames.
	Framer Framer

	device *Device
	in     map[zigbee.ClusterID]*Cluster
	out    map[zigbee.ClusterID]*Cluster
}

func (e *Endpoint) Device() *Device { return e.device }

// AddInputCluster installs a generic input cluster.
func (e *Endpoint) AddInputCluster(id zigbee.ClusterID) *Cluster {
	c := NewCluster(e, id, e.device.lookupDef(id))
	e.in[id] = c
	return c
}

// AddOutputCluster installs a generic output cluster.
func (e *Endpoint) AddOutputCluster(id zigbee.ClusterID) *Cluster {
	c := NewCluster(e, id, e.device.lookupDef(id))
	e.out[id] = c
	return c
}

// InstallInputCluster installs a prebuilt cluster. The cluster must have
// been created for this endpoint.
func (e *Endpoint) InstallInputCluster(c *Cluster) error {
	if err := e.owns(c); err != nil {
		return err
	}
	e.in[c.ID()] = c
	return nil
}

// InstallOutputCluster installs a prebuilt cluster. The cluster must have
// been created for this endpoint.
func (e *Endpoint) InstallOutputCluster(c *Cluster) error {
	if err := e.owns(c); err != nil {
		return err
	}
	e.out[c.ID()] = c
	return nil
}

func (e *Endpoint) owns(c *Cluster) error {
	if c == nil {
		return fmt.Errorf("endpoint %d: nil cluster", e.ID)
	}
	if c.endpoint != e {
		return fmt.Errorf("endpoint %d: cluster 0x%04X belongs to another endpoint", e.ID, uint16(c.ID()))
	}
	return nil
}

// InputCluster returns the input cluster with the given id.
func (e *Endpoint) InputCluster(id zigbee.ClusterID) (*Cluster, bool) {
	c, ok := e.in[id]
	return c, ok
}

// OutputCluster returns the output cluster with the given id.
func (e *Endpoint) OutputCluster(id zigbee.ClusterID) (*Cluster, bool) {
	c, ok := e.out[id]
	return c, ok
}

func (e *Endpoint) InputClusterIDs() []zigbee.ClusterID { return sortedIDs(e.in) }

func (e *Endpoint) OutputClusterIDs() []zigbee.ClusterID { return sortedIDs(e.out) }

func sortedIDs(m map[zigbee.ClusterID]*Cluster) []zigbee.ClusterID {
	ids := make([]zigbee.ClusterID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MessageProfile is the profile id used for outgoing frames: the framer's
// choice when one is attached, otherwise the discovered profile.
func (e *Endpoint) MessageProfile() zigbee.ProfileID {
	if e.Framer != nil {
		return e.Framer.FrameProfile(e)
	}
	return e.ProfileID
}

// Request sends data for cluster from this endpoint to the same endpoint
// on the node.
func (e *Endpoint) Request(ctx context.Context, cluster zigbee.ClusterID, seq uint8, data []byte, expectReply bool) error {
	t := e.device.transport
	if t == nil {
		return ErrNoTransport
	}
	return t.Request(ctx, e.frame(cluster, seq, data, expectReply))
}

// Reply sends a response frame; no answer is expected.
func (e *Endpoint) Reply(ctx context.Context, cluster zigbee.ClusterID, seq uint8, data []byte) error {
	t := e.device.transport
	if t == nil {
		return ErrNoTransport
	}
	return t.Reply(ctx, e.frame(cluster, seq, data, false))
}

func (e *Endpoint) frame(cluster zigbee.ClusterID, seq uint8, data []byte, expectReply bool) Frame {
	return Frame{
		NWK:         e.device.NWK,
		ProfileID:   e.MessageProfile(),
		ClusterID:   cluster,
		SrcEndpoint: e.ID,
		DstEndpoint: e.ID,
		Sequence:    seq,
		Data:        data,
		ExpectReply: expectReply,
	}
}
