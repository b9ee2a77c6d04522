package device

import (
	"context"
	"errors"

	"github.com/shimmeringbee/zigbee"
)

// ErrNoTransport is returned by operations on a device that has no transport.
var ErrNoTransport = errors.New("device: no transport")

// ErrUnknownCluster is returned when an operation names a cluster the
// endpoint does not carry.
var ErrUnknownCluster = errors.New("device: unknown cluster")

// Frame is an application payload addressed to one endpoint of a node.
type Frame struct {
	NWK         zigbee.NetworkAddress
	ProfileID   zigbee.ProfileID
	ClusterID   zigbee.ClusterID
	SrcEndpoint zigbee.Endpoint
	DstEndpoint zigbee.Endpoint
	Sequence    uint8
	Data        []byte
	ExpectReply bool
}

// CommandRequest is a cluster-specific command sent to a node.
type CommandRequest struct {
	NWK       zigbee.NetworkAddress
	ProfileID zigbee.ProfileID
	ClusterID zigbee.ClusterID
	Endpoint  zigbee.Endpoint
	CommandID uint8
	Payload   []byte
}

// ReadRequest asks a node for the current value of attributes.
type ReadRequest struct {
	IEEE      zigbee.IEEEAddress
	NWK       zigbee.NetworkAddress
	ProfileID zigbee.ProfileID
	ClusterID zigbee.ClusterID
	Endpoint  zigbee.Endpoint
	AttrIDs   []uint16
}

// AttributeRecord is one decoded entry of a read attributes response.
type AttributeRecord struct {
	ID     uint16
	Status uint8
	Value  any
}

// BindRequest binds a cluster of a node to the coordinator.
type BindRequest struct {
	IEEE      zigbee.IEEEAddress
	NWK       zigbee.NetworkAddress
	Endpoint  zigbee.Endpoint
	ClusterID zigbee.ClusterID
}

// Transport is the messaging surface a device uses to reach the network.
// It is provided by the hosting runtime.
type Transport interface {
	Request(ctx context.Context, f Frame) error
	Reply(ctx context.Context, f Frame) error
	Command(ctx context.Context, req CommandRequest) error
	ReadAttributes(ctx context.Context, req ReadRequest) ([]AttributeRecord, error)
	Bind(ctx context.Context, req BindRequest) error
}
