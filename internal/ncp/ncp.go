// Package ncp defines the interface to the Zigbee network co-processor the
// coordinator drives. Drivers live outside this module.
package ncp

import "context"

// NCP is the abstract interface for a Zigbee NCP device.
type NCP interface {
	GetLocalIEEE(ctx context.Context) ([8]byte, error)

	// ZDO
	ActiveEndpoints(ctx context.Context, shortAddr uint16) ([]uint8, error)
	SimpleDescriptor(ctx context.Context, shortAddr uint16, endpoint uint8) (*SimpleDescriptor, error)
	Bind(ctx context.Context, req BindRequest) error
	MgmtLeave(ctx context.Context, shortAddr uint16, ieeeAddr [8]byte) error

	// ZCL
	ReadAttributes(ctx context.Context, req ReadAttributesRequest) ([]AttributeResponse, error)
	SendCommand(ctx context.Context, req ClusterCommandRequest) error

	// SendAPS sends an already framed payload.
	SendAPS(ctx context.Context, req APSRequest) error

	// Indication callbacks
	OnDeviceJoined(handler func(DeviceJoinedEvent))
	OnDeviceLeft(handler func(DeviceLeftEvent))
	OnDeviceAnnounce(handler func(DeviceAnnounceEvent))
	OnAttributeReport(handler func(AttributeReportEvent))
	OnClusterCommand(handler func(ClusterCommandEvent))

	Close() error
}

// SimpleDescriptor describes an endpoint.
type SimpleDescriptor struct {
	Endpoint    uint8
	ProfileID   uint16
	DeviceID    uint16
	InClusters  []uint16
	OutClusters []uint16
}

// BindRequest is a ZDO bind request.
type BindRequest struct {
	TargetShortAddr uint16
	SrcIEEE         [8]byte
	SrcEP           uint8
	ClusterID       uint16
	DstIEEE         [8]byte
	DstEP           uint8
}

// ReadAttributesRequest specifies which attributes to read.
type ReadAttributesRequest struct {
	DstAddr   uint16
	DstEP     uint8
	ProfileID uint16
	ClusterID uint16
	AttrIDs   []uint16
}

// AttributeResponse holds a single attribute read result. Value is the
// raw ZCL encoding of DataType.
type AttributeResponse struct {
	AttrID   uint16
	Status   uint8
	DataType uint8
	Value    []byte
}

// ClusterCommandRequest sends a cluster-specific command.
type ClusterCommandRequest struct {
	DstAddr   uint16
	DstEP     uint8
	ProfileID uint16
	ClusterID uint16
	CommandID uint8
	Payload   []byte
}

// APSRequest is an APS data request carrying a complete ZCL frame.
type APSRequest struct {
	DstAddr   uint16
	DstEP     uint8
	SrcEP     uint8
	ProfileID uint16
	ClusterID uint16
	Payload   []byte
	AckReq    bool
}

// DeviceJoinedEvent is emitted when a device joins the network.
type DeviceJoinedEvent struct {
	ShortAddr uint16
	IEEEAddr  [8]byte
}

// DeviceLeftEvent is emitted when a device leaves.
type DeviceLeftEvent struct {
	ShortAddr uint16
	IEEEAddr  [8]byte
}

// DeviceAnnounceEvent is emitted on device announce.
type DeviceAnnounceEvent struct {
	ShortAddr  uint16
	IEEEAddr   [8]byte
	Capability uint8
}

// AttributeReportEvent is emitted for unsolicited attribute reports.
type AttributeReportEvent struct {
	SrcAddr   uint16
	SrcEP     uint8
	ClusterID uint16
	AttrID    uint16
	DataType  uint8
	Value     []byte
	LQI       uint8
	RSSI      int8
}

// ClusterCommandEvent is emitted for incoming cluster-specific commands.
// FromServer is set when the server side of the cluster sent it
// (e.g. a poll control check-in).
type ClusterCommandEvent struct {
	SrcAddr    uint16
	SrcEP      uint8
	ClusterID  uint16
	CommandID  uint8
	FromServer bool
	Payload    []byte
	LQI        uint8
	RSSI       int8
}
