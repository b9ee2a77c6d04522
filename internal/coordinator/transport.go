package coordinator

import (
	"context"
	"fmt"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/ncp"
	"zigbee-quirks/internal/zcl"
)

// Coordinator is the transport of every device it hosts.
var _ device.Transport = (*Coordinator)(nil)

// Request sends a framed payload to a device endpoint.
func (c *Coordinator) Request(ctx context.Context, f device.Frame) error {
	if !c.Online() {
		return ErrOffline
	}
	return c.ncp.SendAPS(ctx, apsRequest(f))
}

// Reply answers a device with a framed payload. Replies are never acked.
func (c *Coordinator) Reply(ctx context.Context, f device.Frame) error {
	if !c.Online() {
		return ErrOffline
	}
	req := apsRequest(f)
	req.AckReq = false
	return c.ncp.SendAPS(ctx, req)
}

func apsRequest(f device.Frame) ncp.APSRequest {
	return ncp.APSRequest{
		DstAddr:   uint16(f.NWK),
		DstEP:     uint8(f.DstEndpoint),
		SrcEP:     uint8(f.SrcEndpoint),
		ProfileID: uint16(f.ProfileID),
		ClusterID: uint16(f.ClusterID),
		Payload:   f.Data,
		AckReq:    f.ExpectReply,
	}
}

// Command sends a cluster-specific command.
func (c *Coordinator) Command(ctx context.Context, req device.CommandRequest) error {
	if !c.Online() {
		return ErrOffline
	}
	return c.ncp.SendCommand(ctx, ncp.ClusterCommandRequest{
		DstAddr:   uint16(req.NWK),
		DstEP:     uint8(req.Endpoint),
		ProfileID: uint16(req.ProfileID),
		ClusterID: uint16(req.ClusterID),
		CommandID: req.CommandID,
		Payload:   req.Payload,
	})
}

// ReadAttributes reads attributes from a device cluster and decodes the
// values. A value that fails to decode is reported with a failure status.
func (c *Coordinator) ReadAttributes(ctx context.Context, req device.ReadRequest) ([]device.AttributeRecord, error) {
	if !c.Online() {
		return nil, ErrOffline
	}
	if c.config.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		defer cancel()
	}

	responses, err := c.ncp.ReadAttributes(ctx, ncp.ReadAttributesRequest{
		DstAddr:   uint16(req.NWK),
		DstEP:     uint8(req.Endpoint),
		ProfileID: uint16(req.ProfileID),
		ClusterID: uint16(req.ClusterID),
		AttrIDs:   req.AttrIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("read attributes: %w", err)
	}

	records := make([]device.AttributeRecord, 0, len(responses))
	for _, r := range responses {
		rec := device.AttributeRecord{ID: r.AttrID, Status: r.Status}
		if r.Status == zcl.ZCLStatusSuccess {
			val, _, err := zcl.DecodeValue(r.DataType, r.Value)
			if err != nil {
				c.logger.Warn("decode attribute",
					"cluster", fmt.Sprintf("0x%04X", uint16(req.ClusterID)),
					"attr", fmt.Sprintf("0x%04X", r.AttrID),
					"type", zcl.TypeName(r.DataType),
					"err", err,
				)
				rec.Status = zcl.ZCLStatusFailure
			} else {
				rec.Value = val
			}
		}
		records = append(records, rec)
	}
	if req.IEEE != 0 {
		c.devices.persistRead(device.IEEEString(req.IEEE), uint8(req.Endpoint), uint16(req.ClusterID), records)
	}
	return records, nil
}

// Bind binds a device cluster to endpoint 1 of the coordinator.
func (c *Coordinator) Bind(ctx context.Context, req device.BindRequest) error {
	if !c.Online() {
		return ErrOffline
	}
	return c.ncp.Bind(ctx, ncp.BindRequest{
		TargetShortAddr: uint16(req.NWK),
		SrcIEEE:         ieeeBytes(req.IEEE),
		SrcEP:           uint8(req.Endpoint),
		ClusterID:       uint16(req.ClusterID),
		DstIEEE:         c.localIEEE,
		DstEP:           1,
	})
}
