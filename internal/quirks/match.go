package quirks

import (
	"fmt"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
)

// MatchResult is the outcome of matching a device against a catalog.
type MatchResult struct {
	Descriptor *Descriptor
	// Alternative is the index of the signature that matched.
	Alternative int
}

func (m MatchResult) Matched() bool { return m.Descriptor != nil }

// Match returns the first descriptor, in registration order, with a
// signature alternative that fits the device. It does no I/O.
func Match(dev *device.Device, c *Catalog) MatchResult {
	logger := c.logger.With("ieee", device.IEEEString(dev.IEEE))
	for _, d := range c.descriptors {
		for i, sig := range d.Signatures {
			reason := mismatch(dev, sig)
			if reason == "" {
				logger.Debug("quirk matched", "name", d.Name, "alternative", i)
				return MatchResult{Descriptor: d, Alternative: i}
			}
			logger.Debug("quirk rejected", "name", d.Name, "alternative", i, "reason", reason)
		}
	}
	return MatchResult{}
}

// mismatch returns why sig does not fit dev, or "" when it does.
func mismatch(dev *device.Device, sig Signature) string {
	ids := dev.EndpointIDs()
	if len(ids) != len(sig) {
		return fmt.Sprintf("endpoint count %d, want %d", len(ids), len(sig))
	}
	for _, id := range ids {
		if _, ok := sig[id]; !ok {
			return fmt.Sprintf("endpoint %d not in signature", id)
		}
	}

	for _, id := range ids {
		ep, _ := dev.Endpoint(id)
		want := sig[id]
		if want.ProfileID != nil && *want.ProfileID != ep.ProfileID {
			return fmt.Sprintf("endpoint %d profile 0x%04X, want 0x%04X", id, uint16(ep.ProfileID), uint16(*want.ProfileID))
		}
		if want.DeviceType != nil && *want.DeviceType != ep.DeviceType {
			return fmt.Sprintf("endpoint %d device type 0x%04X, want 0x%04X", id, ep.DeviceType, *want.DeviceType)
		}
		if !sameClusters(ep.InputClusterIDs(), want.InputClusters) {
			return fmt.Sprintf("endpoint %d input clusters differ", id)
		}
		if !sameClusters(ep.OutputClusterIDs(), want.OutputClusters) {
			return fmt.Sprintf("endpoint %d output clusters differ", id)
		}
	}
	return ""
}

// sameClusters compares as sets, ignoring order and repeats.
func sameClusters(have, want []zigbee.ClusterID) bool {
	h := make(map[zigbee.ClusterID]struct{}, len(have))
	for _, id := range have {
		h[id] = struct{}{}
	}
	w := make(map[zigbee.ClusterID]struct{}, len(want))
	for _, id := range want {
		if _, ok := h[id]; !ok {
			return false
		}
		w[id] = struct{}{}
	}
	return len(h) == len(w)
}
