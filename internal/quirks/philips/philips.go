// Package philips holds the Philips Hue quirks.
package philips

import (
	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/quirks"
)

var hueInput = []zigbee.ClusterID{0x0000, 0x0003, 0x0004, 0x0005, 0x0006, 0x0008, 0x0300, 0x1000, 0xFC01}

// ColorBulb is a Hue color bulb: a Green Power proxy on endpoint 242 and
// the light on endpoint 11, which is addressed with Home Automation
// framing even though it advertises Light Link.
var ColorBulb = quirks.Descriptor{
	Name: "philips.hue_color",
	Signatures: []quirks.Signature{{
		242: {
			ProfileID:      quirks.Profile(0xA1E0),
			DeviceType:     quirks.DeviceType(0x0061),
			InputClusters:  []zigbee.ClusterID{0x0021},
			OutputClusters: []zigbee.ClusterID{0x0021},
		},
		11: {
			ProfileID:      quirks.Profile(0xC05E),
			DeviceType:     quirks.DeviceType(0x0210),
			InputClusters:  hueInput,
			OutputClusters: []zigbee.ClusterID{0x0019},
		},
	}},
	Replacement: quirks.Blueprint{
		11: {
			Framer:         quirks.HomeAutomation,
			InputClusters:  quirks.IDs(hueInput...),
			OutputClusters: quirks.IDs(0x0019),
		},
	},
}

func Descriptors() []quirks.Descriptor {
	return []quirks.Descriptor{ColorBulb}
}
