// Package ikea holds the IKEA Tradfri bulb quirks. The bulbs advertise the
// Light Link profile but must be addressed with Home Automation framing.
package ikea

import (
	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/quirks"
)

const profileLightLink zigbee.ProfileID = 0xC05E

var (
	bulbInput  = []zigbee.ClusterID{0x0000, 0x0003, 0x0004, 0x0005, 0x0006, 0x0008, 0x0300, 0x0B05, 0x1000}
	bulbOutput = []zigbee.ClusterID{0x0005, 0x0019, 0x0020, 0x1000}
)

func bulb(name string, deviceType uint16) quirks.Descriptor {
	return quirks.Descriptor{
		Name: name,
		Signatures: []quirks.Signature{{
			1: {
				ProfileID:      quirks.Profile(profileLightLink),
				DeviceType:     quirks.DeviceType(deviceType),
				InputClusters:  bulbInput,
				OutputClusters: bulbOutput,
			},
		}},
		Replacement: quirks.Blueprint{
			1: {
				Framer:         quirks.HomeAutomation,
				InputClusters:  quirks.IDs(bulbInput...),
				OutputClusters: quirks.IDs(bulbOutput...),
			},
		},
	}
}

var (
	TuneableWhiteBulb = bulb("ikea.tradfri_tuneable_white", 0x0220)
	ColorBulb         = bulb("ikea.tradfri_color", 0x0200)
)

// Descriptors returns the IKEA quirks in match priority order.
func Descriptors() []quirks.Descriptor {
	return []quirks.Descriptor{TuneableWhiteBulb, ColorBulb}
}
