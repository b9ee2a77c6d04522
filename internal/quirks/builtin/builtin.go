// Package builtin registers every vendor quirk shipped with the program.
package builtin

import (
	"zigbee-quirks/internal/quirks"
	"zigbee-quirks/internal/quirks/ikea"
	"zigbee-quirks/internal/quirks/philips"
	"zigbee-quirks/internal/quirks/smartthings"
	"zigbee-quirks/internal/quirks/xiaomi"
)

// Register adds all vendor quirks to c. Vendor order decides which quirk
// wins when signatures overlap.
func Register(c *quirks.Catalog) {
	for _, vendor := range [][]quirks.Descriptor{
		smartthings.Descriptors(),
		xiaomi.Descriptors(),
		philips.Descriptors(),
		ikea.Descriptors(),
	} {
		for _, d := range vendor {
			c.MustRegister(d)
		}
	}
}

