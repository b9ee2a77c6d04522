package quirks

import (
	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
)

// FixedProfile frames every outgoing message of an endpoint with one
// profile id, regardless of the profile the endpoint advertises.
type FixedProfile zigbee.ProfileID

func (p FixedProfile) FrameProfile(*device.Endpoint) zigbee.ProfileID {
	return zigbee.ProfileID(p)
}

// HomeAutomation frames messages with the Home Automation profile.
const HomeAutomation FixedProfile = 0x0104
