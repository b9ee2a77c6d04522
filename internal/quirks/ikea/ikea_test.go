package ikea

import (
	"log/slog"
	"os"
	"testing"

	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/quirks"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func bulbDevice(deviceType uint16) *device.Device {
	dev := device.New(0x000D6FFFFE123456, 0x2222, device.WithLogger(newTestLogger()))
	dev.AddDescribedEndpoint(zigbee.EndpointDescription{
		Endpoint:       1,
		ProfileID:      profileLightLink,
		DeviceID:       deviceType,
		InClusterList:  bulbInput,
		OutClusterList: bulbOutput,
	})
	return dev
}

func TestBulbs(t *testing.T) {
	c := quirks.NewCatalog(newTestLogger())
	for _, d := range Descriptors() {
		require.NoError(t, c.Register(d))
	}

	tests := []struct {
		deviceType uint16
		quirk      string
	}{
		{0x0220, "ikea.tradfri_tuneable_white"},
		{0x0200, "ikea.tradfri_color"},
		{0x0100, ""},
	}
	for _, tt := range tests {
		dev := quirks.Resolve(bulbDevice(tt.deviceType), c)
		assert.Equal(t, tt.quirk, dev.Quirk)

		ep, ok := dev.Endpoint(1)
		require.True(t, ok)
		assert.Equal(t, tt.deviceType, ep.DeviceType)
		if tt.quirk == "" {
			assert.Equal(t, profileLightLink, ep.MessageProfile())
			continue
		}
		assert.Equal(t, zigbee.ProfileID(0x0104), ep.MessageProfile())
		assert.Equal(t, bulbInput, ep.InputClusterIDs())
		assert.Equal(t, bulbOutput, ep.OutputClusterIDs())
	}
}
