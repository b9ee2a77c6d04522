package xiaomi

import (
	"context"
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

// heartbeat with 2800 mV battery, 30 degree chip temperature and an
// unrelated uint16 tag.
var heartbeatBytes = []byte{
	0x01, 0x21, 0xF0, 0x0A,
	0x03, 0x28, 0x1E,
	0x04, 0x21, 0x34, 0x12,
}

func TestParseAttributeList(t *testing.T) {
	attrs, err := ParseAttributeList(heartbeatBytes)
	require.NoError(t, err)
	require.Len(t, attrs, 3)
	assert.Contains(t, attrs, uint8(0x01))
	assert.Contains(t, attrs, uint8(0x03))
	assert.Contains(t, attrs, uint8(0x04))
}

func TestDecodeHeartbeat(t *testing.T) {
	for _, value := range []any{heartbeatBytes, string(heartbeatBytes)} {
		s, err := DecodeHeartbeat(0xFF01, value)
		require.NoError(t, err)
		assert.True(t, s.HasVoltage)
		assert.Equal(t, float64(2800), s.Millivolts)
		assert.Equal(t, map[string]float64{"soc_temperature": 30}, s.Derived)
	}
}

func TestDecodeHeartbeatMalformed(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"truncated", []byte{0x01, 0x21, 0xF0}},
		{"not bytes", uint16(2800)},
		{"no known tags", []byte{0x04, 0x21, 0x34, 0x12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeartbeat(0xFF01, tt.value)
			assert.Error(t, err)
		})
	}
}

func catalog(t *testing.T) *quirks.Catalog {
	t.Helper()
	c := quirks.NewCatalog(newTestLogger())
	for _, d := range Descriptors() {
		require.NoError(t, c.Register(d))
	}
	return c
}

func newDevice(eps ...zigbee.EndpointDescription) *device.Device {
	dev := device.New(0x00158D0001234567, 0x0F0F, device.WithLogger(newTestLogger()))
	for _, ep := range eps {
		dev.AddDescribedEndpoint(ep)
	}
	return dev
}

func clusters(v ...zigbee.ClusterID) []zigbee.ClusterID { return v }

func TestAqaraWaterSensorBattery(t *testing.T) {
	dev := newDevice(zigbee.EndpointDescription{
		Endpoint: 1, ProfileID: zigbee.ProfileHomeAutomation, DeviceID: 0x0402,
		InClusterList:  clusters(0x0000, 0x0003, 0x0001),
		OutClusterList: clusters(0x0019),
	})

	got := quirks.Resolve(dev, catalog(t))
	require.Equal(t, "xiaomi.aqara_water", got.Quirk)
	ep, _ := got.Endpoint(1)
	assert.Equal(t, clusters(0x0000, 0x0001, 0x0003, 0x0500), ep.InputClusterIDs())
	assert.Empty(t, ep.OutputClusterIDs(), "replacement declares no output clusters")

	got.Battery.Setup(context.Background(), true)
	assert.Equal(t, device.Unknown, got.Battery.Readings().Percent)

	basic, ok := ep.InputCluster(0x0000)
	require.True(t, ok)
	basic.UpdateAttribute(0x0005, "lumi.sensor_wleak.aq1")
	assert.Equal(t, device.Unknown, got.Battery.Readings().Percent, "model attribute is not battery data")

	basic.UpdateAttribute(0xFF01, heartbeatBytes)
	r := got.Battery.Readings()
	assert.Equal(t, device.Known(60), r.Percent)
	assert.Equal(t, device.Known(2.8), r.Voltage)
	assert.Equal(t, device.Known(30), r.Derived["soc_temperature"])

	assert.NotPanics(t, func() { basic.UpdateAttribute(0xFF02, []byte{0xFF}) })
	assert.Equal(t, device.Known(60), got.Battery.Readings().Percent, "malformed report dropped")
}

func TestTemperatureHumiditySensor(t *testing.T) {
	dev := newDevice(
		zigbee.EndpointDescription{
			Endpoint: 1, ProfileID: zigbee.ProfileHomeAutomation, DeviceID: 0x5F01,
			InClusterList:  clusters(0x0000, 0x0003, 0x0019, 0xFFFF, 0x0012),
			OutClusterList: clusters(0x0000, 0x0004, 0x0003, 0x0005, 0x0019, 0xFFFF, 0x0012),
		},
		zigbee.EndpointDescription{
			Endpoint: 2, ProfileID: zigbee.ProfileHomeAutomation, DeviceID: 0x5F02,
			InClusterList:  clusters(0x0003, 0x0012),
			OutClusterList: clusters(0x0004, 0x0003, 0x0005, 0x0012),
		},
		zigbee.EndpointDescription{
			Endpoint: 3, ProfileID: zigbee.ProfileHomeAutomation, DeviceID: 0x5F03,
			InClusterList:  clusters(0x0003, 0x000C),
			OutClusterList: clusters(0x0004, 0x0003, 0x0005, 0x000C),
		},
	)
	ep, _ := dev.Endpoint(1)
	basic, _ := ep.InputCluster(0x0000)
	basic.UpdateAttribute(0x0005, "lumi.sensor_ht")

	got := quirks.Resolve(dev, catalog(t))
	require.Equal(t, "xiaomi.temperature_humidity", got.Quirk)
	assert.Equal(t, []zigbee.Endpoint{1, 2, 3}, got.EndpointIDs())

	ep, _ = got.Endpoint(1)
	assert.Equal(t, clusters(0x0000, 0x0003, 0x0402, 0x0405), ep.InputClusterIDs())
	assert.Equal(t, uint16(0x5F01), ep.DeviceType)
	basic, _ = ep.InputCluster(0x0000)
	model, ok := basic.Attribute(0x0005)
	require.True(t, ok)
	assert.Equal(t, "lumi.sensor_ht", model)
}

func TestAqaraSignaturesDoNotOverlap(t *testing.T) {
	openClose := newDevice(zigbee.EndpointDescription{
		Endpoint: 1, ProfileID: zigbee.ProfileHomeAutomation, DeviceID: 0x5F01,
		InClusterList:  clusters(0x0000, 0x0003, 0xFFFF, 0x0006),
		OutClusterList: clusters(0x0000, 0x0004, 0xFFFF),
	})
	weather := newDevice(zigbee.EndpointDescription{
		Endpoint: 1, ProfileID: zigbee.ProfileHomeAutomation, DeviceID: 0x5F01,
		InClusterList:  clusters(0x0000, 0x0003, 0xFFFF, 0x0402, 0x0403, 0x0405),
		OutClusterList: clusters(0x0000, 0x0004, 0xFFFF),
	})
	c := catalog(t)
	assert.Equal(t, "xiaomi.aqara_open_close", quirks.Match(openClose, c).Descriptor.Name)
	assert.Equal(t, "xiaomi.aqara_temperature_humidity", quirks.Match(weather, c).Descriptor.Name)
}
