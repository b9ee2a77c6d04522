package quirks

import (
	"context"
	"testing"

	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/zcl"
)

var humidityDef = &zcl.ClusterDef{
	ID:   0xFC45,
	Name: "Vendor Relative Humidity",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "MeasuredValue", Type: zcl.TypeInt16, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

func humidityCluster(ep *device.Endpoint) *device.Cluster {
	return device.NewCluster(ep, 0xFC45, humidityDef)
}

func motionDescriptor() Descriptor {
	return Descriptor{
		Name:       "motion",
		Signatures: []Signature{motionSignature()},
		Replacement: Blueprint{
			1: {
				InputClusters:  IDs(0x0000, 0x0001, 0x0003, 0x0402, 0x0500, 0x0020),
				OutputClusters: IDs(0x0019),
			},
		},
	}
}

func TestRebuildPreservesState(t *testing.T) {
	dev := genericDevice(t, nil, motionEndpoints()...)
	dev.Manufacturer = "Samjin"
	dev.Model = "motion"
	cluster(t, dev, 1, 0x0402).UpdateAttribute(0x0000, int16(2150))
	cluster(t, dev, 1, 0x0B05).UpdateAttribute(0x011C, uint8(200))
	cluster(t, dev, 2, 0xFC46).UpdateAttribute(0x0010, uint8(7))

	got, err := Rebuild(dev, &Descriptor{
		Name:        "motion",
		Signatures:  []Signature{motionSignature()},
		Replacement: motionDescriptor().Replacement,
	})
	require.NoError(t, err)
	require.NotSame(t, dev, got)

	assert.Equal(t, "motion", got.Quirk)
	assert.Equal(t, dev.IEEE, got.IEEE)
	assert.Equal(t, dev.NWK, got.NWK)
	assert.Equal(t, "Samjin", got.Manufacturer)
	assert.Equal(t, []zigbee.Endpoint{1, 2}, got.EndpointIDs())

	v, ok := cluster(t, got, 1, 0x0402).Attribute(0x0000)
	require.True(t, ok, "retained cluster keeps its cache")
	assert.Equal(t, int16(2150), v)

	ep1, _ := got.Endpoint(1)
	_, ok = ep1.InputCluster(0x0B05)
	assert.False(t, ok, "dropped cluster is gone")
	assert.Empty(t, cluster(t, got, 1, 0x0001).Attributes())

	v, ok = cluster(t, got, 2, 0xFC46).Attribute(0x0010)
	require.True(t, ok, "endpoint outside the blueprint keeps its cache")
	assert.Equal(t, uint8(7), v)
	ep2, _ := got.Endpoint(2)
	assert.Equal(t, zigbee.ProfileID(0xC2DF), ep2.ProfileID)
	assert.Equal(t, uint16(0x0107), ep2.DeviceType)
	assert.Equal(t, ids(0x0003), ep2.OutputClusterIDs())
}

func TestRebuildCacheIsCopied(t *testing.T) {
	dev := genericDevice(t, nil, motionEndpoints()...)
	orig := cluster(t, dev, 1, 0x0402)
	orig.UpdateAttribute(0x0000, int16(1))

	got, err := Rebuild(dev, &Descriptor{Name: "motion", Replacement: motionDescriptor().Replacement})
	require.NoError(t, err)

	orig.UpdateAttribute(0x0000, int16(2))
	v, _ := cluster(t, got, 1, 0x0402).Attribute(0x0000)
	assert.Equal(t, int16(1), v)
}

func TestRebuildInheritsAndOverridesFields(t *testing.T) {
	dev := genericDevice(t, nil, zigbee.EndpointDescription{
		Endpoint:      11,
		ProfileID:     0xC05E,
		DeviceID:      0x0210,
		InClusterList: ids(0x0000, 0x0006),
	})
	d := &Descriptor{
		Name: "bulb",
		Replacement: Blueprint{11: {
			Framer:        HomeAutomation,
			InputClusters: IDs(0x0000, 0x0006),
		}},
	}
	got, err := Rebuild(dev, d)
	require.NoError(t, err)

	ep, _ := got.Endpoint(11)
	assert.Equal(t, zigbee.ProfileID(0xC05E), ep.ProfileID, "profile inherited")
	assert.Equal(t, uint16(0x0210), ep.DeviceType, "device type inherited")
	assert.Equal(t, zigbee.ProfileHomeAutomation, ep.MessageProfile())

	d.Replacement[11] = EndpointBlueprint{
		ProfileID:     Profile(zigbee.ProfileHomeAutomation),
		DeviceType:    DeviceType(0x0220),
		InputClusters: IDs(0x0006),
	}
	got, err = Rebuild(dev, d)
	require.NoError(t, err)
	ep, _ = got.Endpoint(11)
	assert.Equal(t, zigbee.ProfileHomeAutomation, ep.ProfileID)
	assert.Equal(t, uint16(0x0220), ep.DeviceType)
	assert.Nil(t, ep.Framer)
}

func TestRebuildCustomCluster(t *testing.T) {
	dev := genericDevice(t, nil, zigbee.EndpointDescription{
		Endpoint:      1,
		ProfileID:     zigbee.ProfileHomeAutomation,
		DeviceID:      0x0302,
		InClusterList: ids(0x0000, 0x0402, 0xFC45),
	})
	cluster(t, dev, 1, 0xFC45).UpdateAttribute(0x0000, int16(4512))

	got, err := Rebuild(dev, &Descriptor{
		Name: "temperature-humidity",
		Replacement: Blueprint{1: {
			InputClusters: []ClusterEntry{ID(0x0000), ID(0x0402), Custom(humidityCluster)},
		}},
	})
	require.NoError(t, err)

	c := cluster(t, got, 1, 0xFC45)
	assert.Equal(t, "Vendor Relative Humidity", c.Name())
	ep, _ := got.Endpoint(1)
	assert.Same(t, ep, c.Endpoint())
	v, ok := c.Attribute(0x0000)
	require.True(t, ok, "specialized cluster inherits the generic cluster's cache")
	assert.Equal(t, int16(4512), v)
}

func TestRebuildAttachesCapabilities(t *testing.T) {
	dev := genericDevice(t, nil, motionEndpoints()...)
	d := motionDescriptor()
	var built *device.Device
	d.Capabilities = func(dev *device.Device) Capabilities {
		built = dev
		return Capabilities{Battery: NewBattery(dev, BatteryConfig{Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020}})}
	}

	got, err := Rebuild(dev, &d)
	require.NoError(t, err)
	assert.Same(t, got, built)
	require.NotNil(t, got.Battery)
	assert.Nil(t, got.Commands)
	assert.Nil(t, dev.Battery, "original is untouched")
}

func TestRebuildBrokenDescriptor(t *testing.T) {
	stray := func(ep *device.Endpoint) *device.Cluster {
		other := ep.Device().AddEndpoint(200, 0, 0)
		return device.NewCluster(other, 0xFC45, nil)
	}
	tests := []struct {
		name string
		bp   Blueprint
	}{
		{"factory returns nil", Blueprint{1: {InputClusters: []ClusterEntry{Custom(func(*device.Endpoint) *device.Cluster { return nil })}}}},
		{"factory binds elsewhere", Blueprint{1: {OutputClusters: []ClusterEntry{Custom(stray)}}}},
		{"unknown endpoint", Blueprint{7: {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := genericDevice(t, nil, motionEndpoints()...)
			_, err := Rebuild(dev, &Descriptor{Name: "broken", Replacement: tt.bp})
			assert.ErrorIs(t, err, ErrBadDescriptor)
		})
	}
}

func TestResolvePanicsOnBrokenDescriptor(t *testing.T) {
	c := NewCatalog(newTestLogger())
	c.MustRegister(Descriptor{
		Name:       "broken",
		Signatures: []Signature{motionSignature()},
		Replacement: Blueprint{1: {
			InputClusters: []ClusterEntry{Custom(func(*device.Endpoint) *device.Cluster { return nil })},
		}},
	})
	dev := genericDevice(t, nil, motionEndpoints()...)
	assert.Panics(t, func() { Resolve(dev, c) })
}

func TestResolveRebuildsMatch(t *testing.T) {
	c := catalogOf(t, motionDescriptor())
	dev := genericDevice(t, nil, motionEndpoints()...)

	got := Resolve(dev, c)
	require.NotSame(t, dev, got)
	assert.Equal(t, "motion", got.Quirk)
	assert.False(t, Match(got, c).Matched(), "the rebuilt topology no longer matches the generic signature")
}

func TestResolveCommandHandlerDefault(t *testing.T) {
	c := catalogOf(t, motionDescriptor())
	got := Resolve(genericDevice(t, nil, motionEndpoints()...), c)
	assert.NoError(t, got.HandleCommand(context.Background(), device.Command{ClusterID: 0x0006}))
}

func TestMergeEndpoint(t *testing.T) {
	dev := genericDevice(t, nil, zigbee.EndpointDescription{Endpoint: 1, ProfileID: 0xC05E, DeviceID: 0x0100})
	orig, _ := dev.Endpoint(1)

	r := mergeEndpoint(EndpointBlueprint{InputClusters: IDs(0x0006)}, orig)
	assert.Equal(t, zigbee.ProfileID(0xC05E), r.profileID)
	assert.Equal(t, uint16(0x0100), r.deviceType)
	assert.Nil(t, r.framer)
	assert.Len(t, r.in, 1)
	assert.Empty(t, r.out)

	r = mergeEndpoint(EndpointBlueprint{ProfileID: Profile(0x0104), DeviceType: DeviceType(0x0101), Framer: HomeAutomation}, orig)
	assert.Equal(t, zigbee.ProfileID(0x0104), r.profileID)
	assert.Equal(t, uint16(0x0101), r.deviceType)
	assert.Equal(t, device.Framer(HomeAutomation), r.framer)
}
