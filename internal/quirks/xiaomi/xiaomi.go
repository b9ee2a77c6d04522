// Package xiaomi holds the Xiaomi and Aqara sensor quirks. These devices
// report battery through a heartbeat on the Basic cluster rather than the
// Power Configuration cluster.
package xiaomi

import (
	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/quirks"
)

const (
	clusterBasic        zigbee.ClusterID = 0x0000
	clusterPower        zigbee.ClusterID = 0x0001
	clusterIdentify     zigbee.ClusterID = 0x0003
	clusterGroups       zigbee.ClusterID = 0x0004
	clusterScenes       zigbee.ClusterID = 0x0005
	clusterOnOff        zigbee.ClusterID = 0x0006
	clusterAnalogInput  zigbee.ClusterID = 0x000C
	clusterMultistate   zigbee.ClusterID = 0x0012
	clusterOTA          zigbee.ClusterID = 0x0019
	clusterTemperature  zigbee.ClusterID = 0x0402
	clusterPressure     zigbee.ClusterID = 0x0403
	clusterHumidity     zigbee.ClusterID = 0x0405
	clusterIASZone      zigbee.ClusterID = 0x0500
	clusterManufacturer zigbee.ClusterID = 0xFFFF
)

// Battery decodes the Basic cluster heartbeat between 2.5 V and 3.0 V.
func Battery(dev *device.Device) *quirks.Battery {
	return quirks.NewBattery(dev, quirks.BatteryConfig{
		Endpoint:      1,
		Cluster:       clusterBasic,
		Attributes:    []uint16{0xFF01, 0xFF02},
		Decode:        DecodeHeartbeat,
		MinMillivolts: 2500,
		MaxMillivolts: 3000,
	})
}

func heartbeat(dev *device.Device) quirks.Capabilities {
	return quirks.Capabilities{Battery: Battery(dev)}
}

func ha(deviceType uint16, in, out []zigbee.ClusterID) quirks.EndpointSignature {
	return quirks.EndpointSignature{
		ProfileID:      quirks.Profile(zigbee.ProfileHomeAutomation),
		DeviceType:     quirks.DeviceType(deviceType),
		InputClusters:  in,
		OutputClusters: out,
	}
}

var TemperatureHumiditySensor = quirks.Descriptor{
	Name: "xiaomi.temperature_humidity",
	Signatures: []quirks.Signature{{
		1: ha(0x5F01,
			[]zigbee.ClusterID{clusterBasic, clusterIdentify, clusterOTA, clusterManufacturer, clusterMultistate},
			[]zigbee.ClusterID{clusterBasic, clusterGroups, clusterIdentify, clusterScenes, clusterOTA, clusterManufacturer, clusterMultistate},
		),
		2: ha(0x5F02,
			[]zigbee.ClusterID{clusterIdentify, clusterMultistate},
			[]zigbee.ClusterID{clusterGroups, clusterIdentify, clusterScenes, clusterMultistate},
		),
		3: ha(0x5F03,
			[]zigbee.ClusterID{clusterIdentify, clusterAnalogInput},
			[]zigbee.ClusterID{clusterGroups, clusterIdentify, clusterScenes, clusterAnalogInput},
		),
	}},
	Replacement: quirks.Blueprint{
		1: {
			InputClusters: quirks.IDs(clusterBasic, clusterIdentify, clusterTemperature, clusterHumidity),
		},
	},
	Capabilities: heartbeat,
}

var AqaraTemperatureHumiditySensor = quirks.Descriptor{
	Name: "xiaomi.aqara_temperature_humidity",
	Signatures: []quirks.Signature{{
		1: ha(0x5F01,
			[]zigbee.ClusterID{clusterBasic, clusterIdentify, clusterManufacturer, clusterTemperature, clusterPressure, clusterHumidity},
			[]zigbee.ClusterID{clusterBasic, clusterGroups, clusterManufacturer},
		),
	}},
	Replacement: quirks.Blueprint{
		1: {
			InputClusters: quirks.IDs(clusterBasic, clusterIdentify, clusterTemperature, clusterPressure, clusterHumidity),
		},
	},
	Capabilities: heartbeat,
}

var AqaraOpenCloseSensor = quirks.Descriptor{
	Name: "xiaomi.aqara_open_close",
	Signatures: []quirks.Signature{{
		1: ha(0x5F01,
			[]zigbee.ClusterID{clusterBasic, clusterIdentify, clusterManufacturer, clusterOnOff},
			[]zigbee.ClusterID{clusterBasic, clusterGroups, clusterManufacturer},
		),
	}},
	Replacement: quirks.Blueprint{
		1: {
			InputClusters: quirks.IDs(clusterBasic, clusterIdentify, clusterOnOff),
		},
	},
	Capabilities: heartbeat,
}

var AqaraWaterSensor = quirks.Descriptor{
	Name: "xiaomi.aqara_water",
	Signatures: []quirks.Signature{{
		1: ha(0x0402,
			[]zigbee.ClusterID{clusterBasic, clusterIdentify, clusterPower},
			[]zigbee.ClusterID{clusterOTA},
		),
	}},
	Replacement: quirks.Blueprint{
		1: {
			InputClusters: quirks.IDs(clusterBasic, clusterIdentify, clusterPower, clusterIASZone),
		},
	},
	Capabilities: heartbeat,
}

// Descriptors returns the Xiaomi quirks in match priority order.
func Descriptors() []quirks.Descriptor {
	return []quirks.Descriptor{
		TemperatureHumiditySensor,
		AqaraTemperatureHumiditySensor,
		AqaraOpenCloseSensor,
		AqaraWaterSensor,
	}
}
