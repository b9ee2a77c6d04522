// Package smartthings holds the SmartThings sensor quirks.
package smartthings

import (
	"time"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/quirks"
	"zigbee-quirks/internal/zcl"
)

const (
	clusterBasic       zigbee.ClusterID = 0x0000
	clusterPower       zigbee.ClusterID = 0x0001
	clusterIdentify    zigbee.ClusterID = 0x0003
	clusterBinaryInput zigbee.ClusterID = 0x000F
	clusterOTA         zigbee.ClusterID = 0x0019
	clusterPollControl zigbee.ClusterID = 0x0020
	clusterTemperature zigbee.ClusterID = 0x0402
	clusterIASZone     zigbee.ClusterID = 0x0500
	clusterDiagnostics zigbee.ClusterID = 0x0B05
	clusterAccel       zigbee.ClusterID = 0xFC46
	clusterHumidity    zigbee.ClusterID = 0xFC45

	profileSmartThings zigbee.ProfileID = 0xC2DF
)

// HumidityDef is the vendor relative humidity cluster reported by the
// SmartThings temperature/humidity sensor instead of the standard 0x0405.
var HumidityDef = zcl.ClusterDef{
	ID:   uint16(clusterHumidity),
	Name: "SmartThings Relative Humidity",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "MeasuredValue", Type: zcl.TypeInt16, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

func humidityCluster(ep *device.Endpoint) *device.Cluster {
	def := HumidityDef
	return device.NewCluster(ep, clusterHumidity, &def)
}

// Battery reads PowerConfiguration BatteryVoltage (units of 100 mV) and
// scales it between 1.5 V and 2.8 V.
func Battery(dev *device.Device) *quirks.Battery {
	return quirks.NewBattery(dev, quirks.BatteryConfig{
		Endpoint:      1,
		Cluster:       clusterPower,
		Attributes:    []uint16{0x0020},
		Decode:        quirks.ScaledAttribute(100),
		MinMillivolts: 1500,
		MaxMillivolts: 2800,
		BindOnJoin:    true,
		ReadOnSetup:   true,
		Read:          quirks.RetryPolicy{Attempts: 3, Delay: 2 * time.Second},
	})
}

func batteryOnly(dev *device.Device) quirks.Capabilities {
	return quirks.Capabilities{Battery: Battery(dev)}
}

var MotionSensor = quirks.Descriptor{
	Name: "smartthings.motion",
	Signatures: []quirks.Signature{{
		1: {
			ProfileID:  quirks.Profile(zigbee.ProfileHomeAutomation),
			DeviceType: quirks.DeviceType(0x0402),
			InputClusters: []zigbee.ClusterID{
				clusterBasic, clusterPower, clusterIdentify, clusterTemperature,
				clusterIASZone, clusterPollControl, clusterDiagnostics,
			},
			OutputClusters: []zigbee.ClusterID{clusterOTA},
		},
		2: {
			ProfileID:      quirks.Profile(profileSmartThings),
			DeviceType:     quirks.DeviceType(0x0107),
			InputClusters:  []zigbee.ClusterID{clusterBasic, clusterPower, clusterIdentify, clusterDiagnostics, clusterAccel},
			OutputClusters: []zigbee.ClusterID{clusterIdentify},
		},
	}},
	Replacement: quirks.Blueprint{
		1: {
			InputClusters: quirks.IDs(
				clusterBasic, clusterPower, clusterIdentify, clusterTemperature,
				clusterIASZone, clusterPollControl, clusterDiagnostics,
			),
			OutputClusters: quirks.IDs(clusterOTA),
		},
	},
	Capabilities: batteryOnly,
}

var TemperatureHumiditySensor = quirks.Descriptor{
	Name: "smartthings.temperature_humidity",
	Signatures: []quirks.Signature{{
		1: {
			ProfileID:  quirks.Profile(zigbee.ProfileHomeAutomation),
			DeviceType: quirks.DeviceType(0x0302),
			InputClusters: []zigbee.ClusterID{
				clusterBasic, clusterPower, clusterIdentify, clusterPollControl,
				clusterTemperature, clusterDiagnostics, clusterHumidity,
			},
			OutputClusters: []zigbee.ClusterID{clusterIdentify, clusterOTA},
		},
	}},
	Replacement: quirks.Blueprint{
		1: {
			InputClusters: []quirks.ClusterEntry{
				quirks.ID(clusterBasic),
				quirks.ID(clusterPower),
				quirks.ID(clusterIdentify),
				quirks.ID(clusterTemperature),
				quirks.ID(clusterDiagnostics),
				quirks.Custom(humidityCluster),
			},
			OutputClusters: quirks.IDs(clusterIdentify, clusterOTA),
		},
	},
	Capabilities: batteryOnly,
}

var ArrivalSensor = quirks.Descriptor{
	Name: "smartthings.arrival",
	Signatures: []quirks.Signature{{
		1: {
			ProfileID:      quirks.Profile(zigbee.ProfileHomeAutomation),
			DeviceType:     quirks.DeviceType(0x000C),
			InputClusters:  []zigbee.ClusterID{clusterBasic, clusterPower, clusterIdentify, clusterBinaryInput, clusterPollControl},
			OutputClusters: []zigbee.ClusterID{clusterIdentify, clusterOTA},
		},
	}},
	Replacement: quirks.Blueprint{
		1: {
			InputClusters:  quirks.IDs(clusterBasic, clusterPower, clusterIdentify, clusterBinaryInput, clusterPollControl),
			OutputClusters: quirks.IDs(clusterIdentify, clusterOTA),
		},
	},
	Capabilities: func(dev *device.Device) quirks.Capabilities {
		return quirks.Capabilities{
			Battery:  Battery(dev),
			Commands: NewArrival(BeepRetry),
		}
	},
}

// Descriptors returns the SmartThings quirks in match priority order.
func Descriptors() []quirks.Descriptor {
	return []quirks.Descriptor{MotionSensor, TemperatureHumiditySensor, ArrivalSensor}
}
