package clusters

import "zigbee-quirks/internal/zcl"

// Standard returns the cluster definitions registered at startup.
func Standard() []zcl.ClusterDef {
	return []zcl.ClusterDef{
		Basic,
		PowerConfiguration,
		Identify,
		Groups,
		Scenes,
		OnOff,
		LevelControl,
		AnalogInput,
		BinaryInput,
		MultistateInput,
		OTAUpgrade,
		PollControl,
		GreenPower,
		ColorControl,
		TemperatureMeasurement,
		PressureMeasurement,
		RelativeHumidity,
		OccupancySensing,
		IASZone,
		Diagnostics,
		TouchlinkCommissioning,
	}
}
