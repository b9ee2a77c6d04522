package clusters

import "zigbee-quirks/internal/zcl"

var TemperatureMeasurement = zcl.ClusterDef{
	ID:   0x0402,
	Name: "Temperature Measurement",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "MeasuredValue", Type: zcl.TypeInt16, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

var PressureMeasurement = zcl.ClusterDef{
	ID:   0x0403,
	Name: "Pressure Measurement",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "MeasuredValue", Type: zcl.TypeInt16, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0010, Name: "ScaledValue", Type: zcl.TypeInt16, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

var RelativeHumidity = zcl.ClusterDef{
	ID:   0x0405,
	Name: "Relative Humidity",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "MeasuredValue", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

var OccupancySensing = zcl.ClusterDef{
	ID:   0x0406,
	Name: "Occupancy Sensing",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "Occupancy", Type: zcl.TypeBitmap8, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

var IASZone = zcl.ClusterDef{
	ID:   0x0500,
	Name: "IAS Zone",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "ZoneState", Type: zcl.TypeEnum8, Access: zcl.AccessRead},
		{ID: 0x0001, Name: "ZoneType", Type: zcl.TypeEnum16, Access: zcl.AccessRead},
		{ID: 0x0002, Name: "ZoneStatus", Type: zcl.TypeBitmap16, Access: zcl.AccessRead | zcl.AccessReport},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "ZoneEnrollResponse", Direction: zcl.DirectionToServer},
		{ID: 0x00, Name: "ZoneStatusChangeNotification", Direction: zcl.DirectionToClient},
		{ID: 0x01, Name: "ZoneEnrollRequest", Direction: zcl.DirectionToClient},
	},
}

var ColorControl = zcl.ClusterDef{
	ID:   0x0300,
	Name: "Color Control",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0003, Name: "CurrentX", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0004, Name: "CurrentY", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0007, Name: "ColorTemperatureMireds", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0008, Name: "ColorMode", Type: zcl.TypeEnum8, Access: zcl.AccessRead},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x07, Name: "MoveToColor", Direction: zcl.DirectionToServer},
		{ID: 0x0A, Name: "MoveToColorTemperature", Direction: zcl.DirectionToServer},
	},
}
