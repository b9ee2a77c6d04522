package clusters

import "zigbee-quirks/internal/zcl"

var Basic = zcl.ClusterDef{
	ID:   0x0000,
	Name: "Basic",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "ZCLVersion", Type: zcl.TypeUint8, Access: zcl.AccessRead},
		{ID: 0x0001, Name: "ApplicationVersion", Type: zcl.TypeUint8, Access: zcl.AccessRead},
		{ID: 0x0004, Name: "ManufacturerName", Type: zcl.TypeCharStr, Access: zcl.AccessRead},
		{ID: 0x0005, Name: "ModelIdentifier", Type: zcl.TypeCharStr, Access: zcl.AccessRead},
		{ID: 0x0007, Name: "PowerSource", Type: zcl.TypeEnum8, Access: zcl.AccessRead},
		{ID: 0x4000, Name: "SWBuildID", Type: zcl.TypeCharStr, Access: zcl.AccessRead},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "ResetToFactoryDefaults", Direction: zcl.DirectionToServer},
	},
}

var PowerConfiguration = zcl.ClusterDef{
	ID:   0x0001,
	Name: "Power Configuration",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0020, Name: "BatteryVoltage", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0021, Name: "BatteryPercentageRemaining", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0031, Name: "BatterySize", Type: zcl.TypeEnum8, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0033, Name: "BatteryQuantity", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessWrite},
	},
}

var Identify = zcl.ClusterDef{
	ID:   0x0003,
	Name: "Identify",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "IdentifyTime", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "Identify", Direction: zcl.DirectionToServer},
		{ID: 0x01, Name: "IdentifyQuery", Direction: zcl.DirectionToServer},
		{ID: 0x40, Name: "TriggerEffect", Direction: zcl.DirectionToServer},
	},
}

var Groups = zcl.ClusterDef{
	ID:   0x0004,
	Name: "Groups",
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "AddGroup", Direction: zcl.DirectionToServer},
		{ID: 0x03, Name: "RemoveGroup", Direction: zcl.DirectionToServer},
	},
}

var Scenes = zcl.ClusterDef{
	ID:   0x0005,
	Name: "Scenes",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "SceneCount", Type: zcl.TypeUint8, Access: zcl.AccessRead},
		{ID: 0x0001, Name: "CurrentScene", Type: zcl.TypeUint8, Access: zcl.AccessRead},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x04, Name: "StoreScene", Direction: zcl.DirectionToServer},
		{ID: 0x05, Name: "RecallScene", Direction: zcl.DirectionToServer},
	},
}

var OnOff = zcl.ClusterDef{
	ID:   0x0006,
	Name: "On/Off",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "OnOff", Type: zcl.TypeBool, Access: zcl.AccessRead | zcl.AccessReport},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "Off", Direction: zcl.DirectionToServer},
		{ID: 0x01, Name: "On", Direction: zcl.DirectionToServer},
		{ID: 0x02, Name: "Toggle", Direction: zcl.DirectionToServer},
	},
}

var LevelControl = zcl.ClusterDef{
	ID:   0x0008,
	Name: "Level Control",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "CurrentLevel", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "MoveToLevel", Direction: zcl.DirectionToServer},
		{ID: 0x04, Name: "MoveToLevelWithOnOff", Direction: zcl.DirectionToServer},
	},
}

var AnalogInput = zcl.ClusterDef{
	ID:   0x000C,
	Name: "Analog Input (Basic)",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0055, Name: "PresentValue", Type: zcl.TypeFloat32, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

var BinaryInput = zcl.ClusterDef{
	ID:   0x000F,
	Name: "Binary Input (Basic)",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0055, Name: "PresentValue", Type: zcl.TypeBool, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

var MultistateInput = zcl.ClusterDef{
	ID:   0x0012,
	Name: "Multistate Input (Basic)",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0055, Name: "PresentValue", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
	},
}

var OTAUpgrade = zcl.ClusterDef{
	ID:   0x0019,
	Name: "OTA Upgrade",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0002, Name: "CurrentFileVersion", Type: zcl.TypeUint32, Access: zcl.AccessRead},
	},
}

var PollControl = zcl.ClusterDef{
	ID:   0x0020,
	Name: "Poll Control",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "CheckInInterval", Type: zcl.TypeUint32, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: 0x0001, Name: "LongPollInterval", Type: zcl.TypeUint32, Access: zcl.AccessRead},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "CheckInResponse", Direction: zcl.DirectionToServer},
		{ID: 0x01, Name: "FastPollStop", Direction: zcl.DirectionToServer},
		{ID: 0x00, Name: "CheckIn", Direction: zcl.DirectionToClient},
	},
}

var GreenPower = zcl.ClusterDef{
	ID:   0x0021,
	Name: "Green Power",
}

var Diagnostics = zcl.ClusterDef{
	ID:   0x0B05,
	Name: "Diagnostics",
	Attributes: []zcl.AttributeDef{
		{ID: 0x011C, Name: "LastMessageLQI", Type: zcl.TypeUint8, Access: zcl.AccessRead},
		{ID: 0x011D, Name: "LastMessageRSSI", Type: zcl.TypeInt8, Access: zcl.AccessRead},
	},
}

var TouchlinkCommissioning = zcl.ClusterDef{
	ID:   0x1000,
	Name: "Touchlink Commissioning",
}
