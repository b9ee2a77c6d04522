package store

import "time"

// Device is the persisted record of a Zigbee device.
type Device struct {
	IEEEAddress  string     `json:"ieee_address"`
	ShortAddress uint16     `json:"short_address"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Model        string     `json:"model,omitempty"`
	Quirk        string     `json:"quirk,omitempty"`
	Endpoints    []Endpoint `json:"endpoints,omitempty"`
	Interviewed  bool       `json:"interviewed"`
	JoinedAt     time.Time  `json:"joined_at"`
	LastSeen     time.Time  `json:"last_seen"`
	LQI          uint8      `json:"lqi,omitempty"`
	RSSI         int8       `json:"rssi,omitempty"`
}

// Endpoint is a device endpoint as discovered by the interview, with the
// attribute cache of each of its clusters.
type Endpoint struct {
	ID          uint8    `json:"id"`
	ProfileID   uint16   `json:"profile_id"`
	DeviceID    uint16   `json:"device_id"`
	InClusters  []uint16 `json:"in_clusters"`
	OutClusters []uint16 `json:"out_clusters"`

	// cluster id -> attribute id -> value
	InAttrs  map[uint16]map[uint16]Value `json:"in_attrs,omitempty"`
	OutAttrs map[uint16]map[uint16]Value `json:"out_attrs,omitempty"`
}
