package xiaomi

import (
	"fmt"

	"github.com/shimmeringbee/bytecodec"
	sbzcl "github.com/shimmeringbee/zcl"

	"zigbee-quirks/internal/quirks"
	"zigbee-quirks/internal/zcl"
)

// Heartbeat tags carried in the Basic cluster report.
const (
	tagBattery        uint8 = 0x01
	tagSoCTemperature uint8 = 0x03
)

// Attribute is one tagged entry of a Xiaomi attribute list.
type Attribute struct {
	Id        uint8
	Attribute *sbzcl.AttributeDataTypeValue
}

type AttributeList []Attribute

// ParseAttributeList decodes the tagged attribute list Xiaomi devices
// report in Basic cluster attributes 0xFF01 and 0xFF02.
func ParseAttributeList(b []byte) (map[uint8]Attribute, error) {
	var xal AttributeList
	if err := bytecodec.Unmarshal(b, &xal); err != nil {
		return nil, fmt.Errorf("failed to parse Xiaomi attribute list: %w", err)
	}

	ret := make(map[uint8]Attribute, len(xal))
	for _, a := range xal {
		ret[a.Id] = a
	}
	return ret, nil
}

// DecodeHeartbeat is the battery decoder for the heartbeat attributes.
// Tag 0x01 is the battery in millivolts, tag 0x03 the chip temperature.
func DecodeHeartbeat(attrID uint16, value any) (quirks.Sample, error) {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return quirks.Sample{}, fmt.Errorf("heartbeat 0x%04X: unexpected %T", attrID, value)
	}

	attrs, err := ParseAttributeList(raw)
	if err != nil {
		return quirks.Sample{}, err
	}

	var s quirks.Sample
	if a, ok := attrs[tagBattery]; ok && a.Attribute != nil {
		if mv, ok := zcl.Numeric(a.Attribute.Value); ok {
			s.Millivolts = mv
			s.HasVoltage = true
		}
	}
	if a, ok := attrs[tagSoCTemperature]; ok && a.Attribute != nil {
		if t, ok := zcl.Numeric(a.Attribute.Value); ok {
			s.Derived = map[string]float64{"soc_temperature": t}
		}
	}
	if !s.HasVoltage && s.Derived == nil {
		return s, fmt.Errorf("heartbeat 0x%04X: no battery or temperature tag", attrID)
	}
	return s, nil
}
