//go:build !no_mqtt

package mqtt

import (
	"fmt"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/sensor/zigbee_00158D.../temperature/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	StateTopic          string   `json:"state_topic,omitempty"`
	CommandTopic        string   `json:"command_topic,omitempty"`
	AvailabilityTopic   string   `json:"availability_topic"`
	ValueTemplate       string   `json:"value_template,omitempty"`
	UnitOfMeasurement   string   `json:"unit_of_measurement,omitempty"`
	DeviceClass         string   `json:"device_class,omitempty"`
	StateClass          string   `json:"state_class,omitempty"`
	EntityCategory      string   `json:"entity_category,omitempty"`
	PayloadOn           string   `json:"payload_on,omitempty"`
	PayloadOff          string   `json:"payload_off,omitempty"`
	PayloadPress        string   `json:"payload_press,omitempty"`
	BrightnessScale     int      `json:"brightness_scale,omitempty"`
	SupportedColorModes []string `json:"supported_color_modes,omitempty"`
	Schema              string   `json:"schema,omitempty"`
	Device              haDevice `json:"device"`
}

// deviceDisplayName returns a display name for the device.
func deviceDisplayName(dev *device.Device) string {
	if dev.Manufacturer != "" && dev.Model != "" {
		return dev.Manufacturer + " " + dev.Model
	}
	if dev.Model != "" {
		return dev.Model
	}
	return device.IEEEString(dev.IEEE)
}

// deviceIdentifier returns the unique identifier for HA device registry.
func deviceIdentifier(ieee string) string {
	return "zigbee_" + ieee
}

// deviceTopicName returns the topic name for a device.
func deviceTopicName(dev *device.Device) string {
	return device.IEEEString(dev.IEEE)
}

// inputClusters collects input cluster ids across all endpoints.
func inputClusters(dev *device.Device) map[zigbee.ClusterID]bool {
	has := make(map[zigbee.ClusterID]bool)
	for _, ep := range dev.Endpoints() {
		for _, id := range ep.InputClusterIDs() {
			has[id] = true
		}
	}
	return has
}

// buildDiscovery generates HA discovery messages for a resolved device.
// Entities follow the clusters of the device as rebuilt by its quirk, and
// its battery capability when it has one.
func buildDiscovery(dev *device.Device, prefix string) []discoveryMsg {
	if len(dev.EndpointIDs()) == 0 {
		return nil
	}

	avail := prefix + "/bridge/state"
	stateTopic := prefix + "/" + deviceTopicName(dev)
	cmdTopic := stateTopic + "/set"
	nodeID := deviceIdentifier(device.IEEEString(dev.IEEE))
	displayName := deviceDisplayName(dev)

	haDev := haDevice{
		Identifiers:  []string{nodeID},
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		Name:         displayName,
	}
	sensor := func(objectID, suffix, deviceClass, unit, stateClass string) discoveryMsg {
		return buildSensor(nodeID, displayName, stateTopic, avail, haDev,
			objectID, suffix, deviceClass, unit, stateClass,
			fmt.Sprintf("{{ value_json.%s }}", objectID))
	}

	hasCluster := inputClusters(dev)
	var msgs []discoveryMsg

	// Level Control makes an On/Off device a light.
	if hasCluster[0x0006] && hasCluster[0x0008] {
		msgs = append(msgs, buildLight(nodeID, displayName, stateTopic, cmdTopic, avail, haDev))
	} else if hasCluster[0x0006] {
		msgs = append(msgs, buildSwitch(nodeID, displayName, stateTopic, cmdTopic, avail, haDev))
	}

	if hasCluster[0x0402] {
		msgs = append(msgs, sensor("temperature", "Temperature", "temperature", "°C", "measurement"))
	}
	if hasCluster[0x0405] || hasCluster[0xFC45] {
		msgs = append(msgs, sensor("humidity", "Humidity", "humidity", "%", "measurement"))
	}
	if hasCluster[0x0403] {
		msgs = append(msgs, sensor("pressure", "Pressure", "pressure", "hPa", "measurement"))
	}
	if hasCluster[0x0406] {
		msgs = append(msgs, buildBinarySensor(nodeID, displayName, stateTopic, avail, haDev,
			"occupancy", "Occupancy", "occupancy",
			"{{ 'ON' if value_json.occupancy else 'OFF' }}"))
	}
	if hasCluster[0x0500] {
		msgs = append(msgs, buildBinarySensor(nodeID, displayName, stateTopic, avail, haDev,
			"zone", "Zone", "safety",
			"{{ 'ON' if value_json.zone_status else 'OFF' }}"))
	}

	// A battery capability knows the voltage as well as the percentage.
	if dev.Battery != nil {
		msgs = append(msgs,
			sensor("battery", "Battery", "battery", "%", "measurement"),
			sensor("voltage", "Battery Voltage", "voltage", "V", "measurement"),
		)
	} else if hasCluster[0x0001] {
		msgs = append(msgs, sensor("battery", "Battery", "battery", "%", "measurement"))
	}

	if dev.Commands != nil && hasCluster[0x0003] {
		msgs = append(msgs, buildIdentifyButton(nodeID, displayName, cmdTopic, avail, haDev))
	}

	if dev.IsQuirked() {
		q := buildSensor(nodeID, displayName, stateTopic, avail, haDev,
			"quirk", "Quirk", "", "", "", "{{ value_json.quirk }}")
		msgs = append(msgs, q)
	}

	// No device_class: "signal_strength" requires dB/dBm units, but LQI is unitless.
	msgs = append(msgs, buildSensor(nodeID, displayName, stateTopic, avail, haDev,
		"linkquality", "Link Quality", "", "lqi", "measurement",
		"{{ value_json.linkquality }}"))

	return msgs
}

func buildSensor(nodeID, displayName, stateTopic, avail string, haDev haDevice,
	objectID, suffix, deviceClass, unit, stateClass, valueTmpl string) discoveryMsg {

	topic := fmt.Sprintf("homeassistant/sensor/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:              displayName + " " + suffix,
		UniqueID:          nodeID + "_" + objectID,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     valueTmpl,
		UnitOfMeasurement: unit,
		DeviceClass:       deviceClass,
		StateClass:        stateClass,
		Device:            haDev,
	}
	if objectID == "quirk" {
		payload.EntityCategory = "diagnostic"
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildBinarySensor(nodeID, displayName, stateTopic, avail string, haDev haDevice,
	objectID, suffix, deviceClass, valueTmpl string) discoveryMsg {

	topic := fmt.Sprintf("homeassistant/binary_sensor/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:              displayName + " " + suffix,
		UniqueID:          nodeID + "_" + objectID,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     valueTmpl,
		DeviceClass:       deviceClass,
		PayloadOn:         "ON",
		PayloadOff:        "OFF",
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildLight(nodeID, displayName, stateTopic, cmdTopic, avail string, haDev haDevice) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/light/%s/light/config", nodeID)
	payload := haDiscovery{
		Name:                displayName,
		UniqueID:            nodeID + "_light",
		StateTopic:          stateTopic,
		CommandTopic:        cmdTopic,
		AvailabilityTopic:   avail,
		SupportedColorModes: []string{"brightness"},
		BrightnessScale:     254,
		Schema:              "json",
		Device:              haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildSwitch(nodeID, displayName, stateTopic, cmdTopic, avail string, haDev haDevice) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/switch/%s/switch/config", nodeID)
	payload := haDiscovery{
		Name:              displayName,
		UniqueID:          nodeID + "_switch",
		StateTopic:        stateTopic,
		CommandTopic:      cmdTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     "{{ value_json.state }}",
		PayloadOn:         "ON",
		PayloadOff:        "OFF",
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildIdentifyButton(nodeID, displayName, cmdTopic, avail string, haDev haDevice) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/button/%s/identify/config", nodeID)
	payload := haDiscovery{
		Name:              displayName + " Identify",
		UniqueID:          nodeID + "_identify",
		CommandTopic:      cmdTopic,
		AvailabilityTopic: avail,
		DeviceClass:       "identify",
		PayloadPress:      `{"identify":5}`,
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

// buildRemoveDiscovery generates empty retained messages to remove a device from HA.
func buildRemoveDiscovery(ieee string) []discoveryMsg {
	nodeID := deviceIdentifier(ieee)

	components := []struct{ comp, obj string }{
		{"light", "light"},
		{"switch", "switch"},
		{"sensor", "temperature"},
		{"sensor", "humidity"},
		{"sensor", "pressure"},
		{"sensor", "battery"},
		{"sensor", "voltage"},
		{"sensor", "quirk"},
		{"sensor", "linkquality"},
		{"binary_sensor", "occupancy"},
		{"binary_sensor", "zone"},
		{"button", "identify"},
	}

	var msgs []discoveryMsg
	for _, c := range components {
		msgs = append(msgs, discoveryMsg{
			Topic:   fmt.Sprintf("homeassistant/%s/%s/%s/config", c.comp, nodeID, c.obj),
			Payload: nil, // empty retained = delete
		})
	}
	return msgs
}
