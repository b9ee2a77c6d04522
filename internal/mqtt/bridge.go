//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/coordinator"
	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/zcl"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// Bridge publishes the state of resolved devices to MQTT with HA
// autodiscovery and forwards set commands back to the devices.
type Bridge struct {
	client pahomqtt.Client
	coord  *coordinator.Coordinator
	prefix string
	logger *slog.Logger
	unsub  func()

	// Per-device state accumulator.
	mu         sync.Mutex
	states     map[string]map[string]any // IEEE -> property map
	subscribed map[string]bool
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(coord *coordinator.Coordinator, cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := &Bridge{
		coord:      coord,
		prefix:     cfg.TopicPrefix,
		logger:     logger.With("component", "mqtt"),
		states:     make(map[string]map[string]any),
		subscribed: make(map[string]bool),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("zigbee-quirks").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.mu.Lock()
			clear(b.subscribed)
			b.mu.Unlock()
			b.publishBridgeState("online")
			b.publishAll()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// The client must be set before Connect: the connect handler publishes.
	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

// Start subscribes to coordinator events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.coord.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) handleEvent(event coordinator.Event) {
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		return
	}
	ieee, _ := data["ieee"].(string)
	if ieee == "" {
		return
	}

	switch event.Type {
	case coordinator.EventAttributeReport:
		clusterID, _ := data["cluster_id"].(uint16)
		attrName, _ := data["attr_name"].(string)
		if prop := mapAttributeToProperty(clusterID, attrName); prop != "" {
			b.updateAndPublishState(ieee, prop, stateValue(prop, data["value"]))
		}
	case coordinator.EventPropertyUpdate:
		prop, _ := data["property"].(string)
		if prop != "" {
			b.updateAndPublishState(ieee, prop, data["value"])
		}
	case coordinator.EventDeviceResolved:
		if dev, ok := b.coord.Devices().Device(ieee); ok {
			b.publishDevice(dev)
		}
	case coordinator.EventDeviceLeft:
		b.removeDevice(ieee)
	}
}

// stateValue converts a bool OnOff to "ON"/"OFF" for Home Assistant.
func stateValue(prop string, value any) any {
	if prop != "state" {
		return value
	}
	if on, ok := value.(bool); ok {
		if on {
			return "ON"
		}
		return "OFF"
	}
	return value
}

func (b *Bridge) updateAndPublishState(ieee, prop string, value any) {
	b.mu.Lock()
	state, ok := b.states[ieee]
	if !ok {
		state = make(map[string]any)
		b.states[ieee] = state
	}
	state[prop] = value

	// Always include LQI and last_seen from the device store.
	if rec, err := b.coord.Devices().GetDevice(ieee); err == nil {
		state["linkquality"] = rec.LQI
		state["last_seen"] = rec.LastSeen.Format(time.RFC3339)
	}

	payload := mustJSON(state)
	b.mu.Unlock()

	b.publish(b.prefix+"/"+ieee, payload, true)
}

// resolvedState is the state a resolved device starts with: its quirk and
// whatever battery readings are already known.
func resolvedState(dev *device.Device) map[string]any {
	state := map[string]any{}
	if dev.IsQuirked() {
		state["quirk"] = dev.Quirk
	}
	if dev.Battery == nil {
		return state
	}
	r := dev.Battery.Readings()
	if v, ok := r.Percent.Value(); ok {
		state["battery"] = v
	}
	if v, ok := r.Voltage.Value(); ok {
		state["voltage"] = v
	}
	return state
}

func (b *Bridge) publishDevice(dev *device.Device) {
	ieee := device.IEEEString(dev.IEEE)
	for _, msg := range buildDiscovery(dev, b.prefix) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.logger.Info("published HA discovery", "ieee", ieee, "name", deviceDisplayName(dev), "quirk", dev.Quirk)

	for prop, value := range resolvedState(dev) {
		b.updateAndPublishState(ieee, prop, value)
	}
	b.subscribeDeviceCommands(ieee)
}

func (b *Bridge) removeDevice(ieee string) {
	for _, msg := range buildRemoveDiscovery(ieee) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.mu.Lock()
	delete(b.states, ieee)
	subscribed := b.subscribed[ieee]
	delete(b.subscribed, ieee)
	b.mu.Unlock()
	if subscribed {
		b.client.Unsubscribe(b.prefix + "/" + ieee + "/set")
	}
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

func (b *Bridge) publishAll() {
	for _, dev := range b.coord.Devices().Sessions() {
		b.publishDevice(dev)
	}
}

func (b *Bridge) subscribeDeviceCommands(ieee string) {
	b.mu.Lock()
	if b.subscribed[ieee] {
		b.mu.Unlock()
		return
	}
	b.subscribed[ieee] = true
	b.mu.Unlock()

	topic := b.prefix + "/" + ieee + "/set"
	b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		// Paho delivers in order on one goroutine; identify retries can be slow.
		go b.handleCommand(ieee, msg.Payload())
	})
}

// setCommand is the JSON payload accepted on a device's set topic.
type setCommand struct {
	State      string   `json:"state,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Identify   *uint16  `json:"identify,omitempty"` // seconds
}

func parseSetCommand(payload []byte) (setCommand, error) {
	var cmd setCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, fmt.Errorf("invalid command JSON: %w", err)
	}
	cmd.State = strings.ToUpper(cmd.State)
	switch cmd.State {
	case "", "ON", "OFF", "TOGGLE":
	default:
		return cmd, fmt.Errorf("unknown state %q", cmd.State)
	}
	return cmd, nil
}

var onOffCommands = map[string]uint8{"OFF": 0x00, "ON": 0x01, "TOGGLE": 0x02}

// findInputCluster returns the first input cluster with the given id,
// scanning endpoints in ascending order.
func findInputCluster(dev *device.Device, id zigbee.ClusterID) (*device.Cluster, bool) {
	for _, ep := range dev.Endpoints() {
		if c, ok := ep.InputCluster(id); ok {
			return c, true
		}
	}
	return nil, false
}

func (b *Bridge) handleCommand(ieee string, payload []byte) {
	dev, ok := b.coord.Devices().Device(ieee)
	if !ok {
		b.logger.Warn("command for unknown device", "ieee", ieee)
		return
	}
	cmd, err := parseSetCommand(payload)
	if err != nil {
		b.logger.Warn("invalid command", "ieee", ieee, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.coord.Context(), time.Minute)
	defer cancel()

	if cmd.State != "" {
		if c, ok := findInputCluster(dev, 0x0006); ok {
			if err := c.Command(ctx, onOffCommands[cmd.State], nil); err != nil {
				b.logger.Warn("state command failed", "ieee", ieee, "state", cmd.State, "err", err)
			} else if cmd.State != "TOGGLE" {
				b.updateAndPublishState(ieee, "state", cmd.State)
			}
		}
	}

	if cmd.Brightness != nil {
		if c, ok := findInputCluster(dev, 0x0008); ok {
			level := uint8(min(max(*cmd.Brightness, 0), 254))
			// Move to Level with On/Off, transition time 5 (0.5s).
			if err := c.Command(ctx, 0x04, []byte{level, 0x05, 0x00}); err != nil {
				b.logger.Warn("brightness command failed", "ieee", ieee, "err", err)
			} else {
				b.updateAndPublishState(ieee, "brightness", level)
			}
		}
	}

	if cmd.Identify != nil {
		if err := b.identify(ctx, ieee, dev, *cmd.Identify); err != nil {
			b.logger.Warn("identify failed", "ieee", ieee, "err", err)
		}
	}
}

// identify goes through the device's command handler when it has one, so
// vendor delivery rules apply, and straight to the Identify cluster
// otherwise.
func (b *Bridge) identify(ctx context.Context, ieee string, dev *device.Device, seconds uint16) error {
	c, ok := findInputCluster(dev, 0x0003)
	if !ok {
		return fmt.Errorf("identify: %w", device.ErrUnknownCluster)
	}
	if dev.Commands != nil {
		return b.coord.Devices().InvokeCommand(ctx, ieee, device.Command{
			Endpoint:  c.Endpoint().ID,
			ClusterID: 0x0003,
			ID:        0x00,
			Direction: zcl.DirectionToServer,
			Args:      []any{seconds},
		})
	}
	payload, err := zcl.EncodeValue(zcl.TypeUint16, seconds)
	if err != nil {
		return err
	}
	return c.Command(ctx, 0x00, payload)
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

// mapAttributeToProperty maps well-known cluster/attribute combos to property names.
func mapAttributeToProperty(clusterID uint16, attrName string) string {
	switch clusterID {
	case 0x0006:
		if attrName == "OnOff" {
			return "state"
		}
	case 0x0008:
		if attrName == "CurrentLevel" {
			return "brightness"
		}
	case 0x0001:
		if attrName == "BatteryPercentageRemaining" {
			return "battery"
		}
	}
	return ""
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
