package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/ncp"
	"zigbee-quirks/internal/store"
	"zigbee-quirks/internal/zcl"
)

// commandTimeout bounds a device command handler started from an
// indication. It covers a full beep retry sequence.
const commandTimeout = time.Minute

// HandleAttributeReport updates the attribute cache of the reporting
// cluster, persists it, and emits attribute and property events.
func (dm *DeviceManager) HandleAttributeReport(evt ncp.AttributeReportEvent) {
	ieee := dm.lookupOrRebuild(evt.SrcAddr)

	var decoded interface{}
	if len(evt.Value) > 0 {
		val, _, decErr := zcl.DecodeValue(evt.DataType, evt.Value)
		if decErr == nil {
			decoded = val
		} else {
			decoded = fmt.Sprintf("%X", evt.Value)
		}
	}

	clusterName := dm.coord.Registry().Name(evt.ClusterID)
	attrName := fmt.Sprintf("0x%04X", evt.AttrID)
	if def := dm.coord.Registry().Get(evt.ClusterID); def != nil {
		attrName = def.AttributeName(evt.AttrID)
	}

	var rec *store.Device
	if ieee != "" {
		rec = dm.persistReport(ieee, evt, decoded)
	}

	dm.logger.Info("attribute report",
		"ieee", ieee,
		"name", deviceName(rec),
		"cluster", clusterName,
		"attr", attrName,
		"value", decoded,
	)

	dm.coord.Events().Emit(Event{
		Type: EventAttributeReport,
		Data: map[string]interface{}{
			"ieee":         ieee,
			"short_addr":   evt.SrcAddr,
			"endpoint":     evt.SrcEP,
			"cluster_id":   evt.ClusterID,
			"cluster_name": clusterName,
			"attr_id":      evt.AttrID,
			"attr_name":    attrName,
			"value":        decoded,
		},
	})

	if ieee == "" || decoded == nil {
		return
	}
	dm.emitStandardProperty(ieee, evt, decoded)

	dev, ok := dm.Device(ieee)
	if !ok {
		return
	}
	ep, ok := dev.Endpoint(zigbee.Endpoint(evt.SrcEP))
	if !ok {
		return
	}
	cluster, ok := ep.InputCluster(zigbee.ClusterID(evt.ClusterID))
	if !ok {
		dm.logger.Debug("report for cluster not on endpoint", "ieee", ieee,
			"ep", evt.SrcEP, "cluster", clusterName)
		return
	}
	cluster.UpdateAttribute(evt.AttrID, decoded)
	if dev.Battery != nil {
		dm.emitBattery(ieee, dev.Battery.Readings())
	}
}

// persistReport records last seen, link quality and the cached value in
// one store transaction. It returns the updated record, or nil.
func (dm *DeviceManager) persistReport(ieee string, evt ncp.AttributeReportEvent, decoded any) *store.Device {
	var cached *store.Value
	if decoded != nil {
		if v, err := store.NewValue(decoded); err == nil {
			cached = &v
		}
	}

	var rec *store.Device
	err := dm.coord.Store().UpdateDevice(ieee, func(d *store.Device) error {
		d.LastSeen = time.Now()
		if evt.LQI > 0 {
			d.LQI = evt.LQI
			d.RSSI = evt.RSSI
		}
		if cached != nil {
			cacheValue(d, evt.SrcEP, evt.ClusterID, evt.AttrID, *cached)
		}
		rec = d
		return nil
	})
	if err != nil {
		dm.logger.Error("save attribute report", "err", err, "ieee", ieee)
		return nil
	}
	return rec
}

// persistRead stores the successful values of a read response in the
// attribute cache of the device record.
func (dm *DeviceManager) persistRead(ieee string, endpoint uint8, clusterID uint16, records []device.AttributeRecord) {
	values := make(map[uint16]store.Value, len(records))
	for _, r := range records {
		if r.Status != zcl.ZCLStatusSuccess || r.Value == nil {
			continue
		}
		v, err := store.NewValue(r.Value)
		if err != nil {
			dm.logger.Debug("skip caching read value", "ieee", ieee, "attr", fmt.Sprintf("0x%04X", r.ID), "err", err)
			continue
		}
		values[r.ID] = v
	}
	if len(values) == 0 {
		return
	}

	err := dm.coord.Store().UpdateDevice(ieee, func(d *store.Device) error {
		d.LastSeen = time.Now()
		for id, v := range values {
			cacheValue(d, endpoint, clusterID, id, v)
		}
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		dm.logger.Error("save attribute read", "err", err, "ieee", ieee)
	}
}

// cacheValue writes v into the input cluster cache of an endpoint record.
func cacheValue(d *store.Device, endpoint uint8, clusterID, attrID uint16, v store.Value) {
	for i := range d.Endpoints {
		ep := &d.Endpoints[i]
		if ep.ID != endpoint || !hasCluster(ep.InClusters, clusterID) {
			continue
		}
		if ep.InAttrs == nil {
			ep.InAttrs = make(map[uint16]map[uint16]store.Value)
		}
		if ep.InAttrs[clusterID] == nil {
			ep.InAttrs[clusterID] = make(map[uint16]store.Value)
		}
		ep.InAttrs[clusterID][attrID] = v
	}
}

func hasCluster(ids []uint16, id uint16) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

// standardPropertyMap maps well-known ZCL cluster+attribute pairs to property names.
var standardPropertyMap = map[uint16]map[uint16]string{
	0x0006: {0x0000: "on_off"},
	0x0008: {0x0000: "brightness"},
	0x0300: {0x0000: "hue", 0x0001: "saturation"},
	0x0402: {0x0000: "temperature"},
	0x0403: {0x0000: "pressure"},
	0x0405: {0x0000: "humidity"},
	0x0406: {0x0000: "occupancy"},
	0x0500: {0x0002: "zone_status"},
	0xFC45: {0x0000: "humidity"}, // SmartThings relative humidity
}

func (dm *DeviceManager) emitStandardProperty(ieee string, evt ncp.AttributeReportEvent, decoded interface{}) {
	attrs, ok := standardPropertyMap[evt.ClusterID]
	if !ok {
		return
	}
	propName, ok := attrs[evt.AttrID]
	if !ok {
		return
	}
	dm.emitProperty(ieee, propName, decoded)
}

// emitBattery publishes the known battery readings as properties.
func (dm *DeviceManager) emitBattery(ieee string, r device.BatteryReadings) {
	if v, ok := r.Percent.Value(); ok {
		dm.emitProperty(ieee, "battery", v)
	}
	if v, ok := r.Voltage.Value(); ok {
		dm.emitProperty(ieee, "voltage", v)
	}
	for name, reading := range r.Derived {
		if v, ok := reading.Value(); ok {
			dm.emitProperty(ieee, name, v)
		}
	}
}

func (dm *DeviceManager) emitProperty(ieee, name string, value interface{}) {
	dm.coord.Events().Emit(Event{
		Type: EventPropertyUpdate,
		Data: map[string]interface{}{
			"ieee":     ieee,
			"property": name,
			"value":    value,
		},
	})
}

// HandleClusterCommand routes an incoming cluster command to the device's
// command handler. The handler runs on its own goroutine so a retrying
// handler does not stall the NCP callback.
func (dm *DeviceManager) HandleClusterCommand(evt ncp.ClusterCommandEvent) {
	ieee := dm.lookupOrRebuild(evt.SrcAddr)

	dm.coord.Events().Emit(Event{
		Type: EventClusterCommand,
		Data: map[string]interface{}{
			"ieee":       ieee,
			"short_addr": evt.SrcAddr,
			"endpoint":   evt.SrcEP,
			"cluster_id": evt.ClusterID,
			"command_id": evt.CommandID,
		},
	})

	dev, ok := dm.Device(ieee)
	if !ok {
		dm.logger.Debug("cluster command from unknown device",
			"short", fmt.Sprintf("0x%04X", evt.SrcAddr),
			"cluster", fmt.Sprintf("0x%04X", evt.ClusterID))
		return
	}

	dir := zcl.DirectionToServer
	if evt.FromServer {
		dir = zcl.DirectionToClient
	}
	cmd := device.Command{
		Endpoint:  zigbee.Endpoint(evt.SrcEP),
		ClusterID: zigbee.ClusterID(evt.ClusterID),
		ID:        evt.CommandID,
		Direction: dir,
	}

	dm.commandWg.Add(1)
	go func() {
		defer dm.commandWg.Done()
		ctx, cancel := context.WithTimeout(dm.coord.Context(), commandTimeout)
		defer cancel()
		// Failures are logged by the device.
		_ = dev.HandleCommand(ctx, cmd)
	}()
}

// InvokeCommand runs cmd through the command handler of a live device and
// waits for it.
func (dm *DeviceManager) InvokeCommand(ctx context.Context, ieee string, cmd device.Command) error {
	dev, ok := dm.Device(ieee)
	if !ok {
		return fmt.Errorf("%s: %w", ieee, ErrUnknownDevice)
	}
	return dev.HandleCommand(ctx, cmd)
}
