package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/ncp"
	"zigbee-quirks/internal/quirks"
	"zigbee-quirks/internal/store"
	"zigbee-quirks/internal/zcl"
)

// ErrUnknownDevice is returned for an IEEE address with no live session.
var ErrUnknownDevice = errors.New("unknown device")

type interviewEntry struct {
	cancel context.CancelFunc
	gen    uint64
}

// DeviceManager handles device lifecycle (join, leave, interview) and the
// live, quirk-resolved device of every known node.
type DeviceManager struct {
	coord  *Coordinator
	logger *slog.Logger

	// Interview cancellation: tracks active interview cancel funcs by IEEE.
	interviewMu      sync.Mutex
	interviewCancels map[string]interviewEntry
	interviewGen     atomic.Uint64
	interviewWg      sync.WaitGroup

	// Debounce duplicate announce events.
	lastJoinMu sync.Mutex
	lastJoin   map[string]time.Time

	// In-memory short address -> IEEE index for fast lookup.
	addrMu    sync.RWMutex
	addrIndex map[uint16]string

	sessionMu sync.RWMutex
	sessions  map[string]*device.Device

	commandWg sync.WaitGroup
}

// NewDeviceManager creates a new device manager.
func NewDeviceManager(coord *Coordinator) *DeviceManager {
	return &DeviceManager{
		coord:            coord,
		logger:           coord.logger.With("component", "device_manager"),
		interviewCancels: make(map[string]interviewEntry),
		lastJoin:         make(map[string]time.Time),
		addrIndex:        make(map[uint16]string),
		sessions:         make(map[string]*device.Device),
	}
}

// CancelAllInterviews cancels all running interview goroutines and waits for them.
func (dm *DeviceManager) CancelAllInterviews() {
	dm.interviewMu.Lock()
	for ieee, entry := range dm.interviewCancels {
		entry.cancel()
		delete(dm.interviewCancels, ieee)
	}
	dm.interviewMu.Unlock()
	dm.interviewWg.Wait()
}

// StopAll waits for running command handlers and stops every session.
func (dm *DeviceManager) StopAll() {
	dm.commandWg.Wait()
	dm.sessionMu.Lock()
	sessions := dm.sessions
	dm.sessions = make(map[string]*device.Device)
	dm.sessionMu.Unlock()
	for _, dev := range sessions {
		dev.Stop()
	}
}

// updateAddrIndex updates the short address -> IEEE mapping.
func (dm *DeviceManager) updateAddrIndex(ieee string, shortAddr uint16) {
	dm.addrMu.Lock()
	dm.addrIndex[shortAddr] = ieee
	dm.addrMu.Unlock()
}

// removeFromAddrIndex removes a short address from the index.
func (dm *DeviceManager) removeFromAddrIndex(shortAddr uint16) {
	dm.addrMu.Lock()
	delete(dm.addrIndex, shortAddr)
	dm.addrMu.Unlock()
}

func (dm *DeviceManager) removeIEEEFromAddrIndex(ieee string) {
	dm.addrMu.Lock()
	for addr, storedIEEE := range dm.addrIndex {
		if storedIEEE == ieee {
			delete(dm.addrIndex, addr)
			break
		}
	}
	dm.addrMu.Unlock()
}

// lookupIEEE finds IEEE address by short address from in-memory index.
func (dm *DeviceManager) lookupIEEE(shortAddr uint16) string {
	dm.addrMu.RLock()
	defer dm.addrMu.RUnlock()
	return dm.addrIndex[shortAddr]
}

// dropStaleAddr removes a device's previous short address from the index
// unless another device has taken it since.
func (dm *DeviceManager) dropStaleAddr(ieee string, old, current uint16) {
	if old == current || dm.lookupIEEE(old) != ieee {
		return
	}
	dm.removeFromAddrIndex(old)
}

// deviceName returns "Manufacturer Model", or an empty string when neither
// is known.
func deviceName(dev *store.Device) string {
	if dev == nil {
		return ""
	}
	name := dev.Manufacturer
	if dev.Model != "" {
		if name != "" {
			name += " "
		}
		name += dev.Model
	}
	return name
}

// RebuildAddrIndex loads all devices from store and populates the index.
func (dm *DeviceManager) RebuildAddrIndex() {
	devices, err := dm.coord.Store().ListDevices()
	if err != nil {
		dm.logger.Error("rebuild addr index", "err", err)
		return
	}
	dm.addrMu.Lock()
	clear(dm.addrIndex)
	for _, d := range devices {
		dm.addrIndex[d.ShortAddress] = d.IEEEAddress
	}
	dm.addrMu.Unlock()
}

// lookupOrRebuild looks up an IEEE address by short address from the in-memory
// index. If not found, rebuilds the index from the store under a write lock
// with a double-check to avoid redundant rebuilds.
func (dm *DeviceManager) lookupOrRebuild(shortAddr uint16) string {
	dm.addrMu.RLock()
	ieee := dm.addrIndex[shortAddr]
	dm.addrMu.RUnlock()
	if ieee != "" {
		return ieee
	}

	dm.addrMu.Lock()
	defer dm.addrMu.Unlock()

	if ieee = dm.addrIndex[shortAddr]; ieee != "" {
		return ieee
	}

	devices, err := dm.coord.Store().ListDevices()
	if err != nil {
		dm.logger.Error("rebuild addr index for lookup", "err", err)
		return ""
	}
	clear(dm.addrIndex)
	for _, d := range devices {
		dm.addrIndex[d.ShortAddress] = d.IEEEAddress
		if d.ShortAddress == shortAddr {
			ieee = d.IEEEAddress
		}
	}
	return ieee
}

// Device returns the live device for an IEEE address.
func (dm *DeviceManager) Device(ieee string) (*device.Device, bool) {
	dm.sessionMu.RLock()
	defer dm.sessionMu.RUnlock()
	dev, ok := dm.sessions[ieee]
	return dev, ok
}

// Sessions returns every live device ordered by IEEE address.
func (dm *DeviceManager) Sessions() []*device.Device {
	dm.sessionMu.RLock()
	devs := make([]*device.Device, 0, len(dm.sessions))
	for _, d := range dm.sessions {
		devs = append(devs, d)
	}
	dm.sessionMu.RUnlock()
	sort.Slice(devs, func(i, j int) bool { return devs[i].IEEE < devs[j].IEEE })
	return devs
}

func (dm *DeviceManager) endSession(ieee string) {
	dm.sessionMu.Lock()
	dev, ok := dm.sessions[ieee]
	delete(dm.sessions, ieee)
	dm.sessionMu.Unlock()
	if ok {
		dev.Stop()
	}
}

// RestoreAll starts a session for every interviewed device in the store.
// With setup set, capability units are started as on a rejoin.
func (dm *DeviceManager) RestoreAll(setup bool) ([]*device.Device, error) {
	records, err := dm.coord.Store().ListDevices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].IEEEAddress < records[j].IEEEAddress })

	devs := make([]*device.Device, 0, len(records))
	for _, rec := range records {
		if !rec.Interviewed {
			continue
		}
		dev, err := dm.activate(rec, setup, false)
		if err != nil {
			dm.logger.Warn("restore device", "ieee", rec.IEEEAddress, "err", err)
			continue
		}
		devs = append(devs, dev)
	}
	return devs, nil
}

// activate builds the generic device for rec, resolves it against the
// catalog and makes the result the live session, replacing any previous
// one. The matched quirk name is written back to the store.
func (dm *DeviceManager) activate(rec *store.Device, setup, newJoin bool) (*device.Device, error) {
	generic, err := dm.buildDevice(rec)
	if err != nil {
		return nil, err
	}
	dev := quirks.Resolve(generic, dm.coord.Catalog())

	dm.sessionMu.Lock()
	prev := dm.sessions[rec.IEEEAddress]
	dm.sessions[rec.IEEEAddress] = dev
	dm.sessionMu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	if rec.Quirk != dev.Quirk {
		quirk := dev.Quirk
		if err := dm.coord.Store().UpdateDevice(rec.IEEEAddress, func(d *store.Device) error {
			d.Quirk = quirk
			return nil
		}); err != nil {
			dm.logger.Error("save quirk", "err", err, "ieee", rec.IEEEAddress)
		}
		rec.Quirk = quirk
	}

	if setup && dev.Battery != nil {
		dev.Battery.Setup(dm.coord.Context(), newJoin)
	}

	dm.coord.Events().Emit(Event{
		Type: EventDeviceResolved,
		Data: map[string]interface{}{
			"ieee":  rec.IEEEAddress,
			"name":  deviceName(rec),
			"quirk": dev.Quirk,
		},
	})
	return dev, nil
}

// buildDevice constructs the generic device graph of a stored record with
// its attribute caches.
func (dm *DeviceManager) buildDevice(rec *store.Device) (*device.Device, error) {
	raw, err := ParseIEEE(rec.IEEEAddress)
	if err != nil {
		return nil, err
	}
	opts := []device.Option{
		device.WithRegistry(dm.coord.Registry()),
		device.WithLogger(dm.logger),
	}
	if dm.coord.Online() {
		opts = append(opts, device.WithTransport(dm.coord))
	}
	dev := device.New(ieeeFromBytes(raw), zigbee.NetworkAddress(rec.ShortAddress), opts...)
	dev.Manufacturer = rec.Manufacturer
	dev.Model = rec.Model

	for _, sep := range rec.Endpoints {
		ep := dev.AddDescribedEndpoint(zigbee.EndpointDescription{
			Endpoint:       zigbee.Endpoint(sep.ID),
			ProfileID:      zigbee.ProfileID(sep.ProfileID),
			DeviceID:       sep.DeviceID,
			InClusterList:  clusterIDs(sep.InClusters),
			OutClusterList: clusterIDs(sep.OutClusters),
		})
		for id, attrs := range sep.InAttrs {
			if c, ok := ep.InputCluster(zigbee.ClusterID(id)); ok {
				c.LoadAttributes(unwrapValues(attrs))
			}
		}
		for id, attrs := range sep.OutAttrs {
			if c, ok := ep.OutputCluster(zigbee.ClusterID(id)); ok {
				c.LoadAttributes(unwrapValues(attrs))
			}
		}
	}
	return dev, nil
}

func clusterIDs(ids []uint16) []zigbee.ClusterID {
	out := make([]zigbee.ClusterID, len(ids))
	for i, id := range ids {
		out[i] = zigbee.ClusterID(id)
	}
	return out
}

func unwrapValues(attrs map[uint16]store.Value) map[uint16]any {
	out := make(map[uint16]any, len(attrs))
	for id, v := range attrs {
		out[id] = v.Any()
	}
	return out
}

// HandleJoin processes a device join event.
func (dm *DeviceManager) HandleJoin(evt ncp.DeviceJoinedEvent) {
	ieee := fmt.Sprintf("%016X", evt.IEEEAddr)

	dm.updateAddrIndex(ieee, evt.ShortAddr)

	dev, err := dm.coord.Store().GetDevice(ieee)
	if err == nil {
		// Rejoin: keep the interview data.
		dm.dropStaleAddr(ieee, dev.ShortAddress, evt.ShortAddr)
		dev.ShortAddress = evt.ShortAddr
		dev.LastSeen = time.Now()
	} else {
		dev = &store.Device{
			IEEEAddress:  ieee,
			ShortAddress: evt.ShortAddr,
			JoinedAt:     time.Now(),
			LastSeen:     time.Now(),
		}
	}

	dm.logger.Info("device joined", "ieee", ieee, "short", fmt.Sprintf("0x%04X", evt.ShortAddr), "name", deviceName(dev))

	if err := dm.coord.Store().SaveDevice(dev); err != nil {
		dm.logger.Error("save device", "err", err, "ieee", ieee)
		return
	}

	dm.coord.Events().Emit(Event{
		Type: EventDeviceJoined,
		Data: map[string]interface{}{
			"ieee":       ieee,
			"short_addr": evt.ShortAddr,
		},
	})

	// The interview starts on announce, once the device holds the network key.
}

// HandleLeave processes a device leave event: cancels interview, ends the
// session, removes from address index, deletes from store, and emits
// EventDeviceLeft.
func (dm *DeviceManager) HandleLeave(evt ncp.DeviceLeftEvent) {
	ieee := fmt.Sprintf("%016X", evt.IEEEAddr)
	dev, _ := dm.coord.Store().GetDevice(ieee)
	name := deviceName(dev)
	dm.logger.Info("device left", "ieee", ieee, "name", name)

	dm.cancelInterview(ieee)
	dm.endSession(ieee)

	dm.lastJoinMu.Lock()
	delete(dm.lastJoin, ieee)
	dm.lastJoinMu.Unlock()

	// ShortAddr may be 0 on a network leave indication.
	dm.removeIEEEFromAddrIndex(ieee)

	if err := dm.coord.Store().DeleteDevice(ieee); err != nil {
		dm.logger.Error("delete device on leave", "err", err, "ieee", ieee)
	} else {
		dm.logger.Info("device removed from store", "ieee", ieee, "name", name)
	}

	dm.coord.Events().Emit(Event{
		Type: EventDeviceLeft,
		Data: map[string]interface{}{"ieee": ieee},
	})
}

func (dm *DeviceManager) cancelInterview(ieee string) {
	dm.interviewMu.Lock()
	if entry, ok := dm.interviewCancels[ieee]; ok {
		entry.cancel()
		delete(dm.interviewCancels, ieee)
	}
	dm.interviewMu.Unlock()
}

// HandleAnnounce processes a device announce event.
func (dm *DeviceManager) HandleAnnounce(evt ncp.DeviceAnnounceEvent) {
	ieee := fmt.Sprintf("%016X", evt.IEEEAddr)

	dm.updateAddrIndex(ieee, evt.ShortAddr)

	dev, err := dm.coord.Store().GetDevice(ieee)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			dm.logger.Error("get device on announce", "err", err, "ieee", ieee)
			return
		}
		dev = &store.Device{
			IEEEAddress: ieee,
			JoinedAt:    time.Now(),
		}
	}
	dm.logger.Info("device announce", "ieee", ieee, "short", fmt.Sprintf("0x%04X", evt.ShortAddr), "name", deviceName(dev))
	dm.dropStaleAddr(ieee, dev.ShortAddress, evt.ShortAddr)
	dev.ShortAddress = evt.ShortAddr
	dev.LastSeen = time.Now()

	if err := dm.coord.Store().SaveDevice(dev); err != nil {
		dm.logger.Error("save device on announce", "err", err)
	}

	dm.coord.Events().Emit(Event{
		Type: EventDeviceAnnounce,
		Data: map[string]interface{}{
			"ieee":       ieee,
			"short_addr": evt.ShortAddr,
		},
	})

	dm.interviewMu.Lock()
	_, interviewing := dm.interviewCancels[ieee]
	dm.interviewMu.Unlock()

	if interviewing {
		dm.logger.Info("announce during interview, address updated", "ieee", ieee,
			"short", fmt.Sprintf("0x%04X", evt.ShortAddr), "name", deviceName(dev))
		return
	}

	dm.lastJoinMu.Lock()
	if last, ok := dm.lastJoin[ieee]; ok && time.Since(last) < 3*time.Second {
		dm.lastJoinMu.Unlock()
		dm.logger.Debug("duplicate announce, interview already started", "ieee", ieee)
		return
	}
	dm.lastJoin[ieee] = time.Now()
	// Evict stale entries to prevent unbounded growth.
	if len(dm.lastJoin) > 50 {
		for k, t := range dm.lastJoin {
			if time.Since(t) > time.Minute {
				delete(dm.lastJoin, k)
			}
		}
	}
	dm.lastJoinMu.Unlock()

	dm.interviewWg.Add(1)
	go dm.Interview(ieee, !dev.Interviewed)
}

// Interview queries a device for its endpoints and descriptors, then
// resolves it and starts its session. Retries up to 3 times, re-reading
// the device from store each time to pick up short address changes.
func (dm *DeviceManager) Interview(ieee string, newJoin bool) {
	gen := dm.interviewGen.Add(1)

	defer func() {
		dm.interviewMu.Lock()
		if entry, ok := dm.interviewCancels[ieee]; ok && entry.gen == gen {
			delete(dm.interviewCancels, ieee)
		}
		dm.interviewMu.Unlock()
		dm.interviewWg.Done()
	}()

	ctx, cancel := context.WithTimeout(dm.coord.Context(), 3*time.Minute)
	defer cancel()

	dm.interviewMu.Lock()
	if prev, ok := dm.interviewCancels[ieee]; ok {
		prev.cancel()
	}
	dm.interviewCancels[ieee] = interviewEntry{cancel: cancel, gen: gen}
	dm.interviewMu.Unlock()

	const maxRetries = 3
	for attempt := 1; attempt <= maxRetries; attempt++ {
		dev, err := dm.coord.Store().GetDevice(ieee)
		if err != nil {
			dm.logger.Error("interview: device not found", "ieee", ieee)
			return
		}

		dm.logger.Info("starting interview", "ieee", ieee, "name", deviceName(dev),
			"short", fmt.Sprintf("0x%04X", dev.ShortAddress), "attempt", attempt)

		endpoints, err := dm.coord.NCP().ActiveEndpoints(ctx, dev.ShortAddress)
		if err != nil {
			dm.logger.Warn("interview: active EP failed", "err", err, "ieee", ieee, "attempt", attempt)
			if ctx.Err() != nil {
				return
			}
			if attempt < maxRetries {
				jitter := time.Duration(rand.Intn(3001)) * time.Millisecond
				delay := 5*time.Second + jitter
				dm.logger.Info("interview: will retry", "ieee", ieee, "delay", delay)
				if err := quirks.Sleep(ctx, delay); err != nil {
					return
				}
			}
			continue
		}

		if len(endpoints) > 0 {
			dm.readBasicAttributes(ctx, dev, endpoints[0])
		}
		name := deviceName(dev)

		previous := make(map[uint8]store.Endpoint, len(dev.Endpoints))
		for _, ep := range dev.Endpoints {
			previous[ep.ID] = ep
		}
		dev.Endpoints = make([]store.Endpoint, 0, len(endpoints))
		for _, ep := range endpoints {
			if ep == 0 {
				continue
			}
			sd, err := dm.coord.NCP().SimpleDescriptor(ctx, dev.ShortAddress, ep)
			if err != nil {
				dm.logger.Warn("interview: simple desc", "err", err, "ieee", ieee, "name", name, "ep", ep)
				continue
			}
			prev := previous[ep]
			dev.Endpoints = append(dev.Endpoints, store.Endpoint{
				ID:          ep,
				ProfileID:   sd.ProfileID,
				DeviceID:    sd.DeviceID,
				InClusters:  sd.InClusters,
				OutClusters: sd.OutClusters,
				InAttrs:     keepAttrs(prev.InAttrs, sd.InClusters),
				OutAttrs:    keepAttrs(prev.OutAttrs, sd.OutClusters),
			})
			dm.logger.Info("endpoint discovered",
				"ieee", ieee, "name", name, "ep", ep,
				"profile", fmt.Sprintf("0x%04X", sd.ProfileID),
				"device", fmt.Sprintf("0x%04X", sd.DeviceID),
				"in_clusters", len(sd.InClusters),
				"out_clusters", len(sd.OutClusters),
			)
		}

		dev.Interviewed = true
		if err := dm.coord.Store().SaveDevice(dev); err != nil {
			dm.logger.Error("interview: save", "err", err, "ieee", ieee, "name", name)
			return
		}
		dm.logger.Info("interview complete", "ieee", ieee, "name", name, "endpoints", len(dev.Endpoints))

		if _, err := dm.activate(dev, true, newJoin); err != nil {
			dm.logger.Error("interview: activate", "err", err, "ieee", ieee)
		}
		return
	}

	dm.logger.Error("interview failed after retries", "ieee", ieee, "attempts", maxRetries)
}

// keepAttrs returns the cached attributes of the clusters still listed,
// or nil when none remain.
func keepAttrs(cache map[uint16]map[uint16]store.Value, ids []uint16) map[uint16]map[uint16]store.Value {
	var kept map[uint16]map[uint16]store.Value
	for _, id := range ids {
		attrs, ok := cache[id]
		if !ok {
			continue
		}
		if kept == nil {
			kept = make(map[uint16]map[uint16]store.Value)
		}
		kept[id] = attrs
	}
	return kept
}

func (dm *DeviceManager) readBasicAttributes(ctx context.Context, dev *store.Device, ep uint8) {
	results, err := dm.coord.NCP().ReadAttributes(ctx, ncp.ReadAttributesRequest{
		DstAddr:   dev.ShortAddress,
		DstEP:     ep,
		ProfileID: uint16(zigbee.ProfileHomeAutomation),
		ClusterID: 0x0000,
		AttrIDs:   []uint16{0x0004, 0x0005},
	})
	if err != nil {
		dm.logger.Warn("read basic attributes", "err", err)
		return
	}

	for _, r := range results {
		if r.Status != zcl.ZCLStatusSuccess || len(r.Value) == 0 {
			continue
		}
		val, _, err := zcl.DecodeValue(r.DataType, r.Value)
		if err != nil {
			continue
		}
		switch r.AttrID {
		case 0x0004:
			if s, ok := val.(string); ok {
				dev.Manufacturer = s
			}
		case 0x0005:
			if s, ok := val.(string); ok {
				dev.Model = s
			}
		}
	}
}

// RemoveDevice sends a ZDO leave request, cancels any in-progress interview,
// ends the session and deletes the device from the store.
func (dm *DeviceManager) RemoveDevice(ieee string) error {
	dm.cancelInterview(ieee)
	dm.endSession(ieee)

	dev, err := dm.coord.Store().GetDevice(ieee)
	if err == nil && dm.coord.Online() {
		if raw, parseErr := ParseIEEE(ieee); parseErr == nil {
			ctx, cancel := context.WithTimeout(dm.coord.Context(), 10*time.Second)
			defer cancel()
			if leaveErr := dm.coord.NCP().MgmtLeave(ctx, dev.ShortAddress, raw); leaveErr != nil {
				dm.logger.Warn("mgmt leave request failed", "ieee", ieee, "name", deviceName(dev), "err", leaveErr)
			} else {
				dm.logger.Info("device removed from network", "ieee", ieee, "name", deviceName(dev))
			}
		}
	}

	dm.removeIEEEFromAddrIndex(ieee)
	return dm.coord.Store().DeleteDevice(ieee)
}

// ListDevices returns all stored devices.
func (dm *DeviceManager) ListDevices() ([]*store.Device, error) {
	return dm.coord.Store().ListDevices()
}

// GetDevice returns a stored device by IEEE address.
func (dm *DeviceManager) GetDevice(ieee string) (*store.Device, error) {
	return dm.coord.Store().GetDevice(ieee)
}
