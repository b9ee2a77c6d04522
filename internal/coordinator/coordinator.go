package coordinator

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/ncp"
	"zigbee-quirks/internal/quirks"
	"zigbee-quirks/internal/store"
	"zigbee-quirks/internal/zcl"
)

// ErrOffline is returned by transport operations when no NCP is attached.
var ErrOffline = errors.New("coordinator: no ncp attached")

// Config holds coordinator configuration.
type Config struct {
	// ReadTimeout bounds a single attribute read. Zero means no bound
	// beyond the caller's context.
	ReadTimeout time.Duration
}

// ParseIEEE parses "DD:DD:DD:DD:DD:DD:DD:DD" or "DDDDDDDDDDDDDDDD" into [8]byte.
func ParseIEEE(s string) ([8]byte, error) {
	var result [8]byte
	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return result, fmt.Errorf("parse ieee address: %w", err)
	}
	if len(b) != 8 {
		return result, fmt.Errorf("ieee address must be 8 bytes, got %d", len(b))
	}
	copy(result[:], b)
	return result, nil
}

// ieeeFromBytes converts the NCP byte form, most significant byte first.
func ieeeFromBytes(b [8]byte) zigbee.IEEEAddress {
	return zigbee.IEEEAddress(binary.BigEndian.Uint64(b[:]))
}

func ieeeBytes(a zigbee.IEEEAddress) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(a))
	return b
}

// Coordinator hosts device sessions on top of an NCP backend. With a nil
// backend it runs offline: stored devices can be restored and resolved but
// nothing reaches the network.
type Coordinator struct {
	ncp       ncp.NCP
	store     store.Store
	registry  *zcl.Registry
	catalog   *quirks.Catalog
	events    *EventBus
	devices   *DeviceManager
	logger    *slog.Logger
	config    Config
	localIEEE [8]byte // coordinator's own IEEE address, cached at Start
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new Coordinator. backend may be nil.
func New(backend ncp.NCP, st store.Store, registry *zcl.Registry, catalog *quirks.Catalog, events *EventBus, cfg Config, logger *slog.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		ncp:      backend,
		store:    st,
		registry: registry,
		catalog:  catalog,
		events:   events,
		logger:   logger.With("component", "coordinator"),
		config:   cfg,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.devices = NewDeviceManager(c)
	c.devices.RebuildAddrIndex()
	if backend != nil {
		c.registerIndicationHandlers()
	}
	return c
}

// Context returns the coordinator's context, which is cancelled on Stop().
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Online reports whether an NCP is attached.
func (c *Coordinator) Online() bool {
	return c.ncp != nil
}

// Start caches the coordinator address and brings every stored device back
// into a session. Battery setup runs only when online.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.Online() {
		ieee, err := c.ncp.GetLocalIEEE(ctx)
		if err != nil {
			return fmt.Errorf("get coordinator ieee: %w", err)
		}
		c.localIEEE = ieee
		c.logger.Info("coordinator IEEE", "ieee", fmt.Sprintf("%016X", ieee))
	}
	devs, err := c.devices.RestoreAll(c.Online())
	if err != nil {
		return fmt.Errorf("restore devices: %w", err)
	}
	c.logger.Info("devices restored", "count", len(devs), "online", c.Online())
	return nil
}

// LocalIEEE returns the coordinator's own IEEE address.
func (c *Coordinator) LocalIEEE() [8]byte {
	return c.localIEEE
}

// Stop cancels the coordinator context, waits for in-progress interviews
// and command handlers, then stops every device session.
func (c *Coordinator) Stop() {
	c.cancel()
	c.devices.CancelAllInterviews()
	c.devices.StopAll()
}

// NCP returns the underlying NCP backend.
func (c *Coordinator) NCP() ncp.NCP {
	return c.ncp
}

// Store returns the store.
func (c *Coordinator) Store() store.Store {
	return c.store
}

// Registry returns the ZCL registry.
func (c *Coordinator) Registry() *zcl.Registry {
	return c.registry
}

// Catalog returns the quirk catalog devices are resolved against.
func (c *Coordinator) Catalog() *quirks.Catalog {
	return c.catalog
}

// Events returns the event bus.
func (c *Coordinator) Events() *EventBus {
	return c.events
}

// Devices returns the device manager.
func (c *Coordinator) Devices() *DeviceManager {
	return c.devices
}

func (c *Coordinator) registerIndicationHandlers() {
	c.ncp.OnDeviceJoined(func(evt ncp.DeviceJoinedEvent) {
		c.devices.HandleJoin(evt)
	})
	c.ncp.OnDeviceLeft(func(evt ncp.DeviceLeftEvent) {
		c.devices.HandleLeave(evt)
	})
	c.ncp.OnDeviceAnnounce(func(evt ncp.DeviceAnnounceEvent) {
		c.devices.HandleAnnounce(evt)
	})
	c.ncp.OnAttributeReport(func(evt ncp.AttributeReportEvent) {
		c.devices.HandleAttributeReport(evt)
	})
	c.ncp.OnClusterCommand(func(evt ncp.ClusterCommandEvent) {
		c.devices.HandleClusterCommand(evt)
	})
}
