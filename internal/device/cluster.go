package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/zcl"
)

// Cluster is one cluster instance on an endpoint. It keeps the last known
// value of every attribute it has seen, keyed by attribute id.
type Cluster struct {
	id       zigbee.ClusterID
	def      *zcl.ClusterDef
	endpoint *Endpoint

	mu        sync.RWMutex
	cache     map[uint16]any
	listeners []AttributeListener
}

// NewCluster creates a cluster bound to ep. def may be nil for clusters
// without a known definition.
func NewCluster(ep *Endpoint, id zigbee.ClusterID, def *zcl.ClusterDef) *Cluster {
	return &Cluster{
		id:       id,
		def:      def,
		endpoint: ep,
		cache:    make(map[uint16]any),
	}
}

func (d *Device) lookupDef(id zigbee.ClusterID) *zcl.ClusterDef {
	if d.registry == nil {
		return nil
	}
	return d.registry.Get(uint16(id))
}

func (c *Cluster) ID() zigbee.ClusterID { return c.id }

func (c *Cluster) Def() *zcl.ClusterDef { return c.def }

func (c *Cluster) Endpoint() *Endpoint { return c.endpoint }

// Name returns the definition name, or the hex id without a definition.
func (c *Cluster) Name() string {
	if c.def != nil {
		return c.def.Name
	}
	return fmt.Sprintf("0x%04X", uint16(c.id))
}

// Attribute returns the cached value of an attribute.
func (c *Cluster) Attribute(id uint16) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.cache[id]
	return v, ok
}

// Attributes returns a copy of the attribute cache.
func (c *Cluster) Attributes() map[uint16]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint16]any, len(c.cache))
	for k, v := range c.cache {
		out[k] = v
	}
	return out
}

// LoadAttributes seeds the cache from a snapshot without notifying
// listeners. Existing entries with the same id are overwritten.
func (c *Cluster) LoadAttributes(snapshot map[uint16]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snapshot {
		c.cache[k] = v
	}
}

// UpdateAttribute stores a value and notifies listeners.
func (c *Cluster) UpdateAttribute(id uint16, value any) {
	c.mu.Lock()
	c.cache[id] = value
	listeners := append([]AttributeListener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.AttributeUpdated(id, value)
	}
}

// AddListener registers l for attribute updates. Adding the same listener
// twice has no effect.
func (c *Cluster) AddListener(l AttributeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.listeners {
		if existing == l {
			return
		}
	}
	c.listeners = append(c.listeners, l)
}

// RemoveListener unregisters l.
func (c *Cluster) RemoveListener(l AttributeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.listeners {
		if existing == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// Bind asks the node to bind this cluster to the coordinator.
func (c *Cluster) Bind(ctx context.Context) error {
	dev := c.endpoint.device
	if dev.transport == nil {
		return ErrNoTransport
	}
	err := dev.transport.Bind(ctx, BindRequest{
		IEEE:      dev.IEEE,
		NWK:       dev.NWK,
		Endpoint:  c.endpoint.ID,
		ClusterID: c.id,
	})
	if err != nil {
		return fmt.Errorf("bind %s on endpoint %d: %w", c.Name(), c.endpoint.ID, err)
	}
	return nil
}

// ReadAttributes reads attributes from the node. Successful records update
// the cache and notify listeners; the decoded values are returned.
func (c *Cluster) ReadAttributes(ctx context.Context, ids ...uint16) (map[uint16]any, error) {
	dev := c.endpoint.device
	if dev.transport == nil {
		return nil, ErrNoTransport
	}
	records, err := dev.transport.ReadAttributes(ctx, ReadRequest{
		IEEE:      dev.IEEE,
		NWK:       dev.NWK,
		ProfileID: c.endpoint.MessageProfile(),
		ClusterID: c.id,
		Endpoint:  c.endpoint.ID,
		AttrIDs:   ids,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s attributes on endpoint %d: %w", c.Name(), c.endpoint.ID, err)
	}

	result := make(map[uint16]any, len(records))
	for _, r := range records {
		if r.Status != zcl.ZCLStatusSuccess {
			dev.logger.Debug("attribute read status",
				"cluster", fmt.Sprintf("0x%04X", uint16(c.id)),
				"attr", fmt.Sprintf("0x%04X", r.ID),
				"status", fmt.Sprintf("0x%02X", r.Status),
			)
			continue
		}
		result[r.ID] = r.Value
		c.UpdateAttribute(r.ID, r.Value)
	}
	if len(result) == 0 && len(ids) > 0 {
		return nil, fmt.Errorf("read %s attributes on endpoint %d: no successful records", c.Name(), c.endpoint.ID)
	}
	return result, nil
}

// Command sends a cluster-specific command to the node.
func (c *Cluster) Command(ctx context.Context, commandID uint8, payload []byte) error {
	dev := c.endpoint.device
	if dev.transport == nil {
		return ErrNoTransport
	}
	err := dev.transport.Command(ctx, CommandRequest{
		NWK:       dev.NWK,
		ProfileID: c.endpoint.MessageProfile(),
		ClusterID: c.id,
		Endpoint:  c.endpoint.ID,
		CommandID: commandID,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("command 0x%02X on %s: %w", commandID, c.Name(), err)
	}
	return nil
}
