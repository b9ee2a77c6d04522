package quirks

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/zcl"
)

// Sample is the battery data decoded from one attribute update.
type Sample struct {
	Millivolts float64
	HasVoltage bool
	Derived    map[string]float64
}

// DecodeFunc turns an attribute value into a battery sample.
type DecodeFunc func(attrID uint16, value any) (Sample, error)

// ScaledAttribute decodes a numeric attribute as raw*multiplier millivolts.
func ScaledAttribute(multiplier float64) DecodeFunc {
	return func(attrID uint16, value any) (Sample, error) {
		raw, ok := zcl.Numeric(value)
		if !ok {
			return Sample{}, fmt.Errorf("attribute 0x%04X: %T is not numeric", attrID, value)
		}
		return Sample{Millivolts: raw * multiplier, HasVoltage: true}, nil
	}
}

// BatteryConfig locates the battery attribute and its scale.
type BatteryConfig struct {
	Endpoint zigbee.Endpoint
	Cluster  zigbee.ClusterID
	// Attributes that carry battery data; the first is read on setup.
	Attributes []uint16
	// Decode defaults to ScaledAttribute(1).
	Decode        DecodeFunc
	MinMillivolts float64
	MaxMillivolts float64
	BindOnJoin    bool
	ReadOnSetup   bool
	Read          RetryPolicy
}

// Battery is a BatteryMonitor driven by attribute updates on one cluster.
type Battery struct {
	dev *device.Device
	cfg BatteryConfig

	mu       sync.RWMutex
	readings device.BatteryReadings
	task     *Task
}

// NewBattery creates a monitor for dev. All readings start unknown.
func NewBattery(dev *device.Device, cfg BatteryConfig) *Battery {
	if cfg.Decode == nil {
		cfg.Decode = ScaledAttribute(1)
	}
	return &Battery{dev: dev, cfg: cfg}
}

// BatteryPercent maps millivolts linearly onto 0..100 between min and max,
// rounded and clamped.
func BatteryPercent(mv, minMV, maxMV float64) float64 {
	if maxMV <= minMV {
		return 0
	}
	p := math.Round((mv - minMV) / (maxMV - minMV) * 100)
	return math.Max(0, math.Min(100, p))
}

// Setup attaches the monitor to its cluster and, as configured, binds the
// cluster (new joins only) and reads the battery attribute in the
// background. Transport failures are logged and leave readings unknown.
func (b *Battery) Setup(ctx context.Context, newJoin bool) {
	logger := b.dev.Logger()
	ep, ok := b.dev.Endpoint(b.cfg.Endpoint)
	if !ok {
		logger.Error("battery endpoint missing", "endpoint", b.cfg.Endpoint)
		return
	}
	cluster, ok := ep.InputCluster(b.cfg.Cluster)
	if !ok {
		logger.Error("battery cluster missing", "endpoint", b.cfg.Endpoint, "cluster", fmt.Sprintf("0x%04X", uint16(b.cfg.Cluster)))
		return
	}
	cluster.AddListener(b)

	bind := newJoin && b.cfg.BindOnJoin
	if !bind && (!b.cfg.ReadOnSetup || len(b.cfg.Attributes) == 0) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.task != nil {
		b.task.Cancel()
	}
	b.task = Go(ctx, "battery setup", logger, func(ctx context.Context) error {
		if bind {
			if err := cluster.Bind(ctx); err != nil {
				logger.Warn("battery bind failed", "err", err)
			}
		}
		if !b.cfg.ReadOnSetup || len(b.cfg.Attributes) == 0 {
			return nil
		}
		return b.cfg.Read.Do(ctx, logger, "battery read", func(ctx context.Context) error {
			_, err := cluster.ReadAttributes(ctx, b.cfg.Attributes[0])
			return err
		})
	})
}

// AttributeUpdated decodes updates of the configured battery attributes;
// other attributes are ignored.
func (b *Battery) AttributeUpdated(attrID uint16, value any) {
	if !b.watches(attrID) {
		return
	}
	s, err := b.cfg.Decode(attrID, value)
	if err != nil {
		b.dev.Logger().Warn("battery decode failed", "attr", fmt.Sprintf("0x%04X", attrID), "err", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s.HasVoltage {
		b.readings.Percent = device.Known(BatteryPercent(s.Millivolts, b.cfg.MinMillivolts, b.cfg.MaxMillivolts))
		b.readings.Voltage = device.Known(s.Millivolts / 1000)
	}
	if len(s.Derived) > 0 {
		derived := make(map[string]device.Reading, len(b.readings.Derived)+len(s.Derived))
		for k, v := range b.readings.Derived {
			derived[k] = v
		}
		for k, v := range s.Derived {
			derived[k] = device.Known(v)
		}
		b.readings.Derived = derived
	}
}

func (b *Battery) watches(attrID uint16) bool {
	for _, id := range b.cfg.Attributes {
		if id == attrID {
			return true
		}
	}
	return false
}

// Readings returns the latest readings.
func (b *Battery) Readings() device.BatteryReadings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readings
}

// Stop cancels a pending setup and waits for it to return.
func (b *Battery) Stop() {
	b.mu.Lock()
	t := b.task
	b.task = nil
	b.mu.Unlock()
	if t != nil {
		t.Cancel()
		t.Wait()
	}
}

// Wait blocks until a pending setup finishes. It is meant for tests and
// tools that need the setup result before continuing.
func (b *Battery) Wait() {
	b.mu.RLock()
	t := b.task
	b.mu.RUnlock()
	if t != nil {
		t.Wait()
	}
}
