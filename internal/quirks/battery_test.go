package quirks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigbee-quirks/internal/device"
)

func batteryDevice(t *testing.T, tr device.Transport) *device.Device {
	return genericDevice(t, tr, zigbee.EndpointDescription{
		Endpoint:      1,
		ProfileID:     zigbee.ProfileHomeAutomation,
		DeviceID:      0x0402,
		InClusterList: ids(0x0000, 0x0001, 0x0003),
	})
}

func TestBatteryPercent(t *testing.T) {
	tests := []struct {
		mv, want float64
	}{
		{2800, 60},
		{3200, 100},
		{3000, 100},
		{2500, 0},
		{2000, 0},
		{2749, 50},
		{2751, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BatteryPercent(tt.mv, 2500, 3000), "mv=%v", tt.mv)
	}
	assert.Equal(t, float64(0), BatteryPercent(2800, 3000, 3000), "degenerate range")
}

func TestBatteryScalesAttribute(t *testing.T) {
	dev := batteryDevice(t, nil)
	b := NewBattery(dev, BatteryConfig{
		Endpoint:      1,
		Cluster:       0x0001,
		Attributes:    []uint16{0x0020},
		Decode:        ScaledAttribute(100),
		MinMillivolts: 2500,
		MaxMillivolts: 3000,
	})

	r := b.Readings()
	assert.Equal(t, device.Unknown, r.Percent, "unknown before the first observation")
	assert.Equal(t, device.Unknown, r.Voltage)

	tests := []struct {
		raw     uint8
		percent float64
		voltage float64
	}{
		{28, 60, 2.8},
		{32, 100, 3.2},
		{20, 0, 2.0},
	}
	for _, tt := range tests {
		b.AttributeUpdated(0x0020, tt.raw)
		r := b.Readings()
		assert.Equal(t, device.Known(tt.percent), r.Percent, "raw=%d", tt.raw)
		v, ok := r.Voltage.Value()
		require.True(t, ok)
		assert.InDelta(t, tt.voltage, v, 1e-9)
	}
}

func TestBatteryIgnoresOtherAttributes(t *testing.T) {
	b := NewBattery(batteryDevice(t, nil), BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		MinMillivolts: 2500, MaxMillivolts: 3000,
	})
	b.AttributeUpdated(0x0021, uint8(200))
	assert.Equal(t, device.Unknown, b.Readings().Percent)
}

func TestBatteryDecodeFailureContained(t *testing.T) {
	b := NewBattery(batteryDevice(t, nil), BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		Decode:        ScaledAttribute(100),
		MinMillivolts: 2500, MaxMillivolts: 3000,
	})
	b.AttributeUpdated(0x0020, uint8(29))
	assert.NotPanics(t, func() { b.AttributeUpdated(0x0020, "garbage") })
	assert.Equal(t, device.Known(80), b.Readings().Percent, "bad update keeps previous readings")
}

func TestBatteryDerivedReadings(t *testing.T) {
	decode := func(_ uint16, v any) (Sample, error) {
		return Sample{Derived: map[string]float64{"soc_temperature": v.(float64)}}, nil
	}
	b := NewBattery(batteryDevice(t, nil), BatteryConfig{
		Endpoint: 1, Cluster: 0x0000, Attributes: []uint16{0xFF01}, Decode: decode,
		MinMillivolts: 2500, MaxMillivolts: 3000,
	})
	b.AttributeUpdated(0xFF01, float64(24))
	r := b.Readings()
	assert.Equal(t, device.Unknown, r.Percent, "no voltage in sample")
	assert.Equal(t, device.Known(24), r.Derived["soc_temperature"])
}

func TestBatterySetupNewJoinBindsAndReads(t *testing.T) {
	tr := &fakeTransport{values: map[uint16]any{0x0020: uint8(28)}}
	dev := batteryDevice(t, tr)
	b := NewBattery(dev, BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		Decode:        ScaledAttribute(100),
		MinMillivolts: 1500, MaxMillivolts: 2800,
		BindOnJoin:  true,
		ReadOnSetup: true,
		Read:        RetryPolicy{Attempts: 3},
	})

	b.Setup(context.Background(), true)
	b.Wait()

	require.Len(t, tr.binds, 1)
	assert.Equal(t, zigbee.ClusterID(0x0001), tr.binds[0].ClusterID)
	assert.Equal(t, 1, tr.readCount())
	assert.Equal(t, device.Known(100), b.Readings().Percent)

	cluster(t, dev, 1, 0x0001).UpdateAttribute(0x0020, uint8(15))
	assert.Equal(t, device.Known(0), b.Readings().Percent, "listener attached to the cluster")
}

func TestBatterySetupRejoinSkipsBind(t *testing.T) {
	tr := &fakeTransport{values: map[uint16]any{0x0020: uint8(28)}}
	b := NewBattery(batteryDevice(t, tr), BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		BindOnJoin: true, ReadOnSetup: true,
	})
	b.Setup(context.Background(), false)
	b.Wait()

	assert.Empty(t, tr.binds)
	assert.Equal(t, 1, tr.readCount())
}

func TestBatterySetupTransportFailure(t *testing.T) {
	tr := &fakeTransport{failReads: -1, failBind: true}
	b := NewBattery(batteryDevice(t, tr), BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		Decode:        ScaledAttribute(100),
		MinMillivolts: 1500, MaxMillivolts: 2800,
		BindOnJoin:  true,
		ReadOnSetup: true,
		Read:        RetryPolicy{Attempts: 3, Delay: time.Millisecond},
	})

	b.Setup(context.Background(), true)
	b.Wait()

	assert.Len(t, tr.binds, 1)
	assert.Equal(t, 3, tr.readCount())
	assert.Equal(t, device.Unknown, b.Readings().Percent)
}

func TestBatterySetupRetriesThenSucceeds(t *testing.T) {
	tr := &fakeTransport{failReads: 2, values: map[uint16]any{0x0020: uint8(28)}}
	b := NewBattery(batteryDevice(t, tr), BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		Decode:        ScaledAttribute(100),
		MinMillivolts: 1500, MaxMillivolts: 2800,
		ReadOnSetup: true,
		Read:        RetryPolicy{Attempts: 5, Delay: time.Millisecond},
	})

	b.Setup(context.Background(), false)
	b.Wait()

	assert.Equal(t, 3, tr.readCount())
	assert.Equal(t, device.Known(100), b.Readings().Percent)
}

func TestBatteryStopCancelsSetup(t *testing.T) {
	tr := &fakeTransport{failReads: -1}
	b := NewBattery(batteryDevice(t, tr), BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		ReadOnSetup: true,
		Read:        RetryPolicy{Attempts: 100, Delay: time.Hour},
	})
	b.Setup(context.Background(), false)

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not cancel the setup task")
	}
	assert.LessOrEqual(t, tr.readCount(), 1)
}

func TestBatterySetupMissingCluster(t *testing.T) {
	tr := &fakeTransport{}
	b := NewBattery(batteryDevice(t, tr), BatteryConfig{
		Endpoint: 1, Cluster: 0x0B05, Attributes: []uint16{0x0020},
		BindOnJoin: true, ReadOnSetup: true,
	})
	assert.NotPanics(t, func() { b.Setup(context.Background(), true) })
	b.Wait()
	assert.Empty(t, tr.binds)
	assert.Equal(t, device.Unknown, b.Readings().Percent)
}

func TestBatterySetupListenOnly(t *testing.T) {
	tr := &fakeTransport{}
	dev := batteryDevice(t, tr)
	b := NewBattery(dev, BatteryConfig{
		Endpoint: 1, Cluster: 0x0001, Attributes: []uint16{0x0020},
		Decode:        ScaledAttribute(100),
		MinMillivolts: 1500, MaxMillivolts: 2800,
	})
	b.Setup(context.Background(), true)
	b.Wait()
	assert.Zero(t, tr.readCount())

	cluster(t, dev, 1, 0x0001).UpdateAttribute(0x0020, uint8(28))
	assert.Equal(t, device.Known(100), b.Readings().Percent)
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	calls := 0
	err := RetryPolicy{Attempts: 5, Delay: time.Millisecond}.Do(ctx, logger, "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errUnreachable
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryPolicy{Attempts: 2}.Do(ctx, logger, "op", func(context.Context) error {
		calls++
		return errUnreachable
	})
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, 2, calls)

	calls = 0
	err = RetryPolicy{}.Do(ctx, logger, "op", func(context.Context) error {
		calls++
		return errUnreachable
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "zero attempts still runs once")
}

func TestRetryPolicySingleAttempt(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	for _, attempts := range []int{1, 0, -3} {
		calls := 0
		err := RetryPolicy{Attempts: attempts, Delay: time.Millisecond}.Do(ctx, newTestLogger(), "op", func(context.Context) error {
			calls++
			return errUnreachable
		})
		assert.ErrorIs(t, err, errUnreachable, "attempts=%d", attempts)
		assert.Equal(t, 1, calls, "attempts=%d", attempts)
	}
	assert.NoError(t, ctx.Err(), "single attempts must not run until the deadline")
}

func TestRetryPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RetryPolicy{Attempts: 10, Delay: time.Hour}.Do(ctx, newTestLogger(), "op", func(context.Context) error {
		calls++
		return errUnreachable
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestTask(t *testing.T) {
	logger := newTestLogger()
	boom := errors.New("boom")

	assert.ErrorIs(t, Go(context.Background(), "fail", logger, func(context.Context) error { return boom }).Wait(), boom)
	assert.NoError(t, Go(context.Background(), "ok", logger, func(context.Context) error { return nil }).Wait())

	task := Go(context.Background(), "panic", logger, func(context.Context) error { panic("bad") })
	assert.Error(t, task.Wait())

	task = Go(context.Background(), "sleep", logger, func(ctx context.Context) error { return Sleep(ctx, time.Hour) })
	task.Cancel()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task not cancelled")
	}
	assert.ErrorIs(t, task.Wait(), context.Canceled)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
