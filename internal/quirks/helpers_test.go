package quirks

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/shimmeringbee/zigbee"

	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/zcl"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var errUnreachable = errors.New("unreachable")

// fakeTransport answers reads with values and fails the first failReads
// reads (all of them when failReads < 0).
type fakeTransport struct {
	mu        sync.Mutex
	values    map[uint16]any
	failReads int
	failBind  bool
	reads     int
	binds     []device.BindRequest
	commands  []device.CommandRequest
	failCmds  int
}

func (f *fakeTransport) Request(context.Context, device.Frame) error { return nil }

func (f *fakeTransport) Reply(context.Context, device.Frame) error { return nil }

func (f *fakeTransport) Command(_ context.Context, req device.CommandRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, req)
	if f.failCmds != 0 {
		f.failCmds--
		return errUnreachable
	}
	return nil
}

func (f *fakeTransport) ReadAttributes(_ context.Context, req device.ReadRequest) ([]device.AttributeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failReads != 0 {
		f.failReads--
		return nil, errUnreachable
	}
	var out []device.AttributeRecord
	for _, id := range req.AttrIDs {
		v, ok := f.values[id]
		if !ok {
			out = append(out, device.AttributeRecord{ID: id, Status: zcl.ZCLStatusUnsupportedAttr})
			continue
		}
		out = append(out, device.AttributeRecord{ID: id, Status: zcl.ZCLStatusSuccess, Value: v})
	}
	return out, nil
}

func (f *fakeTransport) Bind(_ context.Context, req device.BindRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds = append(f.binds, req)
	if f.failBind {
		return errUnreachable
	}
	return nil
}

func (f *fakeTransport) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func ids(v ...zigbee.ClusterID) []zigbee.ClusterID { return v }

// genericDevice builds a discovered device the way the runtime does.
func genericDevice(t *testing.T, tr device.Transport, eps ...zigbee.EndpointDescription) *device.Device {
	t.Helper()
	opts := []device.Option{device.WithLogger(newTestLogger()), device.WithRegistry(zcl.NewRegistry(newTestLogger()))}
	if tr != nil {
		opts = append(opts, device.WithTransport(tr))
	}
	dev := device.New(zigbee.IEEEAddress(0x000D6F000ABCDEF0), 0x4F21, opts...)
	for _, ep := range eps {
		dev.AddDescribedEndpoint(ep)
	}
	return dev
}

func cluster(t *testing.T, dev *device.Device, ep zigbee.Endpoint, id zigbee.ClusterID) *device.Cluster {
	t.Helper()
	e, ok := dev.Endpoint(ep)
	if !ok {
		t.Fatalf("endpoint %d missing", ep)
	}
	c, ok := e.InputCluster(id)
	if !ok {
		t.Fatalf("input cluster 0x%04X missing on endpoint %d", uint16(id), ep)
	}
	return c
}
