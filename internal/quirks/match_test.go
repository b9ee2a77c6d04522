package quirks

import (
	"testing"

	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// motionEndpoints is a two endpoint motion sensor as discovered.
func motionEndpoints() []zigbee.EndpointDescription {
	return []zigbee.EndpointDescription{
		{
			Endpoint:       1,
			ProfileID:      zigbee.ProfileHomeAutomation,
			DeviceID:       0x0402,
			InClusterList:  ids(0x0000, 0x0001, 0x0003, 0x0402, 0x0500, 0x0020, 0x0B05),
			OutClusterList: ids(0x0019),
		},
		{
			Endpoint:       2,
			ProfileID:      0xC2DF,
			DeviceID:       0x0107,
			InClusterList:  ids(0x0000, 0x0001, 0x0003, 0x0B05, 0xFC46),
			OutClusterList: ids(0x0003),
		},
	}
}

func motionSignature() Signature {
	return Signature{
		1: {
			ProfileID:      Profile(zigbee.ProfileHomeAutomation),
			DeviceType:     DeviceType(0x0402),
			InputClusters:  ids(0x0000, 0x0001, 0x0003, 0x0402, 0x0500, 0x0020, 0x0B05),
			OutputClusters: ids(0x0019),
		},
		2: {
			ProfileID:      Profile(0xC2DF),
			DeviceType:     DeviceType(0x0107),
			InputClusters:  ids(0x0000, 0x0001, 0x0003, 0x0B05, 0xFC46),
			OutputClusters: ids(0x0003),
		},
	}
}

func catalogOf(t *testing.T, ds ...Descriptor) *Catalog {
	t.Helper()
	c := NewCatalog(newTestLogger())
	for _, d := range ds {
		require.NoError(t, c.Register(d))
	}
	return c
}

func TestMatchExactTopology(t *testing.T) {
	dev := genericDevice(t, nil, motionEndpoints()...)
	c := catalogOf(t, Descriptor{Name: "motion", Signatures: []Signature{motionSignature()}})

	m := Match(dev, c)
	require.True(t, m.Matched())
	assert.Equal(t, "motion", m.Descriptor.Name)
	assert.Equal(t, 0, m.Alternative)
}

func TestMatchNoDescriptors(t *testing.T) {
	dev := genericDevice(t, nil, motionEndpoints()...)
	c := catalogOf(t)

	assert.False(t, Match(dev, c).Matched())
	assert.Same(t, dev, Resolve(dev, c))
}

func TestMatchFirstRegisteredWins(t *testing.T) {
	dev := genericDevice(t, nil, motionEndpoints()...)
	c := catalogOf(t,
		Descriptor{Name: "unrelated", Signatures: []Signature{{1: {InputClusters: ids(0x0006)}}}},
		Descriptor{Name: "first", Signatures: []Signature{motionSignature()}},
		Descriptor{Name: "second", Signatures: []Signature{motionSignature()}},
	)

	m := Match(dev, c)
	require.True(t, m.Matched())
	assert.Equal(t, "first", m.Descriptor.Name)
	assert.Same(t, c.All()[1], m.Descriptor)
}

func TestMatchLaterAlternative(t *testing.T) {
	dev := genericDevice(t, nil, motionEndpoints()...)
	c := catalogOf(t, Descriptor{
		Name:       "motion",
		Signatures: []Signature{{1: {InputClusters: ids(0x0000)}}, motionSignature()},
	})

	m := Match(dev, c)
	require.True(t, m.Matched())
	assert.Equal(t, 1, m.Alternative)
}

func TestMatchWildcardFields(t *testing.T) {
	sig := motionSignature()
	for id, ep := range sig {
		ep.ProfileID = nil
		ep.DeviceType = nil
		sig[id] = ep
	}
	c := catalogOf(t, Descriptor{Name: "wild", Signatures: []Signature{sig}})

	eps := motionEndpoints()
	eps[0].ProfileID = 0xC05E
	eps[1].DeviceID = 0x0999
	assert.True(t, Match(genericDevice(t, nil, eps...), c).Matched())
}

func TestMatchRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]zigbee.EndpointDescription) []zigbee.EndpointDescription
	}{
		{"missing endpoint", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			return eps[:1]
		}},
		{"extra endpoint", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			return append(eps, zigbee.EndpointDescription{Endpoint: 3, ProfileID: zigbee.ProfileHomeAutomation})
		}},
		{"renumbered endpoint", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			eps[1].Endpoint = 3
			return eps
		}},
		{"profile differs", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			eps[1].ProfileID = zigbee.ProfileHomeAutomation
			return eps
		}},
		{"device type differs", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			eps[0].DeviceID = 0x0302
			return eps
		}},
		{"extra input cluster", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			eps[0].InClusterList = append(eps[0].InClusterList, 0x0406)
			return eps
		}},
		{"missing input cluster", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			eps[0].InClusterList = eps[0].InClusterList[1:]
			return eps
		}},
		{"output cluster swapped for input", func(eps []zigbee.EndpointDescription) []zigbee.EndpointDescription {
			eps[1].OutClusterList = nil
			eps[1].InClusterList = append(eps[1].InClusterList, 0x0019)
			return eps
		}},
	}
	c := catalogOf(t, Descriptor{Name: "motion", Signatures: []Signature{motionSignature()}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := genericDevice(t, nil, tt.mutate(motionEndpoints())...)
			assert.False(t, Match(dev, c).Matched())
		})
	}
}

func TestMatchClusterOrderIrrelevant(t *testing.T) {
	eps := motionEndpoints()
	in := eps[0].InClusterList
	for i, j := 0, len(in)-1; i < j; i, j = i+1, j-1 {
		in[i], in[j] = in[j], in[i]
	}
	c := catalogOf(t, Descriptor{Name: "motion", Signatures: []Signature{motionSignature()}})
	assert.True(t, Match(genericDevice(t, nil, eps...), c).Matched())
}

func TestMatchIgnoresZDOEndpoint(t *testing.T) {
	eps := append(motionEndpoints(), zigbee.EndpointDescription{Endpoint: 0})
	c := catalogOf(t, Descriptor{Name: "motion", Signatures: []Signature{motionSignature()}})
	assert.True(t, Match(genericDevice(t, nil, eps...), c).Matched())
}

func TestSameClusters(t *testing.T) {
	tests := []struct {
		have, want []zigbee.ClusterID
		same       bool
	}{
		{nil, nil, true},
		{ids(1, 2), ids(2, 1), true},
		{ids(1, 2), ids(1, 2, 2), true},
		{ids(1, 2), ids(1), false},
		{ids(1), ids(1, 2), false},
		{ids(1, 3), ids(1, 2), false},
		{nil, ids(0), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.same, sameClusters(tt.have, tt.want), "have %v want %v", tt.have, tt.want)
	}
}
