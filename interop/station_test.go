package interop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newStationNet(t *testing.T, id uint16, proto *fakeProtocol, world *fakeWorld) *NetIO {
	t.Helper()
	cfg := testConfig()
	cfg.NetworkID = id
	n, err := NewNetIO(cfg, proto, world)
	require.NoError(t, err)
	return n
}

func TestStation_RejectsDuplicateIDs(t *testing.T) {
	world := &fakeWorld{}
	s := NewStation()

	require.NoError(t, s.AddNetwork(newStationNet(t, 1, &fakeProtocol{}, world)))
	require.NoError(t, s.AddNetwork(newStationNet(t, 2, &fakeProtocol{}, world)))
	assert.Error(t, s.AddNetwork(newStationNet(t, 1, &fakeProtocol{}, world)))
	assert.Error(t, s.AddNetwork(nil))

	assert.Len(t, s.Networks(), 2)
	n, ok := s.Network(2)
	require.True(t, ok)
	assert.Equal(t, uint16(2), n.NetworkID())
	_, ok = s.Network(3)
	assert.False(t, ok)
}

func TestStation_FramesSkipFailedNetworks(t *testing.T) {
	// GIVEN one healthy network and one whose initialization fails
	world := &fakeWorld{}
	world.add(localF16(1, r3.Vec{}))
	good, bad := &fakeProtocol{}, &fakeProtocol{initErr: errors.New("no route")}
	s := NewStation()
	require.NoError(t, s.AddNetwork(newStationNet(t, 1, good, world)))
	require.NoError(t, s.AddNetwork(newStationNet(t, 2, bad, world)))

	// WHEN the station runs a frame
	assert.Equal(t, 1, s.NetworkInitialization())
	s.InputFrames(0.05)
	s.OutputFrames(0.05)

	// THEN only the healthy network publishes
	assert.Len(t, good.sent, 1)
	assert.Empty(t, bad.sent)
	assert.Zero(t, bad.decodes)

	assert.True(t, s.Shutdown())
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
}

func TestStation_RelayBetweenNetworks(t *testing.T) {
	// GIVEN two networks sharing one player model
	world := &fakeWorld{}
	inbound, outbound := &fakeProtocol{}, &fakeProtocol{}
	s := NewStation()
	require.NoError(t, s.AddNetwork(newStationNet(t, 1, inbound, world)))
	require.NoError(t, s.AddNetwork(newStationNet(t, 2, outbound, world)))
	s.NetworkInitialization()

	// WHEN an entity arrives on network 1
	inbound.push(remote(8, "bravo", typeF16, r3.Vec{X: 5}))
	s.InputFrames(0.05)
	s.OutputFrames(0.05)

	// THEN network 2 relays it with its source identity, and network 1 does not echo it
	require.Len(t, outbound.sent, 1)
	assert.Equal(t, "bravo", outbound.sent[0].FederateName)
	assert.Equal(t, uint16(8), outbound.sent[0].PlayerID)
	assert.Equal(t, typeF16, outbound.sent[0].EntityType)
	assert.Empty(t, inbound.sent)
}
