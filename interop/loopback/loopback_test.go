package loopback

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop"
	"github.com/simnet-io/interop/interop/internal/testutil"
	"github.com/simnet-io/interop/interop/localsim"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

var f16 = interop.PlayerDescriptor{Class: "Aircraft", Type: "F-16C"}

func federateConfig(name string) interop.Config {
	mapper := interop.NtmConfig{EntityType: "1.2.225.1.1.3", Class: "Aircraft", Type: "F-16C"}
	return interop.Config{
		NetworkID:         1,
		FederationName:    "exercise",
		FederateName:      name,
		Protocol:          interop.ProtocolConfig{Name: "loopback"},
		InputEntityTypes:  []interop.NtmConfig{mapper},
		OutputEntityTypes: []interop.NtmConfig{mapper},
	}
}

func newFederate(t *testing.T, bus *Bus, name string, clock *testutil.Clock) (*interop.NetIO, *localsim.World, *Protocol) {
	t.Helper()
	world := localsim.NewWorld(interop.DRFPW)
	proto := New(bus, name, 0)
	n, err := interop.NewNetIO(federateConfig(name), proto, world, interop.WithClock(clock.Now))
	require.NoError(t, err)
	require.True(t, n.NetworkInitialization())
	return n, world, proto
}

func TestRoundTrip_PublishedPlayerAppearsOnPeer(t *testing.T) {
	// GIVEN two federates on one bus, alpha owning a moving F-16
	bus := NewBus()
	clock := testutil.NewClock(time.Unix(1_700_000_000, 0))
	alpha, alphaWorld, _ := newFederate(t, bus, "alpha", clock)
	bravo, bravoWorld, _ := newFederate(t, bus, "bravo", clock)
	state := interop.EntityState{Position: r3.Vec{X: 100, Z: 3000}, Velocity: r3.Vec{X: 50}}
	jet := alphaWorld.AddPlayer(f16, "blue", state)

	// WHEN alpha publishes and bravo reads
	alpha.OutputFrame(0.05)
	bravo.InputFrame(0.05)

	// THEN bravo has a surrogate of the same type and state
	var surrogates []*localsim.Player
	for _, p := range bravoWorld.Players() {
		if p.IsSurrogate() {
			surrogates = append(surrogates, p)
		}
	}
	require.Len(t, surrogates, 1)
	s := surrogates[0]
	assert.Equal(t, jet.ID(), s.ID())
	assert.Equal(t, "alpha", s.FederateName())
	assert.Equal(t, f16, s.Descriptor())
	assert.Equal(t, interop.EntityType{Kind: 1, Domain: 2, Country: 225, Category: 1, Subcategory: 1, Specific: 3}, s.EntityType())
	testutil.AssertVecNear(t, "position", state.Position, s.State().Position, 1e-6)

	// and alpha does not hear its own traffic
	alpha.InputFrame(0.05)
	assert.Zero(t, alpha.NumInputNibs())
}

func TestRoundTrip_SurrogateDeadReckonsBetweenUpdates(t *testing.T) {
	bus := NewBus()
	clock := testutil.NewClock(time.Unix(1_700_000_000, 0))
	alpha, alphaWorld, _ := newFederate(t, bus, "alpha", clock)
	bravo, bravoWorld, _ := newFederate(t, bus, "bravo", clock)
	alphaWorld.AddPlayer(f16, "blue", interop.EntityState{Velocity: r3.Vec{Y: 100}})
	alpha.OutputFrame(0.05)
	bravo.InputFrame(0.05)

	clock.AdvanceSeconds(1)
	bravo.InputFrame(0.05)

	for _, p := range bravoWorld.Players() {
		testutil.AssertVecNear(t, "extrapolated", r3.Vec{Y: 100}, p.State().Position, 1e-3)
	}
}

func TestProtocol_QueueBoundAndClose(t *testing.T) {
	bus := NewBus()
	sender, receiver := New(bus, "a", 0), New(bus, "b", 2)
	assert.ErrorIs(t, sender.EncodeOutbound(interop.OutboundUpdate{}, 0), ErrNotJoined)
	require.NoError(t, sender.InitNetwork())
	require.NoError(t, receiver.InitNetwork())
	assert.Equal(t, 2, bus.Members())

	for i := uint16(0); i < 3; i++ {
		require.NoError(t, sender.EncodeOutbound(interop.OutboundUpdate{PlayerID: i, FederateName: "a"}, 0))
	}

	got := receiver.DecodeInbound()
	assert.Len(t, got, 2)
	assert.Equal(t, uint64(1), receiver.Dropped())
	assert.Empty(t, sender.DecodeInbound(), "no self delivery")

	require.NoError(t, receiver.Close())
	assert.Equal(t, 1, bus.Members())
	require.NoError(t, sender.EncodeOutbound(interop.OutboundUpdate{PlayerID: 9}, 0))
	assert.Empty(t, receiver.DecodeInbound())
}

func TestProtocol_RegisteredByName(t *testing.T) {
	cfg := federateConfig("alpha")
	cfg.Protocol.Bus = "registry-test"
	require.NoError(t, cfg.Validate())

	p, err := interop.NewProtocol(&cfg)
	require.NoError(t, err)
	lp, ok := p.(*Protocol)
	require.True(t, ok)
	assert.Same(t, Named("registry-test"), lp.bus)
	assert.Equal(t, DefaultQueueSize, lp.queueSize)
}
