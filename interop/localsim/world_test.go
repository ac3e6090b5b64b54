package localsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop"
	"github.com/simnet-io/interop/interop/internal/testutil"
)

var f16 = interop.PlayerDescriptor{Class: "Aircraft", Type: "F-16C"}

func TestWorld_StepMovesLocalPlayersOnly(t *testing.T) {
	// GIVEN a local player and a surrogate, both moving at 10 m/s
	w := NewWorld(interop.DRFPW)
	moving := interop.EntityState{Velocity: r3.Vec{X: 10}}
	local := w.AddPlayer(f16, "blue", moving)
	sur, err := w.InstantiateSurrogate(interop.SurrogateSpec{
		Template:  interop.PlayerTemplate{PlayerDescriptor: f16},
		PlayerID:  9,
		NetworkID: 1,
		State:     moving,
	})
	require.NoError(t, err)

	// WHEN the world steps one second
	w.Step(1)

	// THEN only the local player moved
	testutil.AssertVecNear(t, "local", r3.Vec{X: 10}, local.State().Position, 1e-9)
	testutil.AssertVecNear(t, "surrogate", r3.Vec{}, sur.State().Position, 1e-9)
	assert.Equal(t, 1.0, w.ExecTime())
}

func TestWorld_PlayerModelContract(t *testing.T) {
	w := NewWorld(interop.DRFPW)
	a := w.AddPlayer(f16, "blue", interop.EntityState{})
	b := w.AddPlayer(f16, "red", interop.EntityState{})
	assert.Equal(t, uint16(1), a.ID())
	assert.Equal(t, uint16(2), b.ID())
	assert.Len(t, w.LocalPlayers(), 2)

	_, ok := w.Ownship()
	assert.False(t, ok)
	w.SetOwnship(a)
	own, ok := w.Ownship()
	require.True(t, ok)
	assert.Equal(t, interop.Player(a), own)

	sur, err := w.InstantiateSurrogate(interop.SurrogateSpec{
		Template:     interop.PlayerTemplate{PlayerDescriptor: f16, Side: "red"},
		PlayerID:     4,
		FederateName: "bravo",
		NetworkID:    2,
		EntityType:   interop.EntityType{Kind: 1, Domain: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "bravo", sur.FederateName())
	assert.Equal(t, "red", sur.(*Player).Side())
	assert.True(t, sur.(*Player).IsSurrogate())

	w.UpdateSurrogate(sur, interop.EntityState{Position: r3.Vec{Z: 3}})
	assert.Equal(t, 3.0, sur.State().Position.Z)

	require.NoError(t, w.DestroyPlayer(sur))
	assert.ErrorIs(t, w.DestroyPlayer(sur), ErrUnknownPlayer)
	assert.True(t, w.Remove(a))
	_, ok = w.Ownship()
	assert.False(t, ok, "removing the ownship clears it")
	assert.Len(t, w.Players(), 1)
}

func TestWorld_SurrogateNeedsNetwork(t *testing.T) {
	w := NewWorld(interop.DRFPW)
	_, err := w.InstantiateSurrogate(interop.SurrogateSpec{PlayerID: 1})
	assert.Error(t, err)
}

func TestSpawn_DeterministicPerSeed(t *testing.T) {
	cfg := SpawnConfig{
		Count:    5,
		Seed:     42,
		Radius:   1000,
		Altitude: 3000,
		Speed:    200,
		Side:     "blue",
		Types:    []interop.PlayerDescriptor{f16, {Class: "Aircraft", Type: "F-15C"}},
	}
	a := Spawn(NewWorld(interop.DRFPW), cfg)
	b := Spawn(NewWorld(interop.DRFPW), cfg)

	require.Len(t, a, 5)
	for i := range a {
		assert.Equal(t, a[i].State(), b[i].State())
		assert.Equal(t, a[i].Descriptor(), b[i].Descriptor())
		pos := a[i].State().Position
		assert.LessOrEqual(t, r3.Norm(r3.Vec{X: pos.X, Y: pos.Y}), 1000.0)
		assert.Equal(t, 3000.0, pos.Z)
		testutil.AssertFloat64Equal(t, "speed", 200, r3.Norm(a[i].State().Velocity), 1e-9)
	}
}

func TestSpawnConfig_Validate(t *testing.T) {
	assert.NoError(t, SpawnConfig{}.Validate())
	assert.Error(t, SpawnConfig{Count: 3}.Validate())
	assert.Error(t, SpawnConfig{Count: -1}.Validate())
	assert.Error(t, SpawnConfig{Count: 1, Types: []interop.PlayerDescriptor{{Type: "x"}}}.Validate())
	assert.NoError(t, SpawnConfig{Count: 1, Types: []interop.PlayerDescriptor{f16}}.Validate())
}

func TestPartitionedRNG_SubsystemsAreIsolated(t *testing.T) {
	a := NewPartitionedRNG(7)
	b := NewPartitionedRNG(7)

	// drawing from one subsystem does not shift another
	a.ForSubsystem(SubsystemHeadings).Float64()
	assert.Equal(t, a.ForSubsystem(SubsystemPositions).Int63(), b.ForSubsystem(SubsystemPositions).Int63())
	assert.Same(t, a.ForSubsystem(SubsystemTypes), a.ForSubsystem(SubsystemTypes))
	assert.Equal(t, int64(7), a.Seed())
}
