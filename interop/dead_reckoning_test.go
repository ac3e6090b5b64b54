package interop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop/internal/testutil"
)

func TestDeadReckoning_Extrapolate(t *testing.T) {
	state := EntityState{
		Position:        r3.Vec{X: 10, Y: 20, Z: 30},
		Velocity:        r3.Vec{X: 1, Y: -2},
		Acceleration:    r3.Vec{Z: 2},
		Orientation:     r3.Vec{Z: 0.5},
		AngularVelocity: r3.Vec{Z: 0.25},
	}
	tests := []struct {
		model       DeadReckoning
		position    r3.Vec
		orientation r3.Vec
	}{
		{DRStatic, r3.Vec{X: 10, Y: 20, Z: 30}, r3.Vec{Z: 0.5}},
		{DRFPW, r3.Vec{X: 12, Y: 16, Z: 30}, r3.Vec{Z: 0.5}},
		{DRRPW, r3.Vec{X: 12, Y: 16, Z: 30}, r3.Vec{Z: 1.0}},
		{DRFVW, r3.Vec{X: 12, Y: 16, Z: 34}, r3.Vec{Z: 0.5}},
		{DRRVW, r3.Vec{X: 12, Y: 16, Z: 34}, r3.Vec{Z: 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.model.String(), func(t *testing.T) {
			got := tt.model.Extrapolate(state, 2)
			testutil.AssertVecNear(t, "position", tt.position, got.Position, 1e-9)
			testutil.AssertVecNear(t, "orientation", tt.orientation, got.Orientation, 1e-9)
		})
	}
}

func TestDeadReckoning_NonPositiveDtIsIdentity(t *testing.T) {
	state := EntityState{Position: r3.Vec{X: 1}, Velocity: r3.Vec{X: 5}}
	assert.Equal(t, state, DRFPW.Extrapolate(state, 0))
	assert.Equal(t, state, DRFPW.Extrapolate(state, -1))
}

func TestDeadReckoning_OrientationWraps(t *testing.T) {
	state := EntityState{Orientation: r3.Vec{Z: 3.0}, AngularVelocity: r3.Vec{Z: 0.5}}
	got := DRRPW.Extrapolate(state, 1)
	testutil.AssertFloat64Equal(t, "yaw", 3.5-2*math.Pi, got.Orientation.Z, 1e-9)
}

func TestDeadReckoning_ModelNames(t *testing.T) {
	for name, m := range ValidDeadReckoningModels {
		if name == "" {
			assert.Equal(t, DRFPW, m)
			continue
		}
		assert.Equal(t, name, m.String())
	}
}

func TestOrientationError_UsesShortestAngle(t *testing.T) {
	a := EntityState{Orientation: r3.Vec{Z: math.Pi - 0.01}}
	b := EntityState{Orientation: r3.Vec{Z: -math.Pi + 0.01}}
	testutil.AssertFloat64Equal(t, "error", 0.02, OrientationError(a, b), 1e-9)
}

func TestPositionError_IsEuclidean(t *testing.T) {
	a := EntityState{Position: r3.Vec{X: 3}}
	b := EntityState{Position: r3.Vec{Y: 4}}
	assert.InDelta(t, 5.0, PositionError(a, b), 1e-12)
}
