package interop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DeadReckoning selects the extrapolation model. Values follow the DIS
// dead-reckoning algorithm numbering for the world-coordinate models.
type DeadReckoning uint8

const (
	DRStatic DeadReckoning = 1 // no motion
	DRFPW    DeadReckoning = 2 // fixed orientation, constant velocity
	DRRPW    DeadReckoning = 3 // rotating, constant velocity
	DRRVW    DeadReckoning = 4 // rotating, constant acceleration
	DRFVW    DeadReckoning = 5 // fixed orientation, constant acceleration
)

// ValidDeadReckoningModels is the set of recognized dead-reckoning model names.
var ValidDeadReckoningModels = map[string]DeadReckoning{
	"":       DRFPW,
	"static": DRStatic,
	"fpw":    DRFPW,
	"rpw":    DRRPW,
	"rvw":    DRRVW,
	"fvw":    DRFVW,
}

func (m DeadReckoning) String() string {
	switch m {
	case DRStatic:
		return "static"
	case DRFPW:
		return "fpw"
	case DRRPW:
		return "rpw"
	case DRRVW:
		return "rvw"
	case DRFVW:
		return "fvw"
	default:
		return fmt.Sprintf("dr(%d)", uint8(m))
	}
}

// Extrapolate advances state by dt seconds using model m. Unknown models
// behave like DRFPW.
func (m DeadReckoning) Extrapolate(state EntityState, dt float64) EntityState {
	if dt <= 0 || m == DRStatic {
		return state
	}
	out := state
	switch m {
	case DRRVW, DRFVW:
		out.Position = r3.Add(state.Position,
			r3.Add(r3.Scale(dt, state.Velocity), r3.Scale(0.5*dt*dt, state.Acceleration)))
		out.Velocity = r3.Add(state.Velocity, r3.Scale(dt, state.Acceleration))
	default:
		out.Position = r3.Add(state.Position, r3.Scale(dt, state.Velocity))
	}
	if m == DRRPW || m == DRRVW {
		out.Orientation = normalizeEuler(r3.Add(state.Orientation, r3.Scale(dt, state.AngularVelocity)))
	}
	return out
}

// PositionError is the distance between two states' positions (meters).
func PositionError(a, b EntityState) float64 {
	return r3.Norm(r3.Sub(a.Position, b.Position))
}

// OrientationError is the largest per-axis Euler angle difference (radians).
func OrientationError(a, b EntityState) float64 {
	d := r3.Sub(a.Orientation, b.Orientation)
	return max(math.Abs(wrapAngle(d.X)), math.Abs(wrapAngle(d.Y)), math.Abs(wrapAngle(d.Z)))
}

// wrapAngle maps an angle into [-pi, pi).
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func normalizeEuler(v r3.Vec) r3.Vec {
	return r3.Vec{X: wrapAngle(v.X), Y: wrapAngle(v.Y), Z: wrapAngle(v.Z)}
}
