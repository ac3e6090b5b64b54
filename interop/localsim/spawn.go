package localsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop"
)

// SpawnConfig scatters local players on a disc around the origin, flying
// level at a fixed speed on random headings.
type SpawnConfig struct {
	Count    int                        `yaml:"count"`
	Seed     int64                      `yaml:"seed"`
	Radius   float64                    `yaml:"radius"`   // meters
	Altitude float64                    `yaml:"altitude"` // meters
	Speed    float64                    `yaml:"speed"`    // m/s
	Side     string                     `yaml:"side"`
	Types    []interop.PlayerDescriptor `yaml:"types"`
}

func (c SpawnConfig) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("spawn.count must be non-negative, got %d", c.Count)
	}
	if c.Count > 0 && len(c.Types) == 0 {
		return fmt.Errorf("spawn.types is required when spawn.count > 0")
	}
	for i, d := range c.Types {
		if d.Class == "" {
			return fmt.Errorf("spawn.types[%d]: class is required", i)
		}
	}
	if c.Radius < 0 || c.Speed < 0 {
		return fmt.Errorf("spawn.radius and spawn.speed must be non-negative")
	}
	return nil
}

// Spawn adds cfg.Count players to w. The same seed always produces the same
// players.
func Spawn(w *World, cfg SpawnConfig) []*Player {
	if cfg.Count <= 0 || len(cfg.Types) == 0 {
		return nil
	}
	rng := NewPartitionedRNG(cfg.Seed)
	positions := rng.ForSubsystem(SubsystemPositions)
	headings := rng.ForSubsystem(SubsystemHeadings)
	types := rng.ForSubsystem(SubsystemTypes)

	out := make([]*Player, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		r := cfg.Radius * math.Sqrt(positions.Float64())
		theta := positions.Float64() * 2 * math.Pi
		psi := headings.Float64()*2*math.Pi - math.Pi
		state := interop.EntityState{
			Position:    r3.Vec{X: r * math.Cos(theta), Y: r * math.Sin(theta), Z: cfg.Altitude},
			Velocity:    r3.Vec{X: cfg.Speed * math.Cos(psi), Y: cfg.Speed * math.Sin(psi)},
			Orientation: r3.Vec{Z: psi},
		}
		desc := cfg.Types[types.Intn(len(cfg.Types))]
		out = append(out, w.AddPlayer(desc, cfg.Side, state))
	}
	return out
}
