package localsim

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem names for spawn randomness. Each draws from its own stream, so
// changing how headings are drawn does not move anyone's starting position.
const (
	SubsystemPositions = "positions"
	SubsystemHeadings  = "headings"
	SubsystemTypes     = "types"
)

// PartitionedRNG hands out one deterministic *rand.Rand per named subsystem,
// seeded with seed XOR fnv1a64(name).
//
// Not safe for concurrent use.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, subsystems: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the cached RNG for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

func (p *PartitionedRNG) Seed() int64 { return p.seed }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
