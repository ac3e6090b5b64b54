package interop

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Candidate is an entity being considered for a new NIB.
type Candidate struct {
	Direction  IoType
	Key        NibKey
	EntityType EntityType
	Position   r3.Vec
	// RangeSquared is the max entity range squared for this candidate
	// (meters^2); 0 means unlimited.
	RangeSquared float64
	// Now is the NetIO time in seconds.
	Now float64
}

// AdmissionPolicy decides whether a newly seen entity gets a NIB. Used by
// NetIO at discovery time only; already tracked entities are never re-checked.
type AdmissionPolicy interface {
	Admit(c Candidate) (admitted bool, reason string)
}

// AlwaysAdmit admits all entities unconditionally.
type AlwaysAdmit struct{}

func (a *AlwaysAdmit) Admit(_ Candidate) (bool, string) {
	return true, ""
}

// RangeGate rejects candidates farther than their max entity range from the
// reference position. With no reference (no ownship) every candidate passes.
type RangeGate struct {
	Reference func() (r3.Vec, bool)
}

// Admit checks the candidate's squared distance against its range limit.
func (g *RangeGate) Admit(c Candidate) (bool, string) {
	if c.RangeSquared <= 0 || g.Reference == nil {
		return true, ""
	}
	ref, ok := g.Reference()
	if !ok {
		return true, ""
	}
	d2 := r3.Norm2(r3.Sub(c.Position, ref))
	if d2 > c.RangeSquared {
		return false, "out of range"
	}
	return true, ""
}

// TokenBucket limits the rate of new entity discoveries.
type TokenBucket struct {
	capacity      float64
	refillRate    float64 // tokens per second
	currentTokens float64
	lastRefill    float64 // NetIO time in seconds
	primed        bool
}

// NewTokenBucket creates a TokenBucket with the given capacity and refill rate.
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:      capacity,
		refillRate:    refillRate,
		currentTokens: capacity,
	}
}

// Admit spends one token per discovery.
func (tb *TokenBucket) Admit(c Candidate) (bool, string) {
	if !tb.primed {
		tb.lastRefill = c.Now
		tb.primed = true
	}
	elapsed := c.Now - tb.lastRefill
	if elapsed > 0 {
		tb.currentTokens = min(tb.capacity, tb.currentTokens+elapsed*tb.refillRate)
		tb.lastRefill = c.Now
	}
	if tb.currentTokens >= 1 {
		tb.currentTokens--
		return true, ""
	}
	return false, "discovery rate exceeded"
}

// AdmissionChain admits a candidate only if every policy does. The first
// rejection's reason is reported.
type AdmissionChain []AdmissionPolicy

func (ch AdmissionChain) Admit(c Candidate) (bool, string) {
	for _, p := range ch {
		if ok, reason := p.Admit(c); !ok {
			return false, reason
		}
	}
	return true, ""
}

// newAdmissionPolicy builds the discovery policy for one direction.
// Inbound discoveries may additionally be rate limited.
func newAdmissionPolicy(cfg *Config, dir IoType, reference func() (r3.Vec, bool)) AdmissionPolicy {
	chain := AdmissionChain{&RangeGate{Reference: reference}}
	if dir == InputNib && cfg.DiscoveryRate != nil && *cfg.DiscoveryRate > 0 {
		burst := floatOr(cfg.DiscoveryBurst, 1)
		chain = append(chain, NewTokenBucket(burst, *cfg.DiscoveryRate))
	}
	return chain
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s %s (%s)", c.Direction, c.Key, c.EntityType)
}
