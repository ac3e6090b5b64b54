package interop

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop/lookup"
)

// PlayerDescriptorLevels is the number of discriminator fields in a PlayerDescriptor.
const PlayerDescriptorLevels = 2

// PlayerDescriptor names a local player type: a class (e.g. "Aircraft") and a
// type within that class (e.g. "F-16C").
type PlayerDescriptor struct {
	Class string `yaml:"class"`
	Type  string `yaml:"type"`
}

// Levels returns the descriptor as lookup keys, most significant first.
func (d PlayerDescriptor) Levels() []string {
	return []string{d.Class, d.Type}
}

// Pattern returns the lookup pattern of d; an empty type matches any type of the class.
func (d PlayerDescriptor) Pattern() []lookup.Level[string] {
	out := []lookup.Level[string]{lookup.Exact(d.Class), lookup.Exact(d.Type)}
	if d.Type == "" {
		out[1] = lookup.Wildcard[string]()
	}
	return out
}

func (d PlayerDescriptor) String() string {
	if d.Type == "" {
		return d.Class
	}
	return d.Class + "/" + d.Type
}

// PlayerTemplate describes the surrogate to create for an incoming entity.
type PlayerTemplate struct {
	PlayerDescriptor
	Side string
}

// EntityState is the kinematic state exchanged over the network. Orientation
// holds Euler angles in radians: X = roll (phi), Y = pitch (theta), Z = yaw (psi).
type EntityState struct {
	Position        r3.Vec
	Velocity        r3.Vec
	Acceleration    r3.Vec
	Orientation     r3.Vec
	AngularVelocity r3.Vec
}

// Player is a simulation entity as seen by the network layer. NIB tables index
// players by identity, so implementations must be comparable (pointers are).
type Player interface {
	// ID is the player id, unique per federate.
	ID() uint16
	// FederateName is the source federate for networked players, empty for local ones.
	FederateName() string
	// NetworkID is the id of the NetIO that created this player, 0 for local players.
	NetworkID() uint16
	Descriptor() PlayerDescriptor
	State() EntityState
}

// SurrogateSpec is what the player model needs to instantiate a surrogate.
type SurrogateSpec struct {
	Template     PlayerTemplate
	PlayerID     uint16
	FederateName string
	NetworkID    uint16
	EntityType   EntityType
	State        EntityState
}

// PlayerModel is the simulation's player list as consumed by NetIO.
type PlayerModel interface {
	// LocalPlayers enumerates every active player, including surrogates
	// owned by any network.
	LocalPlayers() []Player
	// Ownship returns the reference player for range filtering, if any.
	Ownship() (Player, bool)
	// ExecTime returns simulation executive time in seconds.
	ExecTime() float64
	InstantiateSurrogate(spec SurrogateSpec) (Player, error)
	UpdateSurrogate(p Player, state EntityState)
	DestroyPlayer(p Player) error
}
