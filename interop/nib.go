package interop

import "fmt"

// IoType is the direction of a NIB.
type IoType int

const (
	// InputNib maps an incoming entity to a surrogate player.
	InputNib IoType = iota
	// OutputNib maps a local player to an outgoing entity.
	OutputNib
)

func (t IoType) String() string {
	switch t {
	case InputNib:
		return "input"
	case OutputNib:
		return "output"
	default:
		return fmt.Sprintf("IoType(%d)", int(t))
	}
}

// NibHandle refers to a NIB in its registry. Handles are never reused, so a
// handle to a destroyed NIB stays invalid forever.
type NibHandle struct {
	dir IoType
	id  uint64
}

// Valid reports whether h was ever issued.
func (h NibHandle) Valid() bool { return h.id != 0 }

// Direction returns the registry the handle belongs to.
func (h NibHandle) Direction() IoType { return h.dir }

func (h NibHandle) String() string { return fmt.Sprintf("%s#%d", h.dir, h.id) }

// Thresholds are per-NIB overrides of the NetIO filtering defaults. Nil
// fields fall back to the NetIO value.
type Thresholds struct {
	MaxEntityRange      *float64
	MaxTimeDR           *float64
	MaxPositionError    *float64
	MaxOrientationError *float64
	MaxAge              *float64
}

// merge returns t with every nil field taken from o.
func (t Thresholds) merge(o Thresholds) Thresholds {
	if t.MaxEntityRange == nil {
		t.MaxEntityRange = o.MaxEntityRange
	}
	if t.MaxTimeDR == nil {
		t.MaxTimeDR = o.MaxTimeDR
	}
	if t.MaxPositionError == nil {
		t.MaxPositionError = o.MaxPositionError
	}
	if t.MaxOrientationError == nil {
		t.MaxOrientationError = o.MaxOrientationError
	}
	if t.MaxAge == nil {
		t.MaxAge = o.MaxAge
	}
	return t
}

// Nib (network interface block) bridges one player and one networked entity
// in one direction.
//
// Once a NIB is in a table, all of its fields are guarded by that table's
// lock; NetIO only touches them through the registry.
type Nib struct {
	handle NibHandle
	ioType IoType
	netio  *NetIO
	key    NibKey

	player     Player
	ntm        *Ntm
	entityType EntityType
	thresholds Thresholds

	drModel DeadReckoning
	drState EntityState // last state sent or received
	drTime  float64     // NetIO time of drState
	// lastTime is the liveness timestamp for input NIBs and the time of the
	// last transmission for output NIBs.
	lastTime float64
	sent     bool

	updates     uint64
	corrections uint64
}

func (n *Nib) Handle() NibHandle          { return n.handle }
func (n *Nib) IoType() IoType             { return n.ioType }
func (n *Nib) NetIO() *NetIO              { return n.netio }
func (n *Nib) Key() NibKey                { return n.key }
func (n *Nib) Player() Player             { return n.player }
func (n *Nib) Ntm() *Ntm                  { return n.ntm }
func (n *Nib) EntityType() EntityType     { return n.entityType }
func (n *Nib) Thresholds() Thresholds     { return n.thresholds }
func (n *Nib) DRModel() DeadReckoning     { return n.drModel }
func (n *Nib) DRState() EntityState       { return n.drState }
func (n *Nib) DRTime() float64            { return n.drTime }
func (n *Nib) LastUpdateTime() float64    { return n.lastTime }
func (n *Nib) UpdateCount() uint64        { return n.updates }
func (n *Nib) CorrectionCount() uint64    { return n.corrections }
func (n *Nib) SetThresholds(t Thresholds) { n.thresholds = t }

// SetPlayerID sets the entity id of a NIB that is not yet in a table.
func (n *Nib) SetPlayerID(id uint16) { n.key.PlayerID = id }

// SetFederateName sets the source federate of a NIB that is not yet in a table.
func (n *Nib) SetFederateName(name string) { n.key.FederateName = name }

// SetPlayer binds the surrogate of a NIB that is not yet in a table.
func (n *Nib) SetPlayer(p Player) { n.player = p }

// SetEntityType sets the network entity type.
func (n *Nib) SetEntityType(et EntityType) { n.entityType = et }

// SetDeadReckoning stamps the dead-reckoning state at time now.
func (n *Nib) SetDeadReckoning(model DeadReckoning, state EntityState, now float64) {
	n.drModel = model
	n.drState = state
	n.drTime = now
}

// Extrapolate returns the dead-reckoned state at time now.
func (n *Nib) Extrapolate(now float64) EntityState {
	return n.drModel.Extrapolate(n.drState, now-n.drTime)
}

// NibStatus is a point-in-time copy of a NIB for inspection outside the registry.
type NibStatus struct {
	Handle      NibHandle
	IoType      IoType
	Key         NibKey
	Player      Player
	EntityType  EntityType
	Mapper      *Ntm
	DRModel     DeadReckoning
	DRState     EntityState
	LastUpdate  float64
	Updates     uint64
	Corrections uint64
}

func (n *Nib) status() NibStatus {
	return NibStatus{
		Handle:      n.handle,
		IoType:      n.ioType,
		Key:         n.key,
		Player:      n.player,
		EntityType:  n.entityType,
		Mapper:      n.ntm,
		DRModel:     n.drModel,
		DRState:     n.drState,
		LastUpdate:  n.lastTime,
		Updates:     n.updates,
		Corrections: n.corrections,
	}
}
