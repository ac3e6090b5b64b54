package interop

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop/trace"
)

// State is the initialization state of a NetIO.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	InitFailed
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case InitFailed:
		return "init-failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// NetIO coordinates one interoperability network: it discovers local players
// to publish, tracks remote entities as surrogate players, and applies the
// dead-reckoning and filtering policy. Wire encoding is delegated to a Protocol.
//
// InputFrame and OutputFrame may be called from different goroutines. Each
// NIB table is locked only for the duration of a single operation, and never
// across a call into the Protocol. ShutdownNotification may race either frame;
// it returns only after running frames have finished.
type NetIO struct {
	netID          uint16
	federationName string
	federateName   string

	inputFlg  bool
	outputFlg bool
	relayFlg  bool
	timeline  string

	maxTimeDR         float64
	maxPositionErr    float64
	maxOrientationErr float64
	maxAge            float64
	maxEntityRange    float64
	drModel           DeadReckoning
	maxNewOutgoing    int
	filters           []FilterConfig

	proto   Protocol
	players PlayerModel
	clock   func() time.Time
	log     *logrus.Entry
	trace   *trace.NetworkTrace

	state      atomic.Int32
	iffEventID atomic.Uint32
	emEventID  atomic.Uint32

	// frameMu is held shared by running frames and exclusively by anything
	// that changes state or mappers under them.
	frameMu sync.RWMutex

	// Read-mostly: mutated only while the NetIO is not Ready.
	ntms *ntmTables

	inputs  *nibRegistry
	outputs *nibRegistry

	inputAdmission  AdmissionPolicy
	outputAdmission AdmissionPolicy
}

// Option customises a NetIO.
type Option func(*NetIO)

// WithClock sets the wall clock used for the UTC timeline.
func WithClock(clock func() time.Time) Option {
	return func(n *NetIO) { n.clock = clock }
}

// WithTrace attaches a lifecycle trace.
func WithTrace(t *trace.NetworkTrace) Option {
	return func(n *NetIO) { n.trace = t }
}

// WithAdmission replaces the discovery admission policy for one direction.
func WithAdmission(dir IoType, policy AdmissionPolicy) Option {
	return func(n *NetIO) {
		if dir == InputNib {
			n.inputAdmission = policy
		} else {
			n.outputAdmission = policy
		}
	}
}

// NewNetIO creates a NetIO from cfg. Mapper entries that fail to load are
// logged and skipped; the rest still load. Returns an error for invalid scalar
// settings. Panics if proto or players is nil.
func NewNetIO(cfg Config, proto Protocol, players PlayerModel, opts ...Option) (*NetIO, error) {
	if proto == nil || players == nil {
		panic("NewNetIO: protocol and player model are required")
	}
	if cfg.NetworkID == 0 {
		return nil, fmt.Errorf("network_id must be >= 1")
	}
	if !ValidTimelines[cfg.Timeline] {
		return nil, fmt.Errorf("unknown timeline %q", cfg.Timeline)
	}
	drModel, ok := ValidDeadReckoningModels[cfg.DRModel]
	if !ok {
		return nil, fmt.Errorf("unknown dr_model %q", cfg.DRModel)
	}
	timeline := cfg.Timeline
	if timeline == "" {
		timeline = TimelineUTC
	}

	capacity := intOr(cfg.MaxEntities, DefaultMaxEntities)
	n := &NetIO{
		netID:             cfg.NetworkID,
		federationName:    cfg.FederationName,
		federateName:      cfg.FederateName,
		inputFlg:          boolOr(cfg.EnableInput, true),
		outputFlg:         boolOr(cfg.EnableOutput, true),
		relayFlg:          boolOr(cfg.EnableRelay, true),
		timeline:          timeline,
		maxTimeDR:         floatOr(cfg.MaxTimeDR, DefaultMaxTimeDR),
		maxPositionErr:    floatOr(cfg.MaxPositionError, DefaultMaxPositionError),
		maxOrientationErr: floatOr(cfg.MaxOrientationError, DefaultMaxOrientationError),
		maxAge:            floatOr(cfg.MaxAge, DefaultMaxAge),
		maxEntityRange:    floatOr(cfg.MaxEntityRange, DefaultMaxEntityRange),
		drModel:           drModel,
		maxNewOutgoing:    intOr(cfg.MaxNewOutgoing, DefaultMaxNewOutgoing),
		filters:           append([]FilterConfig(nil), cfg.Filters...),
		proto:             proto,
		players:           players,
		clock:             time.Now,
		ntms:              newNtmTables(intOr(cfg.MaxEntityTypes, DefaultMaxEntityTypes)),
		inputs:            newNibRegistry(InputNib, capacity),
		outputs:           newNibRegistry(OutputNib, capacity),
	}
	n.log = logrus.WithFields(logrus.Fields{"network": n.netID, "federate": n.federateName})
	n.inputAdmission = newAdmissionPolicy(&cfg, InputNib, n.ownshipPosition)
	n.outputAdmission = newAdmissionPolicy(&cfg, OutputNib, n.ownshipPosition)
	if cfg.Trace != "" {
		n.trace = trace.NewNetworkTrace(trace.TraceLevel(cfg.Trace))
	}
	for _, opt := range opts {
		opt(n)
	}

	n.loadEntityTypes(cfg.InputEntityTypes, n.AddInputEntityType, "input")
	n.loadEntityTypes(cfg.OutputEntityTypes, n.AddOutputEntityType, "output")
	return n, nil
}

func (n *NetIO) loadEntityTypes(entries []NtmConfig, add func(*Ntm) error, dir string) {
	for i, e := range entries {
		ntm, err := e.Build()
		if err == nil {
			err = add(ntm)
		}
		if err != nil {
			n.log.Warnf("%s_entity_types[%d] (%s -> %s/%s) rejected: %v", dir, i, e.EntityType, e.Class, e.Type, err)
		}
	}
}

// NetworkInitialization initializes the protocol once. It returns true if the
// NetIO is Ready. A failed initialization is terminal for this NetIO.
func (n *NetIO) NetworkInitialization() bool {
	switch n.State() {
	case Ready:
		return true
	case InitFailed, Closed:
		return false
	}
	if !n.state.CompareAndSwap(int32(Uninitialized), int32(Initializing)) {
		return n.State() == Ready
	}
	err := n.proto.InitNetwork()

	n.frameMu.Lock()
	defer n.frameMu.Unlock()
	if err != nil {
		n.log.WithError(err).Error("network initialization failed")
		n.state.CompareAndSwap(int32(Initializing), int32(InitFailed))
		return false
	}
	if !n.state.CompareAndSwap(int32(Initializing), int32(Ready)) {
		// shut down while the protocol was starting; it is ours to close
		n.log.Info("network shut down during initialization")
		n.closeProtocol()
		return false
	}
	n.log.Infof("network initialized (federation=%q, timeline=%s)", n.federationName, n.timeline)
	return true
}

// ShutdownNotification waits for running frames, destroys every NIB, and with
// it every surrogate, then closes the protocol if it is an io.Closer. It
// returns false if any surrogate or the protocol could not be released. A
// protocol still inside InitNetwork is closed by NetworkInitialization once
// that call returns.
func (n *NetIO) ShutdownNotification() bool {
	prev := State(n.state.Swap(int32(Closed)))
	if prev == Closed {
		return true
	}
	n.frameMu.Lock()
	defer n.frameMu.Unlock()
	ok := true
	for _, h := range n.inputs.handles() {
		if err := n.destroyInputNib(h, "shutdown"); err != nil {
			n.log.WithError(err).Errorf("shutdown: failed to release surrogate of %s", h)
			ok = false
		}
	}
	for _, h := range n.outputs.handles() {
		n.destroyOutputNib(h, "shutdown")
	}
	if prev != Initializing && !n.closeProtocol() {
		ok = false
	}
	n.log.Infof("network shut down (was %s)", prev)
	return ok
}

func (n *NetIO) closeProtocol() bool {
	c, isCloser := n.proto.(io.Closer)
	if !isCloser {
		return true
	}
	if err := c.Close(); err != nil {
		n.log.WithError(err).Error("closing protocol")
		return false
	}
	return true
}

// State returns the initialization state.
func (n *NetIO) State() State { return State(n.state.Load()) }

// IsNetworkInitialized reports whether initialization succeeded.
func (n *NetIO) IsNetworkInitialized() bool { return n.State() == Ready }

// DidInitializationFail reports whether initialization was attempted and failed.
func (n *NetIO) DidInitializationFail() bool { return n.State() == InitFailed }

func (n *NetIO) NetworkID() uint16      { return n.netID }
func (n *NetIO) FederationName() string { return n.federationName }
func (n *NetIO) FederateName() string   { return n.federateName }
func (n *NetIO) Timeline() string       { return n.timeline }
func (n *NetIO) IsInputEnabled() bool   { return n.inputFlg }
func (n *NetIO) IsOutputEnabled() bool  { return n.outputFlg }

// IsRelayEnabled is true only if relay, input and output are all enabled.
func (n *NetIO) IsRelayEnabled() bool {
	return n.relayFlg && n.inputFlg && n.outputFlg
}

// Trace returns the attached lifecycle trace, or nil.
func (n *NetIO) Trace() *trace.NetworkTrace { return n.trace }

// CurrentTime returns seconds on the configured timeline: Unix time for UTC,
// simulation executive time for EXEC.
func (n *NetIO) CurrentTime() float64 {
	if n.timeline == TimelineEXEC {
		return n.players.ExecTime()
	}
	return float64(n.clock().UnixNano()) / 1e9
}

// GetNewIffEventID returns the next IFF event id. Ids wrap from 65535 to 1;
// they only need to be unique within an event's validity window.
func (n *NetIO) GetNewIffEventID() uint16 {
	return nextEventID(&n.iffEventID)
}

// GetNewEmissionEventID returns the next emission event id, with the same
// wraparound as GetNewIffEventID.
func (n *NetIO) GetNewEmissionEventID() uint16 {
	return nextEventID(&n.emEventID)
}

func nextEventID(c *atomic.Uint32) uint16 {
	for {
		old := c.Load()
		next := old + 1
		if next > 0xFFFF {
			next = 1
		}
		if c.CompareAndSwap(old, next) {
			return uint16(next)
		}
	}
}

func (n *NetIO) ownshipPosition() (r3.Vec, bool) {
	p, ok := n.players.Ownship()
	if !ok || p == nil {
		return r3.Vec{}, false
	}
	return p.State().Position, true
}
