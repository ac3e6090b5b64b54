package interop

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop/internal/testutil"
)

type fakePlayer struct {
	mu    sync.Mutex
	id    uint16
	fed   string
	netID uint16
	desc  PlayerDescriptor
	state EntityState
}

func (p *fakePlayer) ID() uint16                   { return p.id }
func (p *fakePlayer) FederateName() string         { return p.fed }
func (p *fakePlayer) NetworkID() uint16            { return p.netID }
func (p *fakePlayer) Descriptor() PlayerDescriptor { return p.desc }

func (p *fakePlayer) State() EntityState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePlayer) setState(s EntityState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

func (p *fakePlayer) setPosition(pos r3.Vec) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Position = pos
}

func localF16(id uint16, pos r3.Vec) *fakePlayer {
	return &fakePlayer{
		id:    id,
		desc:  PlayerDescriptor{Class: "Aircraft", Type: "F-16C"},
		state: EntityState{Position: pos},
	}
}

// fakeWorld is a PlayerModel over an in-memory player list.
type fakeWorld struct {
	mu        sync.Mutex
	players   []Player
	ownship   *fakePlayer
	exec      float64
	destroyed []Player

	instantiateErr error
	destroyErr     error
}

func (w *fakeWorld) add(ps ...*fakePlayer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range ps {
		w.players = append(w.players, p)
	}
}

func (w *fakeWorld) remove(p Player) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := slices.Index(w.players, p); i >= 0 {
		w.players = slices.Delete(w.players, i, i+1)
	}
}

func (w *fakeWorld) LocalPlayers() []Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Player(nil), w.players...)
}

func (w *fakeWorld) Ownship() (Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ownship == nil {
		return nil, false
	}
	return w.ownship, true
}

func (w *fakeWorld) ExecTime() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exec
}

func (w *fakeWorld) InstantiateSurrogate(spec SurrogateSpec) (Player, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.instantiateErr != nil {
		return nil, w.instantiateErr
	}
	p := &fakePlayer{
		id:    spec.PlayerID,
		fed:   spec.FederateName,
		netID: spec.NetworkID,
		desc:  spec.Template.PlayerDescriptor,
		state: spec.State,
	}
	w.players = append(w.players, p)
	return p, nil
}

func (w *fakeWorld) UpdateSurrogate(p Player, state EntityState) {
	p.(*fakePlayer).setState(state)
}

func (w *fakeWorld) DestroyPlayer(p Player) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyErr != nil {
		return w.destroyErr
	}
	if i := slices.Index(w.players, p); i >= 0 {
		w.players = slices.Delete(w.players, i, i+1)
	}
	w.destroyed = append(w.destroyed, p)
	return nil
}

// surrogates returns the players created by network netID.
func (w *fakeWorld) surrogates(netID uint16) []*fakePlayer {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*fakePlayer
	for _, p := range w.players {
		if fp := p.(*fakePlayer); fp.netID == netID {
			out = append(out, fp)
		}
	}
	return out
}

func (w *fakeWorld) destroyedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.destroyed)
}

// fakeProtocol queues inbound updates pushed by the test and records sends.
type fakeProtocol struct {
	mu        sync.Mutex
	inits     int
	decodes   int
	inbound   []EntityUpdate
	sent      []OutboundUpdate
	closed    bool
	initErr   error
	encodeErr error
}

func (p *fakeProtocol) InitNetwork() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	return p.initErr
}

func (p *fakeProtocol) DecodeInbound() []EntityUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decodes++
	out := p.inbound
	p.inbound = nil
	return out
}

func (p *fakeProtocol) EncodeOutbound(u OutboundUpdate, _ float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.encodeErr != nil {
		return p.encodeErr
	}
	p.sent = append(p.sent, u)
	return nil
}

func (p *fakeProtocol) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("already closed")
	}
	p.closed = true
	return nil
}

func (p *fakeProtocol) push(us ...EntityUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbound = append(p.inbound, us...)
}

func (p *fakeProtocol) takeSent() []OutboundUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.sent
	p.sent = nil
	return out
}

// gatedProtocol parks InitNetwork or DecodeInbound until release is closed,
// signalling entered once the call is parked.
type gatedProtocol struct {
	*fakeProtocol
	gateInit   bool
	gateDecode bool
	entered    chan struct{}
	release    chan struct{}
}

func newGatedProtocol(gateInit, gateDecode bool) *gatedProtocol {
	return &gatedProtocol{
		fakeProtocol: &fakeProtocol{},
		gateInit:     gateInit,
		gateDecode:   gateDecode,
		entered:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (p *gatedProtocol) InitNetwork() error {
	if p.gateInit {
		p.entered <- struct{}{}
		<-p.release
	}
	return p.fakeProtocol.InitNetwork()
}

func (p *gatedProtocol) DecodeInbound() []EntityUpdate {
	if p.gateDecode {
		p.entered <- struct{}{}
		<-p.release
	}
	return p.fakeProtocol.DecodeInbound()
}

var (
	typeF16     = EntityType{Kind: 1, Domain: 2, Country: 225, Category: 1, Subcategory: 1, Specific: 3}
	typeF15     = EntityType{Kind: 1, Domain: 2, Country: 225, Category: 1, Subcategory: 1, Specific: 4}
	typeUnknown = EntityType{Kind: 3, Domain: 1}
)

func testConfig() Config {
	return Config{
		NetworkID:      1,
		FederationName: "exercise",
		FederateName:   "alpha",
		InputEntityTypes: []NtmConfig{
			{EntityType: "1.2.225", Class: "Aircraft", Type: "Generic"},
			{EntityType: "1.2.225.1.1.3", Class: "Aircraft", Type: "F-16C"},
		},
		OutputEntityTypes: []NtmConfig{
			{EntityType: "1.2.225.1.1.3", Class: "Aircraft", Type: "F-16C"},
			{EntityType: "1.2.225", Class: "Aircraft"},
		},
		Protocol: ProtocolConfig{Name: "fake"},
	}
}

type testRig struct {
	net   *NetIO
	proto *fakeProtocol
	world *fakeWorld
	clock *testutil.Clock
}

// newRig builds an initialized NetIO on fakes. mutate may adjust the config.
func newRig(t *testing.T, mutate func(*Config), opts ...Option) *testRig {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	r := &testRig{
		proto: &fakeProtocol{},
		world: &fakeWorld{},
		clock: testutil.NewClock(time.Unix(1_700_000_000, 0)),
	}
	opts = append([]Option{WithClock(r.clock.Now)}, opts...)
	n, err := NewNetIO(cfg, r.proto, r.world, opts...)
	require.NoError(t, err)
	require.True(t, n.NetworkInitialization())
	r.net = n
	return r
}

func remote(id uint16, fed string, et EntityType, pos r3.Vec) EntityUpdate {
	return EntityUpdate{
		PlayerID:     id,
		FederateName: fed,
		EntityType:   et,
		State:        EntityState{Position: pos},
	}
}

func ptr[T any](v T) *T { return &v }
