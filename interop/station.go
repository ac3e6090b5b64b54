package interop

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Station owns the NetIOs of one simulation, each bridging to a different
// network. Networks are kept in the order they were added.
type Station struct {
	mu       sync.RWMutex
	networks []*NetIO
	byID     map[uint16]*NetIO
}

// NewStation creates an empty station.
func NewStation() *Station {
	return &Station{byID: make(map[uint16]*NetIO)}
}

// AddNetwork attaches n. Network ids must be unique within a station.
func (s *Station) AddNetwork(n *NetIO) error {
	if n == nil {
		return fmt.Errorf("nil network")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.NetworkID() == 0 {
		return fmt.Errorf("network id must be >= 1")
	}
	if _, dup := s.byID[n.NetworkID()]; dup {
		return fmt.Errorf("duplicate network id %d", n.NetworkID())
	}
	s.networks = append(s.networks, n)
	s.byID[n.NetworkID()] = n
	return nil
}

// Network returns the NetIO with the given id.
func (s *Station) Network(id uint16) (*NetIO, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.byID[id]
	return n, ok
}

// Networks returns the attached NetIOs in the order they were added.
func (s *Station) Networks() []*NetIO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*NetIO(nil), s.networks...)
}

// NetworkInitialization initializes every network and returns the number that
// are ready. A failed network is logged and left out of the frames.
func (s *Station) NetworkInitialization() int {
	ready := 0
	for _, n := range s.Networks() {
		if n.NetworkInitialization() {
			ready++
			continue
		}
		logrus.Errorf("network %d (%s) failed to initialize", n.NetworkID(), n.FederateName())
	}
	return ready
}

// InputFrames runs InputFrame on every network.
func (s *Station) InputFrames(dt float64) {
	for _, n := range s.Networks() {
		n.InputFrame(dt)
	}
}

// OutputFrames runs OutputFrame on every network.
func (s *Station) OutputFrames(dt float64) {
	for _, n := range s.Networks() {
		n.OutputFrame(dt)
	}
}

// Shutdown notifies every network. It returns false if any network failed to
// release its resources.
func (s *Station) Shutdown() bool {
	ok := true
	for _, n := range s.Networks() {
		if !n.ShutdownNotification() {
			ok = false
		}
	}
	return ok
}
