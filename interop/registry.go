package interop

import (
	"errors"
	"slices"
	"sync"
)

// Registry errors.
var (
	ErrTableFull    = errors.New("nib table is full")
	ErrDuplicateNib = errors.New("nib with this key already exists")
	ErrNilPlayer    = errors.New("player is nil")
	ErrNoMapper     = errors.New("no entity type mapper for player")
	ErrWrongTable   = errors.New("nib belongs to the other direction")
)

// nibRegistry is the table of NIBs of one direction: a dense slice in
// insertion order plus indexes by handle, key and player. Removal compacts the
// slice. Every method holds the lock for its own duration only.
type nibRegistry struct {
	mu       sync.Mutex
	dir      IoType
	capacity int
	nextID   uint64

	list     []*Nib
	byHandle map[uint64]*Nib
	byKey    map[NibKey]*Nib
	byPlayer map[Player]*Nib
}

func newNibRegistry(dir IoType, capacity int) *nibRegistry {
	return &nibRegistry{
		dir:      dir,
		capacity: capacity,
		list:     make([]*Nib, 0, min(capacity, 256)),
		byHandle: make(map[uint64]*Nib),
		byKey:    make(map[NibKey]*Nib),
		byPlayer: make(map[Player]*Nib),
	}
}

// Len returns the number of NIBs in the table.
func (r *nibRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

// Capacity returns the maximum number of NIBs.
func (r *nibRegistry) Capacity() int {
	return r.capacity
}

// full reports whether the table is at capacity.
func (r *nibRegistry) full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list) >= r.capacity
}

// issue assigns a fresh handle to a NIB that is not yet in the table.
func (r *nibRegistry) issue(n *Nib) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.handle = NibHandle{dir: r.dir, id: r.nextID}
	n.ioType = r.dir
}

// insert appends n, which must carry a handle from issue.
func (r *nibRegistry) insert(n *Nib) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.handle.dir != r.dir || n.ioType != r.dir {
		return ErrWrongTable
	}
	if len(r.list) >= r.capacity {
		return ErrTableFull
	}
	if _, dup := r.byKey[n.key]; dup {
		return ErrDuplicateNib
	}
	if n.player != nil {
		if _, dup := r.byPlayer[n.player]; dup {
			return ErrDuplicateNib
		}
	}
	if _, dup := r.byHandle[n.handle.id]; dup {
		return ErrDuplicateNib
	}
	r.list = append(r.list, n)
	r.byHandle[n.handle.id] = n
	r.byKey[n.key] = n
	if n.player != nil {
		r.byPlayer[n.player] = n
	}
	return nil
}

// remove deletes the NIB for h. It returns the removed NIB, or false if the
// handle is not (or no longer) in the table.
func (r *nibRegistry) remove(h NibHandle) (*Nib, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.dir != r.dir {
		return nil, false
	}
	n, ok := r.byHandle[h.id]
	if !ok {
		return nil, false
	}
	delete(r.byHandle, h.id)
	delete(r.byKey, n.key)
	if n.player != nil && r.byPlayer[n.player] == n {
		delete(r.byPlayer, n.player)
	}
	if i := slices.Index(r.list, n); i >= 0 {
		r.list = slices.Delete(r.list, i, i+1)
	}
	return n, true
}

func (r *nibRegistry) findKey(key NibKey) (NibHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byKey[key]
	if !ok {
		return NibHandle{}, false
	}
	return n.handle, true
}

func (r *nibRegistry) findPlayer(p Player) (NibHandle, bool) {
	if p == nil {
		return NibHandle{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byPlayer[p]
	if !ok {
		return NibHandle{}, false
	}
	return n.handle, true
}

// with runs fn on the NIB for h while holding the table lock. fn must not
// call back into the registry or into a protocol.
func (r *nibRegistry) with(h NibHandle, fn func(n *Nib)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.dir != r.dir {
		return false
	}
	n, ok := r.byHandle[h.id]
	if !ok {
		return false
	}
	fn(n)
	return true
}

// handles returns the handles in table order. Callers iterate the copy, so
// NIBs may be removed during the iteration.
func (r *nibRegistry) handles() []NibHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NibHandle, len(r.list))
	for i, n := range r.list {
		out[i] = n.handle
	}
	return out
}

// statuses returns a copy of every NIB in table order.
func (r *nibRegistry) statuses() []NibStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NibStatus, len(r.list))
	for i, n := range r.list {
		out[i] = n.status()
	}
	return out
}
