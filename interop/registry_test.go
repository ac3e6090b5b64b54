package interop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNib(r *nibRegistry, id uint16, fed string, p Player) *Nib {
	n := &Nib{key: NibKey{PlayerID: id, FederateName: fed}, player: p}
	r.issue(n)
	return n
}

func TestNibRegistry_KeysAreDistinct(t *testing.T) {
	r := newNibRegistry(InputNib, 10)
	a := newTestNib(r, 1, "bravo", &fakePlayer{id: 1})
	require.NoError(t, r.insert(a))

	dupKey := newTestNib(r, 1, "bravo", &fakePlayer{id: 1})
	assert.ErrorIs(t, r.insert(dupKey), ErrDuplicateNib)

	dupPlayer := newTestNib(r, 2, "bravo", a.player)
	assert.ErrorIs(t, r.insert(dupPlayer), ErrDuplicateNib)

	sameIDOtherFederate := newTestNib(r, 1, "charlie", &fakePlayer{id: 1})
	assert.NoError(t, r.insert(sameIDOtherFederate))
	assert.Equal(t, 2, r.Len())
}

func TestNibRegistry_RemovePreservesOrder(t *testing.T) {
	r := newNibRegistry(OutputNib, 10)
	var nibs []*Nib
	for i := uint16(1); i <= 4; i++ {
		n := newTestNib(r, i, "alpha", &fakePlayer{id: i})
		require.NoError(t, r.insert(n))
		nibs = append(nibs, n)
	}

	removed, ok := r.remove(nibs[1].handle)
	require.True(t, ok)
	assert.Same(t, nibs[1], removed)
	_, ok = r.remove(nibs[1].handle)
	assert.False(t, ok, "second removal is a no-op")

	var ids []uint16
	for _, st := range r.statuses() {
		ids = append(ids, st.Key.PlayerID)
	}
	assert.Equal(t, []uint16{1, 3, 4}, ids)

	_, ok = r.findKey(nibs[1].key)
	assert.False(t, ok)
	_, ok = r.findPlayer(nibs[1].player)
	assert.False(t, ok)
	assert.False(t, r.with(nibs[1].handle, func(*Nib) { t.Fatal("called for removed nib") }))
}

func TestNibRegistry_Capacity(t *testing.T) {
	r := newNibRegistry(InputNib, 2)
	require.NoError(t, r.insert(newTestNib(r, 1, "b", &fakePlayer{})))
	assert.False(t, r.full())
	require.NoError(t, r.insert(newTestNib(r, 2, "b", &fakePlayer{})))
	assert.True(t, r.full())
	assert.ErrorIs(t, r.insert(newTestNib(r, 3, "b", &fakePlayer{})), ErrTableFull)
	assert.Equal(t, 2, r.Capacity())
}

func TestNibRegistry_RejectsOtherDirection(t *testing.T) {
	in := newNibRegistry(InputNib, 2)
	out := newNibRegistry(OutputNib, 2)
	n := newTestNib(in, 1, "b", &fakePlayer{})

	assert.ErrorIs(t, out.insert(n), ErrWrongTable)
	require.NoError(t, in.insert(n))
	_, ok := out.remove(n.handle)
	assert.False(t, ok)
	assert.False(t, out.with(n.handle, func(*Nib) {}))
}

func TestNibRegistry_HandlesSnapshotAllowsRemoval(t *testing.T) {
	r := newNibRegistry(InputNib, 10)
	for i := uint16(1); i <= 5; i++ {
		require.NoError(t, r.insert(newTestNib(r, i, "b", &fakePlayer{id: i})))
	}

	for _, h := range r.handles() {
		r.remove(h)
	}

	assert.Zero(t, r.Len())
}

func TestNibHandle_Zero(t *testing.T) {
	var h NibHandle
	assert.False(t, h.Valid())
	assert.Equal(t, "input#0", h.String())
}
