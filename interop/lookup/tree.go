// Package lookup provides the quick-lookup discriminator tree used to resolve
// network type mappers. A tree is keyed on a fixed number of levels, most
// significant first; each level of a registered pattern is either an exact
// value or a wildcard.
//
// Resolution descends one level at a time, trying the exact-value child before
// the wildcard child, and returns the first complete match. Because exact
// branches are always tried first, a pattern that specifies a superset of
// another pattern's fields always wins over it. Cost is bounded by the tree
// depth, not by the number of registered patterns.
//
// This package has no dependency on interop/ and stores plain values.
package lookup

import "errors"

var (
	// ErrFull is returned by Insert when the tree is at capacity.
	ErrFull = errors.New("lookup: tree is full")
	// ErrMalformed is returned by Insert when the pattern cannot be extracted
	// or has the wrong number of levels.
	ErrMalformed = errors.New("lookup: malformed pattern")
	// ErrDuplicate is returned by Insert when an identical pattern is already
	// registered. The first registration wins.
	ErrDuplicate = errors.New("lookup: duplicate pattern")
)

// Level is one discriminator of a registered pattern.
type Level[K comparable] struct {
	Value K
	Any   bool
}

// Exact returns a level matching only v.
func Exact[K comparable](v K) Level[K] {
	return Level[K]{Value: v}
}

// Wildcard returns a level matching any value.
func Wildcard[K comparable]() Level[K] {
	return Level[K]{Any: true}
}

type node[K comparable, V any] struct {
	exact map[K]*node[K, V]
	any   *node[K, V]
	leaf  bool
	value V
}

func (n *node[K, V]) child(l Level[K]) *node[K, V] {
	if l.Any {
		if n.any == nil {
			n.any = &node[K, V]{}
		}
		return n.any
	}
	if n.exact == nil {
		n.exact = make(map[K]*node[K, V])
	}
	c, ok := n.exact[l.Value]
	if !ok {
		c = &node[K, V]{}
		n.exact[l.Value] = c
	}
	return c
}

func (n *node[K, V]) find(key []K) (*node[K, V], bool) {
	if len(key) == 0 {
		return n, n.leaf
	}
	if c, ok := n.exact[key[0]]; ok {
		if found, ok := c.find(key[1:]); ok {
			return found, true
		}
	}
	if n.any != nil {
		return n.any.find(key[1:])
	}
	return nil, false
}

// Tree resolves keys of type T to values of type V. The key-extraction
// function turns a lookup subject into its level values; the
// pattern-extraction function turns a registered value into its pattern.
//
// Thread-safety: Resolve may be called concurrently; Insert and Clear must not
// run concurrently with anything else.
type Tree[T any, K comparable, V any] struct {
	depth     int
	capacity  int
	size      int
	root      *node[K, V]
	keyOf     func(T) []K
	patternOf func(V) ([]Level[K], bool)
}

// New creates an empty tree with the given depth and capacity (0 = unbounded).
// Panics if depth < 1 or either extraction function is nil.
func New[T any, K comparable, V any](depth, capacity int, keyOf func(T) []K, patternOf func(V) ([]Level[K], bool)) *Tree[T, K, V] {
	if depth < 1 {
		panic("lookup.New: depth must be >= 1")
	}
	if keyOf == nil || patternOf == nil {
		panic("lookup.New: key and pattern extraction functions are required")
	}
	return &Tree[T, K, V]{
		depth:     depth,
		capacity:  capacity,
		root:      &node[K, V]{},
		keyOf:     keyOf,
		patternOf: patternOf,
	}
}

// Insert registers v under its pattern.
func (t *Tree[T, K, V]) Insert(v V) error {
	if t.capacity > 0 && t.size >= t.capacity {
		return ErrFull
	}
	pattern, ok := t.patternOf(v)
	if !ok || len(pattern) != t.depth {
		return ErrMalformed
	}
	n := t.root
	for _, l := range pattern {
		n = n.child(l)
	}
	if n.leaf {
		return ErrDuplicate
	}
	n.leaf = true
	n.value = v
	t.size++
	return nil
}

// Resolve returns the most specific value whose pattern is consistent with subject.
func (t *Tree[T, K, V]) Resolve(subject T) (V, bool) {
	key := t.keyOf(subject)
	if len(key) != t.depth {
		var zero V
		return zero, false
	}
	n, ok := t.root.find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return n.value, true
}

// Len returns the number of registered patterns.
func (t *Tree[T, K, V]) Len() int {
	return t.size
}

// Depth returns the number of levels per pattern.
func (t *Tree[T, K, V]) Depth() int {
	return t.depth
}

// Clear removes every registered pattern.
func (t *Tree[T, K, V]) Clear() {
	t.root = &node[K, V]{}
	t.size = 0
}

// Prefers reports whether pattern a is preferred over pattern b by Resolve
// when both match the same key: at the first level where they differ in
// kind, the exact level wins. Equal-kind patterns are not preferred either way.
func Prefers[K comparable](a, b []Level[K]) bool {
	for i := range min(len(a), len(b)) {
		if a[i].Any != b[i].Any {
			return !a[i].Any
		}
	}
	return false
}

// Matches reports whether key is consistent with pattern.
func Matches[K comparable](pattern []Level[K], key []K) bool {
	if len(pattern) != len(key) {
		return false
	}
	for i, l := range pattern {
		if !l.Any && l.Value != key[i] {
			return false
		}
	}
	return true
}
