package interop

import (
	"errors"
	"fmt"

	"github.com/simnet-io/interop/interop/lookup"
)

// Ntm (network type mapper) associates an entity type pattern with a local
// player template. On the input side the entity type is the pattern and the
// template is what gets instantiated; on the output side the template's
// descriptor is the pattern and the entity type is what gets sent.
//
// An Ntm is immutable once created.
type Ntm struct {
	entityType EntityType
	template   PlayerTemplate
}

// NewNtm creates a mapper.
func NewNtm(et EntityType, template PlayerTemplate) *Ntm {
	return &Ntm{entityType: et, template: template}
}

func (n *Ntm) EntityType() EntityType   { return n.entityType }
func (n *Ntm) Template() PlayerTemplate { return n.template }

func (n *Ntm) String() string {
	return fmt.Sprintf("%s <-> %s", n.entityType, n.template.PlayerDescriptor)
}

func inputPattern(n *Ntm) ([]lookup.Level[int], bool) {
	if n == nil || n.template.Class == "" {
		return nil, false
	}
	return n.entityType.Pattern(), true
}

func outputPattern(n *Ntm) ([]lookup.Level[string], bool) {
	if n == nil || n.template.Class == "" || n.entityType.Kind == 0 {
		return nil, false
	}
	return n.template.Pattern(), true
}

// ntmTables holds the quick-lookup trees for both directions plus the raw,
// registration-ordered tables they were built from.
type ntmTables struct {
	capacity int

	inputTree  *lookup.Tree[EntityType, int, *Ntm]
	outputTree *lookup.Tree[PlayerDescriptor, string, *Ntm]

	inputTable  []*Ntm
	outputTable []*Ntm
}

func newNtmTables(capacity int) *ntmTables {
	return &ntmTables{
		capacity:   capacity,
		inputTree:  lookup.New(EntityTypeLevels, capacity, EntityType.Levels, inputPattern),
		outputTree: lookup.New(PlayerDescriptorLevels, capacity, PlayerDescriptor.Levels, outputPattern),
	}
}

func (t *ntmTables) addInput(n *Ntm) error {
	if err := t.inputTree.Insert(n); err != nil {
		return wrapLookupErr(err)
	}
	t.inputTable = append(t.inputTable, n)
	return nil
}

func (t *ntmTables) addOutput(n *Ntm) error {
	if err := t.outputTree.Insert(n); err != nil {
		return wrapLookupErr(err)
	}
	t.outputTable = append(t.outputTable, n)
	return nil
}

func (t *ntmTables) clearInput() {
	t.inputTree.Clear()
	t.inputTable = nil
}

func (t *ntmTables) clearOutput() {
	t.outputTree.Clear()
	t.outputTable = nil
}

func (t *ntmTables) resolveInput(et EntityType) (*Ntm, bool) {
	return t.inputTree.Resolve(et)
}

func (t *ntmTables) resolveOutput(d PlayerDescriptor) (*Ntm, bool) {
	return t.outputTree.Resolve(d)
}

// scanInput is the linear best-match over the raw input table.
func (t *ntmTables) scanInput(et EntityType) (*Ntm, bool) {
	key := et.Levels()
	var best *Ntm
	for _, n := range t.inputTable {
		p := n.entityType.Pattern()
		if !lookup.Matches(p, key) {
			continue
		}
		if best == nil || lookup.Prefers(p, best.entityType.Pattern()) {
			best = n
		}
	}
	return best, best != nil
}

// scanOutput is the linear best-match over the raw output table.
func (t *ntmTables) scanOutput(d PlayerDescriptor) (*Ntm, bool) {
	key := d.Levels()
	var best *Ntm
	for _, n := range t.outputTable {
		p := n.template.Pattern()
		if !lookup.Matches(p, key) {
			continue
		}
		if best == nil || lookup.Prefers(p, best.template.Pattern()) {
			best = n
		}
	}
	return best, best != nil
}

// ErrMapperMismatch is reported by the verification rigs when the quick-lookup
// tree and the raw table disagree.
var ErrMapperMismatch = errors.New("quick-lookup tree disagrees with raw mapper table")

// verifyInput resolves each registered pattern, plus each code in extra,
// through both the tree and the raw table and reports disagreements.
func (t *ntmTables) verifyInput(extra []EntityType) error {
	var errs []error
	codes := make([]EntityType, 0, len(t.inputTable)+len(extra))
	for _, n := range t.inputTable {
		codes = append(codes, n.entityType)
	}
	codes = append(codes, extra...)
	for _, code := range codes {
		fromTree, _ := t.resolveInput(code)
		fromTable, _ := t.scanInput(code)
		if fromTree != fromTable {
			errs = append(errs, fmt.Errorf("%w: entity type %s: tree=%v table=%v", ErrMapperMismatch, code, fromTree, fromTable))
		}
	}
	return errors.Join(errs...)
}

func (t *ntmTables) verifyOutput(extra []PlayerDescriptor) error {
	var errs []error
	descs := make([]PlayerDescriptor, 0, len(t.outputTable)+len(extra))
	for _, n := range t.outputTable {
		descs = append(descs, n.template.PlayerDescriptor)
	}
	descs = append(descs, extra...)
	for _, d := range descs {
		fromTree, _ := t.resolveOutput(d)
		fromTable, _ := t.scanOutput(d)
		if fromTree != fromTable {
			errs = append(errs, fmt.Errorf("%w: player type %s: tree=%v table=%v", ErrMapperMismatch, d, fromTree, fromTable))
		}
	}
	return errors.Join(errs...)
}

// Mapper registration errors.
var (
	ErrMapperTableFull = errors.New("entity type table is full")
	ErrMalformedMapper = errors.New("malformed entity type mapper")
	ErrDuplicateMapper = errors.New("duplicate entity type mapper")
)

func wrapLookupErr(err error) error {
	switch {
	case errors.Is(err, lookup.ErrFull):
		return ErrMapperTableFull
	case errors.Is(err, lookup.ErrMalformed):
		return ErrMalformedMapper
	case errors.Is(err, lookup.ErrDuplicate):
		return ErrDuplicateMapper
	default:
		return err
	}
}
