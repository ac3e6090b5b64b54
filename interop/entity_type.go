package interop

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/simnet-io/interop/interop/lookup"
)

// EntityTypeLevels is the number of discriminator fields in an EntityType.
const EntityTypeLevels = 7

// EntityType is the network code identifying a kind of entity. Fields are
// ordered from most to least significant.
//
// When used as a mapper pattern, a zero field is a wildcard: the pattern
// matches any code whose non-wildcard fields are equal.
type EntityType struct {
	Kind        uint8
	Domain      uint8
	Country     uint16
	Category    uint8
	Subcategory uint8
	Specific    uint8
	Extra       uint8
}

// Levels returns the fields as lookup keys, most significant first.
func (e EntityType) Levels() []int {
	return []int{
		int(e.Kind), int(e.Domain), int(e.Country), int(e.Category),
		int(e.Subcategory), int(e.Specific), int(e.Extra),
	}
}

// Pattern returns the lookup pattern of e, treating zero fields as wildcards.
func (e EntityType) Pattern() []lookup.Level[int] {
	levels := e.Levels()
	out := make([]lookup.Level[int], len(levels))
	for i, v := range levels {
		if v == 0 {
			out[i] = lookup.Wildcard[int]()
		} else {
			out[i] = lookup.Exact(v)
		}
	}
	return out
}

// Matches reports whether code is consistent with e used as a pattern.
func (e EntityType) Matches(code EntityType) bool {
	return lookup.Matches(e.Pattern(), code.Levels())
}

// MoreGeneralThan reports whether every code matched by other is also matched
// by e, and e is not identical to other.
func (e EntityType) MoreGeneralThan(other EntityType) bool {
	if e == other {
		return false
	}
	a, b := e.Levels(), other.Levels()
	for i := range a {
		if a[i] != 0 && a[i] != b[i] {
			return false
		}
	}
	return true
}

// Specificity returns the number of non-wildcard fields.
func (e EntityType) Specificity() int {
	n := 0
	for _, v := range e.Levels() {
		if v != 0 {
			n++
		}
	}
	return n
}

// String formats e as "kind.domain.country.category.subcategory.specific.extra".
func (e EntityType) String() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d.%d",
		e.Kind, e.Domain, e.Country, e.Category, e.Subcategory, e.Specific, e.Extra)
}

// CompareEntityTypes orders entity types field by field.
func CompareEntityTypes(a, b EntityType) int {
	la, lb := a.Levels(), b.Levels()
	for i := range la {
		if c := cmp.Compare(la[i], lb[i]); c != 0 {
			return c
		}
	}
	return 0
}

// ParseEntityType parses the dotted form produced by String. Missing trailing
// fields and "*" parse as zero (wildcard).
func ParseEntityType(s string) (EntityType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EntityType{}, fmt.Errorf("empty entity type")
	}
	parts := strings.Split(s, ".")
	if len(parts) > EntityTypeLevels {
		return EntityType{}, fmt.Errorf("entity type %q has %d fields, max %d", s, len(parts), EntityTypeLevels)
	}
	var vals [EntityTypeLevels]uint64
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "*" {
			continue
		}
		bits := 8
		if i == 2 {
			bits = 16
		}
		v, err := strconv.ParseUint(p, 10, bits)
		if err != nil {
			return EntityType{}, fmt.Errorf("entity type %q field %d: %w", s, i, err)
		}
		vals[i] = v
	}
	return EntityType{
		Kind:        uint8(vals[0]),
		Domain:      uint8(vals[1]),
		Country:     uint16(vals[2]),
		Category:    uint8(vals[3]),
		Subcategory: uint8(vals[4]),
		Specific:    uint8(vals[5]),
		Extra:       uint8(vals[6]),
	}, nil
}

// NibKey identifies a networked entity within one direction.
// Comparisons are by player id first, then federate name.
type NibKey struct {
	PlayerID     uint16
	FederateName string
}

// CompareNibKeys orders keys by player id, then federate name.
func CompareNibKeys(a, b NibKey) int {
	if c := cmp.Compare(a.PlayerID, b.PlayerID); c != 0 {
		return c
	}
	return strings.Compare(a.FederateName, b.FederateName)
}

func (k NibKey) String() string {
	return fmt.Sprintf("%s/%d", k.FederateName, k.PlayerID)
}
