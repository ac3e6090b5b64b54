package interop

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aircraft(typ string) PlayerTemplate {
	return PlayerTemplate{PlayerDescriptor: PlayerDescriptor{Class: "Aircraft", Type: typ}}
}

func TestNtmTables_InputSpecificity(t *testing.T) {
	tables := newNtmTables(10)
	generic := NewNtm(EntityType{Kind: 1, Domain: 2}, aircraft("Generic"))
	us := NewNtm(EntityType{Kind: 1, Domain: 2, Country: 225}, aircraft("US"))
	f16 := NewNtm(typeF16, aircraft("F-16C"))
	// registration order must not matter
	for _, n := range []*Ntm{f16, generic, us} {
		require.NoError(t, tables.addInput(n))
	}

	tests := []struct {
		code EntityType
		want *Ntm
	}{
		{typeF16, f16},
		{typeF15, us},
		{EntityType{Kind: 1, Domain: 2, Country: 222}, generic},
		{typeUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			got, ok := tables.resolveInput(tt.code)
			assert.Equal(t, tt.want != nil, ok)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestNtmTables_OutputRequiresClassAndKind(t *testing.T) {
	tables := newNtmTables(10)

	err := tables.addOutput(NewNtm(EntityType{}, aircraft("F-16C")))
	assert.ErrorIs(t, err, ErrMalformedMapper)
	err = tables.addOutput(NewNtm(typeF16, PlayerTemplate{}))
	assert.ErrorIs(t, err, ErrMalformedMapper)
	assert.ErrorIs(t, tables.addInput(nil), ErrMalformedMapper)
}

func TestNtmTables_FullAndDuplicate(t *testing.T) {
	tables := newNtmTables(2)
	first := NewNtm(typeF16, aircraft("F-16C"))
	require.NoError(t, tables.addInput(first))

	assert.ErrorIs(t, tables.addInput(NewNtm(typeF16, aircraft("Other"))), ErrDuplicateMapper)
	require.NoError(t, tables.addInput(NewNtm(typeF15, aircraft("F-15C"))))
	assert.ErrorIs(t, tables.addInput(NewNtm(typeUnknown, aircraft("X"))), ErrMapperTableFull)

	got, _ := tables.resolveInput(typeF16)
	assert.Same(t, first, got, "first registration wins")
	assert.Len(t, tables.inputTable, 2)
}

func TestNtmTables_ClearEmptiesBothViews(t *testing.T) {
	tables := newNtmTables(4)
	require.NoError(t, tables.addOutput(NewNtm(typeF16, aircraft("F-16C"))))
	tables.clearOutput()

	_, ok := tables.resolveOutput(PlayerDescriptor{Class: "Aircraft", Type: "F-16C"})
	assert.False(t, ok)
	assert.Empty(t, tables.outputTable)
	require.NoError(t, tables.addOutput(NewNtm(typeF16, aircraft("F-16C"))))
}

func TestNtmTables_TreeAgreesWithLinearScan(t *testing.T) {
	// GIVEN a random set of mappers over a small value space
	rng := rand.New(rand.NewSource(7))
	tables := newNtmTables(500)
	pick := func() uint8 { return uint8(rng.Intn(3)) }
	for i := 0; i < 300; i++ {
		et := EntityType{Kind: 1 + pick(), Domain: pick(), Country: uint16(pick()), Category: pick(), Subcategory: pick()}
		_ = tables.addInput(NewNtm(et, aircraft(et.String())))
	}

	// WHEN random codes are resolved both ways
	var codes []EntityType
	for i := 0; i < 500; i++ {
		codes = append(codes, EntityType{
			Kind: 1 + pick(), Domain: 1 + pick(), Country: uint16(1 + pick()),
			Category: 1 + pick(), Subcategory: 1 + pick(), Specific: pick(),
		})
	}

	// THEN they agree on every code
	assert.NoError(t, tables.verifyInput(codes))
}

func TestNtmTables_OutputTypeFallsBackToClass(t *testing.T) {
	tables := newNtmTables(4)
	classWide := NewNtm(EntityType{Kind: 1, Domain: 2}, PlayerTemplate{PlayerDescriptor: PlayerDescriptor{Class: "Aircraft"}})
	exact := NewNtm(typeF16, aircraft("F-16C"))
	require.NoError(t, tables.addOutput(classWide))
	require.NoError(t, tables.addOutput(exact))

	got, _ := tables.resolveOutput(PlayerDescriptor{Class: "Aircraft", Type: "F-16C"})
	assert.Same(t, exact, got)
	got, _ = tables.resolveOutput(PlayerDescriptor{Class: "Aircraft", Type: "Tu-95"})
	assert.Same(t, classWide, got)
	assert.NoError(t, tables.verifyOutput([]PlayerDescriptor{{Class: "Aircraft", Type: "Tu-95"}, {Class: "Ship"}}))
}
