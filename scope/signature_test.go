package scope

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/types"
)

// testClass tolerates repeated test runs in one process.
func testClass(name string, bases ...*rtti.Class) *rtti.Class {
	if c, ok := rtti.LookupClass(name); ok {
		return c
	}
	return rtti.NewClass(name, bases...)
}

func TestFieldSignatureOffsets(t *testing.T) {
	var b Bar
	sig := FieldSignature[Bar]("Extra", types.TypeFloat, 1, "Extra")
	assert.Equal(t, unsafe.Offsetof(b.Extra), sig.StorageOffset)

	// promoted through the embedded Foo
	sig = FieldSignature[Bar]("ExternalString", types.TypeString, 1, "ExternalString")
	assert.Equal(t, unsafe.Offsetof(b.Foo)+unsafe.Offsetof(b.Foo.ExternalString), sig.StorageOffset)

	sig = FieldSignature[Foo]("IntegerArray", types.TypeInteger, 4, "IntegerArray")
	assert.Equal(t, 4, sig.Size)
	assert.Equal(t, types.TypeInteger, sig.Type)
}

func TestFieldSignatureMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { FieldSignature[Foo]("x", types.TypeFloat, 1, "ExternalInteger") })
	assert.Panics(t, func() { FieldSignature[Foo]("x", types.TypeInteger, 3, "IntegerArray") })
	assert.Panics(t, func() { FieldSignature[Foo]("x", types.TypeInteger, 1, "Missing") })
	assert.Panics(t, func() { FieldSignature[Foo]("x", types.TypeTable, 1, "ExternalInteger") })
	assert.Panics(t, func() { FieldSignature[int]("x", types.TypeInteger, 1, "X") })
}

func TestTypeManager(t *testing.T) {
	m := NewTypeManager()
	base := testClass("scope_test.tmBase")
	derived := testClass("scope_test.tmDerived", base)

	_, err := m.SignaturesForType(base.ID())
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, m.AddType(derived, base, nil), types.ErrNotFound)

	require.NoError(t, m.AddType(base, nil, []Signature{
		{Name: "A", Type: types.TypeInteger, Size: 1},
	}))
	require.NoError(t, m.AddType(derived, base, []Signature{
		{Name: "B", Type: types.TypeString, Size: 1},
		TableSignature("C", 2),
	}))
	assert.True(t, m.IsRegistered(derived.ID()))
	assert.Equal(t, 2, m.Size())

	sigs, err := m.SignaturesForType(derived.ID())
	require.NoError(t, err)
	names := make([]string, len(sigs))
	for i, s := range sigs {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)

	assert.ErrorIs(t, m.AddType(base, nil, nil), types.ErrInvalidOperation)

	assert.True(t, m.RemoveType(derived.ID()))
	assert.False(t, m.IsRegistered(derived.ID()))
	m.Clear()
	assert.Equal(t, 0, m.Size())
}

func TestTypeManagerRejectsBadSignatures(t *testing.T) {
	m := NewTypeManager()
	cases := []struct {
		name string
		sigs []Signature
	}{
		{"reserved", []Signature{{Name: ThisName, Type: types.TypeInteger, Size: 1}}},
		{"empty name", []Signature{{Name: "", Type: types.TypeInteger, Size: 1}}},
		{"duplicate", []Signature{
			{Name: "A", Type: types.TypeInteger, Size: 1},
			{Name: "A", Type: types.TypeFloat, Size: 1},
		}},
		{"unknown type", []Signature{{Name: "A", Type: types.TypeUnknown, Size: 1}}},
		{"zero size", []Signature{{Name: "A", Type: types.TypeInteger}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := testClass("scope_test.bad " + tc.name)
			assert.ErrorIs(t, m.AddType(class, nil, tc.sigs), types.ErrInvalidOperation)
			assert.False(t, m.IsRegistered(class.ID()))
		})
	}
}

func TestDefaultTypeManager(t *testing.T) {
	assert.True(t, DefaultTypeManager().IsRegistered(AttributedClass.ID()))
	assert.True(t, DefaultTypeManager().IsRegistered(fooClass.ID()))
	sigs, err := DefaultTypeManager().SignaturesForType(barClass.ID())
	require.NoError(t, err)
	assert.Len(t, sigs, fooAttributeCount)
	assert.Equal(t, "Extra", sigs[len(sigs)-1].Name)
}
