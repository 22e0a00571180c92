package scope

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/types"
)

var (
	fooClass = rtti.NewClass("scope_test.Foo", AttributedClass)
	barClass = rtti.NewClass("scope_test.Bar", fooClass)
)

type Foo struct {
	Attributed
	ExternalInteger int32
	ExternalFloat   float32
	ExternalString  string
	ExternalVector  mgl32.Vec4
	ExternalMatrix  mgl32.Mat4
	ExternalPointer rtti.RTTI
	IntegerArray    [4]int32
	StringArray     [2]string
}

func NewFoo() *Foo {
	f := &Foo{}
	InitAttributed(f)
	return f
}

func (f *Foo) Class() *rtti.Class { return fooClass }
func (f *Foo) Clone() Node { return Copy(f) }

type Bar struct {
	Foo
	Extra float32
}

func NewBar() *Bar {
	b := &Bar{}
	InitAttributed(b)
	return b
}

func (b *Bar) Class() *rtti.Class { return barClass }
func (b *Bar) Clone() Node { return Copy(b) }

func init() {
	MustRegisterType(fooClass, AttributedClass,
		FieldSignature[Foo]("ExternalInteger", types.TypeInteger, 1, "ExternalInteger"),
		FieldSignature[Foo]("ExternalFloat", types.TypeFloat, 1, "ExternalFloat"),
		FieldSignature[Foo]("ExternalString", types.TypeString, 1, "ExternalString"),
		FieldSignature[Foo]("ExternalVector", types.TypeVector, 1, "ExternalVector"),
		FieldSignature[Foo]("ExternalMatrix", types.TypeMatrix, 1, "ExternalMatrix"),
		FieldSignature[Foo]("ExternalPointer", types.TypePointer, 1, "ExternalPointer"),
		FieldSignature[Foo]("IntegerArray", types.TypeInteger, 4, "IntegerArray"),
		FieldSignature[Foo]("StringArray", types.TypeString, 2, "StringArray"),
		TableSignature("NestedScopes", 2),
	)
	MustRegisterType(barClass, fooClass,
		FieldSignature[Bar]("Extra", types.TypeFloat, 1, "Extra"),
	)
}

const fooAttributeCount = 10 // "this" plus nine signatures

func find(t *testing.T, n Node, name string) *Datum {
	t.Helper()
	d := n.BaseScope().Find(name)
	require.NotNil(t, d, name)
	return d
}

func TestAttributedPopulate(t *testing.T) {
	f := NewFoo()
	assert.Equal(t, fooAttributeCount, f.Size())

	names := f.Names()
	assert.Equal(t, ThisName, names[0])
	assert.Equal(t, "ExternalInteger", names[1])
	assert.Equal(t, "NestedScopes", names[9])

	this, err := find(t, f, ThisName).GetPointer(0)
	require.NoError(t, err)
	assert.Same(t, f, this)

	nested := find(t, f, "NestedScopes").Tables()
	require.Len(t, nested, 2)
	for _, n := range nested {
		assert.Same(t, &f.Scope, n.Parent())
	}

	for _, e := range f.PrescribedAttributes()[1:] {
		if e.Value.Type() != types.TypeTable {
			assert.True(t, e.Value.IsExternal(), e.Key)
		}
	}
}

func TestAttributedAliasingRoundTrip(t *testing.T) {
	f := NewFoo()

	f.ExternalInteger = 5
	f.ExternalFloat = 2.5
	f.ExternalString = "native"
	f.ExternalVector = mgl32.Vec4{1, 2, 3, 4}
	f.ExternalMatrix = mgl32.Ident4()
	f.IntegerArray[3] = 8
	f.StringArray[1] = "second"

	i, err := find(t, f, "ExternalInteger").GetInteger(0)
	require.NoError(t, err)
	assert.Equal(t, int32(5), i)
	fl, err := find(t, f, "ExternalFloat").GetFloat(0)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), fl)
	s, err := find(t, f, "ExternalString").GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "native", s)
	v, err := find(t, f, "ExternalVector").GetVector(0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 4}, v)
	m, err := find(t, f, "ExternalMatrix").GetMatrix(0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Ident4(), m)
	assert.Equal(t, []int32{0, 0, 0, 8}, find(t, f, "IntegerArray").Integers())
	assert.Equal(t, []string{"", "second"}, find(t, f, "StringArray").Strings())

	require.NoError(t, find(t, f, "ExternalInteger").SetInteger(11, 0))
	require.NoError(t, find(t, f, "ExternalFloat").SetFromString("0.5", 0))
	require.NoError(t, find(t, f, "ExternalString").SetString("datum", 0))
	require.NoError(t, find(t, f, "ExternalVector").SetVector(mgl32.Vec4{4, 3, 2, 1}, 0))
	require.NoError(t, find(t, f, "ExternalPointer").SetPointer(f, 0))
	require.NoError(t, find(t, f, "IntegerArray").SetInteger(7, 0))

	assert.Equal(t, int32(11), f.ExternalInteger)
	assert.Equal(t, float32(0.5), f.ExternalFloat)
	assert.Equal(t, "datum", f.ExternalString)
	assert.Equal(t, mgl32.Vec4{4, 3, 2, 1}, f.ExternalVector)
	assert.Same(t, f, f.ExternalPointer)
	assert.Equal(t, [4]int32{7, 0, 0, 8}, f.IntegerArray)

	assert.ErrorIs(t, find(t, f, "IntegerArray").PushBackInteger(1), types.ErrInvalidOperation)
}

func TestAttributedCopyScenario(t *testing.T) {
	a := NewFoo()
	a.ExternalInteger = 5

	b := Copy(a)
	got, err := find(t, b, "ExternalInteger").GetInteger(0)
	require.NoError(t, err)
	assert.Equal(t, int32(5), got)
	assert.Same(t, &b.ExternalInteger, &find(t, b, "ExternalInteger").Integers()[0])
	assert.NotSame(t, &a.ExternalInteger, &find(t, b, "ExternalInteger").Integers()[0])
}

func TestAttributedInheritance(t *testing.T) {
	b := NewBar()
	assert.Equal(t, fooAttributeCount+1, b.Size())
	assert.Equal(t, "Extra", b.Names()[fooAttributeCount])
	assert.True(t, b.Is(fooClass.ID()))
	assert.True(t, b.IsNamed("Attributed"))

	b.ExternalInteger = 3
	b.Extra = 1.25
	i, err := find(t, b, "ExternalInteger").GetInteger(0)
	require.NoError(t, err)
	assert.Equal(t, int32(3), i)
	x, err := find(t, b, "Extra").GetFloat(0)
	require.NoError(t, err)
	assert.Equal(t, float32(1.25), x)

	this, err := find(t, b, ThisName).GetPointer(0)
	require.NoError(t, err)
	asBar, ok := rtti.As[*Bar](this)
	require.True(t, ok)
	assert.Same(t, b, asBar)
}

func TestAttributedPrescribedAndAuxiliary(t *testing.T) {
	f := NewFoo()
	assert.True(t, f.IsPrescribedAttribute(ThisName))
	assert.True(t, f.IsPrescribedAttribute("ExternalFloat"))
	assert.False(t, f.IsPrescribedAttribute("Aux"))

	_, err := f.AppendAuxiliaryAttribute("ExternalFloat")
	assert.ErrorIs(t, err, types.ErrInvalidOperation)
	_, err = f.AppendAuxiliaryAttribute(ThisName)
	assert.ErrorIs(t, err, types.ErrInvalidOperation)

	aux, err := f.AppendAuxiliaryAttribute("Aux")
	require.NoError(t, err)
	require.NoError(t, aux.AssignString("extra"))

	assert.True(t, f.IsAttribute("Aux"))
	assert.True(t, f.IsAuxiliaryAttribute("Aux"))
	assert.False(t, f.IsAuxiliaryAttribute("ExternalFloat"))
	assert.False(t, f.IsAttribute("Missing"))

	assert.Len(t, f.PrescribedAttributes(), fooAttributeCount)
	aux2 := f.AuxiliaryAttributes()
	require.Len(t, aux2, 1)
	assert.Equal(t, "Aux", aux2[0].Key)
	assert.Len(t, f.Attributes(), fooAttributeCount+1)
}

func TestAttributedEqualityIgnoresThis(t *testing.T) {
	a, b := NewFoo(), NewFoo()
	assert.True(t, a.Equal(&b.Scope))
	assert.True(t, a.Equals(b))

	b.ExternalString = "changed"
	assert.False(t, a.Equal(&b.Scope))
}

type unregistered struct {
	Attributed
}

var unregisteredClass = rtti.NewClass("scope_test.unregistered", AttributedClass)

func (u *unregistered) Class() *rtti.Class { return unregisteredClass }
func (u *unregistered) Clone() Node { return Copy(u) }

func TestAttributedUnregisteredPanics(t *testing.T) {
	assert.Panics(t, func() { InitAttributed(&unregistered{}) })
	assert.Panics(t, func() { InitAttributed(NewScope()) })
}
