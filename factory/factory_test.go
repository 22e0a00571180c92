package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/scope"
	"github.com/quickwritereader/attrscope/types"
)

var monsterClass = rtti.NewClass("factory_test.Monster", scope.AttributedClass)

type Monster struct {
	scope.Attributed
	Health int32
}

func NewMonster() *Monster {
	m := &Monster{Health: 100}
	scope.InitAttributed(m)
	return m
}

func (m *Monster) Class() *rtti.Class { return monsterClass }
func (m *Monster) Clone() scope.Node { return scope.Copy(m) }

func init() {
	scope.MustRegisterType(monsterClass, scope.AttributedClass,
		scope.FieldSignature[Monster]("Health", types.TypeInteger, 1, "Health"))
	RegisterNode(monsterClass, NewMonster)
}

func TestFactoryRegisterCreate(t *testing.T) {
	f := New[string]()
	require.NoError(t, f.Register("a", func() string { return "made a" }))
	assert.ErrorIs(t, f.Register("a", func() string { return "" }), types.ErrInvalidOperation)
	assert.ErrorIs(t, f.Register("", func() string { return "" }), types.ErrInvalidOperation)
	assert.ErrorIs(t, f.Register("b", nil), types.ErrInvalidOperation)

	v, err := f.Create("a")
	require.NoError(t, err)
	assert.Equal(t, "made a", v)

	_, err = f.Create("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, f.Register("c", func() string { return "c" }))
	assert.Equal(t, []string{"a", "c"}, f.Names())
	assert.True(t, f.Unregister("a"))
	assert.False(t, f.Contains("a"))
	assert.False(t, f.Unregister("a"))
	assert.Panics(t, func() { f.MustRegister("c", func() string { return "" }) })
}

func TestScopesFactory(t *testing.T) {
	n, err := Scopes.Create("Scope")
	require.NoError(t, err)
	_, ok := n.(*scope.Scope)
	assert.True(t, ok)

	n, err = Scopes.Create(monsterClass.Name())
	require.NoError(t, err)
	m, ok := n.(*Monster)
	require.True(t, ok)
	h, err := m.Find("Health").GetInteger(0)
	require.NoError(t, err)
	assert.Equal(t, int32(100), h)

	other, err := Scopes.Create(monsterClass.Name())
	require.NoError(t, err)
	assert.NotSame(t, m, other)
	assert.Contains(t, Scopes.Names(), "Scope")
}
