package tableio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickwritereader/attrscope/factory"
	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/scope"
	"github.com/quickwritereader/attrscope/types"
)

var monsterClass = rtti.NewClass("tableio_test.Monster", scope.AttributedClass)

type Monster struct {
	scope.Attributed
	Health   int32
	Position mgl32.Vec4
	Tags     [2]string
}

func NewMonster() *Monster {
	m := &Monster{}
	scope.InitAttributed(m)
	return m
}

func (m *Monster) Class() *rtti.Class { return monsterClass }
func (m *Monster) Clone() scope.Node { return scope.Copy(m) }

func init() {
	scope.MustRegisterType(monsterClass, scope.AttributedClass,
		scope.FieldSignature[Monster]("Health", types.TypeInteger, 1, "Health"),
		scope.FieldSignature[Monster]("Position", types.TypeVector, 1, "Position"),
		scope.FieldSignature[Monster]("Tags", types.TypeString, 2, "Tags"),
		scope.TableSignature("Loot", 1),
	)
	factory.RegisterNode(monsterClass, NewMonster)
}

const worldJSON = `{
  "Name":    {"type": "string", "value": "arena"},
  "Gravity": {"type": "float", "value": 9.5},
  "Spawns":  {"type": "integer", "value": [1, 2, 3]},
  "Origin":  {"type": "vector", "value": "vec4(1, 2, 3, 1)"},
  "Camera":  {"type": "matrix", "value": "mat4x4((1, 0, 0, 0), (0, 1, 0, 0), (0, 0, 1, 0), (5, 6, 7, 1))"},
  "Empty":   {"type": "integer", "value": []},
  "Level":   {"type": "table", "value": {"Depth": {"type": "integer", "value": 2}}},
  "Monsters": {"type": "table", "class": "tableio_test.Monster", "value": [
    {"Health": {"type": "integer", "value": 40},
     "Tags": {"type": "string", "value": ["orc", "boss"]},
     "Loot": {"type": "table", "value": {"Gold": {"type": "integer", "value": 7}}},
     "Mood": {"type": "string", "value": "angry"}},
    {"Health": {"type": "integer", "value": 10},
     "Position": {"type": "vector", "value": "vec4(0, 0, 1, 1)"}}
  ]}
}`

func loadWorld(t *testing.T) *scope.Scope {
	t.Helper()
	doc, err := Decode(strings.NewReader(worldJSON), FormatAuto)
	require.NoError(t, err)
	n, err := NewReader().Load("Scope", doc)
	require.NoError(t, err)
	return n.BaseScope()
}

func TestReaderPopulatesScalars(t *testing.T) {
	world := loadWorld(t)
	assert.Equal(t, []string{"Name", "Gravity", "Spawns", "Origin", "Camera", "Empty", "Level", "Monsters"}, world.Names())

	name, err := world.Find("Name").GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "arena", name)
	g, err := world.Find("Gravity").GetFloat(0)
	require.NoError(t, err)
	assert.Equal(t, float32(9.5), g)
	assert.Equal(t, []int32{1, 2, 3}, world.Find("Spawns").Integers())
	assert.Equal(t, []mgl32.Vec4{{1, 2, 3, 1}}, world.Find("Origin").Vectors())
	cam, err := world.Find("Camera").GetMatrix(0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{5, 6, 7, 1}, cam.Col(3))
	assert.Equal(t, types.TypeInteger, world.Find("Empty").Type())
	assert.Equal(t, 0, world.Find("Empty").Size())

	level, err := world.Find("Level").GetTable(0)
	require.NoError(t, err)
	assert.Same(t, world, level.Parent())
	depth, err := level.Find("Depth").GetInteger(0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), depth)
}

func TestReaderPopulatesAttributedChildren(t *testing.T) {
	world := loadWorld(t)
	kids := world.Find("Monsters").Tables()
	require.Len(t, kids, 2)

	orc, ok := kids[0].Node().(*Monster)
	require.True(t, ok)
	assert.Same(t, world, orc.Parent())
	assert.Equal(t, int32(40), orc.Health)
	assert.Equal(t, [2]string{"orc", "boss"}, orc.Tags)
	assert.True(t, orc.IsAuxiliaryAttribute("Mood"))

	loot := orc.Find("Loot").Tables()
	require.Len(t, loot, 1)
	gold, err := loot[0].Find("Gold").GetInteger(0)
	require.NoError(t, err)
	assert.Equal(t, int32(7), gold)

	second, ok := kids[1].Node().(*Monster)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, second.Position)
}

func TestReaderErrors(t *testing.T) {
	cases := map[string]string{
		"unknown type":     `{"A": {"type": "colour", "value": 1}}`,
		"missing type":     `{"A": {"value": 1}}`,
		"bad descriptor":   `{"A": 3}`,
		"bad integer":      `{"A": {"type": "integer", "value": "x"}}`,
		"unknown class":    `{"A": {"type": "table", "class": "Nope", "value": {}}}`,
		"table of scalars": `{"A": {"type": "table", "value": [1]}}`,
		"too many fields":  `{"M": {"type": "table", "class": "tableio_test.Monster", "value": {"Tags": {"type": "string", "value": ["a", "b", "c"]}}}}`,
		"pointer":          `{"A": {"type": "pointer", "value": "x"}}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := DecodeJSON(strings.NewReader(input))
			require.NoError(t, err)
			assert.Error(t, NewReader().Populate(scope.NewScope(), doc))
		})
	}
}

func TestWriterSkipsThisAndPointers(t *testing.T) {
	m := NewMonster()
	m.Health = 5
	ptr, err := m.AppendAuxiliaryAttribute("Target")
	require.NoError(t, err)
	require.NoError(t, ptr.AssignPointer(m))

	doc, err := EncodeScope(&m.Scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"Health", "Position", "Tags", "Loot"}, doc.Keys())

	health, ok := GetAs[*Document](doc, "Health")
	require.True(t, ok)
	v, _ := health.Get(KeyValue)
	assert.Equal(t, int64(5), v)
}

func TestRoundTripJSON(t *testing.T) {
	world := loadWorld(t)

	var buf bytes.Buffer
	require.NoError(t, Writer{Format: FormatJSON, Indent: 2}.Write(&buf, world))

	doc, err := Decode(&buf, FormatAuto)
	require.NoError(t, err)
	again, err := NewReader().Load("Scope", doc)
	require.NoError(t, err)
	assert.True(t, world.Equal(again.BaseScope()))

	kids := again.BaseScope().Find("Monsters").Tables()
	require.Len(t, kids, 2)
	_, ok := kids[0].Node().(*Monster)
	assert.True(t, ok)
}

func TestRoundTripMsgpack(t *testing.T) {
	world := loadWorld(t)

	var buf bytes.Buffer
	require.NoError(t, Writer{Format: FormatMsgpack}.Write(&buf, world))
	require.NotEqual(t, byte('{'), buf.Bytes()[0])

	doc, err := Decode(&buf, FormatAuto)
	require.NoError(t, err)
	again, err := NewReader().Load("Scope", doc)
	require.NoError(t, err)
	assert.True(t, world.Equal(again.BaseScope()))
	assert.Equal(t, world.Names(), again.BaseScope().Names())
}

func TestConvertJSONToMsgpackKeepsDocument(t *testing.T) {
	doc, err := DecodeJSON(strings.NewReader(`{"A": {"type": "string", "value": ["x", "y"]}, "B": {"type": "integer", "value": 3}}`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, FormatMsgpack, 0))
	back, err := DecodeMsgpack(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, back.Keys())

	b, ok := GetAs[*Document](back, "B")
	require.True(t, ok)
	v, _ := b.Get(KeyValue)
	assert.Equal(t, int64(3), v)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MsgPack")
	require.NoError(t, err)
	assert.Equal(t, FormatMsgpack, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatAuto, f)
	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, types.ErrInvalidOperation)

	assert.Equal(t, FormatJSON, FormatForPath("world.json"))
	assert.Equal(t, FormatMsgpack, FormatForPath("world.msgpack"))
	assert.Equal(t, FormatAuto, FormatForPath("world"))
}
