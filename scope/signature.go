package scope

import (
	"fmt"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/quickwritereader/attrscope/containers"
	"github.com/quickwritereader/attrscope/logger"
	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/types"
)

// ThisName is the reserved first attribute of every attributed object.
const ThisName = "this"

// Signature describes one prescribed attribute: its name, element type,
// element count and, for field-backed attributes, the byte offset of the
// field inside the host struct.
type Signature struct {
	Name          string
	Type          types.DatumType
	Size          int
	StorageOffset uintptr
}

var elemTypes = [...]reflect.Type{
	types.TypeInteger: reflect.TypeFor[int32](),
	types.TypeFloat:   reflect.TypeFor[float32](),
	types.TypeString:  reflect.TypeFor[string](),
	types.TypeVector:  reflect.TypeFor[mgl32.Vec4](),
	types.TypeMatrix:  reflect.TypeFor[mgl32.Mat4](),
	types.TypePointer: reflect.TypeFor[rtti.RTTI](),
}

// FieldSignature declares the attribute name backed by field of host type
// T. The field may sit in an embedded struct; it must hold size elements
// of typ's Go type, either as a single value (size 1) or as an array.
// Panics when the field does not exist or does not match.
//
// Usage:
//
//	type Foo struct {
//	    scope.Attributed
//	    Health int32
//	    Path   [4]mgl32.Vec4
//	}
//
//	scope.FieldSignature[Foo]("Health", types.TypeInteger, 1, "Health")
//	scope.FieldSignature[Foo]("Path", types.TypeVector, 4, "Path")
func FieldSignature[T any](name string, typ types.DatumType, size int, field string) Signature {
	host := reflect.TypeFor[T]()
	if host.Kind() != reflect.Struct {
		panic(fmt.Sprintf("FieldSignature %q: host %s is not a struct", name, host))
	}
	sf, ok := host.FieldByName(field)
	if !ok {
		panic(fmt.Sprintf("FieldSignature %q: %s has no field %q", name, host, field))
	}
	if size < 1 {
		panic(fmt.Sprintf("FieldSignature %q: size %d", name, size))
	}
	if int(typ) >= len(elemTypes) || elemTypes[typ] == nil {
		panic(fmt.Sprintf("FieldSignature %q: %s cannot be field backed", name, typ))
	}

	var offset uintptr
	t := host
	for _, i := range sf.Index {
		if t.Kind() != reflect.Struct {
			panic(fmt.Sprintf("FieldSignature %q: field %q is reached through a pointer", name, field))
		}
		f := t.Field(i)
		offset += f.Offset
		t = f.Type
	}

	elem := elemTypes[typ]
	switch {
	case sf.Type == elem && size == 1:
	case sf.Type.Kind() == reflect.Array && sf.Type.Elem() == elem && sf.Type.Len() == size:
	default:
		panic(fmt.Sprintf("FieldSignature %q: field %q is %s, want %d x %s", name, field, sf.Type, size, elem))
	}
	return Signature{Name: name, Type: typ, Size: size, StorageOffset: offset}
}

// TableSignature declares an attribute holding size nested scopes.
func TableSignature(name string, size int) Signature {
	return Signature{Name: name, Type: types.TypeTable, Size: size}
}

type typeEntry struct {
	class      *rtti.Class
	parent     rtti.TypeID
	signatures []Signature
}

// TypeManager maps attributed types to their signatures.
type TypeManager struct {
	registry *containers.HashMap[rtti.TypeID, *typeEntry]
}

func NewTypeManager() *TypeManager {
	return &TypeManager{registry: containers.NewHashMap[rtti.TypeID, *typeEntry](containers.DefaultBucketCount)}
}

// AddType registers class with its own signatures. When parent is given,
// its signatures come first. A derived host must embed its parent host as
// the first field so the inherited offsets stay valid.
func (m *TypeManager) AddType(class, parent *rtti.Class, sigs []Signature) error {
	if class == nil {
		return fmt.Errorf("TypeManager.AddType: nil class: %w", types.ErrInvalidOperation)
	}
	if m.registry.ContainsKey(class.ID()) {
		return fmt.Errorf("TypeManager.AddType: %s already registered: %w", class, types.ErrInvalidOperation)
	}

	var all []Signature
	var parentID rtti.TypeID
	if parent != nil {
		p, err := m.SignaturesForType(parent.ID())
		if err != nil {
			return fmt.Errorf("TypeManager.AddType: parent of %s: %w", class, err)
		}
		parentID = parent.ID()
		all = append(all, p...)
	}
	all = append(all, sigs...)

	seen := make(map[string]struct{}, len(all))
	for _, sig := range all {
		if sig.Name == "" || sig.Name == ThisName {
			return fmt.Errorf("TypeManager.AddType: %s: reserved name %q: %w", class, sig.Name, types.ErrInvalidOperation)
		}
		if _, dup := seen[sig.Name]; dup {
			return fmt.Errorf("TypeManager.AddType: %s: duplicate attribute %q: %w", class, sig.Name, types.ErrInvalidOperation)
		}
		seen[sig.Name] = struct{}{}
		if !sig.Type.IsValid() || sig.Type == types.TypeUnknown || sig.Size < 1 {
			return fmt.Errorf("TypeManager.AddType: %s: bad signature %q: %w", class, sig.Name, types.ErrInvalidOperation)
		}
	}

	m.registry.Insert(class.ID(), &typeEntry{class: class, parent: parentID, signatures: all})
	logger.Log.WithFields(logrus.Fields{
		"type":       class.Name(),
		"signatures": len(all),
	}).Debug("registered attributed type")
	return nil
}

// SignaturesForType returns the full, parent-first signature list of id.
func (m *TypeManager) SignaturesForType(id rtti.TypeID) ([]Signature, error) {
	e, err := m.registry.At(id)
	if err != nil {
		name := fmt.Sprintf("#%d", id)
		if c, ok := rtti.ClassByID(id); ok {
			name = c.Name()
		}
		return nil, fmt.Errorf("TypeManager.SignaturesForType: %s not registered: %w", name, types.ErrNotFound)
	}
	return (*e).signatures, nil
}

func (m *TypeManager) IsRegistered(id rtti.TypeID) bool {
	return m.registry.ContainsKey(id)
}

func (m *TypeManager) RemoveType(id rtti.TypeID) bool {
	return m.registry.Remove(id)
}

func (m *TypeManager) Size() int { return m.registry.Size() }

func (m *TypeManager) Clear() {
	m.registry.Clear()
}

var defaultTypeManager = newDefaultTypeManager()

func newDefaultTypeManager() *TypeManager {
	m := NewTypeManager()
	if err := m.AddType(AttributedClass, nil, nil); err != nil {
		panic(err)
	}
	return m
}

// DefaultTypeManager is the registry Attributed hosts populate from.
func DefaultTypeManager() *TypeManager { return defaultTypeManager }

// RegisterType adds class to the default registry.
//
// Usage:
//
//	var FooClass = rtti.NewClass("Foo", scope.AttributedClass)
//
//	func init() {
//	    scope.MustRegisterType(FooClass, scope.AttributedClass,
//	        scope.FieldSignature[Foo]("Health", types.TypeInteger, 1, "Health"))
//	}
func RegisterType(class, parent *rtti.Class, sigs ...Signature) error {
	return defaultTypeManager.AddType(class, parent, sigs)
}

// MustRegisterType is RegisterType panicking on error.
func MustRegisterType(class, parent *rtti.Class, sigs ...Signature) {
	if err := RegisterType(class, parent, sigs...); err != nil {
		panic(err)
	}
}
