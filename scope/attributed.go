package scope

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/quickwritereader/attrscope/logger"
	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/types"
)

var AttributedClass = rtti.NewClass("Attributed", ScopeClass)

// Attributed is a Scope whose leading entries mirror the fields of the
// struct embedding it. Entry 0 is "this", a Pointer to the host; then one
// entry per registered Signature in order, Datums for plain fields aliasing
// the host's memory. Entries appended later are auxiliary.
//
// Hosts embed Attributed, declare Class and Clone, register their
// signatures and call InitAttributed from their constructor:
//
//	type Foo struct {
//	    scope.Attributed
//	    ExternalInteger int32
//	}
//
//	func NewFoo() *Foo {
//	    f := &Foo{}
//	    scope.InitAttributed(f)
//	    return f
//	}
//
//	func (f *Foo) Class() *rtti.Class { return FooClass }
//	func (f *Foo) Clone() scope.Node  { return scope.Copy(f) }
type Attributed struct {
	Scope
}

type attributedHost interface {
	Node
	attributed() *Attributed
}

func (a *Attributed) attributed() *Attributed { return a }

func (a *Attributed) Class() *rtti.Class { return AttributedClass }
func (a *Attributed) Clone() Node { return Copy(a) }

// InitAttributed binds and populates the Attributed embedded in self from
// self's registered signatures. An unregistered class is a startup bug and
// panics.
func InitAttributed(self Node) {
	h, ok := self.(attributedHost)
	if !ok {
		panic(fmt.Sprintf("InitAttributed: %T does not embed scope.Attributed", self))
	}
	InitScope(self)
	if err := h.attributed().Populate(self.Class().ID()); err != nil {
		panic(err)
	}
}

func (a *Attributed) host() unsafe.Pointer {
	return reflect.ValueOf(a.Node()).UnsafePointer()
}

func (a *Attributed) signatures(id rtti.TypeID) ([]Signature, error) {
	return DefaultTypeManager().SignaturesForType(id)
}

// Populate appends "this" and one entry per signature of type id.
func (a *Attributed) Populate(id rtti.TypeID) error {
	sigs, err := a.signatures(id)
	if err != nil {
		return err
	}
	this, err := a.Append(ThisName)
	if err != nil {
		return err
	}
	if err := this.AssignPointer(a.Node()); err != nil {
		return err
	}

	base := a.host()
	for _, sig := range sigs {
		if sig.Type == types.TypeTable {
			d, err := a.Append(sig.Name)
			if err != nil {
				return err
			}
			if err := d.SetType(types.TypeTable); err != nil {
				return err
			}
			for i := 0; i < sig.Size; i++ {
				if _, err := a.AppendScope(sig.Name); err != nil {
					return err
				}
			}
			continue
		}
		d, err := a.Append(sig.Name)
		if err != nil {
			return err
		}
		if err := d.SetStorageRaw(sig.Type, unsafe.Add(base, sig.StorageOffset), sig.Size); err != nil {
			return fmt.Errorf("Attributed.Populate: %q: %w", sig.Name, err)
		}
	}
	logger.Log.WithFields(logrus.Fields{
		"type":       a.Node().Class().Name(),
		"attributes": len(sigs),
	}).Debug("populated attributed object")
	return nil
}

// UpdateExternalStorage re-aims "this" and every field-backed Datum at the
// current host. Relocation helpers call it after each copy or move.
func (a *Attributed) UpdateExternalStorage(id rtti.TypeID) error {
	sigs, err := a.signatures(id)
	if err != nil {
		return err
	}
	this := a.Find(ThisName)
	if this == nil {
		return fmt.Errorf("Attributed.UpdateExternalStorage: missing %q: %w", ThisName, types.ErrNotFound)
	}
	if err := this.SetPointer(a.Node(), 0); err != nil {
		return err
	}
	base := a.host()
	for _, sig := range sigs {
		if sig.Type == types.TypeTable {
			continue
		}
		d := a.Find(sig.Name)
		if d == nil {
			return fmt.Errorf("Attributed.UpdateExternalStorage: missing %q: %w", sig.Name, types.ErrNotFound)
		}
		if err := d.SetStorageRaw(sig.Type, unsafe.Add(base, sig.StorageOffset), sig.Size); err != nil {
			return err
		}
	}
	return nil
}

func (a *Attributed) typeID() rtti.TypeID { return a.Node().Class().ID() }

func (a *Attributed) IsAttribute(name string) bool {
	return a.Find(name) != nil
}

// IsPrescribedAttribute reports whether name is "this" or a signature of
// the host's type, present or not.
func (a *Attributed) IsPrescribedAttribute(name string) bool {
	if name == ThisName {
		return true
	}
	sigs, err := a.signatures(a.typeID())
	if err != nil {
		return false
	}
	for _, sig := range sigs {
		if sig.Name == name {
			return true
		}
	}
	return false
}

func (a *Attributed) IsAuxiliaryAttribute(name string) bool {
	return a.IsAttribute(name) && !a.IsPrescribedAttribute(name)
}

// AppendAuxiliaryAttribute is Append for names outside the signature set.
func (a *Attributed) AppendAuxiliaryAttribute(name string) (*Datum, error) {
	if a.IsPrescribedAttribute(name) {
		return nil, fmt.Errorf("Attributed.AppendAuxiliaryAttribute: %q is prescribed: %w", name, types.ErrInvalidOperation)
	}
	return a.Append(name)
}

func (a *Attributed) prescribedCount() int {
	sigs, err := a.signatures(a.typeID())
	if err != nil {
		return 0
	}
	return min(len(sigs)+1, a.Size())
}

// Attributes returns every entry, "this" included.
func (a *Attributed) Attributes() []*Entry { return a.Entries() }

// PrescribedAttributes returns "this" followed by the signature entries.
func (a *Attributed) PrescribedAttributes() []*Entry {
	return a.Entries()[:a.prescribedCount()]
}

func (a *Attributed) AuxiliaryAttributes() []*Entry {
	return a.Entries()[a.prescribedCount():]
}
