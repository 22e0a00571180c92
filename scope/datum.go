package scope

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/quickwritereader/attrscope/containers"
	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/types"
)

// Datum is a dynamically typed array of one element type. The type is set
// once, away from Unknown, and never changes afterwards.
//
// Storage is either owned by the Datum or external: a view over memory that
// belongs to someone else (an attributed host's fields). External storage
// has a fixed size; every capacity-changing call fails on it.
//
// Copying a Datum value shares its storage; use Clone for a deep copy.
type Datum struct {
	typ       types.DatumType
	store     storage
	external  bool
	increment containers.IncrementFunc
}

// NewDatum returns an empty Datum of type t with room for capacity elements.
func NewDatum(t types.DatumType, capacity int) (*Datum, error) {
	d := &Datum{}
	if err := d.SetType(t); err != nil {
		return nil, err
	}
	if capacity > 0 {
		if err := d.Reserve(capacity); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Datum) Type() types.DatumType { return d.typ }
func (d *Datum) IsExternal() bool { return d.external }
func (d *Datum) IsEmpty() bool { return d.Size() == 0 }

func (d *Datum) Size() int {
	if d.store == nil {
		return 0
	}
	return d.store.size()
}

func (d *Datum) Capacity() int {
	if d.store == nil {
		return 0
	}
	return d.store.capacity()
}

// SetIncrement replaces the growth strategy used by PushBack; nil restores
// containers.DoubleIncrement.
func (d *Datum) SetIncrement(f containers.IncrementFunc) {
	d.increment = f
}

// SetType assigns the element type. Only Unknown can be retyped; asking for
// the current type, or for Unknown, is a no-op.
func (d *Datum) SetType(t types.DatumType) error {
	if t == d.typ || t == types.TypeUnknown {
		return nil
	}
	if !t.IsValid() {
		return fmt.Errorf("Datum.SetType: invalid type %d: %w", uint8(t), types.ErrTypeMismatch)
	}
	if d.typ != types.TypeUnknown {
		return fmt.Errorf("Datum.SetType: cannot change %s to %s: %w", d.typ, t, types.ErrInvalidOperation)
	}
	d.typ = t
	d.store = makeStorage[t](0)
	return nil
}

func (d *Datum) checkMutable(op string) error {
	if d.external {
		return fmt.Errorf("Datum.%s: external storage: %w", op, types.ErrInvalidOperation)
	}
	if d.typ == types.TypeUnknown {
		return fmt.Errorf("Datum.%s: type not set: %w", op, types.ErrInvalidOperation)
	}
	return nil
}

func (d *Datum) checkIndex(op string, i int) error {
	if i < 0 || i >= d.Size() {
		return fmt.Errorf("Datum.%s: index %d, size %d: %w", op, i, d.Size(), types.ErrOutOfRange)
	}
	return nil
}

// Reserve grows capacity to at least n.
func (d *Datum) Reserve(n int) error {
	if err := d.checkMutable("Reserve"); err != nil {
		return err
	}
	d.store.reserve(n)
	return nil
}

// Resize sets the size to exactly n; new elements are zero values.
func (d *Datum) Resize(n int) error {
	if err := d.checkMutable("Resize"); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("Datum.Resize: negative size %d: %w", n, types.ErrOutOfRange)
	}
	d.store.resize(n)
	return nil
}

// Clear drops every element and keeps the capacity.
func (d *Datum) Clear() error {
	if err := d.checkMutable("Clear"); err != nil {
		return err
	}
	d.store.resize(0)
	return nil
}

// ShrinkToFit releases unused capacity.
func (d *Datum) ShrinkToFit() error {
	if err := d.checkMutable("ShrinkToFit"); err != nil {
		return err
	}
	d.store.shrink()
	return nil
}

func (d *Datum) PopBack() error {
	if err := d.checkMutable("PopBack"); err != nil {
		return err
	}
	if d.store.size() == 0 {
		return fmt.Errorf("Datum.PopBack: empty datum: %w", types.ErrOutOfRange)
	}
	d.store.resize(d.store.size() - 1)
	return nil
}

// RemoveAt removes element i, preserving order.
func (d *Datum) RemoveAt(i int) error {
	if err := d.checkMutable("RemoveAt"); err != nil {
		return err
	}
	if err := d.checkIndex("RemoveAt", i); err != nil {
		return err
	}
	d.store.removeAt(i)
	return nil
}

// grow makes room for one more element.
func (d *Datum) grow() {
	size, capacity := d.store.size(), d.store.capacity()
	if size < capacity {
		return
	}
	inc := d.increment
	if inc == nil {
		inc = containers.DoubleIncrement
	}
	step := inc(size, capacity)
	if step < 1 {
		step = 1
	}
	d.store.reserve(capacity + step)
}

// SetStorageRaw aliases n elements of type t starting at p. The memory must
// hold n consecutive values of t's Go element type and must outlive the
// Datum. An external Datum may be re-aimed at new memory.
func (d *Datum) SetStorageRaw(t types.DatumType, p unsafe.Pointer, n int) error {
	if err := d.checkStorage(t, n); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("Datum.SetStorage: nil memory: %w", types.ErrInvalidOperation)
	}
	d.store = aliasStorage[t](p, n)
	d.external = true
	return nil
}

func (d *Datum) checkStorage(t types.DatumType, n int) error {
	if n <= 0 {
		return fmt.Errorf("Datum.SetStorage: empty storage: %w", types.ErrInvalidOperation)
	}
	if t == types.TypeUnknown || !t.IsValid() {
		return fmt.Errorf("Datum.SetStorage: invalid type %s: %w", t, types.ErrInvalidOperation)
	}
	if !d.external && d.Capacity() > 0 {
		return fmt.Errorf("Datum.SetStorage: datum owns data: %w", types.ErrInvalidOperation)
	}
	return d.SetType(t)
}

func setStorage[T any](d *Datum, ops *elemOps[T], s []T) error {
	if err := d.checkStorage(ops.typ, len(s)); err != nil {
		return err
	}
	d.store = aliasColumn(ops, s)
	d.external = true
	return nil
}

// SetStorageInteger aliases s; writes through the Datum land in s.
func (d *Datum) SetStorageInteger(s []int32) error { return setStorage(d, integerOps, s) }

func (d *Datum) SetStorageFloat(s []float32) error { return setStorage(d, floatOps, s) }

func (d *Datum) SetStorageString(s []string) error { return setStorage(d, stringOps, s) }

func (d *Datum) SetStorageVector(s []mgl32.Vec4) error { return setStorage(d, vectorOps, s) }

func (d *Datum) SetStorageMatrix(s []mgl32.Mat4) error { return setStorage(d, matrixOps, s) }

func (d *Datum) SetStorageTable(s []*Scope) error { return setStorage(d, tableOps, s) }

func (d *Datum) SetStoragePointer(s []rtti.RTTI) error { return setStorage(d, pointerOps, s) }

func columnOf[T any](d *Datum, ops *elemOps[T], op string) (*column[T], error) {
	if d.typ != ops.typ {
		return nil, fmt.Errorf("Datum.%s: datum is %s, not %s: %w", op, d.typ, ops.typ, types.ErrTypeMismatch)
	}
	return d.store.(*column[T]), nil
}

func get[T any](d *Datum, ops *elemOps[T], i int) (T, error) {
	var zero T
	c, err := columnOf(d, ops, "Get")
	if err != nil {
		return zero, err
	}
	if err := d.checkIndex("Get", i); err != nil {
		return zero, err
	}
	return c.s[i], nil
}

func set[T any](d *Datum, ops *elemOps[T], v T, i int) error {
	c, err := columnOf(d, ops, "Set")
	if err != nil {
		return err
	}
	if err := d.checkIndex("Set", i); err != nil {
		return err
	}
	c.s[i] = v
	return nil
}

func pushBack[T any](d *Datum, ops *elemOps[T], v T) error {
	if err := d.SetType(ops.typ); err != nil {
		return err
	}
	c, err := columnOf(d, ops, "PushBack")
	if err != nil {
		return err
	}
	if err := d.checkMutable("PushBack"); err != nil {
		return err
	}
	d.grow()
	c.s = append(c.s, v)
	return nil
}

// assign makes v the first element, adopting the type when unset.
func assign[T any](d *Datum, ops *elemOps[T], v T) error {
	if err := d.SetType(ops.typ); err != nil {
		return err
	}
	if d.Size() == 0 {
		return pushBack(d, ops, v)
	}
	return set(d, ops, v, 0)
}

func view[T any](d *Datum, ops *elemOps[T]) []T {
	if d.typ != ops.typ {
		return nil
	}
	return d.store.(*column[T]).s
}

func (d *Datum) GetInteger(i int) (int32, error) { return get(d, integerOps, i) }
func (d *Datum) GetFloat(i int) (float32, error) { return get(d, floatOps, i) }
func (d *Datum) GetString(i int) (string, error) { return get(d, stringOps, i) }
func (d *Datum) GetVector(i int) (mgl32.Vec4, error) { return get(d, vectorOps, i) }
func (d *Datum) GetMatrix(i int) (mgl32.Mat4, error) { return get(d, matrixOps, i) }
func (d *Datum) GetTable(i int) (*Scope, error) { return get(d, tableOps, i) }
func (d *Datum) GetPointer(i int) (rtti.RTTI, error) { return get(d, pointerOps, i) }
func (d *Datum) SetInteger(v int32, i int) error { return set(d, integerOps, v, i) }
func (d *Datum) SetFloat(v float32, i int) error { return set(d, floatOps, v, i) }
func (d *Datum) SetString(v string, i int) error { return set(d, stringOps, v, i) }
func (d *Datum) SetVector(v mgl32.Vec4, i int) error { return set(d, vectorOps, v, i) }
func (d *Datum) SetMatrix(v mgl32.Mat4, i int) error { return set(d, matrixOps, v, i) }
func (d *Datum) SetPointer(v rtti.RTTI, i int) error { return set(d, pointerOps, v, i) }
func (d *Datum) PushBackInteger(v int32) error { return pushBack(d, integerOps, v) }
func (d *Datum) PushBackFloat(v float32) error { return pushBack(d, floatOps, v) }
func (d *Datum) PushBackString(v string) error { return pushBack(d, stringOps, v) }
func (d *Datum) PushBackVector(v mgl32.Vec4) error { return pushBack(d, vectorOps, v) }
func (d *Datum) PushBackMatrix(v mgl32.Mat4) error { return pushBack(d, matrixOps, v) }
func (d *Datum) PushBackPointer(v rtti.RTTI) error { return pushBack(d, pointerOps, v) }
func (d *Datum) AssignInteger(v int32) error { return assign(d, integerOps, v) }
func (d *Datum) AssignFloat(v float32) error { return assign(d, floatOps, v) }
func (d *Datum) AssignString(v string) error { return assign(d, stringOps, v) }
func (d *Datum) AssignVector(v mgl32.Vec4) error { return assign(d, vectorOps, v) }
func (d *Datum) AssignMatrix(v mgl32.Mat4) error { return assign(d, matrixOps, v) }
func (d *Datum) AssignPointer(v rtti.RTTI) error { return assign(d, pointerOps, v) }

// Typed views expose the live elements, nil when the type differs. For an
// external Datum the slice is the host's memory.
func (d *Datum) Integers() []int32 { return view(d, integerOps) }
func (d *Datum) Floats() []float32 { return view(d, floatOps) }
func (d *Datum) Strings() []string { return view(d, stringOps) }
func (d *Datum) Vectors() []mgl32.Vec4 { return view(d, vectorOps) }
func (d *Datum) Matrices() []mgl32.Mat4 { return view(d, matrixOps) }
func (d *Datum) Tables() []*Scope { return view(d, tableOps) }
func (d *Datum) Pointers() []rtti.RTTI { return view(d, pointerOps) }

// Tables hold child scopes owned by the enclosing Scope; only the Scope
// itself appends to them.
func (d *Datum) pushBackTable(child *Scope) error { return pushBack(d, tableOps, child) }

// IndexOfScope returns the slot holding child, or -1.
func (d *Datum) IndexOfScope(child *Scope) int {
	for i, s := range d.Tables() {
		if s == child {
			return i
		}
	}
	return -1
}

// Equal: two Unknown datums are equal; otherwise type, size and every
// element must match. Pointers compare with RTTI.Equals.
func (d *Datum) Equal(o *Datum) bool {
	if d == o {
		return true
	}
	if o == nil {
		return false
	}
	if d.typ == types.TypeUnknown || o.typ == types.TypeUnknown {
		return d.typ == o.typ
	}
	if d.typ != o.typ || d.Size() != o.Size() {
		return false
	}
	return d.store.equalTo(o.store)
}

// ToString formats element i.
func (d *Datum) ToString(i int) (string, error) {
	if d.typ == types.TypeUnknown {
		return "", fmt.Errorf("Datum.ToString: type not set: %w", types.ErrInvalidOperation)
	}
	if err := d.checkIndex("ToString", i); err != nil {
		return "", err
	}
	return d.store.format(i), nil
}

// SetFromString parses s into element i. Tables and pointers have no
// textual form.
func (d *Datum) SetFromString(s string, i int) error {
	if d.typ == types.TypeUnknown {
		return fmt.Errorf("Datum.SetFromString: type not set: %w", types.ErrInvalidOperation)
	}
	if err := d.checkIndex("SetFromString", i); err != nil {
		return err
	}
	if err := d.store.parseAt(s, i); err != nil {
		return fmt.Errorf("Datum.SetFromString: %w", err)
	}
	return nil
}

// PushBackFromString parses s and appends it. Nothing is appended when the
// parse fails.
func (d *Datum) PushBackFromString(s string) error {
	if err := d.checkMutable("PushBackFromString"); err != nil {
		return err
	}
	d.grow()
	n := d.store.size()
	d.store.resize(n + 1)
	if err := d.store.parseAt(s, n); err != nil {
		d.store.resize(n)
		return fmt.Errorf("Datum.PushBackFromString: %w", err)
	}
	return nil
}

// Clone returns an independent copy. Owned elements are copied; external
// storage stays an alias of the same memory. Table slots are copied as
// pointers: deep copies of child scopes are the Scope's job.
func (d *Datum) Clone() Datum {
	c := Datum{typ: d.typ, external: d.external, increment: d.increment}
	if d.store != nil {
		if d.external {
			c.store = d.store
		} else {
			c.store = d.store.clone()
		}
	}
	return c
}

// String joins every element; a single element prints bare.
func (d *Datum) String() string {
	n := d.Size()
	if d.typ == types.TypeUnknown {
		return "<unknown>"
	}
	if n == 1 {
		return d.store.format(0)
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.store.format(i)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
