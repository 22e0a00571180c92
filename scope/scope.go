package scope

import (
	"fmt"
	"strings"

	"github.com/quickwritereader/attrscope/containers"
	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/types"
)

var ScopeClass = rtti.NewClass("Scope")

// Node is anything built on a Scope: the Scope itself or a struct that
// embeds one (directly or through Attributed).
type Node interface {
	rtti.RTTI
	BaseScope() *Scope
	// Clone returns a deep copy of the most derived object as a root.
	Clone() Node
}

// Entry is one name/value pair of a Scope. Entries have stable addresses
// for the lifetime of the Scope.
type Entry = containers.Pair[string, Datum]

var defaultBuckets = containers.DefaultBucketCount

// SetDefaultBucketCount sets the dictionary bucket count of scopes created
// afterwards. Values below 1 restore the default.
func SetDefaultBucketCount(n int) {
	if n < 1 {
		n = containers.DefaultBucketCount
	}
	defaultBuckets = n
}

// Scope is an ordered table of named Datums and a node in a tree of scopes.
// A Scope owns the child scopes held in its Table datums; parent is a
// back-reference.
//
// The zero value is an empty root Scope. A Scope must not be copied by
// value; use Copy, Move, Assign and MoveAssign.
type Scope struct {
	dictionary *containers.HashMap[string, Datum]
	order      *containers.Vector[*Entry]
	parent     *Scope
	self       Node
}

func NewScope() *Scope {
	s := &Scope{}
	InitScope(s)
	return s
}

// InitScope binds the Scope embedded in self to self. Embedders call it
// from their constructor so that Clone and Class reach the outer type.
func InitScope(self Node) {
	s := self.BaseScope()
	s.self = self
	s.ensure()
}

func (s *Scope) ensure() {
	if s.dictionary == nil {
		s.dictionary = containers.NewHashMap[string, Datum](defaultBuckets)
		s.order = containers.NewVector[*Entry](0)
	}
}

func (s *Scope) Class() *rtti.Class { return ScopeClass }
func (s *Scope) BaseScope() *Scope { return s }

// Node returns the outermost object embedding s.
func (s *Scope) Node() Node {
	if s.self == nil {
		return s
	}
	return s.self
}

func (s *Scope) Self() rtti.RTTI { return s.Node() }

func (s *Scope) Is(id rtti.TypeID) bool { return s.Node().Class().Is(id) }
func (s *Scope) IsNamed(name string) bool { return s.Node().Class().IsNamed(name) }
func (s *Scope) Clone() Node { return Copy(s) }
func (s *Scope) Parent() *Scope { return s.parent }

// Equals compares structurally with any other Node.
func (s *Scope) Equals(other rtti.RTTI) bool {
	n, ok := other.(interface{ BaseScope() *Scope })
	return ok && s.Equal(n.BaseScope())
}

func (s *Scope) Size() int {
	if s.order == nil {
		return 0
	}
	return s.order.Size()
}

func (s *Scope) IsEmpty() bool { return s.Size() == 0 }

// Entries returns the live entries in insertion order.
func (s *Scope) Entries() []*Entry {
	if s.order == nil {
		return nil
	}
	return s.order.Slice()
}

func (s *Scope) Names() []string {
	names := make([]string, 0, s.Size())
	for _, e := range s.Entries() {
		names = append(names, e.Key)
	}
	return names
}

// Append returns the Datum called name, adding an Unknown one at the end
// when absent.
func (s *Scope) Append(name string) (*Datum, error) {
	if name == "" {
		return nil, fmt.Errorf("Scope.Append: empty name: %w", types.ErrInvalidOperation)
	}
	s.ensure()
	it, inserted := s.dictionary.Insert(name, Datum{})
	e, err := it.Pair()
	if err != nil {
		return nil, err
	}
	if inserted {
		s.order.PushBack(e)
	}
	return &e.Value, nil
}

// AppendScope creates a child Scope and stores it under name.
func (s *Scope) AppendScope(name string) (*Scope, error) {
	d, err := s.tableSlot("Scope.AppendScope", name)
	if err != nil {
		return nil, err
	}
	child := NewScope()
	child.parent = s
	if err := d.pushBackTable(child); err != nil {
		return nil, err
	}
	return child, nil
}

// tableSlot returns the Datum name, which must be a Table or still Unknown.
func (s *Scope) tableSlot(op, name string) (*Datum, error) {
	if name == "" {
		return nil, fmt.Errorf("%s: empty name: %w", op, types.ErrInvalidOperation)
	}
	if d := s.Find(name); d != nil {
		if t := d.Type(); t != types.TypeUnknown && t != types.TypeTable {
			return nil, fmt.Errorf("%s: %q is %s: %w", op, name, t, types.ErrInvalidOperation)
		}
	}
	d, err := s.Append(name)
	if err != nil {
		return nil, err
	}
	if err := d.SetType(types.TypeTable); err != nil {
		return nil, err
	}
	return d, nil
}

// Adopt moves child under s as name, detaching it from its current parent.
// Adopting s itself or one of its ancestors fails and leaves both trees
// unchanged.
func (s *Scope) Adopt(child Node, name string) error {
	c := child.BaseScope()
	switch {
	case name == "":
		return fmt.Errorf("Scope.Adopt: empty name: %w", types.ErrInvalidOperation)
	case c == s:
		return fmt.Errorf("Scope.Adopt: self adoption: %w", types.ErrInvalidOperation)
	case c.IsAncestorOf(s):
		return fmt.Errorf("Scope.Adopt: %q would create a cycle: %w", name, types.ErrInvalidOperation)
	}
	if d := s.Find(name); d != nil {
		if t := d.Type(); t != types.TypeUnknown && t != types.TypeTable {
			return fmt.Errorf("Scope.Adopt: %q is %s: %w", name, t, types.ErrInvalidOperation)
		}
		if d.IsExternal() {
			return fmt.Errorf("Scope.Adopt: %q uses external storage: %w", name, types.ErrInvalidOperation)
		}
	}
	if c.parent != nil {
		if err := c.Orphan(); err != nil {
			return err
		}
	}
	d, err := s.tableSlot("Scope.Adopt", name)
	if err != nil {
		return err
	}
	if err := d.pushBackTable(c); err != nil {
		return err
	}
	c.parent = s
	return nil
}

// Orphan detaches s from its parent. The caller becomes responsible for s.
func (s *Scope) Orphan() error {
	if s.parent == nil {
		return fmt.Errorf("Scope.Orphan: scope has no parent: %w", types.ErrInvalidOperation)
	}
	d, i := s.parent.FindContainedScope(s)
	if d == nil {
		return fmt.Errorf("Scope.Orphan: scope not held by its parent: %w", types.ErrNotFound)
	}
	if err := d.RemoveAt(i); err != nil {
		return err
	}
	s.parent = nil
	return nil
}

// FindContainedScope locates the Table slot holding child.
func (s *Scope) FindContainedScope(child *Scope) (*Datum, int) {
	for _, e := range s.Entries() {
		if e.Value.Type() != types.TypeTable {
			continue
		}
		if i := e.Value.IndexOfScope(child); i >= 0 {
			return &e.Value, i
		}
	}
	return nil, -1
}

// Find looks name up in s only.
func (s *Scope) Find(name string) *Datum {
	if s.dictionary == nil {
		return nil
	}
	e := s.dictionary.FindPair(name)
	if e == nil {
		return nil
	}
	return &e.Value
}

// Search looks name up in s and then in each ancestor, returning the Datum
// and the scope that holds it.
func (s *Scope) Search(name string) (*Datum, *Scope) {
	for cur := s; cur != nil; cur = cur.parent {
		if d := cur.Find(name); d != nil {
			return d, cur
		}
	}
	return nil, nil
}

// At returns the Datum in position i.
func (s *Scope) At(i int) (*Datum, error) {
	e, err := s.EntryAt(i)
	if err != nil {
		return nil, err
	}
	return &e.Value, nil
}

func (s *Scope) EntryAt(i int) (*Entry, error) {
	if i < 0 || i >= s.Size() {
		return nil, fmt.Errorf("Scope.At: index %d, size %d: %w", i, s.Size(), types.ErrOutOfRange)
	}
	return s.order.Slice()[i], nil
}

// IsAncestorOf reports whether s is a strict ancestor of other.
func (s *Scope) IsAncestorOf(other *Scope) bool {
	if other == nil {
		return false
	}
	for p := other.parent; p != nil; p = p.parent {
		if p == s {
			return true
		}
	}
	return false
}

func (s *Scope) IsDescendantOf(other *Scope) bool {
	return other != nil && other.IsAncestorOf(s)
}

// Clear removes every entry. Child scopes are detached and dropped.
func (s *Scope) Clear() {
	for _, e := range s.Entries() {
		for _, child := range e.Value.Tables() {
			if child != nil && child.parent == s {
				child.parent = nil
			}
		}
	}
	if s.dictionary != nil {
		s.dictionary.Clear()
		s.order.Clear()
	}
}

// Equal compares entries position by position. The "this" entry is
// skipped so self references never make two scopes differ.
func (s *Scope) Equal(o *Scope) bool {
	if s == o {
		return true
	}
	if o == nil || s.Size() != o.Size() {
		return false
	}
	oe := o.Entries()
	for i, e := range s.Entries() {
		if e.Key != oe[i].Key {
			return false
		}
		if e.Key == ThisName {
			continue
		}
		if !e.Value.Equal(&oe[i].Value) {
			return false
		}
	}
	return true
}

func (s *Scope) String() string {
	var b strings.Builder
	b.WriteString("{")
	first := true
	for _, e := range s.Entries() {
		if e.Key == ThisName {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(e.Key)
		b.WriteString(": ")
		b.WriteString(e.Value.String())
	}
	b.WriteString("}")
	return b.String()
}
