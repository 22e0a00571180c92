package scope

import (
	"fmt"

	"github.com/quickwritereader/attrscope/types"
)

// Go moves no objects on its own, so a Scope that changes address (or is
// duplicated) has to have its back-references repaired: the self link, the
// children's parent links, the parent's slot and, for attributed hosts, the
// Datums aliasing the host's fields. The helpers below pair a plain struct
// copy with that repair.
//
// Each helper is generic over the concrete pointer type so the whole host
// struct is copied, not only its embedded Scope.

// Copy returns a deep copy of src as a new root. Child scopes are cloned
// through their own Clone.
func Copy[T any, P interface {
	*T
	Node
}](src P) P {
	dst := P(new(T))
	*dst = *src
	rebuildAsCopy(dst)
	return dst
}

// Move transfers src's contents and place in the tree to a new object. src
// is left empty and detached.
func Move[T any, P interface {
	*T
	Node
}](src P) P {
	dst := P(new(T))
	*dst = *src
	takeOver(dst, src.BaseScope())
	src.BaseScope().reset()
	return dst
}

// Assign replaces dst's contents with a deep copy of src. dst keeps its own
// parent.
func Assign[T any, P interface {
	*T
	Node
}](dst, src P) {
	if dst == src {
		return
	}
	parent := dst.BaseScope().parent
	dst.BaseScope().Clear()
	*dst = *src
	rebuildAsCopy(dst)
	dst.BaseScope().parent = parent
}

// MoveAssign replaces dst with src's contents and tree position. dst's old
// children are dropped and dst leaves its old parent. It panics, with dst
// untouched, if dst cannot be removed from its parent's slot.
func MoveAssign[T any, P interface {
	*T
	Node
}](dst, src P) {
	if dst == src {
		return
	}
	d := dst.BaseScope()
	if d.parent != nil {
		if err := d.Orphan(); err != nil {
			panic(fmt.Errorf("scope.MoveAssign: %w", err))
		}
	}
	d.Clear()
	*dst = *src
	takeOver(dst, src.BaseScope())
	src.BaseScope().reset()
}

// rebuildAsCopy gives n fresh containers holding copies of the entries it
// currently shares with its source.
func rebuildAsCopy(n Node) {
	s := n.BaseScope()
	entries := s.Entries()
	s.self = n
	s.parent = nil
	s.dictionary, s.order = nil, nil
	s.ensure()
	for _, e := range entries {
		d, _ := s.Append(e.Key)
		if e.Value.Type() != types.TypeTable {
			*d = e.Value.Clone()
			continue
		}
		// The copy always owns its children, even when the source slot is
		// external storage.
		d.increment = e.Value.increment
		_ = d.SetType(types.TypeTable)
		for _, child := range e.Value.Tables() {
			var c *Scope
			if child != nil {
				c = child.Node().Clone().BaseScope()
				c.parent = s
			}
			_ = d.pushBackTable(c)
		}
	}
	repairHost(n)
}

// takeOver makes n the owner of the containers it shares with old.
func takeOver(n Node, old *Scope) {
	s := n.BaseScope()
	s.self = n
	if s.parent != nil {
		if d, i := s.parent.FindContainedScope(old); d != nil {
			d.Tables()[i] = s
		}
	}
	for _, e := range s.Entries() {
		for _, child := range e.Value.Tables() {
			if child != nil {
				child.parent = s
			}
		}
	}
	repairHost(n)
}

// reset empties s without touching the containers it used to own.
func (s *Scope) reset() {
	s.dictionary, s.order = nil, nil
	s.parent = nil
}

// repairHost re-aims an attributed host's field aliases at n.
func repairHost(n Node) {
	if h, ok := n.(attributedHost); ok {
		if err := h.attributed().UpdateExternalStorage(n.Class().ID()); err != nil {
			panic(err)
		}
	}
}
