// Package rtti is a small, explicitly declared runtime type identification
// facility. Every participating type declares one Class, naming its bases,
// and reports it through Class(). Queries walk the declared base chain, so
// "is-a" answers follow the declarations rather than the Go type system.
package rtti

import (
	"fmt"
	"sync"
)

// TypeID is unique per declared class for the life of the process.
type TypeID uint64

// Class describes one declared type.
type Class struct {
	id    TypeID
	name  string
	bases []*Class
}

var (
	registryMu sync.RWMutex
	nextID     TypeID = 1
	byID              = map[TypeID]*Class{}
	byName            = map[string]*Class{}
)

// NewClass declares a class. Names must be unique; a duplicate name panics.
func NewClass(name string, bases ...*Class) *Class {
	if name == "" {
		panic("rtti: cannot declare a class with an empty name")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := byName[name]; exists {
		panic("rtti: class already declared: " + name)
	}
	c := &Class{id: nextID, name: name}
	for _, b := range bases {
		if b != nil {
			c.bases = append(c.bases, b)
		}
	}
	nextID++
	byID[c.id] = c
	byName[name] = c
	return c
}

// LookupClass finds a declared class by name.
func LookupClass(name string) (*Class, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := byName[name]
	return c, ok
}

// ClassByID finds a declared class by id.
func ClassByID(id TypeID) (*Class, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := byID[id]
	return c, ok
}

func (c *Class) ID() TypeID      { return c.id }
func (c *Class) Name() string    { return c.name }
func (c *Class) Bases() []*Class { return c.bases }

func (c *Class) String() string {
	return fmt.Sprintf("%s#%d", c.name, c.id)
}

// Is reports whether c is the class id or derives from it.
func (c *Class) Is(id TypeID) bool {
	if c == nil {
		return false
	}
	if c.id == id {
		return true
	}
	for _, b := range c.bases {
		if b.Is(id) {
			return true
		}
	}
	return false
}

// IsNamed is Is keyed by class name.
func (c *Class) IsNamed(name string) bool {
	if c == nil {
		return false
	}
	if c.name == name {
		return true
	}
	for _, b := range c.bases {
		if b.IsNamed(name) {
			return true
		}
	}
	return false
}

// RTTI is implemented by every participating type.
type RTTI interface {
	// Class returns the most derived declared class of the receiver.
	Class() *Class
	Equals(other RTTI) bool
	String() string
}

// Selfer exposes the outermost object of an embedding chain. Embedded bases
// implement it so that As can recover the most derived value.
type Selfer interface {
	Self() RTTI
}

// TypeIDOf returns the runtime type id, or 0 for nil.
func TypeIDOf(r RTTI) TypeID {
	if r == nil {
		return 0
	}
	return r.Class().ID()
}

// Is reports whether r's runtime class is id or derives from it.
func Is(r RTTI, id TypeID) bool {
	return r != nil && r.Class().Is(id)
}

// IsNamed is Is keyed by class name.
func IsNamed(r RTTI, name string) bool {
	return r != nil && r.Class().IsNamed(name)
}

// QueryInterface returns r when it is-a id, nil otherwise.
func QueryInterface(r RTTI, id TypeID) RTTI {
	if Is(r, id) {
		return r
	}
	return nil
}

// As converts r to T. It tries the value itself first and then, for embedded
// bases, the outermost object.
func As[T any](r RTTI) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	if t, ok := r.(T); ok {
		return t, true
	}
	if s, ok := r.(Selfer); ok {
		if self := s.Self(); self != nil {
			if t, ok := self.(T); ok {
				return t, true
			}
		}
	}
	return zero, false
}

// Base gives identity equality to plain RTTI types.
// Embedders still declare their own Class method.
type Base struct {
	_ byte // distinct addresses for distinct embedders
}

// Equals compares identity through the embedding object.
func (b *Base) Equals(other RTTI) bool {
	o, ok := other.(interface{ rttiBase() *Base })
	return ok && o.rttiBase() == b
}

func (b *Base) rttiBase() *Base { return b }
