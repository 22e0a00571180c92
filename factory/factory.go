// Package factory creates scope nodes by class name, the way table
// documents refer to them.
package factory

import (
	"fmt"
	"sort"

	"github.com/quickwritereader/attrscope/containers"
	"github.com/quickwritereader/attrscope/logger"
	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/scope"
	"github.com/quickwritereader/attrscope/types"
)

// Factory maps names to constructors of T.
type Factory[T any] struct {
	ctors *containers.HashMap[string, func() T]
}

func New[T any]() *Factory[T] {
	return &Factory[T]{ctors: containers.NewHashMap[string, func() T](containers.DefaultBucketCount)}
}

// Register adds ctor under name. Names are case-sensitive and registered
// once.
func (f *Factory[T]) Register(name string, ctor func() T) error {
	if name == "" || ctor == nil {
		return fmt.Errorf("Factory.Register: empty name or constructor: %w", types.ErrInvalidOperation)
	}
	if _, inserted := f.ctors.Insert(name, ctor); !inserted {
		return fmt.Errorf("Factory.Register: %q already registered: %w", name, types.ErrInvalidOperation)
	}
	logger.Log.WithField("class", name).Debug("factory registered")
	return nil
}

// MustRegister is Register panicking on error, for init functions.
func (f *Factory[T]) MustRegister(name string, ctor func() T) {
	if err := f.Register(name, ctor); err != nil {
		panic(err)
	}
}

func (f *Factory[T]) Unregister(name string) bool {
	return f.ctors.Remove(name)
}

func (f *Factory[T]) Contains(name string) bool {
	return f.ctors.ContainsKey(name)
}

// Create builds a new T registered under name.
func (f *Factory[T]) Create(name string) (T, error) {
	ctor, err := f.ctors.At(name)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("Factory.Create: class %q: %w", name, types.ErrNotFound)
	}
	return (*ctor)(), nil
}

// Names returns the registered names, sorted.
func (f *Factory[T]) Names() []string {
	names := f.ctors.Keys()
	sort.Strings(names)
	return names
}

// Scopes is the default node factory used by table readers. "Scope" is
// always available.
var Scopes = newScopes()

func newScopes() *Factory[scope.Node] {
	f := New[scope.Node]()
	f.MustRegister(scope.ScopeClass.Name(), func() scope.Node { return scope.NewScope() })
	return f
}

// RegisterNode adds a node type to Scopes under its class name.
func RegisterNode[T scope.Node](class *rtti.Class, ctor func() T) {
	Scopes.MustRegister(class.Name(), func() scope.Node { return ctor() })
}
