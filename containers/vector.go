// Package containers provides the growable array and chained hash map the
// scope model is built on. Both are single-threaded.
package containers

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/quickwritereader/attrscope/types"
)

// IncrementFunc returns how many slots to add when a full container grows.
// A non-positive result is treated as 1.
type IncrementFunc func(size, capacity int) int

// DoubleIncrement grows geometrically, giving amortized O(1) appends.
func DoubleIncrement(_, capacity int) int {
	if capacity < 1 {
		return 1
	}
	return capacity
}

// ExactIncrement grows one slot at a time.
func ExactIncrement(_, _ int) int { return 1 }

// EqualFunc compares two elements.
type EqualFunc[T any] func(a, b T) bool

// DefaultEqual uses == when both values are comparable and reflect.DeepEqual
// otherwise. Comparability is checked on the dynamic values, so a struct whose
// interface field holds a slice falls back to DeepEqual.
func DefaultEqual[T any](a, b T) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.IsValid() && vb.IsValid() && va.Comparable() && vb.Comparable() {
		return any(a) == any(b)
	}
	return reflect.DeepEqual(a, b)
}

// Vector is a contiguous growable array. The zero value is usable and grows
// with DoubleIncrement.
type Vector[T any] struct {
	data      []T
	increment IncrementFunc
}

// NewVector creates a Vector with room for capacity elements.
func NewVector[T any](capacity int, increment ...IncrementFunc) *Vector[T] {
	v := &Vector[T]{}
	if len(increment) > 0 && increment[0] != nil {
		v.increment = increment[0]
	}
	if capacity > 0 {
		v.data = make([]T, 0, capacity)
	}
	return v
}

// VectorOf creates a Vector holding values.
func VectorOf[T any](values ...T) *Vector[T] {
	v := NewVector[T](len(values))
	v.data = append(v.data, values...)
	return v
}

// SetIncrement replaces the growth strategy; nil restores the default.
func (v *Vector[T]) SetIncrement(f IncrementFunc) {
	v.increment = f
}

func (v *Vector[T]) Size() int     { return len(v.data) }
func (v *Vector[T]) Capacity() int { return cap(v.data) }
func (v *Vector[T]) IsEmpty() bool { return len(v.data) == 0 }

// At returns a pointer to element i.
func (v *Vector[T]) At(i int) (*T, error) {
	if i < 0 || i >= len(v.data) {
		return nil, fmt.Errorf("Vector.At: index %d, size %d: %w", i, len(v.data), types.ErrOutOfRange)
	}
	return &v.data[i], nil
}

// Get returns a copy of element i.
func (v *Vector[T]) Get(i int) (T, error) {
	p, err := v.At(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

// Set overwrites element i.
func (v *Vector[T]) Set(i int, value T) error {
	p, err := v.At(i)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

func (v *Vector[T]) Front() (*T, error) {
	if len(v.data) == 0 {
		return nil, fmt.Errorf("Vector.Front: empty vector: %w", types.ErrOutOfRange)
	}
	return &v.data[0], nil
}

func (v *Vector[T]) Back() (*T, error) {
	if len(v.data) == 0 {
		return nil, fmt.Errorf("Vector.Back: empty vector: %w", types.ErrOutOfRange)
	}
	return &v.data[len(v.data)-1], nil
}

// Reserve grows capacity to at least n. It never shrinks.
func (v *Vector[T]) Reserve(n int) {
	if n <= cap(v.data) {
		return
	}
	grown := make([]T, len(v.data), n)
	copy(grown, v.data)
	v.data = grown
}

// Resize sets the size to exactly n, zero-constructing new elements.
func (v *Vector[T]) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(v.data) {
		clear(v.data[n:])
		v.data = v.data[:n]
		return
	}
	v.Reserve(n)
	old := len(v.data)
	v.data = v.data[:n]
	clear(v.data[old:])
}

// ShrinkToFit drops unused capacity.
func (v *Vector[T]) ShrinkToFit() {
	if cap(v.data) == len(v.data) {
		return
	}
	if len(v.data) == 0 {
		v.data = nil
		return
	}
	shrunk := make([]T, len(v.data))
	copy(shrunk, v.data)
	v.data = shrunk
}

// PushBack appends value and returns an iterator to it.
func (v *Vector[T]) PushBack(value T) Iterator[T] {
	if len(v.data) == cap(v.data) {
		inc := v.increment
		if inc == nil {
			inc = DoubleIncrement
		}
		step := inc(len(v.data), cap(v.data))
		if step < 1 {
			step = 1
		}
		v.Reserve(cap(v.data) + step)
	}
	v.data = append(v.data, value)
	return Iterator[T]{owner: v, index: len(v.data) - 1}
}

// PopBack removes the last element.
func (v *Vector[T]) PopBack() error {
	if len(v.data) == 0 {
		return fmt.Errorf("Vector.PopBack: empty vector: %w", types.ErrOutOfRange)
	}
	var zero T
	v.data[len(v.data)-1] = zero
	v.data = v.data[:len(v.data)-1]
	return nil
}

// Clear removes every element and keeps the capacity.
func (v *Vector[T]) Clear() {
	clear(v.data)
	v.data = v.data[:0]
}

// RemoveAt removes element i, preserving order.
func (v *Vector[T]) RemoveAt(i int) error {
	if i < 0 || i >= len(v.data) {
		return fmt.Errorf("Vector.RemoveAt: index %d, size %d: %w", i, len(v.data), types.ErrOutOfRange)
	}
	copy(v.data[i:], v.data[i+1:])
	var zero T
	v.data[len(v.data)-1] = zero
	v.data = v.data[:len(v.data)-1]
	return nil
}

// RemoveRange removes [first,last). Both iterators must belong to v.
func (v *Vector[T]) RemoveRange(first, last Iterator[T]) error {
	if first.owner != v || last.owner != v {
		return fmt.Errorf("Vector.RemoveRange: %w", types.ErrUnboundIterator)
	}
	if first.index < 0 || last.index > len(v.data) || first.index > last.index {
		return fmt.Errorf("Vector.RemoveRange: range [%d,%d), size %d: %w",
			first.index, last.index, len(v.data), types.ErrOutOfRange)
	}
	n := copy(v.data[first.index:], v.data[last.index:])
	tail := first.index + n
	clear(v.data[tail:])
	v.data = v.data[:tail]
	return nil
}

// IndexOf returns the index of the first element equal to value, or -1.
func (v *Vector[T]) IndexOf(value T, eq ...EqualFunc[T]) int {
	equal := pickEqual(eq)
	for i := range v.data {
		if equal(v.data[i], value) {
			return i
		}
	}
	return -1
}

// Find returns an iterator to the first element equal to value, or End().
func (v *Vector[T]) Find(value T, eq ...EqualFunc[T]) Iterator[T] {
	i := v.IndexOf(value, eq...)
	if i < 0 {
		return v.End()
	}
	return Iterator[T]{owner: v, index: i}
}

// Remove deletes the first element equal to value.
func (v *Vector[T]) Remove(value T, eq ...EqualFunc[T]) bool {
	i := v.IndexOf(value, eq...)
	if i < 0 {
		return false
	}
	_ = v.RemoveAt(i)
	return true
}

// Clone returns an element-wise copy sharing the growth strategy.
func (v *Vector[T]) Clone() *Vector[T] {
	c := &Vector[T]{increment: v.increment}
	if cap(v.data) > 0 {
		c.data = make([]T, len(v.data), cap(v.data))
		copy(c.data, v.data)
	}
	return c
}

// Slice exposes the live elements. The slice is invalidated by growth.
func (v *Vector[T]) Slice() []T { return v.data }

// All iterates index/value pairs in order.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, e := range v.data {
			if !yield(i, e) {
				return
			}
		}
	}
}

func (v *Vector[T]) Begin() Iterator[T] { return Iterator[T]{owner: v, index: 0} }
func (v *Vector[T]) End() Iterator[T]   { return Iterator[T]{owner: v, index: len(v.data)} }

func pickEqual[T any](eq []EqualFunc[T]) EqualFunc[T] {
	if len(eq) > 0 && eq[0] != nil {
		return eq[0]
	}
	return DefaultEqual[T]
}

// Iterator is an (owner, index) position in a Vector. The zero value is unbound.
type Iterator[T any] struct {
	owner *Vector[T]
	index int
}

func (it Iterator[T]) Index() int { return it.index }

// Bound reports whether the iterator belongs to a container.
func (it Iterator[T]) Bound() bool { return it.owner != nil }

// Value dereferences the iterator.
func (it Iterator[T]) Value() (*T, error) {
	if it.owner == nil {
		return nil, fmt.Errorf("Iterator.Value: %w", types.ErrUnboundIterator)
	}
	if it.index < 0 || it.index >= len(it.owner.data) {
		return nil, fmt.Errorf("Iterator.Value: index %d, size %d: %w", it.index, len(it.owner.data), types.ErrOutOfRange)
	}
	return &it.owner.data[it.index], nil
}

// Next advances the iterator; it stops at End().
func (it *Iterator[T]) Next() error {
	if it.owner == nil {
		return fmt.Errorf("Iterator.Next: %w", types.ErrUnboundIterator)
	}
	if it.index < len(it.owner.data) {
		it.index++
	}
	return nil
}

// Equal compares positions. Iterators of different owners, or unbound
// ones, cannot be compared.
func (it Iterator[T]) Equal(other Iterator[T]) (bool, error) {
	if it.owner == nil || other.owner == nil || it.owner != other.owner {
		return false, fmt.Errorf("Iterator.Equal: %w", types.ErrUnboundIterator)
	}
	return it.index == other.index, nil
}
